package handlers

import (
	"net/http"

	"timekeeper/middleware"
	"timekeeper/models"
	"timekeeper/services"
	"timekeeper/workflow"

	"github.com/shopspring/decimal"
)

type ExpenseHandler struct {
	expenses *services.Expenses
}

func NewExpenseHandler(expenses *services.Expenses) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

type SaveExpenseRequest struct {
	EmployeeID  uint   `json:"employee_id"`
	ExpenseDate string `json:"expense_date" validate:"required"`
	Amount      string `json:"amount" validate:"required,numeric"`
	Category    string `json:"category" validate:"required"`
	Vendor      string `json:"vendor" validate:"max=200"`
	Description string `json:"description" validate:"max=500"`
	ProjectID   *uint  `json:"project_id"`
	ReceiptURL  string `json:"receipt_url" validate:"omitempty,url,max=500"`
	Submit      bool   `json:"submit"`
}

func (req SaveExpenseRequest) input(id uint) (services.SaveExpenseInput, error) {
	date, err := parseDate(req.ExpenseDate, "expense_date")
	if err != nil {
		return services.SaveExpenseInput{}, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return services.SaveExpenseInput{}, badRequest("invalid amount %q", req.Amount)
	}
	return services.SaveExpenseInput{
		ID:          id,
		EmployeeID:  req.EmployeeID,
		ExpenseDate: date,
		Amount:      amount,
		Category:    req.Category,
		Vendor:      req.Vendor,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		ReceiptURL:  req.ReceiptURL,
		Submit:      req.Submit,
	}, nil
}

func (h *ExpenseHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, services.ExpenseCategories)
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var (
		f   models.ExpenseFilter
		err error
	)
	if f.EmployeeID, err = queryUint(r, "employee_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.ClientID, err = queryUint(r, "client_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.From, err = queryDate(r, "from"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		writeError(w, r, err)
		return
	}
	if s := workflow.Status(r.URL.Query().Get("status")); s != "" {
		if !s.Valid() {
			writeError(w, r, badRequest("unknown status %q", s))
			return
		}
		f.Status = s
	}

	expenses, err := h.expenses.List(r.Context(), user, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, 0)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.save(w, r, id)
}

func (h *ExpenseHandler) save(w http.ResponseWriter, r *http.Request, id uint) {
	var req SaveExpenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	exp, err := h.expenses.Save(r.Context(), middleware.GetUserFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, exp)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	exp, err := h.expenses.Get(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.expenses.Delete(r.Context(), middleware.GetUserFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExpenseHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	exp, err := h.expenses.Approve(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (h *ExpenseHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req RejectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	exp, err := h.expenses.Reject(r.Context(), middleware.GetUserFromContext(r.Context()), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}
