package handlers

import (
	"errors"
	"net/http"
	"strings"

	"timekeeper/logger"
	"timekeeper/middleware"
	"timekeeper/models"
	"timekeeper/services"
	"timekeeper/workflow"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EmployeeHandler is the admin view of employee accounts.
type EmployeeHandler struct {
	db         *gorm.DB
	timesheets *services.Timesheets
}

func NewEmployeeHandler(db *gorm.DB, timesheets *services.Timesheets) *EmployeeHandler {
	return &EmployeeHandler{db: db, timesheets: timesheets}
}

type CreateEmployeeRequest struct {
	Username   string      `json:"username" validate:"required,min=3,max=100,alphanum"`
	FirstName  string      `json:"first_name" validate:"required,max=100"`
	LastName   string      `json:"last_name" validate:"max=100"`
	Email      string      `json:"email" validate:"omitempty,email"`
	Password   string      `json:"password" validate:"required,min=8"`
	Role       models.Role `json:"role" validate:"required,oneof=ADMIN MANAGER EMPLOYEE"`
	HourlyRate string      `json:"hourly_rate" validate:"omitempty,numeric"`
	Department string      `json:"department" validate:"max=100"`
	ClientID   *uint       `json:"client_id"`
	IsExempt   bool        `json:"is_exempt"`
	State      string      `json:"state" validate:"omitempty,len=2,alpha"`
}

// UpdateEmployeeRequest changes only the fields that are present.
type UpdateEmployeeRequest struct {
	FirstName   *string      `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName    *string      `json:"last_name" validate:"omitempty,max=100"`
	Email       *string      `json:"email" validate:"omitempty,email"`
	Role        *models.Role `json:"role" validate:"omitempty,oneof=ADMIN MANAGER EMPLOYEE"`
	HourlyRate  *string      `json:"hourly_rate" validate:"omitempty,numeric"`
	Department  *string      `json:"department" validate:"omitempty,max=100"`
	ClientID    *uint        `json:"client_id"`
	ClearClient bool         `json:"clear_client"`
	IsActive    *bool        `json:"is_active"`
	IsExempt    *bool        `json:"is_exempt"`
	State       *string      `json:"state" validate:"omitempty,len=2,alpha"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	query := h.db.WithContext(r.Context()).Preload("Client").Order("last_name").Order("first_name").Order("id")
	if !queryBool(r, "all") {
		query = query.Where("is_active = ?", true)
	}
	clientID, err := queryUint(r, "client_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if clientID != 0 {
		query = query.Where("client_id = ?", clientID)
	}
	if role := models.Role(strings.ToUpper(r.URL.Query().Get("role"))); role != "" {
		if !role.Valid() {
			writeError(w, r, badRequest("unknown role %q", role))
			return
		}
		query = query.Where("role = ?", role)
	}

	var employees []models.Employee
	if err := query.Find(&employees).Error; err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var employee models.Employee
	if err := h.db.WithContext(r.Context()).Preload("Client").First(&employee, id).Error; err != nil {
		writeError(w, r, notFound(err, "employee"))
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

// Create adds an account directly. The password is temporary: the employee
// must change it on first sign-in.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rate := decimal.Zero
	if req.HourlyRate != "" {
		rate = decimal.RequireFromString(req.HourlyRate)
	}
	db := h.db.WithContext(r.Context())

	var taken int64
	if err := db.Unscoped().Model(&models.Employee{}).Where("username = ?", req.Username).Count(&taken).Error; err != nil {
		writeError(w, r, err)
		return
	}
	if taken > 0 {
		writeError(w, r, badRequest("username already exists"))
		return
	}
	if err := checkClient(r, h.db, req.ClientID); err != nil {
		writeError(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	employee := models.Employee{
		Username:           req.Username,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		PasswordHash:       string(hashedPassword),
		Role:               req.Role,
		HourlyRate:         rate,
		Department:         req.Department,
		ClientID:           req.ClientID,
		IsActive:           true,
		IsExempt:           req.IsExempt,
		State:              strings.ToUpper(req.State),
		MustChangePassword: true,
	}
	if err := db.Create(&employee).Error; err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

// Update edits an employee. A change of jurisdiction or exemption reruns
// the overtime computation on every timesheet that is not yet approved.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateEmployeeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	db := h.db.WithContext(r.Context())

	var employee models.Employee
	if err := db.First(&employee, id).Error; err != nil {
		writeError(w, r, notFound(err, "employee"))
		return
	}
	actor := middleware.GetUserFromContext(r.Context())
	if actor.ID == employee.ID && ((req.Role != nil && *req.Role != employee.Role) || (req.IsActive != nil && !*req.IsActive)) {
		writeError(w, r, badRequest("you cannot demote or deactivate yourself"))
		return
	}
	if err := checkClient(r, h.db, req.ClientID); err != nil {
		writeError(w, r, err)
		return
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.HourlyRate != nil {
		updates["hourly_rate"] = decimal.RequireFromString(*req.HourlyRate)
	}
	if req.Department != nil {
		updates["department"] = *req.Department
	}
	if req.ClientID != nil {
		updates["client_id"] = *req.ClientID
	} else if req.ClearClient {
		updates["client_id"] = nil
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	policyChanged := false
	if req.IsExempt != nil && *req.IsExempt != employee.IsExempt {
		updates["is_exempt"] = *req.IsExempt
		policyChanged = true
	}
	if req.State != nil {
		state := strings.ToUpper(*req.State)
		if state != employee.State {
			updates["state"] = state
			policyChanged = true
		}
	}

	if len(updates) > 0 {
		if err := db.Model(&employee).Updates(updates).Error; err != nil {
			writeError(w, r, err)
			return
		}
	}
	if policyChanged {
		if err := h.recalculate(r, employee.ID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	employee = models.Employee{}
	if err := db.Preload("Client").First(&employee, id).Error; err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (h *EmployeeHandler) recalculate(r *http.Request, employeeID uint) error {
	var ids []uint
	if err := h.db.WithContext(r.Context()).Model(&models.Timesheet{}).
		Where("employee_id = ? AND status <> ?", employeeID, workflow.StatusApproved).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	log := logger.FromContext(r.Context())
	for _, id := range ids {
		if _, err := h.timesheets.Recalculate(r.Context(), id); err != nil {
			var locked *workflow.RecordLockedError
			if errors.As(err, &locked) || errors.Is(err, workflow.ErrStateConflict) {
				log.Warn().Err(err).Uint("timesheet_id", id).Msg("skipped recalculation")
				continue
			}
			return err
		}
	}
	log.Info().Uint("employee_id", employeeID).Int("timesheets", len(ids)).Msg("overtime recalculated")
	return nil
}

// ResetPassword sets a temporary password the employee must replace.
func (h *EmployeeHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ResetPasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res := h.db.WithContext(r.Context()).Model(&models.Employee{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password_hash":        string(hashedPassword),
		"must_change_password": true,
	})
	if res.Error != nil {
		writeError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeError(w, r, notFound(gorm.ErrRecordNotFound, "employee"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
