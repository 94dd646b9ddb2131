package handlers

import (
	"net/http"

	"timekeeper/hours"
	"timekeeper/middleware"
	"timekeeper/models"
	"timekeeper/services"
	"timekeeper/workflow"
)

type TimesheetHandler struct {
	timesheets *services.Timesheets
}

func NewTimesheetHandler(timesheets *services.Timesheets) *TimesheetHandler {
	return &TimesheetHandler{timesheets: timesheets}
}

type TimesheetRowRequest struct {
	ProjectID uint              `json:"project_id" validate:"required"`
	Hours     map[string]string `json:"hours" validate:"required"`
	Notes     map[string]string `json:"notes"`
}

type SaveTimesheetRequest struct {
	EmployeeID uint                  `json:"employee_id"`
	WeekEnding string                `json:"week_ending" validate:"required"`
	Rows       []TimesheetRowRequest `json:"rows" validate:"dive"`
	Submit     bool                  `json:"submit"`
	Attested   bool                  `json:"attested"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// TimesheetResponse is a timesheet with its entries regrouped into the
// weekly grid the client edits.
type TimesheetResponse struct {
	*models.Timesheet
	Rows []TimesheetRowRequest `json:"rows"`
}

type PreviewResponse struct {
	WeekEnding string        `json:"week_ending"`
	Totals     hours.Totals  `json:"totals"`
	Rule       hours.RuleKey `json:"rule"`
	Exempt     bool          `json:"exempt"`
	hours.Split
}

func (req SaveTimesheetRequest) rows() []services.TimesheetRow {
	rows := make([]services.TimesheetRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		notes := row.Notes
		if notes == nil {
			notes = map[string]string{}
		}
		rows = append(rows, services.TimesheetRow{ProjectID: row.ProjectID, Hours: row.Hours, Notes: notes})
	}
	return rows
}

func toResponse(ts *models.Timesheet) TimesheetResponse {
	grid := services.RowsFromEntries(ts.Entries)
	rows := make([]TimesheetRowRequest, 0, len(grid))
	for _, row := range grid {
		rows = append(rows, TimesheetRowRequest{ProjectID: row.ProjectID, Hours: row.Hours, Notes: row.Notes})
	}
	return TimesheetResponse{Timesheet: ts, Rows: rows}
}

func (h *TimesheetHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var (
		f   models.TimesheetFilter
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

	timesheets, err := h.timesheets.List(r.Context(), user, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timesheets)
}

// Save creates or replaces the week named in the body. A rejected week
// can be edited and submitted again.
func (h *TimesheetHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req SaveTimesheetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	weekEnding, err := parseDate(req.WeekEnding, "week_ending")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ts, err := h.timesheets.Save(r.Context(), user, services.SaveTimesheetInput{
		EmployeeID: req.EmployeeID,
		WeekEnding: weekEnding,
		Rows:       req.rows(),
		Submit:     req.Submit,
		Attested:   req.Attested,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(ts))
}

func (h *TimesheetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req SaveTimesheetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	weekEnding, err := parseDate(req.WeekEnding, "week_ending")
	if err != nil {
		writeError(w, r, err)
		return
	}

	comp, err := h.timesheets.Preview(r.Context(), user, req.EmployeeID, weekEnding, req.rows())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		WeekEnding: comp.WeekEnding.Format(hours.DateLayout),
		Totals:     comp.Totals,
		Rule:       comp.Policy.Rule,
		Exempt:     comp.Policy.Exempt,
		Split:      comp.Split,
	})
}

func (h *TimesheetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ts, err := h.timesheets.Get(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(ts))
}

func (h *TimesheetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.timesheets.Delete(r.Context(), middleware.GetUserFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TimesheetHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ts, err := h.timesheets.Approve(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(ts))
}

func (h *TimesheetHandler) Reject(w http.ResponseWriter, r *http.Request) {
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
	ts, err := h.timesheets.Reject(r.Context(), middleware.GetUserFromContext(r.Context()), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(ts))
}

// Recalculate is admin-only; it reapplies the current overtime policy.
func (h *TimesheetHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ts, err := h.timesheets.Recalculate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(ts))
}
