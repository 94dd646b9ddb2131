package handlers

import (
	"fmt"
	"net/http"
	"time"

	"timekeeper/hours"
	"timekeeper/logger"
	"timekeeper/middleware"
	"timekeeper/report"
	"timekeeper/services"
)

type ReportHandler struct {
	reports *services.Reports
}

func NewReportHandler(reports *services.Reports) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type ReportResponse struct {
	From   string               `json:"from,omitempty"`
	To     string               `json:"to,omitempty"`
	Groups []report.ClientGroup `json:"groups"`
}

func period(r *http.Request) (services.Period, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return services.Period{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return services.Period{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return services.Period{}, badRequest("to is before from")
	}
	return services.Period{From: from, To: to}, nil
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(hours.DateLayout)
}

func (h *ReportHandler) Timesheets(w http.ResponseWriter, r *http.Request) {
	p, err := period(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	groups, err := h.reports.TimesheetsByClient(r.Context(), middleware.GetUserFromContext(r.Context()), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{From: dateOrEmpty(p.From), To: dateOrEmpty(p.To), Groups: groups})
}

func (h *ReportHandler) Expenses(w http.ResponseWriter, r *http.Request) {
	p, err := period(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	groups, err := h.reports.ExpensesByClient(r.Context(), middleware.GetUserFromContext(r.Context()), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{From: dateOrEmpty(p.From), To: dateOrEmpty(p.To), Groups: groups})
}

// ExportTimesheets streams one row per timesheet, or per client with
// view=summary, as CSV or XLSX.
func (h *ReportHandler) ExportTimesheets(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "timesheets", func(p services.Period, summary bool) (report.Sheet, error) {
		user := middleware.GetUserFromContext(r.Context())
		if summary {
			groups, err := h.reports.TimesheetsByClient(r.Context(), user, p)
			return report.SummarySheet("Timesheets by client", groups), err
		}
		lines, err := h.reports.TimesheetLines(r.Context(), user, p)
		return report.TimesheetSheet(lines), err
	})
}

func (h *ReportHandler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "expenses", func(p services.Period, summary bool) (report.Sheet, error) {
		user := middleware.GetUserFromContext(r.Context())
		if summary {
			groups, err := h.reports.ExpensesByClient(r.Context(), user, p)
			return report.SummarySheet("Expenses by client", groups), err
		}
		lines, err := h.reports.ExpenseLines(r.Context(), user, p)
		return report.ExpenseSheet(lines), err
	})
}

func (h *ReportHandler) export(w http.ResponseWriter, r *http.Request, name string, build func(services.Period, bool) (report.Sheet, error)) {
	if !middleware.GetUserFromContext(r.Context()).CanExport() {
		writeError(w, r, services.ErrForbidden)
		return
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}
	p, err := period(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary := r.URL.Query().Get("view") == "summary"

	sheet, err := build(p, summary)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := exportFilename(name, p, summary, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := report.Write(w, format, sheet); err != nil {
		// headers are gone; all that is left is to log
		logger.FromContext(r.Context()).Error().Err(err).Str("file", filename).Msg("export failed")
	}
}

func exportFilename(name string, p services.Period, summary bool, f report.Format) string {
	if summary {
		name += "_summary"
	}
	if from := dateOrEmpty(p.From); from != "" {
		name += "_" + from
	}
	if to := dateOrEmpty(p.To); to != "" {
		name += "_to_" + to
	}
	return name + "." + string(f)
}
