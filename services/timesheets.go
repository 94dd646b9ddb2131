package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"timekeeper/database"
	"timekeeper/hours"
	"timekeeper/metrics"
	"timekeeper/models"
	"timekeeper/workflow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const kindTimesheet = "timesheet"

// TimesheetRow is one project line of the weekly grid. Hours and Notes are
// keyed by date (2006-01-02).
type TimesheetRow struct {
	ProjectID uint
	Hours     map[string]string
	Notes     map[string]string
}

type SaveTimesheetInput struct {
	EmployeeID uint
	WeekEnding time.Time
	Rows       []TimesheetRow
	Submit     bool
	Attested   bool
}

// Computation is everything derived from a week's rows.
type Computation struct {
	WeekEnding time.Time
	Weeks      []hours.Week
	Totals     hours.Totals
	Policy     hours.Policy
	Split      hours.Split
}

type Timesheets struct {
	db       *gorm.DB
	registry *hours.Registry
	now      Clock
}

func NewTimesheets(db *gorm.DB, registry *hours.Registry) *Timesheets {
	if registry == nil {
		registry = hours.DefaultRegistry()
	}
	return &Timesheets{db: db, registry: registry, now: systemClock}
}

// Compute runs the rows through normalization, totals and the overtime
// policy of owner without touching the database.
func (s *Timesheets) Compute(owner *models.Employee, weekEnding time.Time, rows []TimesheetRow) (*Computation, error) {
	end := hours.Day(weekEnding)
	weeks := make([]hours.Week, 0, len(rows))
	for _, row := range rows {
		entries, err := hours.ParseDayHours(row.Hours)
		if err != nil {
			return nil, validationf("%v", err)
		}
		w, err := hours.NormalizeWeek(entries, end)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, w)
	}

	totals := hours.ComputeTotals(weeks)
	if err := totals.Validate(end); err != nil {
		return nil, err
	}
	policy := s.registry.PolicyFor(owner.IsExempt, owner.State)
	split, err := hours.ResolveOvertime(totals, policy)
	if err != nil {
		return nil, err
	}
	return &Computation{WeekEnding: end, Weeks: weeks, Totals: totals, Policy: policy, Split: split}, nil
}

// Preview computes totals for an unsaved week.
func (s *Timesheets) Preview(ctx context.Context, actor *models.Employee, employeeID uint, weekEnding time.Time, rows []TimesheetRow) (*Computation, error) {
	if employeeID == 0 {
		employeeID = actor.ID
	}
	if !actor.CanManageRecordsFor(employeeID) {
		return nil, ErrForbidden
	}
	var owner models.Employee
	if err := s.db.WithContext(ctx).First(&owner, employeeID).Error; err != nil {
		return nil, notFound(err, "employee")
	}
	return s.Compute(&owner, weekEnding, rows)
}

// Save creates or replaces the employee's timesheet for the week, as a draft
// or submitted. Only draft and rejected timesheets can be saved over;
// resubmitting a rejected week moves it back to submitted.
func (s *Timesheets) Save(ctx context.Context, actor *models.Employee, in SaveTimesheetInput) (*models.Timesheet, error) {
	if in.EmployeeID == 0 {
		in.EmployeeID = actor.ID
	}
	if !actor.CanManageRecordsFor(in.EmployeeID) {
		return nil, ErrForbidden
	}

	action := workflow.ActionSaveDraft
	if in.Submit {
		action = workflow.ActionSubmit
		if !in.Attested {
			return nil, workflow.ErrAttestationRequired
		}
	}

	var saved models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.Employee
		if err := tx.First(&owner, in.EmployeeID).Error; err != nil {
			return notFound(err, "employee")
		}
		if !owner.IsActive {
			return validationf("employee %d is inactive", owner.ID)
		}
		if err := checkProjects(tx, in.Rows); err != nil {
			return err
		}

		comp, err := s.Compute(&owner, in.WeekEnding, in.Rows)
		if err != nil {
			return err
		}

		var existing models.Timesheet
		err = tx.Where("employee_id = ? AND week_ending = ?", owner.ID, comp.WeekEnding).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return s.create(tx, &owner, comp, in, action, &saved)
		case err != nil:
			return err
		default:
			return s.replace(tx, &existing, comp, in, action, &saved)
		}
	})
	if err != nil {
		return nil, err
	}
	metrics.WorkflowTransitions.WithLabelValues(kindTimesheet, string(action)).Inc()
	return &saved, nil
}

func (s *Timesheets) create(tx *gorm.DB, owner *models.Employee, comp *Computation, in SaveTimesheetInput, action workflow.Action, out *models.Timesheet) error {
	status, err := workflow.Next(workflow.StatusDraft, action)
	if err != nil {
		return err
	}
	ts := models.Timesheet{
		EmployeeID:    owner.ID,
		WeekEnding:    comp.WeekEnding,
		TotalHours:    comp.Totals.Week,
		RegularHours:  comp.Split.Regular,
		OvertimeHours: comp.Split.Overtime,
		Status:        status,
		Attested:      in.Attested,
		Entries:       buildEntries(comp, in.Rows),
	}
	if status == workflow.StatusSubmitted {
		now := s.now()
		ts.SubmittedAt = &now
	}
	if err := tx.Create(&ts).Error; err != nil {
		return err
	}
	*out = ts
	return nil
}

func (s *Timesheets) replace(tx *gorm.DB, existing *models.Timesheet, comp *Computation, in SaveTimesheetInput, action workflow.Action, out *models.Timesheet) error {
	if err := workflow.CanEdit(existing.Status); err != nil {
		return workflow.Lock(err, kindTimesheet, existing.ID)
	}
	status, err := workflow.Next(existing.Status, action)
	if err != nil {
		return workflow.Lock(err, kindTimesheet, existing.ID)
	}

	updates := map[string]interface{}{
		"status":         status,
		"total_hours":    comp.Totals.Week,
		"regular_hours":  comp.Split.Regular,
		"overtime_hours": comp.Split.Overtime,
		"attested":       in.Attested,
	}
	if status == workflow.StatusSubmitted {
		updates["submitted_at"] = s.now()
	}
	if existing.Status == workflow.StatusRejected {
		updates["comments"] = ""
		updates["rejected_at"] = nil
	}
	if err := database.UpdateStatus(tx, &models.Timesheet{}, existing.ID, existing.Status, updates); err != nil {
		if errors.Is(err, workflow.ErrStateConflict) {
			metrics.WorkflowConflicts.WithLabelValues(kindTimesheet).Inc()
		}
		return err
	}

	if err := tx.Where("timesheet_id = ?", existing.ID).Delete(&models.TimeEntry{}).Error; err != nil {
		return err
	}
	entries := buildEntries(comp, in.Rows)
	for i := range entries {
		entries[i].TimesheetID = existing.ID
	}
	if len(entries) > 0 {
		if err := tx.Create(&entries).Error; err != nil {
			return err
		}
	}
	return tx.Preload("Entries").First(out, existing.ID).Error
}

// Approve moves a submitted timesheet to approved.
func (s *Timesheets) Approve(ctx context.Context, approver *models.Employee, id uint) (*models.Timesheet, error) {
	return s.decide(ctx, approver, id, workflow.ActionApprove, "")
}

// Reject sends a submitted timesheet back to its owner with a reason.
func (s *Timesheets) Reject(ctx context.Context, approver *models.Employee, id uint, reason string) (*models.Timesheet, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, workflow.ErrReasonRequired
	}
	return s.decide(ctx, approver, id, workflow.ActionReject, reason)
}

func (s *Timesheets) decide(ctx context.Context, approver *models.Employee, id uint, action workflow.Action, reason string) (*models.Timesheet, error) {
	var ts models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Employee").First(&ts, id).Error; err != nil {
			return notFound(err, kindTimesheet)
		}
		if !ts.Status.VisibleToApprovers() {
			return fmt.Errorf("%s %d: %w", kindTimesheet, id, ErrNotFound)
		}
		if err := CheckApprover(tx, approver, ts.Employee); err != nil {
			return err
		}
		next, err := workflow.Next(ts.Status, action)
		if err != nil {
			return workflow.Lock(err, kindTimesheet, ts.ID)
		}

		now := s.now()
		updates := map[string]interface{}{"status": next}
		note := models.Notification{EmployeeID: ts.EmployeeID}
		weekLabel := ts.WeekEnding.Format(hours.DateLayout)
		if next == workflow.StatusApproved {
			updates["approved_at"] = now
			updates["approved_by"] = approver.ID
			note.Kind = models.NotificationRecordApproved
			note.Subject = "Timesheet approved"
			note.Body = fmt.Sprintf("Your timesheet for the week ending %s was approved by %s.", weekLabel, approver.DisplayName())
		} else {
			updates["rejected_at"] = now
			updates["comments"] = reason
			note.Kind = models.NotificationRecordRejected
			note.Subject = "Timesheet rejected"
			note.Body = fmt.Sprintf("Your timesheet for the week ending %s was rejected: %s", weekLabel, reason)
		}
		note.DedupKey = fmt.Sprintf("%s:%s:%d:%d", note.Kind, kindTimesheet, ts.ID, now.UnixNano())

		if err := database.UpdateStatus(tx, &models.Timesheet{}, ts.ID, ts.Status, updates); err != nil {
			if errors.Is(err, workflow.ErrStateConflict) {
				metrics.WorkflowConflicts.WithLabelValues(kindTimesheet).Inc()
			}
			return err
		}
		if _, err := createNotification(tx, note, s.now); err != nil {
			return err
		}
		return tx.Preload("Entries").First(&ts, id).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues(kindTimesheet, string(action)).Inc()
	if action == workflow.ActionApprove {
		var owner models.Employee
		if s.db.WithContext(ctx).First(&owner, ts.EmployeeID).Error == nil {
			rule := s.registry.PolicyFor(owner.IsExempt, owner.State).Rule
			metrics.OvertimeHours.WithLabelValues(string(rule)).Add(ts.OvertimeHours.InexactFloat64())
		}
	}
	return &ts, nil
}

// Recalculate recomputes the derived totals of a timesheet from its stored
// entries, for example after the employee's jurisdiction changed.
// Approved timesheets are left alone.
func (s *Timesheets) Recalculate(ctx context.Context, id uint) (*models.Timesheet, error) {
	var ts models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Employee").Preload("Entries").First(&ts, id).Error; err != nil {
			return notFound(err, kindTimesheet)
		}
		if ts.Status == workflow.StatusApproved {
			return &workflow.RecordLockedError{Kind: kindTimesheet, ID: ts.ID}
		}

		comp, err := s.Compute(ts.Employee, ts.WeekEnding, RowsFromEntries(ts.Entries))
		if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"status":         ts.Status,
			"total_hours":    comp.Totals.Week,
			"regular_hours":  comp.Split.Regular,
			"overtime_hours": comp.Split.Overtime,
		}
		if err := database.UpdateStatus(tx, &models.Timesheet{}, ts.ID, ts.Status, updates); err != nil {
			return err
		}
		return tx.Preload("Entries").First(&ts, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// Get loads a timesheet with its entries if actor may see it.
func (s *Timesheets) Get(ctx context.Context, actor *models.Employee, id uint) (*models.Timesheet, error) {
	db := s.db.WithContext(ctx)
	var ts models.Timesheet
	if err := db.Preload("Employee").Preload("Entries", func(q *gorm.DB) *gorm.DB {
		return q.Order("date").Order("project_id")
	}).Preload("Entries.Project").First(&ts, id).Error; err != nil {
		return nil, notFound(err, kindTimesheet)
	}
	ok, err := canView(db, actor, ts.Employee, ts.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", kindTimesheet, id, ErrNotFound)
	}
	return &ts, nil
}

// List returns timesheets newest week first. Employees see their own;
// approvers see non-draft timesheets in their scope.
func (s *Timesheets) List(ctx context.Context, actor *models.Employee, f models.TimesheetFilter) ([]models.Timesheet, error) {
	db := s.db.WithContext(ctx)
	query, err := scopeOwners(db, db.Model(&models.Timesheet{}).Preload("Employee"), actor, "timesheets", f.EmployeeID)
	if err != nil {
		return nil, err
	}
	if f.Status != "" {
		query = query.Where("timesheets.status = ?", f.Status)
	}
	if f.ClientID != 0 {
		query = query.Where("timesheets.employee_id IN (?)", db.Model(&models.Employee{}).Select("id").Where("client_id = ?", f.ClientID))
	}
	if !f.From.IsZero() {
		query = query.Where("timesheets.week_ending >= ?", hours.Day(f.From))
	}
	if !f.To.IsZero() {
		query = query.Where("timesheets.week_ending <= ?", hours.Day(f.To))
	}

	var out []models.Timesheet
	err = query.Order("timesheets.week_ending desc").Order("timesheets.id").Find(&out).Error
	return out, err
}

// Delete removes a draft or rejected timesheet.
func (s *Timesheets) Delete(ctx context.Context, actor *models.Employee, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ts models.Timesheet
		if err := tx.First(&ts, id).Error; err != nil {
			return notFound(err, kindTimesheet)
		}
		if !actor.CanManageRecordsFor(ts.EmployeeID) {
			return ErrForbidden
		}
		if err := workflow.CanEdit(ts.Status); err != nil {
			return workflow.Lock(err, kindTimesheet, ts.ID)
		}
		if err := tx.Where("timesheet_id = ?", ts.ID).Delete(&models.TimeEntry{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND status = ?", ts.ID, ts.Status).Delete(&models.Timesheet{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return workflow.ErrStateConflict
		}
		return nil
	})
}

// RowsFromEntries regroups stored entries into per-project grid rows.
func RowsFromEntries(entries []models.TimeEntry) []TimesheetRow {
	byProject := make(map[uint]*TimesheetRow)
	var order []uint
	for _, e := range entries {
		row, ok := byProject[e.ProjectID]
		if !ok {
			row = &TimesheetRow{ProjectID: e.ProjectID, Hours: map[string]string{}, Notes: map[string]string{}}
			byProject[e.ProjectID] = row
			order = append(order, e.ProjectID)
		}
		key := e.Date.Format(hours.DateLayout)
		sum := e.Hours
		if prev, ok := row.Hours[key]; ok {
			sum = sum.Add(decimal.RequireFromString(prev))
		}
		row.Hours[key] = sum.String()
		if e.Description != "" {
			row.Notes[key] = e.Description
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	rows := make([]TimesheetRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, *byProject[id])
	}
	return rows
}

func buildEntries(comp *Computation, rows []TimesheetRow) []models.TimeEntry {
	dates := hours.Dates(comp.WeekEnding)
	var entries []models.TimeEntry
	for i, w := range comp.Weeks {
		for d, h := range w {
			if h.IsZero() {
				continue
			}
			entries = append(entries, models.TimeEntry{
				ProjectID:   rows[i].ProjectID,
				Date:        dates[d],
				Hours:       h,
				Description: rows[i].Notes[dates[d].Format(hours.DateLayout)],
			})
		}
	}
	return entries
}

func checkProjects(tx *gorm.DB, rows []TimesheetRow) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(rows))
	seen := make(map[uint]bool, len(rows))
	for _, r := range rows {
		if r.ProjectID == 0 {
			return validationf("every row needs a project")
		}
		if !seen[r.ProjectID] {
			seen[r.ProjectID] = true
			ids = append(ids, r.ProjectID)
		}
	}
	var count int64
	if err := tx.Model(&models.Project{}).Where("id IN ? AND is_active = ?", ids, true).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(ids) {
		return validationf("unknown or inactive project")
	}
	return nil
}
