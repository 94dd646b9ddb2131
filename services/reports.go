package services

import (
	"context"
	"fmt"
	"time"

	"timekeeper/hours"
	"timekeeper/models"
	"timekeeper/report"
	"timekeeper/workflow"

	"gorm.io/gorm"
)

type Reports struct {
	db *gorm.DB
}

func NewReports(db *gorm.DB) *Reports {
	return &Reports{db: db}
}

// Period bounds a report. Zero values leave that side open.
type Period struct {
	From time.Time
	To   time.Time
}

var reportStatuses = []workflow.Status{workflow.StatusSubmitted, workflow.StatusApproved}

// TimesheetsByClient groups timesheet hours by client for weeks ending in p.
func (s *Reports) TimesheetsByClient(ctx context.Context, actor *models.Employee, p Period) ([]report.ClientGroup, error) {
	timesheets, err := s.timesheets(ctx, actor, p)
	if err != nil {
		return nil, err
	}
	dir, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]report.Record, 0, len(timesheets))
	for _, ts := range timesheets {
		records = append(records, report.Record{EmployeeID: ts.EmployeeID, Status: ts.Status, Amount: ts.TotalHours})
	}
	return report.AggregateByClient(records, dir.Directory), nil
}

// ExpensesByClient groups expense amounts by client for expenses dated in p.
func (s *Reports) ExpensesByClient(ctx context.Context, actor *models.Employee, p Period) ([]report.ClientGroup, error) {
	expenses, err := s.expenses(ctx, actor, p)
	if err != nil {
		return nil, err
	}
	dir, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]report.Record, 0, len(expenses))
	for _, e := range expenses {
		records = append(records, report.Record{EmployeeID: e.EmployeeID, Status: e.Status, Amount: e.Amount})
	}
	return report.AggregateByClient(records, dir.Directory), nil
}

// TimesheetLines lists timesheets in p for a detail export.
func (s *Reports) TimesheetLines(ctx context.Context, actor *models.Employee, p Period) ([]report.TimesheetLine, error) {
	timesheets, err := s.timesheets(ctx, actor, p)
	if err != nil {
		return nil, err
	}
	dir, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]report.TimesheetLine, 0, len(timesheets))
	for _, ts := range timesheets {
		name, client := dir.describe(ts.EmployeeID)
		lines = append(lines, report.TimesheetLine{
			Employee:   name,
			Client:     client,
			WeekEnding: ts.WeekEnding,
			Total:      ts.TotalHours,
			Regular:    ts.RegularHours,
			Overtime:   ts.OvertimeHours,
			Status:     string(ts.Status),
		})
	}
	return lines, nil
}

// ExpenseLines lists expenses in p for a detail export.
func (s *Reports) ExpenseLines(ctx context.Context, actor *models.Employee, p Period) ([]report.ExpenseLine, error) {
	expenses, err := s.expenses(ctx, actor, p)
	if err != nil {
		return nil, err
	}
	dir, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]report.ExpenseLine, 0, len(expenses))
	for _, e := range expenses {
		name, client := dir.describe(e.EmployeeID)
		lines = append(lines, report.ExpenseLine{
			Employee: name,
			Client:   client,
			Date:     e.ExpenseDate,
			Category: e.Category,
			Vendor:   e.Vendor,
			Amount:   e.Amount,
			Status:   string(e.Status),
		})
	}
	return lines, nil
}

func (s *Reports) timesheets(ctx context.Context, actor *models.Employee, p Period) ([]models.Timesheet, error) {
	db := s.db.WithContext(ctx)
	query, err := s.scope(db, db.Model(&models.Timesheet{}), actor, "timesheets")
	if err != nil {
		return nil, err
	}
	query = query.Where("timesheets.status IN ?", reportStatuses)
	if !p.From.IsZero() {
		query = query.Where("timesheets.week_ending >= ?", hours.Day(p.From))
	}
	if !p.To.IsZero() {
		query = query.Where("timesheets.week_ending <= ?", hours.Day(p.To))
	}
	var out []models.Timesheet
	err = query.Order("timesheets.week_ending").Order("timesheets.employee_id").Find(&out).Error
	return out, err
}

func (s *Reports) expenses(ctx context.Context, actor *models.Employee, p Period) ([]models.Expense, error) {
	db := s.db.WithContext(ctx)
	query, err := s.scope(db, db.Model(&models.Expense{}), actor, "expenses")
	if err != nil {
		return nil, err
	}
	query = query.Where("expenses.status IN ?", reportStatuses)
	if !p.From.IsZero() {
		query = query.Where("expenses.expense_date >= ?", hours.Day(p.From))
	}
	if !p.To.IsZero() {
		query = query.Where("expenses.expense_date <= ?", hours.Day(p.To))
	}
	var out []models.Expense
	err = query.Order("expenses.expense_date").Order("expenses.id").Find(&out).Error
	return out, err
}

// scope limits managers to the employees of their clients.
func (s *Reports) scope(db, query *gorm.DB, actor *models.Employee, table string) (*gorm.DB, error) {
	if !actor.CanViewReports() {
		return nil, fmt.Errorf("%w: reports are for managers and admins", ErrForbidden)
	}
	if actor.IsAdmin() {
		return query, nil
	}
	clientIDs, err := ManagedClientIDs(db, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(clientIDs) == 0 {
		return query.Where("1 = 0"), nil
	}
	return query.Where(table+".employee_id IN (?)", db.Model(&models.Employee{}).Select("id").Where("client_id IN ?", clientIDs)), nil
}

type directory struct {
	report.Directory
}

func (d directory) describe(employeeID uint) (name, client string) {
	ref, ok := d.Employees[employeeID]
	if !ok {
		return fmt.Sprintf("Employee #%d", employeeID), report.UnassignedName
	}
	client = report.UnassignedName
	if ref.ClientID != nil {
		if n, ok := d.Clients[*ref.ClientID]; ok {
			client = n
		}
	}
	return ref.Name, client
}

func (s *Reports) directory(ctx context.Context) (directory, error) {
	db := s.db.WithContext(ctx)
	var employees []models.Employee
	if err := db.Unscoped().Find(&employees).Error; err != nil {
		return directory{}, err
	}
	var clients []models.Client
	if err := db.Find(&clients).Error; err != nil {
		return directory{}, err
	}

	dir := directory{report.Directory{
		Employees: make(map[uint]report.EmployeeRef, len(employees)),
		Clients:   make(map[uint]string, len(clients)),
	}}
	for _, e := range employees {
		dir.Employees[e.ID] = report.EmployeeRef{Name: e.DisplayName(), ClientID: e.ClientID}
	}
	for _, c := range clients {
		dir.Clients[c.ID] = c.Name
	}
	return dir, nil
}
