package services

import (
	"context"
	"errors"
	"fmt"
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

const kindExpense = "expense"

var ExpenseCategories = []string{"travel", "meals", "lodging", "mileage", "supplies", "software", "other"}

type SaveExpenseInput struct {
	ID          uint
	EmployeeID  uint
	ExpenseDate time.Time
	Amount      decimal.Decimal
	Category    string
	Vendor      string
	Description string
	ProjectID   *uint
	ReceiptURL  string
	Submit      bool
}

type Expenses struct {
	db  *gorm.DB
	now Clock
}

func NewExpenses(db *gorm.DB) *Expenses {
	return &Expenses{db: db, now: systemClock}
}

func (in SaveExpenseInput) validate() error {
	if in.ExpenseDate.IsZero() {
		return validationf("expense date is required")
	}
	if in.Amount.IsNegative() {
		return validationf("amount must not be negative")
	}
	for _, c := range ExpenseCategories {
		if c == in.Category {
			return nil
		}
	}
	return validationf("unknown category %q", in.Category)
}

// Save creates a new expense (ID 0) or updates a draft or rejected one.
func (s *Expenses) Save(ctx context.Context, actor *models.Employee, in SaveExpenseInput) (*models.Expense, error) {
	if in.EmployeeID == 0 {
		in.EmployeeID = actor.ID
	}
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if err := in.validate(); err != nil {
		return nil, err
	}
	action := workflow.ActionSaveDraft
	if in.Submit {
		action = workflow.ActionSubmit
	}

	var saved models.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ID == 0 {
			if !actor.CanManageRecordsFor(in.EmployeeID) {
				return ErrForbidden
			}
			var owner models.Employee
			if err := tx.First(&owner, in.EmployeeID).Error; err != nil {
				return notFound(err, "employee")
			}
			if err := checkExpenseProject(tx, in.ProjectID); err != nil {
				return err
			}
			status, err := workflow.Next(workflow.StatusDraft, action)
			if err != nil {
				return err
			}
			saved = models.Expense{
				EmployeeID:  owner.ID,
				ExpenseDate: hours.Day(in.ExpenseDate),
				Amount:      in.Amount,
				Category:    in.Category,
				Vendor:      in.Vendor,
				Description: in.Description,
				ProjectID:   in.ProjectID,
				ReceiptURL:  in.ReceiptURL,
				Status:      status,
			}
			if status == workflow.StatusSubmitted {
				now := s.now()
				saved.SubmittedAt = &now
			}
			return tx.Create(&saved).Error
		}

		var existing models.Expense
		if err := tx.First(&existing, in.ID).Error; err != nil {
			return notFound(err, kindExpense)
		}
		if !actor.CanManageRecordsFor(existing.EmployeeID) {
			return ErrForbidden
		}
		if err := workflow.CanEdit(existing.Status); err != nil {
			return workflow.Lock(err, kindExpense, existing.ID)
		}
		status, err := workflow.Next(existing.Status, action)
		if err != nil {
			return workflow.Lock(err, kindExpense, existing.ID)
		}
		if err := checkExpenseProject(tx, in.ProjectID); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":       status,
			"expense_date": hours.Day(in.ExpenseDate),
			"amount":       in.Amount,
			"category":     in.Category,
			"vendor":       in.Vendor,
			"description":  in.Description,
			"project_id":   in.ProjectID,
			"receipt_url":  in.ReceiptURL,
		}
		if status == workflow.StatusSubmitted {
			updates["submitted_at"] = s.now()
		}
		if existing.Status == workflow.StatusRejected {
			updates["comments"] = ""
			updates["rejected_at"] = nil
		}
		if err := database.UpdateStatus(tx, &models.Expense{}, existing.ID, existing.Status, updates); err != nil {
			return err
		}
		return tx.First(&saved, existing.ID).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.WorkflowTransitions.WithLabelValues(kindExpense, string(action)).Inc()
	return &saved, nil
}

func (s *Expenses) Approve(ctx context.Context, approver *models.Employee, id uint) (*models.Expense, error) {
	return s.decide(ctx, approver, id, workflow.ActionApprove, "")
}

func (s *Expenses) Reject(ctx context.Context, approver *models.Employee, id uint, reason string) (*models.Expense, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, workflow.ErrReasonRequired
	}
	return s.decide(ctx, approver, id, workflow.ActionReject, reason)
}

func (s *Expenses) decide(ctx context.Context, approver *models.Employee, id uint, action workflow.Action, reason string) (*models.Expense, error) {
	var exp models.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Employee").First(&exp, id).Error; err != nil {
			return notFound(err, kindExpense)
		}
		if !exp.Status.VisibleToApprovers() {
			return fmt.Errorf("%s %d: %w", kindExpense, id, ErrNotFound)
		}
		if err := CheckApprover(tx, approver, exp.Employee); err != nil {
			return err
		}
		next, err := workflow.Next(exp.Status, action)
		if err != nil {
			return workflow.Lock(err, kindExpense, exp.ID)
		}

		now := s.now()
		updates := map[string]interface{}{"status": next}
		note := models.Notification{EmployeeID: exp.EmployeeID}
		label := fmt.Sprintf("%s expense of %s on %s", exp.Category, exp.Amount.StringFixed(2), exp.ExpenseDate.Format(hours.DateLayout))
		if next == workflow.StatusApproved {
			updates["approved_at"] = now
			updates["approved_by"] = approver.ID
			note.Kind = models.NotificationRecordApproved
			note.Subject = "Expense approved"
			note.Body = fmt.Sprintf("Your %s was approved by %s.", label, approver.DisplayName())
		} else {
			updates["rejected_at"] = now
			updates["comments"] = reason
			note.Kind = models.NotificationRecordRejected
			note.Subject = "Expense rejected"
			note.Body = fmt.Sprintf("Your %s was rejected: %s", label, reason)
		}
		note.DedupKey = fmt.Sprintf("%s:%s:%d:%d", note.Kind, kindExpense, exp.ID, now.UnixNano())

		if err := database.UpdateStatus(tx, &models.Expense{}, exp.ID, exp.Status, updates); err != nil {
			if errors.Is(err, workflow.ErrStateConflict) {
				metrics.WorkflowConflicts.WithLabelValues(kindExpense).Inc()
			}
			return err
		}
		if _, err := createNotification(tx, note, s.now); err != nil {
			return err
		}
		return tx.First(&exp, id).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.WorkflowTransitions.WithLabelValues(kindExpense, string(action)).Inc()
	return &exp, nil
}

func (s *Expenses) Get(ctx context.Context, actor *models.Employee, id uint) (*models.Expense, error) {
	db := s.db.WithContext(ctx)
	var exp models.Expense
	if err := db.Preload("Employee").Preload("Project").First(&exp, id).Error; err != nil {
		return nil, notFound(err, kindExpense)
	}
	ok, err := canView(db, actor, exp.Employee, exp.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", kindExpense, id, ErrNotFound)
	}
	return &exp, nil
}

func (s *Expenses) List(ctx context.Context, actor *models.Employee, f models.ExpenseFilter) ([]models.Expense, error) {
	db := s.db.WithContext(ctx)
	query, err := scopeOwners(db, db.Model(&models.Expense{}).Preload("Employee"), actor, "expenses", f.EmployeeID)
	if err != nil {
		return nil, err
	}
	if f.Status != "" {
		query = query.Where("expenses.status = ?", f.Status)
	}
	if f.ClientID != 0 {
		query = query.Where("expenses.employee_id IN (?)", db.Model(&models.Employee{}).Select("id").Where("client_id = ?", f.ClientID))
	}
	if !f.From.IsZero() {
		query = query.Where("expenses.expense_date >= ?", hours.Day(f.From))
	}
	if !f.To.IsZero() {
		query = query.Where("expenses.expense_date <= ?", hours.Day(f.To))
	}

	var out []models.Expense
	err = query.Order("expenses.expense_date desc").Order("expenses.id").Find(&out).Error
	return out, err
}

func (s *Expenses) Delete(ctx context.Context, actor *models.Employee, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exp models.Expense
		if err := tx.First(&exp, id).Error; err != nil {
			return notFound(err, kindExpense)
		}
		if !actor.CanManageRecordsFor(exp.EmployeeID) {
			return ErrForbidden
		}
		if err := workflow.CanEdit(exp.Status); err != nil {
			return workflow.Lock(err, kindExpense, exp.ID)
		}
		res := tx.Where("id = ? AND status = ?", exp.ID, exp.Status).Delete(&models.Expense{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return workflow.ErrStateConflict
		}
		return nil
	})
}

func checkExpenseProject(tx *gorm.DB, projectID *uint) error {
	if projectID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Project{}).Where("id = ? AND is_active = ?", *projectID, true).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return validationf("unknown or inactive project %d", *projectID)
	}
	return nil
}
