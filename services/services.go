// Package services holds the persistence-backed use cases behind the HTTP
// handlers: saving and approving timesheets and expenses, building
// reports, and storing notifications.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timekeeper/models"
	"timekeeper/workflow"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// Clock lets tests pin the time used for status stamps.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// approvableStatuses are what approvers and reports ever see.
var approvableStatuses = []workflow.Status{workflow.StatusSubmitted, workflow.StatusApproved, workflow.StatusRejected}

// CheckApprover decides whether approver may approve or reject records
// owned by owner. Admins may approve anyone but themselves; managers only
// employees of the clients assigned to them.
func CheckApprover(tx *gorm.DB, approver, owner *models.Employee) error {
	if approver == nil || !approver.CanApprove() {
		return fmt.Errorf("%w: only managers and admins approve", ErrForbidden)
	}
	if approver.ID == owner.ID {
		return fmt.Errorf("%w: cannot approve your own records", ErrForbidden)
	}
	if approver.IsAdmin() {
		return nil
	}
	if owner.ClientID == nil {
		return fmt.Errorf("%w: employee has no client; an admin must approve", ErrForbidden)
	}
	var count int64
	if err := tx.Model(&models.ClientManager{}).
		Where("manager_id = ? AND client_id = ?", approver.ID, *owner.ClientID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: client is not assigned to you", ErrForbidden)
	}
	return nil
}

// ManagedClientIDs lists the clients a manager is assigned to.
func ManagedClientIDs(tx *gorm.DB, managerID uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(&models.ClientManager{}).Where("manager_id = ?", managerID).Order("client_id").Pluck("client_id", &ids).Error
	return ids, err
}

// ApproversFor returns everyone who may approve owner's records: all active
// admins plus the managers of owner's client, minus owner.
func ApproversFor(ctx context.Context, tx *gorm.DB, owner *models.Employee) ([]models.Employee, error) {
	db := tx.WithContext(ctx)
	var approvers []models.Employee
	if err := db.Where("role = ? AND is_active = ? AND id <> ?", models.RoleAdmin, true, owner.ID).
		Order("id").Find(&approvers).Error; err != nil {
		return nil, err
	}
	if owner.ClientID == nil {
		return approvers, nil
	}

	var managers []models.Employee
	if err := db.Where("role = ? AND is_active = ? AND id <> ?", models.RoleManager, true, owner.ID).
		Where("id IN (?)", db.Model(&models.ClientManager{}).Select("manager_id").Where("client_id = ?", *owner.ClientID)).
		Order("id").Find(&managers).Error; err != nil {
		return nil, err
	}
	return append(approvers, managers...), nil
}

// canView reports whether actor may read a record owned by owner in status s.
func canView(tx *gorm.DB, actor, owner *models.Employee, s workflow.Status) (bool, error) {
	if actor.ID == owner.ID {
		return true, nil
	}
	if !s.VisibleToApprovers() {
		return false, nil
	}
	if actor.IsAdmin() {
		return true, nil
	}
	if !actor.IsManager() || owner.ClientID == nil {
		return false, nil
	}
	ids, err := ManagedClientIDs(tx, actor.ID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == *owner.ClientID {
			return true, nil
		}
	}
	return false, nil
}

// scopeOwners narrows a query on a table with an employee_id column to the
// records actor may list.
func scopeOwners(tx *gorm.DB, query *gorm.DB, actor *models.Employee, table string, employeeID uint) (*gorm.DB, error) {
	col := table + ".employee_id"
	statusCol := table + ".status"

	if employeeID == actor.ID || (!actor.CanApprove() && employeeID == 0) {
		return query.Where(col+" = ?", actor.ID), nil
	}
	if !actor.CanApprove() {
		return nil, fmt.Errorf("%w: cannot list another employee's records", ErrForbidden)
	}

	query = query.Where(statusCol+" IN ?", approvableStatuses)
	if employeeID != 0 {
		query = query.Where(col+" = ?", employeeID)
	}
	if actor.IsAdmin() {
		return query, nil
	}

	clientIDs, err := ManagedClientIDs(tx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(clientIDs) == 0 {
		return query.Where("1 = 0"), nil
	}
	return query.Where(col+" IN (?)", tx.Model(&models.Employee{}).Select("id").Where("client_id IN ?", clientIDs)), nil
}
