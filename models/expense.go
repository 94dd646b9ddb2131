package models

import (
	"time"

	"timekeeper/workflow"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	EmployeeID  uint            `gorm:"not null;index" json:"employee_id"`
	Employee    *Employee       `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	ExpenseDate time.Time       `gorm:"not null;index" json:"expense_date"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Category    string          `gorm:"not null;size:50" json:"category"`
	Vendor      string          `gorm:"size:200" json:"vendor"`
	Description string          `gorm:"size:500" json:"description"`
	ProjectID   *uint           `gorm:"index" json:"project_id"`
	Project     *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	ReceiptURL  string          `gorm:"size:500" json:"receipt_url"`
	Status      workflow.Status `gorm:"not null;size:20;index" json:"status"`
	SubmittedAt *time.Time      `json:"submitted_at"`
	ApprovedAt  *time.Time      `json:"approved_at"`
	ApprovedBy  *uint           `json:"approved_by"`
	Approver    *Employee       `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	RejectedAt  *time.Time      `json:"rejected_at"`
	Comments    string          `gorm:"size:1000" json:"comments"`
}

type ExpenseFilter struct {
	EmployeeID uint
	ClientID   uint
	Status     workflow.Status
	From       time.Time
	To         time.Time
}
