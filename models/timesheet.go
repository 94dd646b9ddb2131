package models

import (
	"time"

	"timekeeper/workflow"

	"github.com/shopspring/decimal"
)

// Timesheet is one employee's week. TotalHours always equals the sum of its
// entries; RegularHours and OvertimeHours are derived from it and never
// entered directly.
type Timesheet struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	EmployeeID    uint            `gorm:"not null;uniqueIndex:idx_timesheet_employee_week" json:"employee_id"`
	Employee      *Employee       `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	WeekEnding    time.Time       `gorm:"not null;uniqueIndex:idx_timesheet_employee_week" json:"week_ending"`
	TotalHours    decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"total_hours"`
	RegularHours  decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"regular_hours"`
	OvertimeHours decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"overtime_hours"`
	Status        workflow.Status `gorm:"not null;size:20;index" json:"status"`
	Attested      bool            `gorm:"not null;default:false" json:"attested"`
	SubmittedAt   *time.Time      `json:"submitted_at"`
	ApprovedAt    *time.Time      `json:"approved_at"`
	ApprovedBy    *uint           `json:"approved_by"`
	Approver      *Employee       `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	RejectedAt    *time.Time      `json:"rejected_at"`
	Comments      string          `gorm:"size:1000" json:"comments"`
	Entries       []TimeEntry     `gorm:"foreignKey:TimesheetID;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
}

type TimeEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	TimesheetID uint            `gorm:"not null;index" json:"timesheet_id"`
	ProjectID   uint            `gorm:"not null;index" json:"project_id"`
	Project     *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Date        time.Time       `gorm:"not null" json:"date"`
	Hours       decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"hours"`
	Description string          `gorm:"size:500" json:"description"`
}

type TimesheetFilter struct {
	EmployeeID uint
	ClientID   uint
	Status     workflow.Status
	From       time.Time
	To         time.Time
}
