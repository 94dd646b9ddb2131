package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleEmployee
}

type Employee struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
	Username           string          `gorm:"uniqueIndex;not null;size:100" json:"username"`
	FirstName          string          `gorm:"not null;size:100" json:"first_name"`
	LastName           string          `gorm:"size:100" json:"last_name"`
	Email              string          `gorm:"size:200" json:"email"`
	PasswordHash       string          `gorm:"not null" json:"-"`
	Role               Role            `gorm:"not null;size:20" json:"role"`
	HourlyRate         decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"hourly_rate"`
	Department         string          `gorm:"size:100" json:"department"`
	ClientID           *uint           `gorm:"index" json:"client_id"`
	Client             *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	IsActive           bool            `gorm:"not null;default:true" json:"is_active"`
	IsExempt           bool            `gorm:"not null;default:false" json:"is_exempt"`
	State              string          `gorm:"size:10" json:"state"`
	MustChangePassword bool            `gorm:"default:true" json:"must_change_password"`
	Timesheets         []Timesheet     `gorm:"foreignKey:EmployeeID" json:"timesheets,omitempty"`
}

func (e *Employee) DisplayName() string {
	name := strings.TrimSpace(e.FirstName + " " + e.LastName)
	if name != "" {
		return name
	}
	return e.Username
}

func (e *Employee) IsAdmin() bool {
	return e.Role == RoleAdmin
}

func (e *Employee) IsManager() bool {
	return e.Role == RoleManager
}

func (e *Employee) IsEmployee() bool {
	return e.Role == RoleEmployee
}

// CanApprove is the role half of the approval check; client scoping for
// managers is enforced by the services package.
func (e *Employee) CanApprove() bool {
	return e.IsAdmin() || e.IsManager()
}

func (e *Employee) CanManageRecordsFor(employeeID uint) bool {
	if e.IsAdmin() {
		return true
	}
	return e.ID == employeeID
}

func (e *Employee) CanViewReports() bool {
	return e.IsAdmin() || e.IsManager()
}

func (e *Employee) CanExport() bool {
	return e.IsAdmin() || e.IsManager()
}

func (e *Employee) CanCreateInvites() bool {
	return e.IsAdmin()
}
