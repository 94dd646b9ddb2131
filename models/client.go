package models

import (
	"time"
)

type Client struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Name      string     `gorm:"uniqueIndex;not null;size:100" json:"name"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	Employees []Employee `gorm:"foreignKey:ClientID" json:"employees,omitempty"`
	Projects  []Project  `gorm:"foreignKey:ClientID" json:"projects,omitempty"`
}

// ClientManager lets a manager approve timesheets and expenses for the
// employees of one client. A manager may hold several assignments.
type ClientManager struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ManagerID uint      `gorm:"not null;uniqueIndex:idx_client_manager" json:"manager_id"`
	Manager   *Employee `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	ClientID  uint      `gorm:"not null;uniqueIndex:idx_client_manager" json:"client_id"`
	Client    *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}
