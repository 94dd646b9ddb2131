package models

import (
	"time"
)

type NotificationKind string

const (
	NotificationPendingApproval  NotificationKind = "pending_approval"
	NotificationMissingTimesheet NotificationKind = "missing_timesheet"
	NotificationRecordApproved   NotificationKind = "record_approved"
	NotificationRecordRejected   NotificationKind = "record_rejected"
)

// Notification is an in-app message. DedupKey keeps the scheduler from
// raising the same reminder twice.
type Notification struct {
	ID         string           `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	EmployeeID uint             `gorm:"not null;index" json:"employee_id"`
	Kind       NotificationKind `gorm:"not null;size:40" json:"kind"`
	Subject    string           `gorm:"not null;size:200" json:"subject"`
	Body       string           `gorm:"size:1000" json:"body"`
	DedupKey   string           `gorm:"uniqueIndex;not null;size:200" json:"-"`
	ReadAt     *time.Time       `json:"read_at"`
}
