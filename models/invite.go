package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

type Invite struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Code      string         `gorm:"uniqueIndex;not null;size:64" json:"code"`
	FirstName string         `gorm:"not null;size:100" json:"first_name"`
	LastName  string         `gorm:"size:100" json:"last_name"`
	Role      Role           `gorm:"not null;size:20" json:"role"`
	Used      bool           `gorm:"default:false" json:"used"`
	CreatedBy uint           `gorm:"not null" json:"created_by"`
	Creator   Employee       `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	ExpiresAt time.Time      `gorm:"not null" json:"expires_at"`
	ClientID  *uint          `gorm:"index" json:"client_id"`
	Client    *Client        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	IsExempt  bool           `gorm:"default:false" json:"is_exempt"`
	State     string         `gorm:"size:10" json:"state"`
}

func GenerateInviteCode() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (i *Invite) IsValid(now time.Time) bool {
	return !i.Used && now.Before(i.ExpiresAt)
}
