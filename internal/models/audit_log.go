package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records one verification event. Only masked addresses are stored.
type AuditLog struct {
	ID          string            `gorm:"primaryKey;type:uuid" json:"id"`
	Action      string            `gorm:"not null;index" json:"action"`
	Result      string            `gorm:"not null;index" json:"result"`
	MaskedEmail string            `gorm:"index" json:"masked_email"`
	IPAddress   string            `json:"ip_address"`
	UserAgent   string            `json:"user_agent"`
	RequestID   string            `gorm:"index" json:"request_id"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
