package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records security-relevant actions: debt mutations, notification
// dispatch outcomes, account deletions.
type AuditLog struct {
	ID      string  `gorm:"primaryKey;type:uuid" json:"id"`
	ActorID *string `gorm:"type:uuid;index" json:"actor_id,omitempty"`

	Action     string `gorm:"not null;index" json:"action"`
	Resource   string `gorm:"index" json:"resource"`
	ResourceID string `gorm:"index" json:"resource_id"`

	Metadata datatypes.JSON `json:"metadata,omitempty"`

	IPAddress string `json:"ip_address"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
