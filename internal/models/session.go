package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session stores a refresh-token session for an authenticated user.
type Session struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string `gorm:"type:uuid;not null;index" json:"user_id"`
	RefreshToken string `gorm:"uniqueIndex;not null" json:"-"`

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`

	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	LastUsedAt time.Time  `json:"last_used_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the session can still be used at the given time.
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// BeforeCreate ensures a UUID is present before persisting.
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
