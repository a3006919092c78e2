package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DebtStatus tracks a debt through its notification lifecycle. The order is
// pending → notified → viewed → registered → resolved, but admins may set any
// value directly.
type DebtStatus string

const (
	DebtPending    DebtStatus = "pending"
	DebtNotified   DebtStatus = "notified"
	DebtViewed     DebtStatus = "viewed"
	DebtRegistered DebtStatus = "registered"
	DebtResolved   DebtStatus = "resolved"
)

// Valid reports whether the status is one of the known lifecycle values.
func (s DebtStatus) Valid() bool {
	switch s {
	case DebtPending, DebtNotified, DebtViewed, DebtRegistered, DebtResolved:
		return true
	}
	return false
}

// Debt is a receivable tracked for a customer. The Token column is the sole
// credential for the anonymous public view; its unique index is the
// authoritative guard against collisions.
type Debt struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	DueDate       time.Time       `gorm:"not null" json:"due_date"`
	CustomerEmail string          `gorm:"not null;index" json:"customer_email"`
	Description   string          `json:"description"`

	Token  string     `gorm:"uniqueIndex;not null" json:"-"`
	Status DebtStatus `gorm:"not null;default:pending;index" json:"status"`

	CustomerUserID *string `gorm:"type:uuid;index" json:"customer_user_id,omitempty"`
	CustomerUser   *User   `gorm:"foreignKey:CustomerUserID" json:"-"`
	AdminUserID    string  `gorm:"type:uuid;not null;index" json:"admin_user_id"`
	AdminUser      *User   `gorm:"foreignKey:AdminUserID" json:"-"`

	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	ViewedAt   *time.Time `json:"viewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overdue reports whether the due date has passed relative to now.
func (d *Debt) Overdue(now time.Time) bool {
	if d == nil {
		return false
	}
	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return d.DueDate.Before(today)
}

// BeforeCreate ensures a UUID is present before persisting.
func (d *Debt) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
