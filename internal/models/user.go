package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of user roles. A user holds exactly one.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// User is an authenticated account: either an administrator or a customer.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"not null;default:customer" json:"role"`

	// Debts where this user is the debtor. Nullified when the user is deleted.
	CustomerDebts []Debt `gorm:"foreignKey:CustomerUserID" json:"-"`
	// Debts this user created as an administrator. Deletion is restricted
	// while any exist.
	CreatedDebts []Debt `gorm:"foreignKey:AdminUserID" json:"-"`

	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsCustomer reports whether the user holds the customer role.
func (u *User) IsCustomer() bool {
	return u != nil && u.Role == RoleCustomer
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
