package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Debt{},
		&models.Session{},
		&models.AuditLog{},
	)
}

// BootstrapAdmin describes the administrator account seeded at start-up.
// Web registration only ever produces customers, so the first admin has to
// come from configuration.
type BootstrapAdmin struct {
	Email    string
	Password string
}

// Migrate applies the schema and seeds the bootstrap admin when configured.
func Migrate(db *gorm.DB, admin BootstrapAdmin) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := seedAdmin(db, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	return nil
}

func seedAdmin(db *gorm.DB, admin BootstrapAdmin) error {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" {
		return nil
	}
	if strings.TrimSpace(admin.Password) == "" {
		return errors.New("bootstrap admin requires a password")
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(admin.Password)
	if err != nil {
		return err
	}

	return db.Create(&models.User{
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
	}).Error
}
