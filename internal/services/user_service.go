package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/dluzirna/dluzirna/internal/abilities"
	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/pkg/crypto"
	apperrors "github.com/dluzirna/dluzirna/pkg/errors"
	"github.com/dluzirna/dluzirna/pkg/metrics"
)

// ErrAdminHasDebts rejects deletion of an admin account that still owns
// created debts.
var ErrAdminHasDebts = apperrors.New(
	"ADMIN_HAS_DEBTS",
	"Administrator accounts with created debts cannot be deleted",
	422,
)

// UserService owns account registration, credential checks and the deletion
// semantics around debt links.
type UserService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, audit: audit}, nil
}

// RegisterInput carries the public self-registration fields. Role is not
// accepted from the registrant: every web registration is a customer.
type RegisterInput struct {
	Email    string
	Password string
}

// Register creates a customer account and links any existing debts recorded
// against the same email address.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewValidation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidation("email must be a valid email address")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidation("password must be at least 8 characters")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: hash,
		Role:     models.RoleCustomer,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewValidation("email has already been taken")
			}
			return fmt.Errorf("user service: create user: %w", err)
		}

		// Self-association: debts already recorded against this address are
		// linked to the new account. Their lifecycle status is not touched;
		// the registered transition stays an explicit admin decision.
		if err := tx.Model(&models.Debt{}).
			Where("customer_email = ? AND customer_user_id IS NULL", email).
			Update("customer_user_id", user.ID).Error; err != nil {
			return fmt.Errorf("user service: link debts: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, AuditEntry{
			ActorID:    user.ID,
			Action:     "user.register",
			Resource:   "user",
			ResourceID: user.ID,
		})
	}

	return user, nil
}

// Authenticate verifies credentials and returns the matching user. All
// failures collapse into the same invalid-credentials error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: lookup user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// Delete removes an account on admin request. Deleting a customer nullifies
// the customer link on their debts so the records survive; deleting an admin
// is rejected while any debt still references them as creator.
func (s *UserService) Delete(ctx context.Context, actor *models.User, targetID string) error {
	if !actor.IsAdmin() {
		return apperrors.ErrAccessDenied
	}

	target, err := s.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !abilities.Resolve(abilities.ForUser(actor)).CanManageUser(target) {
		return apperrors.ErrAccessDenied
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if target.Role == models.RoleAdmin {
			var created int64
			if err := tx.Model(&models.Debt{}).
				Where("admin_user_id = ?", target.ID).Count(&created).Error; err != nil {
				return fmt.Errorf("user service: count created debts: %w", err)
			}
			if created > 0 {
				return ErrAdminHasDebts
			}
		} else {
			if err := tx.Model(&models.Debt{}).
				Where("customer_user_id = ?", target.ID).
				Update("customer_user_id", nil).Error; err != nil {
				return fmt.Errorf("user service: unlink debts: %w", err)
			}
		}

		if err := tx.Where("user_id = ?", target.ID).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("user service: delete sessions: %w", err)
		}

		if err := tx.Delete(&models.User{}, "id = ?", target.ID).Error; err != nil {
			return fmt.Errorf("user service: delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Record(ctx, AuditEntry{
			ActorID:    actor.ID,
			Action:     "user.delete",
			Resource:   "user",
			ResourceID: target.ID,
			Metadata:   map[string]any{"email": target.Email, "role": string(target.Role)},
		})
	}

	return nil
}
