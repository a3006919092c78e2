package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dluzirna/dluzirna/internal/database/testutil"
	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/pkg/crypto"
	apperrors "github.com/dluzirna/dluzirna/pkg/errors"
)

type userFixture struct {
	db    *gorm.DB
	users *UserService
	debts *DebtService
	admin *models.User
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	users, err := NewUserService(db, nil)
	require.NoError(t, err)

	debts, err := NewDebtService(db, nil, nil)
	require.NoError(t, err)

	admin := &models.User{Email: "spravce@dluzirna.cz", Password: "hash", Role: models.RoleAdmin}
	require.NoError(t, db.Create(admin).Error)

	return &userFixture{db: db, users: users, debts: debts, admin: admin}
}

func TestRegisterForcesCustomerRole(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.users.Register(context.Background(), RegisterInput{
		Email:    "Jan@Example.COM",
		Password: "tajneheslo",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleCustomer, user.Role)
	require.Equal(t, "jan@example.com", user.Email)
	require.NotEqual(t, "tajneheslo", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "tajneheslo"))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.users.Register(context.Background(), RegisterInput{Email: "jan@example.com", Password: "tajneheslo"})
	require.NoError(t, err)

	_, err = f.users.Register(context.Background(), RegisterInput{Email: "jan@example.com", Password: "jineheslo"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 422, appErr.StatusCode)
}

func TestRegisterRejectsShortPasswords(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.users.Register(context.Background(), RegisterInput{Email: "jan@example.com", Password: "kratke"})
	require.Error(t, err)
}

func TestRegisterLinksExistingDebtsByEmail(t *testing.T) {
	f := newUserFixture(t)

	debt, err := f.debts.Create(context.Background(), f.admin, CreateDebtInput{
		Amount:        decimal.NewFromInt(1200),
		DueDate:       time.Now().AddDate(0, 0, 14),
		CustomerEmail: "jan@example.com",
	})
	require.NoError(t, err)
	require.Nil(t, debt.CustomerUserID)

	other, err := f.debts.Create(context.Background(), f.admin, CreateDebtInput{
		Amount:        decimal.NewFromInt(500),
		DueDate:       time.Now().AddDate(0, 0, 14),
		CustomerEmail: "petr@example.com",
	})
	require.NoError(t, err)

	user, err := f.users.Register(context.Background(), RegisterInput{Email: "jan@example.com", Password: "tajneheslo"})
	require.NoError(t, err)

	var linked models.Debt
	require.NoError(t, f.db.First(&linked, "id = ?", debt.ID).Error)
	require.NotNil(t, linked.CustomerUserID)
	require.Equal(t, user.ID, *linked.CustomerUserID)
	// Association alone does not touch the lifecycle.
	require.Equal(t, models.DebtPending, linked.Status)

	var untouched models.Debt
	require.NoError(t, f.db.First(&untouched, "id = ?", other.ID).Error)
	require.Nil(t, untouched.CustomerUserID)
}

func TestAuthenticate(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.users.Register(context.Background(), RegisterInput{Email: "jan@example.com", Password: "tajneheslo"})
	require.NoError(t, err)

	user, err := f.users.Authenticate(context.Background(), "JAN@example.com", "tajneheslo")
	require.NoError(t, err)
	require.Equal(t, "jan@example.com", user.Email)

	// Wrong password and unknown account fail identically.
	_, errWrong := f.users.Authenticate(context.Background(), "jan@example.com", "spatne heslo")
	_, errUnknown := f.users.Authenticate(context.Background(), "nikdo@example.com", "tajneheslo")
	require.ErrorIs(t, errWrong, apperrors.ErrInvalidCredentials)
	require.ErrorIs(t, errUnknown, apperrors.ErrInvalidCredentials)
}

func TestDeleteCustomerNullifiesDebtLinks(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.users.Register(context.Background(), RegisterInput{Email: "jan@example.com", Password: "tajneheslo"})
	require.NoError(t, err)

	debt, err := f.debts.Create(context.Background(), f.admin, CreateDebtInput{
		Amount:         decimal.NewFromInt(900),
		DueDate:        time.Now().AddDate(0, 0, 7),
		CustomerEmail:  "jan@example.com",
		CustomerUserID: &user.ID,
	})
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(context.Background(), f.admin, user.ID))

	_, err = f.users.GetByID(context.Background(), user.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// The debt record survives, detached from the deleted account.
	var survived models.Debt
	require.NoError(t, f.db.First(&survived, "id = ?", debt.ID).Error)
	require.Nil(t, survived.CustomerUserID)
}

func TestDeleteAdminWithCreatedDebtsIsRejected(t *testing.T) {
	f := newUserFixture(t)

	second := &models.User{Email: "druhy@dluzirna.cz", Password: "hash", Role: models.RoleAdmin}
	require.NoError(t, f.db.Create(second).Error)

	_, err := f.debts.Create(context.Background(), second, CreateDebtInput{
		Amount:        decimal.NewFromInt(100),
		DueDate:       time.Now().AddDate(0, 0, 7),
		CustomerEmail: "jan@example.com",
	})
	require.NoError(t, err)

	require.ErrorIs(t, f.users.Delete(context.Background(), f.admin, second.ID), ErrAdminHasDebts)

	// Still present.
	_, err = f.users.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	f := newUserFixture(t)

	customer, err := f.users.Register(context.Background(), RegisterInput{Email: "jan@example.com", Password: "tajneheslo"})
	require.NoError(t, err)

	require.ErrorIs(t, f.users.Delete(context.Background(), customer, f.admin.ID), apperrors.ErrAccessDenied)
	require.ErrorIs(t, f.users.Delete(context.Background(), nil, f.admin.ID), apperrors.ErrAccessDenied)
}
