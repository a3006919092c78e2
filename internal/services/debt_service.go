package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dluzirna/dluzirna/internal/i18n"
	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/pkg/crypto"
	apperrors "github.com/dluzirna/dluzirna/pkg/errors"
	"github.com/dluzirna/dluzirna/pkg/logger"
	"github.com/dluzirna/dluzirna/pkg/metrics"
)

const (
	// debtTokenBytes is the entropy of generated public tokens. 32 random
	// bytes keep brute-force guessing far outside the limiter's window.
	debtTokenBytes = 32
	// tokenGenerationAttempts bounds the collision-retry loop. The unique
	// index on the token column is the authoritative guard; the pre-check
	// only reduces retries.
	tokenGenerationAttempts = 5

	defaultDebtPageSize = 25
	maxDebtPageSize     = 100
)

// DebtServiceOption customises the DebtService.
type DebtServiceOption func(*DebtService)

// WithDebtClock injects a custom time source.
func WithDebtClock(clock func() time.Time) DebtServiceOption {
	return func(s *DebtService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// DebtService owns debt records: creation with token assignment, the
// notification lifecycle, admin CRUD, customer-scoped reads and the public
// token disclosure path.
type DebtService struct {
	db       *gorm.DB
	notifier DebtNotifier
	audit    *AuditService
	now      func() time.Time
}

// NewDebtService constructs a DebtService. notifier may be nil, in which case
// creation skips dispatch but still records the debt (used by imports/tests).
func NewDebtService(db *gorm.DB, notifier DebtNotifier, audit *AuditService, opts ...DebtServiceOption) (*DebtService, error) {
	if db == nil {
		return nil, errors.New("debt service: db is required")
	}
	s := &DebtService{db: db, notifier: notifier, audit: audit, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateDebtInput carries the admin-supplied fields for a new debt.
type CreateDebtInput struct {
	Amount         decimal.Decimal
	DueDate        time.Time
	CustomerEmail  string
	Description    string
	CustomerUserID *string
	// Token is normally empty and assigned by the generator. A caller-supplied
	// value is kept as-is and still subject to the uniqueness constraint.
	Token  string
	Locale i18n.Locale
}

// Create validates and persists a new debt for the admin, then dispatches the
// notification email. The status advances to notified and NotifiedAt is
// stamped even when the send fails: record availability is deliberately not
// gated on delivery.
func (s *DebtService) Create(ctx context.Context, admin *models.User, input CreateDebtInput) (*models.Debt, error) {
	if !admin.IsAdmin() {
		return nil, apperrors.ErrAccessDenied
	}
	if err := validateDebtFields(input.Amount, input.CustomerEmail, input.DueDate); err != nil {
		return nil, err
	}

	debt := &models.Debt{
		Amount:         input.Amount,
		DueDate:        input.DueDate,
		CustomerEmail:  strings.ToLower(strings.TrimSpace(input.CustomerEmail)),
		Description:    input.Description,
		Token:          strings.TrimSpace(input.Token),
		Status:         models.DebtPending,
		CustomerUserID: input.CustomerUserID,
		AdminUserID:    admin.ID,
	}

	if err := s.insertWithToken(ctx, debt); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, admin.ID, "debt.create", debt.ID, map[string]any{
		"customer_email": debt.CustomerEmail,
		"amount":         debt.Amount.String(),
	})

	s.dispatch(ctx, debt, input.Locale, true)
	return debt, nil
}

// insertWithToken assigns a fresh token when none was supplied and inserts the
// record, regenerating on collision. The token lives and dies with the insert:
// a failed insert reserves nothing.
func (s *DebtService) insertWithToken(ctx context.Context, debt *models.Debt) error {
	supplied := debt.Token != ""

	for attempt := 0; attempt < tokenGenerationAttempts; attempt++ {
		if !supplied && debt.Token == "" {
			token, err := crypto.GenerateToken(debtTokenBytes)
			if err != nil {
				return fmt.Errorf("debt service: generate token: %w", err)
			}

			var count int64
			if err := s.db.WithContext(ctx).Model(&models.Debt{}).
				Where("token = ?", token).Count(&count).Error; err != nil {
				return fmt.Errorf("debt service: token uniqueness check: %w", err)
			}
			if count > 0 {
				continue
			}
			debt.Token = token
		}

		err := s.db.WithContext(ctx).Create(debt).Error
		if err == nil {
			return nil
		}
		if isUniqueViolation(err) {
			if supplied {
				return apperrors.NewValidation("token has already been taken")
			}
			// Lost the race to a concurrent insert; discard and regenerate.
			debt.ID = ""
			debt.Token = ""
			continue
		}
		return fmt.Errorf("debt service: create debt: %w", err)
	}

	return apperrors.NewValidation("token could not be generated, please retry")
}

// dispatch sends the notification and applies the lifecycle side effect on
// the creation and resend paths. Send errors are logged and audited, never
// returned: the debt must stay available regardless of delivery.
func (s *DebtService) dispatch(ctx context.Context, debt *models.Debt, locale i18n.Locale, advance bool) {
	if s.notifier == nil {
		return
	}

	sendErr := s.notifier.NotifyDebt(ctx, debt, locale)
	if sendErr != nil {
		logger.Named("debts").Error("notification dispatch failed",
			zap.String("debt_id", debt.ID),
			zap.Error(sendErr),
		)
	}

	now := s.now()
	columns := map[string]any{"notified_at": now}
	if advance && debt.Status == models.DebtPending {
		columns["status"] = models.DebtNotified
	}
	if err := s.db.WithContext(ctx).Model(&models.Debt{}).
		Where("id = ?", debt.ID).
		Updates(columns).Error; err != nil {
		logger.Named("debts").Error("stamp notification", zap.String("debt_id", debt.ID), zap.Error(err))
		return
	}

	debt.NotifiedAt = &now
	if advance && debt.Status == models.DebtPending {
		debt.Status = models.DebtNotified
	}

	s.recordAudit(ctx, "", "debt.notify", debt.ID, map[string]any{
		"delivered": sendErr == nil,
		"recipient": debt.CustomerEmail,
	})
}

// UpdateDebtInput carries admin-editable fields. Nil pointers leave the field
// unchanged.
type UpdateDebtInput struct {
	Amount        *decimal.Decimal
	DueDate       *time.Time
	CustomerEmail *string
	Description   *string
	Status        *models.DebtStatus
	// SendNotification triggers an explicit resend after the update.
	SendNotification bool
	Locale           i18n.Locale
}

// Update applies admin edits. Admins may set any status value directly; the
// one-way lifecycle only constrains the automatic transitions.
func (s *DebtService) Update(ctx context.Context, admin *models.User, id string, input UpdateDebtInput) (*models.Debt, error) {
	if !admin.IsAdmin() {
		return nil, apperrors.ErrAccessDenied
	}

	debt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Amount != nil {
		debt.Amount = *input.Amount
	}
	if input.DueDate != nil {
		debt.DueDate = *input.DueDate
	}
	if input.CustomerEmail != nil {
		debt.CustomerEmail = strings.ToLower(strings.TrimSpace(*input.CustomerEmail))
	}
	if input.Description != nil {
		debt.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewValidation("status is not a known lifecycle value")
		}
		debt.Status = *input.Status
	}

	if err := validateDebtFields(debt.Amount, debt.CustomerEmail, debt.DueDate); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(debt).Error; err != nil {
		return nil, fmt.Errorf("debt service: update debt: %w", err)
	}

	s.recordAudit(ctx, admin.ID, "debt.update", debt.ID, nil)

	if input.SendNotification {
		s.dispatch(ctx, debt, input.Locale, true)
	}

	return debt, nil
}

// ResendNotification dispatches the notification email again on explicit admin
// request. A still-pending debt advances to notified.
func (s *DebtService) ResendNotification(ctx context.Context, admin *models.User, id string, locale i18n.Locale) (*models.Debt, error) {
	if !admin.IsAdmin() {
		return nil, apperrors.ErrAccessDenied
	}

	debt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, debt, locale, true)
	return debt, nil
}

// Delete removes a debt record.
func (s *DebtService) Delete(ctx context.Context, admin *models.User, id string) error {
	if !admin.IsAdmin() {
		return apperrors.ErrAccessDenied
	}

	result := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Delete(&models.Debt{})
	if result.Error != nil {
		return fmt.Errorf("debt service: delete debt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.recordAudit(ctx, admin.ID, "debt.delete", id, nil)
	return nil
}

// Get loads a debt by identifier for the admin path.
func (s *DebtService) Get(ctx context.Context, id string) (*models.Debt, error) {
	var debt models.Debt
	err := s.db.WithContext(ctx).First(&debt, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("debt service: load debt: %w", err)
	}
	return &debt, nil
}

// ListDebtsOptions filters the admin index.
type ListDebtsOptions struct {
	Page     int
	PerPage  int
	Status   models.DebtStatus
	Search   string // substring match on customer email
	Overdue  bool
}

// List returns a page of debts ordered by recency, with the total count.
func (s *DebtService) List(ctx context.Context, opts ListDebtsOptions) ([]models.Debt, int64, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultDebtPageSize
	}
	if perPage > maxDebtPageSize {
		perPage = maxDebtPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Debt{})
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		query = query.Where("customer_email LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if opts.Overdue {
		query = query.Where("due_date < ?", startOfDay(s.now()))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("debt service: count debts: %w", err)
	}

	var debts []models.Debt
	if err := query.
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&debts).Error; err != nil {
		return nil, 0, fmt.Errorf("debt service: list debts: %w", err)
	}

	return debts, total, nil
}

// ListForCustomer returns all debts linked to the customer, newest first.
func (s *DebtService) ListForCustomer(ctx context.Context, customer *models.User) ([]models.Debt, error) {
	if !customer.IsCustomer() {
		return nil, apperrors.ErrAccessDenied
	}

	var debts []models.Debt
	if err := s.db.WithContext(ctx).
		Where("customer_user_id = ?", customer.ID).
		Order("created_at DESC").
		Find(&debts).Error; err != nil {
		return nil, fmt.Errorf("debt service: list customer debts: %w", err)
	}
	return debts, nil
}

// GetForCustomer loads one debt through a lookup scoped to the customer. A
// debt belonging to someone else produces the same not-found as a missing
// identifier, so existence cannot be probed.
func (s *DebtService) GetForCustomer(ctx context.Context, customer *models.User, id string) (*models.Debt, error) {
	if !customer.IsCustomer() {
		return nil, apperrors.ErrAccessDenied
	}

	var debt models.Debt
	err := s.db.WithContext(ctx).
		Where("id = ? AND customer_user_id = ?", strings.TrimSpace(id), customer.ID).
		First(&debt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("debt service: load customer debt: %w", err)
	}
	return &debt, nil
}

// Disclosure is the outcome of a public token resolution.
type Disclosure struct {
	Debt *models.Debt
	// FullDisclosure is true when the viewer is the authenticated linked
	// customer; token-derived views carry full detail but keep this false so
	// callers can tell the two apart.
	FullDisclosure bool
}

// ResolveToken resolves a public debt link. An exact token match returns the
// record; the first resolution of a still-pending debt advances it to viewed
// through a narrow column update that skips validation hooks. No match fails
// closed as not-found.
func (s *DebtService) ResolveToken(ctx context.Context, viewer *models.User, token string) (*Disclosure, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		metrics.DebtViews.WithLabelValues("miss").Inc()
		return nil, apperrors.ErrNotFound
	}

	var debt models.Debt
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&debt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.DebtViews.WithLabelValues("miss").Inc()
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("debt service: resolve token: %w", err)
	}

	// Only a debt still exactly pending advances; notified and later states
	// are left untouched so the transition fires at most once and never
	// regresses the lifecycle.
	if debt.Status == models.DebtPending {
		now := s.now()
		// The status guard in the WHERE clause keeps concurrent first views
		// from re-stamping ViewedAt.
		result := s.db.WithContext(ctx).Model(&models.Debt{}).
			Where("id = ? AND status = ?", debt.ID, models.DebtPending).
			UpdateColumns(map[string]any{"status": models.DebtViewed, "viewed_at": now})
		if result.Error != nil {
			return nil, fmt.Errorf("debt service: mark viewed: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			debt.Status = models.DebtViewed
			debt.ViewedAt = &now
		}
	}

	owner := viewer.IsCustomer() && debt.CustomerUserID != nil && *debt.CustomerUserID == viewer.ID
	if owner {
		metrics.DebtViews.WithLabelValues("owner").Inc()
	} else {
		metrics.DebtViews.WithLabelValues("token").Inc()
	}

	return &Disclosure{Debt: &debt, FullDisclosure: owner}, nil
}

// DashboardStats summarises the debt book for the admin dashboard.
type DashboardStats struct {
	Total   int64         `json:"total"`
	Pending int64         `json:"pending"`
	Overdue int64         `json:"overdue"`
	Recent  []models.Debt `json:"recent"`
}

// Dashboard aggregates counts and the most recent records.
func (s *DebtService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	db := s.db.WithContext(ctx).Model(&models.Debt{})

	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("debt service: dashboard total: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Debt{}).
		Where("status = ?", models.DebtPending).Count(&stats.Pending).Error; err != nil {
		return nil, fmt.Errorf("debt service: dashboard pending: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Debt{}).
		Where("due_date < ?", startOfDay(s.now())).Count(&stats.Overdue).Error; err != nil {
		return nil, fmt.Errorf("debt service: dashboard overdue: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").Limit(10).Find(&stats.Recent).Error; err != nil {
		return nil, fmt.Errorf("debt service: dashboard recent: %w", err)
	}

	return stats, nil
}

func (s *DebtService) recordAudit(ctx context.Context, actorID, action, debtID string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		ActorID:    actorID,
		Action:     action,
		Resource:   "debt",
		ResourceID: debtID,
		Metadata:   metadata,
	})
}

func validateDebtFields(amount decimal.Decimal, customerEmail string, dueDate time.Time) error {
	if !amount.IsPositive() {
		return apperrors.NewValidation("amount must be greater than 0")
	}
	email := strings.TrimSpace(customerEmail)
	if email == "" {
		return apperrors.NewValidation("customer email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperrors.NewValidation("customer email must be a valid email address")
	}
	if dueDate.IsZero() {
		return apperrors.NewValidation("due date is required")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
