package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/pkg/logger"
)

// AuditEntry describes one recorded action.
type AuditEntry struct {
	ActorID    string
	Action     string
	Resource   string
	ResourceID string
	IPAddress  string
	Metadata   map[string]any
}

// AuditService persists security-relevant events. Failures are logged, never
// propagated: audit must not break the operation it records.
type AuditService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, now: time.Now}, nil
}

// Record writes an audit log row.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return
	}

	row := models.AuditLog{
		Action:     action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		IPAddress:  entry.IPAddress,
	}
	if actor := strings.TrimSpace(entry.ActorID); actor != "" {
		row.ActorID = &actor
	}
	if len(entry.Metadata) > 0 {
		if raw, err := json.Marshal(entry.Metadata); err == nil {
			row.Metadata = datatypes.JSON(raw)
		}
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Named("audit").Warn("record audit entry",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// PruneOlderThan deletes audit rows older than the given retention. Used by
// the maintenance cron job.
func (s *AuditService) PruneOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}
