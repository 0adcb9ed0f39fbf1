package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/staff-management/internal/audit"
	"github.com/frahmantamala/staff-management/internal/core/database"
	auditDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, row *auditDatamodel.AuditLog) error {
	if err := database.Conn(ctx, r.db).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return audit.ErrDuplicate
		}
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) ([]*auditDatamodel.AuditLog, error) {
	q := database.Conn(ctx, r.db).Model(&auditDatamodel.AuditLog{})
	if filter.ActorID != 0 {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetType != "" {
		q = q.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != 0 {
		q = q.Where("target_id = ?", filter.TargetID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}

	var rows []*auditDatamodel.AuditLog
	if err := q.Order("created_at DESC, id DESC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return rows, nil
}
