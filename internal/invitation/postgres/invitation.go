package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/core/database"
	invitationDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/invitation"
	"gorm.io/gorm"
)

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create fails with ErrConcurrentIssue when another active invitation for the same
// email slipped in; the partial unique index is the last line of defence.
func (r *InvitationRepository) Create(ctx context.Context, inv *invitationDatamodel.Invitation) error {
	if err := database.Conn(ctx, r.db).Create(inv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return internal.ErrConcurrentIssue.WithCause(err)
		}
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id int64) (*invitationDatamodel.Invitation, error) {
	var inv invitationDatamodel.Invitation
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation %d: %w", id, err)
	}
	return &inv, nil
}

func (r *InvitationRepository) GetByCodeHash(ctx context.Context, hash string) (*invitationDatamodel.Invitation, error) {
	var inv invitationDatamodel.Invitation
	if err := database.Conn(ctx, r.db).Where("code_hash = ?", hash).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation by code: %w", err)
	}
	return &inv, nil
}

func (r *InvitationRepository) ListActiveByEmail(ctx context.Context, email string) ([]*invitationDatamodel.Invitation, error) {
	var rows []*invitationDatamodel.Invitation
	err := database.Conn(ctx, r.db).
		Where("email = ? AND status = ?", email, "active").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list active invitations: %w", err)
	}
	return rows, nil
}

func (r *InvitationRepository) ListByUser(ctx context.Context, userID int64) ([]*invitationDatamodel.Invitation, error) {
	var rows []*invitationDatamodel.Invitation
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("issued_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list invitations of user %d: %w", userID, err)
	}
	return rows, nil
}

// TransitionStatus is a compare-and-set on status. ok is false when the row was not
// in from any more.
func (r *InvitationRepository) TransitionStatus(ctx context.Context, id int64, from, to string, consumedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if consumedAt != nil {
		updates["consumed_at"] = *consumedAt
	}

	res := database.Conn(ctx, r.db).Model(&invitationDatamodel.Invitation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update invitation %d status: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *InvitationRepository) SetUser(ctx context.Context, id, userID int64) error {
	err := database.Conn(ctx, r.db).Model(&invitationDatamodel.Invitation{}).
		Where("id = ?", id).
		Update("user_id", userID).Error
	if err != nil {
		return fmt.Errorf("bind invitation %d to user: %w", id, err)
	}
	return nil
}

// ExpireBefore marks every active invitation whose expiry passed before cutoff as expired.
func (r *InvitationRepository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := database.Conn(ctx, r.db).Model(&invitationDatamodel.Invitation{}).
		Where("status = ? AND expires_at < ?", "active", cutoff).
		Update("status", "expired")
	if res.Error != nil {
		return 0, fmt.Errorf("expire invitations: %w", res.Error)
	}
	return res.RowsAffected, nil
}
