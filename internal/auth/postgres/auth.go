package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/staff-management/internal"
	"github.com/frahmantamala/staff-management/internal/auth"
	"github.com/frahmantamala/staff-management/internal/core/database"
	roleDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var u userDatamodel.User
	err := database.Conn(ctx, r.db).
		Select("id", "email", "password_hash", "status", "is_active").
		Where("email = ?", email).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return &auth.Credentials{
		UserID:       u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Status:       u.Status,
		IsActive:     u.IsActive,
	}, nil
}

// GetActor loads a user that may act in the system. Permissions come from the
// user's role; an inactive role grants nothing.
func (r *Repository) GetActor(ctx context.Context, userID int64) (*internal.Actor, error) {
	var u userDatamodel.User
	if err := database.Conn(ctx, r.db).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, fmt.Errorf("load actor %d: %w", userID, err)
	}
	if u.Status != "ACTIVE" || !u.IsActive {
		return nil, internal.ErrUserInactive
	}

	actor := &internal.Actor{ID: u.ID, Email: u.Email, Permissions: []string{}}
	if u.RoleID == nil {
		return actor, nil
	}

	var role roleDatamodel.Role
	if err := database.Conn(ctx, r.db).Where("id = ?", *u.RoleID).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return actor, nil
		}
		return nil, fmt.Errorf("load role of actor %d: %w", userID, err)
	}
	if role.IsActive {
		actor.RoleLevel = role.Level
		actor.Permissions = role.Permissions
	}
	return actor, nil
}
