package invitation

import (
	"time"

	invitationDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/invitation"
)

type Status string

const (
	StatusActive      Status = "active"
	StatusInvalidated Status = "invalidated"
	StatusAccepted    Status = "accepted"
	StatusExpired     Status = "expired"
)

// ExpiryWindow is how long a freshly issued code stays redeemable.
const ExpiryWindow = 7 * 24 * time.Hour

type Invitation struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	UserID       *int64     `json:"user_id"`
	RoleID       int64      `json:"role_id"`
	DepartmentID int64      `json:"department_id"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	CodeHash     string     `json:"-"`
	Status       Status     `json:"status"`
	IssuedBy     *int64     `json:"issued_by,omitempty"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
}

// EffectiveStatus reports an active invitation past its expiry as expired, even
// before the row has been rewritten.
func (i *Invitation) EffectiveStatus(now time.Time) Status {
	if i.Status == StatusActive && now.After(i.ExpiresAt) {
		return StatusExpired
	}
	return i.Status
}

func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

func ToDataModel(i *Invitation) *invitationDatamodel.Invitation {
	return &invitationDatamodel.Invitation{
		ID:           i.ID,
		Email:        i.Email,
		UserID:       i.UserID,
		RoleID:       i.RoleID,
		DepartmentID: i.DepartmentID,
		FirstName:    i.FirstName,
		LastName:     i.LastName,
		CodeHash:     i.CodeHash,
		Status:       string(i.Status),
		IssuedBy:     i.IssuedBy,
		IssuedAt:     i.IssuedAt,
		ExpiresAt:    i.ExpiresAt,
		ConsumedAt:   i.ConsumedAt,
	}
}

func FromDataModel(i *invitationDatamodel.Invitation) *Invitation {
	return &Invitation{
		ID:           i.ID,
		Email:        i.Email,
		UserID:       i.UserID,
		RoleID:       i.RoleID,
		DepartmentID: i.DepartmentID,
		FirstName:    i.FirstName,
		LastName:     i.LastName,
		CodeHash:     i.CodeHash,
		Status:       Status(i.Status),
		IssuedBy:     i.IssuedBy,
		IssuedAt:     i.IssuedAt,
		ExpiresAt:    i.ExpiresAt,
		ConsumedAt:   i.ConsumedAt,
	}
}
