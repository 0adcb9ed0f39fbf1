package invitation

import "time"

// Invitation rows never store the raw code, only its SHA-256 hex digest.
// At most one row per email may be active (partial unique index).
type Invitation struct {
	ID           int64      `gorm:"primaryKey"`
	Email        string     `gorm:"column:email;not null;uniqueIndex:idx_invitations_active_email,where:status = 'active'"`
	UserID       *int64     `gorm:"column:user_id;index"`
	RoleID       int64      `gorm:"column:role_id;not null"`
	DepartmentID int64      `gorm:"column:department_id;not null"`
	FirstName    string     `gorm:"column:first_name"`
	LastName     string     `gorm:"column:last_name"`
	CodeHash     string     `gorm:"column:code_hash;uniqueIndex;not null"`
	Status       string     `gorm:"column:status;not null;index"`
	IssuedBy     *int64     `gorm:"column:issued_by"`
	IssuedAt     time.Time  `gorm:"column:issued_at;not null"`
	ExpiresAt    time.Time  `gorm:"column:expires_at;not null"`
	ConsumedAt   *time.Time `gorm:"column:consumed_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Invitation) TableName() string {
	return "invitations"
}
