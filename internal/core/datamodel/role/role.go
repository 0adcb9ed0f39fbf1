package role

import "time"

// Role.Level is unique among active roles only; the partial index enforces it.
type Role struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	Level       int       `gorm:"column:level;not null;uniqueIndex:idx_roles_active_level,where:is_active"`
	Permissions []string  `gorm:"column:permissions;type:text;serializer:json"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}
