package department

import "time"

type Department struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Code        string    `gorm:"column:code;uniqueIndex;not null;size:10"`
	Description string    `gorm:"column:description"`
	Level       int       `gorm:"column:level;not null"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Department) TableName() string {
	return "departments"
}
