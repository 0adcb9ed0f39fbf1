package user

import "time"

type User struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	FirstName    string    `gorm:"column:first_name;not null"`
	LastName     string    `gorm:"column:last_name"`
	PasswordHash string    `gorm:"column:password_hash"`
	Status       string    `gorm:"column:status;not null;index"`
	RoleID       *int64    `gorm:"column:role_id;index"`
	DepartmentID *int64    `gorm:"column:department_id;index"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
