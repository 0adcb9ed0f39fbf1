package audit

import "time"

type AuditLog struct {
	ID         int64     `gorm:"primaryKey"`
	EventID    string    `gorm:"column:event_id;uniqueIndex;not null"`
	ActorID    *int64    `gorm:"column:actor_id;index"`
	Action     string    `gorm:"column:action;not null;index"`
	TargetType string    `gorm:"column:target_type;not null"`
	TargetID   int64     `gorm:"column:target_id;not null"`
	Details    string    `gorm:"column:details;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
