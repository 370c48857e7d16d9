package audit

import "time"

// Entry rows are insert-only.
type Entry struct {
	ID         int64     `gorm:"primaryKey"`
	ReportID   int64     `gorm:"column:report_id;not null;index"`
	Action     string    `gorm:"column:action;size:32;not null"`
	FromStatus string    `gorm:"column:from_status;size:32"`
	ToStatus   string    `gorm:"column:to_status;size:32;not null"`
	ActorID    int64     `gorm:"column:actor_id;not null"`
	ActorName  string    `gorm:"column:actor_name;not null"`
	Comment    *string   `gorm:"column:comment"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (Entry) TableName() string {
	return "audit_entries"
}
