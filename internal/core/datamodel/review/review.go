package review

import "time"

type ExceptionReview struct {
	ID              int64      `gorm:"primaryKey"`
	ReportID        int64      `gorm:"column:report_id;not null;uniqueIndex"`
	Status          string     `gorm:"column:status;size:16;not null"`
	ReviewerID      *int64     `gorm:"column:reviewer_id"`
	ReviewerComment *string    `gorm:"column:reviewer_comment"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	DecidedAt       *time.Time `gorm:"column:decided_at"`
	Items           []Item     `gorm:"foreignKey:ReviewID"`
}

func (ExceptionReview) TableName() string {
	return "exception_reviews"
}

type Item struct {
	ID             int64   `gorm:"primaryKey"`
	ReviewID       int64   `gorm:"column:review_id;not null;index"`
	Position       int     `gorm:"column:position;not null"`
	Code           string  `gorm:"column:code;not null"`
	Message        string  `gorm:"column:message;not null"`
	EmployeeReason string  `gorm:"column:employee_reason"`
	Decision       *string `gorm:"column:decision;size:16"`
	ReviewerReason *string `gorm:"column:reviewer_reason"`
}

func (Item) TableName() string {
	return "exception_review_items"
}
