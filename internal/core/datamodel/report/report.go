package report

import (
	"time"

	"github.com/shopspring/decimal"
)

type Report struct {
	ID              int64           `gorm:"primaryKey"`
	Title           string          `gorm:"column:title;not null"`
	Status          string          `gorm:"column:status;size:32;not null;index"`
	Destination     string          `gorm:"column:destination"`
	DepartureDate   *time.Time      `gorm:"column:departure_date;type:date"`
	ReturnDate      *time.Time      `gorm:"column:return_date;type:date"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null"`
	PerDiemDays     int             `gorm:"column:per_diem_days;not null;default:0"`
	PerDiemRate     decimal.Decimal `gorm:"column:per_diem_rate;type:numeric(10,2);not null"`
	PerDiemAmount   decimal.Decimal `gorm:"column:per_diem_amount;type:numeric(14,2);not null"`
	SubmitterID     int64           `gorm:"column:submitter_id;not null;index"`
	ApproverID      *int64          `gorm:"column:approver_id"`
	ApprovedAt      *time.Time      `gorm:"column:approved_at"`
	ApprovalComment *string         `gorm:"column:approval_comment"`
	Version         int64           `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
	Items           []Item          `gorm:"foreignKey:ReportID"`
}

func (Report) TableName() string {
	return "expense_reports"
}

type Item struct {
	ID          int64           `gorm:"primaryKey"`
	ReportID    int64           `gorm:"column:report_id;not null;index"`
	Position    int             `gorm:"column:position;not null"`
	ItemDate    time.Time       `gorm:"column:item_date;type:date;not null"`
	Description string          `gorm:"column:description;size:500;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Category    string          `gorm:"column:category;not null"`
}

func (Item) TableName() string {
	return "expense_items"
}
