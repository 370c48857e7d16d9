package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/frahmantamala/expense-workflow/internal"
	reportDatamodel "github.com/frahmantamala/expense-workflow/internal/core/datamodel/report"
	"github.com/frahmantamala/expense-workflow/internal/report"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *report.Report) error {
	row := report.ToDataModel(rep)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return internal.NewInternalError("failed to create report", err)
	}
	rep.ID = row.ID
	for i := range row.Items {
		rep.Items[i].ID = row.Items[i].ID
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*report.Report, error) {
	return r.load(ctx, r.db.WithContext(ctx), id)
}

func (r *ReportRepository) GetForUpdate(ctx context.Context, id int64) (*report.Report, error) {
	return r.load(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// load reads items with a separate unlocked query so the lock clause applies to the report row only.
func (r *ReportRepository) load(ctx context.Context, q *gorm.DB, id int64) (*report.Report, error) {
	var row reportDatamodel.Report
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrReportNotFound
		}
		return nil, internal.NewInternalError("failed to load report", err)
	}

	if err := r.db.WithContext(ctx).Where("report_id = ?", id).Order("position ASC").Find(&row.Items).Error; err != nil {
		return nil, internal.NewInternalError("failed to load report items", err)
	}
	return report.FromDataModel(&row)
}

// Update is an optimistic write: it only matches the row at the version the caller loaded.
func (r *ReportRepository) Update(ctx context.Context, rep *report.Report) error {
	row := report.ToDataModel(rep)
	res := r.db.WithContext(ctx).
		Model(&reportDatamodel.Report{}).
		Where("id = ? AND version = ?", rep.ID, rep.Version).
		Updates(map[string]interface{}{
			"title":            row.Title,
			"status":           row.Status,
			"destination":      row.Destination,
			"departure_date":   row.DepartureDate,
			"return_date":      row.ReturnDate,
			"total_amount":     row.TotalAmount,
			"per_diem_days":    row.PerDiemDays,
			"per_diem_rate":    row.PerDiemRate,
			"per_diem_amount":  row.PerDiemAmount,
			"approver_id":      row.ApproverID,
			"approved_at":      row.ApprovedAt,
			"approval_comment": row.ApprovalComment,
			"updated_at":       row.UpdatedAt,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return internal.NewInternalError("failed to update report", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrConcurrentEdit
	}
	rep.Version++
	return nil
}

func (r *ReportRepository) ReplaceItems(ctx context.Context, rep *report.Report) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("report_id = ?", rep.ID).Delete(&reportDatamodel.Item{}).Error; err != nil {
		return internal.NewInternalError("failed to delete report items", err)
	}
	if len(rep.Items) == 0 {
		return nil
	}

	rows := report.ItemsToDataModel(rep.ID, rep.Items)
	for i := range rows {
		rows[i].ID = 0
	}
	if err := db.Create(&rows).Error; err != nil {
		return internal.NewInternalError("failed to create report items", err)
	}
	for i := range rows {
		rep.Items[i].ID = rows[i].ID
	}
	return nil
}

func (r *ReportRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("report_id = ?", id).Delete(&reportDatamodel.Item{}).Error; err != nil {
		return internal.NewInternalError("failed to delete report items", err)
	}
	res := db.Where("id = ?", id).Delete(&reportDatamodel.Report{})
	if res.Error != nil {
		return internal.NewInternalError("failed to delete report", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepository) List(ctx context.Context, f report.ListFilter) ([]*report.Report, error) {
	q := r.db.WithContext(ctx).Model(&reportDatamodel.Report{})

	if f.SubmitterID > 0 {
		q = q.Where("submitter_id = ?", f.SubmitterID)
	}
	if f.ExcludeSubmitterID > 0 {
		q = q.Where("submitter_id <> ?", f.ExcludeSubmitterID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(destination) LIKE ?)", like, like)
	}

	switch f.Sort {
	case report.SortOldest:
		q = q.Order("created_at ASC").Order("id ASC")
	case report.SortAmountDesc:
		q = q.Order("total_amount DESC").Order("id DESC")
	case report.SortAmountAsc:
		q = q.Order("total_amount ASC").Order("id ASC")
	default:
		q = q.Order("created_at DESC").Order("id DESC")
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []reportDatamodel.Report
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Find(&rows).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list reports", err)
	}

	reports := make([]*report.Report, 0, len(rows))
	for i := range rows {
		rep, err := report.FromDataModel(&rows[i])
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
