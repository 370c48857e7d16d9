package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-workflow/internal"
	reviewDatamodel "github.com/frahmantamala/expense-workflow/internal/core/datamodel/review"
	"github.com/frahmantamala/expense-workflow/internal/review"
	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) GetByReport(ctx context.Context, reportID int64) (*review.ExceptionReview, error) {
	var row reviewDatamodel.ExceptionReview
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("report_id = ?", reportID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrReviewNotFound
		}
		return nil, internal.NewInternalError("failed to load exception review", err)
	}
	return review.FromDataModel(&row), nil
}

func (r *ReviewRepository) Replace(ctx context.Context, rv *review.ExceptionReview) error {
	if err := r.DeleteByReport(ctx, rv.ReportID); err != nil {
		return err
	}

	rv.ID = 0
	for i := range rv.Items {
		rv.Items[i].ID = 0
	}
	row := review.ToDataModel(rv)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return internal.NewInternalError("failed to store exception review", err)
	}

	rv.ID = row.ID
	for i := range row.Items {
		rv.Items[i].ID = row.Items[i].ID
	}
	return nil
}

func (r *ReviewRepository) SaveDecision(ctx context.Context, rv *review.ExceptionReview) error {
	row := review.ToDataModel(rv)
	db := r.db.WithContext(ctx)

	res := db.Model(&reviewDatamodel.ExceptionReview{}).
		Where("id = ?", rv.ID).
		Updates(map[string]interface{}{
			"status":           row.Status,
			"reviewer_id":      row.ReviewerID,
			"reviewer_comment": row.ReviewerComment,
			"decided_at":       row.DecidedAt,
		})
	if res.Error != nil {
		return internal.NewInternalError("failed to save exception review", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrReviewNotFound
	}

	for _, it := range row.Items {
		err := db.Model(&reviewDatamodel.Item{}).
			Where("id = ? AND review_id = ?", it.ID, rv.ID).
			Updates(map[string]interface{}{
				"decision":        it.Decision,
				"reviewer_reason": it.ReviewerReason,
			}).Error
		if err != nil {
			return internal.NewInternalError("failed to save exception review item", err)
		}
	}
	return nil
}

func (r *ReviewRepository) DeleteByReport(ctx context.Context, reportID int64) error {
	db := r.db.WithContext(ctx)

	var ids []int64
	if err := db.Model(&reviewDatamodel.ExceptionReview{}).Where("report_id = ?", reportID).Pluck("id", &ids).Error; err != nil {
		return internal.NewInternalError("failed to look up exception reviews", err)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := db.Where("review_id IN ?", ids).Delete(&reviewDatamodel.Item{}).Error; err != nil {
		return internal.NewInternalError("failed to delete exception review items", err)
	}
	if err := db.Where("id IN ?", ids).Delete(&reviewDatamodel.ExceptionReview{}).Error; err != nil {
		return internal.NewInternalError("failed to delete exception review", err)
	}
	return nil
}
