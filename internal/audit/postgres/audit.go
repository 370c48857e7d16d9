package postgres

import (
	"context"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/audit"
	auditDatamodel "github.com/frahmantamala/expense-workflow/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	row := audit.ToDataModel(entry)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return internal.NewInternalError("failed to append audit entry", err)
	}
	entry.ID = row.ID
	return nil
}

// ListByReport returns entries oldest first.
func (r *AuditRepository) ListByReport(ctx context.Context, reportID int64) ([]*audit.Entry, error) {
	var rows []auditDatamodel.Entry
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to load audit log", err)
	}

	entries := make([]*audit.Entry, len(rows))
	for i := range rows {
		entries[i] = audit.FromDataModel(&rows[i])
	}
	return entries, nil
}
