package postgres

import (
	"context"

	"github.com/frahmantamala/expense-workflow/internal/audit"
	auditPostgres "github.com/frahmantamala/expense-workflow/internal/audit/postgres"
	"github.com/frahmantamala/expense-workflow/internal/report"
	"github.com/frahmantamala/expense-workflow/internal/review"
	reviewPostgres "github.com/frahmantamala/expense-workflow/internal/review/postgres"
	userPostgres "github.com/frahmantamala/expense-workflow/internal/user/postgres"
	"gorm.io/gorm"
)

// Store hands out repositories bound to one gorm handle. Inside WithTx that handle is the
// transaction, so every repository joins it.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Reports() report.Repository {
	return NewReportRepository(s.db)
}

func (s *Store) Reviews() review.Repository {
	return reviewPostgres.NewReviewRepository(s.db)
}

func (s *Store) Audit() audit.Repository {
	return auditPostgres.NewAuditRepository(s.db)
}

func (s *Store) Users() report.UserDirectory {
	return userPostgres.NewUserRepository(s.db)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx report.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
