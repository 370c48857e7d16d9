package postgres

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/report"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// StatsReader serves the aggregate read model with hand-written SQL. Queries are written with
// ? placeholders and rebound for the connection's driver.
type StatsReader struct {
	db *sqlx.DB
}

func NewStatsReader(db *sqlx.DB) *StatsReader {
	return &StatsReader{db: db}
}

type bucketRow struct {
	Key    string          `db:"bucket_key"`
	Count  int64           `db:"bucket_count"`
	Amount decimal.Decimal `db:"bucket_amount"`
}

const statusTotalsQuery = `
SELECT status AS bucket_key,
       COUNT(*) AS bucket_count,
       COALESCE(SUM(total_amount), 0) AS bucket_amount
FROM expense_reports
WHERE (? = 0 OR submitter_id = ?)
GROUP BY status`

const categoryTotalsQuery = `
SELECT LOWER(i.category) AS bucket_key,
       COUNT(*) AS bucket_count,
       COALESCE(SUM(i.amount), 0) AS bucket_amount
FROM expense_items i
JOIN expense_reports r ON r.id = i.report_id
WHERE (? = 0 OR r.submitter_id = ?)
GROUP BY LOWER(i.category)`

const monthlyRowsQuery = `
SELECT created_at, total_amount
FROM expense_reports
WHERE (? = 0 OR submitter_id = ?)`

func (s *StatsReader) StatusTotals(ctx context.Context, submitterID int64) ([]report.Bucket, error) {
	return s.buckets(ctx, statusTotalsQuery, submitterID)
}

func (s *StatsReader) CategoryTotals(ctx context.Context, submitterID int64) ([]report.Bucket, error) {
	return s.buckets(ctx, categoryTotalsQuery, submitterID)
}

// MonthlyTotals groups by YYYY-MM of creation in UTC. Grouping happens here because date
// formatting functions differ between Postgres and SQLite.
func (s *StatsReader) MonthlyTotals(ctx context.Context, submitterID int64) ([]report.Bucket, error) {
	var rows []struct {
		CreatedAt   time.Time       `db:"created_at"`
		TotalAmount decimal.Decimal `db:"total_amount"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(monthlyRowsQuery), submitterID, submitterID); err != nil {
		return nil, internal.NewInternalError("failed to load monthly totals", err)
	}

	index := make(map[string]int)
	var out []report.Bucket
	for _, row := range rows {
		month := row.CreatedAt.UTC().Format("2006-01")
		i, ok := index[month]
		if !ok {
			i = len(out)
			index[month] = i
			out = append(out, report.Bucket{Key: month, Amount: decimal.Zero})
		}
		out[i].Count++
		out[i].Amount = out[i].Amount.Add(row.TotalAmount)
	}
	for i := range out {
		out[i].Amount = out[i].Amount.Round(2)
	}
	return out, nil
}

func (s *StatsReader) buckets(ctx context.Context, query string, submitterID int64) ([]report.Bucket, error) {
	var rows []bucketRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), submitterID, submitterID); err != nil {
		return nil, internal.NewInternalError("failed to load report stats", err)
	}

	out := make([]report.Bucket, len(rows))
	for i, row := range rows {
		out[i] = report.Bucket{Key: row.Key, Count: row.Count, Amount: row.Amount.Round(2)}
	}
	return out, nil
}
