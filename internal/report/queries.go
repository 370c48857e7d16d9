package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/policy"
	"github.com/shopspring/decimal"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Sort string

const (
	SortNewest     Sort = "newest"
	SortOldest     Sort = "oldest"
	SortAmountDesc Sort = "amount_desc"
	SortAmountAsc  Sort = "amount_asc"
)

func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest:
		return SortOldest, nil
	case SortAmountDesc:
		return SortAmountDesc, nil
	case SortAmountAsc:
		return SortAmountAsc, nil
	}
	return "", internal.NewValidationError(fmt.Sprintf("unknown sort %q, expected newest, oldest, amount_desc or amount_asc", s), internal.ErrCodeInvalidQuery)
}

// ListFilter is the repository-level query. Zero values disable a criterion; Limit <= 0 means no limit.
type ListFilter struct {
	SubmitterID        int64
	ExcludeSubmitterID int64
	Statuses           []Status
	Query              string
	Sort               Sort
	Limit              int
	Offset             int
}

// ListQuery is the caller-facing, unparsed form of ListFilter.
type ListQuery struct {
	SubmitterID int64
	Status      string
	Query       string
	Sort        string
	Limit       int
	Offset      int
}

func (q ListQuery) filter() (ListFilter, error) {
	f := ListFilter{
		SubmitterID: q.SubmitterID,
		Query:       strings.TrimSpace(q.Query),
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if q.Status != "" {
		st, err := ParseStatus(q.Status)
		if err != nil {
			return f, err
		}
		f.Statuses = []Status{st}
	}

	sortBy, err := ParseSort(q.Sort)
	if err != nil {
		return f, err
	}
	f.Sort = sortBy

	if f.Offset < 0 {
		return f, internal.NewValidationError("offset must not be negative", internal.ErrCodeInvalidQuery)
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	return f, nil
}

// Detail is a report with its resolved names and current policy warnings.
type Detail struct {
	Report        *Report
	SubmitterName string
	ApproverName  string
	Warnings      []policy.Warning
}

type Summary struct {
	Report        *Report
	SubmitterName string
	Flagged       bool
}

// Bucket is one aggregated row of the stats read model.
type Bucket struct {
	Key    string
	Count  int64
	Amount decimal.Decimal
}

type Stats struct {
	ReportCount   int64
	TotalAmount   decimal.Decimal
	ApprovedCount int64
	RejectedCount int64
	PendingCount  int64
	DraftCount    int64
	ByStatus      []Bucket
	ByCategory    []Bucket
	ByMonth       []Bucket
}

func (s *Service) GetReport(ctx context.Context, reportID int64) (*Detail, error) {
	r, err := s.store.Reports().GetByID(ctx, reportID)
	if err != nil {
		return nil, s.fail("failed to load report", err, "report_id", reportID)
	}

	ids := []int64{r.SubmitterID}
	if r.ApproverID != nil {
		ids = append(ids, *r.ApproverID)
	}
	names, err := s.store.Users().GetNames(ctx, ids)
	if err != nil {
		return nil, s.fail("failed to resolve user names", err, "report_id", reportID)
	}

	d := &Detail{
		Report:        r,
		SubmitterName: names[r.SubmitterID],
		Warnings:      s.engine.Evaluate(r.Trip(), r.PolicyItems()),
	}
	if r.ApproverID != nil {
		d.ApproverName = names[*r.ApproverID]
	}
	return d, nil
}

func (s *Service) ListReports(ctx context.Context, q ListQuery) ([]*Summary, error) {
	f, err := q.filter()
	if err != nil {
		return nil, s.fail("invalid report query", err)
	}
	return s.summaries(ctx, f)
}

// PendingApprovals lists reports waiting on the approver's role, oldest first. The approver's
// own reports are never included.
func (s *Service) PendingApprovals(ctx context.Context, approverID int64) ([]*Summary, error) {
	approver, err := s.store.Users().GetByID(ctx, approverID)
	if err != nil {
		return nil, s.fail("failed to load approver", err, "approver_id", approverID)
	}

	statuses := PendingFor(approver.Role)
	if len(statuses) == 0 {
		return []*Summary{}, nil
	}
	return s.summaries(ctx, ListFilter{
		Statuses:           statuses,
		ExcludeSubmitterID: approver.ID,
		Sort:               SortOldest,
	})
}

func (s *Service) summaries(ctx context.Context, f ListFilter) ([]*Summary, error) {
	reports, err := s.store.Reports().List(ctx, f)
	if err != nil {
		return nil, s.fail("failed to list reports", err)
	}

	seen := make(map[int64]bool)
	ids := make([]int64, 0, len(reports))
	for _, r := range reports {
		if !seen[r.SubmitterID] {
			seen[r.SubmitterID] = true
			ids = append(ids, r.SubmitterID)
		}
	}
	names, err := s.store.Users().GetNames(ctx, ids)
	if err != nil {
		return nil, s.fail("failed to resolve user names", err)
	}

	out := make([]*Summary, len(reports))
	for i, r := range reports {
		out[i] = &Summary{
			Report:        r,
			SubmitterName: names[r.SubmitterID],
			Flagged:       s.engine.Flagged(r.Trip(), r.PolicyItems()),
		}
	}
	return out, nil
}

// GetStats aggregates reports of one submitter, or of everyone when submitterID is zero.
func (s *Service) GetStats(ctx context.Context, submitterID int64) (*Stats, error) {
	if submitterID < 0 {
		return nil, s.fail("invalid stats query", internal.NewValidationError("submitter_id must be positive", internal.ErrCodeInvalidQuery))
	}
	if submitterID > 0 {
		if _, err := s.store.Users().GetByID(ctx, submitterID); err != nil {
			return nil, s.fail("failed to load submitter", err, "submitter_id", submitterID)
		}
	}

	byStatus, err := s.stats.StatusTotals(ctx, submitterID)
	if err != nil {
		return nil, s.fail("failed to load status totals", err, "submitter_id", submitterID)
	}
	byCategory, err := s.stats.CategoryTotals(ctx, submitterID)
	if err != nil {
		return nil, s.fail("failed to load category totals", err, "submitter_id", submitterID)
	}
	byMonth, err := s.stats.MonthlyTotals(ctx, submitterID)
	if err != nil {
		return nil, s.fail("failed to load monthly totals", err, "submitter_id", submitterID)
	}

	stats := &Stats{
		TotalAmount: decimal.Zero,
		ByStatus:    completeStatuses(byStatus),
		ByCategory:  byCategory,
		ByMonth:     byMonth,
	}
	for _, b := range stats.ByStatus {
		stats.ReportCount += b.Count
		stats.TotalAmount = stats.TotalAmount.Add(b.Amount)

		switch st := Status(b.Key); {
		case st == StatusApproved:
			stats.ApprovedCount += b.Count
		case st == StatusRejected:
			stats.RejectedCount += b.Count
		case st.Editable():
			stats.DraftCount += b.Count
		default:
			stats.PendingCount += b.Count
		}
	}

	sort.SliceStable(stats.ByCategory, func(i, j int) bool {
		return stats.ByCategory[i].Amount.GreaterThan(stats.ByCategory[j].Amount)
	})
	sort.SliceStable(stats.ByMonth, func(i, j int) bool {
		return stats.ByMonth[i].Key < stats.ByMonth[j].Key
	})
	return stats, nil
}

// completeStatuses returns one bucket per workflow status in canonical order, zero-filled.
func completeStatuses(rows []Bucket) []Bucket {
	byKey := make(map[string]Bucket, len(rows))
	for _, b := range rows {
		byKey[b.Key] = b
	}
	out := make([]Bucket, len(Statuses))
	for i, st := range Statuses {
		b, ok := byKey[string(st)]
		if !ok {
			b = Bucket{Key: string(st), Amount: decimal.Zero}
		}
		out[i] = b
	}
	return out
}
