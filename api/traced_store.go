package api

import (
	"context"
	"time"

	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// TracedStore records every store call on the request trace of its context
type TracedStore struct {
	Next databases.ReportStore
}

// NewTracedStore wraps next
func NewTracedStore(next databases.ReportStore) databases.ReportStore {
	return TracedStore{Next: next}
}

func record(ctx context.Context, op string, start time.Time, err error) {
	d := time.Since(start)
	RecordDBQueryFromContext(ctx, op, d, err)
	observeStore(op, d, err)
}

// Find calls the wrapped store
func (t TracedStore) Find(ctx context.Context, c filters.Criteria, page *databases.Paginate) ([]models.Report, error) {
	start := time.Now()
	res, err := t.Next.Find(ctx, c, page)
	record(ctx, "reports.find", start, err)
	return res, err
}

// FindOne calls the wrapped store
func (t TracedStore) FindOne(ctx context.Context, id string) (*models.Report, error) {
	start := time.Now()
	res, err := t.Next.FindOne(ctx, id)
	record(ctx, "reports.findOne", start, err)
	return res, err
}

// Insert calls the wrapped store
func (t TracedStore) Insert(ctx context.Context, r models.Report) (string, error) {
	start := time.Now()
	id, err := t.Next.Insert(ctx, r)
	record(ctx, "reports.insert", start, err)
	return id, err
}

// Update calls the wrapped store
func (t TracedStore) Update(ctx context.Context, id string, expected models.Status, u models.ReportUpdate) (bool, error) {
	start := time.Now()
	ok, err := t.Next.Update(ctx, id, expected, u)
	record(ctx, "reports.update", start, err)
	return ok, err
}

// AppendLog calls the wrapped store
func (t TracedStore) AppendLog(ctx context.Context, e models.FollowUpEntry) (string, error) {
	start := time.Now()
	id, err := t.Next.AppendLog(ctx, e)
	record(ctx, "report_logs.insert", start, err)
	return id, err
}

// Logs calls the wrapped store
func (t TracedStore) Logs(ctx context.Context, reportID string) ([]models.FollowUpEntry, error) {
	start := time.Now()
	res, err := t.Next.Logs(ctx, reportID)
	record(ctx, "report_logs.find", start, err)
	return res, err
}

// NextSequence calls the wrapped store
func (t TracedStore) NextSequence(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := t.Next.NextSequence(ctx, key)
	record(ctx, "sequences.next", start, err)
	return n, err
}

// WithTransaction runs fn with a traced view of the transaction
func (t TracedStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx databases.ReportStore) error) error {
	start := time.Now()
	err := t.Next.WithTransaction(ctx, func(ctx context.Context, tx databases.ReportStore) error {
		return fn(ctx, TracedStore{Next: tx})
	})
	record(ctx, "transaction", start, err)
	return err
}
