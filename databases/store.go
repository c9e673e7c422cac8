package databases

// go generate: mockery --name ReportStore

import (
	"context"

	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// ReportStore is the narrow persistence interface the lifecycle service and
// the analytics engine work through. Every query is parameterized.
type ReportStore interface {
	// Find returns the reports matching the criteria, newest first. A nil
	// page returns every match.
	Find(ctx context.Context, c filters.Criteria, page *Paginate) ([]models.Report, error)
	// FindOne returns models.ErrNotFound when no report has the id.
	FindOne(ctx context.Context, id string) (*models.Report, error)
	Insert(ctx context.Context, r models.Report) (string, error)
	// Update applies u only while the report still has the expected status.
	// It returns false when nothing matched.
	Update(ctx context.Context, id string, expected models.Status, u models.ReportUpdate) (bool, error)
	AppendLog(ctx context.Context, e models.FollowUpEntry) (string, error)
	Logs(ctx context.Context, reportID string) ([]models.FollowUpEntry, error)
	// NextSequence increments and returns the named counter.
	NextSequence(ctx context.Context, key string) (int64, error)
	// WithTransaction runs fn so that every write made through tx commits or
	// rolls back together.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ReportStore) error) error
}

// Paginate selects one page of results
type Paginate struct {
	Limit int64
	Page  int64
}

// NewPaginate returns a page selector; a page below 1 is the first page
func NewPaginate(limit, page int) *Paginate {
	if page < 1 {
		page = 1
	}
	return &Paginate{
		Limit: int64(limit),
		Page:  int64(page),
	}
}

// Skip returns the number of rows before the page
func (p *Paginate) Skip() int64 {
	return p.Page*p.Limit - p.Limit
}

func storeErr(op string, err error) error {
	return &models.StoreAccessError{Op: op, Err: err}
}
