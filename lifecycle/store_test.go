package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// memStore is an in-memory ReportStore whose transactions roll back on error
type memStore struct {
	mu       sync.Mutex
	reports  map[string]models.Report
	logs     []models.FollowUpEntry
	seqs     map[string]int64
	updates  int
	failLogs error
}

func newMemStore(reports ...models.Report) *memStore {
	m := &memStore{reports: map[string]models.Report{}, seqs: map[string]int64{}}
	for _, r := range reports {
		m.reports[r.ID] = r
	}
	return m
}

func (m *memStore) Find(_ context.Context, c filters.Criteria, _ *databases.Paginate) ([]models.Report, error) {
	var out []models.Report
	for _, r := range m.reports {
		if c.ReporterID != "" && r.ReporterID != c.ReporterID {
			continue
		}
		if c.Status != "" && r.Status != c.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) FindOne(_ context.Context, id string) (*models.Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (m *memStore) Insert(_ context.Context, r models.Report) (string, error) {
	if _, dup := m.reports[r.ID]; dup {
		return "", &models.StoreAccessError{Op: "insert report", Err: fmt.Errorf("duplicate id %s", r.ID)}
	}
	m.reports[r.ID] = r
	return r.ID, nil
}

func (m *memStore) Update(_ context.Context, id string, expected models.Status, u models.ReportUpdate) (bool, error) {
	r, ok := m.reports[id]
	if !ok || r.Status != expected {
		return false, nil
	}
	u.Apply(&r)
	m.reports[id] = r
	m.updates++
	return true, nil
}

func (m *memStore) AppendLog(_ context.Context, e models.FollowUpEntry) (string, error) {
	if m.failLogs != nil {
		return "", &models.StoreAccessError{Op: "append log", Err: m.failLogs}
	}
	m.logs = append(m.logs, e)
	return e.ID, nil
}

func (m *memStore) Logs(_ context.Context, reportID string) ([]models.FollowUpEntry, error) {
	var out []models.FollowUpEntry
	for _, e := range m.logs {
		if e.ReportID == reportID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) NextSequence(_ context.Context, key string) (int64, error) {
	m.seqs[key]++
	return m.seqs[key], nil
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx databases.ReportStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reports := make(map[string]models.Report, len(m.reports))
	for k, v := range m.reports {
		reports[k] = v
	}
	logs := append([]models.FollowUpEntry(nil), m.logs...)
	updates := m.updates

	if err := fn(ctx, m); err != nil {
		m.reports, m.logs, m.updates = reports, logs, updates
		return err
	}
	return nil
}

func (m *memStore) entries(reportID string) []models.FollowUpEntry {
	logs, _ := m.Logs(context.Background(), reportID)
	return logs
}

var errDisk = errors.New("disk full")
