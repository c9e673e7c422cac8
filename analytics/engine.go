package analytics

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// Engine loads reports through the store and aggregates them
type Engine struct {
	store databases.ReportStore
	log   *zap.SugaredLogger
}

// NewEngine returns an engine reading from store
func NewEngine(store databases.ReportStore, log *zap.SugaredLogger) *Engine {
	return &Engine{store: store, log: log}
}

// Dashboard computes every aggregate for year over one load of the reports
// matching c. On a store failure it returns the empty dashboard together with
// a StoreAccessError, never a partial result.
func (e *Engine) Dashboard(ctx context.Context, c filters.Criteria, year int) (models.Dashboard, error) {
	c.Year = year
	reports, err := e.load(ctx, c, "dashboard")
	if err != nil {
		return EmptyDashboard(year), err
	}
	return Build(reports, year), nil
}

// Rollup groups the reports matching c by one dimension
func (e *Engine) Rollup(ctx context.Context, c filters.Criteria, d Dimension) ([]models.GroupStat, error) {
	reports, err := e.load(ctx, c, "rollup")
	if err != nil {
		return []models.GroupStat{}, err
	}
	return GroupBy(reports, d), nil
}

// Hotspots clusters the reports matching c at the given cell level
func (e *Engine) Hotspots(ctx context.Context, c filters.Criteria, level int) (models.HotspotResponse, error) {
	reports, err := e.load(ctx, c, "hotspots")
	if err != nil {
		return models.HotspotResponse{Hotspots: []models.Hotspot{}, Features: HotspotFeatures(nil)}, err
	}
	hs := Hotspots(reports, level)
	return models.HotspotResponse{Hotspots: hs, Features: HotspotFeatures(hs)}, nil
}

func (e *Engine) load(ctx context.Context, c filters.Criteria, op string) ([]models.Report, error) {
	reports, err := e.store.Find(ctx, c, nil)
	if err != nil {
		e.log.Errorw("failed to load reports", "operation", op, "error", err)
		if !errors.Is(err, models.ErrStoreAccess) {
			err = &models.StoreAccessError{Op: op, Err: err}
		}
		return nil, err
	}
	return reports, nil
}
