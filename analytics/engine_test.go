package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/analytics"
	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/databases/mocks"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

func TestEngine_DashboardScopesToYear(t *testing.T) {
	store := &mocks.ReportStore{}
	store.On("Find", mock.Anything, filters.Criteria{Year: 2025, Locality: "Poblacion"}, (*databases.Paginate)(nil)).
		Return([]models.Report{report("Pothole", 3), report("Flood", -1)}, nil)

	e := analytics.NewEngine(store, zap.NewNop().Sugar())
	d, err := e.Dashboard(context.Background(), filters.Criteria{Locality: "Poblacion"}, 2025)
	require.NoError(t, err)

	assert.Equal(t, 2025, d.Year)
	assert.Equal(t, 2, d.Counters.Total)
	assert.Equal(t, 2, d.Trend[2].Filed)
	assert.Equal(t, 1, d.Trend[2].Resolved)
	store.AssertExpectations(t)
}

func TestEngine_DashboardStoreFailureReturnsEmpty(t *testing.T) {
	store := &mocks.ReportStore{}
	store.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &models.StoreAccessError{Op: "find reports", Err: errors.New("i/o timeout")})

	e := analytics.NewEngine(store, zap.NewNop().Sugar())
	d, err := e.Dashboard(context.Background(), filters.Criteria{}, 2024)

	assert.True(t, errors.Is(err, models.ErrStoreAccess))
	if diff := cmp.Diff(analytics.EmptyDashboard(2024), d, decimalEqual); diff != "" {
		t.Errorf("dashboard mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_RollupWrapsPlainErrors(t *testing.T) {
	store := &mocks.ReportStore{}
	store.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	e := analytics.NewEngine(store, zap.NewNop().Sugar())
	rows, err := e.Rollup(context.Background(), filters.Criteria{}, analytics.DimensionKind)

	assert.Empty(t, rows)
	var se *models.StoreAccessError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "rollup", se.Op)
}

func TestHotspots(t *testing.T) {
	at := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	near := func(lat, lng float64, status models.Status) models.Report {
		return models.Report{Coordinates: &models.Coordinates{Lat: lat, Lng: lng}, Status: status, ReportedAt: at}
	}
	reports := []models.Report{
		near(14.5995, 120.9842, models.StatusPending),
		near(14.5996, 120.9843, models.StatusResolved),
		near(14.5994, 120.9841, models.StatusInProgress),
		near(10.3157, 123.8854, models.StatusRejected),
		{Status: models.StatusPending, ReportedAt: at},
	}

	hs := analytics.Hotspots(reports, 13)
	require.Len(t, hs, 2)
	assert.Equal(t, 3, hs[0].Total)
	assert.Equal(t, 2, hs[0].Unresolved)
	assert.Equal(t, 13, hs[0].Level)
	assert.InDelta(t, 14.5995, hs[0].Lat, 0.05)
	assert.Equal(t, 1, hs[1].Total)
	assert.Equal(t, 0, hs[1].Unresolved)

	fc := analytics.HotspotFeatures(hs)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, hs[0].Token, fc.Features[0].ID)
	assert.True(t, fc.Features[0].Geometry.IsPoint())
	assert.Equal(t, 3, fc.Features[0].Properties["total"])

	// out of range levels fall back to the default
	assert.Equal(t, analytics.DefaultHotspotLevel, analytics.Hotspots(reports, 99)[0].Level)
}

func TestEngine_Hotspots(t *testing.T) {
	store := &mocks.ReportStore{}
	store.On("Find", mock.Anything, filters.Criteria{Kind: models.KindIncident}, (*databases.Paginate)(nil)).
		Return([]models.Report{{Coordinates: &models.Coordinates{Lat: 14.6, Lng: 121}, Status: models.StatusPending}}, nil)

	e := analytics.NewEngine(store, zap.NewNop().Sugar())
	resp, err := e.Hotspots(context.Background(), filters.Criteria{Kind: models.KindIncident}, 10)
	require.NoError(t, err)
	assert.Len(t, resp.Hotspots, 1)
	assert.Len(t, resp.Features.Features, 1)
}
