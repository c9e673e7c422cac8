package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/api"
	"github.com/linesmerrill/traffic-portal-api/api/handlers"
	"github.com/linesmerrill/traffic-portal-api/config"
	"github.com/linesmerrill/traffic-portal-api/databases/mocks"
	"github.com/linesmerrill/traffic-portal-api/events"
)

func newApp() *handlers.App {
	a := &handlers.App{
		Config: config.Config{JWTSecret: "test-secret", RequestTimeout: time.Second},
		Store:  &mocks.ReportStore{},
		Users:  &mocks.UserDatabase{},
		Hub:    events.NewHub(zap.NewNop().Sugar()),
	}
	a.Router = a.New()
	return a
}

func executeRequest(a *handlers.App, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheckRoute(t *testing.T) {
	a := newApp()
	rr := executeRequest(a, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"alive":true}`, rr.Body.String())
}

func TestProtectedRoutesNeedCredentials(t *testing.T) {
	a := newApp()
	routes := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/reports"},
		{"POST", "/api/v1/reports"},
		{"GET", "/api/v1/reports/RCR-2025-0001"},
		{"POST", "/api/v1/reports/r1/verify"},
		{"POST", "/api/v1/reports/r1/follow-ups"},
		{"GET", "/api/v1/analytics/dashboard"},
		{"GET", "/api/v1/analytics/hotspots"},
		{"GET", "/api/v1/live/status"},
		{"POST", "/api/v1/auth/token"},
		{"GET", "/api/v2/metrics"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rr := executeRequest(a, httptest.NewRequest(rt.method, rt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestApp_MalformedBearerToken(t *testing.T) {
	a := newApp()
	req := httptest.NewRequest("GET", "/api/v1/reports", nil)
	req.Header.Set("Authorization", "Bearer asdfasdf")
	rr := executeRequest(a, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestApp_ShutdownWithoutInitialize(t *testing.T) {
	a := &handlers.App{}
	assert.NoError(t, a.Shutdown(context.Background()))
}

func TestApp_InitializeNeedsSecret(t *testing.T) {
	a := &handlers.App{}
	err := a.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestApp_InitializeUnknownDriver(t *testing.T) {
	a := &handlers.App{Config: config.Config{JWTSecret: "s", DBDriver: "postgres"}}
	err := a.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestLiveStatusHandler(t *testing.T) {
	l := handlers.Live{Hub: events.NewHub(zap.NewNop().Sugar())}
	rr := httptest.NewRecorder()
	l.LiveStatusHandler(rr, as(httptest.NewRequest("GET", "/api/v1/live/status", nil), employee))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"clients":0}`, rr.Body.String())
}

func TestMetricsHandlers(t *testing.T) {
	mc := api.InitMetrics(100, time.Hour)
	defer mc.Stop()
	mc.RecordTrace(api.RequestTrace{
		Method: "GET", Path: "/api/v1/reports", Status: http.StatusOK,
		StartTime: time.Now(), TotalDuration: 20 * time.Millisecond,
	})
	require.Eventually(t, func() bool { return mc.GetRoutesCount() == 1 }, time.Second, 10*time.Millisecond)

	m := handlers.MetricsHandler{}

	t.Run("dashboard", func(t *testing.T) {
		rr := httptest.NewRecorder()
		m.GetMetricsDashboard(rr, httptest.NewRequest("GET", "/api/v2/metrics?limit=5", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var body handlers.MetricsDashboardResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Pagination.Total)
		assert.False(t, body.Pagination.HasMore)
		require.Len(t, body.Slowest, 1)
		assert.Equal(t, "/api/v1/reports", body.Slowest[0].Path)
	})

	t.Run("invalid since", func(t *testing.T) {
		rr := httptest.NewRecorder()
		m.GetMetricsDashboard(rr, httptest.NewRequest("GET", "/api/v2/metrics?since=yesterday", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("summary", func(t *testing.T) {
		rr := httptest.NewRecorder()
		m.GetMetricsSummary(rr, httptest.NewRequest("GET", "/api/v2/metrics/summary", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		var summary api.MetricsSummary
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	})

	t.Run("route", func(t *testing.T) {
		rr := httptest.NewRecorder()
		m.GetRouteMetrics(rr, httptest.NewRequest("GET", "/api/v2/metrics/route?method=GET&path=/api/v1/reports", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var rm api.RouteMetrics
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rm))
		assert.Equal(t, int64(1), rm.Count)
	})

	t.Run("route errors", func(t *testing.T) {
		rr := httptest.NewRecorder()
		m.GetRouteMetrics(rr, httptest.NewRequest("GET", "/api/v2/metrics/route?method=GET", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = httptest.NewRecorder()
		m.GetRouteMetrics(rr, httptest.NewRequest("GET", "/api/v2/metrics/route?method=GET&path=/nope", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
