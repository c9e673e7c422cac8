package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/linesmerrill/traffic-portal-api/api"
	"github.com/linesmerrill/traffic-portal-api/config"
)

// MetricsHandler serves the request metrics collected by api.MetricsMiddleware
type MetricsHandler struct{}

// MetricsDashboardResponse is the full metrics payload
type MetricsDashboardResponse struct {
	Summary      api.MetricsSummary `json:"summary"`
	Slowest      []api.RouteMetrics `json:"slowest"`
	MostFrequent []api.RouteMetrics `json:"mostFrequent"`
	RecentTraces []api.RequestTrace `json:"recentTraces"`
	Pagination   Pagination         `json:"pagination"`
	Since        time.Time          `json:"since"`
}

// Pagination describes a window into a longer list
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

func intParam(r *http.Request, key string, fallback, min int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= min {
		return v
	}
	return fallback
}

// GetMetricsDashboard returns the summary, route rankings and recent traces
func (m MetricsHandler) GetMetricsDashboard(w http.ResponseWriter, r *http.Request) {
	metrics := api.GetMetrics()
	limit := intParam(r, "limit", 20, 1)
	offset := intParam(r, "offset", 0, 0)

	since := time.Now().Add(-time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			config.ErrorStatus("invalid since duration", http.StatusBadRequest, w, err)
			return
		}
		since = time.Now().Add(-d)
	}

	total := metrics.GetRoutesCount()
	traces := metrics.GetTraces(limit, since)
	if traces == nil {
		traces = []api.RequestTrace{}
	}
	api.WriteJSON(w, http.StatusOK, MetricsDashboardResponse{
		Summary:      metrics.GetSummary(),
		Slowest:      metrics.GetSlowestRoutes(limit, offset),
		MostFrequent: metrics.GetMostFrequentRoutes(limit, offset),
		RecentTraces: traces,
		Pagination:   Pagination{Limit: limit, Offset: offset, Total: total, HasMore: offset+limit < total},
		Since:        since,
	})
}

// GetMetricsSummary returns just the summary metrics
func (m MetricsHandler) GetMetricsSummary(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, api.GetMetrics().GetSummary())
}

// GetRouteMetrics returns the metrics of one route, selected by method and
// normalized path
func (m MetricsHandler) GetRouteMetrics(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("method")
	path := r.URL.Query().Get("path")
	if method == "" || path == "" {
		config.ErrorStatus("method and path are required", http.StatusBadRequest, w, nil)
		return
	}
	rm, ok := api.GetMetrics().GetRouteMetrics()[method+" "+path]
	if !ok {
		config.ErrorStatus("route not found", http.StatusNotFound, w, nil)
		return
	}
	api.WriteJSON(w, http.StatusOK, rm)
}
