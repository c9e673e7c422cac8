package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	// RequestsTotal counts handled requests by method, normalized route and status
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traffic_portal",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests, labeled by method, normalized route and status code.",
	}, []string{"method", "route", "status"})

	// RequestDurationSeconds is the end-to-end handler time
	RequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "traffic_portal",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving an HTTP request.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	// StoreQueryDurationSeconds is the time of one report store call
	StoreQueryDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "traffic_portal",
		Subsystem: "store",
		Name:      "query_duration_seconds",
		Help:      "Time spent in report store calls, labeled by operation and result.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"operation", "result"})

	// OverdueReports is the number of open reports past their estimated
	// completion at the last sweep
	OverdueReports = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "traffic_portal",
		Subsystem: "lifecycle",
		Name:      "overdue_reports",
		Help:      "Open reports past their estimated completion date at the last overdue sweep.",
	})
)

// RegisterPrometheus registers the portal collectors with the default
// registry. Safe to call multiple times.
func RegisterPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestDurationSeconds,
			StoreQueryDurationSeconds,
			OverdueReports,
		)
	})
}

// PrometheusHandler serves the default registry in the exposition format
func PrometheusHandler() http.Handler {
	RegisterPrometheus()
	return promhttp.Handler()
}

func observeRequest(method, path string, status int, d time.Duration) {
	route := normalizeRoutePath(path)
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

func observeStore(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreQueryDurationSeconds.WithLabelValues(op, result).Observe(d.Seconds())
}
