package api

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// RequestTrace tracks timing for a single request
type RequestTrace struct {
	RequestID     string         `json:"requestId"`
	Method        string         `json:"method"`
	Path          string         `json:"path"`
	Status        int            `json:"status"`
	ActorRole     string         `json:"actorRole,omitempty"`
	StartTime     time.Time      `json:"startTime"`
	EndTime       time.Time      `json:"endTime"`
	TotalDuration time.Duration  `json:"totalDuration"`
	DBQueries     []DBQueryTrace `json:"dbQueries"`
	DBTotalTime   time.Duration  `json:"dbTotalTime"`
	Error         string         `json:"error,omitempty"`
}

// DBQueryTrace tracks a single store call
type DBQueryTrace struct {
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// RouteMetrics aggregates metrics for a normalized route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	P50Time     time.Duration `json:"p50Time"`
	P95Time     time.Duration `json:"p95Time"`
	P99Time     time.Duration `json:"p99Time"`
	DBTotalTime time.Duration `json:"dbTotalTime"`
	DBAvgTime   time.Duration `json:"dbAvgTime"`
	LastRequest time.Time     `json:"lastRequest"`
}

// MetricsSummary holds the totals of the current window
type MetricsSummary struct {
	TotalRequests  int64     `json:"totalRequests"`
	TotalErrors    int64     `json:"totalErrors"`
	ErrorRate      float64   `json:"errorRate"`
	TPS            float64   `json:"tps"`
	TotalDBQueries int64     `json:"totalDBQueries"`
	TotalDBTime    string    `json:"totalDBTime"`
	AvgDBTime      string    `json:"avgDBTime"`
	WindowStart    time.Time `json:"windowStart"`
	WindowEnd      time.Time `json:"windowEnd"`
	RouteCount     int       `json:"routeCount"`
	TraceCount     int       `json:"traceCount"`
}

// MetricsCollector collects and aggregates request metrics. Traces are
// queued on a buffered channel and dropped when it is full, so recording
// never blocks a request.
type MetricsCollector struct {
	mu             sync.RWMutex
	traces         []RequestTrace
	maxTraces      int
	routeMetrics   map[string]*RouteMetrics
	windowStart    time.Time
	windowDuration time.Duration
	totalRequests  int64
	totalErrors    int64
	totalDBQueries int64
	totalDBTime    time.Duration
	traceChan      chan RequestTrace
	stopChan       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
}

var (
	globalMu      sync.Mutex
	globalMetrics *MetricsCollector
)

func newCollector(maxTraces int, windowDuration time.Duration) *MetricsCollector {
	return &MetricsCollector{
		traces:         make([]RequestTrace, 0, maxTraces),
		maxTraces:      maxTraces,
		routeMetrics:   make(map[string]*RouteMetrics),
		windowStart:    time.Now(),
		windowDuration: windowDuration,
		traceChan:      make(chan RequestTrace, 1000),
		stopChan:       make(chan struct{}),
	}
}

// InitMetrics replaces the global metrics collector and starts its workers
func InitMetrics(maxTraces int, windowDuration time.Duration) *MetricsCollector {
	mc := newCollector(maxTraces, windowDuration)
	mc.wg.Add(2)
	go mc.processTraces()
	go mc.cleanup(5 * time.Minute)

	globalMu.Lock()
	old := globalMetrics
	globalMetrics = mc
	globalMu.Unlock()
	if old != nil {
		old.Stop()
	}
	return mc
}

// GetMetrics returns the global metrics collector
func GetMetrics() *MetricsCollector {
	globalMu.Lock()
	mc := globalMetrics
	globalMu.Unlock()
	if mc == nil {
		return InitMetrics(10000, time.Hour)
	}
	return mc
}

// Stop ends the background workers and waits for them
func (mc *MetricsCollector) Stop() {
	mc.stopOnce.Do(func() { close(mc.stopChan) })
	mc.wg.Wait()
}

// RecordTrace queues a trace without blocking. The trace is dropped when the
// queue is full.
func (mc *MetricsCollector) RecordTrace(trace RequestTrace) {
	select {
	case mc.traceChan <- trace:
	default:
	}
}

func (mc *MetricsCollector) processTraces() {
	defer mc.wg.Done()
	for {
		select {
		case trace := <-mc.traceChan:
			mc.processTrace(trace)
		case <-mc.stopChan:
			return
		}
	}
}

func (mc *MetricsCollector) processTrace(trace RequestTrace) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.traces) >= mc.maxTraces {
		mc.traces = mc.traces[1:]
	}
	trace.Path = normalizeRoutePath(trace.Path)
	mc.traces = append(mc.traces, trace)

	routeKey := trace.Method + " " + trace.Path
	metrics, exists := mc.routeMetrics[routeKey]
	if !exists {
		metrics = &RouteMetrics{Method: trace.Method, Path: trace.Path, MinTime: trace.TotalDuration}
		mc.routeMetrics[routeKey] = metrics
	}

	metrics.Count++
	metrics.TotalTime += trace.TotalDuration
	metrics.AvgTime = metrics.TotalTime / time.Duration(metrics.Count)
	metrics.LastRequest = trace.StartTime
	if trace.TotalDuration < metrics.MinTime {
		metrics.MinTime = trace.TotalDuration
	}
	if trace.TotalDuration > metrics.MaxTime {
		metrics.MaxTime = trace.TotalDuration
	}
	if trace.Status >= 400 {
		metrics.ErrorCount++
		mc.totalErrors++
	}
	metrics.DBTotalTime += trace.DBTotalTime
	metrics.DBAvgTime = metrics.DBTotalTime / time.Duration(metrics.Count)

	mc.totalRequests++
	mc.totalDBQueries += int64(len(trace.DBQueries))
	mc.totalDBTime += trace.DBTotalTime

	// percentiles are refreshed early and then every 100 requests
	if metrics.Count <= 10 || metrics.Count%100 == 0 {
		mc.calculatePercentiles(routeKey)
	}
}

// GetTraces returns up to limit of the most recent traces started after since,
// oldest first
func (mc *MetricsCollector) GetTraces(limit int, since time.Time) []RequestTrace {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	var filtered []RequestTrace
	for i := len(mc.traces) - 1; i >= 0 && len(filtered) < limit; i-- {
		if mc.traces[i].StartTime.After(since) {
			filtered = append(filtered, mc.traces[i])
		}
	}
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}
	return filtered
}

// GetRouteMetrics returns a copy of the metrics of every route
func (mc *MetricsCollector) GetRouteMetrics() map[string]RouteMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]RouteMetrics, len(mc.routeMetrics))
	for k, v := range mc.routeMetrics {
		result[k] = *v
	}
	return result
}

// GetSummary returns overall summary metrics
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	elapsed := time.Since(mc.windowStart)
	if elapsed > mc.windowDuration {
		elapsed = mc.windowDuration
	}
	s := MetricsSummary{
		TotalRequests:  mc.totalRequests,
		TotalErrors:    mc.totalErrors,
		TotalDBQueries: mc.totalDBQueries,
		TotalDBTime:    mc.totalDBTime.String(),
		AvgDBTime:      time.Duration(0).String(),
		WindowStart:    mc.windowStart,
		WindowEnd:      mc.windowStart.Add(mc.windowDuration),
		RouteCount:     len(mc.routeMetrics),
		TraceCount:     len(mc.traces),
	}
	if elapsed.Seconds() > 0 {
		s.TPS = float64(mc.totalRequests) / elapsed.Seconds()
	}
	if mc.totalRequests > 0 {
		s.ErrorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}
	if mc.totalDBQueries > 0 {
		s.AvgDBTime = (mc.totalDBTime / time.Duration(mc.totalDBQueries)).String()
	}
	return s
}

var (
	uuidSegment       = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
	objectIDSegment   = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)
	reportCodeSegment = regexp.MustCompile(`/[A-Z]{3}-\d{4}-\d{4,}(/|$)`)
	numericSegment    = regexp.MustCompile(`/\d+(/|$)`)
)

// normalizeRoutePath replaces id segments with {id} so requests for different
// reports share one route, e.g. /api/v1/reports/<uuid>/assign becomes
// /api/v1/reports/{id}/assign
func normalizeRoutePath(path string) string {
	for _, re := range []*regexp.Regexp{uuidSegment, objectIDSegment, reportCodeSegment, numericSegment} {
		path = re.ReplaceAllString(path, "/{id}$1")
	}
	path = strings.ReplaceAll(path, "//", "/")
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

// GetSlowestRoutes returns routes by average time, slowest first
func (mc *MetricsCollector) GetSlowestRoutes(limit, offset int) []RouteMetrics {
	return mc.sortedRoutes(limit, offset, func(a, b RouteMetrics) bool { return a.AvgTime > b.AvgTime })
}

// GetMostFrequentRoutes returns routes by request count, busiest first
func (mc *MetricsCollector) GetMostFrequentRoutes(limit, offset int) []RouteMetrics {
	return mc.sortedRoutes(limit, offset, func(a, b RouteMetrics) bool { return a.Count > b.Count })
}

// GetRoutesCount returns the number of distinct routes seen
func (mc *MetricsCollector) GetRoutesCount() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.routeMetrics)
}

func (mc *MetricsCollector) sortedRoutes(limit, offset int, less func(a, b RouteMetrics) bool) []RouteMetrics {
	mc.mu.RLock()
	routes := make([]RouteMetrics, 0, len(mc.routeMetrics))
	for _, m := range mc.routeMetrics {
		routes = append(routes, *m)
	}
	mc.mu.RUnlock()

	sort.Slice(routes, func(i, j int) bool {
		if less(routes[i], routes[j]) {
			return true
		}
		if less(routes[j], routes[i]) {
			return false
		}
		return routes[i].Method+routes[i].Path < routes[j].Method+routes[j].Path
	})

	if offset >= len(routes) {
		return []RouteMetrics{}
	}
	end := offset + limit
	if end > len(routes) {
		end = len(routes)
	}
	return routes[offset:end]
}

func (mc *MetricsCollector) calculatePercentiles(routeKey string) {
	metrics := mc.routeMetrics[routeKey]
	if metrics == nil {
		return
	}

	var durations []time.Duration
	for _, trace := range mc.traces {
		if trace.Method+" "+trace.Path == routeKey {
			durations = append(durations, trace.TotalDuration)
		}
	}
	if len(durations) == 0 {
		return
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	at := func(p float64) time.Duration {
		i := int(float64(len(durations)) * p)
		if i >= len(durations) {
			i = len(durations) - 1
		}
		return durations[i]
	}
	metrics.P50Time = at(0.50)
	metrics.P95Time = at(0.95)
	metrics.P99Time = at(0.99)
}

func (mc *MetricsCollector) cleanup(every time.Duration) {
	defer mc.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-mc.stopChan:
			return
		case now := <-ticker.C:
			mc.expire(now)
		}
	}
}

// expire drops traces older than the window and restarts an elapsed window
func (mc *MetricsCollector) expire(now time.Time) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	cutoff := now.Add(-mc.windowDuration)
	valid := mc.traces[:0]
	for _, trace := range mc.traces {
		if trace.StartTime.After(cutoff) {
			valid = append(valid, trace)
		}
	}
	mc.traces = valid

	if now.Sub(mc.windowStart) > mc.windowDuration {
		mc.windowStart = now
	}
}

type requestTraceContextKey struct{}

type requestTraceContext struct {
	trace *RequestTrace
	mu    sync.Mutex
}

// WithRequestTrace adds request trace to context
func WithRequestTrace(ctx context.Context, trace *RequestTrace) context.Context {
	return context.WithValue(ctx, requestTraceContextKey{}, &requestTraceContext{trace: trace})
}

func traceActorRole(ctx context.Context, role string) {
	reqTrace, _ := ctx.Value(requestTraceContextKey{}).(*requestTraceContext)
	if reqTrace == nil || reqTrace.trace == nil {
		return
	}
	reqTrace.mu.Lock()
	reqTrace.trace.ActorRole = role
	reqTrace.mu.Unlock()
}

// RecordDBQueryFromContext appends a store call to the request trace on ctx.
// It does nothing when ctx carries no trace.
func RecordDBQueryFromContext(ctx context.Context, operation string, duration time.Duration, err error) {
	reqTrace, _ := ctx.Value(requestTraceContextKey{}).(*requestTraceContext)
	if reqTrace == nil || reqTrace.trace == nil {
		return
	}

	q := DBQueryTrace{Operation: operation, Duration: duration, Timestamp: time.Now()}
	if err != nil {
		q.Error = err.Error()
	}
	reqTrace.mu.Lock()
	reqTrace.trace.DBQueries = append(reqTrace.trace.DBQueries, q)
	reqTrace.trace.DBTotalTime += duration
	reqTrace.mu.Unlock()
}
