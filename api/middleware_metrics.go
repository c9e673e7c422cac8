package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlowRequestThreshold is the duration above which a request is logged
const SlowRequestThreshold = time.Second

// MetricsMiddleware tracks request timing and store calls
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || strings.HasPrefix(path, "/api/v2/metrics") {
			next.ServeHTTP(w, r)
			return
		}

		startTime := time.Now()
		trace := &RequestTrace{
			RequestID: uuid.New().String(),
			Method:    r.Method,
			Path:      path,
			StartTime: startTime,
			DBQueries: make([]DBQueryTrace, 0),
		}
		ctx := WithRequestTrace(r.Context(), trace)
		rtc := ctx.Value(requestTraceContextKey{}).(*requestTraceContext)

		wrappedWriter := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrappedWriter, r.WithContext(ctx))

		rtc.mu.Lock()
		done := *trace
		done.DBQueries = append([]DBQueryTrace(nil), trace.DBQueries...)
		rtc.mu.Unlock()

		done.EndTime = time.Now()
		done.TotalDuration = done.EndTime.Sub(startTime)
		done.Status = wrappedWriter.statusCode
		if done.Status >= 400 {
			done.Error = http.StatusText(done.Status)
		}
		GetMetrics().RecordTrace(done)
		observeRequest(done.Method, done.Path, done.Status, done.TotalDuration)

		if done.TotalDuration > SlowRequestThreshold {
			zap.S().Warnw("slow request",
				"requestId", done.RequestID,
				"method", done.Method,
				"path", done.Path,
				"duration", done.TotalDuration,
				"status", done.Status,
				"dbQueries", len(done.DBQueries),
				"dbTime", done.DBTotalTime,
			)
		}
	})
}

// responseWriter captures the status code. It implements http.Hijacker so
// the live feed can upgrade through it.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}
