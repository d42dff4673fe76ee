package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const slowRequestThreshold = time.Second

// MetricsMiddleware tags every request with an id, records its latency under the
// route template and logs slow or failed requests
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/metrics" || path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		startTime := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		wrappedWriter := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		requestsInFlight.Inc()
		next.ServeHTTP(wrappedWriter, r)
		requestsInFlight.Dec()

		totalDuration := time.Since(startTime)
		route := routeTemplate(r)
		requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(wrappedWriter.statusCode)).
			Observe(totalDuration.Seconds())

		if totalDuration > slowRequestThreshold {
			zap.S().Warnw("Slow request detected",
				"requestId", requestID,
				"method", r.Method,
				"route", route,
				"duration", totalDuration,
				"status", wrappedWriter.statusCode)
		}
		if wrappedWriter.statusCode >= http.StatusInternalServerError {
			zap.S().Errorw("request failed",
				"requestId", requestID,
				"method", r.Method,
				"route", route,
				"status", wrappedWriter.statusCode)
		}
	})
}

// routeTemplate keeps ids out of the metric labels
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture status code
// It implements http.Hijacker to support WebSocket upgrades
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}
