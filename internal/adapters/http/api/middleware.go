package api

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/bodytrack/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest    = 400
	statusNotFound      = 404
	statusInternalError = 500
)

// errorTypeUpgrade labels stream requests that never became a websocket.
const errorTypeUpgrade = "upgrade_failed"

var errNoHijack = errors.New("response writer cannot hijack")

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics. Errors
// are labelled with the API error code the handler wrote, falling back to a
// class derived from the status.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		record(endpoint, r.Method, wrapped, start)
		if wrapped.statusCode >= statusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, wrapped.errorType())
		}
	}
}

// StreamMiddleware records websocket endpoints. A request counts as served
// once its connection is hijacked; anything else is a failed upgrade. The
// duration of a served stream covers the upgrade only.
func StreamMiddleware(next http.Handler, endpoint string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		wrapped.onHijack = func() { record(endpoint, r.Method, wrapped, start) }

		next.ServeHTTP(wrapped, r)

		if wrapped.hijacked {
			return
		}
		record(endpoint, r.Method, wrapped, start)
		if wrapped.statusCode != http.StatusSwitchingProtocols {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorTypeUpgrade)
		}
	})
}

func record(endpoint, method string, rw *responseWriter, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000
	status := strconv.Itoa(rw.statusCode)
	metrics.RecordHTTPRequest(endpoint, method, status)
	metrics.RecordHTTPRequestDuration(endpoint, method, status, durationMs)
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode == http.StatusServiceUnavailable:
		return "unavailable"
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code, the
// API error code and whether the connection was taken over.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	code       string
	hijacked   bool
	onHijack   func()
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// Hijack hands the connection to a websocket upgrader.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errNoHijack
	}
	conn, buf, err := h.Hijack()
	if err != nil {
		return nil, nil, err
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.hijacked = true
	if rw.onHijack != nil {
		rw.onHijack()
	}
	return conn, buf, nil
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func (rw *responseWriter) setErrorCode(code string) { rw.code = code }

func (rw *responseWriter) errorType() string {
	if rw.code != "" {
		return rw.code
	}
	return getErrorType(rw.statusCode)
}
