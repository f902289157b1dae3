// Package middleware wraps HTTP handlers with request logging and metrics
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	// Packages
	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	metrics "github.com/mutablelogic/go-upload/pkg/metrics"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// RouteFunc returns the route label for a request
type RouteFunc func(*http.Request) string

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Logger logs each request at INFO, client errors at WARN and server errors
// at ERROR
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			code := status(ww)
			level := slog.LevelInfo
			if code >= 500 {
				level = slog.LevelError
			} else if code >= 400 {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", code),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}

// Metrics records request counts and durations by route. Routes come from
// the route function so upload ids do not become labels.
func Metrics(route RouteFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			metrics.Request(r.Method, route(r), status(ww), time.Since(start))
		})
	}
}

// ChiRoute returns the matched chi route pattern, or "unmatched"
func ChiRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// status returns 200 when the handler wrote nothing
func status(ww chimw.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
