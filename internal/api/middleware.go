package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/swarmdeck/core/internal/logging"
	"github.com/swarmdeck/core/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs one line per request with method, path, status,
// and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	log := logging.WithComponent("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sr.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// recoveryMiddleware converts a panicking handler into a 500 response
// instead of taking down the process.
func recoveryMiddleware(next http.Handler) http.Handler {
	log := logging.WithComponent("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("recovered from panic")
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request counts and latency histograms per
// (method, path-template, status).
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tmpl, err := cr.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(sr.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// jsonContentTypeMiddleware rejects a POST, PATCH or PUT whose body is
// declared with a non-JSON Content-Type, mirroring spec's "all bodies are
// JSON" contract. A body sent without any Content-Type header is accepted.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			if r.ContentLength > 0 {
				ct := r.Header.Get("Content-Type")
				if ct != "" && !strings.HasPrefix(ct, "application/json") {
					writeJSON(w, http.StatusBadRequest, errorBody{Error: "Content-Type must be application/json"})
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
