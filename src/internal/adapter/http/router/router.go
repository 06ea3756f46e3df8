// Package router serves the operational endpoints of the ledger process.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/gorilla/mux"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether the account store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// New returns a router with GET /healthz and, when metrics is non-nil, GET /metrics.
// A nil store is always healthy.
func New(store Pinger, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/healthz", healthHandler(store)).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()

			if err := store.PingContext(ctx); err != nil {
				logger.Error("health check store ping failed", err, nil)
				status = http.StatusServiceUnavailable
				body["status"] = "unavailable"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Debug("http response", logger.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}
