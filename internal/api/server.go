// Package api provides the HTTP server for SmartSaver.
// It exposes the ledger as a JSON API plus a live event feed.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartsaver/smartsaver/internal/app/ledger"
	"github.com/smartsaver/smartsaver/internal/domain"
	"github.com/smartsaver/smartsaver/internal/infra/observability"
)

// Version is reported by /api/version.
var Version = "0.1.0"

// AdminHeader carries the admin password on privileged routes.
const AdminHeader = "X-Admin-Password"

// Server is the SmartSaver HTTP API server.
type Server struct {
	svc            *ledger.Service
	log            logrus.FieldLogger
	metricsEnabled bool
	hub            *EventHub
	limiter        *RateLimiter
	tracer         *observability.Tracer
}

// NewServer creates a new API server.
func NewServer(svc *ledger.Service, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		svc:     svc,
		log:     log,
		limiter: NewRateLimiter(10, time.Minute, log),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetEventHub sets the live event SSE hub.
func (s *Server) SetEventHub(h *EventHub) { s.hub = h }

// EventHub returns the live event hub.
func (s *Server) EventHub() *EventHub { return s.hub }

// SetAdminRateLimit allows perMinute admin attempts per client.
func (s *Server) SetAdminRateLimit(perMinute int) {
	s.limiter = NewRateLimiter(perMinute, time.Minute, s.log)
}

// SetTracer exposes recent operation spans on the admin API.
func (s *Server) SetTracer(t *observability.Tracer) { s.tracer = t }

// traceRequest groups the operations of one request under its request ID.
func traceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(observability.WithTraceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(traceRequest)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	r.Route("/api", func(r chi.Router) {
		// Requests that mutate or read through the service share one timeout;
		// the SSE feed below stays open.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/state", s.handleState)
			r.Get("/settlement/preview", s.handlePreview)
			r.Post("/settlement/check", s.handleCheckSettlement)
			r.Get("/settlements", s.handleSettlements)

			r.Post("/income", s.handleIncome)
			r.Post("/expense", s.handleExpense)

			r.Get("/goals", s.handleListGoals)
			r.Post("/goals", s.handleCreateGoal)
			r.Post("/goals/{id}/deposit", s.handleDepositGoal)
			// Deleting a goal moves its savings back into spendable money.
			r.With(s.limiter.Handler, s.requireAdmin).Delete("/goals/{id}", s.handleDeleteGoal)

			r.Get("/transactions", s.handleTransactions)
			r.Get("/trend", s.handleTrend)
			r.Get("/badges", s.handleBadges)

			// Privileged routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.limiter.Handler)
				r.Use(s.requireAdmin)
				r.Post("/verify", s.handleAdminVerify)
				r.Put("/total", s.handleSetTotal)
				r.Put("/spending-limit", s.handleSetSpendingLimit)
				r.Get("/settings", s.handleGetSettings)
				r.Put("/settings", s.handleUpdateSettings)
				r.Get("/spans", s.handleSpans)
			})
		})

		if s.hub != nil {
			r.Get("/events/live", s.hub.HandleEventsSSE)
		}
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// requireAdmin rejects requests without the admin password.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.CheckAdmin(r.Context(), r.Header.Get(AdminHeader)); err != nil {
			s.log.WithField("path", r.URL.Path).Warn("admin password rejected")
			writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// errorStatus maps domain errors to HTTP status codes.
var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrConfigInvalid, http.StatusBadRequest},
	{domain.ErrInvalidGoal, http.StatusBadRequest},
	{domain.ErrInsufficientFunds, http.StatusConflict},
	{domain.ErrCapacityExceeded, http.StatusConflict},
	{domain.ErrConfirmationRequired, http.StatusConflict},
	{domain.ErrStaleState, http.StatusConflict},
	{domain.ErrGoalNotFound, http.StatusNotFound},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
}

// writeDomainError writes err with the status of the sentinel it wraps.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeError(w, e.status, err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// corsMiddleware adds CORS headers for the local web UI.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+AdminHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
