package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gsdc-platform/adminq/service/metrics"
	"github.com/gsdc-platform/adminq/service/queue"
)

// Server represents the HTTP server for the admin queue service.
type Server struct {
	addr    string
	svc     *queue.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, svc *queue.Service, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:    addr,
		svc:     svc,
		metrics: m,
		logger:  logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Handler builds the full route table, wrapped in CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// instrumented wraps API handlers with per-endpoint request metrics.
	instrumented := func(name string, h http.Handler) http.Handler {
		if s.metrics == nil {
			return h
		}
		return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}

	// Transaction routes
	mux.Handle("POST /api/v1/transactions", instrumented("/api/v1/transactions", handleQueueTransaction(s.svc, s.logger)))
	mux.Handle("GET /api/v1/transactions", instrumented("/api/v1/transactions", handleListTransactions(s.svc, s.logger)))
	mux.Handle("GET /api/v1/transactions/pending", instrumented("/api/v1/transactions/pending", handleListPendingIDs(s.svc, s.logger)))
	mux.Handle("GET /api/v1/transactions/{id}", instrumented("/api/v1/transactions/{id}", handleGetTransaction(s.svc, s.logger)))
	mux.Handle("POST /api/v1/transactions/{id}/approve", instrumented("/api/v1/transactions/{id}/approve", handleApproveTransaction(s.svc, s.logger)))
	mux.Handle("POST /api/v1/transactions/{id}/reject", instrumented("/api/v1/transactions/{id}/reject", handleRejectTransaction(s.svc, s.logger)))
	mux.Handle("POST /api/v1/transactions/{id}/execute", instrumented("/api/v1/transactions/{id}/execute", handleExecuteTransaction(s.svc, s.logger)))

	// Redemption routes
	mux.Handle("POST /api/v1/redemptions", instrumented("/api/v1/redemptions", handleRequestRedemption(s.svc, s.logger)))
	mux.Handle("GET /api/v1/redemptions", instrumented("/api/v1/redemptions", handleListRedemptions(s.svc, s.logger)))
	mux.Handle("GET /api/v1/redemptions/{id}", instrumented("/api/v1/redemptions/{id}", handleGetRedemption(s.svc, s.logger)))
	mux.Handle("POST /api/v1/redemptions/{id}/process", instrumented("/api/v1/redemptions/{id}/process", handleProcessRedemption(s.svc, s.logger)))

	// Address and queue state routes
	mux.Handle("GET /api/v1/addresses/{address}/status", instrumented("/api/v1/addresses/{address}/status", handleAddressStatus(s.svc, s.logger)))
	mux.Handle("GET /api/v1/queue/config", instrumented("/api/v1/queue/config", handleQueueConfig(s.svc, s.logger)))
	mux.Handle("POST /api/v1/queue/pause", instrumented("/api/v1/queue/pause", handleSetQueuePause(s.svc, s.logger, true)))
	mux.Handle("POST /api/v1/queue/unpause", instrumented("/api/v1/queue/unpause", handleSetQueuePause(s.svc, s.logger, false)))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	return corsMiddleware(mux)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Pass through to next handler
		next.ServeHTTP(w, r)
	})
}
