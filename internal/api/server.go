// Package api provides the HTTP reporting server over a processed
// ledger.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/parkozhao/spendscope/internal/api/handlers"
	"github.com/parkozhao/spendscope/internal/api/middleware"
	"github.com/parkozhao/spendscope/internal/config"
	"github.com/parkozhao/spendscope/internal/ledger"
)

// Server is the reporting HTTP server.
type Server struct {
	cfg  config.APIConfig
	log  zerolog.Logger
	srv  *http.Server
	rept *handlers.ReportHandler
}

// NewServer creates a server over a processed ledger.
func NewServer(cfg config.APIConfig, log zerolog.Logger, l *ledger.Ledger) *Server {
	return &Server{
		cfg:  cfg,
		log:  log,
		rept: handlers.NewReportHandler(l, log),
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.log))
	r.Use(middleware.Recovery(s.log))
	r.Use(middleware.CORS)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/meta", s.rept.Meta)
		r.Get("/summary", s.rept.Summary)
		r.Get("/by-category", s.rept.ByCategory)
		r.Get("/by-period", s.rept.ByPeriod)
		r.Get("/top-merchants", s.rept.TopMerchants)
		r.Get("/top-categories", s.rept.TopCategories)
		r.Get("/cashflow-summary", s.rept.CashflowSummary)
		r.Get("/transactions", s.rept.Transactions)
	})

	if s.cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// Start begins serving and blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("reporting server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("Start: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
