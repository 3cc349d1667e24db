package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/finsight/internal/analytics"
	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/worker"
	"github.com/rs/cors"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, service *analytics.Service, ledger domain.Ledger, cache domain.Cache, bus domain.EventBus, version string) *Server {
	handler := NewHandler(service, ledger, cache, bus, version)
	router := chi.NewRouter()

	router.Use(corsHandler(cfg.CORSOrigins).Handler)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no user required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Route("/analytics", func(r chi.Router) {
		r.Get("/status", handler.Status)

		// Analytics routes (user required)
		r.Group(func(r chi.Router) {
			r.Use(UserMiddleware)

			r.Get("/insights", handler.Insights)
			r.Get("/insights/savings-opportunities", handler.SavingsOpportunities)
			r.Get("/insights/anomalies", handler.Anomalies)

			r.Get("/reports/recurring", handler.Recurring)
			r.Get("/reports/spending-patterns", handler.SpendingPatterns)
			r.Get("/reports/categories", handler.Categories)

			r.Get("/goals/prediction/{goalID}", handler.GoalPrediction)
			r.Get("/goals/recommendations/{goalID}", handler.GoalRecommendations)
			r.Get("/goals/at-risk", handler.AtRiskGoals)
			r.Get("/goals/optimization/{goalID}", handler.GoalOptimization)
			r.Get("/goals/dashboard", handler.GoalsDashboard)

			r.Post("/digests", handler.RequestDigest)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// WithDigestWorker reports the worker's subscriptions on /analytics/status.
func (s *Server) WithDigestWorker(w *worker.DigestWorker) *Server {
	s.handler.worker = w
	return s
}

func corsHandler(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			UserIDHeader,
			RequestIDHeader,
			TraceIDHeader,
		},
		ExposedHeaders:   []string{RequestIDHeader, TraceIDHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
