package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
	"github.com/JakeFAU/link-traffic-analyzer/internal/config"
	"github.com/JakeFAU/link-traffic-analyzer/internal/export"
	"github.com/JakeFAU/link-traffic-analyzer/internal/metrics"
)

// Analyzer runs the batch orchestration.
type Analyzer interface {
	AnalyzeURLs(ctx context.Context, urls []string) []analysis.Result
}

// ScreenshotStore returns screenshot bytes for a scan.
type ScreenshotStore interface {
	Screenshot(ctx context.Context, scanID string) ([]byte, error)
}

// Server wires HTTP handlers to the analyzer, exporters, and screenshot proxy.
type Server struct {
	router      chi.Router
	analyzer    Analyzer
	screenshots ScreenshotStore
	images      export.ImageLoader
	clock       analysis.Clock
	cfg         config.Config
	logger      *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithImageLoader fixes the loader used to embed screenshots in PDF reports.
// By default screenshots are fetched back through this server's proxy route.
func WithImageLoader(loader export.ImageLoader) Option {
	return func(s *Server) { s.images = loader }
}

// NewServer constructs a Server with middleware and routes. screenshots may
// be nil when no scanner is configured.
func NewServer(
	analyzer Analyzer,
	screenshots ScreenshotStore,
	clock analysis.Clock,
	cfg config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		analyzer:    analyzer,
		screenshots: screenshots,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey, logger))
		}
		// A batch runs until every URL settles.
		r.Post("/analyze", s.analyze)

		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(cfg.RequestTimeout()))
			r.Route("/export", func(r chi.Router) {
				r.Post("/excel", s.exportExcel)
				r.Post("/pdf", s.exportPDF)
			})
			r.Get("/screenshot/{id}", s.screenshot)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

type readiness struct {
	Status      string `json:"status"`
	ExactData   bool   `json:"exact_data"`
	Screenshots bool   `json:"screenshots"`
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, readiness{
		Status:      "ready",
		ExactData:   s.cfg.HasCloudflare(),
		Screenshots: s.screenshots != nil && s.cfg.HasScanner(),
	})
}
