// Package app initializes and holds the long-lived services shared by the
// CLI commands, acting as a dependency injection container.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
	"github.com/JakeFAU/link-traffic-analyzer/internal/api"
	"github.com/JakeFAU/link-traffic-analyzer/internal/clock/system"
	"github.com/JakeFAU/link-traffic-analyzer/internal/cloudflare"
	"github.com/JakeFAU/link-traffic-analyzer/internal/config"
	"github.com/JakeFAU/link-traffic-analyzer/internal/content"
	"github.com/JakeFAU/link-traffic-analyzer/internal/export"
	"github.com/JakeFAU/link-traffic-analyzer/internal/fetcher"
	collyfetcher "github.com/JakeFAU/link-traffic-analyzer/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/link-traffic-analyzer/internal/fetcher/headless"
	"github.com/JakeFAU/link-traffic-analyzer/internal/logging"
	"github.com/JakeFAU/link-traffic-analyzer/internal/policy/ratelimit"
	"github.com/JakeFAU/link-traffic-analyzer/internal/scanner"
	"github.com/JakeFAU/link-traffic-analyzer/internal/sentiment"
	"github.com/JakeFAU/link-traffic-analyzer/internal/traffic"
)

// App holds the services built from a Config.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	clock    analysis.Clock
	analyzer *analysis.Analyzer
	workflow *scanner.Workflow
	headless *headlessfetcher.Fetcher
}

// New wires every service. Missing Cloudflare credentials are not an error:
// traffic falls back to estimates and screenshots are skipped.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, clock: system.New()}

	var (
		ranks analysis.RankProvider
		scans analysis.ScanProvider
	)
	if cfg.HasCloudflare() {
		client, err := cloudflare.New(cloudflare.Config{
			APIToken:   cfg.Cloudflare.APIToken,
			AccountID:  cfg.Cloudflare.AccountID,
			BaseURL:    cfg.Cloudflare.BaseURL,
			Timeout:    cfg.CloudflareTimeout(),
			Resolution: cfg.Scanner.Resolution,
		}, nil, logging.Named(logger, "cloudflare"))
		if err != nil {
			return nil, fmt.Errorf("build cloudflare client: %w", err)
		}
		ranks = client
		if client.ScannerEnabled() {
			scans = client
		}
		logger.Info("cloudflare credentials configured", zap.Bool("scanner", client.ScannerEnabled()))
	} else {
		logger.Info("cloudflare credentials not configured; traffic will be estimated")
	}

	a.workflow = scanner.New(scans, a.clock, scanner.Config{
		PollInterval: cfg.PollInterval(),
		MaxWait:      cfg.MaxScanWait(),
		ReuseWindow:  cfg.ReuseWindow(),
	}, logging.Named(logger, "scanner"))

	var renderer fetcher.Fetcher
	if cfg.Headless.Enabled {
		h, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Content.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
		})
		if err != nil {
			logger.Warn("headless renderer init failed; using plain fetches", zap.Error(err))
		} else {
			a.headless = h
			renderer = h
		}
	}
	probe := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Content.UserAgent,
		RespectRobots: cfg.Content.RespectRobots,
		Timeout:       cfg.ContentTimeout(),
	})
	reader := content.NewReader(
		probe,
		renderer,
		content.NewDetector(cfg.Headless.PromotionThresh),
		cfg.Content.MaxTextBytes,
		logging.Named(logger, "content"),
		content.WithLimiter(ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Content.HostRPS,
			DefaultBurst: cfg.Content.HostBurst,
		})),
	)

	var shots analysis.ScreenshotSource
	if a.workflow.Enabled() {
		shots = a.workflow
	}
	a.analyzer = analysis.NewAnalyzer(
		traffic.NewService(ranks, nil, logging.Named(logger, "traffic")),
		shots,
		reader,
		sentiment.New(),
		a.clock,
		logging.Named(logger, "analyzer"),
	)
	return a, nil
}

// Logger returns the shared root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Clock returns the wall clock used for timestamps.
func (a *App) Clock() analysis.Clock {
	return a.clock
}

// Analyzer returns the batch orchestrator.
func (a *App) Analyzer() *analysis.Analyzer {
	return a.analyzer
}

// Screenshots returns the proxy source for scan images, or nil when the
// scanner is not configured.
func (a *App) Screenshots() api.ScreenshotStore {
	if !a.workflow.Enabled() {
		return nil
	}
	return a.workflow
}

// ImageLoader reads screenshots straight from the scanner for offline
// reports, or returns nil when the scanner is not configured.
func (a *App) ImageLoader() export.ImageLoader {
	if !a.workflow.Enabled() {
		return nil
	}
	return a.workflow
}

// Server builds the HTTP API over the shared services.
func (a *App) Server(opts ...api.Option) *api.Server {
	return api.NewServer(a.analyzer, a.Screenshots(), a.clock, a.cfg, logging.Named(a.logger, "api"), opts...)
}

// Close releases the browser allocator and flushes the logger.
func (a *App) Close() {
	if a.headless != nil {
		a.headless.Close()
	}
	// Sync fails on terminal outputs; nothing useful can be done about it.
	_ = a.logger.Sync()
}
