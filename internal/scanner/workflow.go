package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
	"github.com/JakeFAU/link-traffic-analyzer/internal/metrics"
)

// ProxyPrefix is the route under which screenshots are served.
const ProxyPrefix = "/screenshot/"

// Config tunes the poll loop.
type Config struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	ReuseWindow  time.Duration
}

// DefaultConfig polls every 2s for up to 30s and reuses scans from the last 24h.
func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		MaxWait:      30 * time.Second,
		ReuseWindow:  24 * time.Hour,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option customizes a Workflow.
type Option func(*Workflow)

// WithSleep replaces the poll-interval wait.
func WithSleep(fn SleepFunc) Option {
	return func(w *Workflow) {
		if fn != nil {
			w.sleep = fn
		}
	}
}

// Workflow runs scans against a provider. A nil provider means no
// credentials: every run ends in PhaseNoCredentials.
type Workflow struct {
	provider analysis.ScanProvider
	clock    analysis.Clock
	cfg      Config
	sleep    SleepFunc
	logger   *zap.Logger
}

// New constructs a Workflow. Zero durations in cfg take their defaults.
func New(provider analysis.ScanProvider, clock analysis.Clock, cfg Config, logger *zap.Logger, opts ...Option) *Workflow {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	if cfg.ReuseWindow <= 0 {
		cfg.ReuseWindow = def.ReuseWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workflow{
		provider: provider,
		clock:    clock,
		cfg:      cfg,
		sleep:    sleepContext,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enabled reports whether a provider is configured.
func (w *Workflow) Enabled() bool {
	return w.provider != nil
}

func (w *Workflow) policy() Policy {
	return Policy{ReuseWindow: w.cfg.ReuseWindow, MaxWait: w.cfg.MaxWait}
}

// Run drives the state machine for pageURL until it reaches a terminal phase.
func (w *Workflow) Run(ctx context.Context, pageURL string) State {
	p := w.policy()
	s := Begin(w.Enabled())
	for !s.Terminal() {
		if err := ctx.Err(); err != nil {
			s = Transition(s, Cancelled{Err: err}, p)
			break
		}
		switch s.Phase {
		case PhaseSearchExisting:
			task, found, err := w.provider.LatestScan(ctx, pageURL)
			if err != nil {
				w.logger.Debug("existing scan search failed", zap.String("url", pageURL), zap.Error(err))
			}
			s = Transition(s, SearchCompleted{Task: task, Found: found, Err: err, Now: w.clock.Now()}, p)

		case PhaseCreateScan:
			id, err := w.provider.CreateScan(ctx, pageURL)
			switch {
			case errors.Is(err, analysis.ErrUnsupportedHostname):
				w.logger.Info("url not supported for scanning", zap.String("url", pageURL))
			case err != nil:
				w.logger.Warn("create scan failed", zap.String("url", pageURL), zap.Error(err))
			}
			s = Transition(s, ScanCreated{ScanID: id, Err: err, Now: w.clock.Now()}, p)

		case PhasePolling:
			if s = Transition(s, Tick{Now: w.clock.Now()}, p); s.Terminal() {
				break
			}
			status, err := w.provider.ScanStatus(ctx, s.ScanID)
			if err != nil {
				w.logger.Debug("scan status poll failed", zap.String("scan_id", s.ScanID), zap.Error(err))
			}
			if s = Transition(s, StatusPolled{Status: status, Err: err, Now: w.clock.Now()}, p); s.Terminal() {
				break
			}
			if err := w.sleep(ctx, w.cfg.PollInterval); err != nil {
				s = Transition(s, Cancelled{Err: err}, p)
			}

		default:
			s = failed(s, fmt.Sprintf("unexpected phase %q", s.Phase))
		}
	}
	w.record(pageURL, s)
	return s
}

func (w *Workflow) record(pageURL string, s State) {
	outcome := string(s.Phase)
	switch {
	case s.Reused:
		outcome = "reused"
	case s.TimedOut:
		outcome = "timeout"
	}
	metrics.ObserveScan(outcome)
	w.logger.Debug("scan workflow finished",
		zap.String("url", pageURL),
		zap.String("scan_id", s.ScanID),
		zap.String("outcome", outcome),
		zap.String("reason", s.Reason),
	)
}

// Acquire runs the workflow and returns a proxy reference to the screenshot.
func (w *Workflow) Acquire(ctx context.Context, pageURL string) (analysis.Screenshot, error) {
	s := w.Run(ctx, pageURL)
	if s.Phase != PhaseReady {
		return analysis.Screenshot{}, fmt.Errorf("%s: %w", s.Phase, analysis.ErrScreenshotUnavailable)
	}
	return analysis.Screenshot{ScanID: s.ScanID, URL: ProxyPath(s.ScanID)}, nil
}

// Screenshot fetches image bytes for a scan, for the proxy route.
func (w *Workflow) Screenshot(ctx context.Context, scanID string) ([]byte, error) {
	if !w.Enabled() {
		return nil, analysis.ErrScreenshotUnavailable
	}
	data, err := w.provider.Screenshot(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", scanID, err)
	}
	return data, nil
}

// LoadImage resolves a proxy reference such as "/screenshot/{id}" straight
// against the provider, for reports rendered without a running server.
func (w *Workflow) LoadImage(ctx context.Context, ref string) ([]byte, error) {
	id, ok := strings.CutPrefix(ref, ProxyPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("not a screenshot reference %q: %w", ref, analysis.ErrScreenshotUnavailable)
	}
	return w.Screenshot(ctx, id)
}

// ProxyPath is the internal route serving the screenshot for scanID.
func ProxyPath(scanID string) string {
	return ProxyPrefix + scanID
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
