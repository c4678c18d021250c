package content

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/fetcher"
	"github.com/JakeFAU/link-traffic-analyzer/internal/metrics"
)

// Waiter throttles outbound requests, typically per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithLimiter throttles every page request through l.
func WithLimiter(l Waiter) ReaderOption {
	return func(r *Reader) { r.limiter = l }
}

// Reader implements analysis.ContentSource. Pages are fetched over plain
// HTTP first and re-rendered in a browser when they look script-built.
type Reader struct {
	probe    fetcher.Fetcher
	renderer fetcher.Fetcher
	detector *Detector
	maxBytes int
	limiter  Waiter
	logger   *zap.Logger
}

// NewReader builds a Reader. renderer may be nil to disable browser rendering.
func NewReader(
	probe, renderer fetcher.Fetcher,
	detector *Detector,
	maxBytes int,
	logger *zap.Logger,
	opts ...ReaderOption,
) *Reader {
	if detector == nil {
		detector = NewDetector(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reader{
		probe:    probe,
		renderer: renderer,
		detector: detector,
		maxBytes: maxBytes,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) fetch(ctx context.Context, f fetcher.Fetcher, rawURL string) (fetcher.Response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, rawURL); err != nil {
			return fetcher.Response{}, err
		}
	}
	resp, err := f.Fetch(ctx, fetcher.Request{URL: rawURL})
	if err != nil {
		return fetcher.Response{}, fmt.Errorf("fetch: %w", err)
	}
	return resp, nil
}

// PageText fetches rawURL and extracts its readable text.
func (r *Reader) PageText(ctx context.Context, rawURL string) (string, error) {
	resp, err := r.fetch(ctx, r.probe, rawURL)
	if err != nil {
		metrics.ObserveContentFetch("error")
		return "", fmt.Errorf("%s: %w", rawURL, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		metrics.ObserveContentFetch("error")
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	if r.renderer != nil && r.detector.ShouldRender(resp) {
		rendered, err := r.fetch(ctx, r.renderer, rawURL)
		if err != nil {
			r.logger.Debug("headless render failed, using plain response", zap.String("url", rawURL), zap.Error(err))
		} else {
			resp = rendered
		}
	}

	pageURL := resp.URL
	if pageURL == "" {
		pageURL = rawURL
	}
	text, err := Extract(resp.Body, pageURL, r.maxBytes)
	if err != nil {
		metrics.ObserveContentFetch("error")
		return "", fmt.Errorf("extract %s: %w", rawURL, err)
	}

	outcome := "ok"
	if resp.UsedHeadless {
		outcome = "headless"
	}
	metrics.ObserveContentFetch(outcome)
	r.logger.Debug("page text extracted",
		zap.String("url", rawURL),
		zap.Bool("headless", resp.UsedHeadless),
		zap.Int("bytes", len(text)),
		zap.Duration("duration", resp.Duration),
	)
	return text, nil
}
