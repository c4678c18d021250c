package analysis

import (
	"context"
	"errors"
	"time"
)

// ErrNoRanking means the ranking provider has no data for a hostname.
var ErrNoRanking = errors.New("no ranking data for host")

// ErrUnsupportedHostname means the scanning provider refuses to scan a host.
var ErrUnsupportedHostname = errors.New("hostname not supported for scanning")

// ErrScreenshotUnavailable means no screenshot can be produced or served.
var ErrScreenshotUnavailable = errors.New("screenshot unavailable")

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// TrafficSource resolves formatted traffic figures for a URL. It only fails
// when the URL itself is unusable; provider failures fall back to estimates.
type TrafficSource interface {
	Traffic(ctx context.Context, rawURL string) (TrafficData, error)
}

// ScreenshotSource runs the scan workflow for a URL.
type ScreenshotSource interface {
	Acquire(ctx context.Context, rawURL string) (Screenshot, error)
}

// ContentSource returns readable page text for sentiment scoring.
type ContentSource interface {
	PageText(ctx context.Context, rawURL string) (string, error)
}

// SentimentScorer scores a block of text.
type SentimentScorer interface {
	Analyze(text string) Sentiment
}

// RankProvider looks up a hostname's popularity rank.
type RankProvider interface {
	DomainRank(ctx context.Context, host string) (Ranking, error)
}

// ScanProvider is the external URL scanning service.
type ScanProvider interface {
	LatestScan(ctx context.Context, pageURL string) (ScanTask, bool, error)
	CreateScan(ctx context.Context, pageURL string) (string, error)
	ScanStatus(ctx context.Context, scanID string) (ScanStatus, error)
	Screenshot(ctx context.Context, scanID string) ([]byte, error)
}
