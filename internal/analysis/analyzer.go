package analysis

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/link-traffic-analyzer/internal/metrics"
)

// Analyzer merges traffic, screenshot, and sentiment data for each URL.
type Analyzer struct {
	traffic     TrafficSource
	screenshots ScreenshotSource
	content     ContentSource
	scorer      SentimentScorer
	clock       Clock
	logger      *zap.Logger
}

// NewAnalyzer constructs an Analyzer. screenshots and content may be nil, in
// which case results never carry a screenshot and sentiment stays neutral.
func NewAnalyzer(
	traffic TrafficSource,
	screenshots ScreenshotSource,
	content ContentSource,
	scorer SentimentScorer,
	clock Clock,
	logger *zap.Logger,
) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		traffic:     traffic,
		screenshots: screenshots,
		content:     content,
		scorer:      scorer,
		clock:       clock,
		logger:      logger,
	}
}

// AnalyzeURLs analyzes every URL concurrently and returns results in input order.
func (a *Analyzer) AnalyzeURLs(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = a.AnalyzeURL(ctx, u)
		}()
	}
	wg.Wait()
	return results
}

// AnalyzeURL runs the three lookups for one URL and waits for all of them.
func (a *Analyzer) AnalyzeURL(ctx context.Context, rawURL string) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("analysis panicked", zap.String("url", rawURL), zap.Any("panic", rec))
			result = a.fail(rawURL, fmt.Errorf("analysis panicked: %v", rec))
		}
	}()

	if _, err := ParseURL(rawURL); err != nil {
		return a.fail(rawURL, err)
	}

	var (
		traffic    TrafficData
		screenshot Screenshot
		text       string
	)
	var g errgroup.Group
	g.Go(func() error {
		td, err := a.traffic.Traffic(ctx, rawURL)
		if err != nil {
			return fmt.Errorf("traffic lookup: %w", err)
		}
		traffic = td
		return nil
	})
	if a.screenshots != nil {
		g.Go(func() error {
			shot, err := a.screenshots.Acquire(ctx, rawURL)
			if err != nil {
				a.logger.Debug("screenshot omitted", zap.String("url", rawURL), zap.Error(err))
				return nil
			}
			screenshot = shot
			return nil
		})
	}
	if a.content != nil {
		g.Go(func() error {
			body, err := a.content.PageText(ctx, rawURL)
			if err != nil {
				a.logger.Debug("page content unavailable", zap.String("url", rawURL), zap.Error(err))
				return nil
			}
			text = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return a.fail(rawURL, err)
	}

	sentiment := NeutralSentiment()
	if text != "" && a.scorer != nil {
		sentiment = a.scorer.Analyze(text)
	}

	metrics.ObserveAnalysis(string(traffic.Source))
	return Result{
		URL:            rawURL,
		Reach:          traffic.Reach,
		UniqueVisitors: traffic.UniqueVisitors,
		PageViews:      traffic.PageViews,
		ShareRate:      traffic.ShareRate,
		Sentiment:      sentiment,
		AnalyzedAt:     a.clock.Now(),
		Rank:           traffic.Rank,
		Bucket:         traffic.Bucket,
		DataSource:     traffic.Source,
		ScreenshotURL:  screenshot.URL,
	}
}

func (a *Analyzer) fail(rawURL string, err error) Result {
	a.logger.Warn("analysis failed", zap.String("url", rawURL), zap.Error(err))
	metrics.ObserveAnalysis("error")
	return FailedResult(rawURL, err, a.clock.Now())
}
