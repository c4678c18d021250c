package traffic

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

// estimatedPrefix marks counts that come from the heuristic model.
const estimatedPrefix = "~"

// Service resolves traffic data for URLs, preferring ranking-API data.
type Service struct {
	ranks     analysis.RankProvider
	estimator *Estimator
	logger    *zap.Logger
}

// NewService builds a Service. A nil ranks provider means no credentials are
// configured and every lookup returns heuristic estimates.
func NewService(ranks analysis.RankProvider, estimator *Estimator, logger *zap.Logger) *Service {
	if estimator == nil {
		estimator = NewEstimator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ranks: ranks, estimator: estimator, logger: logger}
}

// Traffic returns formatted traffic data for rawURL. The only error is an
// unusable URL; every provider failure falls back to an estimate.
func (s *Service) Traffic(ctx context.Context, rawURL string) (analysis.TrafficData, error) {
	u, err := analysis.ParseURL(rawURL)
	if err != nil {
		return analysis.TrafficData{}, fmt.Errorf("resolve host: %w", err)
	}
	host := normalizeHost(u.Hostname())

	if s.ranks == nil {
		s.logger.Debug("ranking credentials not configured; using estimates", zap.String("host", host))
		return s.estimated(host), nil
	}

	ranking, err := s.ranks.DomainRank(ctx, host)
	if err != nil {
		if errors.Is(err, analysis.ErrNoRanking) {
			s.logger.Debug("host not ranked; using estimates", zap.String("host", host))
		} else {
			s.logger.Warn("ranking lookup failed; using estimates", zap.String("host", host), zap.Error(err))
		}
		return s.estimated(host), nil
	}
	if ranking.Rank == nil && ranking.Bucket == "" {
		return s.estimated(host), nil
	}
	return s.exact(ranking), nil
}

func (s *Service) exact(ranking analysis.Ranking) analysis.TrafficData {
	var rank int
	if ranking.Rank != nil {
		rank = *ranking.Rank
	} else {
		rank = BucketToRank(ranking.Bucket)
	}
	est := s.estimator.Estimate(rank)
	share := s.estimator.ShareRate(rank)

	data := analysis.TrafficData{
		Reach:          FormatCount(est.Reach),
		UniqueVisitors: FormatCount(est.Visitors) + "/month",
		PageViews:      FormatCount(est.PageViews) + "/month",
		ShareRate:      FormatShareRate(share),
		Source:         analysis.DataSourceExact,
	}
	if ranking.Rank != nil {
		r := *ranking.Rank
		data.Rank = &r
	}
	if ranking.Bucket != "" {
		data.Bucket = "Top " + ranking.Bucket
	}
	return data
}

func (s *Service) estimated(host string) analysis.TrafficData {
	rank := HeuristicRank(host)
	est := s.estimator.Estimate(rank)
	share := s.estimator.ShareRate(rank)
	return analysis.TrafficData{
		Reach:          estimatedPrefix + FormatCount(est.Reach),
		UniqueVisitors: estimatedPrefix + FormatCount(est.Visitors) + "/month",
		PageViews:      estimatedPrefix + FormatCount(est.PageViews) + "/month",
		ShareRate:      FormatShareRate(share),
		Source:         analysis.DataSourceEstimated,
	}
}
