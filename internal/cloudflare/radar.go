package cloudflare

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudflare/cloudflare-go/v4/radar"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

// DomainRank looks up a hostname in Cloudflare Radar. Hosts without ranking
// data yield analysis.ErrNoRanking. A zero rank means Radar only knows the
// bucket.
func (c *Client) DomainRank(ctx context.Context, host string) (analysis.Ranking, error) {
	resp, err := c.api.Radar.Ranking.Domain.Get(ctx, host, radar.RankingDomainGetParams{})
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return analysis.Ranking{}, fmt.Errorf("radar ranking for %s: %w", host, analysis.ErrNoRanking)
		}
		return analysis.Ranking{}, fmt.Errorf("radar ranking for %s: %w", host, err)
	}
	details := resp.Details0
	if details.Bucket == "" && details.Rank <= 0 {
		return analysis.Ranking{}, fmt.Errorf("radar ranking for %s: %w", host, analysis.ErrNoRanking)
	}
	ranking := analysis.Ranking{Bucket: details.Bucket}
	if details.Rank > 0 {
		rank := int(details.Rank)
		ranking.Rank = &rank
	}
	return ranking, nil
}
