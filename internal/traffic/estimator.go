// Package traffic turns popularity ranks into formatted traffic estimates and
// chooses between ranking-API data and heuristic fallbacks.
package traffic

import (
	"math"
	"math/rand/v2"
	"sync"
)

// baseVisitors is the modelled monthly visitor count at rank 1.
const baseVisitors = 5_000_000_000.0

// decayExponent controls how fast visitors fall off with rank.
const decayExponent = 0.7

// RandomSource supplies uniform values in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Estimate is the raw (unformatted) traffic model output for a rank.
type Estimate struct {
	Visitors  int64
	PageViews int64
	Reach     int64
}

// Estimator applies the rank model. Multipliers are drawn from an injectable
// RandomSource so seeded tests can assert exact values.
type Estimator struct {
	mu  sync.Mutex
	rnd RandomSource
}

// NewEstimator builds an Estimator. A nil source uses the process-wide generator.
func NewEstimator(rnd RandomSource) *Estimator {
	if rnd == nil {
		rnd = globalSource{}
	}
	return &Estimator{rnd: rnd}
}

// Visitors returns the deterministic visitor count for a rank.
func Visitors(rank int) int64 {
	if rank <= 0 {
		return 0
	}
	return int64(math.Round(baseVisitors / math.Pow(float64(rank), decayExponent)))
}

// Estimate derives visitors, page views (2-4x visitors), and reach (3-5x visitors).
func (e *Estimator) Estimate(rank int) Estimate {
	if rank <= 0 {
		return Estimate{}
	}
	visitors := Visitors(rank)
	pageViews := math.Round(float64(visitors) * (2 + e.float()*2))
	reach := math.Round(float64(visitors) * (3 + e.float()*2))
	return Estimate{
		Visitors:  visitors,
		PageViews: int64(pageViews),
		Reach:     int64(reach),
	}
}

// shareBand is a half-open [low, low+span) percentage range for ranks up to maxRank.
type shareBand struct {
	maxRank int
	low     float64
	span    float64
}

var shareBands = []shareBand{
	{maxRank: 100, low: 8, span: 7},
	{maxRank: 1000, low: 5, span: 5},
	{maxRank: 10000, low: 3, span: 4},
	{maxRank: 100000, low: 1, span: 3},
}

var tailShareBand = shareBand{low: 0.5, span: 2}

// ShareRate returns a percentage for the rank's band, rounded to one decimal.
func (e *Estimator) ShareRate(rank int) float64 {
	band := tailShareBand
	for _, b := range shareBands {
		if rank <= b.maxRank {
			band = b
			break
		}
	}
	return math.Round((band.low+e.float()*band.span)*10) / 10
}

func (e *Estimator) float() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Float64()
}
