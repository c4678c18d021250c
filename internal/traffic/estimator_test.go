package traffic

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func TestVisitors_RankOneIsFiveBillion(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(5_000_000_000), Visitors(1))
	require.Equal(t, "5.0B", FormatCount(Visitors(1)))
}

func TestVisitors_NonPositiveRank(t *testing.T) {
	t.Parallel()

	require.Zero(t, Visitors(0))
	require.Zero(t, Visitors(-3))
	require.Equal(t, Estimate{}, NewEstimator(constSource(0.5)).Estimate(0))
}

func TestVisitors_MonotonicDecay(t *testing.T) {
	t.Parallel()

	ranks := []int{1, 2, 3, 10, 99, 100, 101, 350, 1000, 7500, 35000, 100000, 500000, 750000, 5_000_000}
	for i := 1; i < len(ranks); i++ {
		require.GreaterOrEqual(t, Visitors(ranks[i-1]), Visitors(ranks[i]),
			"rank %d should have at least as many visitors as rank %d", ranks[i-1], ranks[i])
	}

	rng := rand.New(rand.NewPCG(7, 11))
	for range 500 {
		r1 := rng.IntN(2_000_000) + 1
		r2 := rng.IntN(2_000_000) + 1
		if r1 > r2 {
			r1, r2 = r2, r1
		}
		require.GreaterOrEqual(t, Visitors(r1), Visitors(r2))
	}
}

func TestEstimate_FixedSource(t *testing.T) {
	t.Parallel()

	e := NewEstimator(constSource(0.5))
	tests := []struct {
		rank int
		want Estimate
	}{
		{rank: 1, want: Estimate{Visitors: 5_000_000_000, PageViews: 15_000_000_000, Reach: 20_000_000_000}},
		{rank: 100, want: Estimate{Visitors: 199053585, PageViews: 597160755, Reach: 796214340}},
		{rank: 500000, want: Estimate{Visitors: 512497, PageViews: 1537491, Reach: 2049988}},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, e.Estimate(tc.rank), "rank %d", tc.rank)
	}
}

func TestEstimate_MultipliersStayInRange(t *testing.T) {
	t.Parallel()

	e := NewEstimator(rand.New(rand.NewPCG(1, 2)))
	for _, rank := range []int{1, 50, 1000, 35000, 500000} {
		for range 50 {
			est := e.Estimate(rank)
			v := float64(est.Visitors)
			require.GreaterOrEqual(t, float64(est.PageViews), 2*v-1)
			require.LessOrEqual(t, float64(est.PageViews), 4*v+1)
			require.GreaterOrEqual(t, float64(est.Reach), 3*v-1)
			require.LessOrEqual(t, float64(est.Reach), 5*v+1)
		}
	}
}

func TestEstimate_SameSeedSameOutput(t *testing.T) {
	t.Parallel()

	a := NewEstimator(rand.New(rand.NewPCG(42, 42)))
	b := NewEstimator(rand.New(rand.NewPCG(42, 42)))
	for _, rank := range []int{3, 300, 30000} {
		require.Equal(t, a.Estimate(rank), b.Estimate(rank))
		require.Equal(t, a.ShareRate(rank), b.ShareRate(rank))
	}
}

func TestShareRate_Bands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rank     int
		low, max float64
	}{
		{rank: 1, low: 8, max: 15},
		{rank: 100, low: 8, max: 15},
		{rank: 101, low: 5, max: 10},
		{rank: 1000, low: 5, max: 10},
		{rank: 10000, low: 3, max: 7},
		{rank: 100000, low: 1, max: 4},
		{rank: 100001, low: 0.5, max: 2.5},
	}
	e := NewEstimator(rand.New(rand.NewPCG(3, 5)))
	for _, tc := range tests {
		for range 100 {
			got := e.ShareRate(tc.rank)
			require.GreaterOrEqual(t, got, tc.low, "rank %d", tc.rank)
			require.LessOrEqual(t, got, tc.max, "rank %d", tc.rank)
			require.InDelta(t, got, float64(int(got*10+0.5))/10, 1e-9, "rounded to one decimal")
		}
	}
}

func TestShareRate_FixedSource(t *testing.T) {
	t.Parallel()

	require.Equal(t, 8.0, NewEstimator(constSource(0)).ShareRate(1))
	require.Equal(t, 11.5, NewEstimator(constSource(0.5)).ShareRate(50))
	require.Equal(t, 1.5, NewEstimator(constSource(0.5)).ShareRate(750000))
}
