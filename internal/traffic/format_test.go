package traffic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1K"},
		{1499, "1K"},
		{1500, "2K"},
		{512497, "512K"},
		{999_999, "1000K"},
		{1_000_000, "1.0M"},
		{199053585, "199.1M"},
		{2_250_000, "2.3M"},
		{1_250_000_000, "1.3B"},
		{1_000_000_000, "1.0B"},
		{5_000_000_000, "5.0B"},
		{20_000_000_000, "20.0B"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, FormatCount(tc.in), "count %d", tc.in)
	}
}

func TestFormatShareRate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "12%", FormatShareRate(12))
	require.Equal(t, "9.4%", FormatShareRate(9.4))
	require.Equal(t, "0.5%", FormatShareRate(0.5))
}

func TestHeuristicRank(t *testing.T) {
	t.Parallel()

	require.Equal(t, 50000, HeuristicRank("whitehouse.gov"))
	require.Equal(t, 50000, HeuristicRank("mit.edu"))
	require.Equal(t, 100000, HeuristicRank("wikipedia.org"))
	require.Equal(t, 200000, HeuristicRank("abc.io"))
	require.Equal(t, 500000, HeuristicRank("some-long-domain.com"))
	require.Equal(t, "example.com", normalizeHost("WWW.Example.com"))
}
