package traffic

import (
	"fmt"
	"math"
	"strconv"
)

// FormatCount renders a count with B/M/K suffixes. Billions and millions keep
// one decimal; thousands are rounded to a whole number. Halves round up.
func FormatCount(n int64) string {
	v := float64(n)
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", math.Round(v/1e8)/10)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", math.Round(v/1e5)/10)
	case v >= 1e3:
		return fmt.Sprintf("%dK", int64(math.Round(v/1e3)))
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatShareRate renders a percentage without trailing zeros, e.g. "12%" or "9.4%".
func FormatShareRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "%"
}
