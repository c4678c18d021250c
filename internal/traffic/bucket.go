package traffic

import (
	"strings"
)

// defaultRank is used for unparsable buckets and unremarkable domains.
const defaultRank = 500000

// bucketMidpoints maps a bucket's upper boundary to the rank used for it.
var bucketMidpoints = []struct {
	upper    int
	midpoint int
}{
	{200, 100},
	{500, 350},
	{1000, 750},
	{2000, 1500},
	{5000, 3500},
	{10000, 7500},
	{20000, 15000},
	{50000, 35000},
	{100000, 75000},
	{200000, 150000},
	{500000, 350000},
	{1000000, 750000},
}

// BucketToRank converts a coarse bucket label such as "50000" into a rank midpoint.
// Buckets beyond the table map to themselves; unparsable labels map to 500000.
func BucketToRank(bucket string) int {
	n, ok := parseLeadingInt(bucket)
	if !ok {
		return defaultRank
	}
	for _, b := range bucketMidpoints {
		if n <= b.upper {
			return b.midpoint
		}
	}
	return n
}

// parseLeadingInt reads an optionally signed run of digits after leading
// whitespace and ignores anything that follows, so "1000+" parses as 1000.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		if n > (1<<31)/10 {
			return 0, false
		}
		n = n*10 + int(c-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
