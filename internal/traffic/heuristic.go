package traffic

import "strings"

// shortHostLen is the length below which a hostname counts as short.
const shortHostLen = 10

// HeuristicRank guesses a rank for a hostname the ranking API does not know.
func HeuristicRank(host string) int {
	switch {
	case strings.HasSuffix(host, ".gov"), strings.HasSuffix(host, ".edu"):
		return 50000
	case strings.HasSuffix(host, ".org"):
		return 100000
	case len(host) < shortHostLen:
		return 200000
	default:
		return defaultRank
	}
}

// normalizeHost lowercases a hostname and drops a leading "www.".
func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
