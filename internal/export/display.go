// Package export renders analysis results as Excel workbooks and PDF reports.
package export

import (
	"strconv"
	"time"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

// Display names for data provenance.
const (
	SourceExactName     = "Cloudflare Radar"
	SourceEstimatedName = "Estimated"
)

// timestampLayout renders instants the way a US-locale browser would.
const timestampLayout = "1/2/2006, 3:04:05 PM"

// RankDisplay shows "#<rank>" when a rank is known, else the bucket, else N/A.
func RankDisplay(r analysis.Result) string {
	if r.Rank != nil && *r.Rank > 0 {
		return "#" + groupThousands(*r.Rank)
	}
	if r.Bucket != "" {
		return r.Bucket
	}
	return analysis.NotAvailable
}

// SourceDisplay names where a result's figures came from.
func SourceDisplay(ds analysis.DataSource) string {
	if ds == analysis.DataSourceExact {
		return SourceExactName
	}
	return SourceEstimatedName
}

// SentimentDisplay renders "Label (score: n)".
func SentimentDisplay(s analysis.Sentiment) string {
	return string(s.Label) + " (score: " + formatScore(s.Score) + ")"
}

// FormatTimestamp renders t in loc (UTC when nil).
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampLayout)
}

// Filename builds "<prefix>-YYYY-MM-DD.<ext>" for the date of now in UTC.
func Filename(prefix, ext string, now time.Time) string {
	return prefix + "-" + now.UTC().Format(time.DateOnly) + "." + ext
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func groupThousands(n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range len(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + string(out)
}
