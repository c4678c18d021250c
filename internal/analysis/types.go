package analysis

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// NotAvailable is the sentinel rendered in every display field of a failed result.
const NotAvailable = "N/A"

// Label is the three-way sentiment classification.
type Label string

// Sentiment labels.
const (
	LabelPositive Label = "Positive"
	LabelNeutral  Label = "Neutral"
	LabelNegative Label = "Negative"
)

// Sentiment holds the lexicon score, its per-unit comparative, and the label.
type Sentiment struct {
	Score       float64 `json:"score" yaml:"score"`
	Label       Label   `json:"label" yaml:"label"`
	Comparative float64 `json:"comparative" yaml:"comparative"`
}

// NeutralSentiment is used whenever no page text could be scored.
func NeutralSentiment() Sentiment {
	return Sentiment{Score: 0, Label: LabelNeutral, Comparative: 0}
}

// DataSource records where the traffic figures came from.
type DataSource string

// Provenance values surfaced to users.
const (
	DataSourceExact     DataSource = "exact"
	DataSourceEstimated DataSource = "estimated"
)

// legacyExactSource is the tag older clients send for ranking-API data.
const legacyExactSource = "cloudflare"

// UnmarshalText accepts the current tags plus the legacy "cloudflare" alias.
func (d *DataSource) UnmarshalText(text []byte) error {
	switch v := strings.ToLower(strings.TrimSpace(string(text))); v {
	case "":
		*d = ""
	case string(DataSourceExact), legacyExactSource:
		*d = DataSourceExact
	case string(DataSourceEstimated):
		*d = DataSourceEstimated
	default:
		return fmt.Errorf("unknown data source %q", v)
	}
	return nil
}

// TrafficData is the formatted output of a traffic lookup.
type TrafficData struct {
	Reach          string
	UniqueVisitors string
	PageViews      string
	ShareRate      string
	Rank           *int
	Bucket         string
	Source         DataSource
}

// Ranking is what a ranking provider knows about a hostname.
type Ranking struct {
	Rank   *int
	Bucket string
}

// ScanTask describes a scan already known to the scanning provider.
type ScanTask struct {
	ID     string
	Time   time.Time
	Status string
}

// ScanStatus is a single poll of a scan's progress.
type ScanStatus struct {
	Status  string
	Success bool
}

// Screenshot references a scan whose image is served through the proxy route.
type Screenshot struct {
	ScanID string
	URL    string
}

// Result is the merged analysis for one URL. It is built once and never mutated.
type Result struct {
	URL            string     `json:"url" yaml:"url"`
	Reach          string     `json:"reach" yaml:"reach"`
	UniqueVisitors string     `json:"uniqueVisitors" yaml:"uniqueVisitors"`
	PageViews      string     `json:"pageViews" yaml:"pageViews"`
	ShareRate      string     `json:"shareRate" yaml:"shareRate"`
	Sentiment      Sentiment  `json:"sentiment" yaml:"sentiment"`
	AnalyzedAt     time.Time  `json:"analyzedAt" yaml:"analyzedAt"`
	Rank           *int       `json:"rank,omitempty" yaml:"rank,omitempty"`
	Bucket         string     `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	DataSource     DataSource `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
	ScreenshotURL  string     `json:"screenshotUrl,omitempty" yaml:"screenshotUrl,omitempty"`
	Error          string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the result carries an error instead of metrics.
func (r Result) Failed() bool {
	return r.Error != ""
}

// FailedResult builds the all-sentinel result for a URL that could not be analyzed.
func FailedResult(rawURL string, err error, at time.Time) Result {
	msg := "analysis failed"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		URL:            rawURL,
		Reach:          NotAvailable,
		UniqueVisitors: NotAvailable,
		PageViews:      NotAvailable,
		ShareRate:      NotAvailable,
		Sentiment:      NeutralSentiment(),
		AnalyzedAt:     at,
		Error:          msg,
	}
}

// ErrInvalidURL is returned for input that is not an absolute URL with a host.
var ErrInvalidURL = errors.New("invalid URL")

// ParseURL accepts only absolute URLs that carry a scheme and a host.
func ParseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return u, nil
}
