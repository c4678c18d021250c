package content

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/JakeFAU/link-traffic-analyzer/internal/fetcher"
)

const defaultBodyThreshold = 2048

// spaMarkers identify client-rendered app shells.
var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte(`id="__nuxt"`),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// Detector decides when a plain fetch must be re-rendered in a browser.
type Detector struct {
	BodyLengthThreshold int
}

// NewDetector returns a Detector. A zero threshold uses 2048 bytes.
func NewDetector(threshold int) *Detector {
	if threshold <= 0 {
		threshold = defaultBodyThreshold
	}
	return &Detector{BodyLengthThreshold: threshold}
}

// ShouldRender reports whether resp looks like an app shell with no text.
func (d *Detector) ShouldRender(resp fetcher.Response) bool {
	if resp.StatusCode != http.StatusOK || resp.UsedHeadless {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < d.BodyLengthThreshold && scriptHeavy(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptHeavy reports whether <script> elements cover at least a quarter of body.
func scriptHeavy(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	covered := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		tagEnd := strings.IndexByte(lower[start:], '>')
		if tagEnd == -1 {
			covered += total - start
			break
		}
		bodyStart := start + tagEnd + 1
		end := total
		if relEnd := strings.Index(lower[bodyStart:], closeTag); relEnd != -1 {
			end = bodyStart + relEnd + len(closeTag)
		}
		covered += end - start
		pos = end
	}
	return covered*100/total >= 25
}
