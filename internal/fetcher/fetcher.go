// Package fetcher defines the page retrieval contract shared by the plain
// HTTP and headless browser fetchers.
package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Request describes a single page fetch.
type Request struct {
	URL     string
	Headers http.Header
}

// Response is a fetched page.
type Response struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher retrieves a page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}
