package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// maxImageBytes caps a single embedded screenshot.
const maxImageBytes = 10 << 20

// screenshotPrefix is the proxy route screenshot references point at.
const screenshotPrefix = "/screenshot/"

// ErrForeignImageRef is returned for references that do not point at this
// service's screenshot proxy.
var ErrForeignImageRef = errors.New("image ref is not a screenshot proxy path")

// HTTPImageLoader fetches screenshots back through the proxy route. Only
// "/screenshot/<uuid>" references are loaded, resolved against Base. Header
// is sent with every request and never leaves Base's host.
type HTTPImageLoader struct {
	Base   *url.URL
	Client *http.Client
	Header http.Header
}

// LoadImage implements ImageLoader.
func (l HTTPImageLoader) LoadImage(ctx context.Context, ref string) ([]byte, error) {
	target, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	if target.Host == l.Base.Host {
		for key, values := range l.Header {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}
	resp, err := l.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image %s: status %d", target, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", target, err)
	}
	return data, nil
}

// client returns a copy of Client that refuses redirects off Base's host.
func (l HTTPImageLoader) client() *http.Client {
	c := http.Client{}
	if l.Client != nil {
		c = *l.Client
	}
	host := l.Base.Host
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if req.URL.Host != host {
			return fmt.Errorf("redirect to %s: %w", req.URL.Host, ErrForeignImageRef)
		}
		if len(via) >= 5 {
			return errors.New("too many redirects")
		}
		return nil
	}
	return &c
}

func (l HTTPImageLoader) resolve(ref string) (*url.URL, error) {
	if l.Base == nil {
		return nil, fmt.Errorf("image ref %q without base url", ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse image ref %q: %w", ref, err)
	}
	if u.IsAbs() || u.Host != "" || u.RawQuery != "" {
		return nil, fmt.Errorf("%w: %q", ErrForeignImageRef, ref)
	}
	id, ok := strings.CutPrefix(u.Path, screenshotPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrForeignImageRef, ref)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrForeignImageRef, ref)
	}
	return l.Base.ResolveReference(&url.URL{Path: u.Path}), nil
}
