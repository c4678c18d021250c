package cloudflare

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	cf "github.com/cloudflare/cloudflare-go/v4"
	"github.com/cloudflare/cloudflare-go/v4/url_scanner"
	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

// unsupportedHostnameMessage is the scanner error text for refused hostnames.
const unsupportedHostnameMessage = "Unsupported hostname"

// maxScreenshotBytes caps a downloaded screenshot.
const maxScreenshotBytes = 10 << 20

// LatestScan returns the most recent scan of pageURL, if any.
func (c *Client) LatestScan(ctx context.Context, pageURL string) (analysis.ScanTask, bool, error) {
	if !c.ScannerEnabled() {
		return analysis.ScanTask{}, false, ErrScannerDisabled
	}
	resp, err := c.api.URLScanner.Scans.List(ctx, url_scanner.ScanListParams{
		AccountID: cf.F(c.cfg.AccountID),
		Q:         cf.F(fmt.Sprintf("page.url:%q", pageURL)),
		Size:      cf.F(int64(1)),
	})
	if err != nil {
		return analysis.ScanTask{}, false, fmt.Errorf("search scans: %w", err)
	}
	if len(resp.Results) == 0 {
		return analysis.ScanTask{}, false, nil
	}
	task := resp.Results[0].Task
	at, err := time.Parse(time.RFC3339, task.Time)
	if err != nil {
		return analysis.ScanTask{}, false, fmt.Errorf("parse scan time %q: %w", task.Time, err)
	}
	return analysis.ScanTask{ID: task.UUID, Time: at}, true, nil
}

// CreateScan submits pageURL for scanning and returns the new scan ID.
func (c *Client) CreateScan(ctx context.Context, pageURL string) (string, error) {
	if !c.ScannerEnabled() {
		return "", ErrScannerDisabled
	}
	resp, err := c.api.URLScanner.Scans.New(ctx, url_scanner.ScanNewParams{
		AccountID: cf.F(c.cfg.AccountID),
		URL:       cf.F(pageURL),
		ScreenshotsResolutions: cf.F([]url_scanner.ScanNewParamsScreenshotsResolution{
			url_scanner.ScanNewParamsScreenshotsResolution(c.cfg.Resolution),
		}),
	})
	if err != nil {
		if strings.Contains(err.Error(), unsupportedHostnameMessage) {
			return "", fmt.Errorf("scan %s: %w", pageURL, analysis.ErrUnsupportedHostname)
		}
		return "", fmt.Errorf("scan %s rejected: %w", pageURL, err)
	}
	if resp.UUID == "" {
		return "", fmt.Errorf("scan %s: response carried no scan id", pageURL)
	}
	return resp.UUID, nil
}

// ScanStatus polls a scan's task status. Unfinished scans come back as 404.
func (c *Client) ScanStatus(ctx context.Context, scanID string) (analysis.ScanStatus, error) {
	if !c.ScannerEnabled() {
		return analysis.ScanStatus{}, ErrScannerDisabled
	}
	resp, err := c.api.URLScanner.Scans.Get(ctx, scanID, url_scanner.ScanGetParams{
		AccountID: cf.F(c.cfg.AccountID),
	})
	if err != nil {
		return analysis.ScanStatus{}, fmt.Errorf("scan %s status: %w", scanID, err)
	}
	return analysis.ScanStatus{Status: string(resp.Task.Status), Success: resp.Task.Success}, nil
}

// Screenshot downloads the screenshot bytes for a finished scan.
func (c *Client) Screenshot(ctx context.Context, scanID string) ([]byte, error) {
	if !c.ScannerEnabled() {
		return nil, ErrScannerDisabled
	}
	resp, err := c.api.URLScanner.Scans.Screenshot(ctx, scanID, url_scanner.ScanScreenshotParams{
		AccountID:  cf.F(c.cfg.AccountID),
		Resolution: cf.F(url_scanner.ScanScreenshotParamsResolution(c.cfg.Resolution)),
	})
	if err != nil {
		c.logger.Debug("screenshot fetch failed",
			zap.String("scan_id", scanID),
			zap.Int("status", statusCode(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("screenshot %s: %w", scanID, analysis.ErrScreenshotUnavailable)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close screenshot body", zap.Error(cerr))
		}
	}()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScreenshotBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read screenshot %s: %w", scanID, err)
	}
	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("screenshot %s: empty body: %w", scanID, analysis.ErrScreenshotUnavailable)
	case len(data) > maxScreenshotBytes:
		return nil, fmt.Errorf("screenshot %s: larger than %d bytes: %w", scanID, maxScreenshotBytes, analysis.ErrScreenshotUnavailable)
	}
	return data, nil
}
