package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

const testAccount = "acct-123"

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		APIToken:  "token",
		AccountID: testAccount,
		BaseURL:   srv.URL,
	}, srv.Client(), zap.NewNop())
	require.NoError(t, err)
	return c
}

func requireBearer(t *testing.T, r *http.Request) {
	t.Helper()
	require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
}

func TestNew_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := New(Config{APIToken: "  "}, nil, nil)
	require.ErrorIs(t, err, ErrMissingCredentials)

	c, err := New(Config{APIToken: "t"}, nil, nil)
	require.NoError(t, err)
	require.False(t, c.ScannerEnabled())
	require.Equal(t, DefaultBaseURL+"/", c.cfg.BaseURL)
	require.Equal(t, DefaultResolution, c.cfg.Resolution)
}

func TestDomainRank(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		require.Equal(t, "/radar/ranking/domain/example.com", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"errors":[],"messages":[],"result":{"details_0":{"bucket":"200","rank":42}}}`)
	}))

	ranking, err := c.DomainRank(context.Background(), "example.com")
	require.NoError(t, err)
	require.NotNil(t, ranking.Rank)
	require.Equal(t, 42, *ranking.Rank)
	require.Equal(t, "200", ranking.Bucket)
}

func TestDomainRank_BucketOnly(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"errors":[],"messages":[],"result":{"details_0":{"bucket":"50000","rank":null}}}`)
	}))

	ranking, err := c.DomainRank(context.Background(), "example.com")
	require.NoError(t, err)
	require.Nil(t, ranking.Rank)
	require.Equal(t, "50000", ranking.Bucket)
}

func TestDomainRank_NoData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty result", http.StatusOK, `{"success":true,"errors":[],"messages":[],"result":{}}`},
		{"not found", http.StatusNotFound, `{"success":false,"errors":[{"code":404,"message":"not found"}],"messages":[],"result":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			_, err := c.DomainRank(context.Background(), "tiny.example")
			require.ErrorIs(t, err, analysis.ErrNoRanking)
		})
	}
}

func TestDomainRank_HTTPError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"success":false,"errors":[{"code":10000,"message":"Authentication error"}],"messages":[],"result":null}`)
	}))

	_, err := c.DomainRank(context.Background(), "example.com")
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, statusCode(err))
	require.False(t, errors.Is(err, analysis.ErrNoRanking))
}

func TestLatestScan(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		require.Equal(t, "/accounts/"+testAccount+"/urlscanner/v2/search", r.URL.Path)
		require.Equal(t, `page.url:"https://example.com/a?b=c"`, r.URL.Query().Get("q"))
		require.Equal(t, "1", r.URL.Query().Get("size"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":[{"_id":"abc","task":{"uuid":"abc","time":"2024-05-01T10:00:00.123Z","url":"https://example.com/a?b=c","visibility":"public"}}]}`)
	}))

	task, found, err := c.LatestScan(context.Background(), "https://example.com/a?b=c")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "abc", task.ID)
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC), task.Time.UTC())
}

func TestLatestScan_None(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":[]}`)
	}))

	_, found, err := c.LatestScan(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.False(t, found)
}

func TestCreateScan(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/accounts/"+testAccount+"/urlscanner/v2/scan", r.URL.Path)
		var body struct {
			URL                    string   `json:"url"`
			ScreenshotsResolutions []string `json:"screenshotsResolutions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "https://example.com", body.URL)
		require.Equal(t, []string{"desktop"}, body.ScreenshotsResolutions)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"uuid":"scan-1","url":"https://example.com","visibility":"public","message":"Submission successful","api":"","result":""}`)
	}))

	id, err := c.CreateScan(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "scan-1", id)
}

func TestCreateScan_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		unsupported bool
	}{
		{
			name:        "unsupported hostname",
			body:        `{"success":false,"errors":[{"code":1,"message":"Scan request denied: Unsupported hostname"}]}`,
			unsupported: true,
		},
		{
			name: "other error",
			body: `{"success":false,"errors":[{"code":2,"message":"rate limited"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, tt.body)
			}))
			_, err := c.CreateScan(context.Background(), "https://localhost")
			require.Error(t, err)
			require.Equal(t, tt.unsupported, errors.Is(err, analysis.ErrUnsupportedHostname))
		})
	}
}

func TestScanStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts/"+testAccount+"/urlscanner/v2/result/scan-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"task":{"uuid":"scan-1","status":"Finished","success":true}}`)
	}))

	status, err := c.ScanStatus(context.Background(), "scan-1")
	require.NoError(t, err)
	require.Equal(t, analysis.ScanStatus{Status: "Finished", Success: true}, status)
}

func TestScanStatus_NotReady(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Scan is not finished yet.","status":404}`)
	}))

	_, err := c.ScanStatus(context.Background(), "scan-1")
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, statusCode(err))
}

func TestScreenshot(t *testing.T) {
	t.Parallel()

	png := []byte("\x89PNG\r\n\x1a\nfake")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		require.Equal(t, "/accounts/"+testAccount+"/urlscanner/v2/screenshots/scan-1.png", r.URL.Path)
		require.Equal(t, "desktop", r.URL.Query().Get("resolution"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))

	data, err := c.Screenshot(context.Background(), "scan-1")
	require.NoError(t, err)
	require.Equal(t, png, data)
}

func TestScreenshot_Unavailable(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no", http.StatusNotFound)
	}))

	_, err := c.Screenshot(context.Background(), "scan-1")
	require.ErrorIs(t, err, analysis.ErrScreenshotUnavailable)
}

func TestScreenshot_TooLarge(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(bytes.Repeat([]byte{0x1}, maxScreenshotBytes+1))
	}))

	_, err := c.Screenshot(context.Background(), "scan-1")
	require.ErrorIs(t, err, analysis.ErrScreenshotUnavailable)
}

func TestScannerCalls_DisabledWithoutAccount(t *testing.T) {
	t.Parallel()

	c, err := New(Config{APIToken: "t"}, nil, nil)
	require.NoError(t, err)

	_, _, err = c.LatestScan(context.Background(), "https://example.com")
	require.ErrorIs(t, err, ErrScannerDisabled)
	_, err = c.CreateScan(context.Background(), "https://example.com")
	require.ErrorIs(t, err, ErrScannerDisabled)
	_, err = c.ScanStatus(context.Background(), "x")
	require.ErrorIs(t, err, ErrScannerDisabled)
	_, err = c.Screenshot(context.Background(), "x")
	require.ErrorIs(t, err, ErrScannerDisabled)
}
