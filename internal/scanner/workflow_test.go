package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sleeper advances the fake clock instead of waiting.
func (c *fakeClock) sleeper() SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Advance(d)
		return nil
	}
}

// fakeProvider remembers created scans so later searches can find them.
type fakeProvider struct {
	mu        sync.Mutex
	clock     *fakeClock
	scans     map[string]analysis.ScanTask
	statuses  []analysis.ScanStatus
	createErr error
	searchErr error
	creates   int
	polls     int
	images    map[string][]byte
}

func newFakeProvider(clock *fakeClock) *fakeProvider {
	return &fakeProvider{
		clock:  clock,
		scans:  map[string]analysis.ScanTask{},
		images: map[string][]byte{},
	}
}

func (p *fakeProvider) LatestScan(_ context.Context, pageURL string) (analysis.ScanTask, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.searchErr != nil {
		return analysis.ScanTask{}, false, p.searchErr
	}
	task, ok := p.scans[pageURL]
	return task, ok, nil
}

func (p *fakeProvider) CreateScan(_ context.Context, pageURL string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	p.creates++
	id := fmt.Sprintf("scan-%d", p.creates)
	p.scans[pageURL] = analysis.ScanTask{ID: id, Time: p.clock.Now(), Status: "Queued"}
	return id, nil
}

func (p *fakeProvider) ScanStatus(_ context.Context, _ string) (analysis.ScanStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if len(p.statuses) == 0 {
		return analysis.ScanStatus{Status: "Running"}, nil
	}
	next := p.statuses[0]
	p.statuses = p.statuses[1:]
	return next, nil
}

func (p *fakeProvider) Screenshot(_ context.Context, scanID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.images[scanID]
	if !ok {
		return nil, analysis.ErrScreenshotUnavailable
	}
	return data, nil
}

func newTestWorkflow(provider analysis.ScanProvider, clock *fakeClock) *Workflow {
	return New(provider, clock, DefaultConfig(), zap.NewNop(), WithSleep(clock.sleeper()))
}

func TestWorkflow_ReusesRecentScan(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	provider := newFakeProvider(clock)
	provider.statuses = []analysis.ScanStatus{{Status: "Finished", Success: true}}
	wf := newTestWorkflow(provider, clock)

	first, err := wf.Acquire(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "scan-1", first.ScanID)
	require.Equal(t, "/screenshot/scan-1", first.URL)

	clock.Advance(3 * time.Hour)
	state := wf.Run(context.Background(), "https://example.com")
	require.Equal(t, PhaseReady, state.Phase)
	require.True(t, state.Reused)
	require.Equal(t, first.ScanID, state.ScanID)
	require.Equal(t, 1, provider.creates)
}

func TestWorkflow_RescansAfterReuseWindow(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	provider := newFakeProvider(clock)
	provider.statuses = []analysis.ScanStatus{{Status: "Finished", Success: true}, {Status: "Finished", Success: true}}
	wf := newTestWorkflow(provider, clock)

	_, err := wf.Acquire(context.Background(), "https://example.com")
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)
	second, err := wf.Acquire(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "scan-2", second.ScanID)
	require.Equal(t, 2, provider.creates)
}

func TestWorkflow_PollsUntilFinished(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	provider := newFakeProvider(clock)
	provider.statuses = []analysis.ScanStatus{
		{Status: "Queued"},
		{Status: "InProgress"},
		{Status: "Finished", Success: true},
	}
	wf := newTestWorkflow(provider, clock)

	state := wf.Run(context.Background(), "https://example.com")
	require.Equal(t, PhaseReady, state.Phase)
	require.False(t, state.TimedOut)
	require.Equal(t, 3, provider.polls)
	require.Equal(t, t0.Add(4*time.Second), clock.Now())
}

func TestWorkflow_TimeoutIsOptimistic(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	provider := newFakeProvider(clock)
	wf := newTestWorkflow(provider, clock)

	shot, err := wf.Acquire(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "/screenshot/scan-1", shot.URL)
	// Polls at 0,2,...,28s; the 30s tick hits the deadline.
	require.Equal(t, 15, provider.polls)
}

func TestWorkflow_FailedScan(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	provider := newFakeProvider(clock)
	provider.statuses = []analysis.ScanStatus{{Status: "Failed"}}
	wf := newTestWorkflow(provider, clock)

	_, err := wf.Acquire(context.Background(), "https://example.com")
	require.ErrorIs(t, err, analysis.ErrScreenshotUnavailable)
}

func TestWorkflow_CreateRejected(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	provider := newFakeProvider(clock)
	provider.searchErr = errors.New("search down")
	provider.createErr = fmt.Errorf("scan: %w", analysis.ErrUnsupportedHostname)
	wf := newTestWorkflow(provider, clock)

	state := wf.Run(context.Background(), "http://localhost")
	require.Equal(t, PhaseFailed, state.Phase)
	require.Contains(t, state.Reason, "not supported")
	require.Zero(t, provider.polls)
}

func TestWorkflow_NoCredentials(t *testing.T) {
	t.Parallel()

	wf := New(nil, &fakeClock{now: t0}, Config{}, nil)
	require.False(t, wf.Enabled())

	state := wf.Run(context.Background(), "https://example.com")
	require.Equal(t, PhaseNoCredentials, state.Phase)

	_, err := wf.Acquire(context.Background(), "https://example.com")
	require.ErrorIs(t, err, analysis.ErrScreenshotUnavailable)

	_, err = wf.Screenshot(context.Background(), "scan-1")
	require.ErrorIs(t, err, analysis.ErrScreenshotUnavailable)
}

func TestWorkflow_CancelledWhilePolling(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	provider := newFakeProvider(clock)
	ctx, cancel := context.WithCancel(context.Background())
	wf := New(provider, clock, DefaultConfig(), nil, WithSleep(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	state := wf.Run(ctx, "https://example.com")
	require.Equal(t, PhaseFailed, state.Phase)
	require.Contains(t, state.Reason, "cancelled")
}

func TestWorkflow_Screenshot(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	provider := newFakeProvider(clock)
	provider.images["scan-9"] = []byte("png")
	wf := newTestWorkflow(provider, clock)

	data, err := wf.Screenshot(context.Background(), "scan-9")
	require.NoError(t, err)
	require.Equal(t, []byte("png"), data)

	_, err = wf.Screenshot(context.Background(), "missing")
	require.ErrorIs(t, err, analysis.ErrScreenshotUnavailable)
}

func TestWorkflow_LoadImage(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: t0}
	provider := newFakeProvider(clock)
	provider.images["scan-9"] = []byte("png")
	wf := newTestWorkflow(provider, clock)

	data, err := wf.LoadImage(context.Background(), ProxyPath("scan-9"))
	require.NoError(t, err)
	require.Equal(t, []byte("png"), data)

	for _, ref := range []string{"scan-9", "/screenshot/", "https://example.com/x.png", "/screenshot/a/b"} {
		_, err = wf.LoadImage(context.Background(), ref)
		require.ErrorIs(t, err, analysis.ErrScreenshotUnavailable, ref)
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
