package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/statsclient"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedFetcher answers each call with fn(ctx, callNumber).
type scriptedFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, call int) (models.StatsCounters, string, error)
}

func (f *scriptedFetcher) Fetch(ctx context.Context, cat models.StatsCategory) (models.StatsCounters, string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	return f.fn(ctx, n)
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func liveCounters(users int64) models.StatsCounters {
	return models.StatsCounters{Users: models.Count(users), Resources: models.Count(10), Status: "ok"}
}

func constant(c models.StatsCounters, msg string, err error) *scriptedFetcher {
	return &scriptedFetcher{fn: func(context.Context, int) (models.StatsCounters, string, error) {
		return c, msg, err
	}}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveStatsPoll(_, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) Outcomes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.outcomes...)
}

func TestStatsPoller_PendingBeforeFirstFetch(t *testing.T) {
	p := NewStatsPoller(models.StatsPublic, constant(liveCounters(1), "", nil), time.Hour, zap.NewNop())
	defer p.Stop()

	snap := p.Snapshot()
	assert.Equal(t, models.OutcomePending, snap.Outcome)
	assert.Equal(t, models.SourceFallback, snap.Source)
	assert.Equal(t, models.FallbackStatsCounters(), snap.Counters)
}

func TestStatsPoller_FetchesImmediatelyOnStart(t *testing.T) {
	f := constant(liveCounters(1500), "fresh", nil)
	p := NewStatsPoller(models.StatsPublic, f, time.Hour, zap.NewNop())
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		return p.Snapshot().Outcome == models.OutcomeLive
	}, time.Second, 5*time.Millisecond)

	snap := p.Snapshot()
	assert.Equal(t, models.SourceLive, snap.Source)
	assert.Equal(t, liveCounters(1500), snap.Counters)
	assert.Equal(t, "fresh", snap.Message)
	assert.False(t, snap.FetchedAt.IsZero())
	assert.Equal(t, 1, f.Calls())
}

func TestStatsPoller_FailuresShowFallback(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantOutcome models.StatsOutcome
		wantMsg     string
	}{
		{
			name:        "transport",
			err:         &statsclient.FetchError{Kind: statsclient.KindTransport, Err: errors.New("connection refused")},
			wantOutcome: models.OutcomeOffline,
			wantMsg:     "Showing demo data: the statistics service could not be reached.",
		},
		{
			name:        "unauthorized",
			err:         &statsclient.FetchError{Kind: statsclient.KindUnauthorized, StatusCode: 401},
			wantOutcome: models.OutcomeError,
			wantMsg:     "Statistics unavailable: not authorized.",
		},
		{
			name:        "server with message",
			err:         &statsclient.FetchError{Kind: statsclient.KindServer, StatusCode: 500, Message: "<b>database</b> down"},
			wantOutcome: models.OutcomeError,
			wantMsg:     "Statistics unavailable: database down",
		},
		{
			name:        "server without message",
			err:         &statsclient.FetchError{Kind: statsclient.KindServer, StatusCode: 502},
			wantOutcome: models.OutcomeError,
			wantMsg:     "Statistics unavailable: server error (HTTP 502).",
		},
		{
			name:        "malformed",
			err:         &statsclient.FetchError{Kind: statsclient.KindMalformed, StatusCode: 200},
			wantOutcome: models.OutcomeError,
			wantMsg:     "Statistics unavailable: the service sent an invalid response.",
		},
		{
			name:        "unknown category",
			err:         statsclient.ErrUnknownCategory,
			wantOutcome: models.OutcomeError,
			wantMsg:     "Statistics unavailable.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewStatsPoller(models.StatsAdmin, constant(liveCounters(7), "", tt.err), time.Hour, zap.NewNop())
			defer p.Stop()

			snap := p.Refresh(context.Background())

			assert.Equal(t, tt.wantOutcome, snap.Outcome)
			assert.Equal(t, models.SourceFallback, snap.Source)
			assert.Equal(t, models.FallbackStatsCounters(), snap.Counters)
			assert.Equal(t, tt.wantMsg, snap.Message)
		})
	}
}

func TestStatsPoller_RecoversAfterFailure(t *testing.T) {
	f := &scriptedFetcher{fn: func(_ context.Context, call int) (models.StatsCounters, string, error) {
		if call == 1 {
			return models.StatsCounters{}, "", &statsclient.FetchError{Kind: statsclient.KindTransport}
		}
		return liveCounters(42), "", nil
	}}
	obs := &recordingObserver{}
	p := NewStatsPoller(models.StatsPublic, f, time.Hour, zap.NewNop(), WithPollObserver(obs))
	defer p.Stop()

	assert.Equal(t, models.OutcomeOffline, p.Refresh(context.Background()).Outcome)
	assert.Equal(t, models.OutcomeLive, p.Refresh(context.Background()).Outcome)
	assert.Equal(t, []string{"offline", "live"}, obs.Outcomes())
}

func TestStatsPoller_TicksAtInterval(t *testing.T) {
	f := constant(liveCounters(1), "", nil)
	p := NewStatsPoller(models.StatsFaculty, f, 10*time.Millisecond, zap.NewNop())
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool { return f.Calls() >= 4 }, 2*time.Second, 5*time.Millisecond)
}

func TestStatsPoller_NoFetchesAfterStop(t *testing.T) {
	f := constant(liveCounters(1), "", nil)
	p := NewStatsPoller(models.StatsPublic, f, 5*time.Millisecond, zap.NewNop())
	p.Start()

	require.Eventually(t, func() bool { return f.Calls() >= 2 }, time.Second, time.Millisecond)
	p.Stop()
	after := f.Calls()

	time.Sleep(50 * time.Millisecond)
	p.Refresh(context.Background())
	p.Start()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, after, f.Calls(), "fetch issued after Stop")
	p.Stop() // idempotent
}

func TestStatsPoller_StopCancelsInFlightFetch(t *testing.T) {
	entered := make(chan struct{})
	f := &scriptedFetcher{fn: func(ctx context.Context, _ int) (models.StatsCounters, string, error) {
		close(entered)
		<-ctx.Done()
		return models.StatsCounters{}, "", &statsclient.FetchError{Kind: statsclient.KindTransport, Err: ctx.Err()}
	}}
	p := NewStatsPoller(models.StatsPublic, f, time.Hour, zap.NewNop())
	p.Start()
	<-entered

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the in-flight fetch")
	}
	assert.Equal(t, models.OutcomePending, p.Snapshot().Outcome, "cancelled fetch must not be applied")
}

func TestStatsPoller_StaleResponseDiscarded(t *testing.T) {
	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})
	f := &scriptedFetcher{fn: func(_ context.Context, call int) (models.StatsCounters, string, error) {
		if call == 1 {
			close(firstEntered)
			<-releaseFirst
			return liveCounters(111), "old", nil
		}
		return liveCounters(222), "new", nil
	}}
	p := NewStatsPoller(models.StatsPublic, f, time.Hour, zap.NewNop())
	defer p.Stop()

	slow := make(chan models.StatsSnapshot)
	go func() { slow <- p.Refresh(context.Background()) }()
	<-firstEntered

	fast := p.Refresh(context.Background())
	require.Equal(t, "new", fast.Message)

	close(releaseFirst)
	late := <-slow

	assert.Equal(t, "new", late.Message, "older response replaced a newer one")
	assert.Equal(t, liveCounters(222), p.Snapshot().Counters)
	assert.Equal(t, uint64(2), p.Snapshot().Seq)
}

func TestStatsPoller_CallerCancelDoesNotOverwrite(t *testing.T) {
	f := &scriptedFetcher{fn: func(ctx context.Context, call int) (models.StatsCounters, string, error) {
		if call == 1 {
			return liveCounters(5), "", nil
		}
		<-ctx.Done()
		return models.StatsCounters{}, "", &statsclient.FetchError{Kind: statsclient.KindTransport, Err: ctx.Err()}
	}}
	p := NewStatsPoller(models.StatsPublic, f, time.Hour, zap.NewNop())
	defer p.Stop()

	p.Refresh(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := p.Refresh(ctx)

	assert.Equal(t, models.OutcomeLive, snap.Outcome)
	assert.Equal(t, liveCounters(5), snap.Counters)
}

func TestStatsHub_StartStop(t *testing.T) {
	f := constant(liveCounters(3), "", nil)
	h := NewStatsHub(f, time.Hour, zap.NewNop())
	h.Start()

	require.Eventually(t, func() bool { return f.Calls() == len(models.StatsCategories) }, time.Second, 5*time.Millisecond)

	for _, cat := range models.StatsCategories {
		p, ok := h.Poller(cat)
		require.True(t, ok)
		require.Eventually(t, func() bool { return p.Snapshot().Outcome == models.OutcomeLive }, time.Second, 5*time.Millisecond)
	}
	_, ok := h.Poller("secret")
	assert.False(t, ok)

	h.Stop()
	assert.Len(t, h.Snapshots(), len(models.StatsCategories))
}

func TestStatsPoller_FetchedAtUsesClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	p := NewStatsPoller(models.StatsPublic, constant(liveCounters(1), "", nil), time.Hour, zap.NewNop(),
		WithClock(func() time.Time { return fixed }))
	defer p.Stop()

	assert.Equal(t, fixed, p.Refresh(context.Background()).FetchedAt)
}
