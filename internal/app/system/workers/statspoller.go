package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/htmlsanitize"
	"github.com/dalemusser/edusync/internal/app/system/statsclient"
	"github.com/dalemusser/edusync/internal/domain/models"
	"go.uber.org/zap"
)

// StatsFetcher performs one stats request. *statsclient.Client satisfies it.
type StatsFetcher interface {
	Fetch(ctx context.Context, cat models.StatsCategory) (models.StatsCounters, string, error)
}

// PollObserver receives one observation per completed fetch.
type PollObserver interface {
	ObserveStatsPoll(category, outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveStatsPoll(string, string, time.Duration) {}

// StatsPoller keeps the latest statistics snapshot for one category.
//
// It fetches once on Start and then every interval. Failures replace the
// snapshot with the fixed fallback counters, marked offline (the service
// could not be reached) or error (the service answered with a failure).
// Responses are applied in issue order: a fetch that completes after a
// later-issued one has been applied is discarded.
type StatsPoller struct {
	category models.StatsCategory
	fetcher  StatsFetcher
	interval time.Duration
	log      *zap.Logger
	observer PollObserver
	now      func() time.Time

	mu      sync.RWMutex
	snap    models.StatsSnapshot
	applied uint64
	seq     atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc

	lifeMu  sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// PollerOption configures a StatsPoller.
type PollerOption func(*StatsPoller)

// WithPollObserver reports every fetch (typically to Prometheus).
func WithPollObserver(o PollObserver) PollerOption {
	return func(p *StatsPoller) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) PollerOption {
	return func(p *StatsPoller) { p.now = now }
}

// NewStatsPoller creates a poller. It does nothing until Start.
//
// Parameters:
//   - category: which stats variant to fetch
//   - fetcher: usually a *statsclient.Client
//   - interval: time between scheduled fetches (must be > 0)
//   - logger: zap logger for logging
func NewStatsPoller(category models.StatsCategory, fetcher StatsFetcher, interval time.Duration, logger *zap.Logger, opts ...PollerOption) *StatsPoller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &StatsPoller{
		category: category,
		fetcher:  fetcher,
		interval: interval,
		log:      logger,
		observer: nopObserver{},
		now:      time.Now,
		snap:     models.PendingSnapshot(category),
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Category returns the stats variant this poller serves.
func (p *StatsPoller) Category() models.StatsCategory {
	return p.category
}

// Interval returns the scheduled refresh period.
func (p *StatsPoller) Interval() time.Duration {
	return p.interval
}

// Start fetches immediately and then on every tick. Calling Start more
// than once, or after Stop, does nothing.
func (p *StatsPoller) Start() {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.wg.Add(1)
	go p.run()
	p.log.Info("stats poller started",
		zap.String("category", string(p.category)),
		zap.Duration("interval", p.interval))
}

// Stop cancels the ticker and any in-flight fetch and waits for them to
// finish. No fetch is issued once Stop has returned. Stop is idempotent.
func (p *StatsPoller) Stop() {
	p.lifeMu.Lock()
	if p.stopped {
		p.lifeMu.Unlock()
		return
	}
	p.stopped = true
	p.lifeMu.Unlock()

	p.cancel()
	close(p.stopCh)
	p.wg.Wait()
	p.log.Info("stats poller stopped", zap.String("category", string(p.category)))
}

// Snapshot returns the snapshot currently on display.
func (p *StatsPoller) Snapshot() models.StatsSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Refresh performs one fetch now (the manual refresh button) and returns
// the snapshot on display afterwards. After Stop it returns the last
// snapshot without fetching.
func (p *StatsPoller) Refresh(ctx context.Context) models.StatsSnapshot {
	p.lifeMu.Lock()
	if p.stopped {
		p.lifeMu.Unlock()
		return p.Snapshot()
	}
	p.wg.Add(1)
	p.lifeMu.Unlock()
	defer p.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	unhook := context.AfterFunc(p.ctx, cancel)
	defer unhook()

	p.poll(ctx)
	return p.Snapshot()
}

func (p *StatsPoller) run() {
	defer p.wg.Done()

	p.poll(p.ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll(p.ctx)
		}
	}
}

// poll issues one fetch and applies its result unless a newer one won.
func (p *StatsPoller) poll(ctx context.Context) {
	seq := p.seq.Add(1)
	start := time.Now()

	counters, msg, err := p.fetcher.Fetch(ctx, p.category)

	if ctx.Err() != nil {
		// Torn down or abandoned by the caller mid-fetch; a cancelled
		// request says nothing about the stats service.
		return
	}

	snap := p.snapshotFor(counters, msg, err)
	snap.Seq = seq
	p.observer.ObserveStatsPoll(string(p.category), string(snap.Outcome), time.Since(start))

	if err != nil {
		p.log.Warn("stats fetch failed; showing fallback data",
			zap.String("category", string(p.category)),
			zap.String("outcome", string(snap.Outcome)),
			zap.Error(err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq < p.applied {
		p.log.Debug("discarding stale stats response",
			zap.String("category", string(p.category)),
			zap.Uint64("seq", seq),
			zap.Uint64("applied", p.applied))
		return
	}
	p.applied = seq
	p.snap = snap
}

func (p *StatsPoller) snapshotFor(counters models.StatsCounters, msg string, err error) models.StatsSnapshot {
	snap := models.StatsSnapshot{
		Category:  p.category,
		FetchedAt: p.now(),
	}

	if err == nil {
		snap.Counters = counters
		snap.Source = models.SourceLive
		snap.Outcome = models.OutcomeLive
		snap.Message = htmlsanitize.PlainText(msg)
		return snap
	}

	snap.Counters = models.FallbackStatsCounters()
	snap.Source = models.SourceFallback
	snap.Outcome, snap.Message = describeFailure(err)
	return snap
}

// describeFailure maps a fetch error to an outcome and a message a
// visitor can read.
func describeFailure(err error) (models.StatsOutcome, string) {
	var fe *statsclient.FetchError
	if !errors.As(err, &fe) {
		return models.OutcomeError, "Statistics unavailable."
	}

	switch fe.Kind {
	case statsclient.KindTransport:
		return models.OutcomeOffline, "Showing demo data: the statistics service could not be reached."
	case statsclient.KindUnauthorized:
		return models.OutcomeError, "Statistics unavailable: not authorized."
	case statsclient.KindMalformed:
		return models.OutcomeError, "Statistics unavailable: the service sent an invalid response."
	}

	if m := htmlsanitize.PlainText(fe.Message); m != "" {
		return models.OutcomeError, "Statistics unavailable: " + m
	}
	return models.OutcomeError, fmt.Sprintf("Statistics unavailable: server error (HTTP %d).", fe.StatusCode)
}
