package workers

import (
	"sync"
	"time"

	"github.com/dalemusser/edusync/internal/domain/models"
	"go.uber.org/zap"
)

// StatsHub runs one StatsPoller per stats category for the lifetime of
// the process. It is started by the Startup hook and stopped by Shutdown.
type StatsHub struct {
	pollers map[models.StatsCategory]*StatsPoller
	log     *zap.Logger
}

// NewStatsHub builds (but does not start) a poller for every category.
func NewStatsHub(fetcher StatsFetcher, interval time.Duration, logger *zap.Logger, opts ...PollerOption) *StatsHub {
	h := &StatsHub{
		pollers: make(map[models.StatsCategory]*StatsPoller, len(models.StatsCategories)),
		log:     logger,
	}
	for _, cat := range models.StatsCategories {
		h.pollers[cat] = NewStatsPoller(cat, fetcher, interval, logger, opts...)
	}
	return h
}

// Poller returns the poller for cat.
func (h *StatsHub) Poller(cat models.StatsCategory) (*StatsPoller, bool) {
	p, ok := h.pollers[cat]
	return p, ok
}

// Start starts every poller.
func (h *StatsHub) Start() {
	for _, cat := range models.StatsCategories {
		h.pollers[cat].Start()
	}
}

// Stop stops every poller in parallel and waits for all of them.
func (h *StatsHub) Stop() {
	var wg sync.WaitGroup
	for _, p := range h.pollers {
		wg.Add(1)
		go func(p *StatsPoller) {
			defer wg.Done()
			p.Stop()
		}(p)
	}
	wg.Wait()
	h.log.Info("stats hub stopped")
}

// Snapshots returns the current snapshot of every category, keyed by category.
func (h *StatsHub) Snapshots() map[models.StatsCategory]models.StatsSnapshot {
	out := make(map[models.StatsCategory]models.StatsSnapshot, len(h.pollers))
	for cat, p := range h.pollers {
		out[cat] = p.Snapshot()
	}
	return out
}
