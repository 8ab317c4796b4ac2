package poller

import (
	"context"
	"time"

	"github.com/node-pulse/apcupsd-exporter/internal/apcaccess"
	"github.com/node-pulse/apcupsd-exporter/internal/logger"
	"github.com/node-pulse/apcupsd-exporter/internal/state"
)

// Fetcher retrieves one status snapshot from the UPS daemon
type Fetcher interface {
	Fetch(ctx context.Context) (apcaccess.Snapshot, error)
}

// Ensure the NIS client satisfies Fetcher
var _ Fetcher = (*apcaccess.Client)(nil)

// Poller refreshes a store from a Fetcher at a fixed interval
type Poller struct {
	fetcher  Fetcher
	store    *state.Store
	interval time.Duration
	now      func() time.Time
}

// New creates a poller writing into store
func New(fetcher Fetcher, store *state.Store, interval time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// PollOnce fetches a snapshot and publishes it. On failure the previous
// snapshot stays in place and the error is returned after being logged.
func (p *Poller) PollOnce(ctx context.Context) error {
	start := p.now()

	snap, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.store.RecordFailure(err, start)
		logger.Warn("Failed to fetch apcupsd status, keeping previous snapshot",
			logger.Int("consecutive_failures", p.store.Health().ConsecutiveFailures),
			logger.Err(err))
		return err
	}

	p.store.Swap(snap, start)

	logger.Debug("Snapshot updated",
		logger.Int("keys", snap.Len()),
		logger.Duration("took", p.now().Sub(start)))

	return nil
}

// Run polls on every tick until ctx is cancelled. The first poll happens one
// interval after Run is called; callers do their initial fetch themselves.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logger.Info("Poller started", logger.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Poller stopped")
			return
		case <-ticker.C:
			_ = p.PollOnce(ctx)
		}
	}
}
