package news

import (
	"context"
	"log/slog"
	"time"
)

// FailureCounter is satisfied by *metrics.Registry.
type FailureCounter interface {
	RefreshFailed()
}

// Refresher re-fetches every feed on a fixed interval and rebuilds the result
// of each location already served. It is the only retry mechanism for failed
// feeds.
type Refresher struct {
	agg      *Aggregator
	interval time.Duration
	failures FailureCounter
	logger   *slog.Logger
}

func NewRefresher(agg *Aggregator, interval time.Duration, failures FailureCounter, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{agg: agg, interval: interval, failures: failures, logger: logger}
}

// Start blocks until ctx is cancelled. It should typically be run in a
// separate goroutine.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-ctx.Done():
			r.logger.Debug("news refresher stopped")
			return
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context) {
	if _, err := r.agg.Refresh(ctx, nil); err != nil {
		if r.failures != nil {
			r.failures.RefreshFailed()
		}
		r.logger.Warn("news refresh failed", "err", err)
	}
}
