package lobbyclient

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"matchlobby/go-client/internal/platform/metrics"
)

// Refresher polls the lobby list on a fixed interval. Start cancels any loop
// already running before scheduling the next one, so at most one poll loop
// exists no matter how often callers restart it.
type Refresher struct {
	client   *Client
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefresher(client *Client, interval time.Duration, log *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{client: client, interval: interval, log: log}
}

// Start begins polling: one immediate refresh, then one per interval. A
// running loop is stopped first.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	metrics.SchedulerTransitions.WithLabelValues("start").Inc()

	go r.loop(loopCtx, done)
}

// Stop cancels the poll loop and waits for it to exit. Safe to call when
// nothing is running.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Refresher) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil
	metrics.SchedulerTransitions.WithLabelValues("stop").Inc()
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	r.refresh(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh tolerates failures: the loop keeps its cadence and the cache keeps
// its last good snapshot. A logged-out session is expected between logins
// and logged at debug only.
func (r *Refresher) refresh(ctx context.Context) {
	if _, err := r.client.List(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if errors.Is(err, ErrUnauthenticated) {
			r.log.Debug("lobby refresh skipped", "reason", "not logged in")
			return
		}
		r.log.Warn("lobby refresh failed", "error", err)
	}
}
