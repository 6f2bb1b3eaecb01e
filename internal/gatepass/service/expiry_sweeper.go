package service

import (
	"context"
	"log"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/store"
)

// ExpirySweeper periodically persists the expired state for single-use
// codes whose validity window has passed.  It runs as a background
// goroutine and is safe to stop via its context or the Stop method.
//
// Expiry is computed lazily on every read, so the sweeper is purely an
// optimization: it keeps the active partial index small and makes terminal
// states visible to ad-hoc queries.  It writes through the same conditional
// primitive as redemption and therefore cannot race one incorrectly.
//
// An interval of 0 disables sweeping entirely.
type ExpirySweeper struct {
	store    store.CredentialStore
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// SweeperConfig holds the parameters for NewExpirySweeper.
type SweeperConfig struct {
	// IntervalMinutes is how often the sweeper runs.  0 disables it.
	IntervalMinutes int
}

// NewExpirySweeper creates a sweeper but does not start it.
// Call Start to begin the background loop.
func NewExpirySweeper(s store.CredentialStore, cfg SweeperConfig, logger *log.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		store:    s,
		interval: time.Duration(cfg.IntervalMinutes) * time.Minute,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background sweep loop.  It runs an immediate sweep on
// startup, then repeats on the configured interval.  The loop exits when
// ctx is cancelled or Stop is called.
func (w *ExpirySweeper) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Printf("expiry sweeper disabled (interval=0)")
		close(w.done)
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)

	go w.loop(ctx)

	w.logger.Printf("expiry sweeper started (interval=%s)", w.interval)
}

// Stop signals the sweeper to exit and waits for it to finish.  Safe to call
// when Start never ran a loop (not started, or disabled).
func (w *ExpirySweeper) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *ExpirySweeper) loop(ctx context.Context) {
	defer close(w.done)

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpirySweeper) sweep(ctx context.Context) {
	swept, err := w.store.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		w.logger.Printf("expiry sweep error: %v", err)
		return
	}
	if swept > 0 {
		w.logger.Printf("expiry sweep: %d codes transitioned to expired", swept)
	}
}
