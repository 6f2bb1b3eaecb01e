package db

import (
	"context"
	"database/sql"
)

// writeQueueDepth bounds pending write jobs.  Gatepass writes are small and
// bursty (an issuance, a redemption, an audit row), so a shallow queue is
// enough; Do blocks callers once it fills.
const writeQueueDepth = 128

type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker owns every write transaction in the service.  The conditional
// credential transitions (MarkUsed and friends) check rows-affected, which is
// only meaningful when writes apply one at a time; funneling them through a
// single goroutine also keeps the single-connection SQLite pool away from
// SQLITE_BUSY.
type Worker struct {
	db   *sql.DB
	jobs chan job
	done chan struct{}
}

func NewWorker(db *sql.DB) *Worker {
	w := &Worker{
		db:   db,
		jobs: make(chan job, writeQueueDepth),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) Close() {
	close(w.jobs)
	<-w.done
}

// Do runs fn inside a transaction on the worker goroutine and returns its
// result.  The caller's context bounds both the wait for a queue slot and the
// wait for the result.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch}

	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	// The worker still completes a job whose caller gave up waiting; the
	// result lands in the buffered ch and is discarded.
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		// A job can sit in the queue past its caller's deadline; don't
		// open a transaction for work nobody is waiting on.
		if err := j.ctx.Err(); err != nil {
			j.ch <- err
			continue
		}

		tx, err := w.db.BeginTx(j.ctx, nil)
		if err != nil {
			j.ch <- err
			continue
		}

		if err := j.fn(j.ctx, tx); err != nil {
			_ = tx.Rollback()
			j.ch <- err
			continue
		}

		j.ch <- tx.Commit()
	}
}
