// Package loader fetches the six ledger collections concurrently and makes
// sure only the most recent load is ever published.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/analytics"
	"finanzas/internal/ledger"
)

// ErrStale is returned by a load that was overtaken by a newer one.
var ErrStale = errors.New("loader: superseded by a newer load")

// Snapshot is one complete, consistent read of the ledger.
type Snapshot struct {
	Collections analytics.Collections
	Generation  uint64
	LoadedAt    time.Time
}

// flight is one load in progress. done is closed once snap and err are set.
type flight struct {
	gen  uint64
	done chan struct{}
	snap Snapshot
	err  error
}

type Loader struct {
	reader ledger.Reader
	now    func() time.Time

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	inflight *flight
	latest   *Snapshot
}

func New(r ledger.Reader) *Loader {
	return &Loader{reader: r, now: time.Now}
}

// Load starts a new generation, cancelling any load still in flight, and
// fetches every collection. If any fetch fails the others are cancelled.
// A load that is overtaken returns ErrStale and publishes nothing.
func (l *Loader) Load(ctx context.Context) (Snapshot, error) {
	l.mu.Lock()
	f, fctx, cancel := l.beginLocked(ctx)
	l.mu.Unlock()

	l.run(fctx, cancel, f)
	return f.snap, f.err
}

// beginLocked supersedes the current load, if any. l.mu must be held.
func (l *Loader) beginLocked(ctx context.Context) (*flight, context.Context, context.CancelFunc) {
	l.gen++
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	f := &flight{gen: l.gen, done: make(chan struct{})}
	l.inflight = f
	return f, ctx, cancel
}

func (l *Loader) run(ctx context.Context, cancel context.CancelFunc, f *flight) {
	defer cancel()

	start := l.now()
	c, err := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	defer close(f.done)
	if f.gen != l.gen {
		slog.DebugContext(ctx, "Discarding stale ledger load", "generation", f.gen, "latest", l.gen)
		f.err = ErrStale
		return
	}
	l.cancel = nil
	l.inflight = nil
	if err != nil {
		f.err = err
		return
	}
	f.snap = Snapshot{Collections: c, Generation: f.gen, LoadedAt: l.now()}
	snap := f.snap
	l.latest = &snap
	slog.DebugContext(ctx, "Loaded ledger",
		"generation", f.gen,
		"records", c.Len(),
		"duration_ms", snap.LoadedAt.Sub(start).Milliseconds())
}

// Latest returns the last published snapshot, if any.
func (l *Loader) Latest() (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest == nil {
		return Snapshot{}, false
	}
	return *l.latest, true
}

// Invalidate drops the published snapshot so the next read reloads.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.latest = nil
	l.mu.Unlock()
}

// Get returns the latest snapshot when it is younger than maxAge, loading a
// fresh one otherwise. A zero maxAge always loads.
//
// Concurrent callers share the load in flight instead of starting their own.
// When that load is superseded by Load they follow the newer generation.
// Cancelling ctx stops the wait, not the shared load.
func (l *Loader) Get(ctx context.Context, maxAge time.Duration) (Snapshot, error) {
	if snap, ok := l.Latest(); ok && maxAge > 0 && l.now().Sub(snap.LoadedAt) < maxAge {
		return snap, nil
	}
	f := l.join(ctx)
	for {
		select {
		case <-f.done:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
		if !errors.Is(f.err, ErrStale) {
			return f.snap, f.err
		}

		l.mu.Lock()
		next, latest := l.inflight, l.latest
		l.mu.Unlock()
		switch {
		case next != nil:
			f = next
		case latest != nil && latest.Generation > f.gen:
			return *latest, nil
		default:
			f = l.join(ctx)
		}
	}
}

// join returns the load in flight, starting one when there is none.
func (l *Loader) join(ctx context.Context) *flight {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight != nil {
		return l.inflight
	}
	f, fctx, cancel := l.beginLocked(context.WithoutCancel(ctx))
	go l.run(fctx, cancel, f)
	return f
}

func (l *Loader) fetch(ctx context.Context) (analytics.Collections, error) {
	var c analytics.Collections
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.Incomes, err = l.reader.Incomes(ctx)
		return wrap("incomes", err)
	})
	g.Go(func() (err error) {
		c.Fixed, err = l.reader.FixedExpenses(ctx)
		return wrap("fixed expenses", err)
	})
	g.Go(func() (err error) {
		c.Variable, err = l.reader.VariableExpenses(ctx)
		return wrap("variable expenses", err)
	})
	g.Go(func() (err error) {
		c.Purchases, err = l.reader.Purchases(ctx)
		return wrap("purchases", err)
	})
	g.Go(func() (err error) {
		c.Debts, err = l.reader.Debts(ctx)
		return wrap("debts", err)
	})
	g.Go(func() (err error) {
		c.Payments, err = l.reader.Payments(ctx)
		return wrap("payments", err)
	})
	if err := g.Wait(); err != nil {
		return analytics.Collections{}, err
	}
	return c, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}
