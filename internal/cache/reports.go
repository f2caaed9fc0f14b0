package cache

import (
	"sync"
	"time"

	"finanzas/internal/analytics"
)

// Reports caches computed engine reports per window. Entries are tagged with
// the loader generation they were computed from, so a report built from an
// older ledger read is never served after a newer one was published.
type Reports struct {
	lru *LRUCache[reportEntry]

	mu  sync.Mutex
	gen uint64
}

type reportEntry struct {
	generation uint64
	report     analytics.Report
}

var _ Cleaner = (*Reports)(nil)

func NewReports(maxSize int, ttl time.Duration) *Reports {
	return &Reports{lru: NewLRUCache[reportEntry](maxSize, ttl)}
}

// Get returns the report for w computed from generation gen.
func (r *Reports) Get(w analytics.Window, gen uint64) (analytics.Report, bool) {
	e, ok := r.lru.Get(w.String())
	if !ok || e.generation != gen {
		return analytics.Report{}, false
	}
	return e.report, true
}

// Set stores a report unless a newer generation has already been seen.
func (r *Reports) Set(w analytics.Window, gen uint64, report analytics.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen < r.gen {
		return
	}
	if gen > r.gen {
		r.gen = gen
		r.lru.Purge()
	}
	r.lru.Set(w.String(), reportEntry{generation: gen, report: report})
}

// Invalidate drops every cached report, e.g. after a ledger write.
func (r *Reports) Invalidate() {
	r.lru.Purge()
}

func (r *Reports) CleanExpired() int { return r.lru.CleanExpired() }

func (r *Reports) Stats() Stats { return r.lru.Stats() }
