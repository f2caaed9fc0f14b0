package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/analytics"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/loader"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// SnapshotReader lists stored report snapshots.
type SnapshotReader interface {
	ListSnapshots(ctx context.Context, w analytics.Window, limit int) ([]storage.Snapshot, error)
}

// DashboardOptions configures the read side.
type DashboardOptions struct {
	// MaxAge is how long a loaded ledger snapshot is served before reloading.
	MaxAge   time.Duration
	Location *time.Location
}

// DashboardService answers every read of the dashboard from one shared
// ledger snapshot and caches engine reports per window and generation.
type DashboardService struct {
	reader    ledger.Reader
	loader    *loader.Loader
	reports   *cache.Reports
	snapshots SnapshotReader
	maxAge    time.Duration
	loc       *time.Location
	now       func() time.Time
}

func NewDashboardService(reader ledger.Reader, l *loader.Loader, reports *cache.Reports, snapshots SnapshotReader, opts DashboardOptions) *DashboardService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &DashboardService{
		reader:    reader,
		loader:    l,
		reports:   reports,
		snapshots: snapshots,
		maxAge:    opts.MaxAge,
		loc:       opts.Location,
		now:       time.Now,
	}
}

// Location is the calendar the dashboard groups by.
func (s *DashboardService) Location() *time.Location { return s.loc }

func (s *DashboardService) snapshot(ctx context.Context) (loader.Snapshot, error) {
	snap, err := s.loader.Get(ctx, s.maxAge)
	if err != nil {
		return loader.Snapshot{}, fmt.Errorf("load ledger: %w", err)
	}
	return snap, nil
}

// Summary builds the dashboard home figures.
func (s *DashboardService) Summary(ctx context.Context) (analytics.Summary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Summarize(snap.Collections, s.now(), s.loc), nil
}

// Statistics returns the engine report for w, computing it at most once per
// ledger generation.
func (s *DashboardService) Statistics(ctx context.Context, w analytics.Window) (analytics.Report, error) {
	if !w.Valid() {
		return analytics.Report{}, analytics.ErrInvalidWindow
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return analytics.Report{}, err
	}
	if s.reports != nil {
		if report, ok := s.reports.Get(w, snap.Generation); ok {
			log.FromContext(ctx).DebugContext(ctx, "Report cache hit",
				log.NewFields().WithReport(w.String(), snap.Generation).ToSlice()...)
			return report, nil
		}
	}

	start := time.Now()
	report := analytics.Compute(snap.Collections, analytics.Options{
		Window:   w,
		Now:      s.now(),
		Location: s.loc,
	})
	if s.reports != nil {
		s.reports.Set(w, snap.Generation, report)
	}
	log.FromContext(ctx).DebugContext(ctx, "Report computed",
		append(log.NewFields().WithReport(w.String(), snap.Generation).ToSlice(),
			"transactions", report.TransactionCount,
			"duration", time.Since(start))...)
	return report, nil
}

// IncomeAnalytics groups the incomes for the cash view.
func (s *DashboardService) IncomeAnalytics(ctx context.Context) (analytics.IncomeAnalytics, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return analytics.IncomeAnalytics{}, err
	}
	return analytics.AnalyzeIncome(snap.Collections.Incomes, s.now(), s.loc), nil
}

// Incomes returns the incomes matching f, newest first.
func (s *DashboardService) Incomes(ctx context.Context, f analytics.IncomeFilter) ([]core.Income, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.FilterIncomes(snap.Collections.Incomes, f), nil
}

// Records lists one collection of the current snapshot.
func (s *DashboardService) Records(ctx context.Context, r ledger.Resource) ([]core.Record, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	kind := r.Kind()
	out := []core.Record{}
	for _, rec := range snap.Collections.Records() {
		if rec.Kind() == kind {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Search runs a global search over every collection.
func (s *DashboardService) Search(ctx context.Context, q analytics.Query) ([]analytics.Entry, error) {
	if q.Empty() {
		return []analytics.Entry{}, nil
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.Search(snap.Collections, q), nil
}

// DebtProgress is a debt with how much of it has been paid.
type DebtProgress struct {
	Debt        core.Debt       `json:"deuda"`
	Paid        decimal.Decimal `json:"pagado"`
	PaidPercent float64         `json:"porcentaje_pagado"`
	Payments    []core.Payment  `json:"abonos"`
}

// DebtProgress fetches a debt from the ledger and pairs it with its payments.
func (s *DashboardService) DebtProgress(ctx context.Context, id string) (DebtProgress, error) {
	d, err := s.reader.Debt(ctx, id)
	if err != nil {
		return DebtProgress{}, fmt.Errorf("get debt %s: %w", id, err)
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return DebtProgress{}, err
	}
	payments := []core.Payment{}
	for _, p := range snap.Collections.Payments {
		if string(p.DebtID) == d.ID {
			payments = append(payments, p)
		}
	}
	return DebtProgress{
		Debt:        d,
		Paid:        d.TotalAmount.Sub(d.CurrentBalance),
		PaidPercent: d.PaidPercent(),
		Payments:    payments,
	}, nil
}

// AmortizationRequest is the loan a preview is computed for.
type AmortizationRequest struct {
	Principal    decimal.Decimal `json:"capital_inicial"`
	InterestRate decimal.Decimal `json:"porcentaje_interes"`
	TermMonths   int             `json:"plazo_meses"`
}

// Amortization previews the installment of a percentage loan.
func (s *DashboardService) Amortization(req AmortizationRequest) (core.Amortization, error) {
	return core.Amortize(req.Principal, req.InterestRate, req.TermMonths)
}

// Snapshots lists stored report snapshots, newest first. A zero window
// lists every window.
func (s *DashboardService) Snapshots(ctx context.Context, w analytics.Window, limit int) ([]storage.Snapshot, error) {
	if w != 0 && !w.Valid() {
		return nil, analytics.ErrInvalidWindow
	}
	if s.snapshots == nil {
		return []storage.Snapshot{}, nil
	}
	out, err := s.snapshots.ListSnapshots(ctx, w, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// CacheStats reports the report cache counters.
func (s *DashboardService) CacheStats() cache.Stats {
	if s.reports == nil {
		return cache.Stats{}
	}
	return s.reports.Stats()
}
