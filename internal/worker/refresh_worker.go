package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"finanzas/internal/amqp"
	"finanzas/internal/analytics"
	"finanzas/internal/loader"
	"finanzas/internal/sheets"
	"finanzas/internal/storage"
)

// SnapshotStore is the part of the snapshot repository the worker writes to.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, gen uint64, report analytics.Report) (storage.Snapshot, error)
	Prune(ctx context.Context, w analytics.Window, keep int) (int64, error)
	PendingExports(ctx context.Context, limit int) ([]storage.Snapshot, error)
	MarkExported(ctx context.Context, id, sheetRef string) error
}

// Config holds the refresh worker settings.
type Config struct {
	// Schedule is a standard cron expression or descriptor such as "@every 15m".
	Schedule string
	// Timeout bounds a single refresh run.
	Timeout time.Duration
	// Windows are the report windows computed on every run.
	Windows []analytics.Window
	// Keep is how many snapshots per window survive pruning.
	Keep int
	// ExportBatch is the max number of snapshots exported per run.
	ExportBatch int
	Location    *time.Location
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Schedule:    "@every 15m",
		Timeout:     2 * time.Minute,
		Windows:     []analytics.Window{analytics.Window3, analytics.Window6, analytics.Window12},
		Keep:        96,
		ExportBatch: 10,
		Location:    time.UTC,
	}
}

// RefreshWorker reloads the ledger, stores one report snapshot per window
// and exports pending snapshots to the spreadsheet.
type RefreshWorker struct {
	loader   *loader.Loader
	store    SnapshotStore
	exporter sheets.ReportExporter
	config   Config
	now      func() time.Time

	// runMu serialises refresh runs.
	runMu sync.Mutex

	mu        sync.Mutex
	scheduler *cron.Cron
}

func NewRefreshWorker(l *loader.Loader, store SnapshotStore, exporter sheets.ReportExporter, config Config) *RefreshWorker {
	def := DefaultConfig()
	if len(config.Windows) == 0 {
		config.Windows = def.Windows
	}
	if config.Keep <= 0 {
		config.Keep = def.Keep
	}
	if config.ExportBatch <= 0 {
		config.ExportBatch = def.ExportBatch
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.Schedule == "" {
		config.Schedule = def.Schedule
	}
	if config.Location == nil {
		config.Location = def.Location
	}
	return &RefreshWorker{
		loader:   l,
		store:    store,
		exporter: exporter,
		config:   config,
		now:      time.Now,
	}
}

// Refresh loads the ledger and saves a snapshot per window. Snapshots are
// exported afterwards when an exporter is configured.
func (w *RefreshWorker) Refresh(ctx context.Context) error {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	start := w.now()
	snap, err := w.loader.Load(ctx)
	if errors.Is(err, loader.ErrStale) {
		slog.InfoContext(ctx, "Refresh superseded by a newer load")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	var errs []error
	for _, win := range w.config.Windows {
		report := analytics.Compute(snap.Collections, analytics.Options{
			Window:   win,
			Now:      w.now(),
			Location: w.config.Location,
		})
		saved, err := w.store.SaveSnapshot(ctx, snap.Generation, report)
		if err != nil {
			errs = append(errs, fmt.Errorf("save %s snapshot: %w", win, err))
			continue
		}
		slog.DebugContext(ctx, "Snapshot saved",
			"id", saved.ID,
			"window", win.String(),
			"generation", snap.Generation)
		if _, err := w.store.Prune(ctx, win, w.config.Keep); err != nil {
			slog.WarnContext(ctx, "Failed to prune snapshots", "window", win.String(), "error", err)
		}
	}

	if err := w.exportPending(ctx); err != nil {
		errs = append(errs, err)
	}

	slog.InfoContext(ctx, "Refresh completed",
		"generation", snap.Generation,
		"records", snap.Collections.Len(),
		"windows", len(w.config.Windows),
		"duration", w.now().Sub(start),
		"errors", len(errs))

	return errors.Join(errs...)
}

// ExportPending exports snapshots that were saved but never exported.
func (w *RefreshWorker) ExportPending(ctx context.Context) error {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.exportPending(ctx)
}

func (w *RefreshWorker) exportPending(ctx context.Context) error {
	if w.exporter == nil {
		return nil
	}
	pending, err := w.store.PendingExports(ctx, w.config.ExportBatch)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Exporting pending snapshots", "count", len(pending))

	exported := 0
	for _, s := range pending {
		report, err := s.Decode()
		if err != nil {
			slog.ErrorContext(ctx, "Failed to decode snapshot", "id", s.ID, "error", err)
			continue
		}
		ref, err := w.exporter.ExportMonthly(ctx, s.Window, report.MonthlyTrends)
		if err != nil {
			return fmt.Errorf("export snapshot %s: %w", s.ID, err)
		}
		if err := w.store.MarkExported(ctx, s.ID, ref); err != nil {
			// The sheet is already written; the next run overwrites it again.
			slog.ErrorContext(ctx, "Failed to mark snapshot exported", "id", s.ID, "error", err)
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Export completed", "total", len(pending), "exported", exported)
	return nil
}

// HandleLedgerChanged refreshes right away when the dashboard reports a write.
func (w *RefreshWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"id", msg.ID,
		"resource", msg.Resource,
		"operation", msg.Operation,
		"record_id", msg.RecordID)

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()
	return w.Refresh(ctx)
}

// Start schedules periodic refreshes. Returns an error if already running.
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scheduler != nil {
		return fmt.Errorf("refresh worker is already running")
	}

	c := cron.New(cron.WithLocation(w.config.Location))
	if _, err := c.AddFunc(w.config.Schedule, func() { w.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", w.config.Schedule, err)
	}
	c.Start()
	w.scheduler = c

	slog.InfoContext(ctx, "Refresh worker started",
		"schedule", w.config.Schedule,
		"windows", len(w.config.Windows))
	return nil
}

func (w *RefreshWorker) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()
	if err := w.Refresh(runCtx); err != nil {
		slog.ErrorContext(ctx, "Scheduled refresh failed", "error", err)
	}
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (w *RefreshWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	c := w.scheduler
	w.scheduler = nil
	w.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		slog.InfoContext(ctx, "Refresh worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh worker stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is active
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scheduler != nil
}
