// Package storage keeps computed report snapshots in SQLite so the history
// of the engine's output survives restarts and can be exported later.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finanzas/internal/analytics"

	_ "modernc.org/sqlite"
)

// ErrSnapshotNotFound is returned when no snapshot matches.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is a stored engine report with its headline figures.
type Snapshot struct {
	ID               string           `json:"id"`
	Window           analytics.Window `json:"window"`
	Generation       uint64           `json:"generation"`
	GeneratedAt      time.Time        `json:"generatedAt"`
	TotalIncome      decimal.Decimal  `json:"totalIncome"`
	TotalExpense     decimal.Decimal  `json:"totalExpense"`
	Balance          decimal.Decimal  `json:"balance"`
	HealthScore      float64          `json:"healthScore"`
	TransactionCount int              `json:"transactionCount"`
	SheetRef         string           `json:"sheetRef,omitempty"`
	ExportedAt       *time.Time       `json:"exportedAt,omitempty"`
	Report           json.RawMessage  `json:"report,omitempty"`
}

// Decode unmarshals the stored report.
func (s Snapshot) Decode() (analytics.Report, error) {
	var r analytics.Report
	if err := json.Unmarshal(s.Report, &r); err != nil {
		return analytics.Report{}, fmt.Errorf("decode snapshot %s: %w", s.ID, err)
	}
	return r, nil
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveSnapshot stores report as computed from loader generation gen.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, gen uint64, report analytics.Report) (Snapshot, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal report: %w", err)
	}
	generatedAt := report.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = r.now()
	}
	s := Snapshot{
		ID:               uuid.NewString(),
		Window:           report.Window,
		Generation:       gen,
		GeneratedAt:      generatedAt.UTC(),
		TotalIncome:      report.Totals.Income,
		TotalExpense:     report.Totals.Expense,
		Balance:          report.Totals.Balance,
		HealthScore:      report.Health.Score,
		TransactionCount: report.TransactionCount,
		Report:           body,
	}
	err = r.queries.CreateSnapshot(ctx, CreateSnapshotParams{
		ID:               s.ID,
		WindowMonths:     int64(s.Window),
		Generation:       int64(gen),
		GeneratedAt:      s.GeneratedAt.Format(timeLayout),
		TotalIncome:      s.TotalIncome.String(),
		TotalExpense:     s.TotalExpense.String(),
		Balance:          s.Balance.String(),
		HealthScore:      s.HealthScore,
		TransactionCount: int64(s.TransactionCount),
		ReportJSON:       string(body),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Report snapshot saved",
		"id", s.ID,
		"window", s.Window.String(),
		"generation", gen,
		"balance", s.Balance.String())
	return s, nil
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, id string) (Snapshot, error) {
	row, err := r.queries.GetSnapshot(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return fromRow(row, true)
}

// ListSnapshots returns the newest snapshots first, without their report
// bodies. A zero window lists every window.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, w analytics.Window, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.queries.ListSnapshots(ctx, int64(w), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return fromRows(rows, false)
}

// LatestSnapshot returns the newest snapshot for w, report included.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, w analytics.Window) (Snapshot, error) {
	rows, err := r.queries.ListSnapshots(ctx, int64(w), 1)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	if len(rows) == 0 {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return fromRow(rows[0], true)
}

// PendingExports returns snapshots never exported, oldest first.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.queries.ListUnexported(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	return fromRows(rows, true)
}

// MarkExported records where a snapshot was written.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id, sheetRef string) error {
	if err := r.queries.MarkExported(ctx, id, sheetRef, r.now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("mark snapshot %s exported: %w", id, err)
	}
	slog.InfoContext(ctx, "Snapshot marked as exported", "id", id, "sheets_ref", sheetRef)
	return nil
}

// Prune keeps only the newest keep snapshots of w.
func (r *SQLiteRepository) Prune(ctx context.Context, w analytics.Window, keep int) (int64, error) {
	n, err := r.queries.PruneSnapshots(ctx, int64(w), int64(keep))
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pruned old snapshots", "window", w.String(), "deleted", n)
	}
	return n, nil
}

func fromRows(rows []SnapshotRow, withReport bool) ([]Snapshot, error) {
	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		s, err := fromRow(row, withReport)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func fromRow(row SnapshotRow, withReport bool) (Snapshot, error) {
	generatedAt, err := time.Parse(timeLayout, row.GeneratedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse generated_at of %s: %w", row.ID, err)
	}
	s := Snapshot{
		ID:               row.ID,
		Window:           analytics.Window(row.WindowMonths),
		Generation:       uint64(row.Generation),
		GeneratedAt:      generatedAt,
		TotalIncome:      parseDecimal(row.TotalIncome),
		TotalExpense:     parseDecimal(row.TotalExpense),
		Balance:          parseDecimal(row.Balance),
		HealthScore:      row.HealthScore,
		TransactionCount: int(row.TransactionCount),
		SheetRef:         row.SheetRef.String,
	}
	if row.ExportedAt.Valid {
		if t, err := time.Parse(timeLayout, row.ExportedAt.String); err == nil {
			s.ExportedAt = &t
		}
	}
	if withReport {
		s.Report = json.RawMessage(row.ReportJSON)
	}
	return s, nil
}

// parseDecimal coerces a malformed stored amount to zero.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
