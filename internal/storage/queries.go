package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type SnapshotRow struct {
	ID               string
	WindowMonths     int64
	Generation       int64
	GeneratedAt      string
	TotalIncome      string
	TotalExpense     string
	Balance          string
	HealthScore      float64
	TransactionCount int64
	ReportJSON       string
	SheetRef         sql.NullString
	ExportedAt       sql.NullString
}

const createSnapshot = `
INSERT INTO report_snapshots (
    id, window_months, generation, generated_at, total_income, total_expense,
    balance, health_score, transaction_count, report_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateSnapshotParams struct {
	ID               string
	WindowMonths     int64
	Generation       int64
	GeneratedAt      string
	TotalIncome      string
	TotalExpense     string
	Balance          string
	HealthScore      float64
	TransactionCount int64
	ReportJSON       string
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, createSnapshot,
		arg.ID,
		arg.WindowMonths,
		arg.Generation,
		arg.GeneratedAt,
		arg.TotalIncome,
		arg.TotalExpense,
		arg.Balance,
		arg.HealthScore,
		arg.TransactionCount,
		arg.ReportJSON,
	)
	return err
}

const selectSnapshot = `
SELECT s.id, s.window_months, s.generation, s.generated_at, s.total_income,
       s.total_expense, s.balance, s.health_score, s.transaction_count,
       s.report_json, e.sheet_ref, e.exported_at
FROM report_snapshots s
LEFT JOIN sheet_exports e ON e.snapshot_id = s.id`

const getSnapshot = selectSnapshot + `
WHERE s.id = ?`

func (q *Queries) GetSnapshot(ctx context.Context, id string) (SnapshotRow, error) {
	return scanSnapshot(q.db.QueryRowContext(ctx, getSnapshot, id))
}

const listSnapshots = selectSnapshot + `
WHERE (? = 0 OR s.window_months = ?)
ORDER BY s.generated_at DESC, s.id DESC
LIMIT ?`

func (q *Queries) ListSnapshots(ctx context.Context, windowMonths, limit int64) ([]SnapshotRow, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots, windowMonths, windowMonths, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnapshotRow
	for rows.Next() {
		i, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listUnexported = selectSnapshot + `
WHERE e.snapshot_id IS NULL
ORDER BY s.generated_at ASC, s.id ASC
LIMIT ?`

func (q *Queries) ListUnexported(ctx context.Context, limit int64) ([]SnapshotRow, error) {
	rows, err := q.db.QueryContext(ctx, listUnexported, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnapshotRow
	for rows.Next() {
		i, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markExported = `
INSERT INTO sheet_exports (snapshot_id, sheet_ref, exported_at) VALUES (?, ?, ?)
ON CONFLICT (snapshot_id) DO UPDATE SET sheet_ref = excluded.sheet_ref, exported_at = excluded.exported_at`

func (q *Queries) MarkExported(ctx context.Context, snapshotID, sheetRef, exportedAt string) error {
	_, err := q.db.ExecContext(ctx, markExported, snapshotID, sheetRef, exportedAt)
	return err
}

const pruneSnapshots = `
DELETE FROM report_snapshots
WHERE window_months = ?
  AND id NOT IN (
    SELECT id FROM report_snapshots
    WHERE window_months = ?
    ORDER BY generated_at DESC, id DESC
    LIMIT ?
  )`

func (q *Queries) PruneSnapshots(ctx context.Context, windowMonths, keep int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, pruneSnapshots, windowMonths, windowMonths, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (SnapshotRow, error) {
	var i SnapshotRow
	err := row.Scan(
		&i.ID,
		&i.WindowMonths,
		&i.Generation,
		&i.GeneratedAt,
		&i.TotalIncome,
		&i.TotalExpense,
		&i.Balance,
		&i.HealthScore,
		&i.TransactionCount,
		&i.ReportJSON,
		&i.SheetRef,
		&i.ExportedAt,
	)
	return i, err
}
