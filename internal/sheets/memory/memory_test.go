package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/analytics"
)

func TestExporter_ExportMonthly(t *testing.T) {
	e := New("")
	buckets := []analytics.MonthlyBucket{
		{Key: "2023-12", Label: "dic 2023", Start: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), Income: decimal.NewFromInt(10)},
		{Key: "2024-01", Label: "ene 2024", Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Expense: decimal.NewFromInt(4)},
	}

	ref, err := e.ExportMonthly(context.Background(), 6, buckets)
	if err != nil {
		t.Fatalf("ExportMonthly() error = %v", err)
	}
	if ref != "2024 Resumen!A1:I3" {
		t.Errorf("ref = %q", ref)
	}
	rows, ok := e.Sheet("2024 Resumen")
	if !ok || len(rows) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][1] != "2023-12" || rows[2][3] != 4.0 {
		t.Errorf("rows = %v", rows)
	}

	if _, err := e.ExportMonthly(context.Background(), 5, buckets); !errors.Is(err, analytics.ErrInvalidWindow) {
		t.Errorf("invalid window error = %v", err)
	}
}

func TestExporter_EmptyUsesCurrentYear(t *testing.T) {
	e := New("Stats")
	e.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	ref, err := e.ExportMonthly(context.Background(), 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ref != "2025 Stats!A1:I1" {
		t.Errorf("ref = %q", ref)
	}
}
