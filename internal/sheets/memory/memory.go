package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"finanzas/internal/analytics"
	ports "finanzas/internal/sheets"
)

// Exporter keeps exported sheets in memory, keyed by sheet name.
type Exporter struct {
	mu     sync.Mutex
	base   string
	sheets map[string][][]any
	now    func() time.Time
}

var _ ports.ReportExporter = (*Exporter)(nil)

func New(base string) *Exporter {
	if strings.TrimSpace(base) == "" {
		base = "Resumen"
	}
	return &Exporter{base: base, sheets: map[string][][]any{}, now: time.Now}
}

func (e *Exporter) ExportMonthly(_ context.Context, w analytics.Window, buckets []analytics.MonthlyBucket) (string, error) {
	if !w.Valid() {
		return "", analytics.ErrInvalidWindow
	}
	rows := ports.MonthlyRows(buckets)
	name := fmt.Sprintf("%d %s", ports.ExportYear(buckets, e.now()), e.base)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sheets[name] = rows
	return fmt.Sprintf("%s!A1:I%d", name, len(rows)), nil
}

// Sheet returns a copy of what was last exported to name.
func (e *Exporter) Sheet(name string) ([][]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, ok := e.sheets[name]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), rows...), true
}
