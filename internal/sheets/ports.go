// Package sheets exports computed monthly trends to a spreadsheet.
package sheets

import (
	"context"
	"math"
	"time"

	"finanzas/internal/analytics"
)

// Ports for outbound adapters.
type (
	// ReportExporter writes one row per monthly bucket below a header row.
	ReportExporter interface {
		ExportMonthly(ctx context.Context, w analytics.Window, buckets []analytics.MonthlyBucket) (ref string, err error)
	}
)

// Header is the first row of every export.
var Header = []any{
	"Mes", "Clave", "Ingresos", "Gastos", "Balance",
	"Transacciones", "Volatilidad", "Mayor transacción", "Promedio por transacción",
}

// MonthlyRows renders buckets in sheet order, header included.
func MonthlyRows(buckets []analytics.MonthlyBucket) [][]any {
	rows := make([][]any, 0, len(buckets)+1)
	rows = append(rows, Header)
	for _, b := range buckets {
		rows = append(rows, []any{
			b.Label,
			b.Key,
			b.Income.InexactFloat64(),
			b.Expense.InexactFloat64(),
			b.Balance.InexactFloat64(),
			b.TransactionCount,
			round2(b.Volatility),
			b.MaxSingleTransaction.InexactFloat64(),
			round2(b.AvgTransactionSize),
		})
	}
	return rows
}

// ExportYear is the year the export sheet is named after: that of the
// newest bucket, or the current year when there are none.
func ExportYear(buckets []analytics.MonthlyBucket, now time.Time) int {
	if len(buckets) == 0 {
		return now.Year()
	}
	return buckets[len(buckets)-1].Start.Year()
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
