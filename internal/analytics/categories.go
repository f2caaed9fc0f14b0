package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// UncategorizedDestination labels purchases with no destination.
const UncategorizedDestination = "Sin categoría"

const topDestinations = 8

// CategoryBreakdown summarises one expense kind over the full collection.
type CategoryBreakdown struct {
	Name                string          `json:"name"`
	Kind                core.Kind       `json:"type"`
	Total               decimal.Decimal `json:"value"`
	PercentageOfExpense float64         `json:"percentage"`
	// Trend compares the average of the most recent half of the entries
	// with the older half, in percent.
	Trend          float64 `json:"trend"`
	AvgTransaction float64 `json:"avgTransaction"`
	Frequency      int     `json:"frequency"`
}

// DestinationTotal is the amount spent on purchases at one destination.
type DestinationTotal struct {
	Destination     string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	Count           int             `json:"count"`
	AvgAmount       float64         `json:"avgAmount"`
	LastTransaction time.Time       `json:"lastTransaction"`
	Percentage      float64         `json:"percentage"`
}

// Breakdown returns purchases, fixed and variable expenses in that order,
// leaving out kinds with a zero total.
func Breakdown(c Collections, totals Totals) []CategoryBreakdown {
	expense := totals.Expense.InexactFloat64()
	entries := []struct {
		name  string
		kind  core.Kind
		total decimal.Decimal
		items []core.Expense
	}{
		{CategoryPurchases, core.KindPurchase, totals.Purchases, unwrap(c.Purchases, func(p core.Purchase) core.Expense { return p.Expense })},
		{CategoryFixedExpense, core.KindFixedExpense, totals.FixedExpense, unwrap(c.Fixed, func(f core.FixedExpense) core.Expense { return f.Expense })},
		{CategoryVariableExpense, core.KindVariableExpense, totals.VariableExpense, unwrap(c.Variable, func(v core.VariableExpense) core.Expense { return v.Expense })},
	}
	out := make([]CategoryBreakdown, 0, len(entries))
	for _, e := range entries {
		if !e.total.IsPositive() {
			continue
		}
		total := e.total.InexactFloat64()
		out = append(out, CategoryBreakdown{
			Name:                e.name,
			Kind:                e.kind,
			Total:               e.total,
			PercentageOfExpense: safeDiv(total, expense) * 100,
			Trend:               halvesTrend(e.items),
			AvgTransaction:      safeDiv(total, float64(len(e.items))),
			Frequency:           len(e.items),
		})
	}
	return out
}

func unwrap[T any](in []T, f func(T) core.Expense) []core.Expense {
	out := make([]core.Expense, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

// halvesTrend orders the entries by date and compares the mean amount of the
// newer ceil(n/2) entries with the older floor(n/2).
func halvesTrend(items []core.Expense) float64 {
	n := len(items)
	if n < 2 {
		return 0
	}
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b core.Expense) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	older, recent := sorted[:n/2], sorted[n/2:]
	olderAvg := avgAmount(older)
	if olderAvg <= 0 {
		return 0
	}
	return (avgAmount(recent) - olderAvg) / olderAvg * 100
}

func avgAmount(items []core.Expense) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Amount)
	}
	return sum.InexactFloat64() / float64(len(items))
}

// TopDestinations groups purchases by destination and returns the eight
// largest by amount.
func TopDestinations(purchases []core.Purchase) []DestinationTotal {
	byDest := make(map[string]*DestinationTotal)
	total := decimal.Zero
	for _, p := range purchases {
		name := orDefault(p.Destination, UncategorizedDestination)
		d, ok := byDest[name]
		if !ok {
			d = &DestinationTotal{Destination: name, Amount: decimal.Zero}
			byDest[name] = d
		}
		d.Amount = d.Amount.Add(p.Amount)
		d.Count++
		if p.Date.After(d.LastTransaction) {
			d.LastTransaction = p.Date.Time
		}
		total = total.Add(p.Amount)
	}

	out := make([]DestinationTotal, 0, len(byDest))
	for _, d := range byDest {
		amount := d.Amount.InexactFloat64()
		d.AvgAmount = amount / float64(d.Count)
		d.Percentage = safeDiv(amount, total.InexactFloat64()) * 100
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b DestinationTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Destination, b.Destination)
	})
	if len(out) > topDestinations {
		out = out[:topDestinations]
	}
	return out
}
