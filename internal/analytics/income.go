package analytics

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// UnknownSource labels incomes with no origin.
const UnknownSource = "Sin origen"

type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

type IncomeGroup struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type IncomeAnalytics struct {
	ByDay        map[string]IncomeGroup `json:"byDay"`
	ByMonth      map[string]IncomeGroup `json:"byMonth"`
	BySource     map[string]IncomeGroup `json:"bySource"`
	DailyAverage float64                `json:"dailyAverage"`
	Largest      *core.Income           `json:"largest"`
	Smallest     *core.Income           `json:"smallest"`
	Trend        Trend                  `json:"trend"`
	Total        decimal.Decimal        `json:"total"`
}

func addTo(m map[string]IncomeGroup, key string, amount decimal.Decimal) {
	g := m[key]
	g.Total = g.Total.Add(amount)
	g.Count++
	m[key] = g
}

// AnalyzeIncome groups incomes by day, month and source and compares the
// last seven days with the seven before them: up above +10%, down below -10%.
func AnalyzeIncome(incomes []core.Income, now time.Time, loc *time.Location) IncomeAnalytics {
	if loc == nil {
		loc = time.UTC
	}
	a := IncomeAnalytics{
		ByDay:    map[string]IncomeGroup{},
		ByMonth:  map[string]IncomeGroup{},
		BySource: map[string]IncomeGroup{},
		Trend:    TrendNeutral,
		Total:    decimal.Zero,
	}
	if len(incomes) == 0 {
		return a
	}

	sorted := slices.Clone(incomes)
	slices.SortFunc(sorted, func(x, y core.Income) int {
		if c := x.Date.Compare(y.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})

	weekAgo := now.Add(-7 * 24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)
	last7, prev7 := decimal.Zero, decimal.Zero
	for i := range sorted {
		in := sorted[i]
		local := in.Date.In(loc)
		addTo(a.ByDay, local.Format("2006-01-02"), in.Amount)
		addTo(a.ByMonth, MonthKey(in.Date.Time, loc), in.Amount)
		addTo(a.BySource, orDefault(in.Source, UnknownSource), in.Amount)
		a.Total = a.Total.Add(in.Amount)

		if a.Largest == nil || in.Amount.GreaterThan(a.Largest.Amount) {
			a.Largest = &sorted[i]
		}
		if a.Smallest == nil || in.Amount.LessThan(a.Smallest.Amount) {
			a.Smallest = &sorted[i]
		}

		switch {
		case !in.Date.Before(weekAgo):
			last7 = last7.Add(in.Amount)
		case !in.Date.Before(twoWeeksAgo):
			prev7 = prev7.Add(in.Amount)
		}
	}
	a.DailyAverage = a.Total.InexactFloat64() / float64(len(a.ByDay))

	switch {
	case last7.GreaterThan(prev7.Mul(decimal.RequireFromString("1.1"))):
		a.Trend = TrendUp
	case last7.LessThan(prev7.Mul(decimal.RequireFromString("0.9"))):
		a.Trend = TrendDown
	}
	return a
}

// IncomeFilter narrows an income list. Zero fields do not filter.
type IncomeFilter struct {
	Text      string
	From, To  time.Time
	MinAmount decimal.NullDecimal
	MaxAmount decimal.NullDecimal
}

// FilterIncomes returns the matching incomes newest first.
func FilterIncomes(incomes []core.Income, f IncomeFilter) []core.Income {
	text := strings.ToLower(strings.TrimSpace(f.Text))
	out := []core.Income{}
	for _, in := range incomes {
		if text != "" && !strings.Contains(strings.ToLower(in.Detail), text) && !strings.Contains(strings.ToLower(in.Source), text) {
			continue
		}
		if !f.From.IsZero() && in.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && in.Date.After(f.To) {
			continue
		}
		if f.MinAmount.Valid && in.Amount.LessThan(f.MinAmount.Decimal) {
			continue
		}
		if f.MaxAmount.Valid && in.Amount.GreaterThan(f.MaxAmount.Decimal) {
			continue
		}
		out = append(out, in)
	}
	slices.SortFunc(out, func(x, y core.Income) int {
		if c := y.Date.Compare(x.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return out
}
