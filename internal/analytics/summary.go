package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

const (
	recentEntries = 5
	largestDebts  = 5
)

// Entry is a record listed on the dashboard or in search results.
type Entry struct {
	Kind   core.Kind       `json:"type"`
	ID     string          `json:"id"`
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Record core.Record     `json:"record"`
}

func newEntry(r core.Record) Entry {
	return Entry{Kind: r.Kind(), ID: r.RecordID(), Date: r.When(), Amount: r.Value(), Record: r}
}

// newestFirst orders entries by date descending, then kind and id.
func newestFirst(a, b Entry) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Summary is the dashboard home view.
type Summary struct {
	Totals             Totals                `json:"totals"`
	PurchasesThisMonth decimal.Decimal       `json:"purchasesThisMonth"`
	ExpensesByKind     []core.CategoryAmount `json:"expensesByKind"`
	RecentTransactions []Entry               `json:"recentTransactions"`
	LargestDebts       []core.Debt           `json:"largestDebts"`
}

// Summarize builds the dashboard: totals, purchases made in now's month,
// non-zero expense totals per kind, the five latest movements (debts
// excluded) and the five outstanding debts with the largest balance.
func Summarize(c Collections, now time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	totals := ComputeTotals(c)
	month := MonthKey(now, loc)

	s := Summary{Totals: totals, PurchasesThisMonth: decimal.Zero}
	for _, p := range c.Purchases {
		if MonthKey(p.Date.Time, loc) == month {
			s.PurchasesThisMonth = s.PurchasesThisMonth.Add(p.Amount)
		}
	}

	kinds := []core.CategoryAmount{
		{Name: CategoryFixedExpense, Amount: totals.FixedExpense, Count: len(c.Fixed)},
		{Name: CategoryVariableExpense, Amount: totals.VariableExpense, Count: len(c.Variable)},
		{Name: CategoryPurchases, Amount: totals.Purchases, Count: len(c.Purchases)},
	}
	for _, k := range kinds {
		if k.Amount.IsPositive() {
			s.ExpensesByKind = append(s.ExpensesByKind, k)
		}
	}

	var entries []Entry
	for _, r := range c.Records() {
		if r.Kind() != core.KindDebt {
			entries = append(entries, newEntry(r))
		}
	}
	slices.SortFunc(entries, newestFirst)
	s.RecentTransactions = entries[:min(len(entries), recentEntries)]

	var debts []core.Debt
	for _, d := range c.Debts {
		if d.Outstanding() {
			debts = append(debts, d)
		}
	}
	slices.SortFunc(debts, func(a, b core.Debt) int {
		if c := b.CurrentBalance.Cmp(a.CurrentBalance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	s.LargestDebts = debts[:min(len(debts), largestDebts)]
	return s
}
