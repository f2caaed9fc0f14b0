package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Category names used when a record carries no label of its own.
const (
	CategoryIncome          = "Ingresos"
	CategoryPurchases       = "Compras"
	CategoryFixedExpense    = "Gastos Fijos"
	CategoryVariableExpense = "Gastos Variables"
)

// Transaction is one entry of the unified stream. Amount is positive for
// income and negative for every expense kind.
type Transaction struct {
	Kind      core.Kind       `json:"type"`
	ID        string          `json:"id,omitempty"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	Detail    string          `json:"detail,omitempty"`
}

// Abs is the unsigned size of the transaction.
func (t Transaction) Abs() decimal.Decimal { return t.Amount.Abs() }

func (t Transaction) IsIncome() bool { return t.Amount.IsPositive() }

// Stream merges incomes and the three expense kinds into one list holding
// the entries dated between the window cutoff and now, inclusive, sorted
// ascending by timestamp. Ties are broken by kind, amount and id so the
// order never depends on the order of the inputs.
func Stream(c Collections, opts Options) []Transaction {
	opts = opts.normalize(c)
	cutoff := opts.Window.Cutoff(opts.Now, opts.Location)

	out := make([]Transaction, 0, len(c.Incomes)+len(c.Purchases)+len(c.Fixed)+len(c.Variable))
	add := func(t Transaction) {
		if t.Timestamp.Before(cutoff) || t.Timestamp.After(opts.Now) {
			return
		}
		out = append(out, t)
	}
	for _, r := range c.Incomes {
		add(Transaction{
			Kind: core.KindIncome, ID: r.ID, Category: orDefault(r.Source, CategoryIncome),
			Amount: r.Amount, Timestamp: r.Date.Time, Detail: r.Detail,
		})
	}
	for _, r := range c.Purchases {
		add(Transaction{
			Kind: core.KindPurchase, ID: r.ID, Category: orDefault(r.Destination, CategoryPurchases),
			Amount: r.Amount.Neg(), Timestamp: r.Date.Time, Detail: r.Detail,
		})
	}
	for _, r := range c.Fixed {
		add(Transaction{
			Kind: core.KindFixedExpense, ID: r.ID, Category: CategoryFixedExpense,
			Amount: r.Amount.Neg(), Timestamp: r.Date.Time, Detail: r.Detail,
		})
	}
	for _, r := range c.Variable {
		add(Transaction{
			Kind: core.KindVariableExpense, ID: r.ID, Category: CategoryVariableExpense,
			Amount: r.Amount.Neg(), Timestamp: r.Date.Time, Detail: r.Detail,
		})
	}

	slices.SortFunc(out, compareTransactions)
	return out
}

func compareTransactions(a, b Transaction) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	return cmp.Compare(a.Detail, b.Detail)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
