package analytics

import (
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Totals are computed over the full collections, not the window.
type Totals struct {
	Income          decimal.Decimal `json:"income"`
	FixedExpense    decimal.Decimal `json:"fixedExpense"`
	VariableExpense decimal.Decimal `json:"variableExpense"`
	Purchases       decimal.Decimal `json:"purchases"`
	Expense         decimal.Decimal `json:"expense"`
	Balance         decimal.Decimal `json:"balance"`
	Debt            decimal.Decimal `json:"debt"`
	Payments        decimal.Decimal `json:"payments"`
	PendingDebts    int             `json:"pendingDebts"`
}

// ComputeTotals sums every collection. Expense is fixed + variable +
// purchases and Balance is Income - Expense.
func ComputeTotals(c Collections) Totals {
	t := Totals{
		Income:          core.Sum(c.Incomes),
		FixedExpense:    core.Sum(c.Fixed),
		VariableExpense: core.Sum(c.Variable),
		Purchases:       core.Sum(c.Purchases),
		Payments:        core.Sum(c.Payments),
		Debt:            decimal.Zero,
	}
	t.Expense = t.FixedExpense.Add(t.VariableExpense).Add(t.Purchases)
	t.Balance = t.Income.Sub(t.Expense)
	for _, d := range c.Debts {
		t.Debt = t.Debt.Add(d.CurrentBalance)
		if d.Outstanding() {
			t.PendingDebts++
		}
	}
	return t
}
