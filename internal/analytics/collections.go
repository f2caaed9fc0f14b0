package analytics

import (
	"time"

	"finanzas/internal/core"
)

// Collections holds the six raw ledger collections.
type Collections struct {
	Incomes   []core.Income          `json:"ingresos"`
	Fixed     []core.FixedExpense    `json:"gastosFijos"`
	Variable  []core.VariableExpense `json:"gastosVariables"`
	Purchases []core.Purchase        `json:"compras"`
	Debts     []core.Debt            `json:"deudas"`
	Payments  []core.Payment         `json:"abonos"`
}

// Records flattens the collections into one slice in Kinds() order.
func (c Collections) Records() []core.Record {
	out := make([]core.Record, 0, c.Len())
	for _, r := range c.Incomes {
		out = append(out, r)
	}
	for _, r := range c.Purchases {
		out = append(out, r)
	}
	for _, r := range c.Fixed {
		out = append(out, r)
	}
	for _, r := range c.Variable {
		out = append(out, r)
	}
	for _, r := range c.Debts {
		out = append(out, r)
	}
	for _, r := range c.Payments {
		out = append(out, r)
	}
	return out
}

func (c Collections) Len() int {
	return len(c.Incomes) + len(c.Fixed) + len(c.Variable) + len(c.Purchases) + len(c.Debts) + len(c.Payments)
}

func (c Collections) latest() time.Time {
	var latest time.Time
	for _, r := range c.Records() {
		if t := r.When(); t.After(latest) {
			latest = t
		}
	}
	return latest
}
