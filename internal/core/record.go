package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is implemented by every ledger record kind. Each kind exposes its
// date and amount explicitly so nothing has to guess which field holds them.
type Record interface {
	Kind() Kind
	RecordID() string
	When() time.Time
	Value() decimal.Decimal
	// SearchText is the lowercased text a free-text search matches against.
	SearchText() string
}

var (
	_ Record = Income{}
	_ Record = FixedExpense{}
	_ Record = VariableExpense{}
	_ Record = Purchase{}
	_ Record = Debt{}
	_ Record = Payment{}
)

func searchText(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToLower(p))
	}
	return b.String()
}

func (i Income) Kind() Kind             { return KindIncome }
func (i Income) RecordID() string       { return i.ID }
func (i Income) When() time.Time        { return i.Date.Time }
func (i Income) Value() decimal.Decimal { return i.Amount }
func (i Income) SearchText() string {
	return searchText(i.Detail, i.Source, i.Note, i.Amount.String())
}

func (e Expense) RecordID() string       { return e.ID }
func (e Expense) When() time.Time        { return e.Date.Time }
func (e Expense) Value() decimal.Decimal { return e.Amount }
func (e Expense) SearchText() string {
	return searchText(e.Detail, e.Destination, e.Amount.String())
}

func (FixedExpense) Kind() Kind    { return KindFixedExpense }
func (VariableExpense) Kind() Kind { return KindVariableExpense }
func (Purchase) Kind() Kind        { return KindPurchase }

func (d Debt) Kind() Kind             { return KindDebt }
func (d Debt) RecordID() string       { return d.ID }
func (d Debt) When() time.Time        { return d.StartDate.Time }
func (d Debt) Value() decimal.Decimal { return d.TotalAmount }
func (d Debt) SearchText() string {
	return searchText(d.Detail, d.Creditor, d.TotalAmount.String())
}

func (p Payment) Kind() Kind             { return KindPayment }
func (p Payment) RecordID() string       { return p.ID }
func (p Payment) When() time.Time        { return p.Date.Time }
func (p Payment) Value() decimal.Decimal { return p.Amount }
func (p Payment) SearchText() string {
	return searchText(p.Detail, p.Amount.String())
}

// Sum adds up the amounts of a slice of records.
func Sum[R Record](records []R) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Value())
	}
	return total
}
