package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"finanzas/internal/core"
)

func decode(r Resource, raw []byte) (core.Record, error) {
	switch r {
	case Incomes:
		return unmarshal[core.Income](raw)
	case FixedExpenses:
		return unmarshal[core.FixedExpense](raw)
	case VariableExpenses:
		return unmarshal[core.VariableExpense](raw)
	case Purchases:
		return unmarshal[core.Purchase](raw)
	case Debts:
		return unmarshal[core.Debt](raw)
	case Payments:
		return unmarshal[core.Payment](raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownResource, r)
}

func unmarshal[T core.Record](raw []byte) (core.Record, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeRecord turns a user submitted JSON body into a validated record for
// r. Percentage debts sent without totals get them from the amortization
// schedule, and a new debt with no balance starts owing its total.
func DecodeRecord(r Resource, raw []byte) (core.Record, error) {
	rec, err := decode(r, raw)
	if err != nil {
		if errors.Is(err, ErrUnknownResource) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	switch v := rec.(type) {
	case core.Income:
		return v, v.Validate()
	case core.FixedExpense:
		return v, v.Validate()
	case core.VariableExpense:
		return v, v.Validate()
	case core.Purchase:
		return v, v.Validate()
	case core.Debt:
		v, err := completeDebt(v)
		if err != nil {
			return nil, err
		}
		return v, v.Validate()
	case core.Payment:
		if v.Amount.IsZero() && computable(v.Type) {
			return v, nil
		}
		return v, v.Validate()
	}
	return rec, nil
}

func computable(t core.PaymentType) bool {
	return t == core.PaymentPercentOfBalance || t == core.PaymentCalculatedInstallment
}

// ResolvePayment fills in the amount of a percent-of-balance or calculated
// installment payment from the current state of its debt.
func ResolvePayment(ctx context.Context, r Reader, p core.Payment) (core.Payment, error) {
	if !p.Amount.IsZero() || !computable(p.Type) {
		return p, p.Validate()
	}
	d, err := r.Debt(ctx, string(p.DebtID))
	if err != nil {
		return p, fmt.Errorf("load debt %s: %w", p.DebtID, err)
	}
	amount, err := core.PaymentAmount(d, p.Type, p.PercentApplied.Decimal)
	if err != nil {
		return p, err
	}
	p.Amount = amount
	return p, p.Validate()
}

func completeDebt(d core.Debt) (core.Debt, error) {
	d.Detail = strings.TrimSpace(d.Detail)
	d.Creditor = strings.TrimSpace(d.Creditor)
	if d.LoanType == "" {
		d.LoanType = core.LoanFlat
	}
	if d.LoanType == core.LoanPercentage && d.TotalAmount.IsZero() {
		if !d.InitialPrincipal.Valid || !d.InterestRatePct.Valid || d.TermMonths == nil {
			return d, core.ErrInvalidLoanTerms
		}
		full, err := core.NewPercentageDebt(d.Detail, d.Creditor, d.InitialPrincipal.Decimal,
			d.InterestRatePct.Decimal, *d.TermMonths, d.StartDate.Time)
		if err != nil {
			return d, err
		}
		full.ID = d.ID
		if !d.CurrentBalance.IsZero() {
			full.CurrentBalance = d.CurrentBalance
		}
		return full, nil
	}
	if d.CurrentBalance.IsZero() && d.ID == "" {
		d.CurrentBalance = d.TotalAmount
	}
	return d, nil
}
