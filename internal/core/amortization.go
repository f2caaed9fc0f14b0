package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotComputable is returned for payment types whose amount is typed by the user.
var ErrNotComputable = errors.New("payment amount is not computed for this payment type")

// Amortization is the fixed-payment (French system) schedule summary of a loan,
// rounded to whole currency units.
type Amortization struct {
	Installment   decimal.Decimal `json:"cuota_mensual"`
	TotalInterest decimal.Decimal `json:"total_intereses"`
	Total         decimal.Decimal `json:"monto_total"`
}

var (
	one         = decimal.NewFromInt(1)
	hundred     = decimal.NewFromInt(100)
	monthsPerYr = decimal.NewFromInt(12)
)

// Amortize computes the monthly installment of a loan of principal at
// annualRatePct over termMonths:
//
//	r = annualRatePct / 100 / 12
//	installment = P·r·(1+r)^n / ((1+r)^n − 1)
//
// Interest and total are derived from the unrounded installment and every
// figure is rounded to whole units afterwards.
func Amortize(principal, annualRatePct decimal.Decimal, termMonths int) (Amortization, error) {
	if !principal.IsPositive() || !annualRatePct.IsPositive() || termMonths <= 0 {
		return Amortization{}, ErrInvalidLoanTerms
	}
	n := decimal.NewFromInt(int64(termMonths))
	r := annualRatePct.Div(hundred).Div(monthsPerYr)
	factor := one.Add(r).Pow(n)
	installment := principal.Mul(r).Mul(factor).Div(factor.Sub(one))
	interest := installment.Mul(n).Sub(principal)
	return Amortization{
		Installment:   installment.Round(0),
		TotalInterest: interest.Round(0),
		Total:         principal.Add(interest).Round(0),
	}, nil
}

// NewPercentageDebt builds an interest-bearing debt whose total and current
// balance come from the amortization of its principal.
func NewPercentageDebt(detail, creditor string, principal, annualRatePct decimal.Decimal, termMonths int, start time.Time) (Debt, error) {
	a, err := Amortize(principal, annualRatePct, termMonths)
	if err != nil {
		return Debt{}, err
	}
	term := termMonths
	d := Debt{
		Detail:           detail,
		Creditor:         creditor,
		TotalAmount:      a.Total,
		CurrentBalance:   a.Total,
		StartDate:        Date{Time: start},
		LoanType:         LoanPercentage,
		InterestRatePct:  decimal.NewNullDecimal(annualRatePct),
		TermMonths:       &term,
		InitialPrincipal: decimal.NewNullDecimal(principal),
	}
	return d, d.Validate()
}

// PaymentAmount computes what a payment of type t against d should be.
// Percent-of-balance payments take pct of the current balance; calculated
// installments use the debt's amortization installment, never exceeding
// the balance.
func PaymentAmount(d Debt, t PaymentType, pct decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case PaymentPercentOfBalance:
		if !validPercent(pct) {
			return decimal.Zero, ErrInvalidPercent
		}
		return d.CurrentBalance.Mul(pct).Div(hundred).Round(0), nil
	case PaymentCalculatedInstallment:
		if d.LoanType != LoanPercentage || d.TermMonths == nil {
			return decimal.Zero, ErrInvalidLoanTerms
		}
		a, err := Amortize(d.InitialPrincipal.Decimal, d.InterestRatePct.Decimal, *d.TermMonths)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.Min(a.Installment, d.CurrentBalance), nil
	case PaymentManual, "":
		return decimal.Zero, ErrNotComputable
	}
	return decimal.Zero, ErrInvalidPaymentType
}
