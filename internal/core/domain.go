package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome          Kind = "ingreso"
	KindFixedExpense    Kind = "gastoFijo"
	KindVariableExpense Kind = "gastoVariable"
	KindPurchase        Kind = "compra"
	KindDebt            Kind = "deuda"
	KindPayment         Kind = "abono"
)

const (
	LoanFlat       LoanType = "fijo"
	LoanPercentage LoanType = "porcentaje"
)

const (
	PaymentManual                PaymentType = "manual"
	PaymentPercentOfBalance      PaymentType = "porcentaje_saldo"
	PaymentCalculatedInstallment PaymentType = "cuota_calculada"
)

type (
	// Kind tags every ledger record with its collection.
	Kind string

	LoanType string

	PaymentType string

	Date struct {
		time.Time
	}

	Income struct {
		ID     string          `json:"_id,omitempty"`
		Date   Date            `json:"fecha"`
		Amount decimal.Decimal `json:"valor"`
		Source string          `json:"origen,omitempty"`
		Detail string          `json:"detalle,omitempty"`
		Note   string          `json:"nota,omitempty"`
	}

	// Expense is the shape shared by fixed expenses, variable expenses and
	// purchases. The wrappers below give each one its own Kind.
	Expense struct {
		ID          string          `json:"_id,omitempty"`
		Date        Date            `json:"fecha"`
		Amount      decimal.Decimal `json:"valor"`
		Detail      string          `json:"detalle"`
		Destination string          `json:"destino,omitempty"`
	}

	FixedExpense struct{ Expense }

	VariableExpense struct{ Expense }

	Purchase struct{ Expense }

	Debt struct {
		ID               string              `json:"_id,omitempty"`
		Detail           string              `json:"detalle"`
		Creditor         string              `json:"destino"`
		TotalAmount      decimal.Decimal     `json:"monto_total"`
		CurrentBalance   decimal.Decimal     `json:"saldo_actual"`
		StartDate        Date                `json:"fecha_inicio"`
		LoanType         LoanType            `json:"tipo_prestamo"`
		InterestRatePct  decimal.NullDecimal `json:"porcentaje_interes"`
		TermMonths       *int                `json:"plazo_meses"`
		InitialPrincipal decimal.NullDecimal `json:"capital_inicial"`
	}

	Payment struct {
		ID             string              `json:"_id,omitempty"`
		DebtID         DebtRef             `json:"deuda_id"`
		Date           Date                `json:"fecha"`
		Amount         decimal.Decimal     `json:"valor"`
		Detail         string              `json:"detalle,omitempty"`
		Type           PaymentType         `json:"tipo_abono,omitempty"`
		PercentApplied decimal.NullDecimal `json:"porcentaje_aplicado"`
	}

	// DebtRef is the id of the debt a payment belongs to. The ledger sends
	// either the bare id or the populated debt document.
	DebtRef string
)

var (
	ErrZeroDate            = errors.New("date cannot be zero")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDetail         = errors.New("empty detail")
	ErrDetailTooLong       = errors.New("detail too long (max 200 characters)")
	ErrNegativeBalance     = errors.New("current balance cannot be negative")
	ErrBalanceExceedsTotal = errors.New("current balance cannot exceed total amount")
	ErrInvalidLoanType     = errors.New("invalid loan type")
	ErrInvalidLoanTerms    = errors.New("percentage loans need principal, interest rate and term")
	ErrMissingDebt         = errors.New("payment must reference a debt")
	ErrInvalidPaymentType  = errors.New("invalid payment type")
	ErrInvalidPercent      = errors.New("percentage must be greater than 0 and at most 100")
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC3339 timestamps (fractional seconds allowed) and
// plain YYYY-MM-DD dates.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("parse date %q: unsupported format", s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (r *DebtRef) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var doc struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return fmt.Errorf("debt reference: %w", err)
		}
		*r = DebtRef(doc.ID)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("debt reference: %w", err)
	}
	*r = DebtRef(s)
	return nil
}

// The record decoders below read amounts with lenientAmount so one bad
// value does not fail a whole collection.

func (i *Income) UnmarshalJSON(b []byte) error {
	type plain Income
	aux := struct {
		*plain
		Amount json.RawMessage `json:"valor"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	i.Amount = lenientAmount(aux.Amount)
	return nil
}

func (e *Expense) UnmarshalJSON(b []byte) error {
	type plain Expense
	aux := struct {
		*plain
		Amount json.RawMessage `json:"valor"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	e.Amount = lenientAmount(aux.Amount)
	return nil
}

func (d *Debt) UnmarshalJSON(b []byte) error {
	type plain Debt
	aux := struct {
		*plain
		TotalAmount    json.RawMessage `json:"monto_total"`
		CurrentBalance json.RawMessage `json:"saldo_actual"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.TotalAmount = lenientAmount(aux.TotalAmount)
	d.CurrentBalance = lenientAmount(aux.CurrentBalance)
	return nil
}

func (p *Payment) UnmarshalJSON(b []byte) error {
	type plain Payment
	aux := struct {
		*plain
		Amount json.RawMessage `json:"valor"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.Amount = lenientAmount(aux.Amount)
	return nil
}

func validateDetail(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDetail
	}
	if len(s) > 200 {
		return ErrDetailTooLong
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if !i.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return validateDetail(e.Detail)
}

func (d Debt) Validate() error {
	if err := validateDetail(d.Detail); err != nil {
		return err
	}
	if !d.TotalAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if d.CurrentBalance.IsNegative() {
		return ErrNegativeBalance
	}
	if d.CurrentBalance.GreaterThan(d.TotalAmount) {
		return ErrBalanceExceedsTotal
	}
	switch d.LoanType {
	case LoanFlat, "":
	case LoanPercentage:
		if !d.InitialPrincipal.Valid || !d.InterestRatePct.Valid || d.TermMonths == nil {
			return ErrInvalidLoanTerms
		}
	default:
		return ErrInvalidLoanType
	}
	return nil
}

// PaidPercent is the share of the total already paid off, 0 for an empty debt.
func (d Debt) PaidPercent() float64 {
	if !d.TotalAmount.IsPositive() {
		return 0
	}
	return d.TotalAmount.Sub(d.CurrentBalance).Div(d.TotalAmount).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Outstanding reports whether anything is left to pay.
func (d Debt) Outstanding() bool {
	return d.CurrentBalance.IsPositive()
}

func (p Payment) Validate() error {
	if strings.TrimSpace(string(p.DebtID)) == "" {
		return ErrMissingDebt
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	switch p.Type {
	case PaymentManual, PaymentCalculatedInstallment, "":
	case PaymentPercentOfBalance:
		if !p.PercentApplied.Valid || !validPercent(p.PercentApplied.Decimal) {
			return ErrInvalidPercent
		}
	default:
		return ErrInvalidPaymentType
	}
	return nil
}

func validPercent(pct decimal.Decimal) bool {
	return pct.IsPositive() && pct.LessThanOrEqual(decimal.NewFromInt(100))
}

// ParseKind maps the collection names used by the ledger and the UI to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ingreso", "ingresos", "caja", "income":
		return KindIncome, true
	case "gastofijo", "gastos-fijos", "fixed":
		return KindFixedExpense, true
	case "gastovariable", "gastos-variables", "variable":
		return KindVariableExpense, true
	case "compra", "compras", "purchase":
		return KindPurchase, true
	case "deuda", "deudas", "debt":
		return KindDebt, true
	case "abono", "abonos", "payment":
		return KindPayment, true
	}
	return "", false
}

// Kinds lists every record kind in display order.
func Kinds() []Kind {
	return []Kind{KindIncome, KindPurchase, KindFixedExpense, KindVariableExpense, KindDebt, KindPayment}
}
