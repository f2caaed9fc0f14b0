package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

func TestDecodeRecord_PercentageDebtGetsTotals(t *testing.T) {
	body := []byte(`{"detalle":"Crédito","destino":"Banco","tipo_prestamo":"porcentaje",
		"capital_inicial":1000000,"porcentaje_interes":12,"plazo_meses":12,"fecha_inicio":"2024-01-01"}`)
	rec, err := DecodeRecord(Debts, body)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	d := rec.(core.Debt)
	want := decimal.NewFromInt(1066185)
	if !d.TotalAmount.Equal(want) || !d.CurrentBalance.Equal(want) {
		t.Errorf("total %s balance %s, want %s", d.TotalAmount, d.CurrentBalance, want)
	}
}

func TestDecodeRecord_FlatDebtStartsAtTotal(t *testing.T) {
	rec, err := DecodeRecord(Debts, []byte(`{"detalle":"Préstamo","destino":"Juan","monto_total":500000}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	d := rec.(core.Debt)
	if d.LoanType != core.LoanFlat || !d.CurrentBalance.Equal(decimal.NewFromInt(500000)) {
		t.Errorf("debt = %+v", d)
	}
}

func TestDecodeRecord_Invalid(t *testing.T) {
	tests := []struct {
		name string
		r    Resource
		body string
		want error
	}{
		{"expense without detail", FixedExpenses, `{"fecha":"2024-01-01","valor":10,"detalle":" "}`, core.ErrEmptyDetail},
		{"income without amount", Incomes, `{"fecha":"2024-01-01"}`, core.ErrInvalidAmount},
		{"balance over total", Debts, `{"_id":"d","detalle":"x","monto_total":10,"saldo_actual":20}`, core.ErrBalanceExceedsTotal},
		{"percentage debt missing terms", Debts, `{"detalle":"x","tipo_prestamo":"porcentaje"}`, core.ErrInvalidLoanTerms},
		{"payment without debt", Payments, `{"fecha":"2024-01-01","valor":10}`, core.ErrMissingDebt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord(tt.r, []byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

type debtReader struct {
	Reader
	debt core.Debt
}

func (r debtReader) Debt(_ context.Context, id string) (core.Debt, error) {
	if id != r.debt.ID {
		return core.Debt{}, ErrNotFound
	}
	return r.debt, nil
}

func TestResolvePayment(t *testing.T) {
	rd := debtReader{debt: core.Debt{ID: "d1", Detail: "x", TotalAmount: decimal.NewFromInt(1000), CurrentBalance: decimal.NewFromInt(800)}}

	rec, err := DecodeRecord(Payments, []byte(`{"deuda_id":"d1","fecha":"2024-03-01","tipo_abono":"porcentaje_saldo","porcentaje_aplicado":25}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	p, err := ResolvePayment(context.Background(), rd, rec.(core.Payment))
	if err != nil {
		t.Fatalf("ResolvePayment() error = %v", err)
	}
	if !p.Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("amount = %s, want 200", p.Amount)
	}

	_, err = ResolvePayment(context.Background(), rd, core.Payment{DebtID: "missing", Date: core.NewDate(2024, 3, 1), Type: core.PaymentPercentOfBalance, PercentApplied: decimal.NewNullDecimal(decimal.NewFromInt(10))})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDecodeRecord_MalformedBody(t *testing.T) {
	_, err := DecodeRecord(Incomes, []byte(`{"fecha":"mañana","valor":10}`))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("error = %v, want ErrInvalidPayload", err)
	}
	_, err = DecodeRecord(Resource("nada"), []byte(`{}`))
	if !errors.Is(err, ErrUnknownResource) {
		t.Errorf("error = %v, want ErrUnknownResource", err)
	}
}
