package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(y, m, d int) core.Date { return core.NewDate(y, m, d) }

func atHour(y, m, d, h int) core.Date {
	return core.Date{Time: time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC)}
}

func income(id string, amount int64, date core.Date, source string) core.Income {
	return core.Income{ID: id, Date: date, Amount: decimal.NewFromInt(amount), Source: source, Detail: "Ingreso"}
}

func expense(id string, amount int64, date core.Date, detail, dest string) core.Expense {
	return core.Expense{ID: id, Date: date, Amount: decimal.NewFromInt(amount), Detail: detail, Destination: dest}
}

func fixed(id string, amount int64, date core.Date) core.FixedExpense {
	return core.FixedExpense{Expense: expense(id, amount, date, "Arriendo", "")}
}

func variable(id string, amount int64, date core.Date) core.VariableExpense {
	return core.VariableExpense{Expense: expense(id, amount, date, "Taxi", "")}
}

func purchase(id string, amount int64, date core.Date, dest string) core.Purchase {
	return core.Purchase{Expense: expense(id, amount, date, "Mercado", dest)}
}

func debt(id string, total, balance int64) core.Debt {
	return core.Debt{
		ID: id, Detail: "Deuda " + id, Creditor: "Banco",
		TotalAmount: decimal.NewFromInt(total), CurrentBalance: decimal.NewFromInt(balance),
		StartDate: at(2023, 1, 1), LoanType: core.LoanFlat,
	}
}

func payment(id, debtID string, amount int64, date core.Date) core.Payment {
	return core.Payment{ID: id, DebtID: core.DebtRef(debtID), Date: date, Amount: decimal.NewFromInt(amount), Detail: "Abono"}
}

// sampleLedger spans several months with every record kind.
func sampleLedger() Collections {
	return Collections{
		Incomes: []core.Income{
			income("i1", 3000000, atHour(2024, 1, 5, 9), "Salario"),
			income("i2", 3000000, atHour(2024, 2, 5, 9), "Salario"),
			income("i3", 3200000, atHour(2024, 3, 5, 9), "Salario"),
			income("i4", 450000, atHour(2024, 3, 18, 16), "Freelance"),
			income("i5", 3200000, atHour(2024, 4, 5, 9), ""),
		},
		Fixed: []core.FixedExpense{
			fixed("f1", 1200000, atHour(2024, 1, 10, 8)),
			fixed("f2", 1200000, atHour(2024, 2, 10, 8)),
			fixed("f3", 1200000, atHour(2024, 3, 10, 8)),
			fixed("f4", 1250000, atHour(2024, 4, 10, 8)),
		},
		Variable: []core.VariableExpense{
			variable("v1", 80000, atHour(2024, 1, 20, 19)),
			variable("v2", 120000, atHour(2024, 3, 2, 21)),
			variable("v3", 95000, atHour(2024, 4, 12, 13)),
		},
		Purchases: []core.Purchase{
			purchase("p1", 350000, atHour(2024, 1, 15, 11), "Éxito"),
			purchase("p2", 900000, atHour(2024, 2, 17, 12), "Falabella"),
			purchase("p3", 410000, atHour(2024, 3, 15, 11), "Éxito"),
			purchase("p4", 60000, atHour(2024, 4, 3, 18), ""),
		},
		Debts: []core.Debt{
			debt("d1", 5000000, 3200000),
			debt("d2", 800000, 0),
			debt("d3", 1200000, 900000),
		},
		Payments: []core.Payment{
			payment("a1", "d1", 300000, atHour(2024, 2, 28, 10)),
			payment("a2", "d3", 300000, atHour(2024, 4, 20, 10)),
		},
	}
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}
