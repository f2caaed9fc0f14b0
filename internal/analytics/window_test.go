package analytics

import (
	"errors"
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestParseWindow(t *testing.T) {
	cases := []struct {
		in   string
		want Window
		ok   bool
	}{
		{"", Window6, true},
		{"3", Window3, true},
		{"3months", Window3, true},
		{"6m", Window6, true},
		{" 12 meses", Window12, true},
		{"12MONTHS", Window12, true},
		{"4", 0, false},
		{"seis", 0, false},
		{"-3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseWindow(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ParseWindow(%q) = %v, %v", tc.in, got, err)
			}
		} else if !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("ParseWindow(%q) expected ErrInvalidWindow, got %v", tc.in, err)
		}
	}
}

func TestWindowCutoff(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cases := map[Window]time.Time{
		Window3:  time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		Window6:  time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		Window12: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for w, want := range cases {
		if got := w.Cutoff(now, time.UTC); !got.Equal(want) {
			t.Fatalf("%v cutoff = %v, want %v", w, got, want)
		}
	}
}

func TestStreamWindowAndOrder(t *testing.T) {
	c := Collections{
		Incomes: []core.Income{
			income("i-before", 100, at(2024, 2, 29), ""),
			income("i-first", 100, at(2024, 3, 1), "Salario"),
			income("i-future", 100, at(2024, 6, 20), ""),
		},
		Purchases: []core.Purchase{purchase("p1", 40, at(2024, 5, 2), "")},
		Fixed:     []core.FixedExpense{fixed("f1", 60, at(2024, 5, 2))},
		Variable:  []core.VariableExpense{variable("v1", 10, at(2024, 4, 1))},
	}
	got := Stream(c, Options{Window: Window3, Now: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)})

	ids := make([]string, len(got))
	for i, tx := range got {
		ids[i] = tx.ID
	}
	want := []string{"i-first", "v1", "p1", "f1"}
	if len(ids) != len(want) {
		t.Fatalf("stream ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("stream ids = %v, want %v", ids, want)
		}
	}

	if got[0].Category != "Salario" || !got[0].Amount.IsPositive() {
		t.Fatalf("income entry = %+v", got[0])
	}
	if got[2].Category != CategoryPurchases || !got[2].Amount.Equal(dec("-40")) {
		t.Fatalf("purchase entry = %+v", got[2])
	}
	if got[3].Category != CategoryFixedExpense || got[1].Category != CategoryVariableExpense {
		t.Fatalf("expense categories = %q, %q", got[3].Category, got[1].Category)
	}
}

func TestBucketMonthsInLocation(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	tx := []Transaction{{
		Kind: core.KindIncome, Amount: dec("10"), Category: CategoryIncome,
		Timestamp: time.Date(2024, 2, 1, 2, 0, 0, 0, time.UTC),
	}}
	if got := BucketMonths(tx, bogota); got[0].Key != "2024-01" {
		t.Fatalf("expected the local January bucket, got %s", got[0].Key)
	}
	if got := BucketMonths(tx, nil); got[0].Key != "2024-02" {
		t.Fatalf("expected the UTC February bucket, got %s", got[0].Key)
	}
}
