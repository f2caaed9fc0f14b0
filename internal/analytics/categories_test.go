package analytics

import (
	"fmt"
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestBreakdown(t *testing.T) {
	c := Collections{
		Fixed: []core.FixedExpense{fixed("f2", 300, at(2024, 2, 1)), fixed("f1", 100, at(2024, 1, 1))},
		Purchases: []core.Purchase{
			purchase("p1", 100, at(2024, 1, 1), ""),
		},
	}
	got := Breakdown(c, ComputeTotals(c))
	if len(got) != 2 || got[0].Name != CategoryPurchases || got[1].Name != CategoryFixedExpense {
		t.Fatalf("breakdown = %+v", got)
	}
	approx(t, "purchases share", got[0].PercentageOfExpense, 20)
	approx(t, "single entry trend", got[0].Trend, 0)
	// older half averages 100, newer half 300, regardless of input order
	approx(t, "fixed trend", got[1].Trend, 200)
	approx(t, "fixed avg", got[1].AvgTransaction, 200)
	if got[1].Frequency != 2 {
		t.Fatalf("frequency = %d", got[1].Frequency)
	}
}

func TestTopDestinations(t *testing.T) {
	var purchases []core.Purchase
	for i := 0; i < 9; i++ {
		purchases = append(purchases, purchase(fmt.Sprintf("p%d", i), int64(100*(i+1)), at(2024, 1, i+1), fmt.Sprintf("Tienda %d", i)))
	}
	purchases = append(purchases,
		purchase("x1", 50, at(2024, 2, 1), ""),
		purchase("x2", 70, at(2024, 2, 3), ""),
	)

	got := TopDestinations(purchases)
	if len(got) != 8 {
		t.Fatalf("expected 8 destinations, got %d", len(got))
	}
	if got[0].Destination != "Tienda 8" || !got[0].Amount.Equal(dec("900")) {
		t.Fatalf("top = %+v", got[0])
	}
	for _, d := range got {
		if d.Destination == UncategorizedDestination {
			t.Fatalf("small uncategorized total should not make the top 8")
		}
	}

	few := TopDestinations(purchases[9:])
	if len(few) != 1 || few[0].Destination != UncategorizedDestination || few[0].Count != 2 {
		t.Fatalf("uncategorized = %+v", few)
	}
	approx(t, "avg", few[0].AvgAmount, 60)
	approx(t, "percentage", few[0].Percentage, 100)
	if !few[0].LastTransaction.Equal(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("last transaction = %v", few[0].LastTransaction)
	}
}

func TestTimeAnalysis(t *testing.T) {
	txs := []Transaction{
		{Category: "A", Amount: dec("-10"), Timestamp: time.Date(2024, 1, 7, 9, 0, 0, 0, time.UTC)},  // Sunday
		{Category: "B", Amount: dec("-30"), Timestamp: time.Date(2024, 1, 7, 11, 0, 0, 0, time.UTC)}, // Sunday
		{Category: "B", Amount: dec("20"), Timestamp: time.Date(2024, 7, 8, 9, 0, 0, 0, time.UTC)},   // Monday
	}
	days := Weekdays(txs, time.UTC)
	if days[0].Day != "Dom" || days[0].Transactions != 2 || days[0].TopCategory != "A" {
		t.Fatalf("sunday = %+v", days[0])
	}
	approx(t, "sunday avg hour", days[0].AvgHour, 10)
	if days[2].TopCategory != "N/A" {
		t.Fatalf("empty day top category = %q", days[2].TopCategory)
	}

	hours := Hours(txs, time.UTC)
	if hours[9].Transactions != 2 || !hours[9].TotalAmount.Equal(dec("30")) {
		t.Fatalf("9h = %+v", hours[9])
	}

	seasons := SeasonalTotals(txs, time.UTC)
	if !seasons.Winter.Equal(dec("40")) || !seasons.Summer.Equal(dec("20")) || !seasons.Spring.IsZero() {
		t.Fatalf("seasons = %+v", seasons)
	}

	cyc := Cyclical(make([]MonthlyBucket, 13))
	approx(t, "position 3", cyc[3].CyclicalPosition, 0.25)
	approx(t, "wraps", cyc[12].CyclicalPosition, 0)
	approx(t, "adjustment 3", cyc[3].SeasonalAdjustment, 0.1)
}
