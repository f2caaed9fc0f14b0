package analytics

import "testing"

func TestCorrelation(t *testing.T) {
	approx(t, "self", Correlation([]float64{100, 250, 40, 900}, []float64{100, 250, 40, 900}), 1)
	approx(t, "inverse", Correlation([]float64{1, 2, 3}, []float64{3, 2, 1}), -1)
	approx(t, "truncated", Correlation([]float64{1, 2, 3, 99}, []float64{2, 4, 6}), 1)
	approx(t, "empty", Correlation(nil, []float64{1, 2}), 0)
	approx(t, "both empty", Correlation(nil, nil), 0)
	approx(t, "no variance", Correlation([]float64{5, 5}, []float64{1, 2}), 0)
}

func TestMaxDrawdown(t *testing.T) {
	cases := []struct {
		name string
		in   []float64
		want float64
	}{
		{"rising", []float64{100, 200, 300}, 0},
		{"flat", []float64{50, 50, 50}, 0},
		{"empty", nil, 0},
		{"half", []float64{100, 50, 200, 100}, 50},
		{"below zero clamps", []float64{100, -50, 20}, 100},
		{"negative peak ignored", []float64{-100, -300, -50}, 0},
		{"recovers from negative start", []float64{-10, 40, 30}, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MaxDrawdown(tc.in)
			if got < 0 || got > 100 {
				t.Fatalf("drawdown %v outside [0,100]", got)
			}
			approx(t, "drawdown", got, tc.want)
		})
	}
}

func TestRecoveryTime(t *testing.T) {
	cases := []struct {
		in   []float64
		want int
	}{
		{[]float64{100, 200, 300}, 0},
		{[]float64{100, 50, 80, 120}, 2},
		{[]float64{100, 50, 150, 140, 130, 120, 200}, 3},
		{[]float64{100, 50, 60}, 0}, // never recovers
		{nil, 0},
	}
	for i, tc := range cases {
		if got := RecoveryTime(tc.in); got != tc.want {
			t.Fatalf("case %d: got %d want %d", i, got, tc.want)
		}
	}
}

func TestRegularityAndConsistency(t *testing.T) {
	approx(t, "too few months", RegularityScore([]float64{100, 100}), 0)
	approx(t, "constant", RegularityScore([]float64{100, 100, 100}), 1)
	approx(t, "zero mean", RegularityScore([]float64{-100, 0, 100}), 0)
	approx(t, "clamped", RegularityScore([]float64{-100, 10, 100}), 0)

	approx(t, "consistency short", ConsistencyIndex([]float64{100}), 0)
	approx(t, "consistency constant", ConsistencyIndex([]float64{100, 100, 100}), 100)
	// changes 100 and 100, largest |balance| 200
	approx(t, "consistency", ConsistencyIndex([]float64{100, 200, 100}), 50)
	approx(t, "consistency zeros", ConsistencyIndex([]float64{0, 0}), 0)
}

func TestStdDev(t *testing.T) {
	approx(t, "single", stdDev([]float64{42}), 0)
	approx(t, "pair", stdDev([]float64{2, 4}), 1)
	approx(t, "population", stdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 2)
}

func TestPercentChange(t *testing.T) {
	approx(t, "plain", percentChange(150, 100, false), 50)
	approx(t, "zero base", percentChange(5, 0, false), 500)
	approx(t, "negative base abs", percentChange(50, -100, true), 150)
}
