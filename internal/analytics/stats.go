package analytics

import "math"

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation, 0 for fewer than two values.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	v := 0.0
	for _, x := range xs {
		v += (x - m) * (x - m)
	}
	return math.Sqrt(v / float64(len(xs)))
}

// Correlation is the Pearson coefficient of x and y truncated to the shorter
// length. It is 0 when either series is empty or has no variance.
func Correlation(x, y []float64) float64 {
	n := min(len(x), len(y))
	if n == 0 {
		return 0
	}
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}
	fn := float64(n)
	num := fn*sumXY - sumX*sumY
	den := math.Sqrt((fn*sumX2 - sumX*sumX) * (fn*sumY2 - sumY*sumY))
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// MaxDrawdown walks the balances in order keeping a running peak and returns
// the largest (peak-value)/peak decline as a percentage in [0, 100].
// Non-positive peaks cannot draw down.
func MaxDrawdown(balances []float64) float64 {
	if len(balances) == 0 {
		return 0
	}
	peak := balances[0]
	worst := 0.0
	for _, v := range balances {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > worst {
			worst = dd
		}
	}
	return math.Min(worst*100, 100)
}

// RecoveryTime is the longest number of months between the start of a
// drawdown and the next new peak.
func RecoveryTime(balances []float64) int {
	if len(balances) == 0 {
		return 0
	}
	peak := balances[0]
	inDrawdown := false
	start, longest := 0, 0
	for i, v := range balances {
		switch {
		case v > peak:
			peak = v
			if inDrawdown {
				longest = max(longest, i-start)
				inDrawdown = false
			}
		case v < peak && !inDrawdown:
			inDrawdown = true
			start = i
		}
	}
	return longest
}

// RegularityScore is 1 - σ/|mean| of the balances clamped at 0. It needs at
// least three months.
func RegularityScore(balances []float64) float64 {
	if len(balances) < 3 {
		return 0
	}
	m := mean(balances)
	if m == 0 {
		return 0
	}
	return math.Max(0, 1-stdDev(balances)/math.Abs(m))
}

// ConsistencyIndex rates how small month-to-month balance changes are
// relative to the largest balance, from 0 to 100.
func ConsistencyIndex(balances []float64) float64 {
	if len(balances) < 2 {
		return 0
	}
	changes := make([]float64, 0, len(balances)-1)
	largest := 0.0
	for i, b := range balances {
		largest = math.Max(largest, math.Abs(b))
		if i > 0 {
			changes = append(changes, math.Abs(b-balances[i-1]))
		}
	}
	if largest == 0 {
		return 0
	}
	return math.Max(0, 100-mean(changes)/largest*100)
}

// safeDiv returns a/b, or 0 when b is 0.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// percentChange is (cur-base)/base*100 with a zero base denominator
// replaced by 1. absBase divides by |base| instead.
func percentChange(cur, base float64, absBase bool) float64 {
	den := base
	if absBase {
		den = math.Abs(base)
	}
	if den == 0 {
		den = 1
	}
	return (cur - base) / den * 100
}
