package analytics

import (
	"time"
)

const (
	savingsTarget      = 0.20
	benchmarkSavings   = 20.0
	weeksPerMonth      = 4.3
	recentMonthsWindow = 3
)

type KPIs struct {
	BurnRate             float64 `json:"burnRate"`
	RunwayMonths         float64 `json:"runwayMonths"`
	AvgTransactionSize   float64 `json:"avgTransactionSize"`
	TransactionFrequency float64 `json:"transactionFrequency"`
	// VolatilityIndex is expressed in thousands.
	VolatilityIndex  float64 `json:"volatilityIndex"`
	EfficiencyRatio  float64 `json:"efficiencyRatio"`
	CashFlowVelocity float64 `json:"cashFlowVelocity"`
	WeeklyAverage    float64 `json:"weeklyAverage"`
	SavingsRate      float64 `json:"savingsRate"`
	ExpenseGrowth    float64 `json:"expenseGrowth"`
}

type RiskMetrics struct {
	VolatilityIndex      float64 `json:"volatilityIndex"`
	SharpeRatio          float64 `json:"sharpeRatio"`
	MaxDrawdown          float64 `json:"maxDrawdown"`
	RecoveryTime         int     `json:"recoveryTime"`
	ConsistencyIndex     float64 `json:"consistencyIndex"`
	DiversificationScore int     `json:"diversificationScore"`
}

type Allocation struct {
	Current    float64 `json:"current"`
	Optimal    float64 `json:"optimal"`
	Difference float64 `json:"difference"`
}

type Predictions struct {
	NextMonthExpense    float64               `json:"nextMonthExpenses"`
	MonthlyNetIncome    float64               `json:"monthlyNetIncome"`
	YearEndBalance      float64               `json:"yearEndBalance"`
	SavingsGoalProgress float64               `json:"savingsGoalProgress"`
	RiskAdjustedReturn  float64               `json:"riskAdjustedReturn"`
	OptimalAllocation   map[string]Allocation `json:"optimalBudgetAllocation"`
}

// Delta holds percentage changes of the latest month against a baseline.
type Delta struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

type Comparisons struct {
	VsLastMonth       Delta   `json:"vsLastMonth"`
	VsLastYear        Delta   `json:"vsLastYear"`
	QuarterlyGrowth   float64 `json:"quarterlyGrowth"`
	IndustryBenchmark float64 `json:"industryBenchmark"`
}

// Efficiency is (income-expense)/income, 0 without income.
func Efficiency(income, expense float64) float64 {
	if income <= 0 {
		return 0
	}
	return (income - expense) / income
}

// SavingsGoalProgress measures savings against a target of 20% of income,
// capped at 100.
func SavingsGoalProgress(income, expense float64) float64 {
	if income <= 0 {
		return 0
	}
	return min(100, (income-expense)/(income*savingsTarget)*100)
}

// Runway is how many months income covers at the given burn rate.
func Runway(income, burnRate float64) float64 {
	if income <= 0 {
		return 0
	}
	return income / max(burnRate, 1)
}

// Predict projects next month's expense from the last three buckets and the
// balance at the end of now's year.
func Predict(totalIncome float64, buckets []MonthlyBucket, now time.Time) (next, monthlyNet, yearEnd float64) {
	exp := expenses(buckets)
	next = mean(exp)
	if len(exp) > recentMonthsWindow {
		next = mean(exp[len(exp)-recentMonthsWindow:])
	}
	monthlyNet = totalIncome/float64(max(len(buckets), 1)) - next
	monthsLeft := 12 - (int(now.Month()) - 1)
	yearEnd = totalIncome + monthlyNet*float64(monthsLeft)
	return next, monthlyNet, yearEnd
}

// optimalShare is the target share of expense for each kind.
func optimalShare(name string) float64 {
	switch name {
	case CategoryFixedExpense:
		return 50
	case CategoryPurchases:
		return 30
	}
	return 20
}

// OptimalAllocation compares each kind's share of expense with its target.
func OptimalAllocation(breakdown []CategoryBreakdown) map[string]Allocation {
	total := 0.0
	for _, c := range breakdown {
		total += c.Total.InexactFloat64()
	}
	out := make(map[string]Allocation, len(breakdown))
	for _, c := range breakdown {
		current := safeDiv(c.Total.InexactFloat64(), total) * 100
		optimal := optimalShare(c.Name)
		out[c.Name] = Allocation{Current: current, Optimal: optimal, Difference: current - optimal}
	}
	return out
}

func delta(last, base MonthlyBucket) Delta {
	return Delta{
		Income:  percentChange(last.Income.InexactFloat64(), base.Income.InexactFloat64(), false),
		Expense: percentChange(last.Expense.InexactFloat64(), base.Expense.InexactFloat64(), false),
		Balance: percentChange(last.Balance.InexactFloat64(), base.Balance.InexactFloat64(), true),
	}
}

// Compare measures the latest bucket against the one before it and against
// the bucket of now's calendar month one year earlier. Missing baselines
// yield zero deltas.
func Compare(buckets []MonthlyBucket, now time.Time, savingsRate float64) Comparisons {
	var c Comparisons
	if n := len(buckets); n > 0 {
		last := buckets[n-1]
		if n > 1 {
			c.VsLastMonth = delta(last, buckets[n-2])
		}
		yearAgo := time.Date(now.Year()-1, now.Month(), 1, 0, 0, 0, 0, now.Location())
		if base, ok := findBucket(buckets, MonthKey(yearAgo, now.Location())); ok {
			c.VsLastYear = delta(last, base)
		}
		sum := 0.0
		for _, b := range buckets[max(0, n-recentMonthsWindow):] {
			sum += b.Balance.InexactFloat64()
		}
		c.QuarterlyGrowth = sum / recentMonthsWindow
	}
	c.IndustryBenchmark = (savingsRate - benchmarkSavings) / benchmarkSavings * 100
	return c
}
