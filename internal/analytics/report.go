package analytics

import (
	"slices"
	"time"
)

// CorrelationCell is the correlation of a row category with Category.
type CorrelationCell struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

type CorrelationRow struct {
	Category     string            `json:"category"`
	Correlations []CorrelationCell `json:"correlations"`
}

// Report is everything the statistics view renders.
type Report struct {
	Window            Window              `json:"window"`
	GeneratedAt       time.Time           `json:"generatedAt"`
	Totals            Totals              `json:"totals"`
	TransactionCount  int                 `json:"transactionCount"`
	MonthlyTrends     []MonthlyBucket     `json:"monthlyTrends"`
	CategoryBreakdown []CategoryBreakdown `json:"categoryBreakdown"`
	TopDestinations   []DestinationTotal  `json:"topExpenseCategories"`
	Correlations      []CorrelationRow    `json:"correlationMatrix"`
	Seasonal          Seasons             `json:"seasonalAnalysis"`
	KPIs              KPIs                `json:"kpis"`
	Risk              RiskMetrics         `json:"advancedMetrics"`
	Behavior          Behavior            `json:"behaviorPatterns"`
	Health            FinancialHealth     `json:"financialHealth"`
	Predictions       Predictions         `json:"predictions"`
	Comparisons       Comparisons         `json:"comparisons"`
	TimeAnalysis      TimeAnalysis        `json:"timeAnalysis"`
}

// Compute derives the full report from the collections.
func Compute(c Collections, opts Options) Report {
	opts = opts.normalize(c)
	totals := ComputeTotals(c)
	txs := Stream(c, opts)
	buckets := BucketMonths(txs, opts.Location)
	bal := balances(buckets)

	income := totals.Income.InexactFloat64()
	expense := totals.Expense.InexactFloat64()
	efficiency := Efficiency(income, expense)
	burnRate := mean(expenses(buckets))
	runway := Runway(income, burnRate)
	avgSize := meanAbs(txs)
	volatility := stdDev(bal)
	sharpe := safeDiv(mean(bal), volatility)
	categories := Categories(txs)
	breakdown := Breakdown(c, totals)

	risk := RiskMetrics{
		VolatilityIndex:      volatility,
		SharpeRatio:          sharpe,
		MaxDrawdown:          MaxDrawdown(bal),
		RecoveryTime:         RecoveryTime(bal),
		ConsistencyIndex:     ConsistencyIndex(bal),
		DiversificationScore: len(categories) * 10,
	}

	personality, largeShare := ClassifySpending(txs, buckets)
	riskProfile := ClassifyRisk(volatility, efficiency)
	behavior := Behavior{
		Personality:           personality,
		PersonalityLabel:      personality.Label(),
		RiskProfile:           riskProfile,
		RiskProfileLabel:      riskProfile.Label(),
		RegularityScore:       RegularityScore(bal),
		LargeTransactionShare: largeShare,
		Opportunities:         Opportunities(breakdown, buckets),
	}

	next, monthlyNet, yearEnd := Predict(income, buckets, opts.Now)
	savingsRate := efficiency * 100
	comparisons := Compare(buckets, opts.Now, savingsRate)

	return Report{
		Window:            opts.Window,
		GeneratedAt:       opts.Now,
		Totals:            totals,
		TransactionCount:  len(txs),
		MonthlyTrends:     buckets,
		CategoryBreakdown: breakdown,
		TopDestinations:   TopDestinations(c.Purchases),
		Correlations:      CorrelationMatrix(txs, categories),
		Seasonal:          SeasonalTotals(txs, opts.Location),
		KPIs: KPIs{
			BurnRate:             burnRate,
			RunwayMonths:         runway,
			AvgTransactionSize:   avgSize,
			TransactionFrequency: float64(len(txs)) / float64(max(len(buckets), 1)),
			VolatilityIndex:      volatility / 1000,
			EfficiencyRatio:      efficiency * 100,
			CashFlowVelocity:     avgSize,
			WeeklyAverage:        burnRate / weeksPerMonth,
			SavingsRate:          savingsRate,
			ExpenseGrowth:        comparisons.VsLastMonth.Expense,
		},
		Risk:     risk,
		Behavior: behavior,
		Health:   Health(efficiency, volatility, len(categories), runway),
		Predictions: Predictions{
			NextMonthExpense:    next,
			MonthlyNetIncome:    monthlyNet,
			YearEndBalance:      yearEnd,
			SavingsGoalProgress: SavingsGoalProgress(income, expense),
			RiskAdjustedReturn:  sharpe * 100,
			OptimalAllocation:   OptimalAllocation(breakdown),
		},
		Comparisons:  comparisons,
		TimeAnalysis: AnalyzeTime(txs, buckets, opts.Location),
	}
}

// Categories lists the distinct categories of the stream, sorted by name.
func Categories(txs []Transaction) []string {
	var out []string
	for _, t := range txs {
		if !slices.Contains(out, t.Category) {
			out = append(out, t.Category)
		}
	}
	slices.Sort(out)
	return out
}

// CorrelationMatrix correlates the |amount| sequences of every pair of
// categories, in stream order.
func CorrelationMatrix(txs []Transaction, categories []string) []CorrelationRow {
	series := make(map[string][]float64, len(categories))
	for _, t := range txs {
		series[t.Category] = append(series[t.Category], t.Abs().InexactFloat64())
	}
	rows := make([]CorrelationRow, len(categories))
	for i, a := range categories {
		cells := make([]CorrelationCell, len(categories))
		for j, b := range categories {
			cells[j] = CorrelationCell{Category: b, Value: Correlation(series[a], series[b])}
		}
		rows[i] = CorrelationRow{Category: a, Correlations: cells}
	}
	return rows
}
