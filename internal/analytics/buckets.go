package analytics

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var monthAbbrev = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// MonthlyBucket aggregates the transactions of one calendar month.
type MonthlyBucket struct {
	Key                  string                     `json:"monthKey"`
	Label                string                     `json:"month"`
	Start                time.Time                  `json:"date"`
	Income               decimal.Decimal            `json:"income"`
	Expense              decimal.Decimal            `json:"expense"`
	Balance              decimal.Decimal            `json:"balance"`
	TransactionCount     int                        `json:"transactions"`
	Categories           map[string]decimal.Decimal `json:"categories"`
	Volatility           float64                    `json:"volatility"`
	MaxSingleTransaction decimal.Decimal            `json:"maxSingleTransaction"`
	AvgTransactionSize   float64                    `json:"avgTransactionSize"`
}

// MonthKey formats t as YYYY-MM in loc.
func MonthKey(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// MonthLabel renders a short Spanish month name, e.g. "ene 2024".
func MonthLabel(t time.Time) string {
	return monthAbbrev[t.Month()-1] + " " + fmt.Sprint(t.Year())
}

// BucketMonths groups the stream by calendar month and returns the buckets
// ordered by key. Sums are exact, so the result does not depend on the order
// of txs.
func BucketMonths(txs []Transaction, loc *time.Location) []MonthlyBucket {
	if loc == nil {
		loc = time.UTC
	}
	byKey := make(map[string]*MonthlyBucket)
	amounts := make(map[string][]float64)
	for _, t := range txs {
		key := MonthKey(t.Timestamp, loc)
		b, ok := byKey[key]
		if !ok {
			local := t.Timestamp.In(loc)
			start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
			b = &MonthlyBucket{
				Key:                  key,
				Label:                MonthLabel(start),
				Start:                start,
				Categories:           make(map[string]decimal.Decimal),
				Income:               decimal.Zero,
				Expense:              decimal.Zero,
				MaxSingleTransaction: decimal.Zero,
			}
			byKey[key] = b
		}
		abs := t.Abs()
		b.TransactionCount++
		b.MaxSingleTransaction = decimal.Max(b.MaxSingleTransaction, abs)
		b.Categories[t.Category] = b.Categories[t.Category].Add(abs)
		if t.IsIncome() {
			b.Income = b.Income.Add(t.Amount)
		} else {
			b.Expense = b.Expense.Add(abs)
		}
		amounts[key] = append(amounts[key], abs.InexactFloat64())
	}

	out := make([]MonthlyBucket, 0, len(byKey))
	for key, b := range byKey {
		b.Balance = b.Income.Sub(b.Expense)
		b.AvgTransactionSize = b.Income.Add(b.Expense).InexactFloat64() / float64(b.TransactionCount)
		xs := amounts[key]
		// Sorting makes the float accumulation independent of input order.
		slices.Sort(xs)
		b.Volatility = stdDev(xs)
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b MonthlyBucket) int { return strings.Compare(a.Key, b.Key) })
	return out
}

func balances(buckets []MonthlyBucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Balance.InexactFloat64()
	}
	return out
}

func expenses(buckets []MonthlyBucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Expense.InexactFloat64()
	}
	return out
}

func findBucket(buckets []MonthlyBucket, key string) (MonthlyBucket, bool) {
	for _, b := range buckets {
		if b.Key == key {
			return b, true
		}
	}
	return MonthlyBucket{}, false
}
