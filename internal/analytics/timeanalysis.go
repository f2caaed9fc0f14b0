package analytics

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var weekdayAbbrev = [...]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

// Seasons splits absolute transaction volume by meteorological season.
type Seasons struct {
	Spring decimal.Decimal `json:"spring"`
	Summer decimal.Decimal `json:"summer"`
	Fall   decimal.Decimal `json:"fall"`
	Winter decimal.Decimal `json:"winter"`
}

type WeekdayPattern struct {
	Day          string          `json:"day"`
	Transactions int             `json:"transactions"`
	Amount       decimal.Decimal `json:"amount"`
	AvgAmount    float64         `json:"avgAmount"`
	AvgHour      float64         `json:"avgHour"`
	Categories   map[string]int  `json:"categories"`
	TopCategory  string          `json:"topCategory"`
}

type HourlyPattern struct {
	Hour         int             `json:"hour"`
	Transactions int             `json:"transactions"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	AvgAmount    float64         `json:"avgAmount"`
}

type CyclicalPoint struct {
	Key                string          `json:"monthKey"`
	Balance            decimal.Decimal `json:"balance"`
	CyclicalPosition   float64         `json:"cyclicalPosition"`
	SeasonalAdjustment float64         `json:"seasonalAdjustment"`
}

type TimeAnalysis struct {
	BestMonth      *MonthlyBucket   `json:"bestPerformingMonth"`
	WorstMonth     *MonthlyBucket   `json:"worstPerformingMonth"`
	SeasonalTrends []MonthlyBucket  `json:"seasonalTrends"`
	Weekdays       []WeekdayPattern `json:"weekdayPatterns"`
	Hours          []HourlyPattern  `json:"hourlyPatterns"`
	Cyclical       []CyclicalPoint  `json:"cyclicalPatterns"`
}

// SeasonalTotals sums |amount| per season: spring is March to May, summer
// June to August, fall September to November and winter the rest.
func SeasonalTotals(txs []Transaction, loc *time.Location) Seasons {
	s := Seasons{Spring: decimal.Zero, Summer: decimal.Zero, Fall: decimal.Zero, Winter: decimal.Zero}
	for _, t := range txs {
		abs := t.Abs()
		switch m := t.Timestamp.In(loc).Month(); {
		case m >= time.March && m <= time.May:
			s.Spring = s.Spring.Add(abs)
		case m >= time.June && m <= time.August:
			s.Summer = s.Summer.Add(abs)
		case m >= time.September && m <= time.November:
			s.Fall = s.Fall.Add(abs)
		default:
			s.Winter = s.Winter.Add(abs)
		}
	}
	return s
}

// Weekdays returns seven patterns starting on Sunday.
func Weekdays(txs []Transaction, loc *time.Location) []WeekdayPattern {
	out := make([]WeekdayPattern, 7)
	hours := make([]int, 7)
	for i := range out {
		out[i] = WeekdayPattern{Day: weekdayAbbrev[i], Amount: decimal.Zero, Categories: map[string]int{}}
	}
	for _, t := range txs {
		local := t.Timestamp.In(loc)
		p := &out[local.Weekday()]
		p.Transactions++
		p.Amount = p.Amount.Add(t.Abs())
		p.Categories[t.Category]++
		hours[local.Weekday()] += local.Hour()
	}
	for i := range out {
		p := &out[i]
		p.TopCategory = "N/A"
		if p.Transactions == 0 {
			continue
		}
		p.AvgAmount = p.Amount.InexactFloat64() / float64(p.Transactions)
		p.AvgHour = float64(hours[i]) / float64(p.Transactions)
		names := make([]string, 0, len(p.Categories))
		for name := range p.Categories {
			names = append(names, name)
		}
		slices.Sort(names)
		best := 0
		for _, name := range names {
			if p.Categories[name] > best {
				best = p.Categories[name]
				p.TopCategory = name
			}
		}
	}
	return out
}

// Hours returns 24 patterns, one per hour of the day.
func Hours(txs []Transaction, loc *time.Location) []HourlyPattern {
	out := make([]HourlyPattern, 24)
	for i := range out {
		out[i] = HourlyPattern{Hour: i, TotalAmount: decimal.Zero}
	}
	for _, t := range txs {
		p := &out[t.Timestamp.In(loc).Hour()]
		p.Transactions++
		p.TotalAmount = p.TotalAmount.Add(t.Abs())
	}
	for i := range out {
		if out[i].Transactions > 0 {
			out[i].AvgAmount = out[i].TotalAmount.InexactFloat64() / float64(out[i].Transactions)
		}
	}
	return out
}

// Cyclical places each bucket on a 12-month cycle.
func Cyclical(buckets []MonthlyBucket) []CyclicalPoint {
	out := make([]CyclicalPoint, len(buckets))
	for i, b := range buckets {
		pos := float64(i % 12)
		out[i] = CyclicalPoint{
			Key:                b.Key,
			Balance:            b.Balance,
			CyclicalPosition:   pos / 12,
			SeasonalAdjustment: math.Sin(pos*math.Pi/6) * 0.1,
		}
	}
	return out
}

// AnalyzeTime gathers the calendar-based views of the stream. The earliest
// bucket wins ties for best and worst month.
func AnalyzeTime(txs []Transaction, buckets []MonthlyBucket, loc *time.Location) TimeAnalysis {
	ta := TimeAnalysis{
		SeasonalTrends: buckets[max(0, len(buckets)-12):],
		Weekdays:       Weekdays(txs, loc),
		Hours:          Hours(txs, loc),
		Cyclical:       Cyclical(buckets),
	}
	for i := range buckets {
		b := &buckets[i]
		if ta.BestMonth == nil || b.Balance.GreaterThan(ta.BestMonth.Balance) {
			ta.BestMonth = b
		}
		if ta.WorstMonth == nil || b.Balance.LessThan(ta.WorstMonth.Balance) {
			ta.WorstMonth = b
		}
	}
	return ta
}
