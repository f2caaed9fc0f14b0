package analytics

import "fmt"

type Personality string

const (
	PersonalityImpulsive    Personality = "impulsive"
	PersonalityMethodical   Personality = "methodical"
	PersonalityConservative Personality = "conservative"
	PersonalityBalanced     Personality = "balanced"
)

func (p Personality) Label() string {
	switch p {
	case PersonalityImpulsive:
		return "Gastador Impulsivo"
	case PersonalityMethodical:
		return "Planificador Metódico"
	case PersonalityConservative:
		return "Gastador Conservador"
	}
	return "Gastador Equilibrado"
}

type RiskProfile string

const (
	RiskHigh         RiskProfile = "high"
	RiskConservative RiskProfile = "conservative"
	RiskModerate     RiskProfile = "moderate"
)

func (r RiskProfile) Label() string {
	switch r {
	case RiskHigh:
		return "Alto Riesgo"
	case RiskConservative:
		return "Conservador"
	}
	return "Moderado"
}

const (
	largeTransactionFactor = 2.0
	impulsiveShare         = 0.3
	methodicalRegularity   = 0.8
	conservativeAvgSize    = 50000.0
)

// Behavior classifies how the user spends.
type Behavior struct {
	Personality           Personality `json:"spendingPersonality"`
	PersonalityLabel      string      `json:"spendingPersonalityLabel"`
	RiskProfile           RiskProfile `json:"riskProfile"`
	RiskProfileLabel      string      `json:"riskProfileLabel"`
	RegularityScore       float64     `json:"regularityScore"`
	LargeTransactionShare float64     `json:"largeTransactionShare"`
	Opportunities         []string    `json:"optimizationOpportunities"`
}

// ClassifySpending applies the thresholds in priority order: impulsive when
// more than 30% of transactions exceed twice the mean size, methodical when
// monthly balances are regular, conservative when the mean size is small,
// balanced otherwise.
func ClassifySpending(txs []Transaction, buckets []MonthlyBucket) (Personality, float64) {
	if len(txs) == 0 {
		return PersonalityBalanced, 0
	}
	avg := meanAbs(txs)
	large := 0
	for _, t := range txs {
		if t.Abs().InexactFloat64() > avg*largeTransactionFactor {
			large++
		}
	}
	share := float64(large) / float64(len(txs))
	switch {
	case share > impulsiveShare:
		return PersonalityImpulsive, share
	case RegularityScore(balances(buckets)) > methodicalRegularity:
		return PersonalityMethodical, share
	case avg < conservativeAvgSize:
		return PersonalityConservative, share
	}
	return PersonalityBalanced, share
}

// ClassifyRisk maps the volatility index and efficiency ratio to a profile.
func ClassifyRisk(volatility, efficiency float64) RiskProfile {
	switch {
	case volatility > 100 && efficiency < 0:
		return RiskHigh
	case volatility < 50 && efficiency > 0.2:
		return RiskConservative
	}
	return RiskModerate
}

// Opportunities flags a dominant expense kind and expenses that rose for
// three months in a row.
func Opportunities(breakdown []CategoryBreakdown, buckets []MonthlyBucket) []string {
	out := []string{}
	if len(breakdown) > 0 {
		top := breakdown[0]
		for _, c := range breakdown[1:] {
			if c.PercentageOfExpense > top.PercentageOfExpense {
				top = c
			}
		}
		if top.PercentageOfExpense > 50 {
			out = append(out, fmt.Sprintf("Considera diversificar gastos - %s representa %.1f%% del total", top.Name, top.PercentageOfExpense))
		}
	}
	if len(buckets) >= 3 {
		recent := expenses(buckets[len(buckets)-3:])
		if recent[1] > recent[0] && recent[2] > recent[1] {
			out = append(out, "Tus gastos han aumentado consistentemente - revisa presupuesto")
		}
	}
	return out
}

func meanAbs(txs []Transaction) float64 {
	if len(txs) == 0 {
		return 0
	}
	xs := make([]float64, len(txs))
	for i, t := range txs {
		xs[i] = t.Abs().InexactFloat64()
	}
	return mean(xs)
}
