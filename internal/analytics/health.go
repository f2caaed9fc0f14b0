package analytics

import "math"

// Factor is one weighted component of the financial health score.
type Factor struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

type FinancialHealth struct {
	Score           float64  `json:"score"`
	Factors         []Factor `json:"factors"`
	Recommendations []string `json:"recommendations"`
}

const (
	FactorSavings         = "Ratio de Ahorro"
	FactorIncomeStability = "Estabilidad de Ingresos"
	FactorDiversification = "Diversificación"
	FactorLiquidity       = "Liquidez"
)

// Health scores savings, income stability, diversification and liquidity
// with weights 0.30, 0.25, 0.20 and 0.25.
func Health(efficiency, volatility float64, categories int, runwayMonths float64) FinancialHealth {
	factors := []Factor{
		{Name: FactorSavings, Score: math.Min(efficiency*100, 100), Weight: 0.30},
		{Name: FactorIncomeStability, Score: math.Max(100-volatility/1000, 0), Weight: 0.25},
		{Name: FactorDiversification, Score: math.Min(float64(categories)*10, 100), Weight: 0.20},
		{Name: FactorLiquidity, Score: math.Min(runwayMonths*10, 100), Weight: 0.25},
	}
	score := 0.0
	for _, f := range factors {
		score += f.Score * f.Weight
	}

	recs := []string{}
	if efficiency < 0.1 {
		recs = append(recs, "Considera reducir gastos variables para mejorar tu ratio de ahorro")
	}
	if volatility > 100 {
		recs = append(recs, "Busca estabilizar tus ingresos para reducir la volatilidad financiera")
	}
	if factors[3].Score < 50 {
		recs = append(recs, "Aumenta tu fondo de emergencia para mejorar la liquidez")
	}
	return FinancialHealth{Score: score, Factors: factors, Recommendations: recs}
}
