// Package rates maps a credit score to the annual percentage rate offered for it.
package rates

// Tier pairs a minimum credit score with the annual rate granted at or above it.
type Tier struct {
	MinScore   int     `json:"minScore"`
	AnnualRate float64 `json:"annualRate"`
}

// tiers is ordered from the highest minimum score to the lowest.
var tiers = []Tier{
	{MinScore: 760, AnnualRate: 0.05},
	{MinScore: 700, AnnualRate: 0.065},
	{MinScore: 650, AnnualRate: 0.08},
	{MinScore: 600, AnnualRate: 0.12},
}

// SubprimeRate applies to every score below the lowest tier.
const SubprimeRate = 0.18

// RateFor returns the annual rate for a credit score. The first tier whose
// minimum the score reaches wins; any score is accepted.
func RateFor(creditScore int) float64 {
	for _, tier := range tiers {
		if creditScore >= tier.MinScore {
			return tier.AnnualRate
		}
	}
	return SubprimeRate
}
