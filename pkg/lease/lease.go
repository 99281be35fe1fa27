// Package lease computes the cost of a fixed-term closed-end vehicle lease.
package lease

import (
	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/mathutil"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
)

// Terms is the outcome of pricing a lease.
type Terms struct {
	MonthlyPayment  float64
	DueAtSigning    float64
	TermMonths      int
	MoneyFactor     float64
	ResidualValue   float64
	CapitalizedCost float64
	DepreciationFee float64
	FinanceFee      float64
}

// MoneyFactor converts an annual rate to the lease money factor.
func MoneyFactor(annualRate float64) float64 {
	return annualRate / constants.MoneyFactorDivisor
}

// Calculate prices a lease of a vehicle at price with downPayment applied to
// the capitalized cost. The first monthly payment is collected at signing in
// addition to the down payment.
func Calculate(price, downPayment, annualRate float64) (Terms, error) {
	if err := validation.Amount("price", price); err != nil {
		return Terms{}, err
	}
	if err := validation.Amount("downPayment", downPayment); err != nil {
		return Terms{}, err
	}
	if err := validation.Rate("annualRate", annualRate); err != nil {
		return Terms{}, err
	}

	moneyFactor := MoneyFactor(annualRate)
	residual := price * constants.ResidualValueRate
	capCost := price - downPayment
	depreciation := (capCost - residual) / constants.LeaseTermMonths
	finance := (capCost + residual) * moneyFactor
	// A down payment beyond the depreciation cannot make the lessor pay the lessee.
	monthly := mathutil.ClampNonNegative(depreciation + finance)

	if err := validation.Finite("monthlyPayment", monthly); err != nil {
		return Terms{}, err
	}

	return Terms{
		MonthlyPayment:  monthly,
		DueAtSigning:    downPayment + monthly,
		TermMonths:      constants.LeaseTermMonths,
		MoneyFactor:     moneyFactor,
		ResidualValue:   residual,
		CapitalizedCost: capCost,
		DepreciationFee: depreciation,
		FinanceFee:      finance,
	}, nil
}
