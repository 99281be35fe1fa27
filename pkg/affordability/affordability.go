// Package affordability estimates the purchase-price range a buyer can justify.
package affordability

import (
	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/loans"
	"github.com/iwvelando/vehicle-finance/pkg/rates"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
)

// Range is a justifiable purchase-price range. Min is always
// constants.AffordableRangeFloor times Max.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Estimate derives the price range from annual gross income: at most
// constants.AffordableIncomeShare of monthly income goes to the payment, the
// payment is converted back into a principal at the rate the credit score
// earns, and the down payment is added on top.
func Estimate(income float64, creditScore int, downPayment float64, termYears int) (Range, error) {
	if err := validation.Amount("income", income); err != nil {
		return Range{}, err
	}
	if err := validation.Amount("downPayment", downPayment); err != nil {
		return Range{}, err
	}
	if err := validation.Term("termYears", termYears); err != nil {
		return Range{}, err
	}

	maxMonthly := income / constants.MonthsPerYear * constants.AffordableIncomeShare
	maxLoan, err := loans.MaxPrincipal(maxMonthly, rates.RateFor(creditScore), termYears*constants.MonthsPerYear)
	if err != nil {
		return Range{}, err
	}

	maxPrice := maxLoan + downPayment
	return Range{
		Min: constants.AffordableRangeFloor * maxPrice,
		Max: maxPrice,
	}, nil
}

// Contains reports whether price lies inside the range.
func (r Range) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}
