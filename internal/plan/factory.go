package plan

import (
	"fmt"

	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/lease"
	"github.com/iwvelando/vehicle-finance/pkg/loans"
	"github.com/iwvelando/vehicle-finance/pkg/mathutil"
	"github.com/iwvelando/vehicle-finance/pkg/rates"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
)

// Option pairs a vehicle with both of its plans.
type Option struct {
	Vehicle   Vehicle     `json:"vehicle"`
	Financing VehiclePlan `json:"financing"`
	Leasing   VehiclePlan `json:"leasing"`
}

// Build computes a plan of the requested type for a vehicle at vehiclePrice.
// It is a pure function of its arguments: equal inputs give identical plans.
// Currency fields are rounded to cents.
func Build(vehiclePrice float64, input UserInput, annualRate float64, planType Type) (VehiclePlan, error) {
	if err := validation.Amount("price", vehiclePrice); err != nil {
		return VehiclePlan{}, err
	}
	if err := validation.Amount("downPayment", input.DownPayment); err != nil {
		return VehiclePlan{}, err
	}
	if err := validation.Rate("annualRate", annualRate); err != nil {
		return VehiclePlan{}, err
	}

	switch planType {
	case Financing:
		return buildFinancing(vehiclePrice, input, annualRate)
	case Leasing:
		return buildLeasing(vehiclePrice, input, annualRate)
	}
	return VehiclePlan{}, &validation.ValidationError{Field: "planType", Reason: fmt.Sprintf("unknown plan type %q", planType)}
}

func buildFinancing(price float64, input UserInput, annualRate float64) (VehiclePlan, error) {
	loanAmount := mathutil.ClampNonNegative(price - input.DownPayment)
	amortization, err := loans.Amortize(loanAmount, annualRate, input.LoanTermYears)
	if err != nil {
		return VehiclePlan{}, err
	}

	monthly := mathutil.Round(amortization.MonthlyPayment)
	payments := float64(input.LoanTermYears * constants.MonthsPerYear)
	return NewFinancing(FinancingPlan{
		LoanAmount:     mathutil.Round(loanAmount),
		DownPayment:    input.DownPayment,
		MonthlyPayment: monthly,
		TotalCost:      mathutil.Round(monthly*payments + input.DownPayment),
		AnnualRate:     annualRate,
		TermYears:      input.LoanTermYears,
	}), nil
}

func buildLeasing(price float64, input UserInput, annualRate float64) (VehiclePlan, error) {
	terms, err := lease.Calculate(price, input.DownPayment, annualRate)
	if err != nil {
		return VehiclePlan{}, err
	}

	monthly := mathutil.Round(terms.MonthlyPayment)
	return NewLeasing(LeasingPlan{
		MonthlyPayment: monthly,
		DueAtSigning:   mathutil.Round(input.DownPayment + monthly),
		TermMonths:     terms.TermMonths,
		MoneyFactor:    terms.MoneyFactor,
		ResidualValue:  mathutil.Round(terms.ResidualValue),
		AnnualRate:     annualRate,
		DownPayment:    input.DownPayment,
	}), nil
}

// BuildAll prices every vehicle that seats at least input.MinSeats, both
// financed and leased, at the rate input.CreditScore earns. Catalog order is
// preserved.
func BuildAll(vehicles []Vehicle, input UserInput) ([]Option, error) {
	annualRate := rates.RateFor(input.CreditScore)
	options := make([]Option, 0, len(vehicles))
	for _, v := range vehicles {
		if input.MinSeats > 0 && v.Seats > 0 && v.Seats < input.MinSeats {
			continue
		}
		financing, err := Build(v.Price, input, annualRate, Financing)
		if err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
		leasing, err := Build(v.Price, input, annualRate, Leasing)
		if err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
		options = append(options, Option{Vehicle: v, Financing: financing, Leasing: leasing})
	}
	return options, nil
}
