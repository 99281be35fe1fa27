// Package loans provides fixed-rate, fixed-term amortization math.
//
// Rates are annual fractions (0.065 for 6.5%). Every function guards the
// annuity formula against a zero periodic rate, which would otherwise divide
// by zero, and rejects input that would make the result non-finite.
package loans

import (
	"math"

	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/mathutil"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
)

// Amortization is the result of financing a principal. TotalCost covers the
// principal and interest only; any down payment is added by the caller.
type Amortization struct {
	MonthlyPayment float64
	TotalCost      float64
}

// Payment holds the values for a given payment.
type Payment struct {
	Number             int
	Payment            float64
	Principal          float64
	Interest           float64
	RemainingPrincipal float64
}

// Amortize computes the level monthly payment and total of payments for
// principal financed at annualRate over termYears.
func Amortize(principal, annualRate float64, termYears int) (Amortization, error) {
	if err := validation.Term("termYears", termYears); err != nil {
		return Amortization{}, err
	}
	termMonths := termYears * constants.MonthsPerYear
	monthly, err := CalculateMonthlyPayment(principal, annualRate, termMonths)
	if err != nil {
		return Amortization{}, err
	}
	return Amortization{
		MonthlyPayment: monthly,
		TotalCost:      monthly * float64(termMonths),
	}, nil
}

// CalculateMonthlyPayment calculates the monthly payment for a loan using the
// standard amortization formula. A principal at or below zero costs nothing.
func CalculateMonthlyPayment(principal, annualRate float64, termMonths int) (float64, error) {
	if err := checkInputs("principal", principal, annualRate, termMonths); err != nil {
		return 0, err
	}
	if principal <= 0 {
		return 0, nil
	}

	n := float64(termMonths)
	i := annualRate / constants.MonthsPerYear
	if i == 0 {
		return principal / n, nil
	}

	growth := math.Pow(1+i, n)
	denominator := growth - 1
	if denominator == 0 {
		return 0, &validation.ValidationError{Field: "annualRate", Reason: "too small to amortize"}
	}
	monthly := principal * (i * growth) / denominator
	if err := validation.Finite("monthlyPayment", monthly); err != nil {
		return 0, err
	}
	return monthly, nil
}

// MaxPrincipal inverts the annuity formula: it returns the largest principal
// that monthlyPayment retires at annualRate over termMonths.
func MaxPrincipal(monthlyPayment, annualRate float64, termMonths int) (float64, error) {
	if err := checkInputs("monthlyPayment", monthlyPayment, annualRate, termMonths); err != nil {
		return 0, err
	}
	if monthlyPayment <= 0 {
		return 0, nil
	}

	n := float64(termMonths)
	i := annualRate / constants.MonthsPerYear
	if i == 0 {
		return monthlyPayment * n, nil
	}

	growth := math.Pow(1+i, n)
	numerator := i * growth
	if numerator == 0 {
		return 0, &validation.ValidationError{Field: "annualRate", Reason: "too small to amortize"}
	}
	principal := monthlyPayment * (growth - 1) / numerator
	if err := validation.Finite("maxPrincipal", principal); err != nil {
		return 0, err
	}
	return principal, nil
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(remainingPrincipal, annualRate float64) float64 {
	return remainingPrincipal * annualRate / constants.MonthsPerYear
}

// GenerateSchedule breaks a financed principal into its monthly payments in
// cents. The final payment absorbs accumulated rounding so that the remaining
// principal ends at exactly zero.
func GenerateSchedule(principal, annualRate float64, termMonths int) ([]Payment, error) {
	monthly, err := CalculateMonthlyPayment(principal, annualRate, termMonths)
	if err != nil {
		return nil, err
	}
	if principal <= 0 {
		return nil, nil
	}

	monthly = mathutil.Round(monthly)
	remaining := mathutil.Round(principal)
	schedule := make([]Payment, 0, termMonths)
	for month := 1; month <= termMonths; month++ {
		interest := mathutil.Round(CalculateInterestPayment(remaining, annualRate))
		toPrincipal := mathutil.Round(monthly - interest)
		if month == termMonths || toPrincipal >= remaining {
			toPrincipal = remaining
		}
		remaining = mathutil.Round(remaining - toPrincipal)
		schedule = append(schedule, Payment{
			Number:             month,
			Payment:            mathutil.Round(toPrincipal + interest),
			Principal:          toPrincipal,
			Interest:           interest,
			RemainingPrincipal: remaining,
		})
		if remaining == 0 {
			break
		}
	}
	return schedule, nil
}

func checkInputs(field string, amount, annualRate float64, termMonths int) error {
	if !mathutil.IsFinite(amount) {
		return &validation.ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if err := validation.Rate("annualRate", annualRate); err != nil {
		return err
	}
	return validation.Term("termMonths", termMonths)
}
