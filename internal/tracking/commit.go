package tracking

import (
	"time"

	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/pkg/mathutil"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
)

// CommitResult is the outcome of Commit. When AlreadyCommitted is set, Loan is
// the obligation already in the portfolio and nothing new was created.
type CommitResult struct {
	Loan             ActiveLoan `json:"loan"`
	AlreadyCommitted bool       `json:"alreadyCommitted"`
}

// Commit converts a chosen plan for vehicle into a new obligation starting at
// now, paid on now's day of the month. existing is only read.
func Commit(p plan.VehiclePlan, vehicle plan.Vehicle, now time.Time, existing Portfolio) (CommitResult, error) {
	if p.IsZero() {
		return CommitResult{}, &validation.ValidationError{Field: "plan", Reason: "no plan selected"}
	}
	if vehicle.ID == "" {
		return CommitResult{}, &validation.ValidationError{Field: "vehicle", Reason: "missing vehicle id"}
	}
	if err := checkPlan(p); err != nil {
		return CommitResult{}, err
	}

	id := LoanID(vehicle.ID, p.Type())
	if loan, ok := existing[id]; ok {
		return CommitResult{Loan: loan.Clone(), AlreadyCommitted: true}, nil
	}

	loan := ActiveLoan{
		ID:                id,
		VehicleID:         vehicle.ID,
		VehicleModel:      vehicle.Model,
		VehicleImage:      vehicle.Image,
		PlanType:          p.Type(),
		Plan:              p,
		LoanStartDate:     now,
		PaymentDayOfMonth: now.Day(),
		Color:             Palette[len(existing)%len(Palette)],
	}

	plan.Fold(p,
		func(f plan.FinancingPlan) struct{} {
			initial := f.LoanAmount
			loan.MonthlyPayment = f.MonthlyPayment
			loan.TotalCost = f.TotalCost
			loan.LoanTermInMonths = f.TermYears * 12
			loan.AmountLeft = f.LoanAmount
			loan.InitialLoanAmount = &initial
			return struct{}{}
		},
		func(l plan.LeasingPlan) struct{} {
			loan.MonthlyPayment = l.MonthlyPayment
			loan.TotalCost = mathutil.Round(l.DueAtSigning + l.MonthlyPayment*float64(l.TermMonths-1))
			loan.LoanTermInMonths = l.TermMonths
			return struct{}{}
		},
	)

	return CommitResult{Loan: loan}, nil
}

// checkPlan rejects plans whose figures could not have come from plan.Build:
// a term under one period, a negative currency field, or a financed balance
// with no monthly payment to retire it.
func checkPlan(p plan.VehiclePlan) error {
	return plan.Fold(p,
		func(f plan.FinancingPlan) error {
			if err := validation.Term("termYears", f.TermYears); err != nil {
				return err
			}
			for _, field := range []struct {
				name  string
				value float64
			}{
				{"loanAmount", f.LoanAmount},
				{"downPayment", f.DownPayment},
				{"monthlyPayment", f.MonthlyPayment},
				{"totalCost", f.TotalCost},
			} {
				if err := validation.Amount(field.name, field.value); err != nil {
					return err
				}
			}
			if f.LoanAmount > 0 && mathutil.Round(f.MonthlyPayment) <= 0 {
				return &validation.ValidationError{Field: "monthlyPayment", Reason: "must be positive when a balance is financed"}
			}
			return nil
		},
		func(l plan.LeasingPlan) error {
			if err := validation.Term("term", l.TermMonths); err != nil {
				return err
			}
			for _, field := range []struct {
				name  string
				value float64
			}{
				{"monthlyPayment", l.MonthlyPayment},
				{"dueAtSigning", l.DueAtSigning},
				{"downPayment", l.DownPayment},
			} {
				if err := validation.Amount(field.name, field.value); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
