package tracking

import (
	"fmt"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/pkg/datetime"
	"github.com/iwvelando/vehicle-finance/pkg/format"
	"github.com/iwvelando/vehicle-finance/pkg/mathutil"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
)

// ApplyPayment returns loan updated by a payment of amount made at now. On
// error the returned loan is the zero value and loan itself is unchanged.
//
// A financing payment reduces the remaining balance and may not exceed it.
// A leasing payment marks now's calendar month paid, whatever its amount,
// and may be made once per month.
func ApplyPayment(loan ActiveLoan, amount float64, now time.Time) (ActiveLoan, error) {
	if !mathutil.IsFinite(amount) || mathutil.Round(amount) <= 0 {
		return ActiveLoan{}, validation.InvalidPayment("amount must be positive, got %v", amount)
	}

	updated := loan.Clone()
	switch loan.PlanType {
	case plan.Financing:
		if mathutil.Round(amount) > mathutil.Round(loan.AmountLeft) {
			return ActiveLoan{}, validation.InvalidPayment("%s exceeds the remaining balance of %s",
				format.Currency(amount), format.Currency(loan.AmountLeft))
		}
		left := mathutil.Round(loan.AmountLeft - amount)
		if mathutil.IsZero(left) {
			left = 0
		}
		updated.AmountLeft = mathutil.ClampNonNegative(left)
	case plan.Leasing:
		period := datetime.YearMonth(now)
		if loan.LastPaymentMonth == period {
			return ActiveLoan{}, validation.ErrPeriodAlreadyPaid
		}
		updated.LastPaymentMonth = period
	default:
		return ActiveLoan{}, &validation.ValidationError{Field: "planType", Reason: fmt.Sprintf("unknown plan type %q", loan.PlanType)}
	}
	return updated, nil
}
