package tracking

import (
	"time"

	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/pkg/datetime"
)

// paymentsMadeTolerance absorbs cent rounding when payments made is
// estimated from the balance.
const paymentsMadeTolerance = 1e-6

// LoanStatus summarises where an obligation stands at a point in time.
type LoanStatus struct {
	LoanID                string     `json:"loanId"`
	VehicleID             string     `json:"vehicleId"`
	PlanType              plan.Type  `json:"planType"`
	OnTrack               bool       `json:"onTrack"`
	PaidOff               bool       `json:"paidOff"`
	PaymentsDue           int        `json:"paymentsDue"`
	EstimatedPaymentsMade float64    `json:"estimatedPaymentsMade"`
	AmountLeft            float64    `json:"amountLeft"`
	LastPaymentMonth      int        `json:"lastPaymentMonth,omitempty"`
	NextDueDate           *time.Time `json:"nextDueDate,omitempty"`
	PaymentsRemaining     int        `json:"paymentsRemaining"`
}

// IsOnTrack reports whether loan's recorded payments keep up with the time
// elapsed since it started.
//
// A lease is current when this month is paid, or when it started this month
// and its first payment day has not come yet. A financed loan is current
// when it is paid off, when its progress cannot be measured, or when it is
// at most one payment behind.
func IsOnTrack(loan ActiveLoan, now time.Time) bool {
	switch loan.PlanType {
	case plan.Leasing:
		if loan.LastPaymentMonth == datetime.YearMonth(now) {
			return true
		}
		return datetime.SameMonth(loan.LoanStartDate, now) && now.Day() < loan.PaymentDayOfMonth
	case plan.Financing:
		if loan.AmountLeft <= 0 || loan.InitialLoanAmount == nil || loan.MonthlyPayment <= 0 {
			return true
		}
		return estimatedPaymentsMade(loan)+paymentsMadeTolerance >= float64(paymentsDue(loan, now)-1)
	}
	return false
}

// Status reports the standing of loan at now.
func Status(loan ActiveLoan, now time.Time) LoanStatus {
	status := LoanStatus{
		LoanID:           loan.ID,
		VehicleID:        loan.VehicleID,
		PlanType:         loan.PlanType,
		OnTrack:          IsOnTrack(loan, now),
		PaymentsDue:      paymentsDue(loan, now),
		AmountLeft:       loan.AmountLeft,
		LastPaymentMonth: loan.LastPaymentMonth,
	}
	if loan.PlanType == plan.Financing {
		status.PaidOff = loan.AmountLeft <= 0
		if loan.InitialLoanAmount != nil && loan.MonthlyPayment > 0 {
			status.EstimatedPaymentsMade = estimatedPaymentsMade(loan)
		}
	}
	if !status.PaidOff {
		if next, ok := NextDue(loan, now); ok {
			due := next.DueDate
			status.NextDueDate = &due
			status.PaymentsRemaining = next.PaymentsRemaining
		}
	}
	return status
}

// paymentsDue counts the due dates on or before now. The payment day is
// clamped to the length of now's month, as in the schedule.
func paymentsDue(loan ActiveLoan, now time.Time) int {
	due := datetime.MonthsBetween(loan.LoanStartDate, now)
	day := loan.PaymentDayOfMonth
	if last := datetime.DaysIn(now.Year(), now.Month()); day > last {
		day = last
	}
	if now.Day() >= day {
		due++
	}
	if due < 0 {
		return 0
	}
	return due
}

func estimatedPaymentsMade(loan ActiveLoan) float64 {
	return (*loan.InitialLoanAmount - loan.AmountLeft) / loan.MonthlyPayment
}
