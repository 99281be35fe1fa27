// Package tracking turns a chosen plan into a tracked obligation and answers
// questions about it over time: what is due and when, how a payment changes
// it, and whether it is current.
//
// Every function takes "now" from its caller and returns new values; none of
// them keep references to the loans they are given.
package tracking

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/vehicle-finance/internal/plan"
)

// loanNamespace seeds the name-based UUIDs that identify obligations.
var loanNamespace = uuid.MustParse("6f1d7c2e-7b43-5a8e-9c1f-2d4b8e0a6c35")

// Palette holds the display colors handed out to obligations in commit order.
var Palette = []string{
	"#2563eb", "#16a34a", "#dc2626", "#9333ea",
	"#ea580c", "#0891b2", "#ca8a04", "#db2777",
}

// ActiveLoan is a committed plan under repayment.
//
// AmountLeft and InitialLoanAmount only apply to financing; a nil
// InitialLoanAmount means the original principal is unknown.
// LastPaymentMonth only applies to leasing and holds year*100+month of the
// most recent paid period, or 0 when nothing was paid yet.
type ActiveLoan struct {
	ID                string           `json:"id"`
	VehicleID         string           `json:"vehicleId"`
	VehicleModel      string           `json:"vehicleModel,omitempty"`
	VehicleImage      string           `json:"vehicleImage,omitempty"`
	PlanType          plan.Type        `json:"planType"`
	Plan              plan.VehiclePlan `json:"plan"`
	MonthlyPayment    float64          `json:"monthlyPayment"`
	TotalCost         float64          `json:"totalCost"`
	LoanStartDate     time.Time        `json:"loanStartDate"`
	LoanTermInMonths  int              `json:"loanTermInMonths"`
	PaymentDayOfMonth int              `json:"paymentDayOfMonth"`
	AmountLeft        float64          `json:"amountLeft"`
	InitialLoanAmount *float64         `json:"initialLoanAmount,omitempty"`
	LastPaymentMonth  int              `json:"lastPaymentMonth,omitempty"`
	Color             string           `json:"color"`
}

// Portfolio is a user's obligations indexed by identity.
type Portfolio map[string]ActiveLoan

// LoanID returns the stable identity of the obligation created by committing
// a plan of planType for vehicleID.
func LoanID(vehicleID string, planType plan.Type) string {
	return uuid.NewSHA1(loanNamespace, []byte(vehicleID+"|"+string(planType))).String()
}

// Sorted returns the obligations ordered by start date, then identity.
func (p Portfolio) Sorted() []ActiveLoan {
	out := make([]ActiveLoan, 0, len(p))
	for _, loan := range p {
		out = append(out, loan)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LoanStartDate.Equal(out[j].LoanStartDate) {
			return out[i].LoanStartDate.Before(out[j].LoanStartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Clone returns a copy of the portfolio that shares no state with p.
func (p Portfolio) Clone() Portfolio {
	out := make(Portfolio, len(p))
	for id, loan := range p {
		out[id] = loan.Clone()
	}
	return out
}

// Clone returns a copy of l that shares no state with it.
func (l ActiveLoan) Clone() ActiveLoan {
	if l.InitialLoanAmount != nil {
		initial := *l.InitialLoanAmount
		l.InitialLoanAmount = &initial
	}
	return l
}
