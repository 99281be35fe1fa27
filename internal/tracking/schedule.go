package tracking

import (
	"sort"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/pkg/datetime"
)

// PaymentEvent is one upcoming payment of an obligation.
type PaymentEvent struct {
	DueDate           time.Time `json:"dueDate"`
	LoanID            string    `json:"loanId"`
	VehicleID         string    `json:"vehicleId"`
	VehicleModel      string    `json:"vehicleModel,omitempty"`
	PlanType          plan.Type `json:"planType"`
	Amount            float64   `json:"amount"`
	PaymentsRemaining int       `json:"paymentsRemaining"`
	Color             string    `json:"color,omitempty"`
}

// DueDate returns the due date of payment monthIndex (0-based) of loan. A
// payment day past the end of the target month falls on its last day; the
// payment day itself never drifts.
func DueDate(loan ActiveLoan, monthIndex int) time.Time {
	return datetime.MonthDay(loan.LoanStartDate, monthIndex, loan.PaymentDayOfMonth)
}

// Schedule lists the payments of loans due on or after from's calendar date,
// ascending by due date. A non-zero horizon is an inclusive last calendar
// date; a zero horizon lists through the end of every term. Each call
// recomputes the schedule from scratch.
func Schedule(loans []ActiveLoan, from, horizon time.Time) []PaymentEvent {
	first := dateKey(from)
	last := -1
	if !horizon.IsZero() {
		last = dateKey(horizon)
		if last < first {
			return []PaymentEvent{}
		}
	}

	events := []PaymentEvent{}
	for _, loan := range loans {
		for monthIndex := 0; monthIndex < loan.LoanTermInMonths; monthIndex++ {
			due := DueDate(loan, monthIndex)
			key := dateKey(due)
			if key < first {
				continue
			}
			if last >= 0 && key > last {
				break
			}
			events = append(events, newEvent(loan, monthIndex, due))
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := dateKey(events[i].DueDate), dateKey(events[j].DueDate)
		if a != b {
			return a < b
		}
		return events[i].LoanID < events[j].LoanID
	})
	return events
}

// NextDue returns the first payment of loan due on or after now's calendar date.
func NextDue(loan ActiveLoan, now time.Time) (PaymentEvent, bool) {
	first := dateKey(now)
	for monthIndex := 0; monthIndex < loan.LoanTermInMonths; monthIndex++ {
		if due := DueDate(loan, monthIndex); dateKey(due) >= first {
			return newEvent(loan, monthIndex, due), true
		}
	}
	return PaymentEvent{}, false
}

func newEvent(loan ActiveLoan, monthIndex int, due time.Time) PaymentEvent {
	return PaymentEvent{
		DueDate:           due,
		LoanID:            loan.ID,
		VehicleID:         loan.VehicleID,
		VehicleModel:      loan.VehicleModel,
		PlanType:          loan.PlanType,
		Amount:            loan.MonthlyPayment,
		PaymentsRemaining: loan.LoanTermInMonths - monthIndex,
		Color:             loan.Color,
	}
}

// dateKey orders calendar dates as yyyymmdd in each time's own location.
func dateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
