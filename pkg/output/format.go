// Package output renders plans, schedules and loan standings as tables.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/internal/tracking"
	"github.com/iwvelando/vehicle-finance/pkg/affordability"
	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/format"
	"github.com/iwvelando/vehicle-finance/pkg/loans"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

func vehicleName(v plan.Vehicle) string {
	if v.Model != "" {
		return v.Model
	}
	return v.ID
}

// PrettyRange writes the affordable price range.
func PrettyRange(w io.Writer, r affordability.Range) {
	p := printer()
	_, _ = p.Fprintf(w, "Comfortable price range: $%.2f - $%.2f\n", r.Min, r.Max)
}

// PrettyPlans writes a human-readable rather than machine-readable table
// with one row per vehicle and plan type.
func PrettyPlans(w io.Writer, options []plan.Option) {
	p := printer()
	_, _ = fmt.Fprintf(w, "%-24s | %-9s | %12s | %12s | %12s | %s\n", "Vehicle", "Plan", "Price", "Monthly", "Upfront", "Details")
	_, _ = fmt.Fprintf(w, "%-24s | %-9s | %12s | %12s | %12s | %s\n", "_______", "____", "_____", "_______", "_______", "_______")
	for _, option := range options {
		name := vehicleName(option.Vehicle)
		for _, vp := range []plan.VehiclePlan{option.Financing, option.Leasing} {
			if vp.IsZero() {
				continue
			}
			cols := plan.Fold(vp,
				func(f plan.FinancingPlan) [2]string {
					return [2]string{
						p.Sprintf("$%.2f", f.DownPayment),
						p.Sprintf("%d yrs at %s, $%.2f total", f.TermYears, format.Percent(f.AnnualRate), f.TotalCost),
					}
				},
				func(l plan.LeasingPlan) [2]string {
					return [2]string{
						p.Sprintf("$%.2f", l.DueAtSigning),
						p.Sprintf("%d mos, MF %s, residual $%.2f", l.TermMonths, format.MoneyFactor(l.MoneyFactor), l.ResidualValue),
					}
				},
			)
			upfront, details := cols[0], cols[1]
			_, _ = fmt.Fprintf(w, "%-24s | %-9s | %12s | %12s | %12s | %s\n",
				name, vp.Type(), p.Sprintf("$%.2f", option.Vehicle.Price), p.Sprintf("$%.2f", vp.MonthlyPayment()), upfront, details)
		}
	}
}

// CsvPlans writes the plans in comma-separated value format.
func CsvPlans(w io.Writer, options []plan.Option) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"vehicle", "model", "plan", "price", "monthly", "upfront", "term months", "total cost"})
	for _, option := range options {
		for _, vp := range []plan.VehiclePlan{option.Financing, option.Leasing} {
			if vp.IsZero() {
				continue
			}
			amounts := plan.Fold(vp,
				func(f plan.FinancingPlan) [2]float64 { return [2]float64{f.DownPayment, f.TotalCost} },
				func(l plan.LeasingPlan) [2]float64 {
					return [2]float64{l.DueAtSigning, l.DueAtSigning + l.MonthlyPayment*float64(l.TermMonths-1)}
				},
			)
			upfront, total := amounts[0], amounts[1]
			_ = cw.Write([]string{
				option.Vehicle.ID,
				option.Vehicle.Model,
				string(vp.Type()),
				money(option.Vehicle.Price),
				money(vp.MonthlyPayment()),
				money(upfront),
				strconv.Itoa(vp.TermMonths()),
				money(total),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}

// PrettySchedule writes upcoming payments, one line per due date and loan.
func PrettySchedule(w io.Writer, events []tracking.PaymentEvent) {
	if len(events) == 0 {
		_, _ = fmt.Fprintln(w, "No payments due in this window.")
		return
	}
	p := printer()
	var total float64
	_, _ = fmt.Fprintf(w, "%-10s | %-24s | %-9s | %12s | %s\n", "Due", "Vehicle", "Plan", "Amount", "Remaining")
	_, _ = fmt.Fprintf(w, "%-10s | %-24s | %-9s | %12s | %s\n", "___", "_______", "____", "______", "_________")
	for _, event := range events {
		name := event.VehicleModel
		if name == "" {
			name = event.VehicleID
		}
		_, _ = fmt.Fprintf(w, "%-10s | %-24s | %-9s | %12s | %d\n",
			event.DueDate.Format(constants.DateLayout), name, event.PlanType, p.Sprintf("$%.2f", event.Amount), event.PaymentsRemaining)
		total += event.Amount
	}
	_, _ = p.Fprintf(w, "Total due: $%.2f across %d payments\n", total, len(events))
}

// CsvSchedule writes upcoming payments in comma-separated value format.
func CsvSchedule(w io.Writer, events []tracking.PaymentEvent) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"due", "loan", "vehicle", "plan", "amount", "payments remaining"})
	for _, event := range events {
		_ = cw.Write([]string{
			event.DueDate.Format(constants.DateLayout),
			event.LoanID,
			event.VehicleID,
			string(event.PlanType),
			money(event.Amount),
			strconv.Itoa(event.PaymentsRemaining),
		})
	}
	cw.Flush()
	return cw.Error()
}

// PrettyStatuses writes where each loan stands.
func PrettyStatuses(w io.Writer, statuses []tracking.LoanStatus) {
	p := printer()
	for _, status := range statuses {
		state := "on track"
		switch {
		case status.PaidOff:
			state = "paid off"
		case !status.OnTrack:
			state = "behind"
		}
		_, _ = fmt.Fprintf(w, "%s (%s, %s): %s", status.VehicleID, status.PlanType, status.LoanID, state)
		if status.PlanType == plan.Financing && !status.PaidOff {
			_, _ = p.Fprintf(w, ", $%.2f left", status.AmountLeft)
		}
		if status.PlanType == plan.Leasing && status.LastPaymentMonth > 0 {
			paid := time.Date(status.LastPaymentMonth/100, time.Month(status.LastPaymentMonth%100), 1, 0, 0, 0, 0, time.UTC)
			_, _ = fmt.Fprintf(w, ", last paid %s", paid.Format(constants.MonthLayout))
		}
		if status.NextDueDate != nil {
			_, _ = fmt.Fprintf(w, ", next due %s", status.NextDueDate.Format(constants.DateLayout))
		}
		_, _ = fmt.Fprintln(w)
	}
}

// PrettyAmortization writes the month-by-month breakdown of a financed loan.
func PrettyAmortization(w io.Writer, payments []loans.Payment) {
	p := printer()
	_, _ = fmt.Fprintf(w, "%5s | %12s | %12s | %12s | %14s\n", "Month", "Payment", "Principal", "Interest", "Remaining")
	_, _ = fmt.Fprintf(w, "%5s | %12s | %12s | %12s | %14s\n", "_____", "_______", "_________", "________", "_________")
	for _, payment := range payments {
		_, _ = fmt.Fprintf(w, "%5d | %12s | %12s | %12s | %14s\n",
			payment.Number,
			p.Sprintf("$%.2f", payment.Payment),
			p.Sprintf("$%.2f", payment.Principal),
			p.Sprintf("$%.2f", payment.Interest),
			p.Sprintf("$%.2f", payment.RemainingPrincipal),
		)
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
