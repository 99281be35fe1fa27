// Package plan builds financing and leasing plans for a vehicle.
//
// VehiclePlan is a closed two-case variant. Its fields are unexported so a
// plan can only be made through NewFinancing or NewLeasing, and consumers
// read it through Fold, which requires a handler for both cases.
package plan

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the two kinds of plan.
type Type string

const (
	// Financing is a fixed-rate, fixed-term purchase loan.
	Financing Type = "financing"
	// Leasing is a fixed-term lease.
	Leasing Type = "leasing"
)

// ParseType parses a plan type name.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Financing, Leasing:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown plan type %q, expected %s or %s", s, Financing, Leasing)
}

// UserInput is what a buyer tells us about themselves.
type UserInput struct {
	Income        float64 `json:"income" yaml:"income"`
	CreditScore   int     `json:"creditScore" yaml:"creditScore"`
	DownPayment   float64 `json:"downPayment" yaml:"downPayment"`
	LoanTermYears int     `json:"loanTermYears" yaml:"loanTermYears"`
	MinSeats      int     `json:"minSeats" yaml:"minSeats"`
	Preferences   string  `json:"preferences,omitempty" yaml:"preferences,omitempty"`
}

// Vehicle is a priced vehicle from the catalog. Image is passed through untouched.
type Vehicle struct {
	ID    string  `json:"id" yaml:"id"`
	Model string  `json:"model" yaml:"model"`
	Price float64 `json:"price" yaml:"price"`
	Seats int     `json:"seats,omitempty" yaml:"seats,omitempty"`
	Image string  `json:"image,omitempty" yaml:"image,omitempty"`
}

// FinancingPlan is the financing case of a VehiclePlan. TotalCost includes
// the down payment.
type FinancingPlan struct {
	LoanAmount     float64 `json:"loanAmount"`
	DownPayment    float64 `json:"downPayment"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalCost      float64 `json:"totalCost"`
	AnnualRate     float64 `json:"annualRate"`
	TermYears      int     `json:"termYears"`
}

// LeasingPlan is the leasing case of a VehiclePlan.
type LeasingPlan struct {
	MonthlyPayment float64 `json:"monthlyPayment"`
	DueAtSigning   float64 `json:"dueAtSigning"`
	TermMonths     int     `json:"term"`
	MoneyFactor    float64 `json:"moneyFactor"`
	ResidualValue  float64 `json:"residualValue"`
	AnnualRate     float64 `json:"annualRate"`
	DownPayment    float64 `json:"downPayment"`
}

// VehiclePlan is either a FinancingPlan or a LeasingPlan.
type VehiclePlan struct {
	kind      Type
	financing FinancingPlan
	leasing   LeasingPlan
}

// NewFinancing wraps a financing plan.
func NewFinancing(p FinancingPlan) VehiclePlan {
	return VehiclePlan{kind: Financing, financing: p}
}

// NewLeasing wraps a leasing plan.
func NewLeasing(p LeasingPlan) VehiclePlan {
	return VehiclePlan{kind: Leasing, leasing: p}
}

// Type returns which case the plan holds, or "" for the zero VehiclePlan.
func (p VehiclePlan) Type() Type {
	return p.kind
}

// IsZero reports whether p was never built.
func (p VehiclePlan) IsZero() bool {
	return p.kind == ""
}

// Financing returns the financing case and whether p holds it.
func (p VehiclePlan) Financing() (FinancingPlan, bool) {
	return p.financing, p.kind == Financing
}

// Leasing returns the leasing case and whether p holds it.
func (p VehiclePlan) Leasing() (LeasingPlan, bool) {
	return p.leasing, p.kind == Leasing
}

// Fold applies onFinancing or onLeasing to the case p holds. It panics on
// the zero VehiclePlan.
func Fold[T any](p VehiclePlan, onFinancing func(FinancingPlan) T, onLeasing func(LeasingPlan) T) T {
	switch p.kind {
	case Financing:
		return onFinancing(p.financing)
	case Leasing:
		return onLeasing(p.leasing)
	}
	panic("plan: Fold on a zero VehiclePlan")
}

// MonthlyPayment returns the recurring payment of either case.
func (p VehiclePlan) MonthlyPayment() float64 {
	return Fold(p,
		func(f FinancingPlan) float64 { return f.MonthlyPayment },
		func(l LeasingPlan) float64 { return l.MonthlyPayment },
	)
}

// TermMonths returns the number of monthly payments of either case.
func (p VehiclePlan) TermMonths() int {
	return Fold(p,
		func(f FinancingPlan) int { return f.TermYears * 12 },
		func(l LeasingPlan) int { return l.TermMonths },
	)
}

type planJSON struct {
	Type      Type           `json:"type"`
	Financing *FinancingPlan `json:"financing,omitempty"`
	Leasing   *LeasingPlan   `json:"leasing,omitempty"`
}

// MarshalJSON encodes the plan as {"type": ..., "<type>": {...}}.
func (p VehiclePlan) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	out := planJSON{Type: p.kind}
	switch p.kind {
	case Financing:
		f := p.financing
		out.Financing = &f
	case Leasing:
		l := p.leasing
		out.Leasing = &l
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (p *VehiclePlan) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = VehiclePlan{}
		return nil
	}
	var in planJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Type {
	case Financing:
		if in.Financing == nil {
			return fmt.Errorf("financing plan without financing details")
		}
		*p = NewFinancing(*in.Financing)
	case Leasing:
		if in.Leasing == nil {
			return fmt.Errorf("leasing plan without leasing details")
		}
		*p = NewLeasing(*in.Leasing)
	default:
		return fmt.Errorf("unknown plan type %q", in.Type)
	}
	return nil
}
