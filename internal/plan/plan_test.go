package plan

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/iwvelando/vehicle-finance/pkg/validation"
)

func TestBuildFinancingScenario(t *testing.T) {
	input := UserInput{Income: 85000, CreditScore: 720, DownPayment: 5000, LoanTermYears: 5}
	p, err := Build(32000, input, 0.065, Financing)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}
	if p.Type() != Financing {
		t.Fatalf("Build() type = %s, expected financing", p.Type())
	}

	f, _ := p.Financing()
	if f.LoanAmount != 27000 {
		t.Errorf("LoanAmount = %.2f, expected 27000", f.LoanAmount)
	}
	if f.MonthlyPayment != 528.29 {
		t.Errorf("MonthlyPayment = %.2f, expected 528.29", f.MonthlyPayment)
	}
	if math.Abs(f.TotalCost-(528.29*60+5000)) > 0.005 {
		t.Errorf("TotalCost = %.2f, expected %.2f", f.TotalCost, 528.29*60+5000)
	}
	if p.TermMonths() != 60 {
		t.Errorf("TermMonths() = %d, expected 60", p.TermMonths())
	}
}

func TestBuildLeasingScenario(t *testing.T) {
	input := UserInput{DownPayment: 3000, LoanTermYears: 5}
	p, err := Build(28000, input, 0.05, Leasing)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}

	l, ok := p.Leasing()
	if !ok {
		t.Fatalf("Build() type = %s, expected leasing", p.Type())
	}
	if l.ResidualValue != 15400 {
		t.Errorf("ResidualValue = %.2f, expected 15400", l.ResidualValue)
	}
	if l.TermMonths != 36 {
		t.Errorf("TermMonths = %d, expected 36", l.TermMonths)
	}
	if l.MonthlyPayment != 267.51 {
		t.Errorf("MonthlyPayment = %.2f, expected 267.51", l.MonthlyPayment)
	}
	if l.DueAtSigning != 3267.51 {
		t.Errorf("DueAtSigning = %.2f, expected 3267.51", l.DueAtSigning)
	}
}

func TestBuildDownPaymentAbovePrice(t *testing.T) {
	input := UserInput{DownPayment: 40000, LoanTermYears: 3}
	p, err := Build(30000, input, 0.08, Financing)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}
	f, _ := p.Financing()
	if f.LoanAmount != 0 || f.MonthlyPayment != 0 {
		t.Errorf("expected nothing financed, got %+v", f)
	}
	if f.TotalCost != 40000 {
		t.Errorf("TotalCost = %.2f, expected the down payment 40000", f.TotalCost)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	input := UserInput{Income: 70000, CreditScore: 640, DownPayment: 2500, LoanTermYears: 6}
	for _, planType := range []Type{Financing, Leasing} {
		first, err := Build(41999.99, input, 0.12, planType)
		if err != nil {
			t.Fatalf("Build() unexpected error = %v", err)
		}
		second, err := Build(41999.99, input, 0.12, planType)
		if err != nil {
			t.Fatalf("Build() unexpected error = %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Build(%s) not deterministic: %+v != %+v", planType, first, second)
		}
	}
}

func TestBuildRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		input    UserInput
		rate     float64
		planType Type
	}{
		{"Negative price", -1, UserInput{LoanTermYears: 5}, 0.05, Financing},
		{"Zero term financing", 20000, UserInput{LoanTermYears: 0}, 0.05, Financing},
		{"Negative term financing", 20000, UserInput{LoanTermYears: -2}, 0.05, Financing},
		{"NaN rate", 20000, UserInput{LoanTermYears: 5}, math.NaN(), Leasing},
		{"Negative down payment", 20000, UserInput{DownPayment: -1, LoanTermYears: 5}, 0.05, Leasing},
		{"Unknown plan type", 20000, UserInput{LoanTermYears: 5}, 0.05, Type("rent")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.price, tt.input, tt.rate, tt.planType)
			if !validation.IsValidationError(err) {
				t.Errorf("Build() error = %v, expected a ValidationError", err)
			}
		})
	}
}

func TestBuildLeasingIgnoresLoanTerm(t *testing.T) {
	p, err := Build(30000, UserInput{LoanTermYears: 0}, 0.05, Leasing)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}
	if p.TermMonths() != 36 {
		t.Errorf("TermMonths() = %d, expected 36", p.TermMonths())
	}
}

func TestBuildAll(t *testing.T) {
	vehicles := []Vehicle{
		{ID: "civic", Model: "Civic", Price: 26000, Seats: 5},
		{ID: "miata", Model: "MX-5", Price: 31000, Seats: 2},
		{ID: "odyssey", Model: "Odyssey", Price: 42000, Seats: 8},
		{ID: "unknown", Model: "Mystery", Price: 15000},
	}
	input := UserInput{CreditScore: 765, DownPayment: 4000, LoanTermYears: 5, MinSeats: 4}

	options, err := BuildAll(vehicles, input)
	if err != nil {
		t.Fatalf("BuildAll() unexpected error = %v", err)
	}

	var ids []string
	for _, o := range options {
		ids = append(ids, o.Vehicle.ID)
		f, ok := o.Financing.Financing()
		if !ok || f.AnnualRate != 0.05 {
			t.Errorf("%s: expected financing at 5%%, got %+v", o.Vehicle.ID, f)
		}
		if o.Leasing.Type() != Leasing {
			t.Errorf("%s: expected a leasing plan", o.Vehicle.ID)
		}
	}
	if !reflect.DeepEqual(ids, []string{"civic", "odyssey", "unknown"}) {
		t.Errorf("BuildAll() vehicles = %v", ids)
	}
}

func TestVehiclePlanJSON(t *testing.T) {
	original, err := Build(28000, UserInput{DownPayment: 3000, LoanTermYears: 4}, 0.065, Financing)
	if err != nil {
		t.Fatalf("Build() unexpected error = %v", err)
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() unexpected error = %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() unexpected error = %v", err)
	}
	if raw["type"] != "financing" || raw["leasing"] != nil {
		t.Errorf("unexpected JSON shape: %s", data)
	}

	var decoded VehiclePlan
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() unexpected error = %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("decoded plan %+v differs from %+v", decoded, original)
	}
}

func TestVehiclePlanJSONRejectsUnknownType(t *testing.T) {
	var p VehiclePlan
	if err := json.Unmarshal([]byte(`{"type":"rent"}`), &p); err == nil {
		t.Errorf("expected error for unknown plan type")
	}
	if err := json.Unmarshal([]byte(`{"type":"leasing"}`), &p); err == nil {
		t.Errorf("expected error for leasing plan without details")
	}
}

func TestFoldPanicsOnZeroPlan(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected Fold to panic on a zero plan")
		}
	}()
	VehiclePlan{}.MonthlyPayment()
}

func TestParseType(t *testing.T) {
	if got, err := ParseType("leasing"); err != nil || got != Leasing {
		t.Errorf("ParseType(leasing) = %v, %v", got, err)
	}
	if _, err := ParseType("Leasing"); err == nil {
		t.Errorf("ParseType(Leasing) expected error")
	}
}
