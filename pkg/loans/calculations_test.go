package loans

import (
	"math"
	"testing"

	"github.com/iwvelando/vehicle-finance/pkg/mathutil"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
)

func TestCalculateMonthlyPayment(t *testing.T) {
	tests := []struct {
		name          string
		principal     float64
		annualRate    float64
		termMonths    int
		expectedRange []float64 // [min, max] expected range
	}{
		{
			name:          "5-year car loan",
			principal:     27000,
			annualRate:    0.065,
			termMonths:    60,
			expectedRange: []float64{528.28, 528.29}, // Around $528.29
		},
		{
			name:          "Excellent credit",
			principal:     20000,
			annualRate:    0.05,
			termMonths:    60,
			expectedRange: []float64{377.42, 377.43},
		},
		{
			name:          "Zero interest loan",
			principal:     12000,
			annualRate:    0,
			termMonths:    60,
			expectedRange: []float64{200, 200},
		},
		{
			name:          "Nothing financed",
			principal:     0,
			annualRate:    0.08,
			termMonths:    60,
			expectedRange: []float64{0, 0},
		},
		{
			name:          "Down payment above price",
			principal:     -500,
			annualRate:    0.08,
			termMonths:    60,
			expectedRange: []float64{0, 0},
		},
		{
			name:          "Subprime loan",
			principal:     10000,
			annualRate:    0.18,
			termMonths:    36,
			expectedRange: []float64{361.52, 361.53}, // Around $361.52
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CalculateMonthlyPayment(tt.principal, tt.annualRate, tt.termMonths)
			if err != nil {
				t.Fatalf("CalculateMonthlyPayment() unexpected error = %v", err)
			}
			if result < tt.expectedRange[0] || result > tt.expectedRange[1] {
				t.Errorf("CalculateMonthlyPayment() = %.4f, expected range [%.2f, %.2f]",
					result, tt.expectedRange[0], tt.expectedRange[1])
			}
		})
	}
}

func TestCalculateMonthlyPaymentRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name       string
		principal  float64
		annualRate float64
		termMonths int
	}{
		{"Zero term", 10000, 0.05, 0},
		{"Negative term", 10000, 0.05, -12},
		{"Negative rate", 10000, -0.01, 60},
		{"NaN rate", 10000, math.NaN(), 60},
		{"Infinite rate", 10000, math.Inf(1), 60},
		{"NaN principal", math.NaN(), 0.05, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateMonthlyPayment(tt.principal, tt.annualRate, tt.termMonths)
			if err == nil {
				t.Fatalf("CalculateMonthlyPayment() expected error but got none")
			}
			if !validation.IsValidationError(err) {
				t.Errorf("CalculateMonthlyPayment() error = %v, expected a ValidationError", err)
			}
		})
	}
}

func TestAmortizeZeroRateIsExact(t *testing.T) {
	for _, principal := range []float64{1, 999.99, 27000, 31415.92} {
		for termYears := 1; termYears <= 8; termYears++ {
			result, err := Amortize(principal, 0, termYears)
			if err != nil {
				t.Fatalf("Amortize(%v, 0, %d) unexpected error = %v", principal, termYears, err)
			}
			if result.MonthlyPayment != principal/float64(termYears*12) {
				t.Errorf("Amortize(%v, 0, %d).MonthlyPayment = %v, expected %v",
					principal, termYears, result.MonthlyPayment, principal/float64(termYears*12))
			}
		}
	}
}

func TestAmortizeIsFiniteAndNonNegative(t *testing.T) {
	principals := []float64{0, 0.01, 500, 27000, 1e7}
	rates := []float64{0, 1e-12, 0.05, 0.18, 0.99}
	for _, principal := range principals {
		for _, rate := range rates {
			for _, termYears := range []int{1, 3, 5, 7} {
				result, err := Amortize(principal, rate, termYears)
				if err != nil {
					t.Fatalf("Amortize(%v, %v, %d) unexpected error = %v", principal, rate, termYears, err)
				}
				if result.MonthlyPayment < 0 || !mathutil.IsFinite(result.MonthlyPayment) {
					t.Errorf("Amortize(%v, %v, %d).MonthlyPayment = %v", principal, rate, termYears, result.MonthlyPayment)
				}
			}
		}
	}
}

func TestAmortizeScenario(t *testing.T) {
	result, err := Amortize(32000-5000, 0.065, 5)
	if err != nil {
		t.Fatalf("Amortize() unexpected error = %v", err)
	}
	if math.Abs(result.MonthlyPayment-528.29) > 0.01 {
		t.Errorf("MonthlyPayment = %.2f, expected about 528.29", result.MonthlyPayment)
	}
	if total := result.TotalCost + 5000; math.Abs(total-36697.16) > 0.01 {
		t.Errorf("TotalCost + down payment = %.2f, expected about 36697.16", total)
	}
}

func TestMaxPrincipalInvertsMonthlyPayment(t *testing.T) {
	tests := []struct {
		name       string
		principal  float64
		annualRate float64
		termMonths int
	}{
		{"Standard", 27000, 0.065, 60},
		{"Zero rate", 12000, 0, 48},
		{"Subprime", 8000, 0.18, 36},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monthly, err := CalculateMonthlyPayment(tt.principal, tt.annualRate, tt.termMonths)
			if err != nil {
				t.Fatalf("CalculateMonthlyPayment() unexpected error = %v", err)
			}
			got, err := MaxPrincipal(monthly, tt.annualRate, tt.termMonths)
			if err != nil {
				t.Fatalf("MaxPrincipal() unexpected error = %v", err)
			}
			if math.Abs(got-tt.principal) > 1e-6 {
				t.Errorf("MaxPrincipal() = %v, expected %v", got, tt.principal)
			}
		})
	}
}

func TestMaxPrincipalZeroRate(t *testing.T) {
	got, err := MaxPrincipal(250, 0, 60)
	if err != nil {
		t.Fatalf("MaxPrincipal() unexpected error = %v", err)
	}
	if got != 15000 {
		t.Errorf("MaxPrincipal(250, 0, 60) = %v, expected 15000", got)
	}
}

func TestCalculateInterestPayment(t *testing.T) {
	tests := []struct {
		name               string
		remainingPrincipal float64
		annualRate         float64
		expected           float64
	}{
		{"Car loan interest", 15000, 0.045, 56.25},
		{"Zero interest", 10000, 0, 0},
		{"High interest", 5000, 0.24, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateInterestPayment(tt.remainingPrincipal, tt.annualRate)
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("CalculateInterestPayment() = %.2f, expected %.2f", result, tt.expected)
			}
		})
	}
}

func TestGenerateSchedule(t *testing.T) {
	tests := []struct {
		name       string
		principal  float64
		annualRate float64
		termMonths int
	}{
		{"Standard", 27000, 0.065, 60},
		{"Zero rate", 10000, 0, 36},
		{"Short subprime", 4000, 0.18, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := GenerateSchedule(tt.principal, tt.annualRate, tt.termMonths)
			if err != nil {
				t.Fatalf("GenerateSchedule() unexpected error = %v", err)
			}
			if len(schedule) != tt.termMonths {
				t.Fatalf("GenerateSchedule() produced %d payments, expected %d", len(schedule), tt.termMonths)
			}

			monthly, _ := CalculateMonthlyPayment(tt.principal, tt.annualRate, tt.termMonths)
			var paidPrincipal, paidTotal float64
			previous := tt.principal
			for _, p := range schedule {
				if p.RemainingPrincipal > previous {
					t.Errorf("payment %d: remaining principal rose from %.2f to %.2f", p.Number, previous, p.RemainingPrincipal)
				}
				previous = p.RemainingPrincipal
				paidPrincipal += p.Principal
				paidTotal += p.Payment
			}

			if last := schedule[len(schedule)-1]; last.RemainingPrincipal != 0 {
				t.Errorf("final remaining principal = %.2f, expected 0", last.RemainingPrincipal)
			}
			if math.Abs(paidPrincipal-tt.principal) > 0.001 {
				t.Errorf("principal paid = %.2f, expected %.2f", paidPrincipal, tt.principal)
			}
			if math.Abs(paidTotal-monthly*float64(tt.termMonths)) > 0.01*float64(tt.termMonths) {
				t.Errorf("total paid = %.2f, expected within a cent per payment of %.2f",
					paidTotal, monthly*float64(tt.termMonths))
			}
		})
	}
}

func TestGenerateScheduleNothingFinanced(t *testing.T) {
	schedule, err := GenerateSchedule(0, 0.05, 60)
	if err != nil {
		t.Fatalf("GenerateSchedule() unexpected error = %v", err)
	}
	if len(schedule) != 0 {
		t.Errorf("GenerateSchedule() produced %d payments, expected none", len(schedule))
	}
}
