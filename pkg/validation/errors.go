package validation

import (
	"errors"
	"fmt"

	"github.com/iwvelando/vehicle-finance/pkg/mathutil"
)

// ErrInvalidPaymentAmount is returned when a payment is not positive or
// exceeds the remaining balance of a financed obligation.
var ErrInvalidPaymentAmount = errors.New("invalid payment amount")

// ErrPeriodAlreadyPaid is returned when a lease payment was already recorded
// for the current calendar month. It matches ErrInvalidPaymentAmount.
var ErrPeriodAlreadyPaid = fmt.Errorf("%w: payment already recorded for this period", ErrInvalidPaymentAmount)

// ValidationError reports malformed numeric input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvalidPayment wraps ErrInvalidPaymentAmount with a reason.
func InvalidPayment(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidPaymentAmount, fmt.Sprintf(format, args...))
}

// Amount checks that a currency input is finite and not negative.
func Amount(field string, value float64) error {
	if !mathutil.IsFinite(value) {
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if value < 0 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must not be negative, got %.2f", value)}
	}
	return nil
}

// Rate checks that an annual rate is finite and not negative.
func Rate(field string, value float64) error {
	if !mathutil.IsFinite(value) {
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if value < 0 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must not be negative, got %g", value)}
	}
	return nil
}

// Term checks that a term is at least one period.
func Term(field string, value int) error {
	if value < 1 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at least 1, got %d", value)}
	}
	return nil
}

// Finite rejects a computed value that is NaN or infinite.
func Finite(field string, value float64) error {
	if !mathutil.IsFinite(value) {
		return &ValidationError{Field: field, Reason: "computation produced a non-finite value"}
	}
	return nil
}
