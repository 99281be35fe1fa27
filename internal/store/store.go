// Package store keeps per-user records: committed obligations and saved plans.
//
// Obligations are updated through UpdateLoan, which runs the caller's change
// under a per-identity lock (memory) or an optimistic transaction (Redis) so
// that two concurrent payments on the same obligation cannot overwrite each
// other.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/internal/tracking"
)

var (
	// ErrNotFound is returned for an unknown obligation.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an update kept losing races for the same obligation.
	ErrConflict = errors.New("concurrent update conflict")
)

// SavedPlan is a plan a user kept for later without committing to it.
type SavedPlan struct {
	ID      string           `json:"id"`
	Vehicle plan.Vehicle     `json:"vehicle"`
	Plan    plan.VehiclePlan `json:"plan"`
	SavedAt time.Time        `json:"savedAt"`
}

// LoanUpdate computes the new version of an obligation from the current one.
// Returning an error abandons the update.
type LoanUpdate func(current tracking.ActiveLoan) (tracking.ActiveLoan, error)

// Store persists user records.
type Store interface {
	// Portfolio returns a snapshot of the user's obligations; an unknown
	// user has an empty portfolio.
	Portfolio(ctx context.Context, userID string) (tracking.Portfolio, error)

	// InsertLoan adds loan unless an obligation with its identity exists, in
	// which case it returns false and the stored obligation.
	InsertLoan(ctx context.Context, userID string, loan tracking.ActiveLoan) (bool, tracking.ActiveLoan, error)

	// UpdateLoan replaces an obligation with update's result, atomically
	// with respect to other updates of the same obligation.
	UpdateLoan(ctx context.Context, userID, loanID string, update LoanUpdate) (tracking.ActiveLoan, error)

	// SavePlan stores or replaces a saved plan by its ID.
	SavePlan(ctx context.Context, userID string, saved SavedPlan) error

	// SavedPlans lists the user's saved plans, most recent first.
	SavedPlans(ctx context.Context, userID string) ([]SavedPlan, error)

	Close() error
}
