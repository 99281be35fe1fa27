// Package garage is the application layer shared by the CLI and the HTTP API.
// It owns the clock, reads and writes the store, and hands "now" to the
// financing core explicitly.
package garage

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/advisor"
	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/internal/store"
	"github.com/iwvelando/vehicle-finance/internal/tracking"
	"github.com/iwvelando/vehicle-finance/pkg/affordability"
	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/datetime"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
	"go.uber.org/zap"
)

// Service answers buyer questions and tracks their commitments.
type Service struct {
	store   store.Store
	advisor *advisor.Advisor
	catalog []plan.Vehicle
	now     func() time.Time
	logger  *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithAdvisor sets the advisor used by Advice. Without one, advice is always
// the deterministic fallback.
func WithAdvisor(a *advisor.Advisor) Option {
	return func(s *Service) {
		s.advisor = a
	}
}

// New creates a Service over st. catalog is used whenever a caller does not
// supply its own vehicles.
func New(st store.Store, catalog []plan.Vehicle, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:   st,
		catalog: catalog,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.advisor == nil {
		s.advisor = advisor.New(advisor.Options{}, logger)
	}
	return s
}

// Catalog returns the configured vehicles.
func (s *Service) Catalog() []plan.Vehicle {
	return append([]plan.Vehicle(nil), s.catalog...)
}

func (s *Service) vehiclesOr(vehicles []plan.Vehicle) []plan.Vehicle {
	if len(vehicles) == 0 {
		return s.catalog
	}
	return vehicles
}

// Plans prices every eligible vehicle for input, financed and leased.
func (s *Service) Plans(input plan.UserInput, vehicles []plan.Vehicle) ([]plan.Option, error) {
	return plan.BuildAll(s.vehiclesOr(vehicles), input)
}

// Affordability estimates the comfortable price range for input.
func (s *Service) Affordability(input plan.UserInput) (affordability.Range, error) {
	return affordability.Estimate(input.Income, input.CreditScore, input.DownPayment, input.LoanTermYears)
}

// SavePlan keeps a plan for later. Saving the same vehicle and plan type
// again replaces the earlier one.
func (s *Service) SavePlan(ctx context.Context, userID string, vehicle plan.Vehicle, p plan.VehiclePlan) (store.SavedPlan, error) {
	if err := checkSelection(userID, vehicle, p); err != nil {
		return store.SavedPlan{}, err
	}
	saved := store.SavedPlan{
		ID:      tracking.LoanID(vehicle.ID, p.Type()),
		Vehicle: vehicle,
		Plan:    p,
		SavedAt: s.now(),
	}
	if err := s.store.SavePlan(ctx, userID, saved); err != nil {
		return store.SavedPlan{}, err
	}
	s.logger.Debug("saved plan",
		zap.String("op", "garage.SavePlan"),
		zap.String("user", userID),
		zap.String("vehicle", vehicle.ID),
		zap.String("planType", string(p.Type())),
	)
	return saved, nil
}

// SavedPlans lists the user's saved plans, most recent first.
func (s *Service) SavedPlans(ctx context.Context, userID string) ([]store.SavedPlan, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	return s.store.SavedPlans(ctx, userID)
}

// Commit turns a plan into a tracked obligation starting now. Committing the
// same vehicle and plan type twice returns the existing obligation with
// AlreadyCommitted set.
func (s *Service) Commit(ctx context.Context, userID string, vehicle plan.Vehicle, p plan.VehiclePlan) (tracking.CommitResult, error) {
	if err := checkSelection(userID, vehicle, p); err != nil {
		return tracking.CommitResult{}, err
	}
	portfolio, err := s.store.Portfolio(ctx, userID)
	if err != nil {
		return tracking.CommitResult{}, err
	}

	result, err := tracking.Commit(p, vehicle, s.now(), portfolio)
	if err != nil {
		return tracking.CommitResult{}, err
	}
	if result.AlreadyCommitted {
		return result, nil
	}

	// Another request may have committed the same identity since the read.
	inserted, stored, err := s.store.InsertLoan(ctx, userID, result.Loan)
	if err != nil {
		return tracking.CommitResult{}, err
	}
	if !inserted {
		return tracking.CommitResult{Loan: stored, AlreadyCommitted: true}, nil
	}

	s.logger.Info("committed plan",
		zap.String("op", "garage.Commit"),
		zap.String("user", userID),
		zap.String("loan", result.Loan.ID),
		zap.String("vehicle", vehicle.ID),
		zap.String("planType", string(p.Type())),
		zap.Float64("monthlyPayment", result.Loan.MonthlyPayment),
	)
	return result, nil
}

// Pay records a payment of amount against a loan, now. Either the whole
// payment is applied or the loan is left as it was.
func (s *Service) Pay(ctx context.Context, userID, loanID string, amount float64) (tracking.ActiveLoan, error) {
	if err := checkUser(userID); err != nil {
		return tracking.ActiveLoan{}, err
	}
	now := s.now()
	loan, err := s.store.UpdateLoan(ctx, userID, loanID, func(current tracking.ActiveLoan) (tracking.ActiveLoan, error) {
		return tracking.ApplyPayment(current, amount, now)
	})
	if err != nil {
		s.logger.Debug("payment rejected",
			zap.String("op", "garage.Pay"),
			zap.String("user", userID),
			zap.String("loan", loanID),
			zap.Float64("amount", amount),
			zap.Error(err),
		)
		return tracking.ActiveLoan{}, err
	}

	s.logger.Info("applied payment",
		zap.String("op", "garage.Pay"),
		zap.String("user", userID),
		zap.String("loan", loanID),
		zap.Float64("amount", amount),
		zap.Float64("amountLeft", loan.AmountLeft),
	)
	return loan, nil
}

// Loans returns the user's obligations ordered by start date.
func (s *Service) Loans(ctx context.Context, userID string) ([]tracking.ActiveLoan, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	portfolio, err := s.store.Portfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	return portfolio.Sorted(), nil
}

// Schedule lists the user's payments due in the months calendar months that
// start on from's day. A zero from means today and months <= 0 means the
// default horizon.
func (s *Service) Schedule(ctx context.Context, userID string, from time.Time, months int) ([]tracking.PaymentEvent, error) {
	loans, err := s.Loans(ctx, userID)
	if err != nil {
		return nil, err
	}
	if from.IsZero() {
		from = datetime.StartOfDay(s.now())
	}
	if months <= 0 {
		months = constants.DefaultHorizonMonths
	}
	horizon := datetime.MonthDay(from, months, from.Day()).AddDate(0, 0, -1)
	return tracking.Schedule(loans, from, horizon), nil
}

// Statuses reports where each of the user's obligations stands today.
func (s *Service) Statuses(ctx context.Context, userID string) ([]tracking.LoanStatus, error) {
	loans, err := s.Loans(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	statuses := make([]tracking.LoanStatus, 0, len(loans))
	for _, loan := range loans {
		status := tracking.Status(loan, now)
		if !status.OnTrack {
			s.logger.Debug("loan is behind",
				zap.String("op", "garage.Statuses"),
				zap.String("user", userID),
				zap.String("loan", loan.ID),
				zap.Int("paymentsDue", status.PaymentsDue),
			)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Advice explains the buyer's options in plain language.
func (s *Service) Advice(ctx context.Context, input plan.UserInput, vehicles []plan.Vehicle) (advisor.Advice, error) {
	priceRange, err := s.Affordability(input)
	if err != nil {
		return advisor.Advice{}, err
	}
	options, err := s.Plans(input, vehicles)
	if err != nil {
		return advisor.Advice{}, err
	}
	return s.advisor.Advise(ctx, advisor.Request{Input: input, Range: priceRange, Options: options}), nil
}

func checkUser(userID string) error {
	if userID == "" {
		return &validation.ValidationError{Field: "user", Reason: "missing user id"}
	}
	return nil
}

func checkSelection(userID string, vehicle plan.Vehicle, p plan.VehiclePlan) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if vehicle.ID == "" {
		return &validation.ValidationError{Field: "vehicle", Reason: "missing vehicle id"}
	}
	if p.IsZero() {
		return &validation.ValidationError{Field: "plan", Reason: fmt.Sprintf("no plan selected for %s", vehicle.ID)}
	}
	return nil
}
