package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iwvelando/vehicle-finance/internal/tracking"
)

type userRecord struct {
	loans tracking.Portfolio
	plans map[string]SavedPlan
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.Mutex
	users map[string]*userRecord

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]*userRecord),
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *Memory) user(userID string) *userRecord {
	rec, ok := m.users[userID]
	if !ok {
		rec = &userRecord{loans: tracking.Portfolio{}, plans: map[string]SavedPlan{}}
		m.users[userID] = rec
	}
	return rec
}

func (m *Memory) identityLock(userID, loanID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	key := userID + "/" + loanID
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// Portfolio implements Store.
func (m *Memory) Portfolio(_ context.Context, userID string) (tracking.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user(userID).loans.Clone(), nil
}

// InsertLoan implements Store.
func (m *Memory) InsertLoan(_ context.Context, userID string, loan tracking.ActiveLoan) (bool, tracking.ActiveLoan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.user(userID)
	if existing, ok := rec.loans[loan.ID]; ok {
		return false, existing.Clone(), nil
	}
	rec.loans[loan.ID] = loan.Clone()
	return true, loan, nil
}

// UpdateLoan implements Store.
func (m *Memory) UpdateLoan(ctx context.Context, userID, loanID string, update LoanUpdate) (tracking.ActiveLoan, error) {
	lock := m.identityLock(userID, loanID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return tracking.ActiveLoan{}, err
	}

	m.mu.Lock()
	current, ok := m.user(userID).loans[loanID]
	m.mu.Unlock()
	if !ok {
		return tracking.ActiveLoan{}, fmt.Errorf("loan %s: %w", loanID, ErrNotFound)
	}

	updated, err := update(current.Clone())
	if err != nil {
		return tracking.ActiveLoan{}, err
	}

	m.mu.Lock()
	m.user(userID).loans[loanID] = updated
	m.mu.Unlock()
	return updated, nil
}

// SavePlan implements Store.
func (m *Memory) SavePlan(_ context.Context, userID string, saved SavedPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).plans[saved.ID] = saved
	return nil
}

// SavedPlans implements Store.
func (m *Memory) SavedPlans(_ context.Context, userID string) ([]SavedPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plans := make([]SavedPlan, 0, len(m.user(userID).plans))
	for _, saved := range m.user(userID).plans {
		plans = append(plans, saved)
	}
	sortSavedPlans(plans)
	return plans, nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}

func sortSavedPlans(plans []SavedPlan) {
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].SavedAt.Equal(plans[j].SavedAt) {
			return plans[i].SavedAt.After(plans[j].SavedAt)
		}
		return plans[i].ID < plans[j].ID
	})
}
