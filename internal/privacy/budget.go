// Package privacy answers aggregate statistical queries under an (ε,δ)
// differential privacy guarantee with sequential composition accounting.
package privacy

import (
	"fmt"
	"sync"
)

// BudgetExceededError rejects a query that would overrun the session
// budget. It is non-fatal: the budget is left unchanged and later, smaller
// queries may still succeed.
type BudgetExceededError struct {
	Requested float64
	Spent     float64
	Max       float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("privacy budget exceeded: requested ε=%g with %g of %g already spent",
		e.Requested, e.Spent, e.Max)
}

// Budget is the session-wide (ε,δ) ledger. Composition is sequential:
// cumulative epsilon is the sum of every epsilon spent. All spending is
// serialized through the internal mutex; the cumulative value never
// decreases and never exceeds the configured maximum.
type Budget struct {
	mu             sync.Mutex
	maxEpsilon     float64
	maxDelta       float64
	spentEpsilon   float64
	deltaAccounted bool
}

// NewBudget validates and creates a session budget. Epsilon outside (0,10]
// or delta outside (0,0.01] is a configuration error, fatal at construction.
func NewBudget(maxEpsilon, maxDelta float64) (*Budget, error) {
	if maxEpsilon <= 0 || maxEpsilon > 10 {
		return nil, fmt.Errorf("max epsilon must be in (0,10], got %g", maxEpsilon)
	}
	if maxDelta <= 0 || maxDelta > 0.01 {
		return nil, fmt.Errorf("max delta must be in (0,0.01], got %g", maxDelta)
	}
	return &Budget{maxEpsilon: maxEpsilon, maxDelta: maxDelta}, nil
}

// Spend deducts epsilon from the budget, or rejects with
// BudgetExceededError without mutating anything.
func (b *Budget) Spend(epsilon float64) error {
	if epsilon <= 0 {
		return fmt.Errorf("requested epsilon must be positive, got %g", epsilon)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.spentEpsilon+epsilon > b.maxEpsilon {
		return &BudgetExceededError{Requested: epsilon, Spent: b.spentEpsilon, Max: b.maxEpsilon}
	}
	b.spentEpsilon += epsilon
	return nil
}

// AccountDelta records the single per-session delta charge for
// approximate-DP mechanisms. Only the first call has any effect.
func (b *Budget) AccountDelta() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deltaAccounted {
		return 0
	}
	b.deltaAccounted = true
	return b.maxDelta
}

// SpentEpsilon returns the cumulative epsilon spent so far
func (b *Budget) SpentEpsilon() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spentEpsilon
}

// Remaining returns the epsilon still available
func (b *Budget) Remaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxEpsilon - b.spentEpsilon
}
