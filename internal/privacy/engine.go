package privacy

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/hu3mann/chatripperxx/internal/model"
	"github.com/hu3mann/chatripperxx/internal/salt"
)

// QueryKind selects the aggregate being computed
type QueryKind string

const (
	QueryCount     QueryKind = "count"
	QuerySum       QueryKind = "sum"
	QueryMean      QueryKind = "mean"
	QueryHistogram QueryKind = "histogram"
)

// Query describes one aggregate question over a collection of records
type Query struct {
	Kind    QueryKind
	Name    string  // Stable query name; part of the deterministic seed fingerprint
	Epsilon float64 // Epsilon to spend on this query

	Values     []float64 // Numeric inputs for count/sum/mean
	Categories []string  // Categorical inputs for histogram
}

// Engine answers statistical queries with calibrated Laplace noise.
// Per-query sensitivity: 1 for count, the configured per-record bound for
// sum, Δsum/n for mean, 1 per bin for histogram. All executions against the
// shared budget are serialized by the budget's own lock.
type Engine struct {
	budget       *Budget
	sumBound     float64
	reproducible bool
	salts        *salt.Store
}

// NewEngine validates parameters and builds the engine. Invalid epsilon or
// delta bounds surface here, never at query time.
func NewEngine(cfg model.PrivacyConfig, salts *salt.Store) (*Engine, error) {
	if cfg.Epsilon <= 0 || cfg.Epsilon > 10 {
		return nil, fmt.Errorf("epsilon must be in (0,10], got %g", cfg.Epsilon)
	}
	if cfg.Delta <= 0 || cfg.Delta > 0.01 {
		return nil, fmt.Errorf("delta must be in (0,0.01], got %g", cfg.Delta)
	}
	if cfg.SumBound <= 0 {
		return nil, fmt.Errorf("sum bound must be positive, got %g", cfg.SumBound)
	}
	budget, err := NewBudget(cfg.MaxEpsilon, cfg.Delta)
	if err != nil {
		return nil, err
	}
	return &Engine{
		budget:       budget,
		sumBound:     cfg.SumBound,
		reproducible: cfg.Reproducible,
		salts:        salts,
	}, nil
}

// Budget exposes the session ledger for run-summary reporting
func (e *Engine) Budget() *Budget { return e.budget }

// ExecuteQuery spends the query's epsilon, computes the true aggregate, and
// publishes a noised result. The query is validated and the budget checked
// before anything is computed; a rejected query leaves the budget untouched.
// In reproducible mode the noise is seeded deterministically from
// (salt, query fingerprint), so the same query always yields the same noisy
// output.
func (e *Engine) ExecuteQuery(q Query) (*model.QueryResult, error) {
	switch q.Kind {
	case QueryCount, QuerySum, QueryMean, QueryHistogram:
	default:
		return nil, fmt.Errorf("unknown query kind %q", q.Kind)
	}

	if err := e.budget.Spend(q.Epsilon); err != nil {
		return nil, err
	}

	seed := e.seedFor(q)
	r := rand.New(rand.NewSource(seed))

	result := &model.QueryResult{
		EpsilonSpent: q.Epsilon,
		SeedUsed:     seed,
	}

	switch q.Kind {
	case QueryCount:
		result.TrueValue = float64(len(q.Values))
		noisy := result.TrueValue + laplace(r, 1.0/q.Epsilon)
		result.NoisyValue = clamp(noisy, 0, math.Inf(1))

	case QuerySum:
		n := float64(len(q.Values))
		result.TrueValue = e.boundedSum(q.Values)
		noisy := result.TrueValue + laplace(r, e.sumBound/q.Epsilon)
		result.NoisyValue = clamp(noisy, -n*e.sumBound, n*e.sumBound)

	case QueryMean:
		if len(q.Values) == 0 {
			result.NoisyValue = 0
			return result, nil
		}
		n := float64(len(q.Values))
		result.TrueValue = e.boundedSum(q.Values) / n
		noisy := result.TrueValue + laplace(r, e.sumBound/(n*q.Epsilon))
		result.NoisyValue = clamp(noisy, -e.sumBound, e.sumBound)

	case QueryHistogram:
		trueBins := make(map[string]float64)
		for _, c := range q.Categories {
			trueBins[c]++
		}
		// Bins are noised in sorted key order so a fixed seed yields a
		// fixed histogram.
		keys := make([]string, 0, len(trueBins))
		for k := range trueBins {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		noisyBins := make(map[string]float64, len(trueBins))
		for _, k := range keys {
			noisyBins[k] = clamp(trueBins[k]+laplace(r, 1.0/q.Epsilon), 0, math.Inf(1))
		}
		result.TrueBins = trueBins
		result.NoisyBins = noisyBins
	}

	return result, nil
}

// boundedSum clamps each record's contribution to [-sumBound, sumBound]
// before summing, which is what makes the configured sensitivity hold.
func (e *Engine) boundedSum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += clamp(v, -e.sumBound, e.sumBound)
	}
	return sum
}

// seedFor derives the noise seed. The fingerprint covers everything that
// identifies the query so distinct queries get independent noise streams.
func (e *Engine) seedFor(q Query) int64 {
	if !e.reproducible {
		return time.Now().UnixNano()
	}
	fingerprint := fmt.Sprintf("%s|%s|%g|%d|%d", q.Kind, q.Name, q.Epsilon, len(q.Values), len(q.Categories))
	return e.salts.DeriveSeed("dp-noise", fingerprint)
}
