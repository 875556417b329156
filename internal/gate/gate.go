// Package gate implements the hysteresis-based local/remote routing
// decision. One Gate owns the per-session routing mode; all access is
// serialized through its mutex so concurrent fragments cannot corrupt the
// escalation state.
package gate

import (
	"fmt"
	"sync"
)

// Mode is the session routing mode
type Mode string

const (
	ModeLocal  Mode = "LOCAL"
	ModeRemote Mode = "REMOTE"
)

// Gate is the per-session hysteresis state machine. Starting in LOCAL mode
// it escalates when confidence falls below τ; once in REMOTE mode it stays
// there until confidence reaches τ_high; once back in LOCAL mode it stays
// there until confidence falls below τ_low. The widened band damps flapping
// from noise near a single threshold.
type Gate struct {
	mu      sync.Mutex
	mode    Mode
	crossed bool // True once the first transition has happened

	tau     float64
	tauLow  float64
	tauHigh float64
}

// New validates thresholds and creates a session gate in LOCAL mode.
// Thresholds must satisfy tauLow <= tau <= tauHigh, each in [0,1].
func New(tau, tauLow, tauHigh float64) (*Gate, error) {
	for name, v := range map[string]float64{"tau": tau, "tau_low": tauLow, "tau_high": tauHigh} {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("%s must be in [0,1], got %g", name, v)
		}
	}
	if !(tauLow <= tau && tau <= tauHigh) {
		return nil, fmt.Errorf("thresholds must satisfy tau_low <= tau <= tau_high, got %g/%g/%g",
			tauLow, tau, tauHigh)
	}
	return &Gate{
		mode:    ModeLocal,
		tau:     tau,
		tauLow:  tauLow,
		tauHigh: tauHigh,
	}, nil
}

// Decide feeds one confidence sample through the state machine and reports
// whether remote escalation is wanted for this fragment. The mode
// transition and the answer are computed atomically.
func (g *Gate) Decide(confidence float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.mode {
	case ModeLocal:
		threshold := g.tau
		if g.crossed {
			// After the first round trip, re-escalation needs the lower bound
			threshold = g.tauLow
		}
		if confidence < threshold {
			g.mode = ModeRemote
			g.crossed = true
			return true
		}
		return false

	case ModeRemote:
		if confidence >= g.tauHigh {
			g.mode = ModeLocal
			return false
		}
		return true

	default:
		return false
	}
}

// Mode returns the current session mode
func (g *Gate) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}
