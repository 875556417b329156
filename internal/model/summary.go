package model

import "time"

// RunSummary is the run-level artifact consumed by observability/reporting
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Fragments    int     `json:"fragments"`
	HardFails    int     `json:"hardfails"`   // Fragments aborted by hard-fail content
	Escalated    int     `json:"escalated"`   // Fragments that went remote
	Quarantined  int     `json:"quarantined"` // Records rejected by schema validation
	CacheHits    int     `json:"cache_hits"`  // Remote responses served from cache
	Canceled     int     `json:"canceled"`    // Partial results flushed on cancellation
	MeanCoverage float64 `json:"mean_coverage"`
	EpsilonSpent float64 `json:"epsilon_spent"`

	// RefusalsByReason counts escalation refusals per machine-readable reason
	RefusalsByReason map[MergeReason]int `json:"refusals_by_reason,omitempty"`
}
