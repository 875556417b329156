package model

import "time"

// ProvenanceRecord is the immutable audit metadata stamped onto every
// emitted record. Every field is required; a record missing any of them is
// a schema violation.
type ProvenanceRecord struct {
	SchemaVersion string    `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"` // UTC
	ModelID       string    `json:"model_id"`
	PromptHash    string    `json:"prompt_hash"` // Fingerprint of the exact prompt sent
	SourceHash    string    `json:"source_hash"` // Fingerprint of the redacted input text
	TokenUsage    int       `json:"token_usage"`
	LatencyMS     int64     `json:"latency_ms"`
	CacheHit      bool      `json:"cache_hit"`
}

// QueryResult is the outcome of one differentially private query
type QueryResult struct {
	TrueValue    float64            `json:"-"` // Never serialized; noisy value is the published one
	NoisyValue   float64            `json:"noisy_value"`
	TrueBins     map[string]float64 `json:"-"`
	NoisyBins    map[string]float64 `json:"noisy_bins,omitempty"`
	EpsilonSpent float64            `json:"epsilon_spent"`
	SeedUsed     int64              `json:"seed_used"`
}
