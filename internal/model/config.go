package model

import (
	"fmt"
	"runtime"
	"time"
)

// Config is the complete pipeline configuration
type Config struct {
	Policy      PolicyConfig      `yaml:"policy"`
	Privacy     PrivacyConfig     `yaml:"privacy"`
	Gate        GateConfig        `yaml:"gate"`
	Salt        SaltConfig        `yaml:"salt"`
	LLM         LLMConfig         `yaml:"llm"`
	Remote      RemoteConfig      `yaml:"remote"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Cache       CacheConfig       `yaml:"cache"`
	Output      OutputConfig      `yaml:"output"`
}

// PolicyConfig controls the redaction engine ("Policy Shield")
type PolicyConfig struct {
	CoverageThreshold float64  `yaml:"coverage_threshold"` // Minimum coverage to permit escalation
	Strict            bool     `yaml:"strict"`             // Strict mode raises the threshold to 0.999
	Pseudonymize      bool     `yaml:"pseudonymize"`       // Stable pseudonyms for identity spans
	OpaqueTokens      bool     `yaml:"opaque_tokens"`      // Opaque tokens for non-identity spans
	HardFailClasses   []string `yaml:"hardfail_classes"`   // Content classes that abort the fragment
}

// PrivacyConfig controls the differential privacy engine
type PrivacyConfig struct {
	Epsilon      float64 `yaml:"epsilon"`      // Per-query epsilon, in (0,10]
	Delta        float64 `yaml:"delta"`        // Session delta, in (0,0.01]
	MaxEpsilon   float64 `yaml:"max_epsilon"`  // Session budget cap
	SumBound     float64 `yaml:"sum_bound"`    // Per-record contribution bound for sum/mean
	Reproducible bool    `yaml:"reproducible"` // Deterministic noise seeding
}

// GateConfig holds the hysteresis confidence thresholds
type GateConfig struct {
	Tau     float64 `yaml:"tau"`      // Baseline escalation threshold
	TauLow  float64 `yaml:"tau_low"`  // Re-escalation threshold once back in local mode
	TauHigh float64 `yaml:"tau_high"` // De-escalation threshold while in remote mode
}

// SaltConfig locates the local secret seed
type SaltConfig struct {
	Path string `yaml:"path"` // Salt file path (default: $HOME/.chatripper/salt)
}

// LLMConfig holds the two analysis endpoints
type LLMConfig struct {
	Local  LLMEndpoint `yaml:"local"`
	Remote LLMEndpoint `yaml:"remote"`
}

// LLMEndpoint configures one inference provider
type LLMEndpoint struct {
	Provider  string `yaml:"provider"` // "ollama" or "openai"
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"` // From environment only, never persisted
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout"` // Seconds
	MaxTokens int    `yaml:"max_tokens"`
}

// RemoteConfig governs the escalation path
type RemoteConfig struct {
	Authorized  bool          `yaml:"authorized"`   // Explicit opt-in for remote processing
	MaxAttempts int           `yaml:"max_attempts"` // Retry attempts per remote call
	BackoffBase time.Duration `yaml:"backoff_base"` // First retry delay, doubled per attempt
	BackoffCap  time.Duration `yaml:"backoff_cap"`  // Upper bound on a single delay
	RateLimit   float64       `yaml:"rate_limit"`   // Requests per second to the remote provider
	Burst       int           `yaml:"burst"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	LocalWorkers  int `yaml:"local_workers"`
	RemoteWorkers int `yaml:"remote_workers"`
}

// CacheConfig controls the remote-response cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// OutputConfig controls emitted artifacts
type OutputConfig struct {
	RecordsPath    string `yaml:"records_path"`    // Enriched records, JSONL
	QuarantinePath string `yaml:"quarantine_path"` // Quarantined records, JSONL
	SummaryPath    string `yaml:"summary_path"`    // Run summary, JSON
	Verbose        bool   `yaml:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			CoverageThreshold: 0.995,
			Strict:            false,
			Pseudonymize:      true,
			OpaqueTokens:      true,
			HardFailClasses:   []string{"csam", "exploitation"},
		},
		Privacy: PrivacyConfig{
			Epsilon:      0.5,
			Delta:        1e-5,
			MaxEpsilon:   2.0,
			SumBound:     1.0,
			Reproducible: true,
		},
		Gate: GateConfig{
			Tau:     0.70,
			TauLow:  0.62,
			TauHigh: 0.78,
		},
		LLM: LLMConfig{
			Local: LLMEndpoint{
				Provider:  "ollama",
				Model:     "llama3.1",
				BaseURL:   "http://localhost:11434",
				Timeout:   60,
				MaxTokens: 1000,
			},
			Remote: LLMEndpoint{
				Provider:  "openai",
				Model:     "gpt-4o-mini",
				Timeout:   30,
				MaxTokens: 1000,
			},
		},
		Remote: RemoteConfig{
			Authorized:  false,
			MaxAttempts: 3,
			BackoffBase: 500 * time.Millisecond,
			BackoffCap:  8 * time.Second,
			RateLimit:   2.0,
			Burst:       4,
		},
		Concurrency: ConcurrencyConfig{
			LocalWorkers:  runtime.NumCPU(),
			RemoteWorkers: 2,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     1 * time.Hour,
		},
		Output: OutputConfig{
			RecordsPath:    "enriched.jsonl",
			QuarantinePath: "quarantine.jsonl",
			SummaryPath:    "run-summary.json",
		},
	}
}

// EffectiveCoverageThreshold resolves the strict flag into the threshold the
// orchestrator enforces before escalation.
func (p PolicyConfig) EffectiveCoverageThreshold() float64 {
	if p.Strict {
		return 0.999
	}
	return p.CoverageThreshold
}

// Validate checks every constraint that must hold before the pipeline
// starts. A violation here is a ConfigurationError: fatal at startup.
func (c *Config) Validate() error {
	if c.Privacy.Epsilon <= 0 || c.Privacy.Epsilon > 10 {
		return fmt.Errorf("privacy.epsilon must be in (0,10], got %g", c.Privacy.Epsilon)
	}
	if c.Privacy.Delta <= 0 || c.Privacy.Delta > 0.01 {
		return fmt.Errorf("privacy.delta must be in (0,0.01], got %g", c.Privacy.Delta)
	}
	if c.Privacy.MaxEpsilon <= 0 || c.Privacy.MaxEpsilon > 10 {
		return fmt.Errorf("privacy.max_epsilon must be in (0,10], got %g", c.Privacy.MaxEpsilon)
	}
	if c.Privacy.SumBound <= 0 {
		return fmt.Errorf("privacy.sum_bound must be positive, got %g", c.Privacy.SumBound)
	}
	if c.Policy.CoverageThreshold < 0 || c.Policy.CoverageThreshold > 1 {
		return fmt.Errorf("policy.coverage_threshold must be in [0,1], got %g", c.Policy.CoverageThreshold)
	}
	if err := validateThresholds(c.Gate); err != nil {
		return err
	}
	if c.Remote.MaxAttempts < 1 {
		return fmt.Errorf("remote.max_attempts must be at least 1, got %d", c.Remote.MaxAttempts)
	}
	// A zero rate makes every remote wait block until the run deadline
	if c.Remote.RateLimit <= 0 {
		return fmt.Errorf("remote.rate_limit must be positive, got %g", c.Remote.RateLimit)
	}
	return nil
}

func validateThresholds(g GateConfig) error {
	for name, v := range map[string]float64{"tau": g.Tau, "tau_low": g.TauLow, "tau_high": g.TauHigh} {
		if v < 0 || v > 1 {
			return fmt.Errorf("gate.%s must be in [0,1], got %g", name, v)
		}
	}
	if !(g.TauLow <= g.Tau && g.Tau <= g.TauHigh) {
		return fmt.Errorf("gate thresholds must satisfy tau_low <= tau <= tau_high, got %g/%g/%g",
			g.TauLow, g.Tau, g.TauHigh)
	}
	return nil
}
