package model

import (
	"strings"
	"testing"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero epsilon", func(c *Config) { c.Privacy.Epsilon = 0 }, "privacy.epsilon"},
		{"huge delta", func(c *Config) { c.Privacy.Delta = 0.5 }, "privacy.delta"},
		{"zero max epsilon", func(c *Config) { c.Privacy.MaxEpsilon = 0 }, "privacy.max_epsilon"},
		{"negative sum bound", func(c *Config) { c.Privacy.SumBound = -1 }, "privacy.sum_bound"},
		{"coverage above one", func(c *Config) { c.Policy.CoverageThreshold = 1.5 }, "policy.coverage_threshold"},
		{"inverted gate band", func(c *Config) { c.Gate.TauLow = 0.9 }, "gate thresholds"},
		{"zero attempts", func(c *Config) { c.Remote.MaxAttempts = 0 }, "remote.max_attempts"},
		{"zero rate limit", func(c *Config) { c.Remote.RateLimit = 0 }, "remote.rate_limit"},
		{"negative rate limit", func(c *Config) { c.Remote.RateLimit = -2 }, "remote.rate_limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestEffectiveCoverageThreshold_Strict(t *testing.T) {
	p := PolicyConfig{CoverageThreshold: 0.995}
	if got := p.EffectiveCoverageThreshold(); got != 0.995 {
		t.Errorf("non-strict threshold: %g", got)
	}
	p.Strict = true
	if got := p.EffectiveCoverageThreshold(); got != 0.999 {
		t.Errorf("strict threshold: %g", got)
	}
}
