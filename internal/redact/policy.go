package redact

import (
	"fmt"
	"strings"
)

// Policy is the validated redaction policy consumed by the engine
type Policy struct {
	// CoverageThreshold is carried on reports for the caller's escalation
	// check; the engine itself never refuses on low coverage.
	CoverageThreshold float64

	// Strict raises the effective threshold the caller enforces to 0.999
	Strict bool

	// Pseudonymize gives identity spans stable pseudonyms; when false they
	// receive opaque tokens like every other class.
	Pseudonymize bool

	// OpaqueTokens gives non-identity spans ⟦TKN:class:id8⟧ tokens; when
	// false they are replaced with a generic class mask instead.
	OpaqueTokens bool

	// HardFailClasses are content classes that abort fragment processing
	HardFailClasses []string
}

// NewPolicy validates the policy inputs. Malformed configuration fails here,
// at construction time.
func NewPolicy(coverageThreshold float64, strict, pseudonymize, opaqueTokens bool, hardFailClasses []string) (Policy, error) {
	if coverageThreshold < 0 || coverageThreshold > 1 {
		return Policy{}, fmt.Errorf("coverage threshold must be in [0,1], got %g", coverageThreshold)
	}
	for _, class := range hardFailClasses {
		if strings.TrimSpace(class) == "" {
			return Policy{}, fmt.Errorf("hard-fail class names must be non-empty")
		}
	}
	return Policy{
		CoverageThreshold: coverageThreshold,
		Strict:            strict,
		Pseudonymize:      pseudonymize,
		OpaqueTokens:      opaqueTokens,
		HardFailClasses:   hardFailClasses,
	}, nil
}

// EffectiveThreshold resolves the strict flag
func (p Policy) EffectiveThreshold() float64 {
	if p.Strict {
		return 0.999
	}
	return p.CoverageThreshold
}

func (p Policy) isHardFail(class string) bool {
	for _, c := range p.HardFailClasses {
		if c == class {
			return true
		}
	}
	return false
}

// HardFailError signals that a fragment contains content that must never be
// analyzed further. It is fatal for the affected fragment only.
type HardFailError struct {
	FragmentID string
	Class      string
}

func (e *HardFailError) Error() string {
	return fmt.Sprintf("hard-fail content detected in fragment %s (class %s)", e.FragmentID, e.Class)
}
