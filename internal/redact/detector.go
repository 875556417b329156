// Package redact implements the Policy Shield: sensitive-span detection,
// pseudonymization, opaque tokenization, coverage measurement, and hard-fail
// content screening.
package redact

import (
	"github.com/hu3mann/chatripperxx/internal/model"
)

// DetectorVersion identifies the detector chain. It participates in the
// determinism contract: identical (text, salt, DetectorVersion) always
// yields identical redacted output.
const DetectorVersion = "pshield-detectors-v1"

// Detector finds sensitive spans in fragment text. Implementations must be
// stateless and safe for concurrent use.
type Detector interface {
	// Name returns the detector name for diagnostics
	Name() string

	// Detect returns all sensitive spans found in text. Byte offsets index
	// into text; spans may overlap across detectors.
	Detect(text string) []model.Span
}

// DefaultDetectors assembles the ordered detector chain: identity patterns
// first, then sensitive-topic keywords, then prohibited-content classes from
// the policy.
func DefaultDetectors(policy Policy) []Detector {
	detectors := []Detector{
		NewPhoneDetector(),
		NewEmailDetector(),
		NewSSNDetector(),
		NewCreditCardDetector(),
		NewHandleDetector(),
		NewPersonNameDetector(),
		NewTopicDetector(),
	}
	for _, class := range policy.HardFailClasses {
		detectors = append(detectors, NewKeywordDetector(model.SpanClass(class), hardFailKeywords(class), 0.99))
	}
	return detectors
}
