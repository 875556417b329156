package redact

import (
	"regexp"

	"github.com/hu3mann/chatripperxx/internal/model"
)

// regexDetector is the shared implementation for pattern-based detectors
type regexDetector struct {
	name       string
	class      model.SpanClass
	pattern    *regexp.Regexp
	confidence float64
	// group selects a capture group as the span; 0 uses the whole match
	group int
}

func (d *regexDetector) Name() string { return d.name }

func (d *regexDetector) Detect(text string) []model.Span {
	matches := d.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	spans := make([]model.Span, 0, len(matches))
	for _, m := range matches {
		start, end := m[0], m[1]
		if d.group > 0 && 2*d.group+1 < len(m) && m[2*d.group] >= 0 {
			start, end = m[2*d.group], m[2*d.group+1]
		}
		spans = append(spans, model.Span{
			Start:      start,
			End:        end,
			Class:      d.class,
			Confidence: d.confidence,
		})
	}
	return spans
}

var (
	phonePattern = regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	ccPattern    = regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)
	// Handles exclude the local part of email addresses (no preceding word char)
	handlePattern = regexp.MustCompile(`(?:^|[^\w@])(@[A-Za-z0-9_]{2,30})\b`)
	// Contextual name patterns: the capture group is the name itself
	namePattern = regexp.MustCompile(`(?:[Ii]'m|[Ii] am|[Tt]his is|[Mm]y name is|[Ii]t's|[Aa]sk for)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	// Vocative/greeting position: "Hey John," / "Thanks, Maria"
	vocativePattern = regexp.MustCompile(`(?:[Hh]ey|[Hh]i|[Dd]ear|[Tt]hanks,?)\s+([A-Z][a-z]+)\b`)
)

// NewPhoneDetector matches North American phone numbers
func NewPhoneDetector() Detector {
	return &regexDetector{name: "phone", class: model.ClassPhone, pattern: phonePattern, confidence: 0.95}
}

// NewEmailDetector matches email addresses
func NewEmailDetector() Detector {
	return &regexDetector{name: "email", class: model.ClassEmail, pattern: emailPattern, confidence: 0.98}
}

// NewSSNDetector matches US social security numbers
func NewSSNDetector() Detector {
	return &regexDetector{name: "ssn", class: model.ClassSSN, pattern: ssnPattern, confidence: 0.97}
}

// NewCreditCardDetector matches 16-digit payment card numbers
func NewCreditCardDetector() Detector {
	return &regexDetector{name: "credit_card", class: model.ClassCreditCard, pattern: ccPattern, confidence: 0.90}
}

// NewHandleDetector matches @-style usernames
func NewHandleDetector() Detector {
	return &regexDetector{name: "handle", class: model.ClassHandle, pattern: handlePattern, confidence: 0.85, group: 1}
}

// personNameDetector applies several contextual patterns; names appear as
// the capture group of each.
type personNameDetector struct {
	patterns []*regexp.Regexp
}

// NewPersonNameDetector matches personal names in contextual positions
// ("I'm John", "this is Maria", "Hey Sam"). Context-free name recognition is
// out of scope; upstream identity metadata covers the rest.
func NewPersonNameDetector() Detector {
	return &personNameDetector{patterns: []*regexp.Regexp{namePattern, vocativePattern}}
}

func (d *personNameDetector) Name() string { return "person_name" }

func (d *personNameDetector) Detect(text string) []model.Span {
	var spans []model.Span
	for _, p := range d.patterns {
		for _, m := range p.FindAllStringSubmatchIndex(text, -1) {
			if m[2] < 0 {
				continue
			}
			spans = append(spans, model.Span{
				Start:      m[2],
				End:        m[3],
				Class:      model.ClassPersonName,
				Confidence: 0.80,
			})
		}
	}
	return spans
}
