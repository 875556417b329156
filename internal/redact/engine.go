package redact

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hu3mann/chatripperxx/internal/model"
	"github.com/hu3mann/chatripperxx/internal/salt"
)

// Engine converts fragments into redacted fragments with measured,
// auditable coverage. One engine serves a whole run; it is safe for
// concurrent use and keeps the run-scoped pseudonym mapping.
type Engine struct {
	policy    Policy
	detectors []Detector
	salts     *salt.Store

	mu         sync.Mutex
	pseudonyms map[string]string // normalized value -> replacement
}

// NewEngine builds an engine with the default detector chain for the policy
func NewEngine(policy Policy, salts *salt.Store) *Engine {
	return NewEngineWithDetectors(policy, salts, DefaultDetectors(policy))
}

// NewEngineWithDetectors builds an engine with an explicit detector chain
func NewEngineWithDetectors(policy Policy, salts *salt.Store, detectors []Detector) *Engine {
	return &Engine{
		policy:     policy,
		detectors:  detectors,
		salts:      salts,
		pseudonyms: make(map[string]string),
	}
}

// Redact runs the detector chain over the fragment and replaces every
// resolved sensitive span. It returns a HardFailError, with no redacted
// output, when any span matches a hard-fail class.
//
// Coverage is the fraction of detector-flagged spans whose bytes were fully
// replaced (spans lost to overlap resolution count only when the winning
// span subsumes them). Identical (text, salt, DetectorVersion) always
// produces identical output.
func (e *Engine) Redact(fragment model.Fragment) (*model.RedactedFragment, *model.RedactionReport, error) {
	var flagged []model.Span
	for _, d := range e.detectors {
		flagged = append(flagged, d.Detect(fragment.Text)...)
	}

	// Hard-fail screening happens before any replacement: the fragment
	// must not be processed further in any form.
	for _, span := range flagged {
		if e.policy.isHardFail(string(span.Class)) {
			return nil, &model.RedactionReport{
				FragmentID:        fragment.ID,
				Coverage:          0,
				Strict:            e.policy.Strict,
				HardFailTriggered: true,
				SpanCounts:        map[model.SpanClass]int{},
				DetectorVersion:   DetectorVersion,
			}, &HardFailError{FragmentID: fragment.ID, Class: string(span.Class)}
		}
	}

	winners := resolveOverlaps(flagged)

	redacted := e.replace(fragment.Text, winners)

	counts := make(map[model.SpanClass]int)
	for _, w := range winners {
		counts[w.Class]++
	}

	report := &model.RedactionReport{
		FragmentID:        fragment.ID,
		Coverage:          coverage(flagged, winners),
		Strict:            e.policy.Strict,
		HardFailTriggered: false,
		SpanCounts:        counts,
		DetectorVersion:   DetectorVersion,
	}

	return &model.RedactedFragment{
		FragmentID:      fragment.ID,
		Text:            redacted,
		DetectorVersion: DetectorVersion,
		RedactedAt:      time.Now().UTC(),
	}, report, nil
}

// resolveOverlaps keeps the highest-confidence non-overlapping span per
// region: sort by confidence, greedily accept spans that touch no accepted
// region. Ties break on start offset so resolution is deterministic.
func resolveOverlaps(spans []model.Span) []model.Span {
	sorted := make([]model.Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	var winners []model.Span
	for _, candidate := range sorted {
		conflict := false
		for _, w := range winners {
			if candidate.Start < w.End && w.Start < candidate.End {
				conflict = true
				break
			}
		}
		if !conflict {
			winners = append(winners, candidate)
		}
	}

	sort.Slice(winners, func(i, j int) bool { return winners[i].Start < winners[j].Start })
	return winners
}

// coverage computes the fraction of flagged spans fully subsumed by a
// replaced region. No flagged spans means nothing sensitive was found and
// coverage is 1.0 by definition.
func coverage(flagged, winners []model.Span) float64 {
	if len(flagged) == 0 {
		return 1.0
	}
	covered := 0
	for _, f := range flagged {
		for _, w := range winners {
			if w.Start <= f.Start && f.End <= w.End {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(len(flagged))
}

// replace substitutes every winning span, left to right
func (e *Engine) replace(text string, winners []model.Span) string {
	if len(winners) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, w := range winners {
		b.WriteString(text[prev:w.Start])
		b.WriteString(e.replacement(w.Class, text[w.Start:w.End]))
		prev = w.End
	}
	b.WriteString(text[prev:])
	return b.String()
}

// replacement derives the stable substitute for one span occurrence
func (e *Engine) replacement(class model.SpanClass, matched string) string {
	if class.IsIdentity() && e.policy.Pseudonymize {
		return e.pseudonym(class, matched)
	}
	if !e.policy.OpaqueTokens && !class.IsIdentity() {
		return fmt.Sprintf("⟦RED:%s⟧", class)
	}
	id8 := e.salts.Derive("token:"+string(class), matched)[:8]
	return fmt.Sprintf("⟦TKN:%s:%s⟧", class, id8)
}

// pseudonym returns the stable pseudonym for an identity value. The first
// occurrence of a normalized value in a run establishes the mapping; later
// occurrences reuse it. The value itself is already deterministic under the
// salt, so the map is a memo, not a source of truth.
func (e *Engine) pseudonym(class model.SpanClass, value string) string {
	normalized := normalize(value)

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pseudonyms[normalized]; ok {
		return p
	}
	id8 := e.salts.Derive("pseudonym:"+string(class), normalized)[:8]
	p := fmt.Sprintf("⟦PSN:%s:%s⟧", class, id8)
	e.pseudonyms[normalized] = p
	return p
}

// normalize canonicalizes an identity value before hashing: lowercase,
// whitespace collapsed.
func normalize(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}
