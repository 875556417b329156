package redact

import (
	"regexp"
	"strings"

	"github.com/hu3mann/chatripperxx/internal/model"
)

// KeywordDetector flags whole phrases drawn from a keyword list under a
// single span class. It backs both the sensitive-topic classifier and the
// prohibited-content (hard-fail) classifiers.
type KeywordDetector struct {
	class      model.SpanClass
	pattern    *regexp.Regexp
	confidence float64
}

// NewKeywordDetector builds a detector for the given class. Keywords are
// matched case-insensitively on word boundaries. A nil detector-free class
// (empty keyword list) matches nothing.
func NewKeywordDetector(class model.SpanClass, keywords []string, confidence float64) *KeywordDetector {
	if len(keywords) == 0 {
		return &KeywordDetector{class: class, confidence: confidence}
	}
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	pattern := regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	return &KeywordDetector{class: class, pattern: pattern, confidence: confidence}
}

func (d *KeywordDetector) Name() string { return "keyword:" + string(d.class) }

func (d *KeywordDetector) Detect(text string) []model.Span {
	if d.pattern == nil {
		return nil
	}
	matches := d.pattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	spans := make([]model.Span, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, model.Span{
			Start:      m[0],
			End:        m[1],
			Class:      d.class,
			Confidence: d.confidence,
		})
	}
	return spans
}

// topicDetector groups the sensitive-topic keyword classes
type topicDetector struct {
	detectors []*KeywordDetector
}

// NewTopicDetector builds the sensitive-topic classifier covering health,
// location, and financial content.
func NewTopicDetector() Detector {
	return &topicDetector{detectors: []*KeywordDetector{
		NewKeywordDetector(model.ClassHealth, []string{
			"diagnosis", "prescription", "therapy", "medication", "overdose",
			"hiv", "std", "rehab", "antidepressant",
		}, 0.70),
		NewKeywordDetector(model.ClassLocation, []string{
			"my address is", "meet me at", "i live at", "home address",
		}, 0.65),
		NewKeywordDetector(model.ClassFinancial, []string{
			"bank account", "routing number", "wire transfer", "venmo me",
			"account number", "paypal.me",
		}, 0.70),
	}}
}

func (d *topicDetector) Name() string { return "topic" }

func (d *topicDetector) Detect(text string) []model.Span {
	var spans []model.Span
	for _, kd := range d.detectors {
		spans = append(spans, kd.Detect(text)...)
	}
	return spans
}

// hardFailKeywords maps a configured hard-fail class to its screening
// keyword list. Unknown classes match only their own class name, so custom
// policy classes still screen on explicit markers.
func hardFailKeywords(class string) []string {
	switch class {
	case "csam":
		return []string{"csam"}
	case "exploitation":
		return []string{"exploitation material", "trafficking victim"}
	default:
		return []string{class}
	}
}
