package model

import "time"

// Fragment is a conversation excerpt produced by the upstream transform
// stage. It is read-only to the enrichment core.
type Fragment struct {
	ID             string    `json:"id"`                        // Stable fragment identifier
	ConversationID string    `json:"conversation_id,omitempty"` // Parent conversation
	Sender         string    `json:"sender,omitempty"`          // Sender identifier as extracted upstream
	Timestamp      time.Time `json:"timestamp"`                 // Message time, UTC
	Text           string    `json:"text"`                      // Raw text (never leaves the redaction boundary)
	Platform       string    `json:"platform,omitempty"`        // Source platform (imessage, instagram, ...)
}

// RedactedFragment is the fragment text with every detected sensitive span
// replaced. Once created it is the only form of the text the rest of the
// pipeline sees; the raw text and the salt never appear in it.
type RedactedFragment struct {
	FragmentID      string    `json:"fragment_id"`
	Text            string    `json:"text"`
	DetectorVersion string    `json:"detector_version"`
	RedactedAt      time.Time `json:"redacted_at"`
}

// SpanClass categorizes a detected sensitive span
type SpanClass string

const (
	ClassPhone      SpanClass = "phone"       // Phone numbers
	ClassEmail      SpanClass = "email"       // Email addresses
	ClassSSN        SpanClass = "ssn"         // US social security numbers
	ClassCreditCard SpanClass = "credit_card" // Payment card numbers
	ClassPersonName SpanClass = "person"      // Personal names
	ClassHandle     SpanClass = "handle"      // Usernames / @handles
	ClassAddress    SpanClass = "address"     // Street addresses
	ClassHealth     SpanClass = "health"      // Health-related topics
	ClassLocation   SpanClass = "location"    // Precise locations
	ClassFinancial  SpanClass = "financial"   // Account / financial details
)

// IsIdentity reports whether spans of this class receive a stable pseudonym
// rather than an opaque token.
func (c SpanClass) IsIdentity() bool {
	switch c {
	case ClassPersonName, ClassHandle:
		return true
	default:
		return false
	}
}

// Span is a detected sensitive region of fragment text
type Span struct {
	Start      int       `json:"start"` // Byte offset, inclusive
	End        int       `json:"end"`   // Byte offset, exclusive
	Class      SpanClass `json:"class"`
	Confidence float64   `json:"confidence"` // Detector confidence in [0,1]
}

// RedactionReport summarizes what the redaction engine did to one fragment.
// Immutable once produced.
type RedactionReport struct {
	FragmentID        string            `json:"fragment_id"`
	Coverage          float64           `json:"coverage"` // Fraction of flagged spans redacted, in [0,1]
	Strict            bool              `json:"strict"`
	HardFailTriggered bool              `json:"hardfail_triggered"`
	SpanCounts        map[SpanClass]int `json:"span_counts"` // Redacted spans per class
	DetectorVersion   string            `json:"detector_version"`
}
