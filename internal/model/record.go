package model

// RecordSource identifies which analysis path produced an enrichment record
type RecordSource string

const (
	SourceLocal  RecordSource = "local"
	SourceRemote RecordSource = "remote"
)

// EnrichmentRecord is the semantic analysis output for one fragment.
// Immutable once it has passed schema validation.
type EnrichmentRecord struct {
	FragmentID    string       `json:"fragment_id"`
	Source        RecordSource `json:"source"`
	ConfidenceLLM float64      `json:"confidence_llm"` // Always in [0,1]

	Summary   string   `json:"summary"`
	Topics    []string `json:"topics,omitempty"`
	Entities  []string `json:"entities,omitempty"` // Pseudonymized entity references only
	Sentiment string   `json:"sentiment,omitempty"`

	// CoarseLabels are safe for remote transmission. FineLabels are
	// local-only and must never appear on a remote-bound record.
	CoarseLabels []string `json:"coarse_labels,omitempty"`
	FineLabels   []string `json:"fine_labels,omitempty"`

	// AttachmentRefs are local-only references; stripped before any
	// remote-bound payload is built.
	AttachmentRefs []string `json:"attachment_refs,omitempty"`

	Canceled bool `json:"canceled,omitempty"` // Flushed during run cancellation

	Provenance *ProvenanceRecord `json:"provenance,omitempty"`
}

// MergeReason is the machine-readable reason recorded with every routing
// and merge decision
type MergeReason string

const (
	ReasonLowConfidence        MergeReason = "low_confidence"
	ReasonValidationFailed     MergeReason = "validation_failed"
	ReasonAuthorizationMissing MergeReason = "authorization_missing"
	ReasonCoverageInsufficient MergeReason = "coverage_insufficient"
	ReasonHardFail             MergeReason = "hardfail"
	ReasonTransportFailed      MergeReason = "transport_failed"
	ReasonManual               MergeReason = "manual"
	ReasonNone                 MergeReason = "none"
)

// MergeDecision records which result won the merge and why
type MergeDecision struct {
	SourceLastEnrichment RecordSource `json:"source_last_enrichment"`
	Reason               MergeReason  `json:"reason"`
}

// FinalRecord pairs the winning enrichment with its merge decision
type FinalRecord struct {
	Record   EnrichmentRecord `json:"record"`
	Decision MergeDecision    `json:"decision"`
}
