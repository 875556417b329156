// Package schema enforces the output record contract. Invalid records are
// quarantined, never emitted, and never abort a batch.
package schema

import (
	"fmt"

	"github.com/hu3mann/chatripperxx/internal/model"
)

// Version is the current output record schema version
const Version = "1.0.0"

// SchemaError describes a contract violation in one record. Non-fatal: the
// offending record is quarantined and processing continues.
type SchemaError struct {
	Field  string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation in %s: %s", e.Field, e.Detail)
}

func violation(field, format string, args ...any) *SchemaError {
	return &SchemaError{Field: field, Detail: fmt.Sprintf(format, args...)}
}

// Validator checks enrichment records against the output contract
type Validator struct {
	version string
}

// NewValidator creates a validator for the given schema version
func NewValidator(version string) *Validator {
	return &Validator{version: version}
}

// Validate checks one record. Provenance is part of the contract: a record
// missing any provenance field is itself a schema violation.
func (v *Validator) Validate(record *model.EnrichmentRecord) error {
	if record == nil {
		return violation("record", "record is nil")
	}
	if record.FragmentID == "" {
		return violation("fragment_id", "must be non-empty")
	}
	if record.Source != model.SourceLocal && record.Source != model.SourceRemote {
		return violation("source", "must be local or remote, got %q", record.Source)
	}
	if record.ConfidenceLLM < 0 || record.ConfidenceLLM > 1 {
		return violation("confidence_llm", "must be in [0,1], got %g", record.ConfidenceLLM)
	}

	// Fine-grained labels and attachment references are local-only; a
	// remote record carrying them means the never-leak boundary failed.
	if record.Source == model.SourceRemote {
		if len(record.FineLabels) > 0 {
			return violation("fine_labels", "forbidden on remote records")
		}
		if len(record.AttachmentRefs) > 0 {
			return violation("attachment_refs", "forbidden on remote records")
		}
	}

	return v.validateProvenance(record.Provenance)
}

func (v *Validator) validateProvenance(p *model.ProvenanceRecord) error {
	if p == nil {
		return violation("provenance", "missing")
	}
	if p.SchemaVersion != v.version {
		return violation("provenance.schema_version", "want %q, got %q", v.version, p.SchemaVersion)
	}
	if p.RunID == "" {
		return violation("provenance.run_id", "must be non-empty")
	}
	if p.Timestamp.IsZero() {
		return violation("provenance.timestamp", "must be set")
	}
	if p.ModelID == "" {
		return violation("provenance.model_id", "must be non-empty")
	}
	if p.PromptHash == "" {
		return violation("provenance.prompt_hash", "must be non-empty")
	}
	if p.SourceHash == "" {
		return violation("provenance.source_hash", "must be non-empty")
	}
	if p.TokenUsage < 0 {
		return violation("provenance.token_usage", "must be non-negative, got %d", p.TokenUsage)
	}
	if p.LatencyMS < 0 {
		return violation("provenance.latency_ms", "must be non-negative, got %d", p.LatencyMS)
	}
	return nil
}
