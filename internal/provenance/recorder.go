// Package provenance stamps immutable audit metadata onto every record the
// pipeline emits.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/hu3mann/chatripperxx/internal/model"
)

// Recorder attaches provenance for one run. The run ID is fixed at
// construction so every record of a run shares it.
type Recorder struct {
	schemaVersion string
	runID         string
}

// NewRecorder creates a recorder with a fresh run ID
func NewRecorder(schemaVersion string) *Recorder {
	return &Recorder{
		schemaVersion: schemaVersion,
		runID:         uuid.NewString(),
	}
}

// RunID returns this run's identifier
func (r *Recorder) RunID() string { return r.runID }

// StampInfo carries the per-call facts the recorder cannot know itself
type StampInfo struct {
	ModelID    string
	Prompt     string // Exact prompt sent to the model
	SourceText string // Redacted input text
	TokenUsage int
	Latency    time.Duration
	CacheHit   bool
}

// Stamp fills the record's provenance. Every field is set here; the schema
// validator treats any absence as a contract violation, so there is no
// partial-stamp path.
func (r *Recorder) Stamp(record *model.EnrichmentRecord, info StampInfo) {
	record.Provenance = &model.ProvenanceRecord{
		SchemaVersion: r.schemaVersion,
		RunID:         r.runID,
		Timestamp:     time.Now().UTC(),
		ModelID:       info.ModelID,
		PromptHash:    Fingerprint(info.Prompt),
		SourceHash:    Fingerprint(info.SourceText),
		TokenUsage:    info.TokenUsage,
		LatencyMS:     info.Latency.Milliseconds(),
		CacheHit:      info.CacheHit,
	}
}

// Fingerprint returns the hex SHA-256 of content. These hashes identify
// inputs in the audit trail without reproducing them.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
