package provenance

import (
	"testing"
	"time"

	"github.com/hu3mann/chatripperxx/internal/model"
)

func TestStamp_AllFieldsSet(t *testing.T) {
	r := NewRecorder("1.0.0")
	record := &model.EnrichmentRecord{FragmentID: "frag-1", Source: model.SourceLocal}

	r.Stamp(record, StampInfo{
		ModelID:    "llama3.1",
		Prompt:     "analyze this",
		SourceText: "redacted text",
		TokenUsage: 321,
		Latency:    1500 * time.Millisecond,
		CacheHit:   true,
	})

	p := record.Provenance
	if p == nil {
		t.Fatal("provenance not attached")
	}
	if p.SchemaVersion != "1.0.0" {
		t.Errorf("wrong schema version: %s", p.SchemaVersion)
	}
	if p.RunID != r.RunID() {
		t.Errorf("run id mismatch: %s vs %s", p.RunID, r.RunID())
	}
	if p.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	if p.Timestamp.Location() != time.UTC {
		t.Error("timestamp must be UTC")
	}
	if p.ModelID != "llama3.1" || p.TokenUsage != 321 || p.LatencyMS != 1500 || !p.CacheHit {
		t.Errorf("wrong stamp: %+v", p)
	}
	if p.PromptHash == "" || p.SourceHash == "" {
		t.Error("hashes must be set")
	}
	if p.PromptHash == p.SourceHash {
		t.Error("different content should hash differently")
	}
}

func TestFingerprint_Stable(t *testing.T) {
	if Fingerprint("abc") != Fingerprint("abc") {
		t.Error("fingerprint must be deterministic")
	}
	if Fingerprint("abc") == Fingerprint("abd") {
		t.Error("fingerprints should differ for different content")
	}
}

func TestRecorder_SharedRunID(t *testing.T) {
	r := NewRecorder("1.0.0")
	a := &model.EnrichmentRecord{}
	b := &model.EnrichmentRecord{}
	r.Stamp(a, StampInfo{ModelID: "m", Prompt: "p", SourceText: "s"})
	r.Stamp(b, StampInfo{ModelID: "m", Prompt: "p2", SourceText: "s2"})

	if a.Provenance.RunID != b.Provenance.RunID {
		t.Error("records of one run must share the run id")
	}
	if NewRecorder("1.0.0").RunID() == r.RunID() {
		t.Error("distinct runs must have distinct ids")
	}
}
