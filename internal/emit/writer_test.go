package emit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hu3mann/chatripperxx/internal/model"
)

func testFinal(id string, source model.RecordSource) *model.FinalRecord {
	return &model.FinalRecord{
		Record: model.EnrichmentRecord{
			FragmentID:    id,
			Source:        source,
			ConfidenceLLM: 0.8,
			Summary:       "s",
		},
		Decision: model.MergeDecision{
			SourceLastEnrichment: source,
			Reason:               model.ReasonNone,
		},
	}
}

func TestWriter_JSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "records.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	ids := []string{"frag-1", "frag-2", "frag-3"}
	for _, id := range ids {
		if err := w.WriteRecord(testFinal(id, model.SourceLocal)); err != nil {
			t.Fatalf("WriteRecord(%s): %v", id, err)
		}
	}
	if w.Count() != 3 {
		t.Errorf("expected 3 records, got %d", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var got []string
	for scanner.Scan() {
		var rec model.FinalRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		got = append(got, rec.Record.FragmentID)
	}
	if len(got) != len(ids) {
		t.Fatalf("expected %d lines, got %d", len(ids), len(got))
	}
	for i, id := range ids {
		if got[i] != id {
			t.Errorf("line %d: expected %s, got %s", i, id, got[i])
		}
	}
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	summary := &model.RunSummary{
		RunID:        "run-1",
		StartedAt:    time.Now().UTC().Add(-time.Second),
		FinishedAt:   time.Now().UTC(),
		Fragments:    10,
		Escalated:    2,
		MeanCoverage: 0.997,
		EpsilonSpent: 0.5,
		RefusalsByReason: map[model.MergeReason]int{
			model.ReasonAuthorizationMissing: 1,
		},
	}

	if err := WriteSummary(summary, path); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var loaded model.RunSummary
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if loaded.Fragments != 10 || loaded.Escalated != 2 {
		t.Errorf("roundtrip mismatch: %+v", loaded)
	}
	if loaded.RefusalsByReason[model.ReasonAuthorizationMissing] != 1 {
		t.Error("refusal counts lost")
	}
}
