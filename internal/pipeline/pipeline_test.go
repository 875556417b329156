package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hu3mann/chatripperxx/internal/model"
)

// mockOllama serves canned analysis JSON with the given confidence
func mockOllama(t *testing.T, confidence float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		analysis := fmt.Sprintf(`{"summary":"test summary","topics":["planning"],"entities":[],`+
			`"sentiment":"neutral","coarse_labels":["conversation"],"fine_labels":["detail"],"confidence":%g}`, confidence)
		resp := map[string]any{
			"model":             "llama3.1",
			"response":          analysis,
			"done":              true,
			"prompt_eval_count": 20,
			"eval_count":        30,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testConfig(t *testing.T, server *httptest.Server) *model.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Salt.Path = filepath.Join(dir, "salt")
	cfg.LLM.Local.BaseURL = server.URL
	cfg.Cache.Enabled = false
	cfg.Output.RecordsPath = filepath.Join(dir, "enriched.jsonl")
	cfg.Output.QuarantinePath = filepath.Join(dir, "quarantine.jsonl")
	cfg.Output.SummaryPath = filepath.Join(dir, "summary.json")
	return cfg
}

func testFragments() []model.Fragment {
	now := time.Now().UTC()
	return []model.Fragment{
		{ID: "frag-1", Text: "Planning dinner for Friday", Timestamp: now},
		{ID: "frag-2", Text: "Call me at 555-123-4567, I'm John", Timestamp: now},
	}
}

func TestRun_LocalOnly(t *testing.T) {
	server := mockOllama(t, 0.9)
	defer server.Close()

	cfg := testConfig(t, server)
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	summary, err := p.Run(context.Background(), testFragments())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Fragments != 2 {
		t.Errorf("expected 2 fragments, got %d", summary.Fragments)
	}
	if summary.Escalated != 0 {
		t.Errorf("high confidence must not escalate, got %d", summary.Escalated)
	}
	if summary.Quarantined != 0 {
		t.Errorf("expected no quarantined records, got %d", summary.Quarantined)
	}
	if summary.EpsilonSpent <= 0 {
		t.Error("coverage release should spend epsilon")
	}

	// Every emitted record is local and carries complete provenance
	f, err := os.Open(cfg.Output.RecordsPath)
	if err != nil {
		t.Fatalf("open records: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		var rec model.FinalRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("record line %d: %v", lines, err)
		}
		if rec.Record.Source != model.SourceLocal {
			t.Errorf("expected local source, got %s", rec.Record.Source)
		}
		if rec.Record.Provenance == nil {
			t.Fatal("record missing provenance")
		}
		if rec.Record.Provenance.RunID != summary.RunID {
			t.Error("record run id does not match summary")
		}
		if strings.Contains(scanner.Text(), "555-123-4567") || strings.Contains(scanner.Text(), "John") {
			t.Error("raw identifier leaked into output")
		}
	}
	if lines != 2 {
		t.Errorf("expected 2 record lines, got %d", lines)
	}
}

func TestRun_LowConfidenceUnauthorizedRefuses(t *testing.T) {
	server := mockOllama(t, 0.5)
	defer server.Close()

	cfg := testConfig(t, server)
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	summary, err := p.Run(context.Background(), testFragments())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Escalated != 0 {
		t.Errorf("unauthorized run must not escalate, got %d", summary.Escalated)
	}
	if summary.RefusalsByReason[model.ReasonAuthorizationMissing] != 2 {
		t.Errorf("expected 2 authorization refusals, got %v", summary.RefusalsByReason)
	}
}

func TestRun_HardFailAborted(t *testing.T) {
	server := mockOllama(t, 0.9)
	defer server.Close()

	cfg := testConfig(t, server)
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	fragments := []model.Fragment{
		{ID: "frag-1", Text: "Ordinary message", Timestamp: time.Now().UTC()},
		{ID: "frag-2", Text: "content mentioning csam here", Timestamp: time.Now().UTC()},
	}
	summary, err := p.Run(context.Background(), fragments)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.HardFails != 1 {
		t.Errorf("expected 1 hard-fail, got %d", summary.HardFails)
	}

	data, err := os.ReadFile(cfg.Output.RecordsPath)
	if err != nil {
		t.Fatalf("read records: %v", err)
	}
	if strings.Contains(string(data), "frag-2") {
		t.Error("hard-failed fragment must not be emitted")
	}
}

func TestRun_ForceLocal(t *testing.T) {
	server := mockOllama(t, 0.5)
	defer server.Close()

	cfg := testConfig(t, server)
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.ForceLocal()

	summary, err := p.Run(context.Background(), testFragments())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RefusalsByReason[model.ReasonManual] != 2 {
		t.Errorf("expected 2 manual refusals, got %v", summary.RefusalsByReason)
	}
}

func TestRun_BacklogLargerThanWorkerBuffers(t *testing.T) {
	server := mockOllama(t, 0.9)
	defer server.Close()

	cfg := testConfig(t, server)
	cfg.Concurrency.LocalWorkers = 1
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	// Far more fragments than the single worker's queue buffer can hold
	now := time.Now().UTC()
	var fragments []model.Fragment
	for i := 0; i < 20; i++ {
		fragments = append(fragments, model.Fragment{
			ID:        fmt.Sprintf("frag-%d", i),
			Text:      fmt.Sprintf("Fragment number %d about planning", i),
			Timestamp: now,
		})
	}

	type runResult struct {
		summary *model.RunSummary
		err     error
	}
	done := make(chan runResult, 1)
	go func() {
		s, runErr := p.Run(context.Background(), fragments)
		done <- runResult{s, runErr}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Run: %v", res.err)
		}
		if res.summary.Fragments != 20 {
			t.Errorf("expected 20 fragments, got %d", res.summary.Fragments)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("run did not complete with a backlog larger than the worker buffers")
	}
}

func TestRun_CancellationFlushesQueuedFragments(t *testing.T) {
	server := mockOllama(t, 0.9)
	defer server.Close()

	cfg := testConfig(t, server)
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.Run(ctx, testFragments())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Canceled != 2 {
		t.Errorf("expected 2 canceled fragments, got %d", summary.Canceled)
	}
	if summary.Quarantined != 0 {
		t.Errorf("cancellation flushes are not quarantine failures, got %d", summary.Quarantined)
	}

	// The flushed fragments stay visible in the quarantine artifact
	data, err := os.ReadFile(cfg.Output.QuarantinePath)
	if err != nil {
		t.Fatalf("read quarantine: %v", err)
	}
	for _, id := range []string{"frag-1", "frag-2"} {
		if !strings.Contains(string(data), id) {
			t.Errorf("canceled fragment %s missing from quarantine artifact", id)
		}
	}

	records, err := os.ReadFile(cfg.Output.RecordsPath)
	if err != nil {
		t.Fatalf("read records: %v", err)
	}
	if len(strings.TrimSpace(string(records))) != 0 {
		t.Errorf("no records should be emitted for a fully canceled run, got %q", records)
	}
}

func TestRun_WritesSummaryArtifact(t *testing.T) {
	server := mockOllama(t, 0.9)
	defer server.Close()

	cfg := testConfig(t, server)
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if _, err := p.Run(context.Background(), testFragments()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(cfg.Output.SummaryPath)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}
	if summary.RunID == "" {
		t.Error("summary missing run id")
	}
}

func TestReadFragments(t *testing.T) {
	input := `{"id":"a","text":"hello","timestamp":"2026-01-02T15:04:05Z"}

{"id":"b","text":"world","timestamp":"2026-01-02T15:04:06Z"}
`
	fragments, err := ReadFragments(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadFragments: %v", err)
	}
	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(fragments))
	}
	if fragments[0].ID != "a" || fragments[1].ID != "b" {
		t.Errorf("wrong ids: %s, %s", fragments[0].ID, fragments[1].ID)
	}
}

func TestReadFragments_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"invalid json", `{"id":"a"` + "\n"},
		{"missing id", `{"text":"no id"}` + "\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadFragments(strings.NewReader(tc.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
