package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Analyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("streaming must be disabled")
		}
		if req.Model != "llama3.1" {
			t.Errorf("Expected model llama3.1, got %s", req.Model)
		}

		resp := ollamaResponse{
			Model:           "llama3.1",
			Response:        `{"summary":"A short exchange.","topics":["chat"],"sentiment":"positive","coarse_labels":["conversation"],"fine_labels":["greeting"],"confidence":0.84}`,
			Done:            true,
			PromptEvalCount: 40,
			EvalCount:       60,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{Provider: "ollama", Model: "llama3.1", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}

	resp, err := provider.Analyze(context.Background(), AnalyzeRequest{
		FragmentID:        "frag-1",
		Text:              "hello there",
		IncludeFineLabels: true,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.Summary != "A short exchange." {
		t.Errorf("wrong summary: %q", resp.Summary)
	}
	if resp.Confidence != 0.84 {
		t.Errorf("wrong confidence: %g", resp.Confidence)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("expected 100 tokens, got %d", resp.TokensUsed)
	}
	if len(resp.FineLabels) != 1 {
		t.Errorf("expected fine labels, got %v", resp.FineLabels)
	}
}

func TestOllamaProvider_Analyze_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(ollamaError{Error: "model not found"})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{Provider: "ollama", Model: "missing", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}
	if _, err := provider.Analyze(context.Background(), AnalyzeRequest{Text: "x"}); err == nil {
		t.Error("expected error from API failure")
	}
}

func TestOllamaProvider_RequiresModelName(t *testing.T) {
	provider, err := NewOllamaProvider(Config{Provider: "ollama"})
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}
	if _, err := provider.Analyze(context.Background(), AnalyzeRequest{Text: "x"}); err == nil {
		t.Error("expected error without a model name")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{Provider: "ollama", Model: "llama3.1", BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("expected provider to be available")
	}

	server.Close()
	if provider.IsAvailable(context.Background()) {
		t.Error("expected provider to be unavailable after server close")
	}
}
