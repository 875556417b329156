package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider defines the interface for analysis backends. The local path and
// the remote escalation path are both Providers; the orchestrator never
// cares which transport sits behind one.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Analyze runs semantic analysis over redacted fragment text
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AnalyzeRequest carries one redacted fragment into a provider. Text is
// always post-redaction; raw fragment text never reaches this package.
type AnalyzeRequest struct {
	FragmentID string

	// Text is the redacted fragment text
	Text string

	// IncludeFineLabels requests the local-only fine-grained label set.
	// Remote-bound requests must leave this false.
	IncludeFineLabels bool

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// AnalyzeResponse is a provider's semantic analysis of one fragment
type AnalyzeResponse struct {
	Summary      string
	Topics       []string
	Entities     []string
	Sentiment    string
	CoarseLabels []string
	FineLabels   []string

	// Confidence is the model's self-reported confidence, clamped to [0,1]
	Confidence float64

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int
}

const systemPrompt = "You are a forensic conversation analyst. You only ever see redacted text; " +
	"never guess at what redaction tokens hide. Respond with a single JSON object and nothing else."

// BuildPrompt constructs the analysis prompt. The response contract is a
// bare JSON object so every provider parses identically.
func BuildPrompt(req AnalyzeRequest) string {
	fields := `"summary" (2-3 sentences), "topics" (string array), "entities" (string array of redaction tokens mentioned), "sentiment" ("positive"|"negative"|"neutral"|"mixed"), "coarse_labels" (string array), "confidence" (number 0..1)`
	if req.IncludeFineLabels {
		fields += `, "fine_labels" (string array of fine-grained labels)`
	}
	return fmt.Sprintf(`Analyze this redacted conversation fragment. Pseudonyms look like ⟦PSN:class:id⟧ and tokens like ⟦TKN:class:id⟧; treat each as an opaque reference.

Fragment:
%s

Return a JSON object with fields: %s.`, req.Text, fields)
}

// analysisPayload mirrors the JSON contract in BuildPrompt
type analysisPayload struct {
	Summary      string   `json:"summary"`
	Topics       []string `json:"topics"`
	Entities     []string `json:"entities"`
	Sentiment    string   `json:"sentiment"`
	CoarseLabels []string `json:"coarse_labels"`
	FineLabels   []string `json:"fine_labels"`
	Confidence   float64  `json:"confidence"`
}

// parseAnalysis extracts the JSON object from raw model output. Models
// sometimes wrap JSON in prose or code fences; everything outside the
// outermost braces is ignored.
func parseAnalysis(raw string) (*analysisPayload, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("parse analysis JSON: %w", err)
	}

	if payload.Confidence < 0 {
		payload.Confidence = 0
	}
	if payload.Confidence > 1 {
		payload.Confidence = 1
	}
	return &payload, nil
}

func (p *analysisPayload) toResponse(model string, tokens int) *AnalyzeResponse {
	return &AnalyzeResponse{
		Summary:      p.Summary,
		Topics:       p.Topics,
		Entities:     p.Entities,
		Sentiment:    p.Sentiment,
		CoarseLabels: p.CoarseLabels,
		FineLabels:   p.FineLabels,
		Confidence:   p.Confidence,
		Model:        model,
		TokensUsed:   tokens,
	}
}
