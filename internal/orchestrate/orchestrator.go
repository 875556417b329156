// Package orchestrate sequences local analysis, confidence-gated remote
// escalation, and result merging for each fragment.
package orchestrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hu3mann/chatripperxx/internal/cache"
	"github.com/hu3mann/chatripperxx/internal/gate"
	"github.com/hu3mann/chatripperxx/internal/llm"
	"github.com/hu3mann/chatripperxx/internal/model"
	"github.com/hu3mann/chatripperxx/internal/provenance"
	"github.com/hu3mann/chatripperxx/internal/schema"
	"github.com/hu3mann/chatripperxx/internal/worker"
)

// Options configures an orchestrator
type Options struct {
	Authorized        bool    // Explicit remote-processing authorization for this run
	ForceLocal        bool    // Operator override: never escalate, reason "manual"
	CoverageThreshold float64 // Minimum redaction coverage for escalation
	RemoteWorkers     int     // Concurrent remote calls in flight, floored at 1
	RemoteTimeout     time.Duration
	Retry             RetryPolicy
	CacheTTL          time.Duration
}

// Stats are the orchestrator's run counters, reported in the run summary
type Stats struct {
	Escalated        int
	CacheHits        int
	RefusalsByReason map[model.MergeReason]int
}

// Orchestrator owns the per-session routing state and drives the
// local-first, escalate-maybe, merge-always flow. Safe for concurrent use
// across fragments; the gate and counters are internally serialized.
type Orchestrator struct {
	local     llm.Provider
	remote    llm.Provider // nil when no remote endpoint is configured
	gate      *gate.Gate
	validator *schema.Validator
	recorder  *provenance.Recorder
	limiter   *worker.Limiter
	respCache cache.Cache // nil when caching is disabled
	opts      Options

	// Caps remote calls independently of the local worker count
	remoteSlots *worker.Semaphore

	mu    sync.Mutex
	stats Stats
}

// New creates an orchestrator. remote may be nil; every escalation then
// refuses with the authorization reason unset and transport never fires.
func New(local, remote llm.Provider, g *gate.Gate, validator *schema.Validator,
	recorder *provenance.Recorder, limiter *worker.Limiter, respCache cache.Cache, opts Options) *Orchestrator {
	return &Orchestrator{
		local:       local,
		remote:      remote,
		gate:        g,
		validator:   validator,
		recorder:    recorder,
		limiter:     limiter,
		respCache:   respCache,
		opts:        opts,
		remoteSlots: worker.NewSemaphore(opts.RemoteWorkers),
		stats:       Stats{RefusalsByReason: make(map[model.MergeReason]int)},
	}
}

// RunLocal analyzes a redacted fragment on-device. The local pass is the
// only one that may produce fine-grained labels.
func (o *Orchestrator) RunLocal(ctx context.Context, redacted *model.RedactedFragment) (*model.EnrichmentRecord, error) {
	req := llm.AnalyzeRequest{
		FragmentID:        redacted.FragmentID,
		Text:              redacted.Text,
		IncludeFineLabels: true,
	}

	start := time.Now()
	resp, err := o.local.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("local analysis: %w", err)
	}

	record := recordFromResponse(redacted.FragmentID, model.SourceLocal, resp)
	o.recorder.Stamp(record, provenance.StampInfo{
		ModelID:    resp.Model,
		Prompt:     llm.BuildPrompt(req),
		SourceText: redacted.Text,
		TokenUsage: resp.TokensUsed,
		Latency:    time.Since(start),
	})
	return record, nil
}

// SetForceLocal toggles the operator override that refuses every
// escalation with the manual reason. Must be called before fragments are
// in flight.
func (o *Orchestrator) SetForceLocal(force bool) {
	o.opts.ForceLocal = force
}

// MaybeEscalate decides whether the local result warrants a remote pass and
// performs it when every precondition holds. A nil record with a non-none
// reason is a refusal or a failed remote path; the caller falls back to the
// local result and records the reason.
func (o *Orchestrator) MaybeEscalate(ctx context.Context, localResult *model.EnrichmentRecord,
	report *model.RedactionReport, redacted *model.RedactedFragment) (*model.EnrichmentRecord, model.MergeReason) {

	if o.opts.ForceLocal {
		return nil, o.refuse(model.ReasonManual)
	}

	// The gate consumes every confidence sample so the hysteresis state
	// tracks the session even when a later precondition refuses.
	if !o.gate.Decide(localResult.ConfidenceLLM) {
		return nil, model.ReasonNone
	}

	if o.remote == nil || !o.opts.Authorized {
		return nil, o.refuse(model.ReasonAuthorizationMissing)
	}
	if report == nil || report.HardFailTriggered {
		return nil, o.refuse(model.ReasonHardFail)
	}
	if report.Coverage < o.opts.CoverageThreshold {
		return nil, o.refuse(model.ReasonCoverageInsufficient)
	}

	record, reason := o.runRemote(ctx, redacted)
	if record == nil {
		return nil, reason
	}

	if err := o.validator.Validate(record); err != nil {
		return nil, o.refuse(model.ReasonValidationFailed)
	}

	o.mu.Lock()
	o.stats.Escalated++
	o.mu.Unlock()
	return record, model.ReasonLowConfidence
}

// runRemote performs the bounded remote call: cache first, then a
// concurrency slot, then rate limit and retry with backoff under the
// hard timeout.
func (o *Orchestrator) runRemote(ctx context.Context, redacted *model.RedactedFragment) (*model.EnrichmentRecord, model.MergeReason) {
	req := llm.AnalyzeRequest{
		FragmentID: redacted.FragmentID,
		Text:       redacted.Text,
		// Fine labels stay local; remote-bound prompts never request them
		IncludeFineLabels: false,
	}
	prompt := llm.BuildPrompt(req)

	var key string
	if o.respCache != nil {
		key = cache.Key(o.remote.Name(), prompt)
		if resp, found := cache.LoadResponse(o.respCache, key); found {
			o.mu.Lock()
			o.stats.CacheHits++
			o.mu.Unlock()

			record := recordFromResponse(redacted.FragmentID, model.SourceRemote, resp)
			o.recorder.Stamp(record, provenance.StampInfo{
				ModelID:    resp.Model,
				Prompt:     prompt,
				SourceText: redacted.Text,
				TokenUsage: 0, // Nothing spent on a cache hit
				CacheHit:   true,
			})
			return record, model.ReasonLowConfidence
		}
	}

	if err := o.remoteSlots.Acquire(ctx); err != nil {
		return nil, o.refuse(model.ReasonTransportFailed)
	}
	defer o.remoteSlots.Release()

	start := time.Now()
	var resp *llm.AnalyzeResponse
	err := o.opts.Retry.Do(ctx, func(ctx context.Context) error {
		if err := o.limiter.Wait(ctx, o.remote.Name()); err != nil {
			return err
		}
		callCtx := ctx
		if o.opts.RemoteTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, o.opts.RemoteTimeout)
			defer cancel()
		}
		var callErr error
		resp, callErr = o.remote.Analyze(callCtx, req)
		return callErr
	})
	if err != nil {
		return nil, o.refuse(model.ReasonTransportFailed)
	}

	if o.respCache != nil {
		_ = cache.StoreResponse(o.respCache, key, resp, o.opts.CacheTTL)
	}

	record := recordFromResponse(redacted.FragmentID, model.SourceRemote, resp)
	o.recorder.Stamp(record, provenance.StampInfo{
		ModelID:    resp.Model,
		Prompt:     prompt,
		SourceText: redacted.Text,
		TokenUsage: resp.TokensUsed,
		Latency:    time.Since(start),
	})
	return record, model.ReasonLowConfidence
}

// Merge picks the winning record. Remote semantic fields take precedence
// when a remote record exists, but the local confidence value is retained
// for audit. With no remote record the local result stands and the refusal
// or failure reason is recorded.
func (o *Orchestrator) Merge(localResult, remoteResult *model.EnrichmentRecord, reason model.MergeReason) *model.FinalRecord {
	if remoteResult != nil {
		merged := *remoteResult
		merged.ConfidenceLLM = localResult.ConfidenceLLM
		return &model.FinalRecord{
			Record: merged,
			Decision: model.MergeDecision{
				SourceLastEnrichment: model.SourceRemote,
				Reason:               model.ReasonLowConfidence,
			},
		}
	}
	return &model.FinalRecord{
		Record: *localResult,
		Decision: model.MergeDecision{
			SourceLastEnrichment: model.SourceLocal,
			Reason:               reason,
		},
	}
}

// Stats returns a snapshot of the run counters
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := Stats{
		Escalated:        o.stats.Escalated,
		CacheHits:        o.stats.CacheHits,
		RefusalsByReason: make(map[model.MergeReason]int, len(o.stats.RefusalsByReason)),
	}
	for k, v := range o.stats.RefusalsByReason {
		snapshot.RefusalsByReason[k] = v
	}
	return snapshot
}

func (o *Orchestrator) refuse(reason model.MergeReason) model.MergeReason {
	o.mu.Lock()
	o.stats.RefusalsByReason[reason]++
	o.mu.Unlock()
	return reason
}

func recordFromResponse(fragmentID string, source model.RecordSource, resp *llm.AnalyzeResponse) *model.EnrichmentRecord {
	record := &model.EnrichmentRecord{
		FragmentID:    fragmentID,
		Source:        source,
		ConfidenceLLM: resp.Confidence,
		Summary:       resp.Summary,
		Topics:        resp.Topics,
		Entities:      resp.Entities,
		Sentiment:     resp.Sentiment,
		CoarseLabels:  resp.CoarseLabels,
	}
	if source == model.SourceLocal {
		record.FineLabels = resp.FineLabels
	}
	return record
}
