// Package pipeline wires the enrichment stages together: redaction, local
// analysis, gated remote escalation, merge, validation, and emission.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hu3mann/chatripperxx/internal/cache"
	"github.com/hu3mann/chatripperxx/internal/emit"
	"github.com/hu3mann/chatripperxx/internal/gate"
	"github.com/hu3mann/chatripperxx/internal/llm"
	"github.com/hu3mann/chatripperxx/internal/model"
	"github.com/hu3mann/chatripperxx/internal/orchestrate"
	"github.com/hu3mann/chatripperxx/internal/privacy"
	"github.com/hu3mann/chatripperxx/internal/provenance"
	"github.com/hu3mann/chatripperxx/internal/redact"
	"github.com/hu3mann/chatripperxx/internal/salt"
	"github.com/hu3mann/chatripperxx/internal/schema"
	"github.com/hu3mann/chatripperxx/internal/worker"
)

// Pipeline orchestrates the complete enrichment run
type Pipeline struct {
	config     *model.Config
	redactor   *redact.Engine
	orch       *orchestrate.Orchestrator
	privEngine *privacy.Engine
	validator  *schema.Validator
	recorder   *provenance.Recorder
}

// NewPipeline builds every stage from the configuration. Raw text only
// ever flows through the redactor; everything downstream sees redacted
// fragments.
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	salts, err := salt.Load(saltPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("load salt: %w", err)
	}

	policy, err := redact.NewPolicy(cfg.Policy.CoverageThreshold, cfg.Policy.Strict,
		cfg.Policy.Pseudonymize, cfg.Policy.OpaqueTokens, cfg.Policy.HardFailClasses)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	privEngine, err := privacy.NewEngine(cfg.Privacy, salts)
	if err != nil {
		return nil, fmt.Errorf("privacy: %w", err)
	}

	g, err := gate.New(cfg.Gate.Tau, cfg.Gate.TauLow, cfg.Gate.TauHigh)
	if err != nil {
		return nil, fmt.Errorf("gate: %w", err)
	}

	local, err := llm.NewProvider(llm.ConfigFromEndpoint(cfg.LLM.Local))
	if err != nil {
		return nil, fmt.Errorf("local provider: %w", err)
	}

	// The remote provider is optional: without it every escalation refuses
	// with the authorization reason and the run stays fully local.
	var remote llm.Provider
	if cfg.Remote.Authorized {
		remote, err = llm.NewProvider(llm.ConfigFromEndpoint(cfg.LLM.Remote))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: remote provider unavailable: %v\n", err)
			remote = nil
		}
	}

	var respCache cache.Cache
	if cfg.Cache.Enabled {
		respCache = buildCache(cfg)
	}

	recorder := provenance.NewRecorder(schema.Version)
	validator := schema.NewValidator(schema.Version)

	limiter := worker.NewLimiter(cfg.Remote.RateLimit, cfg.Remote.Burst)

	orch := orchestrate.New(local, remote, g, validator, recorder, limiter, respCache, orchestrate.Options{
		Authorized:        cfg.Remote.Authorized,
		CoverageThreshold: cfg.Policy.EffectiveCoverageThreshold(),
		RemoteWorkers:     cfg.Concurrency.RemoteWorkers,
		RemoteTimeout:     time.Duration(cfg.LLM.Remote.Timeout) * time.Second,
		CacheTTL:          cfg.Cache.TTL,
		Retry: orchestrate.RetryPolicy{
			MaxAttempts: cfg.Remote.MaxAttempts,
			BackoffBase: cfg.Remote.BackoffBase,
			BackoffCap:  cfg.Remote.BackoffCap,
		},
	})

	return &Pipeline{
		config:     cfg,
		redactor:   redact.NewEngine(policy, salts),
		orch:       orch,
		privEngine: privEngine,
		validator:  validator,
		recorder:   recorder,
	}, nil
}

// ForceLocal disables remote escalation for the run; every gate decision
// that would escalate is refused with the manual reason instead.
func (p *Pipeline) ForceLocal() {
	p.orch.SetForceLocal(true)
}

// fragmentResult is the per-fragment outcome collected from the pool
type fragmentResult struct {
	fragmentID string
	final      *model.FinalRecord
	coverage   float64
	hardFail   bool
	canceled   bool // Run was canceled before this fragment was analyzed
	err        error
}

func (r *fragmentResult) GetError() error { return r.err }

// fragmentJob runs one fragment through redaction, local analysis, and
// the escalation decision
type fragmentJob struct {
	p        *Pipeline
	fragment model.Fragment
}

func (j *fragmentJob) Execute(ctx context.Context) worker.Result {
	res := &fragmentResult{fragmentID: j.fragment.ID}

	// Fragments still queued when the run is canceled flush through here
	// so they stay visible in the artifacts.
	if ctx.Err() != nil {
		res.canceled = true
		return res
	}

	redacted, report, err := j.p.redactor.Redact(j.fragment)
	if err != nil {
		var hf *redact.HardFailError
		if errors.As(err, &hf) {
			res.hardFail = true
			return res
		}
		res.err = fmt.Errorf("redact %s: %w", j.fragment.ID, err)
		return res
	}
	res.coverage = report.Coverage

	local, err := j.p.orch.RunLocal(ctx, redacted)
	if err != nil {
		res.err = fmt.Errorf("local analysis %s: %w", j.fragment.ID, err)
		return res
	}

	remote, reason := j.p.orch.MaybeEscalate(ctx, local, report, redacted)
	res.final = j.p.orch.Merge(local, remote, reason)

	// A cancellation mid-run still flushes the record, marked partial
	if ctx.Err() != nil {
		res.final.Record.Canceled = true
	}
	return res
}

// Run processes every fragment and writes the three run artifacts: the
// enriched record stream, the quarantine stream, and the run summary.
func (p *Pipeline) Run(ctx context.Context, fragments []model.Fragment) (*model.RunSummary, error) {
	startedAt := time.Now().UTC()

	writer, err := emit.NewWriter(p.config.Output.RecordsPath)
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	quarantine, closeQuarantine, err := p.openQuarantine()
	if err != nil {
		return nil, err
	}
	defer closeQuarantine()

	pool := worker.NewPool(ctx, p.config.Concurrency.LocalWorkers)
	pool.Start()
	for _, frag := range fragments {
		pool.Submit(&fragmentJob{p: p, fragment: frag})
	}
	results := pool.Wait()

	summary := &model.RunSummary{
		RunID:     p.recorder.RunID(),
		StartedAt: startedAt,
		Fragments: len(fragments),
	}

	var coverages []float64
	quarantined := 0
	for _, r := range results {
		res, ok := r.(*fragmentResult)
		if !ok {
			continue
		}
		switch {
		case res.canceled:
			// Never analyzed; quarantined with a cancellation marker so the
			// fragment does not silently disappear from the run artifacts.
			summary.Canceled++
			quarantine.Add(map[string]string{"fragment_id": res.fragmentID},
				fmt.Errorf("run canceled before fragment was analyzed: %w", context.Canceled))
			continue
		case res.hardFail:
			summary.HardFails++
			continue
		case res.err != nil:
			quarantined++
			quarantine.Add(map[string]string{"fragment_id": res.fragmentID}, res.err)
			continue
		}

		coverages = append(coverages, res.coverage)

		if err := p.validator.Validate(&res.final.Record); err != nil {
			quarantined++
			quarantine.Add(res.final.Record, err)
			continue
		}
		if res.final.Record.Canceled {
			summary.Canceled++
		}
		if err := writer.WriteRecord(res.final); err != nil {
			return nil, err
		}
	}

	stats := p.orch.Stats()
	summary.FinishedAt = time.Now().UTC()
	summary.Escalated = stats.Escalated
	summary.CacheHits = stats.CacheHits
	summary.RefusalsByReason = stats.RefusalsByReason
	summary.Quarantined = quarantined
	summary.MeanCoverage = p.releaseMeanCoverage(coverages)
	summary.EpsilonSpent = p.privEngine.Budget().SpentEpsilon()

	if p.config.Output.SummaryPath != "" {
		if err := emit.WriteSummary(summary, p.config.Output.SummaryPath); err != nil {
			return nil, err
		}
	}
	if p.config.Output.Verbose {
		emit.PrintSummary(summary, os.Stderr)
	}
	return summary, nil
}

// releaseMeanCoverage publishes the run's mean redaction coverage through
// the privacy engine so the summary artifact carries a noised aggregate,
// never the exact per-run value.
func (p *Pipeline) releaseMeanCoverage(coverages []float64) float64 {
	if len(coverages) == 0 {
		return 0
	}
	result, err := p.privEngine.ExecuteQuery(privacy.Query{
		Kind:    privacy.QueryMean,
		Name:    "mean_coverage",
		Epsilon: p.config.Privacy.Epsilon,
		Values:  coverages,
	})
	if err != nil {
		if p.config.Output.Verbose {
			fmt.Fprintf(os.Stderr, "Warning: coverage query skipped: %v\n", err)
		}
		return 0
	}
	return result.NoisyValue
}

func (p *Pipeline) openQuarantine() (*schema.Quarantine, func(), error) {
	path := p.config.Output.QuarantinePath
	if path == "" {
		return schema.NewQuarantine(io.Discard), func() {}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create quarantine directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create quarantine file: %w", err)
	}
	return schema.NewQuarantine(f), func() { _ = f.Close() }, nil
}

func saltPath(cfg *model.Config) string {
	if cfg.Salt.Path != "" {
		return cfg.Salt.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatripper-salt"
	}
	return filepath.Join(home, ".chatripper", "salt")
}

func buildCache(cfg *model.Config) cache.Cache {
	home, err := os.UserHomeDir()
	if err != nil {
		return cache.NewMemoryCache(cfg.Cache.TTL, 10*time.Minute)
	}
	dir := filepath.Join(home, ".chatripper", "cache")
	return cache.NewLayeredCache(cfg.Cache.TTL, dir, cfg.Cache.TTL)
}
