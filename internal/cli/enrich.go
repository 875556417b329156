package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hu3mann/chatripperxx/internal/model"
	"github.com/hu3mann/chatripperxx/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outRecords    string
	outQuarantine string
	outSummary    string
	enrichTimeout time.Duration
	authorize     bool
	localOnly     bool
	strictMode    bool
	noCache       bool
	localModel    string
	remoteProv    string
	remoteModel   string
	epsilonFlag   float64
	maxEpsilon    float64
	localWorkers  int
)

// enrichCmd represents the enrich command
var enrichCmd = &cobra.Command{
	Use:   "enrich <fragments.jsonl>",
	Short: "Enrich conversation fragments from a JSONL file",
	Long: `Enrich runs each fragment through redaction, on-device analysis,
and the confidence-gated escalation decision, then emits schema-valid
enrichment records as JSONL.

Remote escalation is disabled unless --authorize-remote is given. Even
when authorized, only redacted text is sent, fine-grained labels never
leave the device, and escalation additionally requires the fragment's
redaction coverage to clear the policy threshold.

Example:
  chatripper enrich fragments.jsonl
  chatripper enrich fragments.jsonl --out enriched.jsonl --authorize-remote
  chatripper enrich fragments.jsonl --local-only --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	// Output flags
	enrichCmd.Flags().StringVar(&outRecords, "out", "enriched.jsonl", "output records path (JSONL)")
	enrichCmd.Flags().StringVar(&outQuarantine, "quarantine", "quarantine.jsonl", "quarantine path for invalid records (JSONL)")
	enrichCmd.Flags().StringVar(&outSummary, "summary", "run-summary.json", "run summary path (JSON)")

	// Routing flags
	enrichCmd.Flags().BoolVar(&authorize, "authorize-remote", false, "authorize escalation to the remote provider")
	enrichCmd.Flags().BoolVar(&localOnly, "local-only", false, "operator override: never escalate, even when authorized")
	enrichCmd.Flags().BoolVar(&strictMode, "strict", false, "strict policy: raise the coverage bar for escalation")

	// Privacy flags
	enrichCmd.Flags().Float64Var(&epsilonFlag, "epsilon", 0, "per-query epsilon for released aggregates (0 = config default)")
	enrichCmd.Flags().Float64Var(&maxEpsilon, "max-epsilon", 0, "session epsilon budget cap (0 = config default)")

	// Model flags
	enrichCmd.Flags().StringVar(&localModel, "local-model", "", "local model name (default from config)")
	enrichCmd.Flags().StringVar(&remoteProv, "remote-provider", "", "remote provider (openai, anthropic)")
	enrichCmd.Flags().StringVar(&remoteModel, "remote-model", "", "remote model name (default from config)")

	// Runtime flags
	enrichCmd.Flags().DurationVar(&enrichTimeout, "timeout", 10*time.Minute, "overall run timeout")
	enrichCmd.Flags().IntVar(&localWorkers, "workers", 0, "local analysis workers (0 = config default)")
	enrichCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the remote response cache")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	file := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
	defer cancel()
	// SIGINT flushes partial results instead of dropping the run
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := buildRunConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Enriching: %s\n", file)
		fmt.Fprintf(os.Stderr, "Local model: %s/%s\n", cfg.LLM.Local.Provider, cfg.LLM.Local.Model)
		if cfg.Remote.Authorized {
			fmt.Fprintf(os.Stderr, "Remote escalation: authorized (%s/%s)\n", cfg.LLM.Remote.Provider, cfg.LLM.Remote.Model)
		} else {
			fmt.Fprintf(os.Stderr, "Remote escalation: disabled\n")
		}
		fmt.Fprintln(os.Stderr)
	}

	fragments, err := pipeline.LoadFragmentsFile(file)
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}
	if localOnly {
		p.ForceLocal()
	}

	summary, err := p.Run(ctx, fragments)
	if err != nil {
		return fmt.Errorf("enrich failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Enriched %d fragments (%d escalated, %d quarantined, %d hard-failed)\n",
		summary.Fragments, summary.Escalated, summary.Quarantined, summary.HardFails)
	fmt.Fprintf(os.Stderr, "✓ Wrote records: %s\n", cfg.Output.RecordsPath)
	if cfg.Output.SummaryPath != "" {
		fmt.Fprintf(os.Stderr, "✓ Wrote summary: %s\n", cfg.Output.SummaryPath)
	}
	return nil
}

// buildRunConfig layers the enrich flags over the loaded configuration and
// resolves remote credentials from the environment
func buildRunConfig() (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	cfg.Output.RecordsPath = outRecords
	cfg.Output.QuarantinePath = outQuarantine
	cfg.Output.SummaryPath = outSummary
	cfg.Output.Verbose = verbose
	cfg.Policy.Strict = strictMode
	cfg.Remote.Authorized = authorize
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache

	if epsilonFlag > 0 {
		cfg.Privacy.Epsilon = epsilonFlag
	}
	if maxEpsilon > 0 {
		cfg.Privacy.MaxEpsilon = maxEpsilon
	}
	if localWorkers > 0 {
		cfg.Concurrency.LocalWorkers = localWorkers
	}
	if localModel != "" {
		cfg.LLM.Local.Model = localModel
	}
	if remoteProv != "" {
		cfg.LLM.Remote.Provider = remoteProv
	}
	if remoteModel != "" {
		cfg.LLM.Remote.Model = remoteModel
	}

	// Local Ollama endpoint can be overridden from the environment
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.Local.Provider == "ollama" {
		cfg.LLM.Local.BaseURL = baseURL
	}

	// Remote credentials come from the environment only
	if cfg.Remote.Authorized {
		switch cfg.LLM.Remote.Provider {
		case "openai":
			cfg.LLM.Remote.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.Remote.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "anthropic", "claude":
			cfg.LLM.Remote.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.LLM.Remote.APIKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
