package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hu3mann/chatripperxx/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	batchOutputDir string
	batchTimeout   time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <fragments.jsonl> [more.jsonl ...]",
	Short: "Enrich multiple fragment files",
	Long: `Batch processes several fragment files in one invocation:
- Each input file gets its own record, quarantine, and summary artifact
- All files share one salt; each file gets its own gate and privacy budget
- Fragments within a file are processed in parallel

Example:
  chatripper batch export-2024.jsonl export-2025.jsonl
  chatripper batch exports/*.jsonl --output-dir ./enriched --workers 8`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "./chatripper-out", "output directory for artifacts")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	// Shared with enrich
	batchCmd.Flags().BoolVar(&authorize, "authorize-remote", false, "authorize escalation to the remote provider")
	batchCmd.Flags().BoolVar(&localOnly, "local-only", false, "operator override: never escalate, even when authorized")
	batchCmd.Flags().BoolVar(&strictMode, "strict", false, "strict policy: raise the coverage bar for escalation")
	batchCmd.Flags().Float64Var(&epsilonFlag, "epsilon", 0, "per-query epsilon for released aggregates (0 = config default)")
	batchCmd.Flags().Float64Var(&maxEpsilon, "max-epsilon", 0, "session epsilon budget cap (0 = config default)")
	batchCmd.Flags().IntVar(&localWorkers, "workers", 0, "local analysis workers (0 = config default)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the remote response cache")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Batch: %d files, output %s\n", len(args), batchOutputDir)

	failed := 0
	for _, file := range args {
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "Canceled before %s\n", file)
			failed++
			continue
		}

		cfg, err := buildRunConfig()
		if err != nil {
			return err
		}
		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		cfg.Output.RecordsPath = filepath.Join(batchOutputDir, base+".enriched.jsonl")
		cfg.Output.QuarantinePath = filepath.Join(batchOutputDir, base+".quarantine.jsonl")
		cfg.Output.SummaryPath = filepath.Join(batchOutputDir, base+".summary.json")

		fragments, err := pipeline.LoadFragmentsFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", file, err)
			failed++
			continue
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
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", file, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d fragments, %d escalated, %d quarantined\n",
			file, summary.Fragments, summary.Escalated, summary.Quarantined)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
