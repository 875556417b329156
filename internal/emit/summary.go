package emit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hu3mann/chatripperxx/internal/model"
)

// WriteSummary renders the run summary as indented JSON at path
func WriteSummary(summary *model.RunSummary, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create summary directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// PrintSummary writes a human-readable digest of the run to w
func PrintSummary(summary *model.RunSummary, w *os.File) {
	fmt.Fprintf(w, "Run %s\n", summary.RunID)
	fmt.Fprintf(w, "  Fragments:     %d\n", summary.Fragments)
	fmt.Fprintf(w, "  Escalated:     %d\n", summary.Escalated)
	fmt.Fprintf(w, "  Hard-fails:    %d\n", summary.HardFails)
	fmt.Fprintf(w, "  Quarantined:   %d\n", summary.Quarantined)
	fmt.Fprintf(w, "  Cache hits:    %d\n", summary.CacheHits)
	if summary.Canceled > 0 {
		fmt.Fprintf(w, "  Canceled:      %d\n", summary.Canceled)
	}
	fmt.Fprintf(w, "  Mean coverage: %.4f\n", summary.MeanCoverage)
	fmt.Fprintf(w, "  Epsilon spent: %.4f\n", summary.EpsilonSpent)
	for reason, n := range summary.RefusalsByReason {
		fmt.Fprintf(w, "  Refused (%s): %d\n", reason, n)
	}
	fmt.Fprintf(w, "  Duration:      %s\n", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
}
