// Package emit writes enrichment output artifacts: the per-fragment JSONL
// record stream and the run-level summary.
package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hu3mann/chatripperxx/internal/model"
)

// Writer streams final records as JSON Lines, one record per line.
// Safe for concurrent use; writes are serialized.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	close func() error
	count int
}

// NewWriter creates a JSONL writer for the given path, creating parent
// directories as needed. An empty path writes to stdout.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return &Writer{w: os.Stdout, close: func() error { return nil }}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &Writer{w: f, close: f.Close}, nil
}

// WriteRecord appends one final record as a single JSON line
func (w *Writer) WriteRecord(record *model.FinalRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", record.Record.FragmentID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write record %s: %w", record.Record.FragmentID, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written so far
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes and closes the underlying file
func (w *Writer) Close() error {
	return w.close()
}
