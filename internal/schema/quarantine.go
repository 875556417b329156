package schema

import (
	"encoding/json"
	"io"
	"sync"
)

// QuarantineEntry pairs a rejected record with the violation that rejected
// it. Entries are written one JSON object per line.
type QuarantineEntry struct {
	OriginalRecord any    `json:"original_record"`
	ErrorDetail    string `json:"error_detail"`
}

// Quarantine collects contract-violating records on a side channel so the
// main output stream only ever carries valid records
type Quarantine struct {
	mu    sync.Mutex
	out   io.Writer
	count int
}

// NewQuarantine writes entries to out
func NewQuarantine(out io.Writer) *Quarantine {
	return &Quarantine{out: out}
}

// Add records one rejected record. A failed write is swallowed: quarantine
// is best-effort and must never take the batch down with it.
func (q *Quarantine) Add(record any, violation error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.count++

	entry := QuarantineEntry{
		OriginalRecord: record,
		ErrorDetail:    violation.Error(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = q.out.Write(append(data, '\n'))
}

// Count returns how many records have been quarantined
func (q *Quarantine) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}
