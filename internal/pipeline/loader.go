package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hu3mann/chatripperxx/internal/model"
)

// maxFragmentBytes bounds a single JSONL line so a malformed input file
// cannot exhaust memory
const maxFragmentBytes = 1 << 20

// ReadFragments decodes a JSON Lines stream of fragments. Blank lines are
// skipped; a malformed line fails the whole load with its line number.
func ReadFragments(r io.Reader) ([]model.Fragment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFragmentBytes)

	var fragments []model.Fragment
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var frag model.Fragment
		if err := json.Unmarshal(raw, &frag); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if frag.ID == "" {
			return nil, fmt.Errorf("line %d: fragment id is required", line)
		}
		fragments = append(fragments, frag)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fragments: %w", err)
	}
	return fragments, nil
}

// LoadFragmentsFile reads a fragments JSONL file from disk
func LoadFragmentsFile(path string) ([]model.Fragment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fragments: %w", err)
	}
	defer f.Close()

	fragments, err := ReadFragments(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fragments, nil
}
