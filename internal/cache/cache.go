// Package cache stores remote analysis responses so identical escalations
// within a run (or across runs, with the disk layer) are answered without a
// second remote call. Only post-redaction material is ever cached.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/hu3mann/chatripperxx/internal/llm"
)

// Cache defines the interface for response caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from the model and the exact prompt sent to it
func Key(modelID, prompt string) string {
	hash := sha256.Sum256([]byte(modelID + "\x00" + prompt))
	return "chatripper:v1:" + hex.EncodeToString(hash[:])
}

// LoadResponse fetches and decodes a cached analysis response
func LoadResponse(c Cache, key string) (*llm.AnalyzeResponse, bool) {
	data, found := c.Get(key)
	if !found {
		return nil, false
	}
	var resp llm.AnalyzeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		// A corrupt entry is dropped, not surfaced
		_ = c.Delete(key)
		return nil, false
	}
	return &resp, true
}

// StoreResponse encodes and caches an analysis response
func StoreResponse(c Cache, key string, resp *llm.AnalyzeResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.Set(key, data, ttl)
}
