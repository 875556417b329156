// Package salt manages the local secret seed used for deterministic
// pseudonym and token derivation. The salt is loaded once at startup and is
// immutable for the process lifetime; rotating it requires a restart.
package salt

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const saltBytes = 32

// Store holds the loaded salt. The raw value never leaves this package;
// callers derive keyed hashes through Derive.
type Store struct {
	salt []byte
}

// Load reads the salt file at path, creating it with a fresh random salt on
// first use. The file is created with owner-only permissions.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		raw, decErr := hex.DecodeString(string(data))
		if decErr != nil || len(raw) != saltBytes {
			return nil, fmt.Errorf("salt file %s is malformed", path)
		}
		return &Store{salt: raw}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read salt file: %w", err)
	}

	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create salt directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(raw)), 0600); err != nil {
		return nil, fmt.Errorf("write salt file: %w", err)
	}
	return &Store{salt: raw}, nil
}

// FromBytes builds a store from an in-memory salt. Intended for tests and
// for callers that manage salt material themselves.
func FromBytes(raw []byte) (*Store, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("salt must not be empty")
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &Store{salt: cp}, nil
}

// Derive returns the hex-encoded HMAC-SHA256 of value under the salt,
// namespaced by purpose so pseudonyms, tokens, and noise seeds never collide.
func (s *Store) Derive(purpose, value string) string {
	mac := hmac.New(sha256.New, s.salt)
	mac.Write([]byte(purpose))
	mac.Write([]byte{0})
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// DeriveSeed folds a derived hash into an int64 seed for deterministic
// noise generation.
func (s *Store) DeriveSeed(purpose, value string) int64 {
	mac := hmac.New(sha256.New, s.salt)
	mac.Write([]byte(purpose))
	mac.Write([]byte{0})
	mac.Write([]byte(value))
	sum := mac.Sum(nil)

	var seed int64
	for i := 0; i < 8; i++ {
		seed = seed<<8 | int64(sum[i])
	}
	return seed
}
