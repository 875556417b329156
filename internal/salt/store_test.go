package salt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_CreatesSaltOnFirstUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "salt")

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("salt file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %o", info.Mode().Perm())
	}

	// A second load reads the same salt back
	store2, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if store.Derive("p", "v") != store2.Derive("p", "v") {
		t.Error("reloaded salt derives differently")
	}
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salt")
	if err := os.WriteFile(path, []byte("not hex at all"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed salt file")
	}
}

func TestDerive_PurposeNamespacing(t *testing.T) {
	store, err := FromBytes([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	a := store.Derive("pseudonym", "john")
	b := store.Derive("token", "john")
	if a == b {
		t.Error("different purposes must derive different values")
	}
	if a != store.Derive("pseudonym", "john") {
		t.Error("derivation is not deterministic")
	}
	if strings.Contains(a, "john") {
		t.Error("derived value leaks the input")
	}
}

func TestDerive_DifferentSaltsDiffer(t *testing.T) {
	s1, _ := FromBytes([]byte("salt-one-salt-one-salt-one-salt1"))
	s2, _ := FromBytes([]byte("salt-two-salt-two-salt-two-salt2"))
	if s1.Derive("p", "v") == s2.Derive("p", "v") {
		t.Error("different salts must derive different values")
	}
}

func TestDeriveSeed_Deterministic(t *testing.T) {
	store, _ := FromBytes([]byte("0123456789abcdef0123456789abcdef"))
	if store.DeriveSeed("dp-noise", "q1") != store.DeriveSeed("dp-noise", "q1") {
		t.Error("seed derivation is not deterministic")
	}
	if store.DeriveSeed("dp-noise", "q1") == store.DeriveSeed("dp-noise", "q2") {
		t.Error("different inputs should give different seeds")
	}
}

func TestFromBytes_RejectsEmpty(t *testing.T) {
	if _, err := FromBytes(nil); err == nil {
		t.Error("expected error for empty salt")
	}
}
