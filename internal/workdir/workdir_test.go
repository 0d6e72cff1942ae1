package workdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateNameFourDistinctWords(t *testing.T) {
	name := generateName()
	parts := strings.Split(name, "-")
	if len(parts) != 4 {
		t.Fatalf("expected 4 words, got %d (%q)", len(parts), name)
	}

	seen := make(map[string]bool)
	known := make(map[string]bool, len(words))
	for _, w := range words {
		known[w] = true
	}
	for _, p := range parts {
		if !known[p] {
			t.Errorf("word %q is not in the dictionary", p)
		}
		if seen[p] {
			t.Errorf("word %q repeated in name %q", p, name)
		}
		seen[p] = true
	}
}

func TestRandomNamesAreUnique(t *testing.T) {
	names := make(map[string]bool)
	for i := 0; i < 200; i++ {
		names[generateName()] = true
	}
	if len(names) < 195 {
		t.Errorf("too many collisions across 200 generated names: only %d unique", len(names))
	}
}

func TestRandomInCreatesAndCloses(t *testing.T) {
	parent := t.TempDir()

	wd, err := RandomIn(parent)
	if err != nil {
		t.Fatalf("RandomIn: %v", err)
	}
	if !wd.AutoCreated() {
		t.Error("expected auto-created directory")
	}
	if info, err := os.Stat(wd.Path()); err != nil || !info.IsDir() {
		t.Fatalf("working directory not created: %v", err)
	}
	if filepath.Dir(wd.Path()) != parent {
		t.Errorf("expected parent %q, got %q", parent, filepath.Dir(wd.Path()))
	}

	if err := wd.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(wd.Path()); !os.IsNotExist(err) {
		t.Errorf("expected directory to be removed, stat err = %v", err)
	}
}

func TestKeepPreventsRemoval(t *testing.T) {
	parent := t.TempDir()

	wd, err := RandomIn(parent)
	if err != nil {
		t.Fatalf("RandomIn: %v", err)
	}
	wd.Keep()

	if err := wd.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(wd.Path()); err != nil {
		t.Errorf("expected kept directory to survive Close, stat err = %v", err)
	}
}

func TestCallerSuppliedDirNeverRemoved(t *testing.T) {
	parent := t.TempDir()
	path := filepath.Join(parent, "already-here")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	wd, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if wd.AutoCreated() {
		t.Error("expected caller-supplied directory to not be marked auto-created")
	}

	if err := wd.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("caller-supplied directory should never be removed, stat err = %v", err)
	}
}

func TestNewCreatesMissingPath(t *testing.T) {
	parent := t.TempDir()
	path := filepath.Join(parent, "missing", "nested")

	wd, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !wd.AutoCreated() {
		t.Error("expected a missing path to be marked auto-created")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected path to exist: %v", err)
	}
}
