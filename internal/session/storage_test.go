package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorageRoundTrip(t *testing.T) {
	t.Parallel()

	storage := NewFileStorage(t.TempDir())

	if _, found, err := storage.Get("giscus-session"); err != nil || found {
		t.Fatalf("Get() on empty storage = found %v, err %v", found, err)
	}

	if err := storage.Set("giscus-session", `"tok"`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, found, err := storage.Get("giscus-session")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != `"tok"` {
		t.Fatalf("Get() = %q, found %v", value, found)
	}

	if err := storage.Remove("giscus-session"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, found, _ := storage.Get("giscus-session"); found {
		t.Fatal("expected key to be gone after Remove()")
	}
}

func TestFileStorageCreatesBaseDir(t *testing.T) {
	t.Parallel()

	baseDir := filepath.Join(t.TempDir(), "nested", "state")
	storage := NewFileStorage(baseDir)

	if err := storage.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(baseDir, "k.json")); err != nil {
		t.Fatalf("expected value file under base dir: %v", err)
	}
}

func TestFileStorageRemoveAbsentKey(t *testing.T) {
	t.Parallel()

	storage := NewFileStorage(t.TempDir())
	if err := storage.Remove("never-set"); err != nil {
		t.Fatalf("Remove() of absent key error = %v", err)
	}
}

func TestMemStorage(t *testing.T) {
	t.Parallel()

	storage := NewMemStorage()
	if err := storage.Set("a", "1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, found, err := storage.Get("a")
	if err != nil || !found || value != "1" {
		t.Fatalf("Get() = %q, found %v, err %v", value, found, err)
	}
	if err := storage.Remove("a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, found, _ := storage.Get("a"); found {
		t.Fatal("expected key to be gone after Remove()")
	}
}
