package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"gisco/internal/widget"
)

type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (c *captureLogger) record(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, fmt.Sprintf(format, args...))
}

func (c *captureLogger) Debug(format string, args ...any) { c.record(format, args...) }
func (c *captureLogger) Info(format string, args ...any)  { c.record(format, args...) }
func (c *captureLogger) Warn(format string, args ...any)  { c.record(format, args...) }
func (c *captureLogger) Error(format string, args ...any) { c.record(format, args...) }

func (c *captureLogger) joined() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.entries, "\n")
}

func TestInitializeCapturesSeedToken(t *testing.T) {
	t.Parallel()

	storage := NewMemStorage()
	store := NewStore(storage, nil)

	cleaned, replaced := store.Initialize("https://example.com/p?x=1&giscus=XYZ#frag")
	if !replaced {
		t.Fatal("expected replaced = true for a seeded address")
	}
	if cleaned != "https://example.com/p?x=1" {
		t.Fatalf("cleaned address = %q", cleaned)
	}
	if got := store.Token(); got != "XYZ" {
		t.Fatalf("Token() = %q, want XYZ", got)
	}

	stored, found, err := storage.Get(widget.SessionStorageKey)
	if err != nil || !found {
		t.Fatalf("stored token lookup = found %v, err %v", found, err)
	}
	if stored != `"XYZ"` {
		t.Fatalf("stored token = %s, want JSON-encoded string", stored)
	}
}

func TestInitializeLoadsPersistedToken(t *testing.T) {
	t.Parallel()

	storage := NewMemStorage()
	if err := storage.Set(widget.SessionStorageKey, `"earlier"`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	store := NewStore(storage, nil)

	cleaned, replaced := store.Initialize("https://example.com/p")
	if replaced {
		t.Fatal("expected replaced = false without a seed parameter")
	}
	if cleaned != "https://example.com/p" {
		t.Fatalf("cleaned address = %q, want input unchanged", cleaned)
	}
	if got := store.Token(); got != "earlier" {
		t.Fatalf("Token() = %q, want earlier", got)
	}
}

func TestInitializeWithoutAnySession(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemStorage(), nil)
	_, replaced := store.Initialize("https://example.com/p?x=1")
	if replaced {
		t.Fatal("expected replaced = false")
	}
	if got := store.Token(); got != "" {
		t.Fatalf("Token() = %q, want empty", got)
	}
}

func TestInitializeHealsCorruptStorage(t *testing.T) {
	t.Parallel()

	storage := NewMemStorage()
	if err := storage.Set(widget.SessionStorageKey, `not-json{`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	logger := &captureLogger{}
	store := NewStore(storage, logger)

	_, replaced := store.Initialize("https://example.com/p")
	if replaced {
		t.Fatal("expected replaced = false")
	}
	if got := store.Token(); got != "" {
		t.Fatalf("Token() = %q, want empty after corrupt state", got)
	}
	if _, found, _ := storage.Get(widget.SessionStorageKey); found {
		t.Fatal("expected corrupt state to be removed")
	}
	if !strings.Contains(logger.joined(), "Session has been invalidated.") {
		t.Fatalf("expected invalidation warning, logged: %s", logger.joined())
	}
}

func TestInvalidateIfExpiredWithSession(t *testing.T) {
	t.Parallel()

	storage := NewMemStorage()
	logger := &captureLogger{}
	store := NewStore(storage, logger)
	store.Initialize("https://example.com/p?giscus=tok")

	recreate := store.InvalidateIfExpired("Bad credentials")
	if !recreate {
		t.Fatal("expected recreate = true when a session existed")
	}
	if got := store.Token(); got != "" {
		t.Fatalf("Token() = %q, want empty after invalidation", got)
	}
	if _, found, _ := storage.Get(widget.SessionStorageKey); found {
		t.Fatal("expected stored token to be removed")
	}
	if !strings.Contains(logger.joined(), "Bad credentials. Session has been invalidated.") {
		t.Fatalf("expected invalidation warning, logged: %s", logger.joined())
	}
}

func TestInvalidateIfExpiredWithoutSession(t *testing.T) {
	t.Parallel()

	logger := &captureLogger{}
	store := NewStore(NewMemStorage(), logger)
	store.Initialize("https://example.com/p")

	recreate := store.InvalidateIfExpired("Invalid state value")
	if recreate {
		t.Fatal("expected recreate = false without a stored session")
	}
	logged := logger.joined()
	if !strings.Contains(logged, "No session is stored initially.") {
		t.Fatalf("expected no-session error, logged: %s", logged)
	}
	if !strings.Contains(logged, widget.ReportSuggestion) {
		t.Fatalf("expected report suggestion, logged: %s", logged)
	}
}
