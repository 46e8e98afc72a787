package async

import (
	"strings"
	"sync"
	"testing"
	"time"
)

type stubPanicLogger struct {
	mu    sync.Mutex
	lines []string
}

func (s *stubPanicLogger) Error(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, format)
}

func (s *stubPanicLogger) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

func TestGoRecoversPanics(t *testing.T) {
	logger := &stubPanicLogger{}
	done := make(chan struct{})

	Go(logger, "boom", func() {
		defer close(done)
		panic("exploded")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not finish")
	}

	// Recovery runs after the deferred close; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for {
		lines := logger.snapshot()
		if len(lines) == 1 {
			if !strings.Contains(lines[0], "goroutine panic [%s]") {
				t.Fatalf("unexpected log format %q", lines[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected one panic log, got %d", len(lines))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGoRunsFunction(t *testing.T) {
	logger := &stubPanicLogger{}
	result := make(chan int, 1)

	Go(logger, "work", func() { result <- 42 })

	select {
	case got := <-result:
		if got != 42 {
			t.Fatalf("got %d, want 42", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not run")
	}

	if lines := logger.snapshot(); len(lines) != 0 {
		t.Fatalf("unexpected panic logs: %v", lines)
	}
}

func TestRecoverWithNilLoggerDoesNotPanic(t *testing.T) {
	func() {
		defer Recover(nil, "quiet")
		panic("swallowed")
	}()
}
