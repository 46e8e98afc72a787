package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

type captureLogger struct {
	lines []string
}

func (c *captureLogger) record(level, format string, args ...any) {
	c.lines = append(c.lines, level+" "+fmt.Sprintf(format, args...))
}

func (c *captureLogger) Debug(format string, args ...any) { c.record("DEBUG", format, args...) }
func (c *captureLogger) Info(format string, args ...any)  { c.record("INFO", format, args...) }
func (c *captureLogger) Warn(format string, args ...any)  { c.record("WARN", format, args...) }
func (c *captureLogger) Error(format string, args ...any) { c.record("ERROR", format, args...) }

func TestOrNopHandlesTypedNilPointers(t *testing.T) {
	var typed *writerLogger
	var logger Logger = typed
	if !IsNil(logger) {
		t.Fatalf("expected typed nil pointer to be detected")
	}
	safe := OrNop(logger)
	if IsNil(safe) {
		t.Fatalf("expected OrNop to return a usable logger")
	}
	safe.Info("hello %s", "world") // should not panic
}

func TestWriterLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(buf, LevelWarn)

	logger.Debug("quiet %d", 1)
	logger.Info("quiet %d", 2)
	logger.Warn("loud %d", 3)
	logger.Error("loud %d", 4)

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("expected debug/info to be suppressed, got %q", out)
	}
	if !strings.Contains(out, "loud 3") || !strings.Contains(out, "loud 4") {
		t.Fatalf("expected warn/error output, got %q", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected level markers, got %q", out)
	}
}

func TestWithComponentTagsLines(t *testing.T) {
	buf := &bytes.Buffer{}
	base := New(buf, LevelDebug)

	scoped := WithComponent(base, "Relay")
	scoped.Info("ready")

	if !strings.Contains(buf.String(), "[Relay]") {
		t.Fatalf("expected component tag, got %q", buf.String())
	}
}

func TestWithComponentWrapsForeignLoggers(t *testing.T) {
	capture := &captureLogger{}
	scoped := WithComponent(capture, "Host")
	scoped.Warn("state %s", "attached")

	if len(capture.lines) != 1 {
		t.Fatalf("expected one line, got %d", len(capture.lines))
	}
	if want := "WARN [Host] state attached"; capture.lines[0] != want {
		t.Fatalf("got %q, want %q", capture.lines[0], want)
	}
}

func TestMultiFansOutAndFlattens(t *testing.T) {
	first := &captureLogger{}
	second := &captureLogger{}

	inner := Multi(first, nil)
	logger := Multi(inner, second)
	logger.Info("hello %s", "world")

	if len(first.lines) != 1 || len(second.lines) != 1 {
		t.Fatalf("expected fan-out to both loggers, got %d and %d", len(first.lines), len(second.lines))
	}
}

func TestMultiWithNoLoggersIsNop(t *testing.T) {
	logger := Multi(nil, nil)
	logger.Error("ignored")
	if _, ok := logger.(nopLogger); !ok {
		t.Fatalf("expected nop logger, got %T", logger)
	}
}
