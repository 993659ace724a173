package oplog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendAndLoadEvents(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ops", "events.jsonl")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	start := NewStartEvent("verify", "abc123", "1.0.0", now)
	if err := AppendEvent(logPath, start); err != nil {
		t.Fatalf("append start: %v", err)
	}
	end := NewEndEvent("verify", "abc123", "1.0.0", 3, "verification_failed", false, 42*time.Millisecond, now.Add(time.Second))
	if err := AppendEvent(logPath, end); err != nil {
		t.Fatalf("append end: %v", err)
	}

	events, err := LoadEvents(logPath)
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Phase != "start" || events[0].ExitCode != 0 || events[0].ErrorCategory != "none" {
		t.Fatalf("unexpected start event: %+v", events[0])
	}
	if events[1].Phase != "end" || events[1].ExitCode != 3 || events[1].ErrorCategory != "verification_failed" {
		t.Fatalf("unexpected end event: %+v", events[1])
	}
	if events[1].ElapsedMS != 42 {
		t.Fatalf("unexpected elapsed: %d", events[1].ElapsedMS)
	}
	if events[0].Environment.OS == "" || events[0].Environment.Arch == "" {
		t.Fatal("environment not populated")
	}
}

func TestNewEventDefaults(t *testing.T) {
	event := NewStartEvent("", "", "", time.Time{})
	if event.Command != "unknown" || event.CorrelationID != "unknown" {
		t.Fatalf("missing defaults: %+v", event)
	}
	if event.ProducerVersion != "0.0.0-dev" {
		t.Fatalf("unexpected producer version: %s", event.ProducerVersion)
	}
	if event.CreatedAt.IsZero() {
		t.Fatal("created_at must be set")
	}
}

func TestNegativeElapsedClamped(t *testing.T) {
	event := NewEndEvent("sign", "abc", "1.0.0", 0, "none", false, -time.Second, time.Now())
	if event.ElapsedMS != 0 {
		t.Fatalf("expected clamped elapsed, got %d", event.ElapsedMS)
	}
}

func TestAppendRejectsUnknownCategory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.jsonl")
	event := NewEndEvent("sign", "abc", "1.0.0", 1, "made_up_category", false, 0, time.Now())
	err := AppendEvent(logPath, event)
	if err == nil || !strings.Contains(err.Error(), "error_category") {
		t.Fatalf("expected category validation error, got %v", err)
	}
}

func TestAppendRequiresPath(t *testing.T) {
	event := NewStartEvent("sign", "abc", "1.0.0", time.Now())
	if err := AppendEvent("  ", event); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.jsonl")
	if err := AppendEvent(logPath, NewStartEvent("sign", "abc", "1.0.0", time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}
	appendRaw(t, logPath, "{broken json\n")
	if _, err := LoadEvents(logPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func appendRaw(t *testing.T, path, line string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err := file.WriteString(line); err != nil {
		t.Fatalf("write raw line: %v", err)
	}
}
