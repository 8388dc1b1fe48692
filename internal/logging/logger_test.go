package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandlerIncludesComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	NewComponentLogger(logger, "registry").Info("record stored",
		String(FieldRegistrationID, "12345_abcd"),
	)

	line := buf.String()
	if !strings.Contains(line, "registry: record stored") {
		t.Fatalf("expected component prefix in output, got %q", line)
	}
	if !strings.Contains(line, "registration_id=12345_abcd") {
		t.Fatalf("expected flattened attr in output, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component attr should be folded into the prefix, got %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("event", String("path", "/tmp/a b.png"))

	if !strings.Contains(buf.String(), `path="/tmp/a b.png"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewJSONFormatEmitsLowercaseLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	logger, err := New(Options{Level: "warn", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("disk event dropped")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &record); err != nil {
		t.Fatalf("unmarshal log record: %v", err)
	}
	if record["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if record["msg"] != "disk event dropped" {
		t.Fatalf("unexpected msg field: %v", record["msg"])
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "evt-1")
	id, ok := CorrelationIDFromContext(ctx)
	if !ok || id != "evt-1" {
		t.Fatalf("expected correlation id evt-1, got %q ok=%v", id, ok)
	}
	if _, ok := CorrelationIDFromContext(context.Background()); ok {
		t.Fatal("expected no correlation id on bare context")
	}

	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))
	WithContext(ctx, logger).Info("handled")
	if !strings.Contains(buf.String(), "correlation_id=evt-1") {
		t.Fatalf("expected correlation id attr, got %q", buf.String())
	}
}

func TestCleanupOldLogsPrunesAgedFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "pictord-2020.log")
	fresh := filepath.Join(dir, "pictord.log")
	for _, path := range []string{old, fresh} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	aged := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, aged, aged); err != nil {
		t.Fatalf("age file: %v", err)
	}

	CleanupOldLogs(NewNop(), 7, RetentionTarget{Dir: dir, Pattern: "pictord*.log", Exclude: []string{fresh}})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected aged log removed, stat err=%v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("excluded log should remain: %v", err)
	}
}
