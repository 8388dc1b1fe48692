package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pictor/internal/config"
	"pictor/internal/hooks"
	"pictor/internal/logging"
	"pictor/internal/registry"
)

func writeTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "pictor.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
watch_dir = %q
templates_dir = %q
log_dir = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "images"),
		filepath.Join(base, "templates"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfgPath, cfg
}

func seedRegistration(t *testing.T, cfg *config.Config, name string) *registry.Registration {
	t.Helper()
	store, err := registry.Open(cfg, hooks.NewDefaultRegistry(logging.NewNop()), logging.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	path := filepath.Join(cfg.Paths.WatchDir, name)
	if err := os.WriteFile(path, []byte("not a real image"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	reg, err := store.Register(context.Background(), path, registry.SourceScan, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg == nil {
		t.Fatal("expected a new registration")
	}
	return reg
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestListEmpty(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfgPath, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No registered images.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestFlagRateAndShow(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)
	reg := seedRegistration(t, cfg, "hero.png")

	if _, err := runCLI(t, "--config", cfgPath, "flag", reg.ID); err != nil {
		t.Fatalf("flag: %v", err)
	}
	// Out-of-range ratings clamp to the valid range.
	if _, err := runCLI(t, "--config", cfgPath, "rate", reg.ID, "5"); err != nil {
		t.Fatalf("rate: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "show", reg.ID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "Flagged:  true") {
		t.Fatalf("flag not shown:\n%s", out)
	}
	if !strings.Contains(out, "Rating:   1") {
		t.Fatalf("clamped rating not shown:\n%s", out)
	}
	if !strings.Contains(out, reg.ImagePath) {
		t.Fatalf("path not shown:\n%s", out)
	}
}

func TestShowByPath(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)
	reg := seedRegistration(t, cfg, "lookup.png")

	out, err := runCLI(t, "--config", cfgPath, "show", reg.ImagePath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "ID:       "+reg.ID) {
		t.Fatalf("path lookup failed:\n%s", out)
	}
}

func TestFlagToggle(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)
	reg := seedRegistration(t, cfg, "toggled.png")

	out, err := runCLI(t, "--config", cfgPath, "flag", "--toggle", reg.ID)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !strings.Contains(out, "Flagged "+reg.ID) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "flag", "--toggle", reg.ID)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if !strings.Contains(out, "Cleared flag on "+reg.ID) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, err := runCLI(t, "--config", cfgPath, "flag", "--toggle", "--clear", reg.ID); err == nil {
		t.Fatal("expected toggle and clear to be mutually exclusive")
	}
}

func TestFlagUnknownID(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	if _, err := runCLI(t, "--config", cfgPath, "flag", "nope"); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestDeleteCommand(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)
	reg := seedRegistration(t, cfg, "unwanted.png")

	out, err := runCLI(t, "--config", cfgPath, "delete", reg.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "Deleted "+reg.ID) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(reg.ImagePath); err != nil {
		t.Fatalf("image file should survive deletion: %v", err)
	}

	if _, err := runCLI(t, "--config", cfgPath, "delete", reg.ID); err == nil {
		t.Fatal("expected error deleting an already-removed registration")
	}
}

func TestCleanupDryRunThenReal(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)
	reg := seedRegistration(t, cfg, "doomed.png")
	if err := os.Remove(reg.ImagePath); err != nil {
		t.Fatalf("remove: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "cleanup", "--dry-run")
	if err != nil {
		t.Fatalf("cleanup dry-run: %v", err)
	}
	if !strings.Contains(out, "none removed (dry run)") {
		t.Fatalf("unexpected dry-run output:\n%s", out)
	}

	showOut, err := runCLI(t, "--config", cfgPath, "show", reg.ID)
	if err != nil {
		t.Fatalf("show after dry-run: %v", err)
	}
	if !strings.Contains(showOut, reg.ID) {
		t.Fatal("dry run must not delete rows")
	}

	out, err = runCLI(t, "--config", cfgPath, "cleanup")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if !strings.Contains(out, "Removed 1 orphaned registration(s)") {
		t.Fatalf("unexpected cleanup output:\n%s", out)
	}
	if _, err := runCLI(t, "--config", cfgPath, "show", reg.ID); err == nil {
		t.Fatal("expected show to fail after cleanup")
	}
}

func TestStats(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)
	seedRegistration(t, cfg, "one.png")
	seedRegistration(t, cfg, "two.png")

	out, err := runCLI(t, "--config", cfgPath, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Total") || !strings.Contains(out, "2") {
		t.Fatalf("unexpected stats output:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCLI(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "pictor") {
		t.Fatalf("unexpected version output:\n%s", out)
	}
}
