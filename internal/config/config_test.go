package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pictor/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "pictor")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.WatchDir != filepath.Join(tempHome, "pictures", "generated") {
		t.Fatalf("unexpected watch dir: %q", cfg.Paths.WatchDir)
	}
	if cfg.FileService.Mode != config.ModeLocal {
		t.Fatalf("unexpected mode: %q", cfg.FileService.Mode)
	}
	if cfg.Redis.Enabled {
		t.Fatal("expected redis disabled by default")
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "pictor.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
watch_dir = "` + filepath.Join(dir, "images") + `"

[file_service]
mode = "Remote"
remote_url = "http://render-box:8188"
extensions = [".PNG", "png", "", "jpg"]

[logging]
level = "DEBUG"
format = "weird"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved=%q exists=true, got %q %v", path, resolved, exists)
	}
	if cfg.FileService.Mode != config.ModeRemote {
		t.Fatalf("mode not normalized: %q", cfg.FileService.Mode)
	}
	if got := cfg.FileService.Extensions; len(got) != 2 || got[0] != "png" || got[1] != "jpg" {
		t.Fatalf("extensions not deduped: %v", got)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level not lowered: %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unknown format should fall back to console, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsRemoteWithoutURL(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WatchDir = ""
	cfg.FileService.Mode = config.ModeRemote
	cfg.FileService.RemoteURL = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "remote_url") {
		t.Fatalf("expected remote_url validation error, got %v", err)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := config.Default()
	cfg.FileService.Mode = "ftp"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "file_service.mode") {
		t.Fatalf("expected mode validation error, got %v", err)
	}
}

func TestRedisEnvFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
watch_dir = "` + filepath.Join(dir, "images") + `"

[redis]
enabled = true
url = ""
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PICTOR_REDIS_URL", "redis://event-host:6379/2")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Redis.URL != "redis://event-host:6379/2" {
		t.Fatalf("expected env fallback url, got %q", cfg.Redis.URL)
	}
}

func TestImageExtension(t *testing.T) {
	cfg := config.Default()
	if !cfg.ImageExtension("a/b/c.PNG") {
		t.Fatal("expected png to match")
	}
	if cfg.ImageExtension("notes.txt") {
		t.Fatal("txt should not match")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(raw), "[file_service]") {
		t.Fatal("sample config missing file_service section")
	}
}
