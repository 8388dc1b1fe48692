package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	WatchDir     string `toml:"watch_dir"`
	TemplatesDir string `toml:"templates_dir"`
	LogDir       string `toml:"log_dir"`
}

// FileService configures how image changes are detected.
type FileService struct {
	// Mode selects the detector implementation: "local" or "remote".
	Mode                string   `toml:"mode"`
	RemoteURL           string   `toml:"remote_url"`
	PollIntervalSeconds int      `toml:"poll_interval_seconds"`
	DebounceMillis      int      `toml:"debounce_millis"`
	StabilizeMillis     int      `toml:"stabilize_millis"`
	StabilizeMaxChecks  int      `toml:"stabilize_max_checks"`
	Extensions          []string `toml:"extensions"`
}

// Redis configures the external event subscriber.
type Redis struct {
	Enabled               bool   `toml:"enabled"`
	URL                   string `toml:"url"`
	Channel               string `toml:"channel"`
	ReconnectDelaySeconds int    `toml:"reconnect_delay_seconds"`
}

// State configures the broadcaster.
type State struct {
	PageSize         int `toml:"page_size"`
	SubscriberBuffer int `toml:"subscriber_buffer"`
}

// Workflow contains daemon startup behaviour.
type Workflow struct {
	ScanOnStartup    bool `toml:"scan_on_startup"`
	CleanupOnStartup bool `toml:"cleanup_on_startup"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for pictor.
//
// Configuration sections by subsystem:
//   - Paths: data, watch, templates, and log directories
//   - FileService: local watch vs remote polling detection
//   - Redis: external completion-event subscription
//   - State: broadcast page size and subscriber buffering
//   - Workflow: startup scan and orphan cleanup toggles
//   - Logging: log format, level, and retention
type Config struct {
	Paths       Paths       `toml:"paths"`
	FileService FileService `toml:"file_service"`
	Redis       Redis       `toml:"redis"`
	State       State       `toml:"state"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pictor/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pictor.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The watch directory is created on a best-effort basis so the daemon can
// start while external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.WatchDir) != "" && c.FileService.Mode == ModeLocal {
		_ = os.MkdirAll(c.Paths.WatchDir, 0o755)
	}
	return nil
}

// DatabasePath returns the location of the registration database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "pictor.db")
}

// LockPath returns the location of the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "pictord.lock")
}

// SocketPath returns the location of the daemon control socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "pictord.sock")
}

// ImageExtension reports whether name carries a recognized image extension.
func (c *Config) ImageExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, allowed := range c.FileService.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
