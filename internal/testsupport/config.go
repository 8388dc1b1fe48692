package testsupport

import (
	"path/filepath"
	"testing"

	"pictor/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.WatchDir = filepath.Join(base, "images")
	cfgVal.Paths.TemplatesDir = filepath.Join(base, "templates")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.FileService.DebounceMillis = 40
	cfgVal.FileService.StabilizeMillis = 10
	cfgVal.FileService.PollIntervalSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("prepare config directories: %v", err)
	}
	return builder.cfg
}

// WithRemoteMode points the config at a remote listing endpoint.
func WithRemoteMode(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FileService.Mode = config.ModeRemote
		b.cfg.FileService.RemoteURL = url
	}
}

// WithWatchDir overrides the watched directory on the test config.
func WithWatchDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.WatchDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
