package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFileService()
	c.normalizeRedis()
	c.normalizeState()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TemplatesDir) == "" {
		c.Paths.TemplatesDir = defaultTemplatesDir
	}
	if c.Paths.TemplatesDir, err = expandPath(c.Paths.TemplatesDir); err != nil {
		return fmt.Errorf("paths.templates_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFileService() {
	c.FileService.Mode = strings.ToLower(strings.TrimSpace(c.FileService.Mode))
	if c.FileService.Mode == "" {
		c.FileService.Mode = ModeLocal
	}
	c.FileService.RemoteURL = strings.TrimSpace(c.FileService.RemoteURL)
	if c.FileService.PollIntervalSeconds <= 0 {
		c.FileService.PollIntervalSeconds = defaultPollInterval
	}
	if c.FileService.DebounceMillis <= 0 {
		c.FileService.DebounceMillis = defaultDebounceMillis
	}
	if c.FileService.StabilizeMillis <= 0 {
		c.FileService.StabilizeMillis = defaultStabilizeMillis
	}
	if c.FileService.StabilizeMaxChecks <= 0 {
		c.FileService.StabilizeMaxChecks = defaultStabilizeMaxChecks
	}

	if len(c.FileService.Extensions) == 0 {
		c.FileService.Extensions = defaultExtensions()
		return
	}
	exts := make([]string, 0, len(c.FileService.Extensions))
	seen := make(map[string]struct{}, len(c.FileService.Extensions))
	for _, ext := range c.FileService.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = defaultExtensions()
	}
	c.FileService.Extensions = exts
}

func (c *Config) normalizeRedis() {
	c.Redis.URL = strings.TrimSpace(c.Redis.URL)
	if c.Redis.URL == "" {
		if value, ok := os.LookupEnv("PICTOR_REDIS_URL"); ok {
			c.Redis.URL = strings.TrimSpace(value)
		}
	}
	if c.Redis.URL == "" {
		c.Redis.URL = defaultRedisURL
	}
	c.Redis.Channel = strings.TrimSpace(c.Redis.Channel)
	if c.Redis.Channel == "" {
		c.Redis.Channel = defaultRedisChannel
	}
	if c.Redis.ReconnectDelaySeconds <= 0 {
		c.Redis.ReconnectDelaySeconds = defaultReconnectDelay
	}
}

func (c *Config) normalizeState() {
	if c.State.PageSize <= 0 {
		c.State.PageSize = defaultPageSize
	}
	if c.State.SubscriberBuffer <= 0 {
		c.State.SubscriberBuffer = defaultSubscriberBuffer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
