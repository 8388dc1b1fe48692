package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFileService(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	return c.validateState()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateFileService() error {
	switch c.FileService.Mode {
	case ModeLocal:
		if strings.TrimSpace(c.Paths.WatchDir) == "" {
			return errors.New("paths.watch_dir must be set when file_service.mode is \"local\"")
		}
	case ModeRemote:
		if c.FileService.RemoteURL == "" {
			return errors.New("file_service.remote_url must be set when file_service.mode is \"remote\"")
		}
		if _, err := url.Parse(c.FileService.RemoteURL); err != nil {
			return fmt.Errorf("file_service.remote_url: %w", err)
		}
	default:
		return fmt.Errorf("file_service.mode must be %q or %q, got %q", ModeLocal, ModeRemote, c.FileService.Mode)
	}
	if err := ensurePositiveMap(map[string]int{
		"file_service.poll_interval_seconds": c.FileService.PollIntervalSeconds,
		"file_service.debounce_millis":       c.FileService.DebounceMillis,
		"file_service.stabilize_millis":      c.FileService.StabilizeMillis,
		"file_service.stabilize_max_checks":  c.FileService.StabilizeMaxChecks,
	}); err != nil {
		return err
	}
	if len(c.FileService.Extensions) == 0 {
		return errors.New("file_service.extensions must include at least one extension")
	}
	return nil
}

func (c *Config) validateRedis() error {
	if !c.Redis.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		return errors.New("redis.url must be set when redis.enabled is true")
	}
	if strings.TrimSpace(c.Redis.Channel) == "" {
		return errors.New("redis.channel must be set when redis.enabled is true")
	}
	if c.Redis.ReconnectDelaySeconds <= 0 {
		return errors.New("redis.reconnect_delay_seconds must be positive")
	}
	return nil
}

func (c *Config) validateState() error {
	return ensurePositiveMap(map[string]int{
		"state.page_size":         c.State.PageSize,
		"state.subscriber_buffer": c.State.SubscriberBuffer,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
