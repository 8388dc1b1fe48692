package fileservice

import (
	"context"
	"fmt"

	"log/slog"

	"pictor/internal/config"
)

// EventType classifies a detected change.
type EventType string

// Change event kinds.
const (
	EventCreated EventType = "created"
	EventDeleted EventType = "deleted"
)

// FileInfo describes one listed artifact. Modified is unix seconds as a
// float, matching registration timestamps.
type FileInfo struct {
	Name     string
	Path     string
	Size     int64
	Modified float64
}

// Event is one detected artifact change. Info is populated for created
// events when stat information is available.
type Event struct {
	Type EventType
	Path string
	Info *FileInfo
}

// EventFunc receives detected changes. Implementations must not block for
// long periods; slow handlers delay subsequent events for the same source.
type EventFunc func(Event)

// Service detects artifact changes in one directory.
type Service interface {
	// Watch begins change detection for dir and invokes fn for each event.
	// It returns after setup; detection runs until ctx is cancelled or
	// Close is called.
	Watch(ctx context.Context, dir string, fn EventFunc) error
	// List returns the current artifacts under dir.
	List(ctx context.Context, dir string) ([]FileInfo, error)
	// Close stops detection. It is safe to call more than once.
	Close() error
}

// New returns the detector selected by the configuration mode.
func New(cfg *config.Config, logger *slog.Logger) (Service, error) {
	switch cfg.FileService.Mode {
	case config.ModeLocal:
		return newLocalService(cfg, logger), nil
	case config.ModeRemote:
		return newRemoteService(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown file service mode %q", cfg.FileService.Mode)
	}
}

// diffListings compares a fresh listing against the previously known set
// and emits created events for new names or names with a larger modified
// timestamp, then deleted events for names that vanished. It returns the
// new known set; callers replace their copy wholesale so an event is never
// reported twice across cycles.
func diffListings(known map[string]FileInfo, listing []FileInfo, fn EventFunc) map[string]FileInfo {
	current := make(map[string]FileInfo, len(listing))
	for i := range listing {
		info := listing[i]
		current[info.Name] = info
		prev, seen := known[info.Name]
		if !seen || prev.Modified < info.Modified {
			fn(Event{Type: EventCreated, Path: info.Path, Info: &info})
		}
	}
	for name, prev := range known {
		if _, ok := current[name]; !ok {
			fn(Event{Type: EventDeleted, Path: prev.Path})
		}
	}
	return current
}
