package fileservice

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"pictor/internal/config"
	"pictor/internal/logging"
)

// localService watches a directory with fsnotify, coalescing rapid writes
// to the same path behind a debounce timer and waiting for the file size
// to stop growing before reporting a creation. When fsnotify cannot be
// initialized it degrades to a polling loop over directory listings.
type localService struct {
	cfg    *config.Config
	logger *slog.Logger

	debounce      time.Duration
	stabilize     time.Duration
	maxStabChecks int

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newLocalService(cfg *config.Config, logger *slog.Logger) *localService {
	return &localService{
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "fileservice"),
		debounce:      time.Duration(cfg.FileService.DebounceMillis) * time.Millisecond,
		stabilize:     time.Duration(cfg.FileService.StabilizeMillis) * time.Millisecond,
		maxStabChecks: cfg.FileService.StabilizeMaxChecks,
		timers:        make(map[string]*time.Timer),
	}
}

func (s *localService) Watch(ctx context.Context, dir string, fn EventFunc) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}

	// A second Watch replaces the first: the previous watch is stopped
	// and its goroutines drained before the new one starts.
	s.stopWatch()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return errors.New("local file service closed")
	}
	s.cancel = cancel
	s.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(dir)
		if err != nil {
			_ = watcher.Close()
		}
	}
	if err != nil {
		s.logger.Warn("fsnotify unavailable; falling back to polling",
			logging.String("dir", dir), logging.Error(err))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.pollLoop(ctx, dir, fn)
		}()
		return nil
	}

	s.logger.Info("watching directory", logging.String("dir", dir))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer watcher.Close()
		s.watchLoop(ctx, watcher, fn)
	}()
	return nil
}

func (s *localService) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, fn EventFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleFSEvent(ctx, event, fn)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", logging.Error(err))
		}
	}
}

func (s *localService) handleFSEvent(ctx context.Context, event fsnotify.Event, fn EventFunc) {
	if !s.cfg.ImageExtension(event.Name) {
		return
	}
	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		// Deletions fire immediately; there is nothing to stabilize.
		s.cancelTimer(event.Name)
		fn(Event{Type: EventDeleted, Path: event.Name})
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		s.armTimer(ctx, event.Name, fn)
	}
}

// armTimer starts or resets the debounce timer for path so that rapid
// successive writes collapse into a single processing pass.
func (s *localService) armTimer(ctx context.Context, path string, fn EventFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if timer, ok := s.timers[path]; ok {
		timer.Reset(s.debounce)
		return
	}
	s.timers[path] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.timers, path)
		if s.closed || ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		// Joining the WaitGroup under the lock lets Close and Watch
		// drain in-flight callbacks before they return.
		s.wg.Add(1)
		s.mu.Unlock()
		defer s.wg.Done()
		s.processCreated(ctx, path, fn)
	})
}

func (s *localService) cancelTimer(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[path]; ok {
		timer.Stop()
		delete(s.timers, path)
	}
}

func (s *localService) processCreated(ctx context.Context, path string, fn EventFunc) {
	info, err := s.waitStable(ctx, path)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("skipping unstable file",
				logging.String(logging.FieldImagePath, path), logging.Error(err))
		}
		return
	}
	// Stabilization may have finished just as the watch was stopped;
	// nothing is emitted once the context is gone.
	select {
	case <-ctx.Done():
		return
	default:
	}
	fn(Event{Type: EventCreated, Path: path, Info: info})
}

// waitStable polls the file size until two consecutive reads report the
// same non-zero size. A file that stops growing is treated as fully
// written; a file still growing after maxStabChecks reads is skipped.
func (s *localService) waitStable(ctx context.Context, path string) (*FileInfo, error) {
	var lastSize int64 = -1
	for i := 0; i < s.maxStabChecks; i++ {
		stat, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if stat.Size() > 0 && stat.Size() == lastSize {
			return &FileInfo{
				Name:     stat.Name(),
				Path:     path,
				Size:     stat.Size(),
				Modified: float64(stat.ModTime().UnixNano()) / float64(time.Second),
			}, nil
		}
		lastSize = stat.Size()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.stabilize):
		}
	}
	return nil, errors.New("file size did not stabilize")
}

// pollLoop diffs directory listings on the configured interval. It backs
// the degraded mode used when fsnotify cannot watch the directory.
func (s *localService) pollLoop(ctx context.Context, dir string, fn EventFunc) {
	interval := time.Duration(s.cfg.FileService.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	known := make(map[string]FileInfo)
	if listing, err := s.List(ctx, dir); err == nil {
		for i := range listing {
			known[listing[i].Name] = listing[i]
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			listing, err := s.List(ctx, dir)
			if err != nil {
				s.logger.Warn("poll listing failed", logging.String("dir", dir), logging.Error(err))
				continue
			}
			known = diffListings(known, listing, fn)
		}
	}
}

func (s *localService) List(_ context.Context, dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !s.cfg.ImageExtension(entry.Name()) {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		infos = append(infos, FileInfo{
			Name:     entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
			Size:     stat.Size(),
			Modified: float64(stat.ModTime().UnixNano()) / float64(time.Second),
		})
	}
	return infos, nil
}

// stopWatch cancels the active watch, stops pending debounce timers, and
// waits for the watch goroutines and in-flight callbacks to finish.
func (s *localService) stopWatch() {
	s.mu.Lock()
	for path, timer := range s.timers {
		timer.Stop()
		delete(s.timers, path)
	}
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *localService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stopWatch()
	return nil
}
