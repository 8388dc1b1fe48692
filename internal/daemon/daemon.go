package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"pictor/internal/config"
	"pictor/internal/fileservice"
	"pictor/internal/hooks"
	"pictor/internal/logging"
	"pictor/internal/registry"
	"pictor/internal/state"
	"pictor/internal/subscribers"
)

// Daemon coordinates the registration pipeline and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *registry.Store
	files     fileservice.Service
	state     *state.Broadcaster
	subs      *subscribers.Manager
	lifecycle *hooks.Lifecycle

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	DatabasePath string
	LockFilePath string
	WatchDir     string
	Mode         string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *registry.Store, files fileservice.Service, broadcaster *state.Broadcaster, subs *subscribers.Manager, lifecycle *hooks.Lifecycle, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || files == nil || broadcaster == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, file service, broadcaster, and logger")
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		files:     files,
		state:     broadcaster,
		subs:      subs,
		lifecycle: lifecycle,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and brings the pipeline up: startup
// hooks, orphan cleanup, initial scan, change detection, subscribers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another pictor daemon instance is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.lifecycle != nil {
		d.lifecycle.Startup(ctx)
	}

	if d.cfg.Workflow.CleanupOnStartup {
		d.cleanupOrphans(ctx)
	}
	if d.cfg.Workflow.ScanOnStartup {
		d.initialScan(ctx)
	}
	d.seedState(ctx)

	if err := d.files.Watch(ctx, d.cfg.Paths.WatchDir, d.handleEvent); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start change detection: %w", err)
	}
	if d.subs != nil {
		d.subs.Start(ctx)
	}

	d.running.Store(true)
	d.logger.Info("pictor daemon started",
		logging.String("lock", d.lockPath),
		logging.String("mode", d.cfg.FileService.Mode),
	)
	return nil
}

// Stop tears the pipeline down in reverse order and releases the lock.
// It never returns an error; shutdown proceeds past individual failures.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.subs != nil {
		d.subs.Wait()
	}
	if err := d.files.Close(); err != nil {
		d.logger.Warn("failed to stop change detection", logging.Error(err))
	}
	if d.lifecycle != nil {
		d.lifecycle.Shutdown(context.Background())
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("pictor daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns runtime information for diagnostics.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		WatchDir:     d.cfg.Paths.WatchDir,
		Mode:         d.cfg.FileService.Mode,
	}
}
