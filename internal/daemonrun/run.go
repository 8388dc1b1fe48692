// Package daemonrun assembles and runs the pictor daemon process: logger,
// store, change detection, broadcaster, subscribers, and the IPC control
// socket.
package daemonrun

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"pictor/internal/config"
	"pictor/internal/daemon"
	"pictor/internal/fileservice"
	"pictor/internal/hooks"
	"pictor/internal/ipc"
	"pictor/internal/logging"
	"pictor/internal/registry"
	"pictor/internal/state"
	"pictor/internal/subscribers"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run builds the full pipeline from configuration and blocks until the
// context is cancelled, a termination signal arrives, or a client asks
// the daemon to stop over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logCfg := *cfg
	if opts.LogLevel != "" {
		logCfg.Logging.Level = opts.LogLevel
	}
	if opts.Development {
		logCfg.Logging.Level = "debug"
	}
	logger, err := logging.NewFromConfig(&logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "*.log",
		Exclude: []string{"pictord.log"},
	})

	extractors := hooks.NewDefaultRegistry(logger)
	store, err := registry.Open(cfg, extractors, logger)
	if err != nil {
		return fmt.Errorf("open registration store: %w", err)
	}

	files, err := fileservice.New(cfg, logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	broadcaster := state.NewBroadcaster(cfg.State.SubscriberBuffer, cfg.State.PageSize, logger)

	var manager *subscribers.Manager
	if cfg.Redis.Enabled {
		manager = subscribers.NewManager(
			subscribers.Env{Store: store, State: broadcaster, Logger: logger},
			time.Duration(cfg.Redis.ReconnectDelaySeconds)*time.Second,
			subscribers.NewRedisSubscriber(cfg),
		)
	}

	lifecycle := hooks.NewLifecycle(logger)
	extractors.BindLifecycle(lifecycle)
	if manager != nil {
		manager.BindLifecycle(lifecycle)
	}

	d, err := daemon.New(cfg, store, files, broadcaster, manager, lifecycle, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	if err := d.Start(signalCtx); err != nil {
		_ = store.Close()
		return err
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, store, broadcaster, cancel, logger)
	if err != nil {
		logger.Warn("IPC server unavailable", logging.Error(err))
	} else {
		ipcServer.Serve()
		defer ipcServer.Close()
	}

	<-signalCtx.Done()
	logger.Info("shutting down")
	return d.Close()
}
