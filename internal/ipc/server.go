package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"pictor/internal/config"
	"pictor/internal/daemon"
	"pictor/internal/logging"
	"pictor/internal/registry"
	"pictor/internal/state"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown
// is invoked when a client requests a daemon stop; it must not block.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, store *registry.Store, broadcaster *state.Broadcaster, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil || store == nil {
		return nil, errors.New("ipc server requires daemon and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, store: store, state: broadcaster, shutdown: shutdown, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Pictor", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path), logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	store    *registry.Store
	state    *state.Broadcaster
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.Mode = status.Mode
	resp.WatchDir = status.WatchDir
	resp.LockPath = status.LockFilePath
	resp.DatabasePath = status.DatabasePath
	resp.PID = os.Getpid()
	if s.state != nil {
		snapshot := s.state.FullState()
		resp.TotalImages = snapshot.State.TotalImages
		resp.Generating = snapshot.State.Generation.Active
	}
	return nil
}

func (s *service) Stats(_ StatsRequest, resp *StatsResponse) error {
	stats, err := s.store.Stats(s.ctx)
	if err != nil {
		return err
	}
	resp.Total = stats.Total
	resp.Flagged = stats.Flagged
	resp.Rated = stats.Rated
	resp.BySource = stats.BySource
	return nil
}

func (s *service) Cleanup(req CleanupRequest, resp *CleanupResponse) error {
	status := s.daemon.Status()
	if status.Mode != config.ModeLocal {
		return errors.New("orphan cleanup requires a local artifact root")
	}
	report, err := s.store.CleanupOrphans(s.ctx, status.WatchDir, req.DryRun)
	if err != nil {
		return err
	}
	resp.Orphaned = report.Orphaned
	resp.Deleted = report.Deleted
	resp.DryRun = report.DryRun
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.store.CheckHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TableExists = health.TableExists
	resp.ColumnsPresent = health.ColumnsPresent
	resp.MissingColumns = health.MissingColumns
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalRows = health.TotalRows
	resp.Error = health.Error
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested via IPC")
	if s.shutdown != nil {
		go s.shutdown()
	}
	resp.Stopping = true
	return nil
}
