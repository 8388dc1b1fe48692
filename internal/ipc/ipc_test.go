package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pictor/internal/daemon"
	"pictor/internal/fileservice"
	"pictor/internal/hooks"
	"pictor/internal/ipc"
	"pictor/internal/logging"
	"pictor/internal/registry"
	"pictor/internal/state"
	"pictor/internal/testsupport"
)

type harness struct {
	store      *registry.Store
	socketPath string
	stopped    chan struct{}
	watchDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	files, err := fileservice.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("fileservice.New: %v", err)
	}
	broadcaster := state.NewBroadcaster(8, cfg.State.PageSize, logging.NewNop())
	d, err := daemon.New(cfg, store, files, broadcaster, nil, hooks.NewLifecycle(logging.NewNop()), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	stopped := make(chan struct{})
	socketPath := filepath.Join(testsupport.BaseDir(cfg), "pictor.sock")
	server, err := ipc.NewServer(context.Background(), socketPath, d, store, broadcaster,
		func() { close(stopped) }, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	return &harness{store: store, socketPath: socketPath, stopped: stopped, watchDir: cfg.Paths.WatchDir}
}

func dial(t *testing.T, path string) *ipc.Client {
	t.Helper()
	client, err := ipc.Dial(path)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStatusRoundTrip(t *testing.T) {
	h := newHarness(t)
	client := dial(t, h.socketPath)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("daemon was never started")
	}
	if status.Mode != "local" {
		t.Fatalf("mode = %q, want local", status.Mode)
	}
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d, want %d", status.PID, os.Getpid())
	}
}

func TestStatsAndCleanup(t *testing.T) {
	h := newHarness(t)
	client := dial(t, h.socketPath)

	path := testsupport.WriteImage(t, h.watchDir, "kept.png")
	testsupport.Register(t, h.store, path, registry.SourceScan)

	orphan := filepath.Join(h.watchDir, "gone.png")
	testsupport.WriteFile(t, orphan, 32)
	testsupport.Register(t, h.store, orphan, registry.SourceScan)
	if err := os.Remove(orphan); err != nil {
		t.Fatalf("remove: %v", err)
	}

	stats, err := client.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("total = %d, want 2", stats.Total)
	}

	report, err := client.Cleanup(true)
	if err != nil {
		t.Fatalf("Cleanup dry-run: %v", err)
	}
	if len(report.Orphaned) != 1 || report.Deleted != 0 || !report.DryRun {
		t.Fatalf("unexpected dry-run report %+v", report)
	}

	report, err = client.Cleanup(false)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if report.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", report.Deleted)
	}
}

func TestDatabaseHealth(t *testing.T) {
	h := newHarness(t)
	client := dial(t, h.socketPath)

	health, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth: %v", err)
	}
	if !health.DatabaseExists || !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("unexpected health %+v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("missing columns: %v", health.MissingColumns)
	}
}

func TestStopInvokesShutdown(t *testing.T) {
	h := newHarness(t)
	client := dial(t, h.socketPath)

	resp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !resp.Stopping {
		t.Fatal("expected stopping response")
	}
	select {
	case <-h.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback never fired")
	}
}
