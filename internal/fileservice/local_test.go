package fileservice

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pictor/internal/logging"
	"pictor/internal/testsupport"
)

func collector() (EventFunc, chan Event) {
	ch := make(chan Event, 32)
	return func(event Event) { ch <- event }, ch
}

func waitEvent(t *testing.T, ch chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func expectQuiet(t *testing.T, ch chan Event, window time.Duration) {
	t.Helper()
	select {
	case event := <-ch:
		t.Fatalf("unexpected event %+v", event)
	case <-time.After(window):
	}
}

func TestLocalDebounceCoalescesWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := newLocalService(cfg, logging.NewNop())
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fn, events := collector()
	if err := svc.Watch(ctx, cfg.Paths.WatchDir, fn); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	path := filepath.Join(cfg.Paths.WatchDir, "burst.png")
	for i := 0; i < 3; i++ {
		testsupport.WriteFile(t, path, int64(512*(i+1)))
		time.Sleep(5 * time.Millisecond)
	}

	event := waitEvent(t, events, 3*time.Second)
	if event.Type != EventCreated {
		t.Fatalf("event type = %q, want created", event.Type)
	}
	if event.Path != path {
		t.Fatalf("event path = %q, want %q", event.Path, path)
	}
	if event.Info == nil || event.Info.Size != 1536 {
		t.Fatalf("expected stabilized final size, got %+v", event.Info)
	}

	// The three rapid writes collapse into a single creation.
	expectQuiet(t, events, 300*time.Millisecond)
}

func TestLocalDeleteCancelsPendingCreate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := newLocalService(cfg, logging.NewNop())
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fn, events := collector()
	if err := svc.Watch(ctx, cfg.Paths.WatchDir, fn); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	path := filepath.Join(cfg.Paths.WatchDir, "gone.png")
	testsupport.WriteFile(t, path, 256)
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	event := waitEvent(t, events, 3*time.Second)
	if event.Type != EventDeleted || event.Path != path {
		t.Fatalf("unexpected event %+v", event)
	}
	expectQuiet(t, events, 300*time.Millisecond)
}

func TestLocalIgnoresNonImageFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := newLocalService(cfg, logging.NewNop())
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fn, events := collector()
	if err := svc.Watch(ctx, cfg.Paths.WatchDir, fn); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.WatchDir, "notes.txt"), 128)
	expectQuiet(t, events, 300*time.Millisecond)
}

func TestLocalList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := newLocalService(cfg, logging.NewNop())
	defer svc.Close()

	testsupport.WriteImage(t, cfg.Paths.WatchDir, "a.png")
	testsupport.WriteImage(t, cfg.Paths.WatchDir, "b.jpg")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.WatchDir, "skip.txt"), 64)

	infos, err := svc.List(context.Background(), cfg.Paths.WatchDir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	for _, info := range infos {
		if info.Size == 0 || info.Modified == 0 {
			t.Fatalf("listing missing stat info: %+v", info)
		}
	}
}

func TestWaitStableRejectsEmptyFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := newLocalService(cfg, logging.NewNop())
	defer svc.Close()

	path := filepath.Join(cfg.Paths.WatchDir, "empty.png")
	testsupport.WriteFile(t, path, 0)

	if _, err := svc.waitStable(context.Background(), path); err == nil {
		t.Fatal("expected error for a file that never reaches a stable non-zero size")
	}
}

func TestWatchReplacesPreviousWatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := newLocalService(cfg, logging.NewNop())

	ctx := context.Background()
	firstFn, firstEvents := collector()
	if err := svc.Watch(ctx, cfg.Paths.WatchDir, firstFn); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	otherDir := t.TempDir()
	secondFn, secondEvents := collector()
	if err := svc.Watch(ctx, otherDir, secondFn); err != nil {
		t.Fatalf("second Watch: %v", err)
	}

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.WatchDir, "stale.png"), 64)
	expectQuiet(t, firstEvents, 300*time.Millisecond)

	path := filepath.Join(otherDir, "fresh.png")
	testsupport.WriteFile(t, path, 64)
	event := waitEvent(t, secondEvents, 3*time.Second)
	if event.Type != EventCreated || event.Path != path {
		t.Fatalf("unexpected event %+v", event)
	}

	done := make(chan struct{})
	go func() {
		_ = svc.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return after the watch was replaced")
	}
}

func TestCloseSuppressesPendingCreate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := newLocalService(cfg, logging.NewNop())

	fn, events := collector()
	if err := svc.Watch(context.Background(), cfg.Paths.WatchDir, fn); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.WatchDir, "late.png"), 64)
	time.Sleep(15 * time.Millisecond)

	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	expectQuiet(t, events, 300*time.Millisecond)
}

func TestNewRejectsUnknownMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.FileService.Mode = "carrier-pigeon"
	if _, err := New(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
