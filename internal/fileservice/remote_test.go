package fileservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pictor/internal/logging"
	"pictor/internal/testsupport"
)

type fakeListing struct {
	mu     sync.Mutex
	images []remoteImage
}

func (f *fakeListing) set(images ...remoteImage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = images
}

func (f *fakeListing) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/files/list" {
			http.NotFound(w, r)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(remoteListing{Images: f.images})
	})
}

func newRemoteForTest(t *testing.T, listing *fakeListing) *remoteService {
	t.Helper()
	server := httptest.NewServer(listing.handler())
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteMode(server.URL))
	svc := newRemoteService(cfg, logging.NewNop())
	svc.interval = 25 * time.Millisecond
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestRemoteDiffEmitsCreatedAndDeleted(t *testing.T) {
	listing := &fakeListing{}
	listing.set(remoteImage{Filename: "seed.png", Size: 100, Modified: 1000})
	svc := newRemoteForTest(t, listing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fn, events := collector()
	if err := svc.Watch(ctx, "", fn); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// The seed file is part of the initial known set; no event for it.
	expectQuiet(t, events, 100*time.Millisecond)

	listing.set(
		remoteImage{Filename: "seed.png", Size: 100, Modified: 1000},
		remoteImage{Filename: "fresh.png", Size: 200, Modified: 2000},
	)
	event := waitEvent(t, events, 2*time.Second)
	if event.Type != EventCreated || event.Path != "fresh.png" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Info == nil || event.Info.Modified != 2000 {
		t.Fatalf("expected listing info, got %+v", event.Info)
	}

	listing.set(remoteImage{Filename: "fresh.png", Size: 200, Modified: 2000})
	event = waitEvent(t, events, 2*time.Second)
	if event.Type != EventDeleted || event.Path != "seed.png" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestRemoteLargerMtimeTreatedAsCreated(t *testing.T) {
	listing := &fakeListing{}
	listing.set(remoteImage{Filename: "grow.png", Size: 100, Modified: 1000})
	svc := newRemoteForTest(t, listing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fn, events := collector()
	if err := svc.Watch(ctx, "", fn); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	listing.set(remoteImage{Filename: "grow.png", Size: 150, Modified: 1500})
	event := waitEvent(t, events, 2*time.Second)
	if event.Type != EventCreated || event.Path != "grow.png" {
		t.Fatalf("unexpected event %+v", event)
	}

	// A stable listing produces no further events.
	expectQuiet(t, events, 100*time.Millisecond)
}

func TestRemoteListFiltersExtensions(t *testing.T) {
	listing := &fakeListing{}
	listing.set(
		remoteImage{Filename: "keep.webp", Size: 10, Modified: 1},
		remoteImage{Filename: "skip.bin", Size: 10, Modified: 1},
	)
	svc := newRemoteForTest(t, listing)

	infos, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "keep.webp" {
		t.Fatalf("unexpected listing %+v", infos)
	}
}

func TestRemoteListErrorOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteMode(server.URL))
	svc := newRemoteService(cfg, logging.NewNop())
	if _, err := svc.List(context.Background(), ""); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestRemoteWatchReplacesPreviousWatch(t *testing.T) {
	listing := &fakeListing{}
	listing.set(remoteImage{Filename: "seed.png", Size: 100, Modified: 1000})
	svc := newRemoteForTest(t, listing)

	ctx := context.Background()
	firstFn, firstEvents := collector()
	if err := svc.Watch(ctx, "", firstFn); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	secondFn, secondEvents := collector()
	if err := svc.Watch(ctx, "", secondFn); err != nil {
		t.Fatalf("second Watch: %v", err)
	}

	listing.set(
		remoteImage{Filename: "seed.png", Size: 100, Modified: 1000},
		remoteImage{Filename: "next.png", Size: 200, Modified: 2000},
	)

	event := waitEvent(t, secondEvents, 3*time.Second)
	if event.Type != EventCreated || event.Path != "next.png" {
		t.Fatalf("unexpected event %+v", event)
	}
	expectQuiet(t, firstEvents, 100*time.Millisecond)

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

func TestDiffListingsReplacesKnownSetAtomically(t *testing.T) {
	fn, events := collector()

	known := diffListings(nil, []FileInfo{{Name: "a.png", Path: "a.png", Modified: 1}}, fn)
	if event := waitEvent(t, events, time.Second); event.Type != EventCreated {
		t.Fatalf("unexpected event %+v", event)
	}

	// Re-diffing the same listing against the returned set is silent.
	known = diffListings(known, []FileInfo{{Name: "a.png", Path: "a.png", Modified: 1}}, fn)
	expectQuiet(t, events, 50*time.Millisecond)

	diffListings(known, nil, fn)
	if event := waitEvent(t, events, time.Second); event.Type != EventDeleted || event.Path != "a.png" {
		t.Fatalf("unexpected event %+v", event)
	}
}
