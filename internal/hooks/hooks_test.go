package hooks_test

import (
	"context"
	"errors"
	"testing"

	"pictor/internal/hooks"
	"pictor/internal/logging"
)

type fakeExtractor struct {
	name   string
	fields map[string]string
	err    error
	calls  *[]string
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(ctx context.Context, req hooks.Request) (map[string]string, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	return f.fields, f.err
}

func TestRunExecutesAlphabetically(t *testing.T) {
	var calls []string
	reg := hooks.NewRegistry(logging.NewNop())
	reg.Register(&fakeExtractor{name: "zeta", calls: &calls})
	reg.Register(&fakeExtractor{name: "alpha", calls: &calls})
	reg.Register(&fakeExtractor{name: "mid", calls: &calls})

	reg.Run(context.Background(), hooks.Request{ImagePath: "/tmp/a.png"})

	want := []string{"alpha", "mid", "zeta"}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), calls)
	}
	for i, name := range want {
		if calls[i] != name {
			t.Fatalf("call order %v, want %v", calls, want)
		}
	}
}

func TestRunLaterExtractorOverrides(t *testing.T) {
	reg := hooks.NewRegistry(logging.NewNop())
	reg.Register(&fakeExtractor{name: "aaa", fields: map[string]string{"char_str": "from-aaa", "prompt": "a prompt"}})
	reg.Register(&fakeExtractor{name: "zzz", fields: map[string]string{"char_str": "from-zzz", "extra": ""}})

	fields := reg.Run(context.Background(), hooks.Request{ImagePath: "/tmp/a.png"})

	if fields["char_str"] != "from-zzz" {
		t.Fatalf("expected later extractor to win, got %q", fields["char_str"])
	}
	if fields["prompt"] != "a prompt" {
		t.Fatalf("expected earlier extractor's unchallenged key to survive, got %q", fields["prompt"])
	}
	if _, ok := fields["extra"]; ok {
		t.Fatal("empty values should not be merged")
	}
}

func TestRunUnderscoreNameRunsFirst(t *testing.T) {
	var calls []string
	reg := hooks.NewRegistry(logging.NewNop())
	reg.Register(&fakeExtractor{name: "conduit", calls: &calls, fields: map[string]string{"char_str": "sidecar"}})
	reg.Register(&fakeExtractor{name: "_default", calls: &calls, fields: map[string]string{"char_str": "stem"}})

	fields := reg.Run(context.Background(), hooks.Request{ImagePath: "/tmp/a.png"})

	if len(calls) != 2 || calls[0] != "_default" {
		t.Fatalf("expected underscore-named extractor first, got %v", calls)
	}
	if fields["char_str"] != "sidecar" {
		t.Fatalf("expected the later extractor to override the baseline, got %q", fields["char_str"])
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	reg := hooks.NewRegistry(logging.NewNop())
	reg.Register(&fakeExtractor{name: "broken", err: errors.New("boom")})
	reg.Register(&fakeExtractor{name: "working", fields: map[string]string{"prompt": "ok"}})

	fields := reg.Run(context.Background(), hooks.Request{ImagePath: "/tmp/a.png"})

	if fields["prompt"] != "ok" {
		t.Fatalf("expected surviving extractor output, got %v", fields)
	}
}

type lifecycleExtractor struct {
	fakeExtractor
	startups  *int
	shutdowns *int
}

func (l *lifecycleExtractor) OnStartup(ctx context.Context) error {
	*l.startups++
	return nil
}

func (l *lifecycleExtractor) OnShutdown(ctx context.Context) error {
	*l.shutdowns++
	return nil
}

func TestBindLifecycleRegistersExtractorHooks(t *testing.T) {
	var startups, shutdowns int
	reg := hooks.NewRegistry(logging.NewNop())
	reg.Register(&lifecycleExtractor{
		fakeExtractor: fakeExtractor{name: "managed"},
		startups:      &startups,
		shutdowns:     &shutdowns,
	})
	reg.Register(&fakeExtractor{name: "plain"})

	lc := hooks.NewLifecycle(logging.NewNop())
	reg.BindLifecycle(lc)
	lc.Startup(context.Background())
	lc.Shutdown(context.Background())

	if startups != 1 || shutdowns != 1 {
		t.Fatalf("expected one startup and one shutdown call, got %d/%d", startups, shutdowns)
	}
}

func TestLifecycleShutdownRunsInReverse(t *testing.T) {
	lc := hooks.NewLifecycle(logging.NewNop())
	var order []string
	lc.OnShutdown(func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	lc.OnShutdown(func(ctx context.Context) error {
		order = append(order, "second")
		return errors.New("ignored")
	})
	lc.OnShutdown(func(ctx context.Context) error {
		order = append(order, "third")
		return nil
	})

	lc.Shutdown(context.Background())

	if len(order) != 3 || order[0] != "third" || order[2] != "first" {
		t.Fatalf("unexpected shutdown order: %v", order)
	}
}

func TestDefaultRegistryNames(t *testing.T) {
	reg := hooks.NewDefaultRegistry(logging.NewNop())
	names := reg.Names()
	if len(names) != 2 || names[0] != "_default" || names[1] != "conduit" {
		t.Fatalf("unexpected registry names: %v", names)
	}
}
