package testsupport

import (
	"context"
	"testing"

	"pictor/internal/config"
	"pictor/internal/hooks"
	"pictor/internal/logging"
	"pictor/internal/registry"
)

// MustOpenStore opens a registry.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.Open(cfg, hooks.NewDefaultRegistry(logging.NewNop()), logging.NewNop())
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Register records an image for tests using the provided store.
func Register(t testing.TB, store *registry.Store, imagePath, source string) *registry.Registration {
	t.Helper()

	reg, err := store.Register(context.Background(), imagePath, source, nil)
	if err != nil {
		t.Fatalf("store.Register: %v", err)
	}
	return reg
}
