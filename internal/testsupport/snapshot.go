package testsupport

import (
	"testing"

	"songrank/internal/config"
	"songrank/internal/snapshot"
)

// MustOpenSnapshots opens a snapshot.Store for tests and registers cleanup.
func MustOpenSnapshots(t testing.TB, cfg *config.Config) *snapshot.Store {
	t.Helper()

	store, err := snapshot.Open(cfg)
	if err != nil {
		t.Fatalf("snapshot.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
