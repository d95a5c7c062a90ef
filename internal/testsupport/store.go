package testsupport

import (
	"context"
	"testing"
	"time"

	"lapsecam/internal/config"
	"lapsecam/internal/frame"
	"lapsecam/internal/framestore"
)

// MustOpenStore opens a framestore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *framestore.Store {
	t.Helper()

	store, err := framestore.Open(cfg, nil)
	if err != nil {
		t.Fatalf("framestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RetainFrame writes a still of the given size into the stills directory
// and records it in the ledger.
func RetainFrame(t testing.TB, store *framestore.Store, cfg *config.Config, index uint64, size int64) frame.Frame {
	t.Helper()

	f := frame.Frame{
		Index:      index,
		CapturedAt: time.Now().UTC(),
		Path:       frame.PathFor(cfg.Paths.StillsDir, index),
	}
	WriteStill(t, f.Path, size)
	if err := store.Retain(context.Background(), f); err != nil {
		t.Fatalf("store.Retain: %v", err)
	}
	return f
}
