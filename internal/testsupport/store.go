package testsupport

import (
	"context"
	"testing"

	"watchlist/internal/config"
	"watchlist/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustCreateJob inserts a pending job for userID.
func MustCreateJob(t testing.TB, st *store.Store, userID string, totalItems int) int64 {
	t.Helper()

	id, err := st.CreateJob(context.Background(), userID, "test", totalItems)
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return id
}
