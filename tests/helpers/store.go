// Package helpers provides shared test fixtures for packages above the
// repository layer.
package helpers

import (
	"testing"

	store "github.com/devtrack/eventledger/internal/repository"
)

// NewTestSQLiteStore opens an in-memory ledger store that is closed when the
// test finishes. Each call returns an isolated database, so tests never see
// each other's events or sessions.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
