package testsupport

import (
	"testing"

	"tonight/internal/catalog"
	"tonight/internal/config"
	"tonight/internal/ledger"
)

// MustOpenLedger opens a ledger.SQLiteStore for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.SQLiteStore {
	t.Helper()

	store, err := ledger.OpenSQLite(cfg)
	if err != nil {
		t.Fatalf("ledger.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
