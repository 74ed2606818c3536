// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"inspectbot/internal/db"
	"inspectbot/internal/models"
)

// TestStore opens a migrated SQLite store in a temp dir, closed when the test ends.
func TestStore(t *testing.T) *db.SQLiteStore {
	t.Helper()

	store, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// CreateTestItems inserts one item record per food type.
func CreateTestItems(t *testing.T, store db.Store, domain models.Domain, foodTypes ...string) {
	t.Helper()
	ctx := context.Background()

	for _, ft := range foodTypes {
		if err := store.InsertItem(ctx, domain, ft, ft+" 검사항목"); err != nil {
			t.Fatalf("failed to create test item %q: %v", ft, err)
		}
	}
}

// CreateTestCycles inserts one cycle record per food type under a single food group.
func CreateTestCycles(t *testing.T, store db.Store, domain models.Domain, bt models.BusinessType, foodGroup string, foodTypes ...string) {
	t.Helper()
	ctx := context.Background()

	for _, ft := range foodTypes {
		if err := store.InsertCycle(ctx, domain, bt, foodGroup, ft, "6개월 1회"); err != nil {
			t.Fatalf("failed to create test cycle %q: %v", ft, err)
		}
	}
}
