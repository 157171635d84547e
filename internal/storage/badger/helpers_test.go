package badger

import (
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/common"
)

// setupTestDB opens a throwaway Badger database for one test
func setupTestDB(t *testing.T) (*BadgerDB, func()) {
	t.Helper()

	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db, func() { db.Close() }
}
