package testutil

import (
	"testing"

	dbsqlite "github.com/minako-h/duelgate/server/db/sqlite"
	"github.com/minako-h/duelgate/server/model"
	"gorm.io/gorm"
)

// SetupTestDB opens an in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbsqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
