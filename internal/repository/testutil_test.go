package repository_test

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pairwise/discovery-engine/internal/db"
)

// setupTestDB opens an isolated in-memory SQLite DB and applies migrations.
// MaxOpenConns(1) serializes access so concurrency tests never trip over
// SQLite's single-writer locking.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(&db.User{}, &db.Preference{}, &db.Swipe{}, &db.Match{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}
