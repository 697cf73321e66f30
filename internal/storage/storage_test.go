package storage

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"match-go/internal/models"
)

// newTestDB opens an isolated in-memory SQLite database. The pool is
// pinned to one connection because every in-memory connection would
// otherwise see its own empty database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access underlying sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrateTables(db); err != nil {
		t.Fatalf("failed to migrate test tables: %v", err)
	}
	return db
}

func createTestAccount(t *testing.T, db *gorm.DB, username, tier string) *models.Account {
	t.Helper()

	account := &models.Account{
		Username:     username,
		PasswordHash: "x",
		Email:        username + "@example.com",
		Nickname:     username,
		Tier:         tier,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account %s: %v", username, err)
	}
	return account
}
