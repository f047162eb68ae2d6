package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-forum-backend/internal/domain"
)

// newTestDB opens a migrated, file-backed SQLite database with foreign keys
// enforced on every pooled connection.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), fmt.Sprintf("repo_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@x.com", PasswordHash: "h"}
	if err := CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func seedTopic(t *testing.T, db *gorm.DB, name, key string) *domain.Topic {
	t.Helper()
	tp, _, err := GetOrCreateTopic(context.Background(), db, name, key)
	if err != nil {
		t.Fatalf("seed topic %s: %v", name, err)
	}
	return tp
}

func seedRoom(t *testing.T, db *gorm.DB, hostID, topicID, name, desc string) *domain.Room {
	t.Helper()
	r, err := CreateRoom(context.Background(), db, hostID, topicID, name, desc)
	if err != nil {
		t.Fatalf("seed room %s: %v", name, err)
	}
	// Distinct timestamps keep insertion order observable.
	time.Sleep(2 * time.Millisecond)
	return r
}
