package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-forum-backend/internal/auth"
	"github.com/tbourn/go-forum-backend/internal/domain"
	"github.com/tbourn/go-forum-backend/internal/events"
	"github.com/tbourn/go-forum-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), fmt.Sprintf("svc_%d.db", time.Now().UnixNano()))
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
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newAuthService(t *testing.T, db *gorm.DB, pub events.Publisher) *AuthService {
	t.Helper()
	tokens := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", TTL: time.Hour})
	return NewAuthService(db, auth.NewPasswordHasher(bcrypt.MinCost), auth.NewManager(tokens, auth.NewGormStore(db)), pub)
}

// register creates a user through AuthService and returns the actor bound
// to its session.
func register(t *testing.T, svc *AuthService, username string) domain.Actor {
	t.Helper()
	sess, err := svc.Register(context.Background(), domain.Anonymous(), RegisterInput{
		Username:  username,
		Email:     username + "@example.com",
		Password1: "correct horse",
		Password2: "correct horse",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return domain.Actor{UserID: sess.User.ID, Username: sess.User.Username, SessionID: sess.Issued.SessionID}
}

func newRoom(t *testing.T, svc *RoomService, actor domain.Actor, topic, name, desc string) *domain.Room {
	t.Helper()
	r, err := svc.Create(context.Background(), actor, RoomInput{Topic: topic, Name: name, Description: desc})
	if err != nil {
		t.Fatalf("create room %s: %v", name, err)
	}
	// Distinct timestamps keep insertion order observable.
	time.Sleep(2 * time.Millisecond)
	return r
}

func post(t *testing.T, svc *MessageService, actor domain.Actor, roomID, body string) *domain.Message {
	t.Helper()
	res, err := svc.Post(context.Background(), actor, roomID, body, "")
	if err != nil {
		t.Fatalf("post %q: %v", body, err)
	}
	time.Sleep(2 * time.Millisecond)
	return res.Message
}
