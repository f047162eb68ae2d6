package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-forum-backend/internal/domain"
)

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "does-not-exist", "app.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}

	// Be tolerant across platforms/drivers:
	// - Windows: *os.PathError ("CreateFile â€¦ cannot find the file specified")
	// - SQLite:  "unable to open database file" / "out of memory (14)"
	// - Unix:    "no such file or directory"
	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpenSQLite_SetsPragmas_Pool_AndAutoMigrate(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	// --- Verify PRAGMAs set by OpenSQLite ---
	var (
		journalMode string
		syncVal     int
		fkOn        int
		busyMS      int
	)

	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Fatalf("expected journal_mode=wal, got %q", journalMode)
	}

	if err := db.Raw("PRAGMA synchronous;").Row().Scan(&syncVal); err != nil {
		t.Fatalf("PRAGMA synchronous: %v", err)
	}
	// NORMAL == 1
	if syncVal != 1 {
		t.Fatalf("expected synchronous=1 (NORMAL), got %d", syncVal)
	}

	if err := db.Raw("PRAGMA foreign_keys;").Row().Scan(&fkOn); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fkOn != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fkOn)
	}

	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busyMS); err != nil {
		t.Fatalf("PRAGMA busy_timeout: %v", err)
	}
	if busyMS != 5000 {
		t.Fatalf("expected busy_timeout=5000, got %d", busyMS)
	}

	// --- Verify pool tuning applied ---
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 10 {
		t.Fatalf("expected MaxOpenConnections=10, got %d", stats.MaxOpenConnections)
	}

	// --- AutoMigrate should create all tables ---
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{
		&domain.User{}, &domain.Topic{}, &domain.Room{}, &domain.Message{},
		&domain.RoomParticipant{}, &domain.Session{}, &domain.Idempotency{},
	} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	// Quick insert round-trip to prove schema is usable.
	now := time.Now().UTC()
	seed := []any{
		&domain.User{ID: "u1", Username: "alice", Email: "alice@x.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now},
		&domain.Topic{ID: "t1", Name: "Go", NameKey: "go", CreatedAt: now, UpdatedAt: now},
		&domain.Room{ID: "r1", HostID: "u1", TopicID: "t1", Name: "Gophers", CreatedAt: now, UpdatedAt: now},
		&domain.Message{ID: "m1", UserID: "u1", RoomID: "r1", Body: "hi", CreatedAt: now, UpdatedAt: now},
		&domain.Idempotency{ID: "i1", Key: "k1", UserID: "u1", RoomID: "r1", MessageID: "m1", Status: 302, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	for _, row := range seed {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("insert %T: %v", row, err)
		}
	}

	var got domain.Room
	if err := db.First(&got, "id = ?", "r1").Error; err != nil || got.HostID != "u1" {
		t.Fatalf("readback room failed: err=%v got=%+v", err, got)
	}

	// Re-running migrations fills search keys on rooms that lack them.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate (again): %v", err)
	}
	if err := db.First(&got, "id = ?", "r1").Error; err != nil || got.NameKey != "gophers" {
		t.Fatalf("room key not backfilled: err=%v key=%q", err, got.NameKey)
	}

	// Foreign keys are enforced: a message in an unknown room is rejected.
	bad := &domain.Message{ID: "m2", UserID: "u1", RoomID: "nope", Body: "x", CreatedAt: now, UpdatedAt: now}
	if err := db.Omit("User", "Room").Create(bad).Error; err == nil {
		t.Fatalf("expected FK violation for unknown room")
	}
}

func TestOpen_DriverSelection(t *testing.T) {
	if _, err := Open(Options{Driver: "mysql"}); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
	if _, err := Open(Options{Driver: DriverPostgres}); err == nil {
		t.Fatalf("expected error for empty postgres dsn")
	}

	path := filepath.Join(t.TempDir(), "open.db")
	db, err := Open(Options{Driver: " SQLite ", SQLitePath: path, Tracing: true})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
}

func TestIsDuplicate(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrDuplicate, true},
		{gorm.ErrDuplicatedKey, true},
		{errors.New("UNIQUE constraint failed: users.username"), true},
		{errors.New(`ERROR: duplicate key value violates unique constraint "ux_users_email"`), true},
		{errors.New("disk I/O error"), false},
	}
	for _, c := range cases {
		if got := IsDuplicate(c.err); got != c.want {
			t.Errorf("IsDuplicate(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

// Compile-time guard to ensure signature stability.
var _ func(string) (*gorm.DB, error) = OpenSQLite
