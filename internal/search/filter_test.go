package search

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-forum-backend/internal/domain"
	"github.com/tbourn/go-forum-backend/internal/repo"
)

func TestParse_Normalisation(t *testing.T) {
	cases := []struct {
		in, raw, pattern string
	}{
		{"", "", ""},
		{"   \t ", "", ""},
		{"  Chess   Club ", "Chess   Club", "%chess   club%"},
		{"line\nsecond", "line\nsecond", "%line\nsecond%"},
		{"Éducation", "Éducation", "%éducation%"},
		{"100%", "100%", `%100\%%`},
		{"a_b", "a_b", `%a\_b%`},
		{`c:\dir`, `c:\dir`, `%c:\\dir%`},
	}
	for _, c := range cases {
		q := Parse(c.in)
		if q.String() != c.raw || q.Pattern() != c.pattern {
			t.Errorf("Parse(%q) = (%q, %q), want (%q, %q)", c.in, q.String(), q.Pattern(), c.raw, c.pattern)
		}
		if q.Empty() != (c.raw == "") {
			t.Errorf("Parse(%q).Empty() = %v", c.in, q.Empty())
		}
	}
}

func TestParse_MaxRunes(t *testing.T) {
	long := strings.Repeat("é", DefaultMaxRunes+10)
	if got := []rune(Parse(long).String()); len(got) != DefaultMaxRunes {
		t.Fatalf("default cap: got %d runes", len(got))
	}
	if got := Parse("abcdef", WithMaxRunes(3)).String(); got != "abc" {
		t.Fatalf("custom cap: got %q", got)
	}
	if got := Parse(long, WithMaxRunes(0)).String(); len([]rune(got)) != DefaultMaxRunes+10 {
		t.Fatalf("disabled cap truncated the query")
	}
}

// ---- DB-backed scope tests ----

type fixture struct {
	db    *gorm.DB
	rooms map[string]*domain.Room
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("search_%d.db", time.Now().UnixNano()))
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

	ctx := context.Background()
	u := &domain.User{Username: "alice", Email: "alice@x.com", PasswordHash: "h"}
	if err := repo.CreateUser(ctx, db, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	seed := []struct{ topic, name, desc string }{
		{"Gaming", "Chess Club", "kings and queens"},
		{"Python", "Snakes", "100% pythonic"},
		{"Go", "Gophers", "concurrency_talk"},
	}
	f := fixture{db: db, rooms: map[string]*domain.Room{}}
	for _, s := range seed {
		tp, _, err := repo.GetOrCreateTopic(ctx, db, s.topic, domain.SearchKey(s.topic))
		if err != nil {
			t.Fatalf("seed topic: %v", err)
		}
		r, err := repo.CreateRoom(ctx, db, u.ID, tp.ID, s.name, s.desc)
		if err != nil {
			t.Fatalf("seed room: %v", err)
		}
		if _, err := repo.CreateMessage(ctx, db, u.ID, r.ID, "hello "+s.name); err != nil {
			t.Fatalf("seed message: %v", err)
		}
		f.rooms[s.name] = r
		time.Sleep(2 * time.Millisecond)
	}
	return f
}

func roomNames(rs []domain.Room) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Name)
	}
	return out
}

func TestRooms_EmptyQueryMatchesEverything(t *testing.T) {
	f := newFixture(t)
	got, err := repo.ListRooms(context.Background(), f.db, Parse("").Rooms())
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(got) != len(f.rooms) {
		t.Fatalf("expected every room, got %v", roomNames(got))
	}
}

func TestRooms_MatchesTopicNameOrDescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		q    string
		want []string
	}{
		{"GAM", []string{"Chess Club"}},       // topic name, case-insensitive
		{"chess", []string{"Chess Club"}},     // room name
		{"QUEENS", []string{"Chess Club"}},    // description
		{"o", []string{"Snakes", "Gophers"}},  // python / go topics, insertion order
		{"100%", []string{"Snakes"}},          // literal percent
		{"y_h", nil},                          // underscore is not a wildcard
		{"concurrency_", []string{"Gophers"}}, // literal underscore
		{"nothing matches this", nil},
	}
	for _, c := range cases {
		got, err := repo.ListRooms(ctx, f.db, Parse(c.q).Rooms())
		if err != nil {
			t.Fatalf("ListRooms(%q): %v", c.q, err)
		}
		names := roomNames(got)
		if strings.Join(names, ",") != strings.Join(c.want, ",") {
			t.Errorf("q=%q: got %v, want %v", c.q, names, c.want)
		}
		n, err := repo.CountRooms(ctx, f.db, Parse(c.q).Rooms())
		if err != nil || int(n) != len(c.want) {
			t.Errorf("q=%q: count=%d err=%v, want %d", c.q, n, err, len(c.want))
		}
	}
}

func TestRooms_EveryRoomFoundByItsOwnFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for name, r := range f.rooms {
		full, _ := repo.GetRoom(ctx, f.db, r.ID)
		for _, q := range []string{full.Topic.Name, full.Name, full.Description} {
			got, err := repo.ListRooms(ctx, f.db, Parse(q).Rooms())
			if err != nil {
				t.Fatalf("ListRooms(%q): %v", q, err)
			}
			found := false
			for _, g := range got {
				if g.ID == r.ID {
					found = true
				}
			}
			if !found {
				t.Errorf("room %q not found by %q", name, q)
			}
		}
	}
}

func TestRooms_NonASCIIAndInnerWhitespace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var host domain.User
	if err := f.db.First(&host).Error; err != nil {
		t.Fatalf("load host: %v", err)
	}
	tp, _, err := repo.GetOrCreateTopic(ctx, f.db, "Éducation", domain.SearchKey("Éducation"))
	if err != nil {
		t.Fatalf("seed topic: %v", err)
	}
	r, err := repo.CreateRoom(ctx, f.db, host.ID, tp.ID, "École Club", "first line\nsecond  line")
	if err != nil {
		t.Fatalf("seed room: %v", err)
	}
	if _, err := repo.CreateMessage(ctx, f.db, host.ID, r.ID, "bonjour"); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	for _, q := range []string{"Éducation", "éducation", "ÉDUCATION", "École", "école club", "line\nsecond", "second  line"} {
		got, err := repo.ListRooms(ctx, f.db, Parse(q).Rooms())
		if err != nil {
			t.Fatalf("ListRooms(%q): %v", q, err)
		}
		if len(got) != 1 || got[0].ID != r.ID {
			t.Errorf("q=%q: got %v, want [École Club]", q, roomNames(got))
		}
	}

	// Whitespace is matched as typed, not collapsed.
	if got, _ := repo.ListRooms(ctx, f.db, Parse("second line").Rooms()); len(got) != 0 {
		t.Errorf("collapsed whitespace matched: %v", roomNames(got))
	}

	msgs, err := repo.ListMessages(ctx, f.db, false, 0, Parse("ÉDUCATION").Messages())
	if err != nil || len(msgs) != 1 || msgs[0].RoomID != r.ID {
		t.Fatalf("messages by non-ASCII topic: n=%d err=%v", len(msgs), err)
	}
	topics, err := repo.ListTopics(ctx, f.db, 0, Parse("éduc").Topics())
	if err != nil || len(topics) != 1 || topics[0].Name != "Éducation" {
		t.Fatalf("topics by non-ASCII name: %+v err=%v", topics, err)
	}
}

func TestMessages_FilterByRoomTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := repo.ListMessages(ctx, f.db, false, 0, Parse("python").Messages())
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(got) != 1 || got[0].RoomID != f.rooms["Snakes"].ID {
		t.Fatalf("unexpected messages: %+v", got)
	}

	// Room name is not a message filter field.
	got, _ = repo.ListMessages(ctx, f.db, false, 0, Parse("chess").Messages())
	if len(got) != 0 {
		t.Fatalf("room name must not match messages, got %d", len(got))
	}

	all, _ := repo.ListMessages(ctx, f.db, false, 0, Parse("").Messages())
	if len(all) != 3 {
		t.Fatalf("empty q should list all messages, got %d", len(all))
	}

	n, _, err := repo.MessagesStats(ctx, f.db, Parse("go").Messages())
	if err != nil || n != 1 {
		t.Fatalf("MessagesStats with filter: n=%d err=%v", n, err)
	}
}

func TestTopics_Filter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := repo.ListTopics(ctx, f.db, 0, Parse("G").Topics())
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Gaming" || got[1].Name != "Go" {
		t.Fatalf("unexpected topics: %+v", got)
	}
	all, _ := repo.ListTopics(ctx, f.db, 0, Parse("").Topics())
	if len(all) != 3 {
		t.Fatalf("expected all topics, got %d", len(all))
	}
}
