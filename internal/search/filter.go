// Package search implements the forum's query filter: a free-text q is
// matched as a case-insensitive substring against room topic, name and
// description, and against the topic of a message's room.
//
// Matching runs against the folded key columns (topics.name_key,
// rooms.name_key, rooms.description_key) with a pattern folded by the same
// domain.SearchKey, so non-ASCII text behaves alike on SQLite and Postgres.
//
// The package only builds GORM scopes; it never executes queries, so the
// same scopes narrow listings, counts and ETag statistics alike.
//
//   - No logging in the library (callers decide how/what to log)
//   - An empty query matches everything and adds no clause at all
//   - LIKE wildcards typed by the user (%, _ and \) match literally
//   - No ranking: callers keep storage insertion order
package search

import (
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-forum-backend/internal/domain"
)

// DefaultMaxRunes bounds the length of a query before it reaches the database.
const DefaultMaxRunes = 200

// Option configures Parse.
type Option func(*config)

type config struct {
	maxRunes int
}

func defaultConfig() config {
	return config{maxRunes: DefaultMaxRunes}
}

// WithMaxRunes overrides the query length cap. n <= 0 disables the cap.
func WithMaxRunes(n int) Option {
	return func(c *config) { c.maxRunes = n }
}

// Query is a parsed search string. The zero value matches everything.
type Query struct {
	raw     string
	pattern string
}

// Parse trims q and truncates it to the configured rune cap. Inner
// whitespace is kept as typed so multi-line descriptions stay matchable.
func Parse(q string, opts ...Option) Query {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	q = strings.TrimSpace(q)
	if cfg.maxRunes > 0 && utf8.RuneCountInString(q) > cfg.maxRunes {
		q = string([]rune(q)[:cfg.maxRunes])
	}
	if q == "" {
		return Query{}
	}
	return Query{
		raw:     q,
		pattern: "%" + escapeLike(domain.SearchKey(q)) + "%",
	}
}

// String returns the trimmed query as the user typed it.
func (q Query) String() string { return q.raw }

// Empty reports whether the query matches everything.
func (q Query) Empty() bool { return q.raw == "" }

// Pattern returns the case-folded, escaped LIKE pattern ("" when empty).
func (q Query) Pattern() string { return q.pattern }

func like(col string) string {
	return col + ` LIKE ? ESCAPE '\'`
}

// Rooms narrows a rooms query to rooms whose topic name, name or
// description contains q.
func (q Query) Rooms() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Empty() {
			return db
		}
		return db.
			Joins("JOIN topics ON topics.id = rooms.topic_id").
			Where(
				"("+like("topics.name_key")+" OR "+like("rooms.name_key")+" OR "+like("rooms.description_key")+")",
				q.pattern, q.pattern, q.pattern,
			)
	}
}

// Messages narrows a messages query to messages posted in rooms whose topic
// name contains q.
func (q Query) Messages() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Empty() {
			return db
		}
		return db.
			Joins("JOIN rooms ON rooms.id = messages.room_id").
			Joins("JOIN topics ON topics.id = rooms.topic_id").
			Where(like("topics.name_key"), q.pattern)
	}
}

// Topics narrows a topics query to topics whose name contains q.
func (q Query) Topics() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Empty() {
			return db
		}
		return db.Where(like("topics.name_key"), q.pattern)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
