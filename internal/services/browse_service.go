// Package services – BrowseService
//
// Read-only projections behind the public pages: the home listing with its
// search filter, the topics page, the global activity feed and user
// profiles. None of them require a signed-in actor.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-forum-backend/internal/domain"
	"github.com/tbourn/go-forum-backend/internal/repo"
	"github.com/tbourn/go-forum-backend/internal/search"
)

// DefaultSidebarTopics is how many topics the home page lists.
const DefaultSidebarTopics = 5

// HomeView is the home page: rooms and messages matching q, plus the first
// few topics.
type HomeView struct {
	Q            string                `json:"q"`
	Rooms        []domain.Room         `json:"rooms"`
	RoomCount    int64                 `json:"room_count"`
	Topics       []repo.TopicWithCount `json:"topics"`
	RoomMessages []domain.Message      `json:"room_messages"`
}

// TopicsView lists every topic whose name matches q.
type TopicsView struct {
	Q      string                `json:"q"`
	Topics []repo.TopicWithCount `json:"topics"`
}

// ActivityView is the global message feed, newest first. Count and
// LatestUpdate describe the feed for cache validation.
type ActivityView struct {
	RoomMessages []domain.Message `json:"room_messages"`
	Count        int64            `json:"-"`
	LatestUpdate *time.Time       `json:"-"`
}

// ProfileView is a user's public page.
type ProfileView struct {
	User         *domain.User          `json:"user"`
	Rooms        []domain.Room         `json:"rooms"`
	RoomMessages []domain.Message      `json:"room_messages"`
	Topics       []repo.TopicWithCount `json:"topics"`
}

// BrowseService serves the read-only pages.
type BrowseService struct {
	DB            *gorm.DB
	SidebarTopics int
}

// NewBrowseService constructs a BrowseService. sidebar <= 0 selects
// DefaultSidebarTopics.
func NewBrowseService(db *gorm.DB, sidebar int) *BrowseService {
	if sidebar <= 0 {
		sidebar = DefaultSidebarTopics
	}
	return &BrowseService{DB: db, SidebarTopics: sidebar}
}

// Home returns rooms whose topic, name or description contains q, their
// count, the sidebar topics and the messages posted under matching topics.
// An empty q matches everything.
func (s *BrowseService) Home(ctx context.Context, q string) (*HomeView, error) {
	tr := otel.Tracer("services/BrowseService")
	ctx, span := tr.Start(ctx, "Home")
	defer span.End()

	query := search.Parse(q)
	span.SetAttributes(attribute.Bool("search.filtered", !query.Empty()))

	rooms, err := repo.ListRooms(ctx, s.DB, query.Rooms())
	if err != nil {
		return nil, fail(span, err)
	}
	count, err := repo.CountRooms(ctx, s.DB, query.Rooms())
	if err != nil {
		return nil, fail(span, err)
	}
	topics, err := repo.ListTopics(ctx, s.DB, s.SidebarTopics)
	if err != nil {
		return nil, fail(span, err)
	}
	msgs, err := repo.ListMessages(ctx, s.DB, false, 0, query.Messages())
	if err != nil {
		return nil, fail(span, err)
	}

	return &HomeView{
		Q:            query.String(),
		Rooms:        rooms,
		RoomCount:    count,
		Topics:       topics,
		RoomMessages: msgs,
	}, nil
}

// Topics returns every topic whose name contains q, with room counts.
func (s *BrowseService) Topics(ctx context.Context, q string) (*TopicsView, error) {
	tr := otel.Tracer("services/BrowseService")
	ctx, span := tr.Start(ctx, "Topics")
	defer span.End()

	query := search.Parse(q)
	topics, err := repo.ListTopics(ctx, s.DB, 0, query.Topics())
	if err != nil {
		return nil, fail(span, err)
	}
	return &TopicsView{Q: query.String(), Topics: topics}, nil
}

// ActivityStamp returns the message count and latest update time, enough to
// tell whether the activity feed changed without loading it.
func (s *BrowseService) ActivityStamp(ctx context.Context) (int64, *time.Time, error) {
	tr := otel.Tracer("services/BrowseService")
	ctx, span := tr.Start(ctx, "ActivityStamp")
	defer span.End()

	n, latest, err := repo.MessagesStats(ctx, s.DB)
	return n, latest, fail(span, err)
}

// Activity returns all messages, most recent first.
func (s *BrowseService) Activity(ctx context.Context) (*ActivityView, error) {
	tr := otel.Tracer("services/BrowseService")
	ctx, span := tr.Start(ctx, "Activity")
	defer span.End()

	n, latest, err := repo.MessagesStats(ctx, s.DB)
	if err != nil {
		return nil, fail(span, err)
	}
	msgs, err := repo.ListMessages(ctx, s.DB, true, 0)
	if err != nil {
		return nil, fail(span, err)
	}
	return &ActivityView{RoomMessages: msgs, Count: n, LatestUpdate: latest}, nil
}

// Profile returns a user with the rooms they host, the messages they wrote
// and the full topic list. Any visitor may view any profile.
func (s *BrowseService) Profile(ctx context.Context, userID string) (*ProfileView, error) {
	tr := otel.Tracer("services/BrowseService")
	ctx, span := tr.Start(ctx, "Profile", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	u, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fail(span, err)
	}
	rooms, err := repo.ListRooms(ctx, s.DB, repo.HostedBy(u.ID))
	if err != nil {
		return nil, fail(span, err)
	}
	msgs, err := repo.ListMessages(ctx, s.DB, false, 0, repo.AuthoredBy(u.ID))
	if err != nil {
		return nil, fail(span, err)
	}
	topics, err := repo.ListTopics(ctx, s.DB, 0)
	if err != nil {
		return nil, fail(span, err)
	}
	return &ProfileView{User: u, Rooms: rooms, RoomMessages: msgs, Topics: topics}, nil
}
