// Forum HTTP handlers.
//
// Handlers are transport-thin: they bind form or JSON input, call the
// application services with the request's actor, and translate results into
// JSON views, redirects or error envelopes.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-forum-backend/internal/domain"
	"github.com/tbourn/go-forum-backend/internal/http/middleware"
	"github.com/tbourn/go-forum-backend/internal/media"
	"github.com/tbourn/go-forum-backend/internal/repo"
	"github.com/tbourn/go-forum-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService defines the account session operations.
type AuthService interface {
	Login(ctx context.Context, actor domain.Actor, in services.LoginInput) (*services.Session, error)
	Register(ctx context.Context, actor domain.Actor, in services.RegisterInput) (*services.Session, error)
	Logout(ctx context.Context, actor domain.Actor) error
}

// RoomService defines the room lifecycle.
type RoomService interface {
	Create(ctx context.Context, actor domain.Actor, in services.RoomInput) (*domain.Room, error)
	View(ctx context.Context, roomID string) (*services.RoomView, error)
	// Editable returns the room only if the actor may change it.
	Editable(ctx context.Context, actor domain.Actor, roomID string) (*domain.Room, error)
	Update(ctx context.Context, actor domain.Actor, roomID string, in services.RoomInput) (*domain.Room, error)
	Delete(ctx context.Context, actor domain.Actor, roomID string) error
}

// MessageService defines posting and deleting messages.
type MessageService interface {
	Post(ctx context.Context, actor domain.Actor, roomID, body, idemKey string) (*services.PostResult, error)
	// Deletable returns the message only if the actor authored it.
	Deletable(ctx context.Context, actor domain.Actor, messageID string) (*domain.Message, error)
	Delete(ctx context.Context, actor domain.Actor, messageID string) error
}

// BrowseService defines the read-only pages.
type BrowseService interface {
	Home(ctx context.Context, q string) (*services.HomeView, error)
	Topics(ctx context.Context, q string) (*services.TopicsView, error)
	ActivityStamp(ctx context.Context) (int64, *time.Time, error)
	Activity(ctx context.Context) (*services.ActivityView, error)
	Profile(ctx context.Context, userID string) (*services.ProfileView, error)
}

// UserService defines the signed-in user's account operations.
type UserService interface {
	Current(ctx context.Context, actor domain.Actor) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, in services.ProfileInput, avatar *media.Image) (*domain.User, error)
}

//
// Handler wiring
//

// DefaultAvatarMaxBytes bounds avatar uploads when Options leaves it unset.
const DefaultAvatarMaxBytes int64 = 2 << 20

// Options configures transport details shared by the handlers.
type Options struct {
	Cookie         middleware.CookieOptions
	AvatarMaxBytes int64
	// AllTopics lists the topic choices offered on the room forms.
	AllTopics func(ctx context.Context) ([]repo.TopicWithCount, error)
}

// Handlers groups the forum's HTTP endpoints.
type Handlers struct {
	auth   AuthService
	rooms  RoomService
	msgs   MessageService
	browse BrowseService
	users  UserService
	opts   Options
}

// New constructs and returns a Handlers instance bound to the given services.
func New(auth AuthService, rooms RoomService, msgs MessageService, browse BrowseService, users UserService, opts Options) *Handlers {
	if opts.AvatarMaxBytes <= 0 {
		opts.AvatarMaxBytes = DefaultAvatarMaxBytes
	}
	RegisterValidators()
	return &Handlers{auth: auth, rooms: rooms, msgs: msgs, browse: browse, users: users, opts: opts}
}

func (h *Handlers) topics(ctx context.Context) ([]repo.TopicWithCount, error) {
	if h.opts.AllTopics == nil {
		return []repo.TopicWithCount{}, nil
	}
	return h.opts.AllTopics(ctx)
}

// PageResponse is the view context of a form page.
type PageResponse struct {
	Page   string                `json:"page" example:"create"`
	Topics []repo.TopicWithCount `json:"topics,omitempty"`
	Room   *domain.Room          `json:"room,omitempty"`
	User   *domain.User          `json:"user,omitempty"`
}

// ConfirmResponse is the view context of a delete confirmation page.
type ConfirmResponse struct {
	Page string `json:"page" example:"delete"`
	Obj  any    `json:"obj"`
}
