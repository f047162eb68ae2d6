package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-forum-backend/internal/domain"
	"github.com/tbourn/go-forum-backend/internal/media"
	"github.com/tbourn/go-forum-backend/internal/services"
)

// ---------- stub services ----------

type stubAuth struct {
	login    func(domain.Actor, services.LoginInput) (*services.Session, error)
	register func(domain.Actor, services.RegisterInput) (*services.Session, error)
	logouts  []domain.Actor
}

func (s *stubAuth) Login(_ context.Context, a domain.Actor, in services.LoginInput) (*services.Session, error) {
	return s.login(a, in)
}

func (s *stubAuth) Register(_ context.Context, a domain.Actor, in services.RegisterInput) (*services.Session, error) {
	return s.register(a, in)
}

func (s *stubAuth) Logout(_ context.Context, a domain.Actor) error {
	s.logouts = append(s.logouts, a)
	return nil
}

type stubRooms struct {
	err     error
	room    *domain.Room
	created []services.RoomInput
	deleted []string
}

func (s *stubRooms) Create(_ context.Context, _ domain.Actor, in services.RoomInput) (*domain.Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, in)
	return &domain.Room{ID: "r-new", Name: in.Name}, nil
}

func (s *stubRooms) View(context.Context, string) (*services.RoomView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.RoomView{Room: s.room, RoomMessages: []domain.Message{}, Participants: []domain.User{}}, nil
}

func (s *stubRooms) Editable(context.Context, domain.Actor, string) (*domain.Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.room, nil
}

func (s *stubRooms) Update(_ context.Context, _ domain.Actor, _ string, in services.RoomInput) (*domain.Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.room, nil
}

func (s *stubRooms) Delete(_ context.Context, _ domain.Actor, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type postCall struct {
	actor                 domain.Actor
	roomID, body, idemKey string
}

type stubMsgs struct {
	err      error
	replayed bool
	posts    []postCall
	deleted  []string
}

func (s *stubMsgs) Post(_ context.Context, a domain.Actor, roomID, body, key string) (*services.PostResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.posts = append(s.posts, postCall{a, roomID, body, key})
	return &services.PostResult{Message: &domain.Message{ID: "m1", RoomID: roomID, Body: body}, Replayed: s.replayed}, nil
}

func (s *stubMsgs) Deletable(_ context.Context, _ domain.Actor, id string) (*domain.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Message{ID: id, Body: "hello"}, nil
}

func (s *stubMsgs) Delete(_ context.Context, _ domain.Actor, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubBrowse struct {
	count       int64
	latest      *time.Time
	activityHit int
	homeQ       string
}

func (s *stubBrowse) Home(_ context.Context, q string) (*services.HomeView, error) {
	s.homeQ = q
	return &services.HomeView{Q: q}, nil
}

func (s *stubBrowse) Topics(_ context.Context, q string) (*services.TopicsView, error) {
	return &services.TopicsView{Q: q}, nil
}

func (s *stubBrowse) ActivityStamp(context.Context) (int64, *time.Time, error) {
	return s.count, s.latest, nil
}

func (s *stubBrowse) Activity(context.Context) (*services.ActivityView, error) {
	s.activityHit++
	return &services.ActivityView{RoomMessages: []domain.Message{}}, nil
}

func (s *stubBrowse) Profile(_ context.Context, id string) (*services.ProfileView, error) {
	if id != "u-alice" {
		return nil, services.ErrUserNotFound
	}
	return &services.ProfileView{User: &domain.User{ID: id, Username: "alice"}}, nil
}

type stubUsers struct {
	err    error
	input  services.ProfileInput
	avatar *media.Image
}

func (s *stubUsers) Current(_ context.Context, a domain.Actor) (*domain.User, error) {
	if !a.Authenticated() {
		return nil, services.ErrUnauthenticated
	}
	return &domain.User{ID: a.UserID, Username: a.Username}, nil
}

func (s *stubUsers) UpdateProfile(_ context.Context, a domain.Actor, in services.ProfileInput, avatar *media.Image) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.input, s.avatar = in, avatar
	return &domain.User{ID: a.UserID, Username: in.Username}, nil
}

// ---------- wiring ----------

var alice = domain.Actor{UserID: "u-alice", Username: "alice", SessionID: "s-1"}

type fixture struct {
	auth   *stubAuth
	rooms  *stubRooms
	msgs   *stubMsgs
	browse *stubBrowse
	users  *stubUsers
	h      *Handlers
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		auth:   &stubAuth{},
		rooms:  &stubRooms{room: &domain.Room{ID: "r1", Name: "Go", HostID: "u-alice"}},
		msgs:   &stubMsgs{},
		browse: &stubBrowse{},
		users:  &stubUsers{},
	}
	f.h = New(f.auth, f.rooms, f.msgs, f.browse, f.users, opts)
	return f
}

// engine builds a gin engine with the actor injected the way the session
// middleware would.
func engine(actor domain.Actor, register func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("requestID", "rid-test")
		if actor.Authenticated() {
			c.Set("actor", actor)
			c.Set("userID", actor.UserID)
		}
		c.Next()
	})
	register(r)
	return r
}

func postForm(r http.Handler, path, form string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (body %s)", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}
