package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-forum-backend/internal/domain"
	"github.com/tbourn/go-forum-backend/internal/http/middleware"
	"github.com/tbourn/go-forum-backend/internal/services"
)

func messageRoutes(f *fixture) func(r *gin.Engine) {
	return func(r *gin.Engine) {
		r.POST("/room/:id", middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil), f.h.PostMessage)
		r.GET("/message/:id/delete", f.h.DeleteMessagePage)
		r.POST("/message/:id/delete", f.h.DeleteMessage)
	}
}

func TestPostMessage_RedirectsToRoom(t *testing.T) {
	f := newFixture(Options{})
	r := engine(alice, messageRoutes(f))

	req := httptest.NewRequest(http.MethodPost, "/room/r1", strings.NewReader("body=hello+there"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.HeaderIdempotencyKey, "k-1")
	w := serve(r, req)

	assertRedirect(t, w, "/room/r1")
	want := postCall{actor: alice, roomID: "r1", body: "hello there", idemKey: "k-1"}
	if len(f.msgs.posts) != 1 || f.msgs.posts[0] != want {
		t.Fatalf("posts = %+v", f.msgs.posts)
	}
	if w.Header().Get("Idempotent-Replay") != "" {
		t.Fatalf("fresh post marked as replay")
	}
}

func TestPostMessage_ReplayKeepsRedirect(t *testing.T) {
	f := newFixture(Options{})
	f.msgs.replayed = true
	r := engine(alice, messageRoutes(f))

	w := postForm(r, "/room/r1", "body=again")
	assertRedirect(t, w, "/room/r1")
	if w.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("replay header missing")
	}
}

func TestPostMessage_Errors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrEmptyBody, http.StatusBadRequest},
		{services.ErrTooLong, http.StatusBadRequest},
		{services.ErrRoomNotFound, http.StatusNotFound},
		{services.ErrUnauthenticated, http.StatusFound},
	}
	for _, tc := range cases {
		f := newFixture(Options{})
		f.msgs.err = tc.err
		r := engine(alice, messageRoutes(f))
		if w := postForm(r, "/room/r1", "body="); w.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, w.Code, tc.status)
		}
	}
}

func TestDeleteMessage_ConfirmThenExecute(t *testing.T) {
	f := newFixture(Options{})
	r := engine(alice, messageRoutes(f))

	w := get(r, "/message/m9/delete", nil)
	var confirm struct {
		Page string         `json:"page"`
		Obj  domain.Message `json:"obj"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &confirm); err != nil {
		t.Fatalf("json: %v", err)
	}
	if confirm.Page != "delete" || confirm.Obj.ID != "m9" || len(f.msgs.deleted) != 0 {
		t.Fatalf("confirm = %+v deleted=%v", confirm, f.msgs.deleted)
	}

	assertRedirect(t, postForm(r, "/message/m9/delete", ""), "/")
	if len(f.msgs.deleted) != 1 || f.msgs.deleted[0] != "m9" {
		t.Fatalf("deleted = %v", f.msgs.deleted)
	}
}

func TestDeleteMessage_NonAuthorDenied(t *testing.T) {
	f := newFixture(Options{})
	f.msgs.err = services.ErrForbidden
	r := engine(domain.Actor{UserID: "u-bob"}, messageRoutes(f))

	w := postForm(r, "/message/m9/delete", "")
	if w.Code != http.StatusForbidden || w.Body.String() != "You are not allowed here!!" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}
