// Package middleware contains the Gin middleware shared by the forum's HTTP
// layer.
//
// This file resolves the caller's identity. Session() reads the session
// token from the session cookie or an "Authorization: Bearer" header,
// resolves it to a domain.Actor and stores it on the Gin context. Requests
// without a valid token proceed as the anonymous actor; a stale or revoked
// cookie is cleared, while a cookie that failed on a store error is kept.
//
// RequireLogin() and AnonymousOnly() gate routes on that identity with the
// redirects a browser-facing forum expects.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-forum-backend/internal/auth"
	"github.com/tbourn/go-forum-backend/internal/domain"
)

const (
	actorKey  = "actor"
	userIDKey = "userID"

	// DefaultSessionCookie is the cookie name used when none is configured.
	DefaultSessionCookie = "forum_session"
	// LoginPath is where RequireLogin sends anonymous visitors.
	LoginPath = "/login"
)

// SessionResolver turns a token into an actor. *auth.Manager satisfies it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (domain.Actor, error)
}

// CookieOptions controls the session cookie written by handlers and cleared
// by Session().
type CookieOptions struct {
	Name   string
	Path   string
	Secure bool
}

func (o CookieOptions) name() string {
	if o.Name == "" {
		return DefaultSessionCookie
	}
	return o.Name
}

func (o CookieOptions) path() string {
	if o.Path == "" {
		return "/"
	}
	return o.Path
}

// SetSessionCookie writes token as an HttpOnly, SameSite=Lax cookie that
// expires with the session.
func SetSessionCookie(c *gin.Context, o CookieOptions, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(o.name(), token, maxAge, o.path(), "", o.Secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, o CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(o.name(), "", -1, o.path(), "", o.Secure, true)
}

// Session resolves the request's identity. It never rejects a request.
func Session(resolver SessionResolver, o CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := domain.Anonymous()

		token, fromCookie := sessionToken(c, o.name())
		if token != "" && resolver != nil {
			a, err := resolver.Resolve(c.Request.Context(), token)
			switch {
			case err == nil:
				actor = a
			case fromCookie && deadSession(err):
				ClearSessionCookie(c, o)
			}
		}

		c.Set(actorKey, actor)
		if actor.Authenticated() {
			c.Set(userIDKey, actor.UserID)
		}
		c.Next()
	}
}

// deadSession reports whether err means the token can never resolve again.
func deadSession(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrExpiredToken) ||
		errors.Is(err, auth.ErrSessionNotFound)
}

// sessionToken prefers the Authorization header over the cookie.
func sessionToken(c *gin.Context, cookie string) (token string, fromCookie bool) {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, rest, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(rest), false
		}
	}
	if v, err := c.Cookie(cookie); err == nil && v != "" {
		return v, true
	}
	return "", false
}

// ActorFrom returns the identity resolved by Session(), or the anonymous
// actor when Session() did not run.
func ActorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(domain.Actor); ok {
			return a
		}
	}
	return domain.Anonymous()
}

// RequireLogin redirects anonymous visitors to the login page with the
// requested path in "next".
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c).Authenticated() {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// AnonymousOnly redirects signed-in users home. It guards the login and
// registration pages.
func AnonymousOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c).Authenticated() {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SafeNext returns next if it is a local absolute path, otherwise "/".
// Scheme-relative ("//host") and backslash tricks are rejected.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}
