// Package services – AuthService
//
// This file implements login, registration and logout. Login accepts either
// an email address or a username: an identifier matching a known email is
// first resolved to that account's username, and the password is then checked
// against the resolved account. Unknown identifiers and wrong passwords are
// indistinguishable to the caller, including in timing.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-forum-backend/internal/auth"
	"github.com/tbourn/go-forum-backend/internal/domain"
	"github.com/tbourn/go-forum-backend/internal/events"
	"github.com/tbourn/go-forum-backend/internal/repo"
)

// MaxUsernameLen mirrors the users.username column width.
const MaxUsernameLen = 150

// LoginInput is a submitted login form.
type LoginInput struct {
	Identifier string // email or username
	Password   string
}

// RegisterInput is a submitted registration form.
type RegisterInput struct {
	Username  string
	Email     string
	Name      string
	Password1 string
	Password2 string
}

// Session is the result of a successful login or registration.
type Session struct {
	User   *domain.User
	Issued *auth.Issued
}

// AuthService authenticates users and manages their sessions.
type AuthService struct {
	DB       *gorm.DB
	Hasher   *auth.PasswordHasher
	Sessions *auth.Manager
	Events   events.Publisher
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, hasher *auth.PasswordHasher, sessions *auth.Manager, pub events.Publisher) *AuthService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &AuthService{DB: db, Hasher: hasher, Sessions: sessions, Events: pub}
}

// Login resolves the identifier, verifies the password and opens a session.
// Signed-in actors may not log in again.
func (s *AuthService) Login(ctx context.Context, actor domain.Actor, in LoginInput) (*Session, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	if actor.Authenticated() {
		return nil, ErrAlreadyAuthenticated
	}
	ident := normalizeUsername(in.Identifier)
	if ident == "" || in.Password == "" {
		s.Hasher.VerifyNothing(in.Password)
		return nil, ErrInvalidCredentials
	}

	username := ident
	byEmail, err := repo.GetUserByEmail(ctx, s.DB, ident)
	switch {
	case err == nil:
		username = byEmail.Username
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fail(span, err)
	}

	u, err := repo.GetUserByUsername(ctx, s.DB, username)
	if errors.Is(err, repo.ErrNotFound) {
		s.Hasher.VerifyNothing(in.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fail(span, err)
	}
	if !s.Hasher.Verify(in.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	span.SetAttributes(attribute.String("user.id", u.ID))
	issued, err := s.Sessions.Issue(ctx, u.ID, u.Username)
	if err != nil {
		return nil, fail(span, err)
	}
	return &Session{User: u, Issued: issued}, nil
}

// Register validates the form, creates the account with a lowercased
// username and opens a session for it. Signed-in actors may not register.
func (s *AuthService) Register(ctx context.Context, actor domain.Actor, in RegisterInput) (*Session, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	if actor.Authenticated() {
		return nil, ErrAlreadyAuthenticated
	}

	u := &domain.User{
		Username: normalizeUsername(in.Username),
		Email:    normalizeEmail(in.Email),
		Name:     cleanLine(in.Name),
	}

	fe := fieldErrors{}
	validateUsername(fe, u.Username)
	validateEmail(fe, u.Email)
	switch {
	case len(in.Password1) < auth.MinPasswordLen:
		fe.add("password1", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLen))
	case len(in.Password1) > auth.MaxPasswordLen:
		fe.add("password1", fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordLen))
	case strings.EqualFold(in.Password1, u.Username):
		fe.add("password1", "too similar to the username")
	}
	if in.Password1 != in.Password2 {
		fe.add("password2", "the two password fields didn't match")
	}
	if err := fe.err(ErrInvalidRegistration); err != nil {
		return nil, err
	}

	taken, err := repo.UserExists(ctx, s.DB, u.Username, u.Email, "")
	if err != nil {
		return nil, fail(span, err)
	}
	if taken {
		return nil, ErrDuplicateUser
	}

	hash, err := s.Hasher.Hash(in.Password1)
	if err != nil {
		return nil, fail(span, fmt.Errorf("hash password: %w", err))
	}
	u.PasswordHash = hash

	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	publish(ctx, s.Events, events.New(events.UserRegistered, u.ID, u.ID, map[string]string{"username": u.Username}))

	issued, err := s.Sessions.Issue(ctx, u.ID, u.Username)
	if err != nil {
		return nil, fail(span, err)
	}
	return &Session{User: u, Issued: issued}, nil
}

// Logout revokes the actor's session. Anonymous actors are a no-op.
func (s *AuthService) Logout(ctx context.Context, actor domain.Actor) error {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Logout", trace.WithAttributes(attribute.String("user.id", actor.UserID)))
	defer span.End()

	if !actor.Authenticated() {
		return nil
	}
	return fail(span, s.Sessions.Revoke(ctx, actor.SessionID))
}

func validateUsername(fe fieldErrors, username string) {
	switch {
	case username == "":
		fe.add("username", "this field is required")
	case tooLong(username, MaxUsernameLen):
		fe.add("username", fmt.Sprintf("must be at most %d characters", MaxUsernameLen))
	case !usernameRE.MatchString(username):
		fe.add("username", "may contain only letters, numbers and @/./+/-/_ characters")
	}
}

func validateEmail(fe fieldErrors, email string) {
	if email == "" {
		fe.add("email", "this field is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		fe.add("email", "enter a valid email address")
	}
}
