package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-forum-backend/internal/domain"
)

// Manager ties signed tokens to revocable server-side session records.
type Manager struct {
	tokens *TokenManager
	store  Store
	now    func() time.Time
}

// NewManager creates a session Manager.
func NewManager(tokens *TokenManager, store Store) *Manager {
	return &Manager{tokens: tokens, store: store, now: time.Now}
}

// Issued is a freshly established session.
type Issued struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// Issue records a new session for the user and signs a token for it.
func (m *Manager) Issue(ctx context.Context, userID, username string) (*Issued, error) {
	sid := uuid.NewString()
	token, exp, err := m.tokens.Sign(sid, userID, username)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	rec := domain.Session{
		ID:        sid,
		UserID:    userID,
		CreatedAt: m.now().UTC(),
		ExpiresAt: exp.UTC(),
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &Issued{Token: token, SessionID: sid, ExpiresAt: exp}, nil
}

// Resolve turns a token into the actor it authenticates. Invalid, expired
// or revoked tokens yield ErrInvalidToken, ErrExpiredToken or
// ErrSessionNotFound respectively.
func (m *Manager) Resolve(ctx context.Context, token string) (domain.Actor, error) {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return domain.Anonymous(), err
	}
	rec, err := m.store.Get(ctx, claims.ID)
	if err != nil {
		return domain.Anonymous(), err
	}
	if rec.UserID != claims.Subject {
		return domain.Anonymous(), ErrInvalidToken
	}
	return domain.Actor{
		UserID:    claims.Subject,
		Username:  claims.Username,
		SessionID: claims.ID,
	}, nil
}

// Revoke ends a session. Revoking an unknown session is not an error.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// TTL returns the lifetime of issued sessions.
func (m *Manager) TTL() time.Duration { return m.tokens.TTL() }
