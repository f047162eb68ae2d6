// Package services – UserService
//
// Reads and edits the signed-in user's own profile. Username and email are
// re-normalised and re-checked for uniqueness on every edit; an uploaded
// avatar has already been validated by content and is handed to the
// configured media store.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-forum-backend/internal/domain"
	"github.com/tbourn/go-forum-backend/internal/media"
	"github.com/tbourn/go-forum-backend/internal/repo"
)

// Profile field limits.
const (
	MaxNameLen = 200
	MaxBioLen  = 5000
)

// ProfileInput is a submitted profile form. Every field is written.
type ProfileInput struct {
	Name     string
	Username string
	Email    string
	Bio      string
}

// UserService manages the signed-in user's account.
type UserService struct {
	DB    *gorm.DB
	Media media.Store
}

// NewUserService constructs a UserService. store may be nil, in which case
// avatar uploads are rejected.
func NewUserService(db *gorm.DB, store media.Store) *UserService {
	return &UserService{DB: db, Media: store}
}

// Current returns the actor's own account.
func (s *UserService) Current(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Current", trace.WithAttributes(attribute.String("user.id", actor.UserID)))
	defer span.End()

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	u, err := repo.GetUser(ctx, s.DB, actor.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fail(span, err)
	}
	return u, nil
}

// UpdateProfile overwrites the actor's profile. avatar may be nil to keep
// the current one.
func (s *UserService) UpdateProfile(ctx context.Context, actor domain.Actor, in ProfileInput, avatar *media.Image) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.String("user.id", actor.UserID),
		attribute.Bool("avatar", avatar != nil),
	))
	defer span.End()

	u, err := s.Current(ctx, actor)
	if err != nil {
		return nil, err
	}

	u.Username = normalizeUsername(in.Username)
	u.Email = normalizeEmail(in.Email)
	u.Name = cleanLine(in.Name)
	u.Bio = cleanText(in.Bio)

	fe := fieldErrors{}
	validateUsername(fe, u.Username)
	validateEmail(fe, u.Email)
	if tooLong(u.Name, MaxNameLen) {
		fe.add("name", fmt.Sprintf("must be at most %d characters", MaxNameLen))
	}
	if tooLong(u.Bio, MaxBioLen) {
		fe.add("bio", fmt.Sprintf("must be at most %d characters", MaxBioLen))
	}
	if avatar != nil && s.Media == nil {
		fe.add("avatar", "uploads are disabled")
	}
	if err := fe.err(ErrInvalidProfile); err != nil {
		return nil, err
	}

	taken, err := repo.UserExists(ctx, s.DB, u.Username, u.Email, u.ID)
	if err != nil {
		return nil, fail(span, err)
	}
	if taken {
		return nil, ErrDuplicateUser
	}

	if avatar != nil {
		url, err := s.Media.Save(ctx, "avatar-"+u.ID, avatar)
		if err != nil {
			return nil, fail(span, fmt.Errorf("store avatar: %w", err))
		}
		u.Avatar = url
	}

	if err := repo.UpdateUserProfile(ctx, s.DB, u); err != nil {
		if avatar != nil {
			s.discardAvatar(ctx, u.Avatar)
		}
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, ErrDuplicateUser
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fail(span, err)
	}
	return u, nil
}

// discardAvatar removes an upload whose profile write did not commit.
func (s *UserService) discardAvatar(ctx context.Context, url string) {
	if err := s.Media.Delete(context.WithoutCancel(ctx), url); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("avatar", url).Msg("remove orphaned avatar")
	}
}
