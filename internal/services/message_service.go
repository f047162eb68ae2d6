// Package services – MessageService
//
// This file implements posting and deleting messages. Posting a message
// also adds its author to the room's participant set; both writes happen in
// one transaction. An optional idempotency key makes a retried post return
// the message created by the first attempt instead of inserting another.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include room/message/user identifiers.
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-forum-backend/internal/domain"
	"github.com/tbourn/go-forum-backend/internal/events"
	"github.com/tbourn/go-forum-backend/internal/repo"
)

// DefaultMaxBodyRunes caps message length when MaxBodyRunes is unset.
const DefaultMaxBodyRunes = 10000

// DefaultIdempotencyTTL is how long a post's idempotency key is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// PostResult is the outcome of Post. Replayed is true when the message was
// created by an earlier request carrying the same idempotency key.
type PostResult struct {
	Message  *domain.Message
	Replayed bool
}

// MessageService coordinates message persistence.
type MessageService struct {
	DB     *gorm.DB
	Events events.Publisher

	MaxBodyRunes   int
	IdempotencyTTL time.Duration
}

// NewMessageService constructs a MessageService with default limits.
func NewMessageService(db *gorm.DB, pub events.Publisher) *MessageService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &MessageService{
		DB:             db,
		Events:         pub,
		MaxBodyRunes:   DefaultMaxBodyRunes,
		IdempotencyTTL: DefaultIdempotencyTTL,
	}
}

// Post adds a message to a room and joins the author to the room.
// idemKey may be empty.
func (s *MessageService) Post(ctx context.Context, actor domain.Actor, roomID, body, idemKey string) (*PostResult, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Post", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("user.id", actor.UserID),
		attribute.Bool("idempotent", idemKey != ""),
	))
	defer span.End()

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	body = cleanText(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if tooLong(body, s.MaxBodyRunes) {
		return nil, ErrTooLong
	}

	if _, err := repo.GetRoom(ctx, s.DB, roomID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fail(span, err)
	}

	idemKey = strings.TrimSpace(idemKey)
	if idemKey != "" {
		if res, err := s.replay(ctx, actor, roomID, idemKey); err != nil || res != nil {
			return res, err
		}
	}

	var msg *domain.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(ctx, tx, actor.UserID, roomID, body)
		if err != nil {
			return err
		}
		if err := repo.AddParticipant(ctx, tx, roomID, actor.UserID); err != nil {
			return err
		}
		if idemKey != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, actor.UserID, roomID, idemKey, m.ID, http.StatusFound, s.ttl()); err != nil {
				return err
			}
		}
		msg = m
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key won the race.
		if res, rerr := s.replay(ctx, actor, roomID, idemKey); rerr != nil || res != nil {
			return res, rerr
		}
	}
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("message.id", msg.ID))

	publish(ctx, s.Events, events.New(events.MessagePosted, actor.UserID, msg.ID, map[string]string{"room_id": roomID}))
	return &PostResult{Message: msg}, nil
}

// Deletable returns the message if the actor authored it. The delete
// confirmation page uses it before the mutation.
func (s *MessageService) Deletable(ctx context.Context, actor domain.Actor, messageID string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Deletable", trace.WithAttributes(
		attribute.String("message.id", messageID),
		attribute.String("user.id", actor.UserID),
	))
	defer span.End()

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	msg, err := repo.GetMessage(ctx, s.DB, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fail(span, err)
	}
	if !CanDeleteMessage(actor, msg) {
		return nil, ErrForbidden
	}
	return msg, nil
}

// Delete removes a message authored by the actor. The author stays a
// participant of the room.
func (s *MessageService) Delete(ctx context.Context, actor domain.Actor, messageID string) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("message.id", messageID),
		attribute.String("user.id", actor.UserID),
	))
	defer span.End()

	msg, err := s.Deletable(ctx, actor, messageID)
	if err != nil {
		return err
	}
	if err := repo.DeleteMessage(ctx, s.DB, msg.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fail(span, err)
	}

	publish(ctx, s.Events, events.New(events.MessageDeleted, actor.UserID, msg.ID, map[string]string{"room_id": msg.RoomID}))
	return nil
}

// replay returns the earlier result for (actor, room, key) or nil when the
// key is unused or expired.
func (s *MessageService) replay(ctx context.Context, actor domain.Actor, roomID, key string) (*PostResult, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, actor.UserID, roomID, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msg, err := repo.GetMessage(ctx, s.DB, rec.MessageID)
	if errors.Is(err, repo.ErrNotFound) {
		// The original message was deleted since; the retry still must not
		// create a second one.
		return &PostResult{Message: &domain.Message{ID: rec.MessageID, RoomID: roomID, UserID: actor.UserID}, Replayed: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &PostResult{Message: msg, Replayed: true}, nil
}

func (s *MessageService) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return DefaultIdempotencyTTL
}
