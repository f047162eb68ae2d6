// Package services – RoomService
//
// This file implements the room lifecycle: create, read, update and delete.
// Topics are resolved by case-insensitive name and created on first use.
// Updates and deletes are gated on the actor being the room's host; deletion
// removes the room's messages and participant rows with it.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry room and user identifiers.
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
	"github.com/tbourn/go-forum-backend/internal/events"
	"github.com/tbourn/go-forum-backend/internal/repo"
)

// Field limits for rooms and topics, matching the column widths.
const (
	MaxRoomNameLen  = 200
	MaxTopicNameLen = 200
	MaxRoomDescLen  = 5000
)

// RoomInput is a submitted room form. Every field is written on update.
type RoomInput struct {
	Topic       string
	Name        string
	Description string
}

// RoomView is everything the room page shows.
type RoomView struct {
	Room         *domain.Room     `json:"room"`
	RoomMessages []domain.Message `json:"room_messages"`
	Participants []domain.User    `json:"participants"`
}

// RoomService manages rooms.
type RoomService struct {
	DB     *gorm.DB
	Events events.Publisher
}

// NewRoomService constructs a RoomService.
func NewRoomService(db *gorm.DB, pub events.Publisher) *RoomService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &RoomService{DB: db, Events: pub}
}

// Create makes a new room hosted by the actor.
func (s *RoomService) Create(ctx context.Context, actor domain.Actor, in RoomInput) (*domain.Room, error) {
	tr := otel.Tracer("services/RoomService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", actor.UserID)))
	defer span.End()

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	in, err := validateRoom(in)
	if err != nil {
		return nil, err
	}

	topic, err := s.resolveTopic(ctx, in.Topic)
	if err != nil {
		return nil, fail(span, err)
	}
	room, err := repo.CreateRoom(ctx, s.DB, actor.UserID, topic.ID, in.Name, in.Description)
	if err != nil {
		return nil, fail(span, err)
	}
	room.Topic = *topic
	span.SetAttributes(attribute.String("room.id", room.ID))

	publish(ctx, s.Events, events.New(events.RoomCreated, actor.UserID, room.ID, map[string]string{"topic": topic.Name}))
	return room, nil
}

// View returns a room with its messages (oldest first) and participants.
func (s *RoomService) View(ctx context.Context, roomID string) (*RoomView, error) {
	tr := otel.Tracer("services/RoomService")
	ctx, span := tr.Start(ctx, "View", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer span.End()

	room, err := s.get(ctx, roomID)
	if err != nil {
		return nil, fail(span, err)
	}
	msgs, err := repo.ListRoomMessages(ctx, s.DB, roomID)
	if err != nil {
		return nil, fail(span, err)
	}
	parts, err := repo.ListParticipants(ctx, s.DB, roomID)
	if err != nil {
		return nil, fail(span, err)
	}
	return &RoomView{Room: room, RoomMessages: msgs, Participants: parts}, nil
}

// Editable returns the room if the actor may update or delete it. The update
// and delete confirmation pages use it before any mutation happens.
func (s *RoomService) Editable(ctx context.Context, actor domain.Actor, roomID string) (*domain.Room, error) {
	tr := otel.Tracer("services/RoomService")
	ctx, span := tr.Start(ctx, "Editable", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("user.id", actor.UserID),
	))
	defer span.End()

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	room, err := s.get(ctx, roomID)
	if err != nil {
		return nil, fail(span, err)
	}
	if !CanModifyRoom(actor, room) {
		return nil, ErrForbidden
	}
	return room, nil
}

// Update overwrites topic, name and description of a room hosted by the actor.
func (s *RoomService) Update(ctx context.Context, actor domain.Actor, roomID string, in RoomInput) (*domain.Room, error) {
	tr := otel.Tracer("services/RoomService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("user.id", actor.UserID),
	))
	defer span.End()

	room, err := s.Editable(ctx, actor, roomID)
	if err != nil {
		return nil, err
	}
	in, err = validateRoom(in)
	if err != nil {
		return nil, err
	}
	topic, err := s.resolveTopic(ctx, in.Topic)
	if err != nil {
		return nil, fail(span, err)
	}
	if err := repo.UpdateRoom(ctx, s.DB, room.ID, topic.ID, in.Name, in.Description); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fail(span, err)
	}

	publish(ctx, s.Events, events.New(events.RoomUpdated, actor.UserID, room.ID, map[string]string{"topic": topic.Name}))
	return s.get(ctx, room.ID)
}

// Delete removes a room hosted by the actor, with its messages.
func (s *RoomService) Delete(ctx context.Context, actor domain.Actor, roomID string) error {
	tr := otel.Tracer("services/RoomService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("user.id", actor.UserID),
	))
	defer span.End()

	room, err := s.Editable(ctx, actor, roomID)
	if err != nil {
		return err
	}
	if err := repo.DeleteRoom(ctx, s.DB, room.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRoomNotFound
		}
		return fail(span, err)
	}

	publish(ctx, s.Events, events.New(events.RoomDeleted, actor.UserID, room.ID, nil))
	return nil
}

func (s *RoomService) get(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := repo.GetRoom(ctx, s.DB, roomID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	return room, err
}

// resolveTopic implements get-or-create by case-insensitive name. The first
// spelling used becomes the topic's display name.
func (s *RoomService) resolveTopic(ctx context.Context, name string) (*domain.Topic, error) {
	t, created, err := repo.GetOrCreateTopic(ctx, s.DB, name, topicKey(name))
	if err != nil {
		return nil, fmt.Errorf("resolve topic %q: %w", name, err)
	}
	if created {
		loggerFrom(ctx).Debug().Str("topic_id", t.ID).Str("topic", t.Name).Msg("topic created")
	}
	return t, nil
}

func validateRoom(in RoomInput) (RoomInput, error) {
	in.Topic = cleanLine(in.Topic)
	in.Name = cleanLine(in.Name)
	in.Description = cleanText(in.Description)

	fe := fieldErrors{}
	switch {
	case in.Topic == "":
		fe.add("topic", "this field is required")
	case tooLong(in.Topic, MaxTopicNameLen):
		fe.add("topic", fmt.Sprintf("must be at most %d characters", MaxTopicNameLen))
	}
	switch {
	case in.Name == "":
		fe.add("name", "this field is required")
	case tooLong(in.Name, MaxRoomNameLen):
		fe.add("name", fmt.Sprintf("must be at most %d characters", MaxRoomNameLen))
	}
	if tooLong(in.Description, MaxRoomDescLen) {
		fe.add("description", fmt.Sprintf("must be at most %d characters", MaxRoomDescLen))
	}
	return in, fe.err(ErrInvalidRoom)
}
