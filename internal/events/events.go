// Package events publishes forum domain events (registrations, room and
// message changes) to an external broker once the corresponding write has
// committed. Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types.
const (
	UserRegistered = "user.registered"
	RoomCreated    = "room.created"
	RoomUpdated    = "room.updated"
	RoomDeleted    = "room.deleted"
	MessagePosted  = "message.posted"
	MessageDeleted = "message.deleted"
)

// Event is the envelope sent on the wire.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	ActorID    string            `json:"actor_id,omitempty"`
	Subject    string            `json:"subject"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New builds an event of type typ about subject (the id of the affected
// entity) performed by actorID.
func New(typ, actorID, subject string, attrs map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Subject:    subject,
		Attributes: attrs,
	}
}

// Encode serialises the event envelope.
func (e Event) Encode() ([]byte, error) { return json.Marshal(e) }

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// LogPublisher writes events to a zerolog logger at debug level. It is the
// default when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher returns a publisher that logs through logger.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Debug().
		Str("event_id", e.ID).
		Str("type", e.Type).
		Str("subject", e.Subject).
		Str("actor_id", e.ActorID).
		Msg("domain event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
