package shared

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Participation lifecycle events. They are published after the mutating
// transaction commits and never inside it.
const (
	EventParticipationJoined   EventType = "participation.joined"
	EventParticipationTimedOut EventType = "participation.timed_out"
	EventParticipationCreated  EventType = "participation.created"
	EventParticipationDeleted  EventType = "participation.deleted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventID uniquely identifies this occurrence.
	EventID() string

	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent creates a new base event stamped at the given instant.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Participation Events
// ═══════════════════════════════════════════════════════════════════════════

// ParticipationEvent carries the state of a participation at the moment of
// the change. ActorID is nil for system-initiated changes.
type ParticipationEvent struct {
	BaseEvent
	ParticipationID int64      `json:"participation_id"`
	StudentID       int64      `json:"student_id"`
	CampusEventID   int64      `json:"event_id"`
	ActorID         *int64     `json:"actor_id,omitempty"`
	TimeIn          time.Time  `json:"time_in"`
	TimeOut         *time.Time `json:"time_out,omitempty"`
}

// ParticipationSnapshot is the subset of a participation copied into events.
type ParticipationSnapshot struct {
	ID        int64
	StudentID int64
	EventID   int64
	TimeIn    time.Time
	TimeOut   *time.Time
}

// NewParticipationEvent builds an event of the given type for p.
func NewParticipationEvent(eventType EventType, p ParticipationSnapshot, actorID *int64, at time.Time) *ParticipationEvent {
	return &ParticipationEvent{
		BaseEvent:       NewBaseEvent(eventType, strconv.FormatInt(p.ID, 10), at),
		ParticipationID: p.ID,
		StudentID:       p.StudentID,
		CampusEventID:   p.EventID,
		ActorID:         actorID,
		TimeIn:          p.TimeIn,
		TimeOut:         p.TimeOut,
	}
}

// Payload implements Event interface.
func (e *ParticipationEvent) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"participation_id": e.ParticipationID,
		"student_id":       e.StudentID,
		"event_id":         e.CampusEventID,
		"time_in":          e.TimeIn,
	}
	if e.TimeOut != nil {
		payload["time_out"] = *e.TimeOut
	}
	if e.ActorID != nil {
		payload["actor_id"] = *e.ActorID
	}
	return payload
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles domain events.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
	PublishAll(events []Event) error
}

// EventSubscriber subscribes to domain events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
