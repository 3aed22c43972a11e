package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "TICKET_CREATED"
	EventTicketUpdated   EventType = "TICKET_UPDATED"
	EventMessageCreated  EventType = "MESSAGE_CREATED"
	EventCategoryCreated EventType = "CATEGORY_CREATED"
)

// AllEventTypes lists every type pushed to connected clients.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventMessageCreated,
	EventCategoryCreated,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type     domain.SubjectType `json:"type"`
	ID       string             `json:"id"`
	Username string             `json:"username,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	// PreviousStatus is set on TICKET_UPDATED events.
	PreviousStatus domain.TicketStatus `json:"-"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, actor Actor, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Envelope is the frame pushed over the duplex channel. Receivers treat it
// as an invalidation signal and re-fetch.
type Envelope struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Envelope strips server-side metadata from the event.
func (e Event) Envelope() Envelope {
	return Envelope{Type: e.Type, Data: e.Data}
}

// MessageCreatedPayload is the data of MESSAGE_CREATED.
type MessageCreatedPayload struct {
	TicketID int64                `json:"ticketId"`
	Message  domain.TicketMessage `json:"message"`
}
