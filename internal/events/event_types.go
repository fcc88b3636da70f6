package events

import (
	"time"

	"github.com/spec-kit/legal-intake/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReplied       EventType = "ticket_replied"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OwnerID  string `json:"owner_id"`
	Area     string `json:"area"`
	Subject  string `json:"subject,omitempty"`
	Fallback bool   `json:"fallback"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OwnerID   string              `json:"owner_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketRepliedPayload payload.
type TicketRepliedPayload struct {
	OwnerID      string `json:"owner_id"`
	LawyerID     string `json:"lawyer_id"`
	ReplyPreview string `json:"reply_preview"`
}
