package dto

import (
	"time"

	"github.com/spec-kit/legal-intake/internal/domain"
)

// CreateTicketRequest payload. UserID may only differ from the caller for
// admins.
type CreateTicketRequest struct {
	UserID  string `json:"userId"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// CreateTicketResponse is returned by POST /tickets.
type CreateTicketResponse struct {
	TicketID string              `json:"ticketId"`
	Area     string              `json:"area"`
	Summary  *string             `json:"summary"`
	Status   domain.TicketStatus `json:"status"`
}

// TicketResponse is one ticket in a listing.
type TicketResponse struct {
	TicketID    string              `json:"ticketId"`
	UserID      string              `json:"userId"`
	UserName    *string             `json:"userName,omitempty"`
	UserEmail   *string             `json:"userEmail,omitempty"`
	Subject     string              `json:"subject,omitempty"`
	Text        string              `json:"text"`
	Area        string              `json:"area"`
	Summary     *string             `json:"summary"`
	Explanation *string             `json:"explanation"`
	AnswerIA    *string             `json:"answerIA"`
	Status      domain.TicketStatus `json:"status"`
	Reply       *string             `json:"reply"`
	RespondedAt *time.Time          `json:"respondedAt"`
	LawyerID    *string             `json:"lawyerId"`
	LawyerName  *string             `json:"lawyerName,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Tickets    []TicketResponse `json:"tickets"`
	NextCursor *string          `json:"nextCursor"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ReplyRequest payload.
type ReplyRequest struct {
	Reply string `json:"reply"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	TicketID   string                  `json:"ticketId"`
	ActorID    string                  `json:"actorId"`
	ChangeType domain.TicketChangeType `json:"changeType"`
	OldValue   map[string]any          `json:"oldValue"`
	NewValue   map[string]any          `json:"newValue"`
	CreatedAt  time.Time               `json:"createdAt"`
}
