package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew    TicketStatus = "New"
	TicketStatusOpen   TicketStatus = "Open"
	TicketStatusClosed TicketStatus = "Closed"
)

// ParseTicketStatus validates a status received at a boundary.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	switch TicketStatus(strings.TrimSpace(raw)) {
	case TicketStatusNew:
		return TicketStatusNew, nil
	case TicketStatusOpen:
		return TicketStatusOpen, nil
	case TicketStatusClosed:
		return TicketStatusClosed, nil
	}
	return "", fmt.Errorf("unknown ticket status %q", raw)
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	_, err := ParseTicketStatus(string(s))
	return err == nil
}

// Ticket is a client question routed to lawyers.
type Ticket struct {
	ID          int64
	UserID      string
	Subject     string
	Text        string
	Area        string
	Summary     *string
	Explanation *string
	AnswerIA    *string
	Status      TicketStatus
	Reply       *string
	RespondedAt *time.Time
	LawyerID    *string
	CreatedAt   time.Time
}

// TicketID returns the string-encoded identifier exposed to callers.
func (t *Ticket) TicketID() string {
	return FormatTicketID(t.ID)
}

// HasReply reports whether a lawyer has answered the ticket.
func (t *Ticket) HasReply() bool {
	return t.Reply != nil && t.RespondedAt != nil
}

// ApplyClassification copies the whole classification group onto the ticket.
func (t *Ticket) ApplyClassification(c Classification) {
	t.Area = c.Area
	t.Summary = optional(c.Summary)
	t.Explanation = optional(c.Explanation)
	t.AnswerIA = optional(c.AnswerIA)
}

// Validation failures for ticket input.
var (
	ErrUserIDRequired = errors.New("userId is required")
	ErrTextRequired   = errors.New("text is required")
	ErrReplyRequired  = errors.New("reply is required")
)

// ValidateNew checks the fields a ticket must carry before anything is
// allocated or written for it.
func ValidateNew(userID, text string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	if strings.TrimSpace(text) == "" {
		return ErrTextRequired
	}
	return nil
}

// Validate checks a ticket about to be persisted.
func (t *Ticket) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("invalid ticket id %d", t.ID)
	}
	if err := ValidateNew(t.UserID, t.Text); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown ticket status %q", t.Status)
	}
	if (t.Reply == nil) != (t.RespondedAt == nil) {
		return errors.New("reply and respondedAt must be set together")
	}
	return nil
}

// FormatTicketID renders a ticket id the way it travels on the wire.
func FormatTicketID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseTicketID accepts only positive base-10 integers.
func ParseTicketID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ticket id %q", raw)
	}
	return id, nil
}

func optional(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
