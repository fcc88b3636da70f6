package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/legal-intake/internal/domain"
)

// MemoryTicketRepository keeps tickets in process memory. It backs the
// memory storage driver and the service tests.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[int64]domain.Ticket
}

// NewMemoryTicketRepository returns an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[int64]domain.Ticket)}
}

func (r *MemoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; exists {
		return ErrDuplicate
	}
	stored := cloneTicket(*ticket)
	stored.CreatedAt = stored.CreatedAt.UTC().Truncate(time.Microsecond)
	r.tickets[ticket.ID] = stored
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r *MemoryTicketRepository) ListByRecency(_ context.Context, q ListQuery) (Page, error) {
	var (
		key    cursorKey
		hasKey bool
	)
	if q.Cursor != "" {
		decoded, err := decodeCursor(q.Cursor, q.UserID)
		if err != nil {
			return Page{}, err
		}
		key, hasKey = decoded, true
	}

	r.mu.RLock()
	matched := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		if q.UserID != "" && ticket.UserID != q.UserID {
			continue
		}
		if hasKey && !key.after(&ticket) {
			continue
		}
		matched = append(matched, cloneTicket(ticket))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if a, b := matched[i].CreatedAt.UnixMicro(), matched[j].CreatedAt.UnixMicro(); a != b {
			return a > b
		}
		return matched[i].ID > matched[j].ID
	})

	limit := q.limit()
	if len(matched) > limit+1 {
		matched = matched[:limit+1]
	}
	return buildPage(matched, limit, q.UserID)
}

func (r *MemoryTicketRepository) UpdateStatus(_ context.Context, id int64, from, to domain.TicketStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTicket, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return ErrNotFound
	}
	if ticket.Status != from {
		return ErrStatusConflict
	}
	ticket.Status = to
	r.tickets[id] = ticket
	return nil
}

func (r *MemoryTicketRepository) AttachReply(_ context.Context, id int64, reply, lawyerID string, respondedAt time.Time) error {
	if strings.TrimSpace(reply) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTicket, domain.ErrReplyRequired)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return ErrNotFound
	}
	ticket.Reply = &reply
	ticket.RespondedAt = &respondedAt
	ticket.LawyerID = &lawyerID
	r.tickets[id] = ticket
	return nil
}

// Len reports how many tickets are stored.
func (r *MemoryTicketRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets)
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.Summary = cloneString(t.Summary)
	t.Explanation = cloneString(t.Explanation)
	t.AnswerIA = cloneString(t.AnswerIA)
	t.Reply = cloneString(t.Reply)
	t.LawyerID = cloneString(t.LawyerID)
	if t.RespondedAt != nil {
		at := *t.RespondedAt
		t.RespondedAt = &at
	}
	return t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
