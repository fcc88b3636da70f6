package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/legal-intake/internal/domain"
)

// Store errors surfaced to the service layer.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("duplicate ticket id")
	ErrInvalidTicket  = errors.New("invalid ticket")
	ErrStatusConflict = errors.New("ticket status changed concurrently")
)

const defaultPageLimit = 10

// ListQuery selects one page of tickets ordered by recency. An empty UserID
// lists the global feed.
type ListQuery struct {
	UserID string
	Limit  int
	Cursor string
}

func (q ListQuery) limit() int {
	if q.Limit <= 0 {
		return defaultPageLimit
	}
	return q.Limit
}

// Page is one slice of a recency listing. NextCursor is nil on the last page.
type Page struct {
	Items      []domain.Ticket
	NextCursor *string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create writes a new ticket exactly once; an existing id is ErrDuplicate.
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// ListByRecency pages by (created_at DESC, ticket_id DESC).
	ListByRecency(ctx context.Context, query ListQuery) (Page, error)
	// UpdateStatus moves a ticket from one status to another, failing with
	// ErrStatusConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to domain.TicketStatus) error
	// AttachReply sets reply, respondedAt and lawyerId together.
	AttachReply(ctx context.Context, id int64, reply, lawyerID string, respondedAt time.Time) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `ticket_id, user_id, subject, text, area, summary, explanation, answer_ia,
               status, reply, responded_at, lawyer_id, created_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	const query = `
        INSERT INTO tickets (ticket_id, user_id, subject, text, area, summary, explanation, answer_ia, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.UserID,
		ticket.Subject,
		ticket.Text,
		ticket.Area,
		ticket.Summary,
		ticket.Explanation,
		ticket.AnswerIA,
		ticket.Status,
		ticket.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ticket, err
}

// ListByRecency runs a keyset range query served by the
// (created_at, ticket_id) and (user_id, created_at, ticket_id) indexes.
func (r *ticketRepository) ListByRecency(ctx context.Context, q ListQuery) (Page, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if q.UserID != "" {
		args = append(args, q.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if q.Cursor != "" {
		key, err := decodeCursor(q.Cursor, q.UserID)
		if err != nil {
			return Page{}, err
		}
		args = append(args, key.createdAt(), key.TicketID)
		clauses = append(clauses, fmt.Sprintf("(created_at, ticket_id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	limit := q.limit()
	args = append(args, limit+1)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, ticket_id DESC LIMIT $%d`,
		ticketColumns, strings.Join(clauses, " AND "), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	items := make([]domain.Ticket, 0, limit+1)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return Page{}, err
		}
		items = append(items, *ticket)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	return buildPage(items, limit, q.UserID)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.TicketStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTicket, to)
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET status=$1 WHERE ticket_id=$2 AND status=$3`, to, id, from)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrStatusConflict
}

func (r *ticketRepository) AttachReply(ctx context.Context, id int64, reply, lawyerID string, respondedAt time.Time) error {
	if strings.TrimSpace(reply) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTicket, domain.ErrReplyRequired)
	}
	const query = `UPDATE tickets SET reply=$1, responded_at=$2, lawyer_id=$3 WHERE ticket_id=$4`
	cmd, err := r.pool.Exec(ctx, query, reply, respondedAt, lawyerID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Subject,
		&ticket.Text,
		&ticket.Area,
		&ticket.Summary,
		&ticket.Explanation,
		&ticket.AnswerIA,
		&ticket.Status,
		&ticket.Reply,
		&ticket.RespondedAt,
		&ticket.LawyerID,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	return &ticket, nil
}

// buildPage trims the look-ahead row and derives the continuation cursor.
func buildPage(items []domain.Ticket, limit int, scope string) (Page, error) {
	if len(items) <= limit {
		return Page{Items: items}, nil
	}
	items = items[:limit]
	next, err := encodeCursor(&items[len(items)-1], scope)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, NextCursor: &next}, nil
}
