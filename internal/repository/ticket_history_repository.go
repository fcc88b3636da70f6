package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/legal-intake/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	oldValue, err := json.Marshal(history.OldValue)
	if err != nil {
		return err
	}
	newValue, err := json.Marshal(history.NewValue)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO ticket_history (id, ticket_id, actor_id, change_type, old_value, new_value, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = r.pool.Exec(ctx, query,
		history.ID,
		history.TicketID,
		history.ActorID,
		history.ChangeType,
		oldValue,
		newValue,
		history.CreatedAt,
	)
	return err
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, actor_id, change_type, old_value, new_value, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var (
			history  domain.TicketHistory
			oldValue []byte
			newValue []byte
		)
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.ActorID,
			&history.ChangeType,
			&oldValue,
			&newValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(oldValue, &history.OldValue); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(newValue, &history.NewValue); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}

// MemoryTicketHistoryRepository is the in-process audit trail.
type MemoryTicketHistoryRepository struct {
	mu      sync.RWMutex
	entries map[int64][]domain.TicketHistory
}

// NewMemoryTicketHistoryRepository returns an empty trail.
func NewMemoryTicketHistoryRepository() *MemoryTicketHistoryRepository {
	return &MemoryTicketHistoryRepository{entries: make(map[int64][]domain.TicketHistory)}
}

func (r *MemoryTicketHistoryRepository) Create(_ context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[history.TicketID] = append(r.entries[history.TicketID], *history)
	return nil
}

func (r *MemoryTicketHistoryRepository) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.TicketHistory{}, r.entries[ticketID]...), nil
}
