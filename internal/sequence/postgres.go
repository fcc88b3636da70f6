package sequence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	allocateQuery = `
        INSERT INTO counters (counter_name, current_value) VALUES ($1, 1)
        ON CONFLICT (counter_name) DO UPDATE SET current_value = counters.current_value + 1
        RETURNING current_value`
	currentQuery = `SELECT current_value FROM counters WHERE counter_name=$1`
)

// PostgresAllocator keeps the counter in the counters table. The upsert
// creates the row at 1 on first use and otherwise increments it in place.
type PostgresAllocator struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresAllocator binds an allocator to one named counter.
func NewPostgresAllocator(pool *pgxpool.Pool, name string) *PostgresAllocator {
	return &PostgresAllocator{pool: pool, name: name}
}

func (a *PostgresAllocator) Allocate(ctx context.Context) (int64, error) {
	if a.pool == nil {
		return 0, allocationFailed(errors.New("postgres pool not configured"))
	}
	var value int64
	if err := a.pool.QueryRow(ctx, allocateQuery, a.name).Scan(&value); err != nil {
		return 0, allocationFailed(err)
	}
	if value <= 0 {
		return 0, allocationFailed(nil)
	}
	return value, nil
}

func (a *PostgresAllocator) Current(ctx context.Context) (int64, error) {
	if a.pool == nil {
		return 0, errors.New("postgres pool not configured")
	}
	var value int64
	err := a.pool.QueryRow(ctx, currentQuery, a.name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return value, err
}
