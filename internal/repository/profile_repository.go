package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/legal-intake/internal/domain"
)

// ProfileRepository reads user profiles used for role resolution and for
// display names on listings.
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, userID string) (*domain.Profile, error)
	// GetMany returns the profiles found for ids, keyed by user id. Missing
	// ids are simply absent.
	GetMany(ctx context.Context, userIDs []string) (map[string]domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (user_id, role, first_name, last_name, email)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO UPDATE
        SET role=EXCLUDED.role, first_name=EXCLUDED.first_name,
            last_name=EXCLUDED.last_name, email=EXCLUDED.email`

	_, err := r.pool.Exec(ctx, query,
		profile.UserID,
		profile.Role,
		profile.FirstName,
		profile.LastName,
		profile.Email,
	)
	return err
}

func (r *profileRepository) GetByID(ctx context.Context, userID string) (*domain.Profile, error) {
	const query = `
        SELECT user_id, role, first_name, last_name, email
        FROM profiles WHERE user_id=$1`

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Role,
		&profile.FirstName,
		&profile.LastName,
		&profile.Email,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) GetMany(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	result := make(map[string]domain.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT user_id, role, first_name, last_name, email
        FROM profiles WHERE user_id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var profile domain.Profile
		if err := rows.Scan(
			&profile.UserID,
			&profile.Role,
			&profile.FirstName,
			&profile.LastName,
			&profile.Email,
		); err != nil {
			return nil, err
		}
		result[profile.UserID] = profile
	}
	return result, rows.Err()
}

// MemoryProfileRepository holds profiles in process memory.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

// NewMemoryProfileRepository returns an empty profile set.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[string]domain.Profile)}
}

func (r *MemoryProfileRepository) Upsert(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID] = *profile
	return nil
}

func (r *MemoryProfileRepository) GetByID(_ context.Context, userID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &profile, nil
}

func (r *MemoryProfileRepository) GetMany(_ context.Context, userIDs []string) (map[string]domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]domain.Profile, len(userIDs))
	for _, id := range userIDs {
		if profile, ok := r.profiles[id]; ok {
			result[id] = profile
		}
	}
	return result, nil
}
