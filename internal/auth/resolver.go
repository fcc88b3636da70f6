package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/legal-intake/internal/domain"
	"github.com/spec-kit/legal-intake/internal/repository"
)

const (
	roleCachePrefix      = "auth:role:"
	profileLookupTimeout = 3 * time.Second
)

// RoleResolver turns an authenticated user id into a Session. Profiles are
// the source of truth; a role cached in Redis is reused for at most ttl.
type RoleResolver struct {
	profiles repository.ProfileRepository
	cache    redis.Cmdable
	ttl      time.Duration
	group    singleflight.Group
	logger   *zap.Logger
}

// NewRoleResolver builds a resolver. A nil cache or zero ttl disables
// caching.
func NewRoleResolver(profiles repository.ProfileRepository, cache redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RoleResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleResolver{profiles: profiles, cache: cache, ttl: ttl, logger: logger}
}

// Resolve looks up the role of userID. claimedRole is consulted only when
// the user has no profile. A lookup failure returns a Loading session.
func (r *RoleResolver) Resolve(ctx context.Context, userID, claimedRole string) Session {
	session := Session{UserID: userID}
	if role, ok := r.cached(ctx, userID); ok {
		session.State, session.Role = StateWithRole, role
		return session
	}

	// Concurrent requests for one user share this lookup, so it must not
	// inherit the cancellation of whichever request started it.
	v, err, _ := r.group.Do(userID, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), profileLookupTimeout)
		defer cancel()
		profile, err := r.profiles.GetByID(lookupCtx, userID)
		if err != nil {
			return nil, err
		}
		return profile, nil
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		role, parseErr := domain.ParseRole(claimedRole)
		if parseErr != nil {
			session.State = StateUnknownRole
			return session
		}
		session.State, session.Role = StateWithRole, role
		return session
	case err != nil:
		session.State, session.Err = StateLoading, err
		return session
	}

	role, err := domain.ParseRole(string(v.(*domain.Profile).Role))
	if err != nil {
		session.State = StateUnknownRole
		return session
	}
	r.store(ctx, userID, role)
	session.State, session.Role = StateWithRole, role
	return session
}

// Forget drops a cached role, e.g. after a profile change.
func (r *RoleResolver) Forget(ctx context.Context, userID string) error {
	if !r.caching() {
		return nil
	}
	return r.cache.Del(ctx, roleCachePrefix+userID).Err()
}

func (r *RoleResolver) caching() bool {
	return r.cache != nil && r.ttl > 0
}

func (r *RoleResolver) cached(ctx context.Context, userID string) (domain.Role, bool) {
	if !r.caching() {
		return "", false
	}
	raw, err := r.cache.Get(ctx, roleCachePrefix+userID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("role cache read failed", zap.Error(err))
		}
		return "", false
	}
	role, err := domain.ParseRole(raw)
	if err != nil {
		return "", false
	}
	return role, true
}

func (r *RoleResolver) store(ctx context.Context, userID string, role domain.Role) {
	if !r.caching() {
		return
	}
	if err := r.cache.Set(ctx, roleCachePrefix+userID, string(role), r.ttl).Err(); err != nil {
		r.logger.Warn("role cache write failed", zap.Error(err))
	}
}
