package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/legal-intake/internal/domain"
	apperrors "github.com/spec-kit/legal-intake/pkg/util/errorutil"
)

const callerKey = "auth_caller"

// RetryAfterSeconds is advertised on pending decisions.
const RetryAfterSeconds = "1"

// Guard authenticates bearer tokens and applies role policies on every
// request.
type Guard struct {
	tokens   *TokenManager
	resolver *RoleResolver
	landing  string
}

// NewGuard constructs the middleware factory.
func NewGuard(tokens *TokenManager, resolver *RoleResolver, landing string) *Guard {
	if landing == "" {
		landing = "/"
	}
	return &Guard{tokens: tokens, resolver: resolver, landing: landing}
}

// Require admits callers holding one of the allowed roles.
func (g *Guard) Require(allowed ...domain.Role) fiber.Handler {
	policy := Policy{Allowed: allowed, Landing: g.landing}
	return func(c *fiber.Ctx) error {
		session := g.session(c)
		decision := policy.Evaluate(session)
		switch decision.Kind {
		case Pending:
			c.Set(fiber.HeaderRetryAfter, RetryAfterSeconds)
			return apperrors.NewAuthPending(session.Err)
		case Redirect:
			if session.State == StateUnauthenticated {
				return apperrors.NewUnauthorized("authentication required", decision.Target)
			}
			return apperrors.NewForbidden("role not allowed", decision.Target)
		}
		c.Locals(callerKey, session.Caller())
		return c.Next()
	}
}

func (g *Guard) session(c *fiber.Ctx) Session {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return Session{State: StateUnauthenticated}
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Session{State: StateUnauthenticated}
	}
	claims, err := g.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return Session{State: StateUnauthenticated}
	}
	return g.resolver.Resolve(c.UserContext(), claims.Subject, claims.Role)
}

// CallerFromContext retrieves the caller admitted by Require.
func CallerFromContext(c *fiber.Ctx) (domain.Caller, bool) {
	caller, ok := c.Locals(callerKey).(domain.Caller)
	return caller, ok
}
