package auth

import (
	"slices"

	"github.com/spec-kit/legal-intake/internal/domain"
)

// Policy is the allow-list of one protected operation.
type Policy struct {
	Allowed []domain.Role
	// Landing is the public surface rejected callers are sent to.
	Landing string
}

// Evaluate decides a request synchronously. It holds no state, so every
// request is judged on the session resolved for it.
func (p Policy) Evaluate(session Session) Decision {
	switch session.State {
	case StateWithRole:
		if slices.Contains(p.Allowed, session.Role) {
			return Decision{Kind: Allow}
		}
		return Decision{Kind: Redirect, Target: p.Landing}
	case StateUnauthenticated, StateUnknownRole:
		return Decision{Kind: Redirect, Target: p.Landing}
	default:
		return Decision{Kind: Pending}
	}
}

// Allow-lists of the HTTP surface.
var (
	ClientRoles      = []domain.Role{domain.RoleClient, domain.RoleAdmin}
	ReaderRoles      = []domain.Role{domain.RoleClient, domain.RoleLawyer, domain.RoleAdmin}
	LawyerRoles      = []domain.Role{domain.RoleLawyer}
	LawyerAdminRoles = []domain.Role{domain.RoleLawyer, domain.RoleAdmin}
)
