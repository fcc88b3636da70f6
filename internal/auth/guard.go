package auth

import "github.com/spec-kit/legal-intake/internal/domain"

// GuardState is what is known about the caller when a route is entered.
type GuardState int

const (
	// StateLoading means the role could not be resolved yet.
	StateLoading GuardState = iota
	StateUnauthenticated
	StateUnknownRole
	StateWithRole
)

func (s GuardState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateUnknownRole:
		return "authenticated_unknown_role"
	case StateWithRole:
		return "authenticated_with_role"
	}
	return "invalid"
}

// Session is the resolved caller.
type Session struct {
	State  GuardState
	UserID string
	Role   domain.Role
	// Err explains a Loading state.
	Err error
}

// Caller returns the service-level identity of an authenticated session.
func (s Session) Caller() domain.Caller {
	return domain.Caller{UserID: s.UserID, Role: s.Role}
}

// DecisionKind is the outcome of evaluating a policy.
type DecisionKind int

const (
	Allow DecisionKind = iota
	Redirect
	Pending
)

// Decision tells the transport what to do with a request.
type Decision struct {
	Kind   DecisionKind
	Target string
}
