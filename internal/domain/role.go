package domain

import (
	"fmt"
	"strings"
)

// Role is the caller role claim resolved by the access guard.
type Role string

const (
	RoleClient Role = "client"
	RoleLawyer Role = "lawyer"
	RoleAdmin  Role = "admin"
)

// ParseRole validates a role claim. "regular" is accepted as a legacy
// spelling of client.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleClient), "regular":
		return RoleClient, nil
	case string(RoleLawyer):
		return RoleLawyer, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Profile is the user record consulted for role resolution and display names.
type Profile struct {
	UserID    string
	Role      Role
	FirstName string
	LastName  string
	Email     string
}

// DisplayName joins first and last name.
func (p *Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
