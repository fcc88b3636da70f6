package domain

// Caller identifies the authenticated user invoking a service operation.
type Caller struct {
	UserID string
	Role   Role
}

// Is reports whether the caller holds one of the given roles.
func (c Caller) Is(roles ...Role) bool {
	for _, role := range roles {
		if c.Role == role {
			return true
		}
	}
	return false
}
