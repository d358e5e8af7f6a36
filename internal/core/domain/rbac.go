package domain

import "time"

// Role is a named grant such as "user" or "admin".
type Role struct {
	ID          int64
	Name        string
	Description *string
	IsActive    bool
}

// UserRole assigns a role to a principal.
type UserRole struct {
	UserID     int64
	RoleID     int64
	AssignedAt time.Time
	RevokedAt  *time.Time
	IsActive   bool
}

// EffectiveRole returns the first role name in the slice, or DefaultRoleName when none is usable.
// Callers are expected to supply roles in assignment order.
func EffectiveRole(roles []Role) string {
	for _, role := range roles {
		if role.Name != "" {
			return role.Name
		}
	}
	return DefaultRoleName
}
