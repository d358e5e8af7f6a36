package domain

import (
	"strings"
	"time"
)

// DefaultRoleName is the role granted to principals without an active role assignment.
const DefaultRoleName = "user"

// Principal mirrors the persisted representation in the users table.
type Principal struct {
	ID           int64
	FullName     string
	Email        string
	Phone        string
	PasswordHash string
	IsVerified   bool
	ChurchID     *int64
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// PrincipalView is the public-safe projection of a principal returned to callers.
type PrincipalView struct {
	ID         int64
	FullName   string
	Email      string
	Phone      string
	IsVerified bool
	CreatedAt  time.Time
	Role       string
	ChurchID   *int64
}

// View projects the principal with the supplied effective role.
func (p Principal) View(role string) PrincipalView {
	if role == "" {
		role = DefaultRoleName
	}

	view := PrincipalView{
		ID:         p.ID,
		FullName:   p.FullName,
		Email:      p.Email,
		Phone:      p.Phone,
		IsVerified: p.IsVerified,
		CreatedAt:  p.CreatedAt,
		Role:       role,
	}
	if p.ChurchID != nil {
		churchID := *p.ChurchID
		view.ChurchID = &churchID
	}

	return view
}

// AuthResult is returned by the login and registration workflows.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Message   string
	Principal PrincipalView
}

// CanonicalEmail trims and lowercases an email address for lookups and uniqueness checks.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
