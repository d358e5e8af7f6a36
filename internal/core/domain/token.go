package domain

import "time"

// TokenClaims carries the identity facts embedded in a signed access token.
type TokenClaims struct {
	SubjectID  int64
	Name       string
	Email      string
	Role       string
	Phone      string
	IsVerified bool
	ChurchID   *int64
	TokenID    string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// PasswordStrength is an advisory score used for UX feedback.
type PasswordStrength int

const (
	PasswordStrengthVeryWeak PasswordStrength = iota
	PasswordStrengthWeak
	PasswordStrengthMedium
	PasswordStrengthStrong
	PasswordStrengthVeryStrong
)

func (s PasswordStrength) String() string {
	switch s {
	case PasswordStrengthVeryWeak:
		return "very_weak"
	case PasswordStrengthWeak:
		return "weak"
	case PasswordStrengthMedium:
		return "medium"
	case PasswordStrengthStrong:
		return "strong"
	case PasswordStrengthVeryStrong:
		return "very_strong"
	default:
		return "unknown"
	}
}
