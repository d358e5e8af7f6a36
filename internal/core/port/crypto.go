package port

import (
	"time"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
)

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
	// NeedsRehash reports hashes produced by a legacy algorithm or weaker parameters.
	NeedsRehash(encoded string) bool
}

// PasswordPolicy gates registration passwords and scores them for feedback.
type PasswordPolicy interface {
	IsValidPassword(password string) bool
	Strength(password string) domain.PasswordStrength
}

// TokenService issues and validates signed access tokens.
type TokenService interface {
	Issue(principal domain.Principal, role string) (string, time.Time, error)
	Validate(token string) (*domain.TokenClaims, error)
	Expiration(token string) time.Time
	SubjectID(token string) (int64, bool)
}
