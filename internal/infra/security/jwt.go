package security

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
)

// MinSecretLength is the shortest HMAC secret accepted by NewTokenService.
const MinSecretLength = 32

// DefaultTokenTTL is the validity window applied when TokenConfig.TTL is not set.
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	// ErrMissingSecret indicates the signing secret was not configured.
	ErrMissingSecret = errors.New("jwt: signing secret is required")
	// ErrWeakSecret indicates the signing secret is shorter than MinSecretLength.
	ErrWeakSecret = fmt.Errorf("jwt: signing secret must be at least %d bytes", MinSecretLength)
	// ErrInvalidToken is returned for malformed, tampered, or otherwise unacceptable tokens.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrExpiredToken is returned when the token is past its expiry.
	ErrExpiredToken = errors.New("jwt: token expired")
)

// TokenConfig configures the HS256 token service.
type TokenConfig struct {
	Secret   string
	TTL      time.Duration
	Issuer   string
	Audience string
}

// AccessTokenClaims carries the principal's identity facts alongside the registered claims.
type AccessTokenClaims struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	Verified bool   `json:"verified"`
	ChurchID *int64 `json:"church_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithTokenClock overrides the clock used to stamp and check tokens.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// TokenService issues and validates HS256 access tokens.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenService validates cfg and constructs the service. An absent or short
// secret is a configuration error; there is no fallback key.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	svc := &TokenService{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// TTL returns the configured validity window.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for principal carrying role, returning it with its expiry.
func (s *TokenService) Issue(principal domain.Principal, role string) (string, time.Time, error) {
	if principal.ID <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt: principal id is required")
	}
	if role = strings.TrimSpace(role); role == "" {
		role = domain.DefaultRoleName
	}

	// Numeric dates have second precision, so truncate to keep the returned expiry equal to the exp claim.
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	claims := &AccessTokenClaims{
		Name:     principal.FullName,
		Email:    principal.Email,
		Role:     role,
		Phone:    principal.Phone,
		Verified: principal.IsVerified,
		ChurchID: principal.ChurchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(principal.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate verifies signature, algorithm, expiry and, when configured, issuer and audience.
func (s *TokenService) Validate(token string) (*domain.TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subjectID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || subjectID <= 0 {
		return nil, fmt.Errorf("%w: subject is not a principal id", ErrInvalidToken)
	}

	decoded := &domain.TokenClaims{
		SubjectID:  subjectID,
		Name:       claims.Name,
		Email:      claims.Email,
		Role:       claims.Role,
		Phone:      claims.Phone,
		IsVerified: claims.Verified,
		ChurchID:   claims.ChurchID,
		TokenID:    claims.ID,
	}
	if claims.IssuedAt != nil {
		decoded.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		decoded.ExpiresAt = claims.ExpiresAt.Time
	}

	return decoded, nil
}

// Expiration reads the exp claim without verifying the signature. It returns the
// zero time when the token cannot be parsed or carries no expiry.
func (s *TokenService) Expiration(token string) time.Time {
	claims := &AccessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// SubjectID returns the principal id of a valid token.
func (s *TokenService) SubjectID(token string) (int64, bool) {
	claims, err := s.Validate(token)
	if err != nil {
		return 0, false
	}
	return claims.SubjectID, true
}
