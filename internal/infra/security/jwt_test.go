package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func testPrincipal() domain.Principal {
	churchID := int64(7)
	return domain.Principal{
		ID:         42,
		FullName:   "Ana Perez",
		Email:      "ana@x.com",
		Phone:      "555-0100",
		IsVerified: true,
		ChurchID:   &churchID,
	}
}

func TestNewTokenServiceRejectsMissingOrWeakSecret(t *testing.T) {
	if _, err := NewTokenService(TokenConfig{}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := NewTokenService(TokenConfig{Secret: "   "}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret for blank secret, got %v", err)
	}
	if _, err := NewTokenService(TokenConfig{Secret: "short"}); !errors.Is(err, ErrWeakSecret) {
		t.Fatalf("expected ErrWeakSecret, got %v", err)
	}
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewTokenService(TokenConfig{Secret: testSecret}, WithTokenClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}

	token, expiresAt, err := svc.Issue(testPrincipal(), "admin")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !expiresAt.Equal(now.Add(DefaultTokenTTL)) {
		t.Fatalf("unexpected expiry: %s", expiresAt)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if claims.SubjectID != 42 || claims.Role != "admin" || claims.Email != "ana@x.com" || claims.Name != "Ana Perez" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.IsVerified || claims.Phone != "555-0100" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ChurchID == nil || *claims.ChurchID != 7 {
		t.Fatalf("expected church id claim, got %v", claims.ChurchID)
	}
	if claims.TokenID == "" {
		t.Fatal("expected jti claim")
	}
	if !claims.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("claims expiry %s does not match %s", claims.ExpiresAt, expiresAt)
	}

	if got := svc.Expiration(token); !got.Equal(expiresAt) {
		t.Fatalf("Expiration = %s, want %s", got, expiresAt)
	}
	if id, ok := svc.SubjectID(token); !ok || id != 42 {
		t.Fatalf("SubjectID = %d, %v", id, ok)
	}
}

func TestIssueDefaultsRole(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}

	token, _, err := svc.Issue(domain.Principal{ID: 1, Email: "a@b.c"}, " ")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if claims.Role != domain.DefaultRoleName {
		t.Fatalf("expected default role, got %q", claims.Role)
	}
	if claims.ChurchID != nil {
		t.Fatalf("expected no church id, got %v", *claims.ChurchID)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenService(TokenConfig{Secret: testSecret, TTL: time.Hour}, WithTokenClock(fixedClock(issuedAt)))
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	token, expiresAt, err := issuer.Issue(testPrincipal(), "user")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	later, err := NewTokenService(TokenConfig{Secret: testSecret, TTL: time.Hour}, WithTokenClock(fixedClock(expiresAt.Add(time.Second))))
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	if _, err := later.Validate(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
	if _, ok := later.SubjectID(token); ok {
		t.Fatal("expected SubjectID to fail for expired token")
	}
	// Expiration does not verify, so it still reports the stored expiry.
	if got := later.Expiration(token); !got.Equal(expiresAt) {
		t.Fatalf("Expiration = %s, want %s", got, expiresAt)
	}
}

func TestValidateRejectsTamperedAndForeignTokens(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	other, err := NewTokenService(TokenConfig{Secret: strings.Repeat("z", 40)})
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}

	token, _, err := svc.Issue(testPrincipal(), "user")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	foreign, _, err := other.Issue(testPrincipal(), "user")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := strings.Join([]string{parts[0], string(payload), parts[2]}, ".")

	for name, candidate := range map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"tampered":  tampered,
		"foreign":   foreign,
		"truncated": parts[0] + "." + parts[1],
	} {
		if _, err := svc.Validate(candidate); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestValidateRejectsUnexpectedAlgorithms(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}

	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42", ExpiresAt: exp},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign HS512: %v", err)
	}
	if _, err := svc.Validate(hs512); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected HS512 token to be rejected, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42", ExpiresAt: exp},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Validate(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected unsigned token to be rejected, got %v", err)
	}
}

func TestValidateRejectsNonNumericSubject(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ana@x.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, ok := svc.SubjectID(token); ok {
		t.Fatal("expected SubjectID to fail")
	}
}

func TestValidateIssuerAndAudience(t *testing.T) {
	cfg := TokenConfig{Secret: testSecret, Issuer: "visitapp", Audience: "visitapp-web"}
	svc, err := NewTokenService(cfg)
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	token, _, err := svc.Issue(testPrincipal(), "user")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := svc.Validate(token); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	cfg.Audience = "mobile"
	mismatch, err := NewTokenService(cfg)
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	if _, err := mismatch.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected audience mismatch to be rejected, got %v", err)
	}
}

func TestExpirationOfGarbageIsZero(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}
	for _, token := range []string{"", "garbage", "a.b.c"} {
		if got := svc.Expiration(token); !got.IsZero() {
			t.Fatalf("Expiration(%q) = %s, want zero", token, got)
		}
	}
}
