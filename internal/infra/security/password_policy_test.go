package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
)

func TestPasswordPolicyIsValidPassword(t *testing.T) {
	policy := NewPasswordPolicy(nil)

	tests := []struct {
		password string
		want     bool
	}{
		{"abc123", false},
		{"Abc123", true},
		{"abc12!", true},
		{"ABC!!!1", true},
		{"abcdef", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := policy.IsValidPassword(tt.password); got != tt.want {
			t.Fatalf("IsValidPassword(%q) = %v, want %v", tt.password, got, tt.want)
		}
	}
}

func TestPasswordPolicyStrength(t *testing.T) {
	policy := NewPasswordPolicy(nil)

	tests := []struct {
		password string
		want     domain.PasswordStrength
	}{
		{"abc", domain.PasswordStrengthVeryWeak},
		{"abcdefgh", domain.PasswordStrengthVeryWeak},
		{"abcdefgH", domain.PasswordStrengthWeak},
		{"abcdefgH1", domain.PasswordStrengthMedium},
		{"abcdefgH1!", domain.PasswordStrengthStrong},
		{"Tr0ub4dor&3xyz", domain.PasswordStrengthVeryStrong},
	}

	for _, tt := range tests {
		if got := policy.Strength(tt.password); got != tt.want {
			t.Fatalf("Strength(%q) = %s, want %s", tt.password, got, tt.want)
		}
	}
}

func TestPasswordPolicyFeedbackPenalisesUserInputs(t *testing.T) {
	policy := NewPasswordPolicy(nil)

	password := "mariagarcia2024"
	plain, err := policy.Feedback(password)
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	personal, err := policy.Feedback(password, "Maria Garcia", "mariagarcia@example.com", " ")
	if err != nil {
		t.Fatalf("Feedback with inputs: %v", err)
	}

	if personal.Entropy > plain.Entropy {
		t.Fatalf("expected user inputs to lower entropy, got %f > %f", personal.Entropy, plain.Entropy)
	}
	if plain.Strength != policy.Strength(password) {
		t.Fatalf("feedback strength mismatch: %s", plain.Strength)
	}
	if plain.CrackTime == "" {
		t.Fatal("expected crack time estimate")
	}
}

func TestPasswordPolicyFeedbackRejectsOversizedPasswords(t *testing.T) {
	policy := NewPasswordPolicy(nil)

	start := time.Now()
	_, err := policy.Feedback(strings.Repeat("aB3!xY9@", 1250))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected oversized password to be rejected without estimation, took %s", elapsed)
	}

	if _, err := policy.Feedback(strings.Repeat("aB3!", 25)); err != nil {
		t.Fatalf("expected a 100 character password to be scored, got %v", err)
	}
}

func TestPasswordPolicyFeedbackBoundsUserInputs(t *testing.T) {
	policy := NewPasswordPolicy(nil)

	inputs := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		inputs = append(inputs, strings.Repeat("x", 10_000))
	}

	start := time.Now()
	feedback, err := policy.Feedback("Visit@2024church", inputs...)
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if feedback.CrackTime == "" {
		t.Fatal("expected crack time estimate")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("expected bounded inputs to keep estimation fast, took %s", elapsed)
	}
}
