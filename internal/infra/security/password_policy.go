package security

import (
	"errors"
	"strings"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
)

const (
	defaultMinPasswordLength   = 6
	defaultMaxPasswordLength   = 100
	defaultMinCharacterClasses = 3

	// zxcvbn cost grows superlinearly with input, so feedback inputs are bounded.
	maxFeedbackInputs      = 5
	maxFeedbackInputLength = 100
)

// ErrPasswordTooLong is returned by Feedback for passwords the policy could never accept.
var ErrPasswordTooLong = errors.New("password exceeds the maximum length")

// DefaultPasswordValidator returns the built-in validator enforcing the registration password policy.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		LengthRangeRule(defaultMinPasswordLength, defaultMaxPasswordLength),
		RequireCharacterClassesRule(defaultMinCharacterClasses),
	)
}

// StrengthFeedback is the advisory breakdown returned to clients choosing a password.
type StrengthFeedback struct {
	Strength       domain.PasswordStrength
	Valid          bool
	Entropy        float64
	CrackTime      string
	EstimatorScore int
}

// PasswordPolicy adapts the password validator to the domain-level policy interface.
type PasswordPolicy struct {
	validator *PasswordValidator
}

// NewPasswordPolicy builds a policy around validator, falling back to the default rules when nil.
func NewPasswordPolicy(validator *PasswordValidator) *PasswordPolicy {
	if validator == nil {
		validator = DefaultPasswordValidator()
	}
	return &PasswordPolicy{validator: validator}
}

// Validate returns the first rule violation, if any.
func (p *PasswordPolicy) Validate(password string) error {
	return p.validator.Validate(password)
}

// IsValidPassword reports whether password satisfies every configured rule.
func (p *PasswordPolicy) IsValidPassword(password string) bool {
	return p.Validate(password) == nil
}

// Strength scores password on six criteria: length of at least 8 and 12,
// then one point per character class present.
func (p *PasswordPolicy) Strength(password string) domain.PasswordStrength {
	score := 0
	n := passwordLength(password)
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}
	score += classify(password).count()

	switch {
	case score <= 2:
		return domain.PasswordStrengthVeryWeak
	case score == 3:
		return domain.PasswordStrengthWeak
	case score == 4:
		return domain.PasswordStrengthMedium
	case score == 5:
		return domain.PasswordStrengthStrong
	default:
		return domain.PasswordStrengthVeryStrong
	}
}

// Feedback combines the policy score with a zxcvbn estimate. userInputs such as the
// name or email are treated as dictionary words. The estimate is never used for gating.
// Passwords longer than the policy maximum are rejected before estimation; at most
// five inputs are used, each truncated to 100 runes.
func (p *PasswordPolicy) Feedback(password string, userInputs ...string) (StrengthFeedback, error) {
	if passwordLength(password) > defaultMaxPasswordLength {
		return StrengthFeedback{}, ErrPasswordTooLong
	}

	inputs := make([]string, 0, min(len(userInputs), maxFeedbackInputs))
	for _, in := range userInputs {
		if len(inputs) == maxFeedbackInputs {
			break
		}
		trimmed := strings.TrimSpace(in)
		if trimmed == "" {
			continue
		}
		if runes := []rune(trimmed); len(runes) > maxFeedbackInputLength {
			trimmed = string(runes[:maxFeedbackInputLength])
		}
		inputs = append(inputs, trimmed)
	}

	result := zxcvbn.PasswordStrength(password, inputs)
	return StrengthFeedback{
		Strength:       p.Strength(password),
		Valid:          p.IsValidPassword(password),
		Entropy:        result.Entropy,
		CrackTime:      result.CrackTimeDisplay,
		EstimatorScore: result.Score,
	}, nil
}
