package security

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
)

// passwordSymbols is the symbol class accepted by the registration policy.
const passwordSymbols = `!@#$%^&*(),.?"':;{}|<>`

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// passwordLength counts UTF-16 code units so limits agree with the web and mobile
// clients, which measure passwords the same way.
func passwordLength(password string) int {
	n := 0
	for _, r := range password {
		if size := utf16.RuneLen(r); size > 0 {
			n += size
		} else {
			n++
		}
	}
	return n
}

// LengthRangeRule ensures the password has between min and max characters, counted in UTF-16 units.
func LengthRangeRule(min, max int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		n := passwordLength(password)
		if n < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		if max > 0 && n > max {
			return &PasswordValidationError{
				Code:    "max_length",
				Message: fmt.Sprintf("password must be at most %d characters long", max),
			}
		}
		return nil
	})
}

// characterClasses reports which of the lowercase, uppercase, digit and symbol classes appear in password.
// Letters are ASCII only; digits are any Unicode decimal digit.
type characterClasses struct {
	lower, upper, digit, symbol bool
}

func classify(password string) characterClasses {
	var c characterClasses
	for _, r := range password {
		switch {
		case 'a' <= r && r <= 'z':
			c.lower = true
		case 'A' <= r && r <= 'Z':
			c.upper = true
		case unicode.IsDigit(r):
			c.digit = true
		case strings.ContainsRune(passwordSymbols, r):
			c.symbol = true
		}
	}
	return c
}

func (c characterClasses) count() int {
	n := 0
	for _, ok := range []bool{c.lower, c.upper, c.digit, c.symbol} {
		if ok {
			n++
		}
	}
	return n
}

// RequireCharacterClassesRule ensures the password contains characters from at least min distinct classes (upper, lower, digit, symbol).
func RequireCharacterClassesRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if min <= 0 || classify(password).count() >= min {
			return nil
		}
		return &PasswordValidationError{
			Code:    "character_classes",
			Message: fmt.Sprintf("password must include at least %d character types", min),
		}
	})
}
