package usecase

import "errors"

// Error kinds shared by every auth workflow. Match them with errors.Is.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrInternal        = errors.New("internal error")
)

// Messages exposed to callers.
const (
	MsgInvalidCredentials  = "invalid credentials"
	MsgEmailRegistered     = "email already registered"
	MsgPhoneRegistered     = "phone already registered"
	MsgPrincipalNotFound   = "user not found"
	MsgInternal            = "internal error"
	MsgLoginSuccessful     = "Login successful"
	MsgRegisterSuccessful  = "Registration successful"
	MsgPasswordRequirement = "password must be 6 to 100 characters and include at least three of: lowercase, uppercase, digit, symbol"
)

// AuthError is returned by the auth workflows. Message is safe to show to clients;
// the cause is kept for server-side logging and never rendered by Error.
type AuthError struct {
	Kind    error
	Message string
	cause   error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// Is matches the error kind.
func (e *AuthError) Is(target error) bool {
	return e.Kind == target
}

// Cause returns the underlying failure, if any.
func (e *AuthError) Cause() error {
	return e.cause
}

func unauthorized() *AuthError {
	return &AuthError{Kind: ErrUnauthorized, Message: MsgInvalidCredentials}
}

func invalidArgument(msg string) *AuthError {
	return &AuthError{Kind: ErrInvalidArgument, Message: msg}
}

func conflict(msg string) *AuthError {
	return &AuthError{Kind: ErrConflict, Message: msg}
}

func notFound(msg string) *AuthError {
	return &AuthError{Kind: ErrNotFound, Message: msg}
}

func internal(cause error) *AuthError {
	return &AuthError{Kind: ErrInternal, Message: MsgInternal, cause: cause}
}
