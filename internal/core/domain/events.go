package domain

import "time"

// PrincipalRegisteredEvent represents the payload for visitapp.user.registered messages.
type PrincipalRegisteredEvent struct {
	EventID      string
	UserID       int64
	FullName     string
	Email        string
	Role         string
	ChurchID     *int64
	RegisteredAt time.Time
	Metadata     map[string]any
}

// LoginFailedEvent represents the payload for visitapp.auth.login_failed messages.
// Email is masked; the attempted address is never published in full.
type LoginFailedEvent struct {
	EventID     string
	Email       string
	Reason      string
	IPAddress   *string
	AttemptedAt time.Time
	Metadata    map[string]any
}
