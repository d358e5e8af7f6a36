package port

import (
	"context"
	"time"
)

// RateLimitDecision is the outcome of a single Acquire call.
type RateLimitDecision struct {
	// Allowed reports whether the attempt was recorded.
	Allowed bool
	// Count is the number of attempts inside the window before this one.
	Count int
	// Oldest is the earliest attempt still inside the window; zero when there is none.
	Oldest time.Time
}

// RateLimitStore keeps per-client attempt timestamps for sliding-window limits.
// Identifiers are scoped by rule, e.g. "auth_login_ip:203.0.113.7".
type RateLimitStore interface {
	// Acquire drops attempts at or before at-window, then records at only when fewer
	// than limit attempts remain in (at-window, at]. The check and the record are atomic.
	Acquire(ctx context.Context, identifier string, limit int, window time.Duration, at time.Time) (RateLimitDecision, error)
}
