package port

// AuthMetrics records outcomes of the authentication workflows.
type AuthMetrics interface {
	LoginAttempt(outcome string)
	Registration(outcome string)
}
