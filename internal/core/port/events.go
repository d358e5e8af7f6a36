package port

import (
	"context"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishPrincipalRegistered(ctx context.Context, event domain.PrincipalRegisteredEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
}
