package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
)

// StubPublisher logs events instead of sending them. Used when kafka.enabled is false.
type StubPublisher struct {
	logger *zap.Logger
}

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) PublishPrincipalRegistered(_ context.Context, event domain.PrincipalRegisteredEvent) error {
	p.logger.Info("stub event published",
		zap.String("event_type", EventPrincipalRegistered),
		zap.String("event_id", event.EventID),
		zap.Int64("user_id", event.UserID),
		zap.String("role", event.Role),
		zap.Time("timestamp", event.RegisteredAt.UTC()),
	)
	return nil
}

func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	fields := []zap.Field{
		zap.String("event_type", EventLoginFailed),
		zap.String("event_id", event.EventID),
		zap.String("email", event.Email),
		zap.String("reason", event.Reason),
		zap.Time("timestamp", event.AttemptedAt.UTC()),
	}
	if event.IPAddress != nil {
		fields = append(fields, zap.String("ip_address", *event.IPAddress))
	}
	p.logger.Info("stub event published", fields...)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
