package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/infra/config"
)

const (
	schemaVersion = "1.0"

	EventPrincipalRegistered = "user.registered"
	EventLoginFailed         = "auth.login_failed"
)

// EventPublisher implements port.EventPublisher on top of Producer.
type EventPublisher struct {
	producer *Producer
	appCfg   config.AppSettings
}

func NewEventPublisher(producer *Producer, appCfg config.AppSettings) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, key string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	body, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		UserID:    key,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(body),
	}
	if key != "" {
		message.Key = sarama.StringEncoder(key)
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishPrincipalRegistered emits user.registered keyed by user id.
func (p *EventPublisher) PublishPrincipalRegistered(ctx context.Context, event domain.PrincipalRegisteredEvent) error {
	payload := struct {
		UserID       int64          `json:"user_id"`
		FullName     string         `json:"full_name"`
		Email        string         `json:"email"`
		Role         string         `json:"role"`
		ChurchID     *int64         `json:"church_id,omitempty"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		FullName:     event.FullName,
		Email:        event.Email,
		Role:         event.Role,
		ChurchID:     event.ChurchID,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	userID := strconv.FormatInt(event.UserID, 10)
	return p.publish(ctx, event.EventID, EventPrincipalRegistered, userID, event.RegisteredAt, payload)
}

// PublishLoginFailed emits auth.login_failed. AuthService masks the email before publishing.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		Email       string         `json:"email"`
		Reason      string         `json:"reason"`
		IPAddress   *string        `json:"ip_address,omitempty"`
		AttemptedAt time.Time      `json:"attempted_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		Email:       event.Email,
		Reason:      event.Reason,
		IPAddress:   event.IPAddress,
		AttemptedAt: event.AttemptedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventLoginFailed, "", event.AttemptedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
