package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/IntegratedRai444/zipzydeliver-sub001/pkg/kafka"
)

// Kafka topics for notification outcome events.
const (
	TopicNotificationSent   = "zipzy.notification.sent"
	TopicNotificationFailed = "zipzy.notification.failed"
)

// Aggregate type constant.
const AggregateTypeNotification = "notification"

// Source identifier for events originating from the notification engine.
const SourceNotificationEngine = "notification-engine"

// NotificationSentData is the payload for a notification.sent event.
type NotificationSentData struct {
	NotificationID string         `json:"notification_id"`
	UserID         string         `json:"user_id"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Channels       []string       `json:"channels"`
	Data           map[string]any `json:"data,omitempty"`
}

// NotificationFailedData is the payload for a notification.failed event.
type NotificationFailedData struct {
	NotificationID string   `json:"notification_id"`
	UserID         string   `json:"user_id"`
	Title          string   `json:"title"`
	Channels       []string `json:"channels"`
	Error          string   `json:"error,omitempty"`
}

// Producer mirrors delivery outcomes from the in-process bus onto the
// platform Kafka topics.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new outcome event producer. The Kafka producer may be
// nil, in which case publishing is a no-op (useful for local development).
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Attach subscribes the producer to the delivery outcome events on the bus.
func (p *Producer) Attach(bus *Bus) {
	bus.Subscribe(KindNotificationSent, func(ctx context.Context, evt Event) {
		if err := p.PublishNotificationSent(ctx, evt); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish notification.sent event",
				slog.String("notification_id", evt.NotificationID),
				slog.String("error", err.Error()))
		}
	})
	bus.Subscribe(KindNotificationFailed, func(ctx context.Context, evt Event) {
		if err := p.PublishNotificationFailed(ctx, evt); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish notification.failed event",
				slog.String("notification_id", evt.NotificationID),
				slog.String("error", err.Error()))
		}
	})
}

// PublishNotificationSent publishes a notification.sent event.
func (p *Producer) PublishNotificationSent(ctx context.Context, evt Event) error {
	if p.kafka == nil {
		return nil
	}

	data := NotificationSentData{
		NotificationID: evt.NotificationID,
		UserID:         evt.UserID,
		Title:          evt.Title,
		Body:           evt.Body,
		Channels:       evt.Channels,
		Data:           evt.Data,
	}

	event, err := pkgkafka.NewEvent(TopicNotificationSent, evt.NotificationID, AggregateTypeNotification, SourceNotificationEngine, data)
	if err != nil {
		return fmt.Errorf("create notification.sent event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicNotificationSent, event); err != nil {
		return fmt.Errorf("publish notification.sent event: %w", err)
	}

	p.logger.DebugContext(ctx, "published notification.sent event",
		slog.String("notification_id", evt.NotificationID),
	)

	return nil
}

// PublishNotificationFailed publishes a notification.failed event.
func (p *Producer) PublishNotificationFailed(ctx context.Context, evt Event) error {
	if p.kafka == nil {
		return nil
	}

	data := NotificationFailedData{
		NotificationID: evt.NotificationID,
		UserID:         evt.UserID,
		Title:          evt.Title,
		Channels:       evt.Channels,
		Error:          evt.Error,
	}

	event, err := pkgkafka.NewEvent(TopicNotificationFailed, evt.NotificationID, AggregateTypeNotification, SourceNotificationEngine, data)
	if err != nil {
		return fmt.Errorf("create notification.failed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicNotificationFailed, event); err != nil {
		return fmt.Errorf("publish notification.failed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published notification.failed event",
		slog.String("notification_id", evt.NotificationID),
	)

	return nil
}
