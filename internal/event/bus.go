// Package event carries the engine's integration events: an in-process
// observer bus for the surrounding application, a Kafka producer that mirrors
// delivery outcomes onto the platform topics, and the consumer that turns
// platform events into notifications.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind identifies an integration event emitted by the engine.
type Kind string

const (
	KindNotificationSent   Kind = "notification.sent"
	KindNotificationFailed Kind = "notification.failed"
	KindPushNotification   Kind = "notification.push"
	KindSMSNotification    Kind = "notification.sms"
	KindEmailNotification  Kind = "notification.email"
	KindInAppNotification  Kind = "notification.in_app"
)

// Event is the envelope handed to subscribers. Channel-level kinds fill the
// channel-specific fields: Endpoint for push, NotificationID for in-app.
type Event struct {
	Kind           Kind
	UserID         string
	Title          string
	Body           string
	Data           map[string]any
	Channels       []string
	Endpoint       string
	NotificationID string
	Error          string
	OccurredAt     time.Time
}

// Handler receives engine events. Handlers run synchronously on the
// publishing goroutine and must return promptly; long work belongs on the
// subscriber's own goroutine.
type Handler func(ctx context.Context, evt Event)

// Bus is a typed publish/subscribe hub. Subscribers are registered during
// wiring and invoked in registration order; a panicking subscriber is
// isolated so it cannot take down the delivery path.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	logger   *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Kind][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the given event kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], h)
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber of its kind.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := b.handlers[evt.Kind]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(ctx, evt, h)
	}
}

func (b *Bus) invoke(ctx context.Context, evt Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "event subscriber panicked",
				slog.String("kind", string(evt.Kind)),
				slog.String("user_id", evt.UserID),
				slog.Any("panic", r))
		}
	}()
	h(ctx, evt)
}
