package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/event"
)

// InAppStore is the slice of the storage collaborator the in-app adapter
// needs.
type InAppStore interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
}

// InAppAdapter writes the durable in-app notification record and announces it
// on the bus for live-connected listeners. Unlike the other channels this one
// is part of the system of record: a failed write is a failed delivery.
type InAppAdapter struct {
	store   InAppStore
	bus     *event.Bus
	logger  *slog.Logger
	timeout time.Duration
}

// NewInAppAdapter creates the in-app channel adapter.
func NewInAppAdapter(store InAppStore, bus *event.Bus, logger *slog.Logger) *InAppAdapter {
	return &InAppAdapter{
		store:   store,
		bus:     bus,
		logger:  logger,
		timeout: defaultInAppTimeout,
	}
}

// Name returns the channel identifier.
func (a *InAppAdapter) Name() string {
	return domain.ChannelInApp
}

// Send persists the notification record and publishes the in-app event.
func (a *InAppAdapter) Send(ctx context.Context, payload *domain.Payload) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	id := payload.ID
	if id == "" {
		id = uuid.NewString()
	}

	record := &domain.Notification{
		ID:        id,
		UserID:    payload.UserID,
		Type:      payload.TemplateID,
		Title:     payload.Title,
		Message:   payload.Body,
		Data:      payload.Data,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.store.CreateNotification(ctx, record); err != nil {
		return fmt.Errorf("persist in-app notification: %w", err)
	}

	a.logger.DebugContext(ctx, "in-app notification stored",
		slog.String("notification_id", record.ID),
		slog.String("user_id", record.UserID),
	)

	a.bus.Publish(ctx, event.Event{
		Kind:           event.KindInAppNotification,
		UserID:         payload.UserID,
		Title:          payload.Title,
		Body:           payload.Body,
		Data:           payload.Data,
		NotificationID: record.ID,
	})

	return nil
}
