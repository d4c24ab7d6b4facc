// Package mock provides a logging channel adapter used in development when a
// real transport is not configured, and in tests.
package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
)

// Adapter is a channel adapter that logs payloads and always succeeds.
// It simulates a 10ms delay to mimic real transport latency.
type Adapter struct {
	channel string
	logger  *slog.Logger
}

// NewAdapter creates a mock adapter standing in for the given channel.
func NewAdapter(channel string, logger *slog.Logger) *Adapter {
	return &Adapter{
		channel: channel,
		logger:  logger,
	}
}

// Name returns the channel this adapter stands in for.
func (a *Adapter) Name() string {
	return a.channel
}

// Send logs the payload details and simulates a 10ms transport delay.
func (a *Adapter) Send(ctx context.Context, payload *domain.Payload) error {
	// Simulate transport delay.
	time.Sleep(10 * time.Millisecond)

	a.logger.InfoContext(ctx, "mock adapter: payload delivered",
		slog.String("notification_id", payload.ID),
		slog.String("user_id", payload.UserID),
		slog.String("channel", a.channel),
		slog.String("template_id", payload.TemplateID),
		slog.String("title", payload.Title),
		slog.String("priority", payload.Priority),
	)

	return nil
}
