package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/event"
)

// errEndpointGone marks a push endpoint the gateway reported as permanently
// invalid. The subscription is deactivated, not retried.
var errEndpointGone = errors.New("push endpoint gone")

// Subscriptions is the slice of the subscription registry the push adapter
// needs: the active endpoints of a user, and self-healing deactivation.
type Subscriptions interface {
	ListActive(ctx context.Context, userID string) []domain.PushSubscription
	Deactivate(ctx context.Context, userID, endpoint string) error
}

// PushConfig holds Web Push (VAPID) transport settings.
type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the contact address reported to push gateways,
	// e.g. "mailto:ops@zipzy.app".
	Subscriber string
	Timeout    time.Duration
}

// pushSendFunc performs one Web Push request. Swapped out in tests.
type pushSendFunc func(ctx context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// PushAdapter delivers payloads over Web Push to every active subscription of
// the user. Per-endpoint failures are isolated: the channel outcome is success
// when at least one endpoint accepted the message.
type PushAdapter struct {
	subs    Subscriptions
	bus     *event.Bus
	cfg     PushConfig
	logger  *slog.Logger
	timeout time.Duration
	send    pushSendFunc
}

// NewPushAdapter creates the Web Push channel adapter.
func NewPushAdapter(subs Subscriptions, bus *event.Bus, cfg PushConfig, logger *slog.Logger) *PushAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	return &PushAdapter{
		subs:    subs,
		bus:     bus,
		cfg:     cfg,
		logger:  logger,
		timeout: timeout,
		send:    webpush.SendNotificationWithContext,
	}
}

// Name returns the channel identifier.
func (a *PushAdapter) Name() string {
	return domain.ChannelPush
}

// pushMessage is the JSON body handed to the service worker.
type pushMessage struct {
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	ImageURL  string         `json:"image_url,omitempty"`
	ActionURL string         `json:"action_url,omitempty"`
}

// Send delivers the payload to every active endpoint of the user. Endpoints
// the gateway reports as gone are deactivated in the registry.
func (a *PushAdapter) Send(ctx context.Context, payload *domain.Payload) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	subs := a.subs.ListActive(ctx, payload.UserID)
	if len(subs) == 0 {
		return fmt.Errorf("no active push subscriptions for user %s", payload.UserID)
	}

	message, err := json.Marshal(pushMessage{
		Title:     payload.Title,
		Body:      payload.Body,
		Data:      payload.Data,
		ImageURL:  payload.ImageURL,
		ActionURL: payload.ActionURL,
	})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	urgency := pushUrgency(payload.Priority)
	ttl := pushTTL(payload, time.Now())
	delivered := 0

	for _, sub := range subs {
		err := a.sendToEndpoint(ctx, message, &sub, urgency, ttl)
		if err == nil {
			delivered++
			PushEndpointSends.WithLabelValues("success").Inc()

			a.bus.Publish(ctx, event.Event{
				Kind:     event.KindPushNotification,
				UserID:   payload.UserID,
				Title:    payload.Title,
				Body:     payload.Body,
				Data:     payload.Data,
				Endpoint: sub.Endpoint,
			})
			continue
		}

		if errors.Is(err, errEndpointGone) {
			PushEndpointSends.WithLabelValues("gone").Inc()
			a.deactivate(ctx, &sub)
			continue
		}

		PushEndpointSends.WithLabelValues("failure").Inc()
		a.logger.WarnContext(ctx, "push delivery to endpoint failed",
			slog.String("user_id", sub.UserID),
			slog.String("endpoint", sub.Endpoint),
			slog.String("error", err.Error()),
		)
	}

	if delivered == 0 {
		return fmt.Errorf("push delivery failed on all %d endpoints", len(subs))
	}

	return nil
}

func (a *PushAdapter) sendToEndpoint(ctx context.Context, message []byte, sub *domain.PushSubscription, urgency webpush.Urgency, ttl int) error {
	resp, err := a.send(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &webpush.Options{
		Subscriber:      a.cfg.Subscriber,
		VAPIDPublicKey:  a.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: a.cfg.VAPIDPrivateKey,
		TTL:             ttl,
		Urgency:         urgency,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return errEndpointGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push gateway status %d", resp.StatusCode)
	}
	return nil
}

func (a *PushAdapter) deactivate(ctx context.Context, sub *domain.PushSubscription) {
	if err := a.subs.Deactivate(ctx, sub.UserID, sub.Endpoint); err != nil {
		a.logger.WarnContext(ctx, "failed to deactivate dead push endpoint",
			slog.String("user_id", sub.UserID),
			slog.String("endpoint", sub.Endpoint),
			slog.String("error", err.Error()),
		)
		return
	}

	PushEndpointsDeactivated.Inc()
	a.logger.InfoContext(ctx, "deactivated dead push endpoint",
		slog.String("user_id", sub.UserID),
		slog.String("endpoint", sub.Endpoint),
	)
}

// pushUrgency maps notification priority onto the Web Push urgency header.
func pushUrgency(priority string) webpush.Urgency {
	switch priority {
	case domain.PriorityUrgent, domain.PriorityHigh:
		return webpush.UrgencyHigh
	case domain.PriorityLow:
		return webpush.UrgencyLow
	default:
		return webpush.UrgencyNormal
	}
}

// pushTTL is how long the gateway may hold an undelivered message, in
// seconds: the remaining life of the payload, or the default expiry when the
// payload carries none.
func pushTTL(payload *domain.Payload, now time.Time) int {
	if payload.ExpiresAt.IsZero() {
		return int(domain.DefaultExpiry / time.Second)
	}
	remaining := payload.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Second)
}
