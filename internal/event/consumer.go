package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	pkgkafka "github.com/IntegratedRai444/zipzydeliver-sub001/pkg/kafka"
)

// Topics consumed from other Zipzy services.
const (
	TopicOrderCreated            = "zipzy.order.created"
	TopicOrderStatusChanged      = "zipzy.order.status_changed"
	TopicDeliveryPartnerAssigned = "zipzy.delivery.partner_assigned"
	TopicDeliveryStatusChanged   = "zipzy.delivery.status_changed"
	TopicPaymentSucceeded        = "zipzy.payment.succeeded"
	TopicPaymentFailed           = "zipzy.payment.failed"
)

// Consumer group ID for the notification engine.
const ConsumerGroupID = "notification-engine"

// Dispatcher drives a templated notification through preference filtering,
// quiet hours, and channel delivery. The returned bool reports whether at
// least one channel accepted the notification; a false result is a policy
// outcome, not an error, so handlers never retry on it.
type Dispatcher interface {
	SendFromTemplate(ctx context.Context, userID, templateID string, variables map[string]string, overrides *domain.SendOverrides) bool
}

// --- Event payloads ---

type orderEventPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	StoreName   string `json:"store_name"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

type deliveryEventPayload struct {
	DeliveryID  string `json:"delivery_id"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	PartnerName string `json:"partner_name"`
	Status      string `json:"status"`
}

type paymentEventPayload struct {
	PaymentID   string `json:"payment_id"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reason      string `json:"reason,omitempty"`
}

// ConsumerHandler routes incoming Kafka events to the appropriate template
// send on the dispatcher.
type ConsumerHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(dispatcher Dispatcher, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicOrderCreated:
		return h.handleOrderCreated(ctx, event)
	case TopicOrderStatusChanged:
		return h.handleOrderStatusChanged(ctx, event)
	case TopicDeliveryPartnerAssigned:
		return h.handlePartnerAssigned(ctx, event)
	case TopicDeliveryStatusChanged:
		return h.handleDeliveryStatusChanged(ctx, event)
	case TopicPaymentSucceeded:
		return h.handlePaymentSucceeded(ctx, event)
	case TopicPaymentFailed:
		return h.handlePaymentFailed(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleOrderCreated dispatches the order confirmation notification.
func (h *ConsumerHandler) handleOrderCreated(ctx context.Context, event *pkgkafka.Event) error {
	var payload orderEventPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal order.created payload: %w", err)
	}

	if payload.UserID == "" {
		h.logger.WarnContext(ctx, "order.created event without user id, skipping",
			slog.String("event_id", event.EventID),
			slog.String("order_id", payload.OrderID),
		)
		return nil
	}

	h.send(ctx, event, payload.UserID, "order_placed",
		map[string]string{
			"orderNumber": payload.OrderNumber,
			"storeName":   payload.StoreName,
		},
		map[string]any{
			"order_id": payload.OrderID,
		},
	)
	return nil
}

// handleOrderStatusChanged dispatches the notification matching the order's
// new status. Statuses without a customer-facing notification are skipped.
func (h *ConsumerHandler) handleOrderStatusChanged(ctx context.Context, event *pkgkafka.Event) error {
	var payload orderEventPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal order.status_changed payload: %w", err)
	}

	if payload.UserID == "" {
		h.logger.WarnContext(ctx, "order.status_changed event without user id, skipping",
			slog.String("event_id", event.EventID),
			slog.String("order_id", payload.OrderID),
		)
		return nil
	}

	var templateID string
	switch payload.Status {
	case "preparing":
		templateID = "order_preparing"
	case "ready":
		templateID = "order_ready"
	case "cancelled":
		templateID = "order_cancelled"
	default:
		h.logger.DebugContext(ctx, "order status has no notification, skipping",
			slog.String("order_id", payload.OrderID),
			slog.String("status", payload.Status),
		)
		return nil
	}

	h.send(ctx, event, payload.UserID, templateID,
		map[string]string{
			"orderNumber": payload.OrderNumber,
			"storeName":   payload.StoreName,
			"reason":      payload.Reason,
		},
		map[string]any{
			"order_id": payload.OrderID,
			"status":   payload.Status,
		},
	)
	return nil
}

// handlePartnerAssigned dispatches the courier assignment notification.
func (h *ConsumerHandler) handlePartnerAssigned(ctx context.Context, event *pkgkafka.Event) error {
	var payload deliveryEventPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal delivery.partner_assigned payload: %w", err)
	}

	if payload.UserID == "" {
		h.logger.WarnContext(ctx, "delivery.partner_assigned event without user id, skipping",
			slog.String("event_id", event.EventID),
			slog.String("delivery_id", payload.DeliveryID),
		)
		return nil
	}

	h.send(ctx, event, payload.UserID, "partner_assigned",
		map[string]string{
			"partnerName": payload.PartnerName,
			"orderNumber": payload.OrderNumber,
		},
		map[string]any{
			"delivery_id": payload.DeliveryID,
			"order_id":    payload.OrderID,
		},
	)
	return nil
}

// handleDeliveryStatusChanged dispatches the notification matching the
// delivery's new status.
func (h *ConsumerHandler) handleDeliveryStatusChanged(ctx context.Context, event *pkgkafka.Event) error {
	var payload deliveryEventPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal delivery.status_changed payload: %w", err)
	}

	if payload.UserID == "" {
		h.logger.WarnContext(ctx, "delivery.status_changed event without user id, skipping",
			slog.String("event_id", event.EventID),
			slog.String("delivery_id", payload.DeliveryID),
		)
		return nil
	}

	var templateID string
	switch payload.Status {
	case "picked_up":
		templateID = "order_picked_up"
	case "arriving":
		templateID = "order_arriving"
	case "delivered":
		templateID = "order_delivered"
	default:
		h.logger.DebugContext(ctx, "delivery status has no notification, skipping",
			slog.String("delivery_id", payload.DeliveryID),
			slog.String("status", payload.Status),
		)
		return nil
	}

	h.send(ctx, event, payload.UserID, templateID,
		map[string]string{
			"partnerName": payload.PartnerName,
			"orderNumber": payload.OrderNumber,
		},
		map[string]any{
			"delivery_id": payload.DeliveryID,
			"order_id":    payload.OrderID,
			"status":      payload.Status,
		},
	)
	return nil
}

// handlePaymentSucceeded dispatches the payment confirmation notification.
func (h *ConsumerHandler) handlePaymentSucceeded(ctx context.Context, event *pkgkafka.Event) error {
	var payload paymentEventPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal payment.succeeded payload: %w", err)
	}

	if payload.UserID == "" {
		h.logger.WarnContext(ctx, "payment.succeeded event without user id, skipping",
			slog.String("event_id", event.EventID),
			slog.String("payment_id", payload.PaymentID),
		)
		return nil
	}

	h.send(ctx, event, payload.UserID, "payment_received",
		map[string]string{
			"amount":      formatAmount(payload.Amount, payload.Currency),
			"orderNumber": payload.OrderNumber,
		},
		map[string]any{
			"payment_id": payload.PaymentID,
			"order_id":   payload.OrderID,
		},
	)
	return nil
}

// handlePaymentFailed dispatches the payment failure notification.
func (h *ConsumerHandler) handlePaymentFailed(ctx context.Context, event *pkgkafka.Event) error {
	var payload paymentEventPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal payment.failed payload: %w", err)
	}

	if payload.UserID == "" {
		h.logger.WarnContext(ctx, "payment.failed event without user id, skipping",
			slog.String("event_id", event.EventID),
			slog.String("payment_id", payload.PaymentID),
		)
		return nil
	}

	h.send(ctx, event, payload.UserID, "payment_failed",
		map[string]string{
			"amount":      formatAmount(payload.Amount, payload.Currency),
			"orderNumber": payload.OrderNumber,
			"reason":      payload.Reason,
		},
		map[string]any{
			"payment_id": payload.PaymentID,
			"order_id":   payload.OrderID,
		},
	)
	return nil
}

// send invokes the dispatcher and logs the outcome. A false result means the
// notification was filtered by preferences or failed on every channel; either
// way the event was consumed and must not be retried.
func (h *ConsumerHandler) send(ctx context.Context, event *pkgkafka.Event, userID, templateID string, variables map[string]string, data map[string]any) {
	data["event_id"] = event.EventID

	delivered := h.dispatcher.SendFromTemplate(ctx, userID, templateID, variables, &domain.SendOverrides{Data: data})
	if !delivered {
		h.logger.InfoContext(ctx, "event did not produce a delivery",
			slog.String("event_id", event.EventID),
			slog.String("template_id", templateID),
			slog.String("user_id", userID),
		)
		return
	}

	h.logger.DebugContext(ctx, "dispatched notification for event",
		slog.String("event_id", event.EventID),
		slog.String("template_id", templateID),
		slog.String("user_id", userID),
	)
}

// formatAmount renders a minor-unit amount as "129.00 INR".
func formatAmount(amount int64, currency string) string {
	if currency == "" {
		currency = "INR"
	}
	return fmt.Sprintf("%.2f %s", float64(amount)/100, currency)
}

// NewConsumers creates Kafka consumers for all topics the notification engine
// subscribes to. Handlers are wrapped with event-id deduplication; messages
// that exhaust their retry budget go to the DLQ producer when one is given.
func NewConsumers(brokers []string, handler *ConsumerHandler, store pkgkafka.IdempotencyStore, dlq *pkgkafka.DLQProducer, logger *slog.Logger) []*pkgkafka.Consumer {
	topics := []string{
		TopicOrderCreated,
		TopicOrderStatusChanged,
		TopicDeliveryPartnerAssigned,
		TopicDeliveryStatusChanged,
		TopicPaymentSucceeded,
		TopicPaymentFailed,
	}

	handle := pkgkafka.Handler(handler.Handle)
	if store != nil {
		handle = pkgkafka.IdempotentHandler(store, handle, logger)
	}

	consumers := make([]*pkgkafka.Consumer, 0, len(topics))

	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  ConsumerGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}

		consumer := pkgkafka.NewConsumer(cfg, handle, logger)
		if dlq != nil {
			consumer = consumer.WithDLQ(dlq)
		}
		consumers = append(consumers, consumer)
	}

	return consumers
}
