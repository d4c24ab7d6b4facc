package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	pkgkafka "github.com/IntegratedRai444/zipzydeliver-sub001/pkg/kafka"
)

// --- Mock Dispatcher ---

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) SendFromTemplate(ctx context.Context, userID, templateID string, variables map[string]string, overrides *domain.SendOverrides) bool {
	args := m.Called(ctx, userID, templateID, variables, overrides)
	return args.Bool(0)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEvent(eventType string, data any) *pkgkafka.Event {
	dataBytes, _ := json.Marshal(data)
	return &pkgkafka.Event{
		EventID:       "evt-test-123",
		EventType:     eventType,
		AggregateID:   "agg-test-456",
		AggregateType: "order",
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        "test-service",
		Data:          dataBytes,
	}
}

func newTestEventRaw(eventType string, rawData json.RawMessage) *pkgkafka.Event {
	return &pkgkafka.Event{
		EventID:       "evt-test-123",
		EventType:     eventType,
		AggregateID:   "agg-test-456",
		AggregateType: "order",
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        "test-service",
		Data:          rawData,
	}
}

// ============================================================
// handleOrderCreated tests
// ============================================================

func TestHandleOrderCreated_ValidPayload(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := orderEventPayload{
		OrderID:     "order-001",
		OrderNumber: "ZP-1042",
		UserID:      "user-abc",
		StoreName:   "Campus Mart",
	}

	event := newTestEvent(TopicOrderCreated, payload)

	dispatcher.On("SendFromTemplate", ctx, "user-abc", "order_placed",
		map[string]string{"orderNumber": "ZP-1042", "storeName": "Campus Mart"},
		mock.MatchedBy(func(o *domain.SendOverrides) bool {
			return o.Data["order_id"] == "order-001" && o.Data["event_id"] == "evt-test-123"
		})).Return(true)

	err := handler.Handle(ctx, event)

	require.NoError(t, err)
	dispatcher.AssertExpectations(t)
}

func TestHandleOrderCreated_MissingUserID(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := orderEventPayload{
		OrderID:     "order-003",
		OrderNumber: "ZP-1044",
		UserID:      "", // empty
	}

	event := newTestEvent(TopicOrderCreated, payload)

	err := handler.Handle(ctx, event)

	// Should return nil (skip silently) and NOT call the dispatcher.
	require.NoError(t, err)
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleOrderCreated_InvalidJSON(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	event := newTestEventRaw(TopicOrderCreated, json.RawMessage(`{invalid json`))

	err := handler.Handle(ctx, event)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal order.created payload")
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleOrderCreated_DispatcherRefusalIsNotRetried(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := orderEventPayload{
		OrderID:     "order-004",
		OrderNumber: "ZP-1045",
		UserID:      "user-muted",
		StoreName:   "Campus Mart",
	}

	event := newTestEvent(TopicOrderCreated, payload)

	// User disabled the order category; the dispatcher abstains.
	dispatcher.On("SendFromTemplate", ctx, "user-muted", "order_placed", mock.Anything, mock.Anything).Return(false)

	err := handler.Handle(ctx, event)

	// The event was consumed; a policy refusal must not surface as an error.
	require.NoError(t, err)
	dispatcher.AssertExpectations(t)
}

// ============================================================
// handleOrderStatusChanged tests
// ============================================================

func TestHandleOrderStatusChanged_TemplatePerStatus(t *testing.T) {
	cases := []struct {
		status     string
		templateID string
	}{
		{"preparing", "order_preparing"},
		{"ready", "order_ready"},
		{"cancelled", "order_cancelled"},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			dispatcher := new(mockDispatcher)
			handler := NewConsumerHandler(dispatcher, newTestLogger())
			ctx := context.Background()

			payload := orderEventPayload{
				OrderID:     "order-010",
				OrderNumber: "ZP-1050",
				UserID:      "user-abc",
				StoreName:   "Campus Mart",
				Status:      tc.status,
				Reason:      "out of stock",
			}

			event := newTestEvent(TopicOrderStatusChanged, payload)

			dispatcher.On("SendFromTemplate", ctx, "user-abc", tc.templateID,
				mock.MatchedBy(func(vars map[string]string) bool {
					return vars["orderNumber"] == "ZP-1050" && vars["reason"] == "out of stock"
				}),
				mock.MatchedBy(func(o *domain.SendOverrides) bool {
					return o.Data["status"] == tc.status
				})).Return(true)

			err := handler.Handle(ctx, event)

			require.NoError(t, err)
			dispatcher.AssertExpectations(t)
		})
	}
}

func TestHandleOrderStatusChanged_UnmappedStatus(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := orderEventPayload{
		OrderID:     "order-011",
		OrderNumber: "ZP-1051",
		UserID:      "user-abc",
		Status:      "queued",
	}

	event := newTestEvent(TopicOrderStatusChanged, payload)

	err := handler.Handle(ctx, event)

	require.NoError(t, err)
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleOrderStatusChanged_InvalidJSON(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	event := newTestEventRaw(TopicOrderStatusChanged, json.RawMessage(`not-json`))

	err := handler.Handle(ctx, event)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal order.status_changed payload")
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================
// handlePartnerAssigned tests
// ============================================================

func TestHandlePartnerAssigned_ValidPayload(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := deliveryEventPayload{
		DeliveryID:  "dlv-001",
		OrderID:     "order-100",
		OrderNumber: "ZP-1100",
		UserID:      "user-def",
		PartnerName: "Ravi",
	}

	event := newTestEvent(TopicDeliveryPartnerAssigned, payload)

	dispatcher.On("SendFromTemplate", ctx, "user-def", "partner_assigned",
		map[string]string{"partnerName": "Ravi", "orderNumber": "ZP-1100"},
		mock.MatchedBy(func(o *domain.SendOverrides) bool {
			return o.Data["delivery_id"] == "dlv-001" && o.Data["order_id"] == "order-100"
		})).Return(true)

	err := handler.Handle(ctx, event)

	require.NoError(t, err)
	dispatcher.AssertExpectations(t)
}

func TestHandlePartnerAssigned_MissingUserID(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := deliveryEventPayload{
		DeliveryID:  "dlv-002",
		OrderNumber: "ZP-1101",
		UserID:      "",
		PartnerName: "Ravi",
	}

	event := newTestEvent(TopicDeliveryPartnerAssigned, payload)

	err := handler.Handle(ctx, event)

	require.NoError(t, err)
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================
// handleDeliveryStatusChanged tests
// ============================================================

func TestHandleDeliveryStatusChanged_TemplatePerStatus(t *testing.T) {
	cases := []struct {
		status     string
		templateID string
	}{
		{"picked_up", "order_picked_up"},
		{"arriving", "order_arriving"},
		{"delivered", "order_delivered"},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			dispatcher := new(mockDispatcher)
			handler := NewConsumerHandler(dispatcher, newTestLogger())
			ctx := context.Background()

			payload := deliveryEventPayload{
				DeliveryID:  "dlv-010",
				OrderID:     "order-110",
				OrderNumber: "ZP-1110",
				UserID:      "user-ghi",
				PartnerName: "Asha",
				Status:      tc.status,
			}

			event := newTestEvent(TopicDeliveryStatusChanged, payload)

			dispatcher.On("SendFromTemplate", ctx, "user-ghi", tc.templateID,
				map[string]string{"partnerName": "Asha", "orderNumber": "ZP-1110"},
				mock.Anything).Return(true)

			err := handler.Handle(ctx, event)

			require.NoError(t, err)
			dispatcher.AssertExpectations(t)
		})
	}
}

func TestHandleDeliveryStatusChanged_UnmappedStatus(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := deliveryEventPayload{
		DeliveryID: "dlv-011",
		UserID:     "user-ghi",
		Status:     "assigned",
	}

	event := newTestEvent(TopicDeliveryStatusChanged, payload)

	err := handler.Handle(ctx, event)

	require.NoError(t, err)
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================
// handlePaymentSucceeded tests
// ============================================================

func TestHandlePaymentSucceeded_ValidPayload(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := paymentEventPayload{
		PaymentID:   "pay-001",
		OrderID:     "order-200",
		OrderNumber: "ZP-1200",
		UserID:      "user-jkl",
		Amount:      12900,
		Currency:    "INR",
	}

	event := newTestEvent(TopicPaymentSucceeded, payload)

	dispatcher.On("SendFromTemplate", ctx, "user-jkl", "payment_received",
		map[string]string{"amount": "129.00 INR", "orderNumber": "ZP-1200"},
		mock.MatchedBy(func(o *domain.SendOverrides) bool {
			return o.Data["payment_id"] == "pay-001" && o.Data["order_id"] == "order-200"
		})).Return(true)

	err := handler.Handle(ctx, event)

	require.NoError(t, err)
	dispatcher.AssertExpectations(t)
}

func TestHandlePaymentSucceeded_MissingUserID(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := paymentEventPayload{
		PaymentID: "pay-002",
		UserID:    "",
		Amount:    3000,
		Currency:  "INR",
	}

	event := newTestEvent(TopicPaymentSucceeded, payload)

	err := handler.Handle(ctx, event)

	require.NoError(t, err)
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePaymentSucceeded_InvalidJSON(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	event := newTestEventRaw(TopicPaymentSucceeded, json.RawMessage(`<<broken>>`))

	err := handler.Handle(ctx, event)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payment.succeeded payload")
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================
// handlePaymentFailed tests
// ============================================================

func TestHandlePaymentFailed_ValidPayload(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := paymentEventPayload{
		PaymentID:   "pay-fail-001",
		OrderID:     "order-300",
		OrderNumber: "ZP-1300",
		UserID:      "user-mno",
		Amount:      7550,
		Currency:    "INR",
		Reason:      "insufficient funds",
	}

	event := newTestEvent(TopicPaymentFailed, payload)

	dispatcher.On("SendFromTemplate", ctx, "user-mno", "payment_failed",
		map[string]string{
			"amount":      "75.50 INR",
			"orderNumber": "ZP-1300",
			"reason":      "insufficient funds",
		},
		mock.MatchedBy(func(o *domain.SendOverrides) bool {
			return o.Data["payment_id"] == "pay-fail-001"
		})).Return(true)

	err := handler.Handle(ctx, event)

	require.NoError(t, err)
	dispatcher.AssertExpectations(t)
}

func TestHandlePaymentFailed_MissingUserID(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	payload := paymentEventPayload{
		PaymentID: "pay-fail-002",
		UserID:    "",
		Amount:    1000,
		Reason:    "card declined",
	}

	event := newTestEvent(TopicPaymentFailed, payload)

	err := handler.Handle(ctx, event)

	require.NoError(t, err)
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePaymentFailed_InvalidJSON(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	event := newTestEventRaw(TopicPaymentFailed, json.RawMessage(`}`))

	err := handler.Handle(ctx, event)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payment.failed payload")
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================
// Unknown event type
// ============================================================

func TestHandle_UnknownEventType(t *testing.T) {
	dispatcher := new(mockDispatcher)
	handler := NewConsumerHandler(dispatcher, newTestLogger())
	ctx := context.Background()

	event := newTestEvent("zipzy.unknown.event", map[string]string{"foo": "bar"})

	err := handler.Handle(ctx, event)

	// Should return nil for unknown event types.
	require.NoError(t, err)
	dispatcher.AssertNotCalled(t, "SendFromTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================
// Amount formatting
// ============================================================

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "129.00 INR", formatAmount(12900, "INR"))
	assert.Equal(t, "0.50 INR", formatAmount(50, ""))
	assert.Equal(t, "45.99 USD", formatAmount(4599, "USD"))
}
