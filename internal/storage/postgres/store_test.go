package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/database"
	apperrors "github.com/IntegratedRai444/zipzydeliver-sub001/pkg/errors"
)

func sampleSubscription() *domain.PushSubscription {
	return &domain.PushSubscription{
		UserID:    "usr-001",
		Endpoint:  "https://push.example.com/sub/abc",
		P256dh:    "p256dh-key",
		Auth:      "auth-secret",
		UserAgent: "Mozilla/5.0",
		Active:    true,
		CreatedAt: time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
	}
}

func samplePreferences() *domain.Preferences {
	p := domain.DefaultPreferences("usr-001")
	p.Promotions = false
	p.QuietHours = domain.QuietHours{Enabled: true, Start: "23:00", End: "07:00"}
	p.UpdatedAt = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	return p
}

var subscriptionColumns = []string{
	"user_id", "endpoint", "p256dh", "auth", "user_agent", "active", "created_at",
}

var preferenceColumns = []string{
	"user_id", "order_updates", "delivery_updates", "payment_updates", "system_alerts", "promotions",
	"push_enabled", "sms_enabled", "email_enabled",
	"quiet_hours_enabled", "quiet_hours_start", "quiet_hours_end", "updated_at",
}

var notificationColumns = []string{
	"id", "user_id", "type", "title", "message", "data", "is_read", "created_at",
}

// ─── StorePushSubscription ───────────────────────────────────────────────────

func TestStore_StorePushSubscription_Upsert(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	sub := sampleSubscription()

	mock.ExpectExec("INSERT INTO push_subscriptions").
		WithArgs(
			sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth,
			sub.UserAgent, sub.Active, sub.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.StorePushSubscription(context.Background(), sub)
	assert.NoError(t, err)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_StorePushSubscription_ExecError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	sub := sampleSubscription()

	mock.ExpectExec("INSERT INTO push_subscriptions").
		WithArgs(
			sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth,
			sub.UserAgent, sub.Active, sub.CreatedAt,
		).
		WillReturnError(errors.New("connection refused"))

	err = store.StorePushSubscription(context.Background(), sub)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "upsert push subscription")

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

// ─── RemovePushSubscription ──────────────────────────────────────────────────

func TestStore_RemovePushSubscription_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec("DELETE FROM push_subscriptions").
		WithArgs("usr-001", "https://push.example.com/sub/abc").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = store.RemovePushSubscription(context.Background(), "usr-001", "https://push.example.com/sub/abc")
	assert.NoError(t, err)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_RemovePushSubscription_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec("DELETE FROM push_subscriptions").
		WithArgs("usr-001", "https://push.example.com/sub/gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = store.RemovePushSubscription(context.Background(), "usr-001", "https://push.example.com/sub/gone")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

// ─── GetPushSubscriptions ────────────────────────────────────────────────────

func TestStore_GetPushSubscriptions_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM push_subscriptions").
		WithArgs("usr-001").
		WillReturnRows(
			pgxmock.NewRows(subscriptionColumns).
				AddRow("usr-001", "https://push.example.com/sub/a", "key-a", "auth-a", "Firefox", true, now).
				AddRow("usr-001", "https://push.example.com/sub/b", "key-b", "auth-b", "Chrome", false, now),
		)

	subs, err := store.GetPushSubscriptions(context.Background(), "usr-001")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "https://push.example.com/sub/a", subs[0].Endpoint)
	assert.True(t, subs[0].Active)
	assert.False(t, subs[1].Active)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_GetPushSubscriptions_Empty(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectQuery("SELECT .+ FROM push_subscriptions").
		WithArgs("usr-999").
		WillReturnRows(pgxmock.NewRows(subscriptionColumns))

	subs, err := store.GetPushSubscriptions(context.Background(), "usr-999")
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

// ─── GetNotificationPreferences ──────────────────────────────────────────────

func TestStore_GetNotificationPreferences_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	p := samplePreferences()

	mock.ExpectQuery("SELECT .+ FROM notification_preferences").
		WithArgs("usr-001").
		WillReturnRows(
			pgxmock.NewRows(preferenceColumns).
				AddRow(
					p.UserID, p.OrderUpdates, p.DeliveryUpdates, p.PaymentUpdates, p.SystemAlerts, p.Promotions,
					p.PushEnabled, p.SMSEnabled, p.EmailEnabled,
					p.QuietHours.Enabled, p.QuietHours.Start, p.QuietHours.End, p.UpdatedAt,
				),
		)

	result, err := store.GetNotificationPreferences(context.Background(), "usr-001")
	require.NoError(t, err)
	assert.Equal(t, "usr-001", result.UserID)
	assert.False(t, result.Promotions)
	assert.True(t, result.OrderUpdates)
	assert.True(t, result.QuietHours.Enabled)
	assert.Equal(t, "23:00", result.QuietHours.Start)
	assert.Equal(t, "07:00", result.QuietHours.End)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_GetNotificationPreferences_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectQuery("SELECT .+ FROM notification_preferences").
		WithArgs("usr-new").
		WillReturnError(pgx.ErrNoRows)

	result, err := store.GetNotificationPreferences(context.Background(), "usr-new")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

// ─── StoreNotificationPreferences ────────────────────────────────────────────

func TestStore_StoreNotificationPreferences_Upsert(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	p := samplePreferences()

	mock.ExpectExec("INSERT INTO notification_preferences").
		WithArgs(
			p.UserID, p.OrderUpdates, p.DeliveryUpdates, p.PaymentUpdates, p.SystemAlerts, p.Promotions,
			p.PushEnabled, p.SMSEnabled, p.EmailEnabled,
			p.QuietHours.Enabled, p.QuietHours.Start, p.QuietHours.End, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.StoreNotificationPreferences(context.Background(), p)
	assert.NoError(t, err)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_StoreNotificationPreferences_ExecError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	p := samplePreferences()

	mock.ExpectExec("INSERT INTO notification_preferences").
		WithArgs(
			p.UserID, p.OrderUpdates, p.DeliveryUpdates, p.PaymentUpdates, p.SystemAlerts, p.Promotions,
			p.PushEnabled, p.SMSEnabled, p.EmailEnabled,
			p.QuietHours.Enabled, p.QuietHours.Start, p.QuietHours.End, p.UpdatedAt,
		).
		WillReturnError(errors.New("connection reset"))

	err = store.StoreNotificationPreferences(context.Background(), p)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "upsert notification preferences")

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

// ─── CreateNotification ──────────────────────────────────────────────────────

func TestStore_CreateNotification_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	n := &domain.Notification{
		ID:        "ntf-001",
		UserID:    "usr-001",
		Type:      "order_placed",
		Title:     "Order confirmed",
		Message:   "Your order #1042 has been placed.",
		Data:      map[string]any{"order_id": "ord-1042"},
		IsRead:    false,
		CreatedAt: now,
	}

	dataJSON, err := json.Marshal(n.Data)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(n.ID, n.UserID, n.Type, n.Title, n.Message, dataJSON, n.IsRead, n.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.CreateNotification(context.Background(), n)
	assert.NoError(t, err)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_CreateNotification_ExecError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	n := &domain.Notification{ID: "ntf-001", UserID: "usr-001", Type: "custom", Title: "t", Message: "m"}
	dataJSON, err := json.Marshal(n.Data)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(n.ID, n.UserID, n.Type, n.Title, n.Message, dataJSON, n.IsRead, n.CreatedAt).
		WillReturnError(errors.New("database timeout"))

	err = store.CreateNotification(context.Background(), n)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert notification")

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

// ─── ListNotifications ───────────────────────────────────────────────────────

func TestStore_ListNotifications_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	now := time.Now().UTC()

	data1, err := json.Marshal(map[string]any{"order_id": "ord-001"})
	require.NoError(t, err)

	listColumns := append(notificationColumns, "total_count")

	mock.ExpectQuery("SELECT .+ FROM notifications").
		WithArgs("usr-001", 10, 0).
		WillReturnRows(
			pgxmock.NewRows(listColumns).
				AddRow("ntf-002", "usr-001", "order_delivered", "Delivered", "Your order has been delivered.", data1, false, now, 2).
				AddRow("ntf-001", "usr-001", "order_placed", "Order confirmed", "Your order #1042 has been placed.", []byte("null"), true, now, 2),
		)

	notifications, total, err := store.ListNotifications(context.Background(), "usr-001", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, notifications, 2)
	assert.Equal(t, "ntf-002", notifications[0].ID)
	assert.Equal(t, "ord-001", notifications[0].Data["order_id"])
	assert.True(t, notifications[1].IsRead)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_ListNotifications_Empty(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	listColumns := append(notificationColumns, "total_count")

	mock.ExpectQuery("SELECT .+ FROM notifications").
		WithArgs("usr-999", 20, 0).
		WillReturnRows(pgxmock.NewRows(listColumns))

	notifications, total, err := store.ListNotifications(context.Background(), "usr-999", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, notifications)
	assert.Empty(t, notifications)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

// ─── MarkNotificationRead ────────────────────────────────────────────────────

func TestStore_MarkNotificationRead_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec("UPDATE notifications").
		WithArgs("ntf-001", "usr-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.MarkNotificationRead(context.Background(), "usr-001", "ntf-001")
	assert.NoError(t, err)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_MarkNotificationRead_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec("UPDATE notifications").
		WithArgs("ntf-missing", "usr-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.MarkNotificationRead(context.Background(), "usr-001", "ntf-missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

// ─── RecordNotificationHistory ───────────────────────────────────────────────

func TestStore_RecordNotificationHistory_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	sentAt := now.Add(time.Second)

	entry := &domain.HistoryEntry{
		ID:         "hist-001",
		UserID:     "usr-001",
		TemplateID: "order_placed",
		Title:      "Order confirmed",
		Body:       "Your order #1042 has been placed.",
		Channels:   []string{domain.ChannelPush, domain.ChannelInApp},
		Status:     domain.StatusSent,
		Metadata:   map[string]any{"push": "ok", "in_app": "ok"},
		SentAt:     &sentAt,
		CreatedAt:  now,
	}

	metadataJSON, err := json.Marshal(entry.Metadata)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO notification_history").
		WithArgs(
			entry.ID, entry.UserID, entry.TemplateID, entry.Title, entry.Body,
			entry.Channels, entry.Status, entry.Error, metadataJSON,
			entry.SentAt, entry.DeliveredAt, entry.ReadAt, entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.RecordNotificationHistory(context.Background(), entry)
	assert.NoError(t, err)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_UpdateNotificationHistory_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)
	sentAt := time.Date(2025, 7, 2, 8, 0, 0, 0, time.UTC)

	entry := &domain.HistoryEntry{
		ID:       "hist-001",
		UserID:   "usr-001",
		Channels: []string{domain.ChannelPush},
		Status:   domain.StatusSent,
		Metadata: map[string]any{"push": "ok"},
		SentAt:   &sentAt,
	}

	metadataJSON, err := json.Marshal(entry.Metadata)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE notification_history").
		WithArgs(entry.ID, entry.Status, entry.Error, metadataJSON, entry.SentAt, entry.DeliveredAt, entry.ReadAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.UpdateNotificationHistory(context.Background(), entry)
	assert.NoError(t, err)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_UpdateNotificationHistory_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	entry := &domain.HistoryEntry{ID: "hist-missing", Status: domain.StatusExpired}
	metadataJSON, err := json.Marshal(entry.Metadata)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE notification_history").
		WithArgs(entry.ID, entry.Status, entry.Error, metadataJSON, entry.SentAt, entry.DeliveredAt, entry.ReadAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateNotificationHistory(context.Background(), entry)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}

func TestStore_RecordNotificationHistory_ExecError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	entry := &domain.HistoryEntry{
		ID:       "hist-002",
		UserID:   "usr-001",
		Channels: []string{domain.ChannelInApp},
		Status:   domain.StatusFailed,
		Error:    "all channels failed",
	}

	metadataJSON, err := json.Marshal(entry.Metadata)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO notification_history").
		WithArgs(
			entry.ID, entry.UserID, entry.TemplateID, entry.Title, entry.Body,
			entry.Channels, entry.Status, entry.Error, metadataJSON,
			entry.SentAt, entry.DeliveredAt, entry.ReadAt, entry.CreatedAt,
		).
		WillReturnError(errors.New("broken pipe"))

	err = store.RecordNotificationHistory(context.Background(), entry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert notification history")

	err = mock.ExpectationsWereMet()
	assert.NoError(t, err)
}
