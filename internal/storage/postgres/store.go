package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/database"
	apperrors "github.com/IntegratedRai444/zipzydeliver-sub001/pkg/errors"
)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	pool database.DBTX
}

// NewStore creates a new PostgreSQL-backed storage collaborator.
func NewStore(pool database.DBTX) *Store {
	return &Store{pool: pool}
}

// StorePushSubscription upserts a push subscription keyed by (user_id, endpoint).
// Re-registering an existing endpoint refreshes the keys and reactivates it.
func (s *Store) StorePushSubscription(ctx context.Context, sub *domain.PushSubscription) (err error) {
	query := `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, user_agent, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, endpoint) DO UPDATE
		SET p256dh = EXCLUDED.p256dh,
		    auth = EXCLUDED.auth,
		    user_agent = EXCLUDED.user_agent,
		    active = EXCLUDED.active`

	ctx, end := database.TraceQuery(ctx, "StorePushSubscription", query)
	defer func() { end(err) }()

	_, err = s.pool.Exec(ctx, query,
		sub.UserID,
		sub.Endpoint,
		sub.P256dh,
		sub.Auth,
		sub.UserAgent,
		sub.Active,
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}

	return nil
}

// RemovePushSubscription deletes the subscription with the given endpoint.
func (s *Store) RemovePushSubscription(ctx context.Context, userID, endpoint string) (err error) {
	query := `DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`

	ctx, end := database.TraceQuery(ctx, "RemovePushSubscription", query)
	defer func() { end(err) }()

	ct, err := s.pool.Exec(ctx, query, userID, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("push subscription", endpoint)
	}

	return nil
}

// GetPushSubscriptions returns all stored subscriptions for a user.
func (s *Store) GetPushSubscriptions(ctx context.Context, userID string) (subs []domain.PushSubscription, err error) {
	query := `
		SELECT user_id, endpoint, p256dh, auth, user_agent, active, created_at
		FROM push_subscriptions
		WHERE user_id = $1
		ORDER BY created_at ASC`

	ctx, end := database.TraceQuery(ctx, "GetPushSubscriptions", query)
	defer func() { end(err) }()

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query push subscriptions: %w", err)
	}
	defer rows.Close()

	subs = make([]domain.PushSubscription, 0)
	for rows.Next() {
		var sub domain.PushSubscription
		if err = rows.Scan(
			&sub.UserID,
			&sub.Endpoint,
			&sub.P256dh,
			&sub.Auth,
			&sub.UserAgent,
			&sub.Active,
			&sub.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan push subscription row: %w", err)
		}
		subs = append(subs, sub)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate push subscription rows: %w", err)
	}

	return subs, nil
}

// GetNotificationPreferences returns the stored preferences for a user, or an
// application-level NotFound when the user has no record yet.
func (s *Store) GetNotificationPreferences(ctx context.Context, userID string) (prefs *domain.Preferences, err error) {
	query := `
		SELECT user_id, order_updates, delivery_updates, payment_updates, system_alerts, promotions,
		       push_enabled, sms_enabled, email_enabled,
		       quiet_hours_enabled, quiet_hours_start, quiet_hours_end, updated_at
		FROM notification_preferences
		WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "GetNotificationPreferences", query)
	defer func() { end(err) }()

	var p domain.Preferences
	err = s.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.OrderUpdates,
		&p.DeliveryUpdates,
		&p.PaymentUpdates,
		&p.SystemAlerts,
		&p.Promotions,
		&p.PushEnabled,
		&p.SMSEnabled,
		&p.EmailEnabled,
		&p.QuietHours.Enabled,
		&p.QuietHours.Start,
		&p.QuietHours.End,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan notification preferences: %w", err)
	}

	return &p, nil
}

// StoreNotificationPreferences upserts the user's preference record.
func (s *Store) StoreNotificationPreferences(ctx context.Context, prefs *domain.Preferences) (err error) {
	query := `
		INSERT INTO notification_preferences (user_id, order_updates, delivery_updates, payment_updates, system_alerts, promotions,
		                                      push_enabled, sms_enabled, email_enabled,
		                                      quiet_hours_enabled, quiet_hours_start, quiet_hours_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE
		SET order_updates = EXCLUDED.order_updates,
		    delivery_updates = EXCLUDED.delivery_updates,
		    payment_updates = EXCLUDED.payment_updates,
		    system_alerts = EXCLUDED.system_alerts,
		    promotions = EXCLUDED.promotions,
		    push_enabled = EXCLUDED.push_enabled,
		    sms_enabled = EXCLUDED.sms_enabled,
		    email_enabled = EXCLUDED.email_enabled,
		    quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
		    quiet_hours_start = EXCLUDED.quiet_hours_start,
		    quiet_hours_end = EXCLUDED.quiet_hours_end,
		    updated_at = EXCLUDED.updated_at`

	ctx, end := database.TraceQuery(ctx, "StoreNotificationPreferences", query)
	defer func() { end(err) }()

	_, err = s.pool.Exec(ctx, query,
		prefs.UserID,
		prefs.OrderUpdates,
		prefs.DeliveryUpdates,
		prefs.PaymentUpdates,
		prefs.SystemAlerts,
		prefs.Promotions,
		prefs.PushEnabled,
		prefs.SMSEnabled,
		prefs.EmailEnabled,
		prefs.QuietHours.Enabled,
		prefs.QuietHours.Start,
		prefs.QuietHours.End,
		prefs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert notification preferences: %w", err)
	}

	return nil
}

// CreateNotification persists a durable in-app notification record.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (err error) {
	dataJSON, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("marshal notification data: %w", err)
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, "CreateNotification", query)
	defer func() { end(err) }()

	_, err = s.pool.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		dataJSON,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

// ListNotifications returns a user's in-app notifications, newest first, with
// the total row count for pagination.
func (s *Store) ListNotifications(ctx context.Context, userID string, offset, limit int) (notifications []domain.Notification, total int, err error) {
	query := `
		SELECT id, user_id, type, title, message, data, is_read, created_at,
		       count(*) OVER() AS total_count
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "ListNotifications", query)
	defer func() { end(err) }()

	rows, err := s.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications by user: %w", err)
	}
	defer rows.Close()

	notifications = make([]domain.Notification, 0)
	for rows.Next() {
		var (
			n        domain.Notification
			dataJSON []byte
		)
		if err = rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Type,
			&n.Title,
			&n.Message,
			&dataJSON,
			&n.IsRead,
			&n.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan notification row: %w", err)
		}

		if dataJSON != nil {
			if err = json.Unmarshal(dataJSON, &n.Data); err != nil {
				return nil, 0, fmt.Errorf("unmarshal notification data: %w", err)
			}
		}

		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notification rows: %w", err)
	}

	return notifications, total, nil
}

// MarkNotificationRead flags an in-app notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) (err error) {
	query := `UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`

	ctx, end := database.TraceQuery(ctx, "MarkNotificationRead", query)
	defer func() { end(err) }()

	ct, err := s.pool.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("notification", notificationID)
	}

	return nil
}

// RecordNotificationHistory appends a delivery-attempt record.
func (s *Store) RecordNotificationHistory(ctx context.Context, entry *domain.HistoryEntry) (err error) {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal history metadata: %w", err)
	}

	query := `
		INSERT INTO notification_history (id, user_id, template_id, title, body, channels, status, error, metadata, sent_at, delivered_at, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	ctx, end := database.TraceQuery(ctx, "RecordNotificationHistory", query)
	defer func() { end(err) }()

	_, err = s.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.TemplateID,
		entry.Title,
		entry.Body,
		entry.Channels,
		entry.Status,
		entry.Error,
		metadataJSON,
		entry.SentAt,
		entry.DeliveredAt,
		entry.ReadAt,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification history: %w", err)
	}

	return nil
}

// UpdateNotificationHistory applies a late status change to a history record,
// typically when a deferred delivery resolves after quiet hours.
func (s *Store) UpdateNotificationHistory(ctx context.Context, entry *domain.HistoryEntry) (err error) {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal history metadata: %w", err)
	}

	query := `
		UPDATE notification_history
		SET status = $2, error = $3, metadata = $4, sent_at = $5, delivered_at = $6, read_at = $7
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateNotificationHistory", query)
	defer func() { end(err) }()

	ct, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.Status,
		entry.Error,
		metadataJSON,
		entry.SentAt,
		entry.DeliveredAt,
		entry.ReadAt,
	)
	if err != nil {
		return fmt.Errorf("update notification history: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("history entry", entry.ID)
	}

	return nil
}
