package storage

import (
	"context"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
)

// Store is the persistence collaborator consumed by the engine. Every call is
// best-effort from the engine's point of view: in-memory state stays
// authoritative for the running process, and a storage failure degrades
// durability, never the current delivery.
type Store interface {
	// StorePushSubscription upserts a push subscription keyed by
	// (user id, endpoint).
	StorePushSubscription(ctx context.Context, sub *domain.PushSubscription) error

	// RemovePushSubscription deletes the subscription with the given endpoint.
	RemovePushSubscription(ctx context.Context, userID, endpoint string) error

	// GetPushSubscriptions returns all stored subscriptions for a user,
	// active and inactive.
	GetPushSubscriptions(ctx context.Context, userID string) ([]domain.PushSubscription, error)

	// GetNotificationPreferences returns the stored preferences for a user.
	// Absence of a record is reported as a NotFound application error, not a
	// storage failure.
	GetNotificationPreferences(ctx context.Context, userID string) (*domain.Preferences, error)

	// StoreNotificationPreferences upserts the user's preference record.
	StoreNotificationPreferences(ctx context.Context, prefs *domain.Preferences) error

	// CreateNotification persists a durable in-app notification record.
	CreateNotification(ctx context.Context, n *domain.Notification) error

	// ListNotifications returns a user's in-app notifications, newest first,
	// with the total row count for pagination.
	ListNotifications(ctx context.Context, userID string, offset, limit int) ([]domain.Notification, int, error)

	// MarkNotificationRead flags an in-app notification as read.
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error

	// RecordNotificationHistory appends a delivery-attempt record.
	RecordNotificationHistory(ctx context.Context, entry *domain.HistoryEntry) error

	// UpdateNotificationHistory applies a late status change to an existing
	// history record, e.g. when a quiet-hours deferred delivery resolves.
	UpdateNotificationHistory(ctx context.Context, entry *domain.HistoryEntry) error
}
