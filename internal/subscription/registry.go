// Package subscription tracks web push subscriptions per user. Each user owns
// zero or more endpoints; registering an existing endpoint updates the record
// instead of duplicating it.
package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/storage"
	apperrors "github.com/IntegratedRai444/zipzydeliver-sub001/pkg/errors"
)

// Registry is the in-memory view of push subscriptions, write-through to
// storage. A user's subscriptions are hydrated from storage on first access.
type Registry struct {
	mu      sync.RWMutex
	subs    map[string]map[string]*domain.PushSubscription
	loaded  map[string]bool
	storage storage.Store
	logger  *slog.Logger
}

func NewRegistry(st storage.Store, logger *slog.Logger) *Registry {
	return &Registry{
		subs:    make(map[string]map[string]*domain.PushSubscription),
		loaded:  make(map[string]bool),
		storage: st,
		logger:  logger,
	}
}

// Subscribe upserts a subscription keyed by (user, endpoint) and marks it
// active. Re-registering a known endpoint refreshes its keys and user agent.
func (r *Registry) Subscribe(ctx context.Context, sub *domain.PushSubscription) error {
	if sub.UserID == "" || sub.Endpoint == "" {
		return apperrors.InvalidInput("user id and endpoint are required")
	}

	sub.Active = true
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.ensureLoadedLocked(ctx, sub.UserID)
	if existing, ok := r.subs[sub.UserID][sub.Endpoint]; ok {
		sub.CreatedAt = existing.CreatedAt
	}
	r.subs[sub.UserID][sub.Endpoint] = sub
	r.mu.Unlock()

	if err := r.storage.StorePushSubscription(ctx, sub); err != nil {
		return apperrors.Wrap(err, "persist push subscription")
	}

	r.logger.InfoContext(ctx, "push subscription registered",
		slog.String("user_id", sub.UserID),
		slog.String("endpoint", sub.Endpoint))
	return nil
}

// Unsubscribe removes the matching subscription from the registry and storage.
func (r *Registry) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	r.mu.Lock()
	r.ensureLoadedLocked(ctx, userID)
	_, known := r.subs[userID][endpoint]
	delete(r.subs[userID], endpoint)
	r.mu.Unlock()

	err := r.storage.RemovePushSubscription(ctx, userID, endpoint)
	if err != nil && !known {
		return err
	}
	if err != nil {
		r.logger.WarnContext(ctx, "failed to remove push subscription from storage",
			slog.String("user_id", userID),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
	}

	r.logger.InfoContext(ctx, "push subscription removed",
		slog.String("user_id", userID),
		slog.String("endpoint", endpoint))
	return nil
}

// ListActive returns the user's active subscriptions. Storage problems during
// hydration degrade to an empty result so delivery can proceed on the other
// channels.
func (r *Registry) ListActive(ctx context.Context, userID string) []domain.PushSubscription {
	r.mu.Lock()
	r.ensureLoadedLocked(ctx, userID)
	active := make([]domain.PushSubscription, 0, len(r.subs[userID]))
	for _, sub := range r.subs[userID] {
		if sub.Active {
			active = append(active, *sub)
		}
	}
	r.mu.Unlock()

	return active
}

// Deactivate marks a subscription inactive after the push gateway reported the
// endpoint permanently gone. The record is kept so the endpoint stays deduped;
// it simply stops receiving deliveries.
func (r *Registry) Deactivate(ctx context.Context, userID, endpoint string) error {
	r.mu.Lock()
	r.ensureLoadedLocked(ctx, userID)
	sub, ok := r.subs[userID][endpoint]
	if !ok {
		r.mu.Unlock()
		return apperrors.NotFound("push subscription", endpoint)
	}
	sub.Active = false
	snapshot := *sub
	r.mu.Unlock()

	if err := r.storage.StorePushSubscription(ctx, &snapshot); err != nil {
		return apperrors.Wrap(err, "persist subscription deactivation")
	}

	r.logger.InfoContext(ctx, "push subscription deactivated",
		slog.String("user_id", userID),
		slog.String("endpoint", endpoint))
	return nil
}

// PruneInactive drops deactivated subscriptions from the in-memory index and
// returns how many were removed. Storage already holds their deactivated
// state, so this only trims the working set.
func (r *Registry) PruneInactive() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for userID, byEndpoint := range r.subs {
		for endpoint, sub := range byEndpoint {
			if !sub.Active {
				delete(byEndpoint, endpoint)
				pruned++
			}
		}
		if len(byEndpoint) == 0 && r.loaded[userID] {
			delete(r.subs, userID)
			delete(r.loaded, userID)
		}
	}
	return pruned
}

// Counts reports how many subscriptions the registry currently tracks and how
// many of those are active.
func (r *Registry) Counts() (total, active int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, byEndpoint := range r.subs {
		for _, sub := range byEndpoint {
			total++
			if sub.Active {
				active++
			}
		}
	}
	return total, active
}

// ensureLoadedLocked hydrates a user's subscriptions from storage on first
// access. The caller must hold mu. A load failure leaves the user hydrated
// with an empty set; subsequent writes repopulate it.
func (r *Registry) ensureLoadedLocked(ctx context.Context, userID string) {
	if r.subs[userID] == nil {
		r.subs[userID] = make(map[string]*domain.PushSubscription)
	}
	if r.loaded[userID] {
		return
	}

	stored, err := r.storage.GetPushSubscriptions(ctx, userID)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to load push subscriptions",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
	for i := range stored {
		sub := stored[i]
		r.subs[userID][sub.Endpoint] = &sub
	}

	r.loaded[userID] = true
}
