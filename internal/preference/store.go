// Package preference keeps per-user notification preferences in memory,
// backed by durable storage. The cache is authoritative for the running
// process: reads never fail and storage outages only degrade durability.
package preference

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/storage"
	apperrors "github.com/IntegratedRai444/zipzydeliver-sub001/pkg/errors"
)

// Store caches preference records per user and lazily hydrates them from
// storage on first access. A user without a stored record gets the default
// record, so callers can treat every user as having preferences.
type Store struct {
	mu      sync.RWMutex
	cache   map[string]*domain.Preferences
	storage storage.Store
	logger  *slog.Logger
}

func NewStore(st storage.Store, logger *slog.Logger) *Store {
	return &Store{
		cache:   make(map[string]*domain.Preferences),
		storage: st,
		logger:  logger,
	}
}

// Get returns the preferences for a user. It never fails: a cache miss falls
// back to storage, and a missing or unreadable record falls back to defaults.
func (s *Store) Get(ctx context.Context, userID string) *domain.Preferences {
	s.mu.RLock()
	if p, ok := s.cache[userID]; ok {
		s.mu.RUnlock()
		return clone(p)
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.loadLocked(ctx, userID))
}

// Update merges the given partial update into the user's record, caches the
// result, and persists it. Persistence is best-effort: a storage failure is
// logged and the cached record stays authoritative.
func (s *Store) Update(ctx context.Context, userID string, update *domain.PreferenceUpdate) (*domain.Preferences, error) {
	if err := update.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	s.mu.Lock()
	p := s.loadLocked(ctx, userID)
	p.Apply(*update)
	merged := clone(p)
	s.mu.Unlock()

	if err := s.storage.StoreNotificationPreferences(ctx, merged); err != nil {
		s.logger.WarnContext(ctx, "failed to persist notification preferences",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return merged, nil
}

// loadLocked returns the cached record for userID, hydrating the cache from
// storage or from defaults on first access. The caller must hold mu.
func (s *Store) loadLocked(ctx context.Context, userID string) *domain.Preferences {
	if p, ok := s.cache[userID]; ok {
		return p
	}

	p, err := s.storage.GetNotificationPreferences(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		p = domain.DefaultPreferences(userID)
	default:
		s.logger.WarnContext(ctx, "failed to load notification preferences, using defaults",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		p = domain.DefaultPreferences(userID)
	}

	s.cache[userID] = p
	return p
}

func clone(p *domain.Preferences) *domain.Preferences {
	cp := *p
	return &cp
}
