// Package history keeps an append-only in-memory log of delivery attempts,
// mirrored to storage for durability. It also aggregates the engine-wide
// stats and runs the periodic retention sweep.
package history

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/storage"
)

const defaultQueryLimit = 50

// SubscriptionIndex is the view of the push subscription registry the log
// needs for stats and for the retention sweep.
type SubscriptionIndex interface {
	Counts() (total, active int)
	PruneInactive() int
}

// TemplateIndex reports how many templates are registered.
type TemplateIndex interface {
	Count() int
}

// Log records delivery attempts newest-last and trims itself by age and size.
// Reads and writes are safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []*domain.HistoryEntry

	maxEntries int
	retention  time.Duration
	interval   time.Duration

	storage   storage.Store
	subs      SubscriptionIndex
	templates TemplateIndex
	logger    *slog.Logger
}

func NewLog(st storage.Store, subs SubscriptionIndex, templates TemplateIndex,
	maxEntries int, retention, interval time.Duration, logger *slog.Logger) *Log {
	return &Log{
		entries:    make([]*domain.HistoryEntry, 0, maxEntries),
		maxEntries: maxEntries,
		retention:  retention,
		interval:   interval,
		storage:    st,
		subs:       subs,
		templates:  templates,
		logger:     logger,
	}
}

// Record appends a delivery attempt. Missing identity and timestamps are
// filled in. The entry is mirrored to storage best-effort: a persistence
// failure is logged and the in-memory record stands.
func (l *Log) Record(ctx context.Context, entry *domain.HistoryEntry) *domain.HistoryEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if excess := len(l.entries) - l.maxEntries; excess > 0 {
		l.entries = append(l.entries[:0:0], l.entries[excess:]...)
	}
	l.mu.Unlock()

	if err := l.storage.RecordNotificationHistory(ctx, entry); err != nil {
		l.logger.WarnContext(ctx, "failed to persist history entry",
			slog.String("history_id", entry.ID),
			slog.String("user_id", entry.UserID),
			slog.String("error", err.Error()))
	}

	return entry
}

// Query returns the user's most recent entries, newest first. A non-positive
// limit falls back to the default page size.
func (l *Log) Query(userID string, limit int) []domain.HistoryEntry {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.HistoryEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].UserID == userID {
			out = append(out, *l.entries[i])
		}
	}
	return out
}

// Resolve applies a late status change to a recorded entry, used when a
// deferred delivery finally runs. The update is mirrored to storage on a
// best-effort basis.
func (l *Log) Resolve(ctx context.Context, entry *domain.HistoryEntry, status, errMsg string, sentAt *time.Time) {
	l.mu.Lock()
	entry.Status = status
	entry.Error = errMsg
	entry.SentAt = sentAt
	l.mu.Unlock()

	if err := l.storage.UpdateNotificationHistory(ctx, entry); err != nil {
		l.logger.WarnContext(ctx, "failed to persist history status update",
			slog.String("history_id", entry.ID),
			slog.String("status", status),
			slog.String("error", err.Error()))
	}
}

// MarkRead stamps the entry's read time, filling the delivery time as well
// when it is still unset (a read message was necessarily delivered). It
// reports whether the entry is known to the log.
func (l *Log) MarkRead(ctx context.Context, id string, at time.Time) bool {
	l.mu.Lock()
	var entry *domain.HistoryEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ID == id {
			entry = l.entries[i]
			break
		}
	}
	if entry != nil {
		entry.ReadAt = &at
		if entry.DeliveredAt == nil {
			entry.DeliveredAt = &at
		}
	}
	l.mu.Unlock()

	if entry == nil {
		return false
	}

	if err := l.storage.UpdateNotificationHistory(ctx, entry); err != nil {
		l.logger.WarnContext(ctx, "failed to persist history read mark",
			slog.String("history_id", id),
			slog.String("error", err.Error()))
	}
	return true
}

// Stats aggregates delivery counts with the subscription and template counts.
// Read-only, safe to call at any time. Deliveries that expired before running
// count as failed; deferred ones still pending count toward neither.
func (l *Log) Stats() domain.Stats {
	l.mu.RLock()
	var sent, failed int
	for _, entry := range l.entries {
		switch entry.Status {
		case domain.StatusSent, domain.StatusDelivered:
			sent++
		case domain.StatusFailed, domain.StatusExpired:
			failed++
		}
	}
	total := len(l.entries)
	l.mu.RUnlock()

	var rate float64
	if resolved := sent + failed; resolved > 0 {
		rate = math.Round(float64(sent)/float64(resolved)*10000) / 100
	}

	subTotal, subActive := l.subs.Counts()

	return domain.Stats{
		Total:               total,
		Sent:                sent,
		Failed:              failed,
		SuccessRate:         rate,
		TotalSubscriptions:  subTotal,
		ActiveSubscriptions: subActive,
		Templates:           l.templates.Count(),
	}
}

// Cleanup performs one retention pass: entries older than the retention
// window are dropped and deactivated subscriptions are pruned from the
// in-memory index. Returns how many history entries were removed.
func (l *Log) Cleanup(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-l.retention)

	l.mu.Lock()
	kept := l.entries[:0:0]
	for _, entry := range l.entries {
		if entry.CreatedAt.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	removed := len(l.entries) - len(kept)
	l.entries = kept
	l.mu.Unlock()

	pruned := l.subs.PruneInactive()

	if removed > 0 || pruned > 0 {
		l.logger.InfoContext(ctx, "history cleanup pass completed",
			slog.Int("entries_removed", removed),
			slog.Int("subscriptions_pruned", pruned))
	}
	return removed
}

// Run sweeps on the configured interval until the context is cancelled.
func (l *Log) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.InfoContext(ctx, "history cleanup loop started",
		slog.Duration("interval", l.interval),
		slog.Duration("retention", l.retention))

	for {
		select {
		case <-ctx.Done():
			l.logger.InfoContext(ctx, "history cleanup loop stopped")
			return
		case <-ticker.C:
			l.Cleanup(ctx)
		}
	}
}
