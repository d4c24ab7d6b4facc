package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
)

const defaultSweepInterval = 30 * time.Second

// deferred pairs a quiet-hours payload with the pending history entry that
// gets resolved when it finally goes out (or expires).
type deferred struct {
	payload *domain.Payload
	entry   *domain.HistoryEntry
}

// Scheduler holds payloads deferred past quiet hours and redelivers them once
// their scheduled time arrives. The queue is kept sorted by scheduled time so
// a sweep only ever inspects its head.
type Scheduler struct {
	mu    sync.Mutex
	queue []deferred

	d        *Dispatcher
	interval time.Duration
	logger   *slog.Logger
}

func newScheduler(d *Dispatcher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Scheduler{
		d:        d,
		interval: interval,
		logger:   logger,
	}
}

// Defer queues the payload for redelivery at its scheduled time.
func (s *Scheduler) Defer(payload *domain.Payload, entry *domain.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := *payload.ScheduledAt
	i := sort.Search(len(s.queue), func(i int) bool {
		return s.queue[i].payload.ScheduledAt.After(at)
	})
	s.queue = append(s.queue, deferred{})
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = deferred{payload: payload, entry: entry}

	DeferredQueueDepth.Set(float64(len(s.queue)))
}

// Len reports how many payloads are waiting.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Sweep redelivers every payload whose scheduled time has passed, dropping
// the ones that expired while waiting. It returns how many payloads it
// processed.
func (s *Scheduler) Sweep(ctx context.Context) int {
	now := s.d.now()

	due := s.takeDue(now)
	for _, item := range due {
		if item.payload.Expired(now) {
			DeferredExpired.Inc()
			s.d.history.Resolve(ctx, item.entry, domain.StatusExpired, "expired before quiet hours ended", nil)
			s.logger.WarnContext(ctx, "deferred notification expired before delivery",
				slog.String("notification_id", item.payload.ID),
				slog.String("user_id", item.payload.UserID),
			)
			continue
		}
		s.d.redeliver(ctx, item.payload, item.entry)
	}
	return len(due)
}

// takeDue pops the queue head up to the first payload still scheduled in the
// future.
func (s *Scheduler) takeDue(now time.Time) []deferred {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := 0
	for i < len(s.queue) && !s.queue[i].payload.ScheduledAt.After(now) {
		i++
	}
	if i == 0 {
		return nil
	}

	due := make([]deferred, i)
	copy(due, s.queue[:i])
	s.queue = append(s.queue[:0], s.queue[i:]...)

	DeferredQueueDepth.Set(float64(len(s.queue)))
	return due
}

// Run sweeps the deferred queue until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "deferred delivery loop started",
		slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "deferred delivery loop stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
