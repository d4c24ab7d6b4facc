package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/event"
)

// deferViaQuietHours drives one templated send into the deferred queue.
func deferViaQuietHours(t *testing.T, env *testEnv) {
	t.Helper()
	env.prefs.QuietHours = domain.QuietHours{Enabled: true, Start: "22:00", End: "08:00"}
	env.setNow(time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC))
	require.True(t, env.d.SendFromTemplate(context.Background(), "usr-001", "order_placed", nil, nil))
	require.Equal(t, 1, env.d.Scheduler().Len())
}

// deferAt queues a hand-built payload directly, bypassing quiet hours.
func deferAt(env *testEnv, id string, at time.Time) {
	scheduled := at
	payload := &domain.Payload{
		ID:          id,
		UserID:      "usr-001",
		TemplateID:  "order_placed",
		Title:       "Deferred " + id,
		Body:        "body",
		Priority:    domain.PriorityMedium,
		Channels:    []string{domain.ChannelInApp},
		ScheduledAt: &scheduled,
		ExpiresAt:   at.Add(time.Hour),
		CreatedAt:   at.Add(-time.Hour),
	}
	entry := &domain.HistoryEntry{ID: id, UserID: "usr-001", Status: domain.StatusPending}
	env.d.Scheduler().Defer(payload, entry)
}

// ============================================================================
// Sweep
// ============================================================================

func TestScheduler_SweepRedeliversDuePayloads(t *testing.T) {
	env := newTestEnv(t, Config{})
	sent := collectEvents(env.bus, event.KindNotificationSent)
	deferViaQuietHours(t, env)

	env.setNow(time.Date(2025, 3, 11, 8, 5, 0, 0, time.UTC))
	processed := env.d.Scheduler().Sweep(context.Background())

	require.Equal(t, 1, processed)
	require.Equal(t, 1, env.push.count())
	require.Equal(t, 1, env.inApp.count())
	assert.Zero(t, env.d.Scheduler().Len())

	resolved := env.history.resolutions()
	require.Len(t, resolved, 1)
	assert.Equal(t, domain.StatusSent, resolved[0].status)
	assert.Empty(t, resolved[0].errMsg)
	require.NotNil(t, resolved[0].sentAt)

	require.Len(t, *sent, 1)
}

func TestScheduler_SweepLeavesFutureItems(t *testing.T) {
	env := newTestEnv(t, Config{})
	deferViaQuietHours(t, env)

	// Still inside the quiet window: the payload is not due yet.
	env.setNow(time.Date(2025, 3, 11, 5, 0, 0, 0, time.UTC))
	processed := env.d.Scheduler().Sweep(context.Background())

	assert.Zero(t, processed)
	assert.Zero(t, env.push.count())
	assert.Equal(t, 1, env.d.Scheduler().Len())
	assert.Empty(t, env.history.resolutions())
}

func TestScheduler_SweepExpiresStalePayloads(t *testing.T) {
	env := newTestEnv(t, Config{PayloadExpiry: 30 * time.Minute})
	deferViaQuietHours(t, env)

	// The payload expired at midnight, long before the window's 08:00 end.
	env.setNow(time.Date(2025, 3, 11, 8, 5, 0, 0, time.UTC))
	processed := env.d.Scheduler().Sweep(context.Background())

	require.Equal(t, 1, processed)
	assert.Zero(t, env.push.count())
	assert.Zero(t, env.inApp.count())
	assert.Zero(t, env.d.Scheduler().Len())

	resolved := env.history.resolutions()
	require.Len(t, resolved, 1)
	assert.Equal(t, domain.StatusExpired, resolved[0].status)
	assert.Equal(t, "expired before quiet hours ended", resolved[0].errMsg)
	assert.Nil(t, resolved[0].sentAt)
}

func TestScheduler_SweepResolvesRedeliveryFailure(t *testing.T) {
	env := newTestEnv(t, Config{})
	failed := collectEvents(env.bus, event.KindNotificationFailed)
	deferViaQuietHours(t, env)

	env.push.err = errors.New("gateway unreachable")
	env.inApp.err = errors.New("storage down")
	env.setNow(time.Date(2025, 3, 11, 8, 5, 0, 0, time.UTC))
	env.d.Scheduler().Sweep(context.Background())

	resolved := env.history.resolutions()
	require.Len(t, resolved, 1)
	assert.Equal(t, domain.StatusFailed, resolved[0].status)
	assert.Contains(t, resolved[0].errMsg, "push: gateway unreachable")
	assert.Nil(t, resolved[0].sentAt)

	require.Len(t, *failed, 1)
}

func TestScheduler_DeferKeepsQueueSorted(t *testing.T) {
	env := newTestEnv(t, Config{})
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// Queue out of order; only the earliest is due at 13:30.
	deferAt(env, "ntf-a", base.Add(3*time.Hour))
	deferAt(env, "ntf-b", base.Add(1*time.Hour))
	deferAt(env, "ntf-c", base.Add(2*time.Hour))

	env.setNow(base.Add(90 * time.Minute))
	processed := env.d.Scheduler().Sweep(context.Background())

	require.Equal(t, 1, processed)
	require.Equal(t, 1, env.inApp.count())
	assert.Equal(t, "ntf-b", env.inApp.last().ID)

	sched := env.d.Scheduler()
	require.Equal(t, 2, sched.Len())
	sched.mu.Lock()
	defer sched.mu.Unlock()
	assert.Equal(t, "ntf-c", sched.queue[0].payload.ID)
	assert.Equal(t, "ntf-a", sched.queue[1].payload.ID)
}

// ============================================================================
// Run loop
// ============================================================================

func TestScheduler_RunSweepsOnInterval(t *testing.T) {
	env := newTestEnv(t, Config{SweepInterval: 10 * time.Millisecond})
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	deferAt(env, "ntf-due", base.Add(time.Minute))
	env.setNow(base.Add(5 * time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.d.Scheduler().Run(ctx)

	require.Eventually(t, func() bool {
		return env.inApp.count() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_RunStopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t, Config{SweepInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.d.Scheduler().Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop on context cancel")
	}
}
