// Package dispatch is the orchestration core of the notification engine. It
// resolves templates, applies per-user preference and quiet-hours policy,
// fans payloads out across the channel adapters, and records every attempt in
// the history log.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/channel"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/event"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/template"
)

// TemplateSource resolves registered notification templates.
type TemplateSource interface {
	Lookup(id string) (*domain.Template, bool)
}

// PreferenceSource returns a user's effective preferences. It never fails:
// missing or unreadable records come back as permissive defaults.
type PreferenceSource interface {
	Get(ctx context.Context, userID string) *domain.Preferences
}

// HistoryLog records delivery attempts and late status changes.
type HistoryLog interface {
	Record(ctx context.Context, entry *domain.HistoryEntry) *domain.HistoryEntry
	Resolve(ctx context.Context, entry *domain.HistoryEntry, status, errMsg string, sentAt *time.Time)
}

// Config holds the dispatcher's tunables. Zero values fall back to the
// engine defaults.
type Config struct {
	// PayloadExpiry is how long a payload stays deliverable, bounding how
	// stale a quiet-hours deferred notification may get.
	PayloadExpiry time.Duration

	// SweepInterval is how often the scheduler re-checks deferred payloads.
	SweepInterval time.Duration
}

// Dispatcher drives notifications from intent to delivered message.
type Dispatcher struct {
	templates TemplateSource
	prefs     PreferenceSource
	adapters  map[string]channel.Adapter
	history   HistoryLog
	bus       *event.Bus
	sched     *Scheduler
	expiry    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher creates the dispatcher and its deferred-delivery scheduler.
// Adapters are keyed by their channel name; a payload channel without an
// adapter fails on that channel only.
func NewDispatcher(
	templates TemplateSource,
	prefs PreferenceSource,
	adapters []channel.Adapter,
	history HistoryLog,
	bus *event.Bus,
	cfg Config,
	logger *slog.Logger,
) *Dispatcher {
	byName := make(map[string]channel.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}

	expiry := cfg.PayloadExpiry
	if expiry <= 0 {
		expiry = domain.DefaultExpiry
	}

	d := &Dispatcher{
		templates: templates,
		prefs:     prefs,
		adapters:  byName,
		history:   history,
		bus:       bus,
		expiry:    expiry,
		logger:    logger,
		now:       time.Now,
	}
	d.sched = newScheduler(d, cfg.SweepInterval, logger)
	return d
}

// Scheduler returns the deferred-delivery scheduler so the application can
// run its sweep loop.
func (d *Dispatcher) Scheduler() *Scheduler {
	return d.sched
}

// SendFromTemplate renders the template for the user and drives it through
// preference filtering, quiet hours, and channel delivery. It reports whether
// the notification was accepted for delivery; false covers both caller errors
// (unknown template) and policy abstentions, each of which is logged.
func (d *Dispatcher) SendFromTemplate(ctx context.Context, userID, templateID string, variables map[string]string, overrides *domain.SendOverrides) bool {
	tmpl, ok := d.templates.Lookup(templateID)
	if !ok {
		Sends.WithLabelValues("rejected").Inc()
		d.logger.WarnContext(ctx, "unknown notification template",
			slog.String("template_id", templateID),
			slog.String("user_id", userID),
		)
		return false
	}

	prefs := d.prefs.Get(ctx, userID)

	// Disabled categories never reach any channel, in-app included.
	if !prefs.CategoryEnabled(tmpl.Category) {
		Sends.WithLabelValues("aborted").Inc()
		d.logger.DebugContext(ctx, "notification category disabled by user",
			slog.String("user_id", userID),
			slog.String("template_id", templateID),
			slog.String("category", tmpl.Category),
		)
		return false
	}

	title := template.Substitute(tmpl.Title, variables)
	body := template.Substitute(tmpl.Body, variables)

	candidates := tmpl.Channels
	if overrides != nil && overrides.Channels != nil {
		candidates = overrides.Channels
	}

	channels := filterChannels(candidates, prefs)
	if len(channels) == 0 {
		Sends.WithLabelValues("aborted").Inc()
		d.logger.InfoContext(ctx, "no deliverable channels after preference filter",
			slog.String("user_id", userID),
			slog.String("template_id", templateID),
		)
		return false
	}

	priority := tmpl.Priority
	if overrides != nil && overrides.Priority != "" {
		priority = overrides.Priority
	}

	now := d.now().UTC()
	payload := &domain.Payload{
		ID:         uuid.NewString(),
		UserID:     userID,
		TemplateID: templateID,
		Title:      title,
		Body:       body,
		Priority:   priority,
		Channels:   channels,
		ExpiresAt:  now.Add(d.expiry),
		CreatedAt:  now,
	}
	if overrides != nil {
		payload.Data = overrides.Data
		payload.ImageURL = overrides.ImageURL
		payload.ActionURL = overrides.ActionURL
	}

	return d.dispatch(ctx, payload, prefs)
}

// SendCustom drives an ad hoc payload through the same preference, quiet
// hours, and delivery logic as templated sends, skipping only template
// resolution and the category gate (custom payloads carry no category).
func (d *Dispatcher) SendCustom(ctx context.Context, payload *domain.Payload) bool {
	if payload == nil || payload.UserID == "" || payload.Title == "" {
		Sends.WithLabelValues("rejected").Inc()
		d.logger.WarnContext(ctx, "custom notification missing user id or title")
		return false
	}

	prefs := d.prefs.Get(ctx, payload.UserID)

	channels := filterChannels(payload.Channels, prefs)
	if len(channels) == 0 {
		Sends.WithLabelValues("aborted").Inc()
		d.logger.InfoContext(ctx, "no deliverable channels after preference filter",
			slog.String("user_id", payload.UserID),
		)
		return false
	}
	payload.Channels = channels

	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	if payload.TemplateID == "" {
		payload.TemplateID = domain.TemplateIDCustom
	}
	if payload.Priority == "" {
		payload.Priority = domain.PriorityMedium
	}

	now := d.now().UTC()
	if payload.CreatedAt.IsZero() {
		payload.CreatedAt = now
	}
	if payload.ExpiresAt.IsZero() {
		payload.ExpiresAt = now.Add(d.expiry)
	}

	return d.dispatch(ctx, payload, prefs)
}

// dispatch applies quiet hours and hands the payload to delivery; both entry
// points converge here so templated and custom sends cannot drift apart.
func (d *Dispatcher) dispatch(ctx context.Context, payload *domain.Payload, prefs *domain.Preferences) bool {
	now := d.now()

	if payload.Priority != domain.PriorityUrgent && prefs.QuietHours.Active(now) {
		resume := prefs.QuietHours.NextActive(now)
		payload.ScheduledAt = &resume

		entry := d.history.Record(ctx, historyEntry(payload, domain.StatusPending, ""))
		d.sched.Defer(payload, entry)

		Sends.WithLabelValues("deferred").Inc()
		d.logger.InfoContext(ctx, "delivery deferred past quiet hours",
			slog.String("notification_id", payload.ID),
			slog.String("user_id", payload.UserID),
			slog.Time("scheduled_at", resume),
		)
		return true
	}

	ok, errMsg := d.deliver(ctx, payload)
	d.record(ctx, payload, ok, errMsg)
	return ok
}

// redeliver drives a previously deferred payload and resolves its pending
// history entry.
func (d *Dispatcher) redeliver(ctx context.Context, payload *domain.Payload, entry *domain.HistoryEntry) bool {
	ok, errMsg := d.deliver(ctx, payload)

	if ok {
		// Keep errMsg: a partial success still lists the channels that failed.
		sentAt := d.now().UTC()
		d.history.Resolve(ctx, entry, domain.StatusSent, errMsg, &sentAt)
		Sends.WithLabelValues("delivered").Inc()
		d.publishOutcome(ctx, payload, true, "")
		return true
	}

	d.history.Resolve(ctx, entry, domain.StatusFailed, errMsg, nil)
	Sends.WithLabelValues("failed").Inc()
	d.publishOutcome(ctx, payload, false, errMsg)
	return false
}

// record writes the history entry for an immediate delivery and mirrors the
// outcome onto the bus.
func (d *Dispatcher) record(ctx context.Context, payload *domain.Payload, ok bool, errMsg string) {
	if ok {
		sentAt := d.now().UTC()
		entry := historyEntry(payload, domain.StatusSent, errMsg)
		entry.SentAt = &sentAt
		d.history.Record(ctx, entry)

		Sends.WithLabelValues("delivered").Inc()
		d.publishOutcome(ctx, payload, true, "")
		return
	}

	d.history.Record(ctx, historyEntry(payload, domain.StatusFailed, errMsg))
	Sends.WithLabelValues("failed").Inc()
	d.publishOutcome(ctx, payload, false, errMsg)
}

func (d *Dispatcher) publishOutcome(ctx context.Context, payload *domain.Payload, ok bool, errMsg string) {
	kind := event.KindNotificationSent
	if !ok {
		kind = event.KindNotificationFailed
	}
	d.bus.Publish(ctx, event.Event{
		Kind:           kind,
		UserID:         payload.UserID,
		Title:          payload.Title,
		Body:           payload.Body,
		Data:           payload.Data,
		Channels:       payload.Channels,
		NotificationID: payload.ID,
		Error:          errMsg,
	})
}

// deliver fans the payload out to its channels concurrently. Channels fail
// independently; the aggregate succeeds when at least one channel accepted
// the message. The returned message joins the per-channel failures.
func (d *Dispatcher) deliver(ctx context.Context, payload *domain.Payload) (bool, string) {
	type outcome struct {
		channel string
		err     error
	}

	results := make(chan outcome, len(payload.Channels))
	for _, name := range payload.Channels {
		adapter, ok := d.adapters[name]
		if !ok {
			results <- outcome{channel: name, err: fmt.Errorf("no adapter registered for channel %s", name)}
			continue
		}

		go func(name string, a channel.Adapter) {
			start := time.Now()
			err := a.Send(ctx, payload)
			DeliveryDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			results <- outcome{channel: name, err: err}
		}(name, adapter)
	}

	delivered := 0
	var failures []string
	for range payload.Channels {
		res := <-results
		if res.err == nil {
			delivered++
			Deliveries.WithLabelValues(res.channel, "success").Inc()
			d.logger.DebugContext(ctx, "channel delivery succeeded",
				slog.String("notification_id", payload.ID),
				slog.String("channel", res.channel),
			)
			continue
		}

		Deliveries.WithLabelValues(res.channel, "failure").Inc()
		failures = append(failures, res.channel+": "+res.err.Error())
		d.logger.WarnContext(ctx, "channel delivery failed",
			slog.String("notification_id", payload.ID),
			slog.String("channel", res.channel),
			slog.String("error", res.err.Error()),
		)
	}

	return delivered > 0, strings.Join(failures, "; ")
}

// filterChannels keeps the candidate channels the user has enabled. The
// in-app channel passes unconditionally: it is the baseline feed.
func filterChannels(candidates []string, prefs *domain.Preferences) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == domain.ChannelInApp || prefs.ChannelEnabled(c) {
			out = append(out, c)
		}
	}
	return out
}

func historyEntry(payload *domain.Payload, status, errMsg string) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		ID:         payload.ID,
		UserID:     payload.UserID,
		TemplateID: payload.TemplateID,
		Title:      payload.Title,
		Body:       payload.Body,
		Channels:   payload.Channels,
		Status:     status,
		Error:      errMsg,
		Metadata:   payload.Data,
		CreatedAt:  payload.CreatedAt,
	}
}
