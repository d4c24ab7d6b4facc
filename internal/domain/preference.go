package domain

import (
	"fmt"
	"time"
)

// Preferences holds one user's notification settings: a toggle per event
// category, a toggle per outbound channel, and an optional quiet-hours window.
// The in-app channel has no toggle on purpose: it is the baseline feed and is
// always permitted.
type Preferences struct {
	UserID string `json:"user_id"`

	OrderUpdates    bool `json:"order_updates"`
	DeliveryUpdates bool `json:"delivery_updates"`
	PaymentUpdates  bool `json:"payment_updates"`
	SystemAlerts    bool `json:"system_alerts"`
	Promotions      bool `json:"promotions"`

	PushEnabled  bool `json:"push_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
	EmailEnabled bool `json:"email_enabled"`

	QuietHours QuietHours `json:"quiet_hours"`

	UpdatedAt time.Time `json:"updated_at"`
}

// QuietHours is a user-local time window during which only urgent
// notifications are delivered immediately. Start and End are "HH:MM" clock
// times; a window with Start > End spans midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// DefaultPreferences returns the record synthesized for a user with no stored
// preferences: every category and channel enabled, quiet hours disabled.
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:          userID,
		OrderUpdates:    true,
		DeliveryUpdates: true,
		PaymentUpdates:  true,
		SystemAlerts:    true,
		Promotions:      true,
		PushEnabled:     true,
		SMSEnabled:      true,
		EmailEnabled:    true,
		QuietHours:      QuietHours{Enabled: false, Start: "22:00", End: "08:00"},
		UpdatedAt:       time.Now().UTC(),
	}
}

// CategoryEnabled reports whether notifications of the given event category
// are enabled. Unknown categories are enabled so that new categories do not
// silently drop messages for existing preference records.
func (p *Preferences) CategoryEnabled(category string) bool {
	switch category {
	case CategoryOrder:
		return p.OrderUpdates
	case CategoryDelivery:
		return p.DeliveryUpdates
	case CategoryPayment:
		return p.PaymentUpdates
	case CategorySystem:
		return p.SystemAlerts
	case CategoryPromotion:
		return p.Promotions
	default:
		return true
	}
}

// ChannelEnabled reports whether the given delivery channel is enabled.
// The in-app channel is always permitted regardless of user settings.
func (p *Preferences) ChannelEnabled(channel string) bool {
	switch channel {
	case ChannelPush:
		return p.PushEnabled
	case ChannelSMS:
		return p.SMSEnabled
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelInApp:
		return true
	default:
		return false
	}
}

// PreferenceUpdate is a partial preference change. Nil fields are left
// untouched by Apply.
type PreferenceUpdate struct {
	OrderUpdates    *bool `json:"order_updates,omitempty"`
	DeliveryUpdates *bool `json:"delivery_updates,omitempty"`
	PaymentUpdates  *bool `json:"payment_updates,omitempty"`
	SystemAlerts    *bool `json:"system_alerts,omitempty"`
	Promotions      *bool `json:"promotions,omitempty"`

	PushEnabled  *bool `json:"push_enabled,omitempty"`
	SMSEnabled   *bool `json:"sms_enabled,omitempty"`
	EmailEnabled *bool `json:"email_enabled,omitempty"`

	QuietHoursEnabled *bool   `json:"quiet_hours_enabled,omitempty"`
	QuietHoursStart   *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd     *string `json:"quiet_hours_end,omitempty"`
}

// Validate checks that any quiet-hours clock times in the update parse as
// "HH:MM".
func (u *PreferenceUpdate) Validate() error {
	if u.QuietHoursStart != nil {
		if _, err := parseClock(*u.QuietHoursStart); err != nil {
			return fmt.Errorf("quiet hours start: %w", err)
		}
	}
	if u.QuietHoursEnd != nil {
		if _, err := parseClock(*u.QuietHoursEnd); err != nil {
			return fmt.Errorf("quiet hours end: %w", err)
		}
	}
	return nil
}

// Apply merges the non-nil fields of the update into the preferences.
func (p *Preferences) Apply(u PreferenceUpdate) {
	if u.OrderUpdates != nil {
		p.OrderUpdates = *u.OrderUpdates
	}
	if u.DeliveryUpdates != nil {
		p.DeliveryUpdates = *u.DeliveryUpdates
	}
	if u.PaymentUpdates != nil {
		p.PaymentUpdates = *u.PaymentUpdates
	}
	if u.SystemAlerts != nil {
		p.SystemAlerts = *u.SystemAlerts
	}
	if u.Promotions != nil {
		p.Promotions = *u.Promotions
	}
	if u.PushEnabled != nil {
		p.PushEnabled = *u.PushEnabled
	}
	if u.SMSEnabled != nil {
		p.SMSEnabled = *u.SMSEnabled
	}
	if u.EmailEnabled != nil {
		p.EmailEnabled = *u.EmailEnabled
	}
	if u.QuietHoursEnabled != nil {
		p.QuietHours.Enabled = *u.QuietHoursEnabled
	}
	if u.QuietHoursStart != nil {
		p.QuietHours.Start = *u.QuietHoursStart
	}
	if u.QuietHoursEnd != nil {
		p.QuietHours.End = *u.QuietHoursEnd
	}
	p.UpdatedAt = time.Now().UTC()
}

// Active reports whether the given instant falls inside the quiet-hours
// window. A window whose start is later than its end spans midnight:
// quiet when now >= start or now <= end. Otherwise quiet when
// start <= now <= end. Both boundaries are inclusive. A disabled or
// malformed window is never active.
func (q QuietHours) Active(now time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, err := parseClock(q.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(q.End)
	if err != nil {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	if start > end {
		return minute >= start || minute <= end
	}
	return minute >= start && minute <= end
}

// NextActive returns the instant delivery should resume: today at the window's
// end time if that is still ahead of now, otherwise tomorrow at the end time.
func (q QuietHours) NextActive(now time.Time) time.Time {
	end, err := parseClock(q.End)
	if err != nil {
		return now
	}
	resume := time.Date(now.Year(), now.Month(), now.Day(), end/60, end%60, 0, 0, now.Location())
	if resume.After(now) {
		return resume
	}
	return resume.AddDate(0, 0, 1)
}

// parseClock parses an "HH:MM" clock time into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
