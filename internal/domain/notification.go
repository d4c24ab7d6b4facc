package domain

import (
	"time"
)

// Delivery channel constants.
const (
	ChannelPush  = "push"
	ChannelSMS   = "sms"
	ChannelEmail = "email"
	ChannelInApp = "in_app"
)

// Event category constants.
const (
	CategoryOrder     = "order"
	CategoryDelivery  = "delivery"
	CategoryPayment   = "payment"
	CategorySystem    = "system"
	CategoryPromotion = "promotion"
)

// Notification priority constants.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Delivery status constants.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// TemplateIDCustom is the template id recorded for ad hoc, non-templated sends.
const TemplateIDCustom = "custom"

// DefaultExpiry is how long a payload stays deliverable after creation.
const DefaultExpiry = 24 * time.Hour

// Payload is a fully resolved notification instance about to be delivered.
// It is transient: constructed by the dispatcher, possibly deferred for quiet
// hours, then consumed and discarded.
type Payload struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	TemplateID  string         `json:"template_id"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	ActionURL   string         `json:"action_url,omitempty"`
	Priority    string         `json:"priority"`
	Channels    []string       `json:"channels"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	ExpiresAt   time.Time      `json:"expires_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Expired reports whether the payload is past its expiry at the given instant.
func (p *Payload) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// SendOverrides carries optional per-send adjustments to a templated
// notification. Nil slices and empty strings mean "use the template default".
type SendOverrides struct {
	Channels  []string       `json:"channels,omitempty"`
	Priority  string         `json:"priority,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	ImageURL  string         `json:"image_url,omitempty"`
	ActionURL string         `json:"action_url,omitempty"`
}

// Notification is a durable in-app notification record, written by the in-app
// channel adapter and read back by the user's inbox.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

// ValidChannels returns the set of valid delivery channels.
func ValidChannels() []string {
	return []string{ChannelPush, ChannelSMS, ChannelEmail, ChannelInApp}
}

// IsValidChannel checks whether the given string is a valid delivery channel.
func IsValidChannel(channel string) bool {
	for _, c := range ValidChannels() {
		if c == channel {
			return true
		}
	}
	return false
}

// ValidCategories returns the set of valid event categories.
func ValidCategories() []string {
	return []string{CategoryOrder, CategoryDelivery, CategoryPayment, CategorySystem, CategoryPromotion}
}

// IsValidCategory checks whether the given string is a valid event category.
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories() {
		if c == category {
			return true
		}
	}
	return false
}

// ValidPriorities returns the set of valid notification priorities.
func ValidPriorities() []string {
	return []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// IsValidPriority checks whether the given string is a valid notification priority.
func IsValidPriority(priority string) bool {
	for _, p := range ValidPriorities() {
		if p == priority {
			return true
		}
	}
	return false
}

// ValidStatuses returns the set of valid delivery statuses.
func ValidStatuses() []string {
	return []string{StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusExpired}
}

// IsValidStatus checks whether the given string is a valid delivery status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
