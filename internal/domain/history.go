package domain

import (
	"time"
)

// HistoryEntry records one delivery attempt. Entries are append-only; only
// the status and the delivered/read timestamps change after creation, driven
// by later confirmation events.
type HistoryEntry struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	TemplateID  string         `json:"template_id"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Channels    []string       `json:"channels"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Stats is a point-in-time aggregation over the engine's state.
type Stats struct {
	Total               int     `json:"total"`
	Sent                int     `json:"sent"`
	Failed              int     `json:"failed"`
	SuccessRate         float64 `json:"success_rate"`
	TotalSubscriptions  int     `json:"total_subscriptions"`
	ActiveSubscriptions int     `json:"active_subscriptions"`
	Templates           int     `json:"templates"`
}
