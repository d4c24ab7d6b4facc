package domain

import (
	"time"
)

// PushSubscription is a registered device or browser push endpoint. Identity
// is the (UserID, Endpoint) pair: re-registering an existing endpoint updates
// the record instead of duplicating it.
type PushSubscription struct {
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	UserAgent string    `json:"user_agent,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
