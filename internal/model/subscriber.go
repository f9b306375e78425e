package model

import "time"

// Subscriber statuses. No other states exist: an expired subscriber
// is revived only by an extension or a fresh grant.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Subscriber represents one access grant to the gated channel.
type Subscriber struct {
	UserID     int64     `json:"user_id"`     // Telegram user ID, unique
	Username   string    `json:"username"`    // display fields, opaque to the engine
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	ValidFrom  time.Time `json:"valid_from"`  // start of the current window
	ValidUntil time.Time `json:"valid_until"` // end of the current window
	Status     string    `json:"status"`      // "active" or "expired"
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
