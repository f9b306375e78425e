package model

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is one scheduled expiry notification for a subscriber.
//
// Rows cascade-delete with their subscriber. At most one planning pass
// worth of unsent reminders exists per subscriber at any time; sent
// rows are kept as history.
type Reminder struct {
	ID        uuid.UUID  `json:"id"`
	UserID    int64      `json:"user_id"`
	Kind      string     `json:"kind"`    // e.g. "7_days", "30_minutes", "5_seconds"
	DueAt     time.Time  `json:"due_at"`
	Sent      bool       `json:"sent"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// DueReminder is a due, unsent reminder joined with the subscriber
// display fields the sweep needs to render and address the message.
type DueReminder struct {
	Reminder
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	ValidUntil time.Time `json:"valid_until"`
}
