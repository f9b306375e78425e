package model

import "time"

// Audit log actions.
const (
	ActionGrant  = "grant"
	ActionExtend = "extend"
)

// ActionLog is an append-only audit record of a lifecycle action.
// Written on grant and extend, never read by the engine.
type ActionLog struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	UserID    int64     `json:"user_id"`
	AdminID   int64     `json:"admin_id,omitempty"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
