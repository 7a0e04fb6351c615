package types

import "time"

// Event is one immutable audit-trail entry. Extra carries structured
// context (ids, counts) beyond the human-readable description.
type Event struct {
	EventID     string         `json:"event_id"`
	Kind        string         `json:"kind"`
	Actor       string         `json:"actor"`
	Description string         `json:"description"`
	Extra       map[string]any `json:"extra,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
