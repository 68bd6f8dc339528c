package types

import "time"

// UserContext is the accumulated per-user interest and interaction
// history used to personalize task processing. Interests only grow
// (union merge) and Interactions never decreases.
type UserContext struct {
	UserID       string                 `json:"user_id"`
	Interests    []string               `json:"interests,omitempty"`
	Interactions int                    `json:"interactions"`
	LastSeen     time.Time              `json:"last_seen"`
	Data         map[string]interface{} `json:"data,omitempty"`
}
