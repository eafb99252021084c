package interaction

import "time"

const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Interaction is one stored message in a contact's conversation.
type Interaction struct {
	ID         string    `json:"id"`
	ContactID  string    `json:"contact_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	NeedsHuman bool      `json:"needs_human"`
	CreatedAt  time.Time `json:"created_at"`
}

// Turn is one entry of the normalized history handed to the engine.
// Role is "user" or "model".
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
