package contact

import "time"

// Contact is one person the agent talks to, keyed by channel plus the
// channel-scoped external id.
type Contact struct {
	ID            string     `json:"id"`
	Channel       string     `json:"channel"`
	ExternalID    string     `json:"external_id"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	BotPaused     bool       `json:"bot_paused"`
	IsStudent     bool       `json:"is_student"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	FollowUpCount int        `json:"follow_up_count"`
	LastContactAt *time.Time `json:"last_contact_at,omitempty"`
	PainPoint     string     `json:"pain_point,omitempty"`
	Maturity      string     `json:"maturity,omitempty"`
	Commitment    string     `json:"commitment,omitempty"`
	LeadTier      string     `json:"lead_tier,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MergeRequest carries a partial update. Nil fields are left untouched.
type MergeRequest struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	BotPaused  *bool   `json:"bot_paused,omitempty"`
	PainPoint  *string `json:"pain_point,omitempty"`
	Maturity   *string `json:"maturity,omitempty"`
	Commitment *string `json:"commitment,omitempty"`
	LeadTier   *string `json:"lead_tier,omitempty"`
}

// ListFilter narrows the admin contact listing.
type ListFilter struct {
	Tier   string
	Paused *bool
	Limit  int
	Offset int
}
