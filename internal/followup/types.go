package followup

import "time"

const (
	TriggerInactivity = "inactivity"

	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// Task is one scheduled follow-up nudge. At most one pending task exists per
// (contact, trigger type); rescheduling moves its deadline.
type Task struct {
	ID          string    `json:"id"`
	ContactID   string    `json:"contact_id"`
	TriggerType string    `json:"trigger_type"`
	TriggerAt   time.Time `json:"trigger_at"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
}
