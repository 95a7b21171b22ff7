package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated TicketChangeType = "CREATED"
	ChangeTypeTier    TicketChangeType = "TIER_CHANGE"
	ChangeTypeClosed  TicketChangeType = "CLOSED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          string           `json:"id"`
	TicketID    string           `json:"ticket_id"`
	ChangedByID string           `json:"changed_by_id"`
	ChangeType  TicketChangeType `json:"change_type"`
	OldValue    map[string]any   `json:"old_value,omitempty"`
	NewValue    map[string]any   `json:"new_value,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
