package domain

import (
	"strings"
	"time"
)

// TicketTier is the support level a ticket is handled at. It is represented
// on the platform by the category the ticket channel sits in.
type TicketTier string

const (
	TierFirstLevel  TicketTier = "first"
	TierSecondLevel TicketTier = "second"
)

const ticketChannelPrefix = "ticket-"

// Ticket is the mapping from a support channel to the member who opened it.
type Ticket struct {
	ID           string
	ChannelID    string
	RequesterID  string
	RequesterTag string
	Reason       string
	Tier         TicketTier
	CreatedAt    time.Time
	ClosedAt     *time.Time
	ClosedBy     *string
}

// IsOpen reports whether the ticket has not been closed yet.
func (t *Ticket) IsOpen() bool {
	return t != nil && t.ClosedAt == nil
}

// TicketChannelName is the display name of a requester's ticket channel.
func TicketChannelName(requesterID string) string {
	return ticketChannelPrefix + requesterID
}

// RequesterFromChannelName recovers the requester id from a ticket channel
// name. Only used for channels that predate the ticket mapping table.
func RequesterFromChannelName(name string) (string, bool) {
	parts := strings.Split(name, "-")
	if len(parts) < 2 || parts[0]+"-" != ticketChannelPrefix || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
