package events

import (
	"time"

	"github.com/bbn-music/community-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketRecovered   EventType = "ticket_recovered"
	EventTicketEscalated   EventType = "ticket_escalated"
	EventTicketDeescalated EventType = "ticket_deescalated"
	EventTicketClosed      EventType = "ticket_closed"
	EventCoinsChanged      EventType = "coins_changed"
	EventDailyClaimed      EventType = "daily_claimed"
	EventMemberVerified    EventType = "member_verified"
)

// AllEventTypes lists every type, used by sinks that forward everything.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketRecovered,
	EventTicketEscalated,
	EventTicketDeescalated,
	EventTicketClosed,
	EventCoinsChanged,
	EventDailyClaimed,
	EventMemberVerified,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketOpenedPayload is carried by created and recovered events.
type TicketOpenedPayload struct {
	ChannelID   string `json:"channel_id"`
	RequesterID string `json:"requester_id"`
	Reason      string `json:"reason"`
}

// TicketTierChangedPayload payload.
type TicketTierChangedPayload struct {
	ChannelID string            `json:"channel_id"`
	OldTier   domain.TicketTier `json:"old_tier"`
	NewTier   domain.TicketTier `json:"new_tier"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	ChannelID    string `json:"channel_id"`
	RequesterID  string `json:"requester_id"`
	TranscriptID string `json:"transcript_id,omitempty"`
	Messages     int    `json:"messages"`
	ArchiveError string `json:"archive_error,omitempty"`
}

// CoinsChangedPayload payload.
type CoinsChangedPayload struct {
	Delta   int64 `json:"delta"`
	Balance int64 `json:"balance"`
}

// DailyClaimedPayload payload.
type DailyClaimedPayload struct {
	Reward   int64 `json:"reward"`
	Elevated bool  `json:"elevated"`
	Balance  int64 `json:"balance"`
}

// MemberVerifiedPayload payload.
type MemberVerifiedPayload struct {
	Verified bool `json:"verified"`
}
