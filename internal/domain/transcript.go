package domain

import (
	"encoding/json"
	"time"
)

// TranscriptMessage is one archived message of a ticket channel.
type TranscriptMessage struct {
	AuthorID    string          `json:"authorid"`
	Author      string          `json:"author"`
	Content     string          `json:"content"`
	Timestamp   int64           `json:"timestamp"`
	Avatar      string          `json:"avatar"`
	Attachments []string        `json:"attachments,omitempty"`
	Embed       json.RawMessage `json:"embed,omitempty"`
}

// Transcript is the immutable snapshot taken when a ticket closes.
// Messages are ordered oldest first.
type Transcript struct {
	ID        string              `json:"id"`
	TicketID  *string             `json:"ticket_id,omitempty"`
	ChannelID string              `json:"channel_id"`
	Messages  []TranscriptMessage `json:"messages"`
	Closed    string              `json:"closed"`
	With      string              `json:"with"`
	CreatedAt time.Time           `json:"created_at"`
}
