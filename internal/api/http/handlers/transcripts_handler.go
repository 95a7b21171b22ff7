package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/bbn-music/community-bot/internal/domain"
)

// TranscriptReader loads archived transcripts.
type TranscriptReader interface {
	GetByID(ctx context.Context, id string) (*domain.Transcript, error)
}

// HistoryReader lists the audit trail of a ticket, oldest first.
type HistoryReader interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

// TranscriptsHandler serves archived ticket transcripts.
type TranscriptsHandler struct {
	transcripts TranscriptReader
	history     HistoryReader
}

// NewTranscriptsHandler constructs handler. history may be nil, in which case
// responses carry no history.
func NewTranscriptsHandler(transcripts TranscriptReader, history HistoryReader) *TranscriptsHandler {
	return &TranscriptsHandler{transcripts: transcripts, history: history}
}

// GetTranscript GET /transcripts/:id. Transcripts of mapped tickets include
// the ticket's history.
func (h *TranscriptsHandler) GetTranscript(c *fiber.Ctx) error {
	transcript, err := h.transcripts.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	history := []domain.TicketHistory{}
	if h.history != nil && transcript.TicketID != nil {
		entries, err := h.history.ListByTicket(c.UserContext(), *transcript.TicketID)
		if err != nil {
			return err
		}
		if entries != nil {
			history = entries
		}
	}
	return c.JSON(fiber.Map{"data": transcript, "history": history})
}
