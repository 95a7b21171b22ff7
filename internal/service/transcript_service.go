package service

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/gateway"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

// TranscriptPageSize is the largest page the platform returns per history request.
const TranscriptPageSize = 100

// TranscriptService captures the message history of a channel.
type TranscriptService struct {
	gateway  gateway.Gateway
	pageSize int
	logger   *zap.Logger
}

// NewTranscriptService constructs the collector.
func NewTranscriptService(gw gateway.Gateway, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{gateway: gw, pageSize: TranscriptPageSize, logger: logger}
}

// Collect returns every message of the channel, oldest first. Pages arrive
// newest first and are requested one at a time, each anchored before the
// oldest message seen so far. A short or empty page ends the walk.
func (s *TranscriptService) Collect(ctx context.Context, channelID string) ([]domain.TranscriptMessage, error) {
	var (
		collected []*discordgo.Message
		before    string
	)
	for {
		page, err := s.gateway.MessagesBefore(ctx, channelID, s.pageSize, before)
		if err != nil {
			return nil, apperrors.NewCollectionError(err)
		}
		collected = append(collected, page...)
		if len(page) < s.pageSize {
			break
		}
		before = page[len(page)-1].ID
	}

	out := make([]domain.TranscriptMessage, 0, len(collected))
	for i := len(collected) - 1; i >= 0; i-- {
		out = append(out, s.toTranscriptMessage(collected[i]))
	}
	s.logger.Debug("transcript collected", zap.String("channel_id", channelID), zap.Int("messages", len(out)))
	return out, nil
}

func (s *TranscriptService) toTranscriptMessage(msg *discordgo.Message) domain.TranscriptMessage {
	record := domain.TranscriptMessage{
		Content:   msg.Content,
		Timestamp: msg.Timestamp.UnixMilli(),
	}
	if msg.Author != nil {
		record.AuthorID = msg.Author.ID
		record.Author = gateway.UserTag(msg.Author)
		record.Avatar = msg.Author.AvatarURL("")
	}
	for _, attachment := range msg.Attachments {
		record.Attachments = append(record.Attachments, attachment.URL)
	}
	if len(msg.Embeds) > 0 {
		raw, err := json.Marshal(msg.Embeds[0])
		if err != nil {
			s.logger.Warn("embed not archived", zap.String("message_id", msg.ID), zap.Error(err))
		} else {
			record.Embed = raw
		}
	}
	return record
}
