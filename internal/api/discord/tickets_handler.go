package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/service"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

const archiveFailedMessage = "> The transcript could not be archived, so the ticket stays open. Please try again."

func (r *Router) showTicketModal(ctx context.Context, i *discordgo.Interaction, _ domain.Actor) error {
	return r.gateway.Respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: service.TicketModal(),
	})
}

func (r *Router) submitTicket(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	reason := modalValue(i.ModalSubmitData(), service.CustomIDTicketReason)

	result, err := r.tickets.RequestCreation(ctx, actor, reason)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCreationFailed) {
			return err
		}
		r.logger.Error("ticket creation failed", zap.String("user_id", actor.ID), zap.Error(err))
		return r.reply(ctx, i, "> "+apperrors.ToDomainError(err).Message, true)
	}

	var content string
	switch {
	case result.Busy:
		content = "> Your ticket is already being created. Please wait a moment."
	case result.Existing:
		content = fmt.Sprintf("> You already have a ticket here: <#%s>", result.ChannelID)
	default:
		content = fmt.Sprintf("> Successfully created your ticket here: <#%s>", result.ChannelID)
	}
	return r.reply(ctx, i, content, true)
}

// closeTicket acknowledges first; the outcome of the close itself is reported
// in the channel because the interaction is already answered.
func (r *Router) closeTicket(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	ack := "> We're closing your ticket. Please be patient. Ticket closed by " + actor.Tag
	if err := r.reply(ctx, i, ack, false); err != nil {
		return err
	}

	result, err := r.tickets.Close(ctx, actor, i.ChannelID)
	if err != nil {
		r.logger.Warn("ticket close failed", zap.String("channel_id", i.ChannelID), zap.Error(err))
		r.notifyChannel(ctx, i.ChannelID, closeFailureMessage(err))
		return nil
	}
	r.logger.Info("ticket closed",
		zap.String("channel_id", i.ChannelID),
		zap.String("transcript_id", result.TranscriptID),
		zap.Int("messages", result.Messages))
	return nil
}

func closeFailureMessage(err error) string {
	domainErr := apperrors.ToDomainError(err)
	switch domainErr.Code {
	case apperrors.CodeCollectionFailed:
		return archiveFailedMessage
	case apperrors.CodeWrongContext:
		return domainErr.Message
	}
	return genericFailure
}

func (r *Router) escalate(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	if err := r.tickets.Escalate(ctx, actor, i.ChannelID); err != nil {
		return err
	}
	return r.respond(ctx, i, &discordgo.InteractionResponseData{
		Content:         fmt.Sprintf("Ticket escalated. || <@&%s>", r.cfg.OwnerRoleID),
		AllowedMentions: &discordgo.MessageAllowedMentions{Roles: []string{r.cfg.OwnerRoleID}},
	})
}

func (r *Router) deescalate(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	if err := r.tickets.Deescalate(ctx, actor, i.ChannelID); err != nil {
		return err
	}
	return r.respond(ctx, i, &discordgo.InteractionResponseData{
		Content:         fmt.Sprintf("Ticket deescalated. || <@&%s>", r.cfg.SupportRoleID),
		AllowedMentions: &discordgo.MessageAllowedMentions{Roles: []string{r.cfg.SupportRoleID}},
	})
}

func (r *Router) notifyChannel(ctx context.Context, channelID, content string) {
	if _, err := r.gateway.SendMessage(ctx, channelID, &discordgo.MessageSend{Content: content}); err != nil {
		r.logger.Warn("channel notice failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}
