package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/auth"
	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/service"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

func (r *Router) setup(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	if !auth.IsAdministrator(actor) {
		return apperrors.NewUnauthorized("You do not have permission to set up the ticket system.")
	}
	channelID, err := r.community.PostTicketPanel(ctx)
	if err != nil {
		return err
	}
	return r.reply(ctx, i, fmt.Sprintf("Ticket System Setup in <#%s>", channelID), false)
}

func (r *Router) verify(ctx context.Context, i *discordgo.Interaction, _ domain.Actor) error {
	return r.respond(ctx, i, &discordgo.InteractionResponseData{
		Content:    "Which user do you want to verify?",
		Components: service.VerifySelect(),
		Flags:      discordgo.MessageFlagsEphemeral,
	})
}

func (r *Router) toggleVerified(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return apperrors.NewWrongContext("Please select a member.")
	}
	targetID := values[0]

	verified, err := r.community.ToggleVerified(ctx, actor, targetID)
	if err != nil {
		r.logger.Warn("verification toggle failed", zap.String("member_id", targetID), zap.Error(err))
		return r.reply(ctx, i, fmt.Sprintf("An error occured while assigning the role to <@%s>", targetID), false)
	}
	if verified {
		return r.reply(ctx, i, fmt.Sprintf("Successfully verified <@%s>!", targetID), false)
	}
	return r.reply(ctx, i, fmt.Sprintf("Successfully unverified <@%s>!", targetID), false)
}

func (r *Router) lockVoice(lock bool) handlerFunc {
	return func(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
		if err := r.community.LockVoice(ctx, actor.ID, lock); err != nil {
			return err
		}
		if lock {
			return r.reply(ctx, i, "Successfully locked your voice channel!", true)
		}
		return r.reply(ctx, i, "Successfully unlocked your voice channel!", true)
	}
}
