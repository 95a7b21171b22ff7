package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/domain"
)

const steamFailureMessage = "An error occurred while fetching the shared AppIDs."

// steamStats acknowledges immediately and posts the report to the channel,
// since the upstream calls can outlast the interaction deadline.
func (r *Router) steamStats(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	opts := optionMap(i.ApplicationCommandData().Options)
	var accessToken, webKey string
	if opt, ok := opts[optionAccessToken]; ok {
		accessToken = opt.StringValue()
	}
	if opt, ok := opts[optionWebToken]; ok {
		webKey = opt.StringValue()
	}
	if accessToken == "" {
		return r.reply(ctx, i, "Please provide a valid access token.", true)
	}

	if err := r.reply(ctx, i, "Fetching shared AppIDs...", true); err != nil {
		return err
	}

	stats, err := r.steam.FamilyStats(ctx, accessToken, webKey)
	if err != nil {
		r.logger.Warn("steam family stats failed", zap.String("user_id", actor.ID), zap.Error(err))
		r.notifyChannel(ctx, i.ChannelID, steamFailureMessage)
		return nil
	}
	r.notifyChannel(ctx, i.ChannelID, stats.Report(actor.ID))
	return nil
}
