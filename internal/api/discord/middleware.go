package discord

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/observability"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

const genericFailure = "Something went wrong while handling this request. Please try again later."

// serve runs handler and turns panics and returned errors into an ephemeral
// reply, mirroring the HTTP error middleware.
func (r *Router) serve(ctx context.Context, kind, name string, i *discordgo.Interaction, handler handlerFunc) {
	start := time.Now()
	actor := actorOf(i)
	var err error
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic recovered",
				zap.String("kind", kind),
				zap.String("name", name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			err = apperrors.NewInternalError(nil)
		}

		outcome := observability.OutcomeOK
		if err != nil {
			domainErr := apperrors.ToDomainError(err)
			outcome = outcomeFor(domainErr)
			r.metrics.RecordError(routeKey(kind, name), "interaction", domainErr.Code)
			if outcome == observability.OutcomeFailed {
				r.logger.Error("interaction failed",
					zap.String("kind", kind),
					zap.String("name", name),
					zap.String("user_id", actor.ID),
					zap.Error(err))
			}
			if replyErr := r.reply(ctx, i, userMessage(domainErr), true); replyErr != nil {
				r.logger.Warn("error reply failed", zap.String("name", name), zap.Error(replyErr))
			}
		}
		r.metrics.RecordInteraction(kind, name, outcome, time.Since(start))
	}()
	err = handler(ctx, i, actor)
}

func outcomeFor(err *apperrors.DomainError) string {
	if err.HTTPStatus >= 500 {
		return observability.OutcomeFailed
	}
	return observability.OutcomeRejected
}

func userMessage(err *apperrors.DomainError) string {
	if err.HTTPStatus >= 500 && !errors.Is(err, apperrors.ErrCreationFailed) {
		return genericFailure
	}
	return err.Message
}

func (r *Router) reply(ctx context.Context, i *discordgo.Interaction, content string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.respond(ctx, i, data)
}

func (r *Router) respond(ctx context.Context, i *discordgo.Interaction, data *discordgo.InteractionResponseData) error {
	return r.gateway.Respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}
