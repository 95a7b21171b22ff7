package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/bbn-music/community-bot/internal/auth"
	"github.com/bbn-music/community-bot/internal/domain"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

const missingAccountMessage = "We couldn't find the account in our database"

func (r *Router) linkAccountMessage() string {
	return fmt.Sprintf("We couldn't find your account. Please [log in via Discord here](<%s>)", r.cfg.AccountLinkURL)
}

func (r *Router) daily(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	reward, err := r.ledger.ClaimDaily(ctx, actor.ID, auth.IsElevated(actor, r.cfg))
	if errors.Is(err, apperrors.ErrNotFound) {
		return r.reply(ctx, i, r.linkAccountMessage(), false)
	}
	if err != nil {
		return err
	}
	return r.reply(ctx, i, fmt.Sprintf("You have received %d coins as your daily reward!", reward), false)
}

func (r *Router) balance(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	data := i.ApplicationCommandData()
	targetID := actor.ID
	if opt, ok := optionMap(data.Options)[optionUser]; ok {
		if !auth.IsAdministrator(actor) {
			return apperrors.NewUnauthorized("You do not have permission to view other users' balances.")
		}
		targetID, _ = mentionedUser(data, opt)
	}

	coins, err := r.ledger.GetBalance(ctx, targetID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return r.reply(ctx, i, r.linkAccountMessage(), false)
	}
	if err != nil {
		return err
	}
	return r.reply(ctx, i, fmt.Sprintf("You currently have %d coins.", coins), false)
}

func (r *Router) addCoins(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	if !auth.IsAdministrator(actor) {
		return apperrors.NewUnauthorized("You do not have permission to add coins.")
	}
	targetID, name, amount, err := coinArgs(i)
	if err != nil {
		return err
	}
	if _, err := r.ledger.AddCoins(ctx, targetID, amount); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return r.reply(ctx, i, missingAccountMessage, false)
		}
		return err
	}
	return r.reply(ctx, i, fmt.Sprintf("Added %d coins to %s's balance.", amount, name), false)
}

func (r *Router) removeCoins(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error {
	if !auth.IsAdministrator(actor) {
		return apperrors.NewUnauthorized("You do not have permission to remove coins.")
	}
	targetID, name, amount, err := coinArgs(i)
	if err != nil {
		return err
	}
	if _, err := r.ledger.RemoveCoins(ctx, targetID, amount); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return r.reply(ctx, i, missingAccountMessage, false)
		}
		return err
	}
	return r.reply(ctx, i, fmt.Sprintf("Removed %d coins from %s's balance.", amount, name), false)
}

func coinArgs(i *discordgo.Interaction) (targetID, name string, amount int64, err error) {
	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)
	userOpt, okUser := opts[optionUser]
	coinOpt, okCoins := opts[optionCoins]
	if !okUser || !okCoins {
		return "", "", 0, apperrors.NewWrongContext("Please provide a user and an amount of coins.")
	}
	amount = coinOpt.IntValue()
	if amount <= 0 {
		return "", "", 0, apperrors.NewWrongContext("The amount of coins must be positive.")
	}
	targetID, name = mentionedUser(data, userOpt)
	return targetID, name, amount, nil
}
