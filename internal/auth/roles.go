package auth

import (
	"github.com/bwmarrin/discordgo"

	"github.com/bbn-music/community-bot/internal/config"
	"github.com/bbn-music/community-bot/internal/domain"
)

// IsAdministrator reports whether the actor's resolved permissions include
// the Administrator bit.
func IsAdministrator(actor domain.Actor) bool {
	return actor.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator
}

// IsSupport reports whether the actor holds any configured support role.
func IsSupport(actor domain.Actor, cfg config.DiscordConfig) bool {
	return actor.HasAnyRole(cfg.SupportRoleIDs)
}

// IsElevated reports whether the actor earns the boosted daily reward:
// a server booster or a holder of the primary support role.
func IsElevated(actor domain.Actor, cfg config.DiscordConfig) bool {
	if actor.PremiumSince != nil {
		return true
	}
	return cfg.SupportRoleID != "" && actor.HasRole(cfg.SupportRoleID)
}
