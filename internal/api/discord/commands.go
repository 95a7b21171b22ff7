package discord

import (
	"github.com/bwmarrin/discordgo"
)

// Slash command names.
const (
	CommandSetup       = "setup"
	CommandEscalate    = "escalate"
	CommandDeescalate  = "deescalate"
	CommandVerify      = "verify"
	CommandDaily       = "daily"
	CommandBalance     = "balance"
	CommandAddCoins    = "addcoins"
	CommandRemoveCoins = "removecoins"
	CommandSteam       = "steam"
)

// Option names.
const (
	optionUser        = "user"
	optionCoins       = "coins"
	optionAccessToken = "accesstoken"
	optionWebToken    = "webtoken"
)

// Commands returns the slash command definitions registered for the guild.
func Commands() []*discordgo.ApplicationCommand {
	admin := int64(discordgo.PermissionAdministrator)
	manageRoles := int64(discordgo.PermissionManageRoles)
	minCoins := float64(1)

	coinOptions := []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionMentionable, Name: optionUser, Description: "The member", Required: true},
		{Type: discordgo.ApplicationCommandOptionInteger, Name: optionCoins, Description: "Amount of coins", Required: true, MinValue: &minCoins},
	}

	return []*discordgo.ApplicationCommand{
		{Name: CommandSetup, Description: "Post the ticket support panel", DefaultMemberPermissions: &admin},
		{Name: CommandEscalate, Description: "Escalate this ticket to second-level support"},
		{Name: CommandDeescalate, Description: "Hand this ticket back to first-level support"},
		{Name: CommandVerify, Description: "Verify or unverify a member", DefaultMemberPermissions: &manageRoles},
		{Name: CommandDaily, Description: "Claim your daily coins"},
		{
			Name:        CommandBalance,
			Description: "Show a coin balance",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionMentionable, Name: optionUser, Description: "Whose balance to show"},
			},
		},
		{Name: CommandAddCoins, Description: "Add coins to a member", DefaultMemberPermissions: &admin, Options: coinOptions},
		{Name: CommandRemoveCoins, Description: "Remove coins from a member", DefaultMemberPermissions: &admin, Options: coinOptions},
		{
			Name:        CommandSteam,
			Description: "Show stats about your Steam family library",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: optionAccessToken, Description: "Steam store access token", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: optionWebToken, Description: "Steam Web API key, resolves persona names"},
			},
		},
	}
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}

// mentionedUser resolves a mentionable option to the user id and display name.
func mentionedUser(data discordgo.ApplicationCommandInteractionData, opt *discordgo.ApplicationCommandInteractionDataOption) (id, name string) {
	id, _ = opt.Value.(string)
	name = id
	if data.Resolved != nil {
		if u, ok := data.Resolved.Users[id]; ok && u != nil {
			name = u.Username
		}
	}
	return id, name
}
