package main

import (
	"github.com/spf13/cobra"

	discordapi "github.com/bbn-music/community-bot/internal/api/discord"
	"github.com/bbn-music/community-bot/internal/gateway"
)

func newCommandsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "Register the slash commands for the configured guild and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if err := cfg.Validate(); err != nil {
				return err
			}
			session, err := newSession(cfg.Discord)
			if err != nil {
				return err
			}
			if err := session.Open(); err != nil {
				return err
			}
			defer session.Close() //nolint:errcheck

			gw := gateway.NewDiscord(session, cfg.Discord.GuildID, logger)
			_, err = gw.RegisterCommands(cmd.Context(), discordapi.Commands())
			return err
		},
	}
}
