package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/config"
	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/gateway"
)

// isoMillis matches the millisecond ISO-8601 rendering used across log embeds.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// DefaultUserEmbed is the base embed describing a user or bot account.
func DefaultUserEmbed(user *discordgo.User, now time.Time) *discordgo.MessageEmbed {
	kind := "User"
	if user.Bot {
		kind = "Bot"
	}
	created := ""
	if ts, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
		created = ts.UTC().Format(isoMillis)
	}
	avatar := user.AvatarURL("")
	return &discordgo.MessageEmbed{
		Title:  kind,
		Author: &discordgo.MessageEmbedAuthor{Name: gateway.UserTag(user), IconURL: avatar, URL: avatar},
		Fields: []*discordgo.MessageEmbedField{
			{Name: kind + " Creation Time", Value: created, Inline: true},
			{Name: "ID", Value: user.ID, Inline: true},
		},
		Timestamp: now.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: footerText, IconURL: footerIconURL},
		Color:     colorRed,
	}
}

// BanEmbed reports a ban or an unban. An empty reason renders as "Not specified".
func BanEmbed(user *discordgo.User, reason string, banned bool, now time.Time) *discordgo.MessageEmbed {
	embed := DefaultUserEmbed(user, now)
	if banned {
		embed.Title += " banned"
	} else {
		embed.Title += " unbanned"
	}
	if reason == "" {
		reason = "Not specified"
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Reason", Value: reason})
	return embed
}

// LeaveEmbed reports a member leaving the guild.
func LeaveEmbed(user *discordgo.User, now time.Time) *discordgo.MessageEmbed {
	embed := DefaultUserEmbed(user, now)
	embed.Title += " left"
	return embed
}

// PrivateMessageEmbed mirrors a direct message sent to the bot.
func PrivateMessageEmbed(msg *discordgo.Message, now time.Time) *discordgo.MessageEmbed {
	embed := DefaultUserEmbed(msg.Author, now)
	embed.Title = "Private message received"
	embed.Fields[1].Name = "User ID"
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "\u200b", Value: "\u200b", Inline: true},
		&discordgo.MessageEmbedField{Name: "Mention", Value: "<@" + msg.Author.ID + ">", Inline: true},
		&discordgo.MessageEmbedField{Name: "Message ID", Value: msg.ID, Inline: true},
	)
	if len(msg.Attachments) > 0 {
		urls := make([]string, 0, len(msg.Attachments))
		for _, attachment := range msg.Attachments {
			urls = append(urls, attachment.URL)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Attachments", Value: strings.Join(urls, "\n")})
	}
	embed.Description = "```" + msg.Content + "```"
	embed.Color = colorGreen
	return embed
}

// VoiceEmbed reports one voice transition. Channel data comes from the new
// state when connected, otherwise from the old one.
func VoiceEmbed(tag string, transition domain.VoiceTransition, before, after domain.VoiceSnapshot, now time.Time) *discordgo.MessageEmbed {
	current := after
	if !after.InChannel() {
		current = before
	}
	color := colorGreen
	switch {
	case transition == domain.VoiceSwitched:
		color = colorYellow
	case transition.Negative():
		color = colorRed
	}
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s %s", tag, transition),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: current.ChannelName, Inline: true},
			{Name: "Members in Channel", Value: fmt.Sprint(current.Members), Inline: true},
			{Name: "Current Time", Value: now.UTC().Format(isoMillis), Inline: true},
		},
		Color: color,
	}
}

// TicketChannelLocator finds a member's open ticket channel.
type TicketChannelLocator interface {
	OpenChannelFor(ctx context.Context, requesterID string) (*gateway.Channel, error)
}

// NotificationService posts moderation and voice activity to the log channels.
type NotificationService struct {
	gateway gateway.Gateway
	tickets TicketChannelLocator
	cfg     config.DiscordConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Gateway gateway.Gateway
	Tickets TicketChannelLocator
	Config  config.DiscordConfig
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	n := &NotificationService{
		gateway: deps.Gateway,
		tickets: deps.Tickets,
		cfg:     deps.Config,
		logger:  deps.Logger,
		now:     deps.Now,
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// NotifyBan logs a ban or unban with the recorded reason.
func (n *NotificationService) NotifyBan(ctx context.Context, user *discordgo.User, banned bool) error {
	reason := ""
	if banned {
		reason = n.gateway.BanReason(ctx, user.ID)
	}
	return n.send(ctx, n.cfg.LogChannelID, BanEmbed(user, reason, banned, n.now()))
}

// NotifyLeave logs a departure and echoes it into the member's open ticket.
func (n *NotificationService) NotifyLeave(ctx context.Context, user *discordgo.User) error {
	embed := LeaveEmbed(user, n.now())
	err := n.send(ctx, n.cfg.LogChannelID, embed)
	if n.tickets == nil {
		return err
	}
	channel, lookupErr := n.tickets.OpenChannelFor(ctx, user.ID)
	if lookupErr != nil {
		return errors.Join(err, lookupErr)
	}
	if channel != nil {
		err = errors.Join(err, n.send(ctx, channel.ID, embed))
	}
	return err
}

// NotifyDirectMessage mirrors a direct message into the log channel.
func (n *NotificationService) NotifyDirectMessage(ctx context.Context, msg *discordgo.Message) error {
	if msg.Author == nil || msg.Author.Bot {
		return nil
	}
	return n.send(ctx, n.cfg.LogChannelID, PrivateMessageEmbed(msg, n.now()))
}

// NotifyVoice logs every transition between before and after. Entering the
// configured status channel also sets its voice status.
func (n *NotificationService) NotifyVoice(ctx context.Context, tag string, before, after domain.VoiceSnapshot) error {
	var errs []error
	for _, transition := range domain.ClassifyVoice(before, after) {
		errs = append(errs, n.send(ctx, n.cfg.VoiceLogChannelID, VoiceEmbed(tag, transition, before, after, n.now())))
		if n.entersStatusChannel(transition, after) {
			if err := n.gateway.SetVoiceStatus(ctx, after.ChannelID, n.cfg.VoiceStatusText); err != nil {
				errs = append(errs, fmt.Errorf("set voice status: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

func (n *NotificationService) entersStatusChannel(transition domain.VoiceTransition, after domain.VoiceSnapshot) bool {
	if transition != domain.VoiceJoined && transition != domain.VoiceSwitched {
		return false
	}
	return n.cfg.VoiceStatusText != "" && after.ChannelName == n.cfg.VoiceStatusChannelName
}

func (n *NotificationService) send(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	if channelID == "" {
		n.logger.Debug("notification dropped, no channel configured", zap.String("title", embed.Title))
		return nil
	}
	if _, err := n.gateway.SendMessage(ctx, channelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		return fmt.Errorf("send %q to %s: %w", embed.Title, channelID, err)
	}
	return nil
}
