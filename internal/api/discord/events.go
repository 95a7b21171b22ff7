package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/gateway"
	"github.com/bbn-music/community-bot/internal/observability"
)

// Notifier turns gateway events into log channel posts.
type Notifier interface {
	NotifyBan(ctx context.Context, user *discordgo.User, banned bool) error
	NotifyLeave(ctx context.Context, user *discordgo.User) error
	NotifyDirectMessage(ctx context.Context, msg *discordgo.Message) error
	NotifyVoice(ctx context.Context, tag string, before, after domain.VoiceSnapshot) error
}

// EventHandler forwards guild events to a Notifier.
type EventHandler struct {
	gateway  gateway.Gateway
	notifier Notifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewEventHandler wires the notifier to gateway lookups.
func NewEventHandler(gw gateway.Gateway, notifier Notifier, logger *zap.Logger, metrics *observability.Metrics) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{gateway: gw, notifier: notifier, logger: logger, metrics: metrics}
}

// Bind registers the event handlers on session.
func (h *EventHandler) Bind(ctx context.Context, session *discordgo.Session) {
	session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildBanAdd) {
		h.BanChanged(ctx, e.User, true)
	})
	session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildBanRemove) {
		h.BanChanged(ctx, e.User, false)
	})
	session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
		h.MemberLeft(ctx, e.Member)
	})
	session.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageCreate) {
		h.MessageCreated(ctx, e.Message)
	})
	session.AddHandler(func(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) {
		h.VoiceChanged(ctx, e.BeforeUpdate, e.VoiceState)
	})
}

// BanChanged handles a ban or unban.
func (h *EventHandler) BanChanged(ctx context.Context, user *discordgo.User, banned bool) {
	if user == nil {
		return
	}
	name := "ban_remove"
	if banned {
		name = "ban_add"
	}
	h.done(name, h.notifier.NotifyBan(ctx, user, banned))
}

// MemberLeft handles a member leaving the guild.
func (h *EventHandler) MemberLeft(ctx context.Context, member *discordgo.Member) {
	if member == nil || member.User == nil {
		return
	}
	h.done("member_remove", h.notifier.NotifyLeave(ctx, member.User))
}

// MessageCreated mirrors direct messages. Guild messages are ignored.
func (h *EventHandler) MessageCreated(ctx context.Context, msg *discordgo.Message) {
	if msg == nil || msg.GuildID != "" {
		return
	}
	h.done("direct_message", h.notifier.NotifyDirectMessage(ctx, msg))
}

// VoiceChanged handles a voice state update. before is nil when the member
// was not in voice before.
func (h *EventHandler) VoiceChanged(ctx context.Context, before, after *discordgo.VoiceState) {
	if after == nil {
		return
	}
	tag := after.UserID
	if after.Member != nil && after.Member.User != nil {
		tag = gateway.UserTag(after.Member.User)
	}
	err := h.notifier.NotifyVoice(ctx, tag, h.snapshot(ctx, before), h.snapshot(ctx, after))
	h.done("voice_state_update", err)
}

func (h *EventHandler) snapshot(ctx context.Context, vs *discordgo.VoiceState) domain.VoiceSnapshot {
	if vs == nil {
		return domain.VoiceSnapshot{}
	}
	snap := domain.VoiceSnapshot{
		ChannelID: vs.ChannelID,
		Muted:     vs.Mute || vs.SelfMute,
		Deafened:  vs.Deaf || vs.SelfDeaf,
	}
	if vs.ChannelID == "" {
		return snap
	}
	snap.Members = h.gateway.VoiceMemberCount(vs.ChannelID)
	if channel, err := h.gateway.Channel(ctx, vs.ChannelID); err == nil {
		snap.ChannelName = channel.Name
	} else {
		h.logger.Debug("voice channel lookup failed", zap.String("channel_id", vs.ChannelID), zap.Error(err))
	}
	return snap
}

func (h *EventHandler) done(name string, err error) {
	h.metrics.RecordEvent(name)
	if err != nil {
		h.logger.Warn("event notification failed", zap.String("event", name), zap.Error(err))
	}
}
