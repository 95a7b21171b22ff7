package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

// Discord implements Gateway on a discordgo session.
type Discord struct {
	session *discordgo.Session
	guildID string
	logger  *zap.Logger
}

// NewDiscord wraps session for the guild with id guildID.
func NewDiscord(session *discordgo.Session, guildID string, logger *zap.Logger) *Discord {
	return &Discord{session: session, guildID: guildID, logger: logger}
}

// Session exposes the underlying session for handler registration.
func (d *Discord) Session() *discordgo.Session {
	return d.session
}

func (d *Discord) Channel(ctx context.Context, channelID string) (*Channel, error) {
	ch, err := d.session.State.Channel(channelID)
	if err != nil || ch == nil {
		ch, err = d.session.Channel(channelID, discordgo.WithContext(ctx))
	}
	if err != nil {
		return nil, translate(err, "channel", channelID)
	}
	return toChannel(ch), nil
}

func (d *Discord) FindChannelByName(ctx context.Context, name string) (*Channel, error) {
	channels, err := d.session.GuildChannels(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == name {
			return toChannel(ch), nil
		}
	}
	return nil, apperrors.NewNotFound("channel", map[string]any{"name": name})
}

func (d *Discord) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return d.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
}

func (d *Discord) MessagesBefore(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	return d.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
}

func (d *Discord) CreateTextChannel(ctx context.Context, spec ChannelSpec) (*Channel, error) {
	ch, err := d.session.GuildChannelCreateComplex(d.guildID, discordgo.GuildChannelCreateData{
		Name:     spec.Name,
		Type:     discordgo.ChannelTypeGuildText,
		Topic:    spec.Topic,
		ParentID: spec.ParentID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return toChannel(ch), nil
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := d.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

// SetChannelParent moves the channel. Only parent_id is sent, so the channel's
// permission overwrites are left as they are.
func (d *Discord) SetChannelParent(ctx context.Context, channelID, parentID string) error {
	_, err := d.session.ChannelEdit(channelID, &discordgo.ChannelEdit{
		ParentID: parentID,
	}, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) GrantView(ctx context.Context, channelID, userID string) error {
	return d.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember,
		discordgo.PermissionViewChannel, 0, discordgo.WithContext(ctx))
}

func (d *Discord) SetVoiceStatus(ctx context.Context, channelID, status string) error {
	endpoint := discordgo.EndpointChannel(channelID)
	_, err := d.session.RequestWithBucketID(http.MethodPut, endpoint+"/voice-status",
		map[string]string{"status": status}, endpoint, discordgo.WithContext(ctx))
	return err
}

// SetUserLimit patches user_limit directly; the typed ChannelEdit omits zero.
func (d *Discord) SetUserLimit(ctx context.Context, channelID string, limit int) error {
	endpoint := discordgo.EndpointChannel(channelID)
	_, err := d.session.RequestWithBucketID(http.MethodPatch, endpoint,
		map[string]int{"user_limit": limit}, endpoint, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) Member(ctx context.Context, userID string) (*discordgo.Member, error) {
	member, err := d.session.State.Member(d.guildID, userID)
	if err == nil && member != nil {
		return member, nil
	}
	member, err = d.session.GuildMember(d.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, "member", userID)
	}
	return member, nil
}

func (d *Discord) AddRole(ctx context.Context, userID, roleID string) error {
	return d.session.GuildMemberRoleAdd(d.guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (d *Discord) RemoveRole(ctx context.Context, userID, roleID string) error {
	return d.session.GuildMemberRoleRemove(d.guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (d *Discord) VoiceChannelOf(_ context.Context, userID string) (string, error) {
	vs, err := d.session.State.VoiceState(d.guildID, userID)
	if err != nil {
		if errors.Is(err, discordgo.ErrStateNotFound) {
			return "", nil
		}
		return "", err
	}
	return vs.ChannelID, nil
}

func (d *Discord) VoiceMemberCount(channelID string) int {
	guild, err := d.session.State.Guild(d.guildID)
	if err != nil {
		return 0
	}
	d.session.State.RLock()
	defer d.session.State.RUnlock()
	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			count++
		}
	}
	return count
}

func (d *Discord) BanReason(ctx context.Context, userID string) string {
	ban, err := d.session.GuildBan(d.guildID, userID, discordgo.WithContext(ctx))
	if err != nil || ban == nil {
		if err != nil {
			d.logger.Debug("ban lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return ""
	}
	return ban.Reason
}

func (d *Discord) Respond(ctx context.Context, interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return d.session.InteractionRespond(interaction, resp, discordgo.WithContext(ctx))
}

// RegisterCommands replaces the guild's slash commands with cmds.
func (d *Discord) RegisterCommands(ctx context.Context, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	appID := d.session.State.User.ID
	registered, err := d.session.ApplicationCommandBulkOverwrite(appID, d.guildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	d.logger.Info("slash commands registered", zap.Int("count", len(registered)), zap.String("guild_id", d.guildID))
	return registered, nil
}

func toChannel(ch *discordgo.Channel) *Channel {
	return &Channel{
		ID:       ch.ID,
		GuildID:  ch.GuildID,
		Name:     ch.Name,
		ParentID: ch.ParentID,
		Type:     ch.Type,
	}
}

func translate(err error, resource, id string) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
