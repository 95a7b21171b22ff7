package gateway

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/bbn-music/community-bot/internal/domain"
)

// Channel is the subset of channel state the bot reasons about.
type Channel struct {
	ID       string
	GuildID  string
	Name     string
	ParentID string
	Type     discordgo.ChannelType
}

// IsText reports whether the channel is a guild text channel.
func (c *Channel) IsText() bool {
	return c != nil && c.Type == discordgo.ChannelTypeGuildText
}

// ChannelSpec describes a text channel to create.
type ChannelSpec struct {
	Name     string
	ParentID string
	Topic    string
}

// Gateway is the chat-platform capability the services depend on. All
// guild-scoped calls target the single configured guild. Lookups of absent
// channels or members return an errorutil NOT_FOUND error.
type Gateway interface {
	Channel(ctx context.Context, channelID string) (*Channel, error)
	FindChannelByName(ctx context.Context, name string) (*Channel, error)
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	MessagesBefore(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error)
	CreateTextChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	SetChannelParent(ctx context.Context, channelID, parentID string) error
	GrantView(ctx context.Context, channelID, userID string) error
	SetVoiceStatus(ctx context.Context, channelID, status string) error
	SetUserLimit(ctx context.Context, channelID string, limit int) error
	Member(ctx context.Context, userID string) (*discordgo.Member, error)
	AddRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
	VoiceChannelOf(ctx context.Context, userID string) (string, error)
	VoiceMemberCount(channelID string) int
	BanReason(ctx context.Context, userID string) string
	Respond(ctx context.Context, interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error
}

// UserTag renders the display tag of a user. Accounts migrated to unique
// usernames carry discriminator "0" and are shown by username alone.
func UserTag(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// ActorFromUser builds an actor with no guild membership data.
func ActorFromUser(u *discordgo.User) domain.Actor {
	if u == nil {
		return domain.Actor{}
	}
	return domain.Actor{
		ID:        u.ID,
		Username:  u.Username,
		Tag:       UserTag(u),
		AvatarURL: u.AvatarURL(""),
		Bot:       u.Bot,
	}
}

// ActorFromMember builds an actor including roles, permissions and premium state.
func ActorFromMember(m *discordgo.Member) domain.Actor {
	if m == nil {
		return domain.Actor{}
	}
	actor := ActorFromUser(m.User)
	actor.Roles = append([]string(nil), m.Roles...)
	actor.Permissions = m.Permissions
	actor.PremiumSince = m.PremiumSince
	return actor
}
