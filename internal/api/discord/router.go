package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/config"
	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/gateway"
	"github.com/bbn-music/community-bot/internal/observability"
	"github.com/bbn-music/community-bot/internal/service"
)

// Interaction kinds used as route and metric keys.
const (
	KindButton  = "button"
	KindModal   = "modal"
	KindSelect  = "select"
	KindCommand = "command"
)

// TicketLifecycle is the ticket workflow the router drives.
type TicketLifecycle interface {
	RequestCreation(ctx context.Context, requester domain.Actor, reason string) (*service.CreationResult, error)
	Escalate(ctx context.Context, actor domain.Actor, channelID string) error
	Deescalate(ctx context.Context, actor domain.Actor, channelID string) error
	Close(ctx context.Context, actor domain.Actor, channelID string) (*service.CloseResult, error)
}

// Ledger is the coin balance API.
type Ledger interface {
	GetBalance(ctx context.Context, discordID string) (int64, error)
	AddCoins(ctx context.Context, discordID string, amount int64) (int64, error)
	RemoveCoins(ctx context.Context, discordID string, amount int64) (int64, error)
	ClaimDaily(ctx context.Context, discordID string, elevated bool) (int64, error)
}

// SteamStats aggregates Steam family libraries.
type SteamStats interface {
	FamilyStats(ctx context.Context, accessToken, webKey string) (*service.FamilyStats, error)
}

// Community covers verification, voice locking and the ticket panel.
type Community interface {
	ToggleVerified(ctx context.Context, actor domain.Actor, targetID string) (bool, error)
	LockVoice(ctx context.Context, userID string, lock bool) error
	PostTicketPanel(ctx context.Context) (string, error)
}

// handlerFunc serves one routed interaction.
type handlerFunc func(ctx context.Context, i *discordgo.Interaction, actor domain.Actor) error

// Router dispatches interactions to their handlers.
type Router struct {
	gateway   gateway.Gateway
	tickets   TicketLifecycle
	ledger    Ledger
	steam     SteamStats
	community Community
	cfg       config.DiscordConfig
	logger    *zap.Logger
	metrics   *observability.Metrics
	timeout   time.Duration
	routes    map[string]handlerFunc
}

// Dependencies bundles the router's collaborators.
type Dependencies struct {
	Gateway   gateway.Gateway
	Tickets   TicketLifecycle
	Ledger    Ledger
	Steam     SteamStats
	Community Community
	Config    config.DiscordConfig
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	// Timeout bounds the handling of one interaction; zero means no bound.
	Timeout time.Duration
}

// NewRouter builds the dispatch table.
func NewRouter(deps Dependencies) *Router {
	r := &Router{
		gateway:   deps.Gateway,
		tickets:   deps.Tickets,
		ledger:    deps.Ledger,
		steam:     deps.Steam,
		community: deps.Community,
		cfg:       deps.Config,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		timeout:   deps.Timeout,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.routes = map[string]handlerFunc{
		routeKey(KindButton, service.CustomIDCreateTicket): r.showTicketModal,
		routeKey(KindButton, service.CustomIDCloseTicket):  r.closeTicket,
		routeKey(KindButton, service.CustomIDLockVoice):    r.lockVoice(true),
		routeKey(KindButton, service.CustomIDUnlockVoice):  r.lockVoice(false),
		routeKey(KindModal, service.CustomIDTicketModal):   r.submitTicket,
		routeKey(KindSelect, service.CustomIDVerifySelect): r.toggleVerified,
		routeKey(KindCommand, CommandSetup):                r.setup,
		routeKey(KindCommand, CommandEscalate):             r.escalate,
		routeKey(KindCommand, CommandDeescalate):           r.deescalate,
		routeKey(KindCommand, CommandVerify):               r.verify,
		routeKey(KindCommand, CommandDaily):                r.daily,
		routeKey(KindCommand, CommandBalance):              r.balance,
		routeKey(KindCommand, CommandAddCoins):             r.addCoins,
		routeKey(KindCommand, CommandRemoveCoins):          r.removeCoins,
		routeKey(KindCommand, CommandSteam):                r.steamStats,
	}
	return r
}

// Handle serves one interaction. Unknown identifiers are ignored.
func (r *Router) Handle(ctx context.Context, i *discordgo.Interaction) {
	kind, name, ok := classify(i)
	if !ok {
		return
	}
	handler, ok := r.routes[routeKey(kind, name)]
	if !ok {
		r.logger.Debug("unrouted interaction", zap.String("kind", kind), zap.String("name", name))
		return
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.serve(ctx, kind, name, i, handler)
}

// Bind registers the router on session. Each interaction is handled under
// a context derived from ctx.
func (r *Router) Bind(ctx context.Context, session *discordgo.Session) {
	session.AddHandler(func(_ *discordgo.Session, e *discordgo.InteractionCreate) {
		r.Handle(ctx, e.Interaction)
	})
}

func classify(i *discordgo.Interaction) (kind, name string, ok bool) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return KindCommand, i.ApplicationCommandData().Name, true
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		if data.ComponentType == discordgo.ButtonComponent {
			return KindButton, data.CustomID, true
		}
		return KindSelect, data.CustomID, true
	case discordgo.InteractionModalSubmit:
		return KindModal, i.ModalSubmitData().CustomID, true
	}
	return "", "", false
}

func routeKey(kind, name string) string {
	return kind + ":" + name
}

func actorOf(i *discordgo.Interaction) domain.Actor {
	if i.Member != nil {
		return gateway.ActorFromMember(i.Member)
	}
	return gateway.ActorFromUser(i.User)
}
