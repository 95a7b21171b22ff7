package discord

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/gateway"
	"github.com/bbn-music/community-bot/internal/service"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

var errBoom = errors.New("boom")

// fakeGateway records interaction responses and channel messages. Methods the
// router never touches fall through to the nil embedded interface.
type fakeGateway struct {
	gateway.Gateway

	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	sent      map[string][]*discordgo.MessageSend
	channels  map[string]*gateway.Channel
	voice     map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sent:     make(map[string][]*discordgo.MessageSend),
		channels: make(map[string]*gateway.Channel),
		voice:    make(map[string]int),
	}
}

func (g *fakeGateway) Respond(_ context.Context, _ *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, resp)
	return nil
}

func (g *fakeGateway) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent[channelID] = append(g.sent[channelID], msg)
	return &discordgo.Message{ChannelID: channelID, Content: msg.Content}, nil
}

func (g *fakeGateway) Channel(_ context.Context, channelID string) (*gateway.Channel, error) {
	if ch, ok := g.channels[channelID]; ok {
		return ch, nil
	}
	return nil, apperrors.NewNotFound("channel", nil)
}

func (g *fakeGateway) VoiceMemberCount(channelID string) int {
	return g.voice[channelID]
}

func (g *fakeGateway) lastResponse() *discordgo.InteractionResponse {
	if len(g.responses) == 0 {
		return nil
	}
	return g.responses[len(g.responses)-1]
}

type fakeTickets struct {
	creation  *service.CreationResult
	createErr error
	closeErr  error
	tierErr   error
	reasons   []string
	escalated []string
	closed    []string
}

func (f *fakeTickets) RequestCreation(_ context.Context, _ domain.Actor, reason string) (*service.CreationResult, error) {
	f.reasons = append(f.reasons, reason)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.creation, nil
}

func (f *fakeTickets) Escalate(_ context.Context, _ domain.Actor, channelID string) error {
	if f.tierErr != nil {
		return f.tierErr
	}
	f.escalated = append(f.escalated, "up:"+channelID)
	return nil
}

func (f *fakeTickets) Deescalate(_ context.Context, _ domain.Actor, channelID string) error {
	if f.tierErr != nil {
		return f.tierErr
	}
	f.escalated = append(f.escalated, "down:"+channelID)
	return nil
}

func (f *fakeTickets) Close(_ context.Context, _ domain.Actor, channelID string) (*service.CloseResult, error) {
	f.closed = append(f.closed, channelID)
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	return &service.CloseResult{TranscriptID: "tr-1", Messages: 3}, nil
}

type ledgerCall struct {
	op       string
	id       string
	amount   int64
	elevated bool
}

type fakeLedger struct {
	balance int64
	reward  int64
	err     error
	panics  bool
	calls   []ledgerCall
}

func (f *fakeLedger) GetBalance(_ context.Context, id string) (int64, error) {
	f.calls = append(f.calls, ledgerCall{op: "get", id: id})
	return f.balance, f.err
}

func (f *fakeLedger) AddCoins(_ context.Context, id string, amount int64) (int64, error) {
	if f.panics {
		panic("ledger exploded")
	}
	f.calls = append(f.calls, ledgerCall{op: "add", id: id, amount: amount})
	return f.balance + amount, f.err
}

func (f *fakeLedger) RemoveCoins(_ context.Context, id string, amount int64) (int64, error) {
	f.calls = append(f.calls, ledgerCall{op: "remove", id: id, amount: amount})
	return f.balance - amount, f.err
}

func (f *fakeLedger) ClaimDaily(_ context.Context, id string, elevated bool) (int64, error) {
	f.calls = append(f.calls, ledgerCall{op: "daily", id: id, elevated: elevated})
	return f.reward, f.err
}

type fakeSteam struct {
	stats  *service.FamilyStats
	err    error
	tokens []string
}

func (f *fakeSteam) FamilyStats(_ context.Context, accessToken, webKey string) (*service.FamilyStats, error) {
	f.tokens = append(f.tokens, accessToken+"|"+webKey)
	return f.stats, f.err
}

type fakeCommunity struct {
	verified bool
	err      error
	panelID  string
	toggled  []string
	locks    []bool
}

func (f *fakeCommunity) ToggleVerified(_ context.Context, _ domain.Actor, targetID string) (bool, error) {
	f.toggled = append(f.toggled, targetID)
	return f.verified, f.err
}

func (f *fakeCommunity) LockVoice(_ context.Context, _ string, lock bool) error {
	if f.err != nil {
		return f.err
	}
	f.locks = append(f.locks, lock)
	return nil
}

func (f *fakeCommunity) PostTicketPanel(context.Context) (string, error) {
	return f.panelID, f.err
}

type voiceCall struct {
	tag           string
	before, after domain.VoiceSnapshot
}

type fakeNotifier struct {
	bans   []bool
	leaves []string
	dms    []string
	voice  []voiceCall
	err    error
}

func (f *fakeNotifier) NotifyBan(_ context.Context, _ *discordgo.User, banned bool) error {
	f.bans = append(f.bans, banned)
	return f.err
}

func (f *fakeNotifier) NotifyLeave(_ context.Context, user *discordgo.User) error {
	f.leaves = append(f.leaves, user.ID)
	return f.err
}

func (f *fakeNotifier) NotifyDirectMessage(_ context.Context, msg *discordgo.Message) error {
	f.dms = append(f.dms, msg.ID)
	return f.err
}

func (f *fakeNotifier) NotifyVoice(_ context.Context, tag string, before, after domain.VoiceSnapshot) error {
	f.voice = append(f.voice, voiceCall{tag: tag, before: before, after: after})
	return f.err
}
