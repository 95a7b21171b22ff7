package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/events"
	"github.com/bbn-music/community-bot/internal/gateway"
	"github.com/bbn-music/community-bot/internal/repository"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

var errBoom = errors.New("boom")

type sentMessage struct {
	ChannelID string
	Message   *discordgo.MessageSend
}

type fakeGateway struct {
	mu sync.Mutex

	nextID   int
	channels map[string]*gateway.Channel
	sent     []sentMessage
	deleted  []string
	created  int
	grants   []string
	history  map[string][]*discordgo.Message // newest first
	cursors  []string
	members  map[string]*discordgo.Member
	roleOps  []string
	voice    map[string]string
	counts   map[string]int
	limits   map[string]int
	statuses map[string]string
	bans     map[string]string

	sendErr    error
	createErr  error
	historyErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		channels: map[string]*gateway.Channel{},
		history:  map[string][]*discordgo.Message{},
		members:  map[string]*discordgo.Member{},
		voice:    map[string]string{},
		counts:   map[string]int{},
		limits:   map[string]int{},
		statuses: map[string]string{},
		bans:     map[string]string{},
	}
}

func (g *fakeGateway) addChannel(ch *gateway.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[ch.ID] = ch
}

func (g *fakeGateway) sentTo(channelID string) []*discordgo.MessageSend {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*discordgo.MessageSend
	for _, s := range g.sent {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

func (g *fakeGateway) Channel(_ context.Context, channelID string) (*gateway.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return nil, apperrors.NewNotFound("channel", nil)
	}
	cp := *ch
	return &cp, nil
}

func (g *fakeGateway) FindChannelByName(_ context.Context, name string) (*gateway.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ch := range g.channels {
		if ch.Name == name && ch.IsText() {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("channel", nil)
}

func (g *fakeGateway) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.sent = append(g.sent, sentMessage{ChannelID: channelID, Message: msg})
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", len(g.sent)), ChannelID: channelID}, nil
}

func (g *fakeGateway) MessagesBefore(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursors = append(g.cursors, beforeID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.historyErr != nil {
		return nil, g.historyErr
	}
	all := g.history[channelID]
	start := 0
	if beforeID != "" {
		for i, m := range all {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]*discordgo.Message(nil), all[start:end]...), nil
}

func (g *fakeGateway) CreateTextChannel(_ context.Context, spec gateway.ChannelSpec) (*gateway.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	g.created++
	ch := &gateway.Channel{
		ID:       fmt.Sprintf("chan-%d", g.nextID),
		Name:     spec.Name,
		ParentID: spec.ParentID,
		Type:     discordgo.ChannelTypeGuildText,
	}
	g.channels[ch.ID] = ch
	cp := *ch
	return &cp, nil
}

func (g *fakeGateway) DeleteChannel(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.channels, channelID)
	g.deleted = append(g.deleted, channelID)
	return nil
}

func (g *fakeGateway) SetChannelParent(_ context.Context, channelID, parentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return apperrors.NewNotFound("channel", nil)
	}
	ch.ParentID = parentID
	return nil
}

func (g *fakeGateway) GrantView(_ context.Context, channelID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants = append(g.grants, channelID+":"+userID)
	return nil
}

func (g *fakeGateway) SetVoiceStatus(_ context.Context, channelID, status string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[channelID] = status
	return nil
}

func (g *fakeGateway) SetUserLimit(_ context.Context, channelID string, limit int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits[channelID] = limit
	return nil
}

func (g *fakeGateway) Member(_ context.Context, userID string) (*discordgo.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[userID]
	if !ok {
		return nil, apperrors.NewNotFound("member", nil)
	}
	return m, nil
}

func (g *fakeGateway) AddRole(_ context.Context, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roleOps = append(g.roleOps, "add:"+userID+":"+roleID)
	if m, ok := g.members[userID]; ok {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (g *fakeGateway) RemoveRole(_ context.Context, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roleOps = append(g.roleOps, "remove:"+userID+":"+roleID)
	if m, ok := g.members[userID]; ok {
		kept := m.Roles[:0]
		for _, r := range m.Roles {
			if r != roleID {
				kept = append(kept, r)
			}
		}
		m.Roles = kept
	}
	return nil
}

func (g *fakeGateway) VoiceChannelOf(_ context.Context, userID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.voice[userID], nil
}

func (g *fakeGateway) VoiceMemberCount(channelID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[channelID]
}

func (g *fakeGateway) BanReason(_ context.Context, userID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bans[userID]
}

func (g *fakeGateway) Respond(context.Context, *discordgo.Interaction, *discordgo.InteractionResponse) error {
	return nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.RequesterID == ticket.RequesterID && t.IsOpen() {
			return errors.New("duplicate open ticket")
		}
	}
	r.nextID++
	ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
	cp := *ticket
	r.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) GetByChannelID(_ context.Context, channelID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.ChannelID == channelID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("ticket", nil)
}

func (r *fakeTicketRepo) FindOpenByRequester(_ context.Context, requesterID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.RequesterID == requesterID && t.IsOpen() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("ticket", nil)
}

func (r *fakeTicketRepo) UpdateTier(_ context.Context, id string, tier domain.TicketTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	t.Tier = tier
	return nil
}

func (r *fakeTicketRepo) Close(_ context.Context, id, closedBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tickets[id]; ok && t.ClosedAt == nil {
		t.ClosedAt = &at
		t.ClosedBy = &closedBy
	}
	return nil
}

func (r *fakeTicketRepo) get(id string) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickets[id]
}

func (r *fakeTicketRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	r.entries = append(r.entries, *h)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	for _, h := range r.entries {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users  map[string]*domain.User
	logins map[string]*domain.LoginInfo
}

func (r *fakeUserRepo) FindByDiscordID(_ context.Context, discordID string) (*domain.User, error) {
	if u, ok := r.users[discordID]; ok {
		return u, nil
	}
	return nil, apperrors.NewNotFound("account", nil)
}

func (r *fakeUserRepo) LastLogin(_ context.Context, discordID string) (*domain.LoginInfo, error) {
	return r.logins[discordID], nil
}

type fakeTranscriptRepo struct {
	saved   []*domain.Transcript
	saveErr error
}

func (r *fakeTranscriptRepo) Save(_ context.Context, t *domain.Transcript) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	t.ID = fmt.Sprintf("transcript-%d", len(r.saved)+1)
	r.saved = append(r.saved, t)
	return nil
}

func (r *fakeTranscriptRepo) GetByID(_ context.Context, id string) (*domain.Transcript, error) {
	for _, t := range r.saved {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperrors.NewNotFound("transcript", nil)
}

type fakeLock struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func (l *fakeLock) Acquire(_ context.Context, id string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[id] {
		return "", false, nil
	}
	l.held[id] = true
	return "token-" + id, true, nil
}

func (l *fakeLock) Release(_ context.Context, id, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token != "token-"+id {
		return fmt.Errorf("release of %s with foreign token %q", id, token)
	}
	delete(l.held, id)
	return nil
}

type scheduledTask struct {
	Name  string
	Delay time.Duration
}

// inlineScheduler runs tasks immediately and records them.
type inlineScheduler struct {
	tasks []scheduledTask
	errs  []error
}

func (s *inlineScheduler) After(name string, delay time.Duration, task func(context.Context) error) {
	s.tasks = append(s.tasks, scheduledTask{Name: name, Delay: delay})
	if err := task(context.Background()); err != nil {
		s.errs = append(s.errs, err)
	}
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeBalanceRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.User
}

func newFakeBalanceRepo(users ...*domain.User) *fakeBalanceRepo {
	r := &fakeBalanceRepo{accounts: map[string]*domain.User{}}
	for _, u := range users {
		r.accounts[u.DiscordID] = u
	}
	return r
}

func (r *fakeBalanceRepo) Get(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.accounts[id]
	if !ok {
		return 0, apperrors.NewNotFound("account", nil)
	}
	return u.Coins, nil
}

func (r *fakeBalanceRepo) Add(_ context.Context, id string, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.accounts[id]
	if !ok {
		return 0, apperrors.NewNotFound("account", nil)
	}
	if u.Coins+delta < 0 {
		return 0, apperrors.NewInsufficientFunds(u.Coins, -delta)
	}
	u.Coins += delta
	return u.Coins, nil
}

func (r *fakeBalanceRepo) LastDaily(_ context.Context, id string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.NewNotFound("account", nil)
	}
	return u.LastDaily, nil
}

func (r *fakeBalanceRepo) ClaimDaily(_ context.Context, id string, reward int64, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.accounts[id]
	if !ok {
		return 0, apperrors.NewNotFound("account", nil)
	}
	if u.LastDaily != nil && now.Sub(*u.LastDaily) < repository.DailyCooldown {
		return 0, apperrors.NewTooSoon(repository.DailyCooldown - now.Sub(*u.LastDaily))
	}
	u.Coins += reward
	u.LastDaily = &now
	return u.Coins, nil
}
