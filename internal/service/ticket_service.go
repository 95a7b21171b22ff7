package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/auth"
	"github.com/bbn-music/community-bot/internal/config"
	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/events"
	"github.com/bbn-music/community-bot/internal/gateway"
	"github.com/bbn-music/community-bot/internal/repository"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

// unknownUser labels a transcript whose requester is no longer resolvable.
const unknownUser = "Unknown User"

// TaskScheduler defers work past the interaction that triggered it.
type TaskScheduler interface {
	After(name string, delay time.Duration, task func(context.Context) error)
}

// TranscriptLinker renders a viewer URL for an archived transcript. An empty
// URL means links are disabled.
type TranscriptLinker interface {
	TranscriptURL(transcriptID string) (string, error)
}

// TicketService coordinates the ticket lifecycle.
type TicketService struct {
	gateway     gateway.Gateway
	tickets     repository.TicketRepository
	history     repository.TicketHistoryRepository
	users       repository.UserRepository
	transcripts repository.TranscriptRepository
	collector   *TranscriptService
	lock        repository.CreationLock
	scheduler   TaskScheduler
	links       TranscriptLinker
	dispatcher  events.Dispatcher
	cfg         config.DiscordConfig
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Gateway        gateway.Gateway
	TicketRepo     repository.TicketRepository
	HistoryRepo    repository.TicketHistoryRepository
	UserRepo       repository.UserRepository
	TranscriptRepo repository.TranscriptRepository
	Collector      *TranscriptService
	Lock           repository.CreationLock
	Scheduler      TaskScheduler
	Links          TranscriptLinker
	Dispatcher     events.Dispatcher
	Config         config.DiscordConfig
	Logger         *zap.Logger
	Now            func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	collector := deps.Collector
	if collector == nil {
		collector = NewTranscriptService(deps.Gateway, logger)
	}
	return &TicketService{
		gateway:     deps.Gateway,
		tickets:     deps.TicketRepo,
		history:     deps.HistoryRepo,
		users:       deps.UserRepo,
		transcripts: deps.TranscriptRepo,
		collector:   collector,
		lock:        deps.Lock,
		scheduler:   deps.Scheduler,
		links:       deps.Links,
		dispatcher:  deps.Dispatcher,
		cfg:         deps.Config,
		logger:      logger,
		now:         now,
	}
}

// CreationResult describes the outcome of a creation request.
type CreationResult struct {
	ChannelID string
	Ticket    *domain.Ticket
	// Existing is set when the requester already had an open ticket.
	Existing bool
	// Busy is set when another creation for the same requester is in flight.
	Busy bool
}

// CloseResult describes an archived and removed ticket.
type CloseResult struct {
	TranscriptID string
	Messages     int
	ArchiveError error
}

// RequestCreation opens a ticket for requester, or points them at the one they
// already have. At most one ticket channel exists per requester.
func (s *TicketService) RequestCreation(ctx context.Context, requester domain.Actor, reason string) (*CreationResult, error) {
	if s.lock != nil {
		token, acquired, err := s.lock.Acquire(ctx, requester.ID)
		switch {
		case err != nil:
			s.logger.Warn("creation lock unavailable", zap.String("requester_id", requester.ID), zap.Error(err))
		case !acquired:
			return &CreationResult{Busy: true}, nil
		default:
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), requester.ID, token); err != nil {
					s.logger.Warn("creation lock release failed", zap.String("requester_id", requester.ID), zap.Error(err))
				}
			}()
		}
	}

	summary, err := s.summaryMessage(ctx, requester, reason)
	if err != nil {
		return nil, apperrors.NewCreationError(err)
	}

	ticket, channel, err := s.findOpenTicket(ctx, requester.ID)
	if err != nil {
		return nil, apperrors.NewCreationError(err)
	}
	if channel != nil {
		return s.recoverTicket(ctx, requester, reason, ticket, channel, summary)
	}

	channel, err = s.gateway.CreateTextChannel(ctx, gateway.ChannelSpec{
		Name:     domain.TicketChannelName(requester.ID),
		ParentID: s.cfg.FirstLevelCategoryID,
		Topic:    "ticket of " + requester.Tag,
	})
	if err != nil {
		return nil, apperrors.NewCreationError(err)
	}

	ticket = &domain.Ticket{
		ChannelID:    channel.ID,
		RequesterID:  requester.ID,
		RequesterTag: requester.Tag,
		Reason:       reason,
		Tier:         domain.TierFirstLevel,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.discardChannel(ctx, channel.ID)
		return nil, apperrors.NewCreationError(fmt.Errorf("persist ticket: %w", err))
	}

	if _, err := s.gateway.SendMessage(ctx, channel.ID, summary); err != nil {
		s.discardChannel(ctx, channel.ID)
		if delErr := s.tickets.Delete(context.WithoutCancel(ctx), ticket.ID); delErr != nil {
			s.logger.Error("ticket rollback failed", zap.String("ticket_id", ticket.ID), zap.Error(delErr))
		}
		return nil, apperrors.NewCreationError(fmt.Errorf("send summary: %w", err))
	}

	s.scheduleGrant(channel.ID, requester.ID)
	s.recordHistory(ctx, ticket.ID, requester.ID, domain.ChangeTypeCreated, nil, map[string]any{
		"channel_id": channel.ID,
		"tier":       ticket.Tier,
	})
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketCreated,
		SubjectID: ticket.ID,
		ActorID:   requester.ID,
		Payload:   events.TicketOpenedPayload{ChannelID: channel.ID, RequesterID: requester.ID, Reason: reason},
	})
	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("channel_id", channel.ID))
	return &CreationResult{ChannelID: channel.ID, Ticket: ticket}, nil
}

func (s *TicketService) recoverTicket(ctx context.Context, requester domain.Actor, reason string, ticket *domain.Ticket, channel *gateway.Channel, summary *discordgo.MessageSend) (*CreationResult, error) {
	if err := s.gateway.GrantView(ctx, channel.ID, requester.ID); err != nil {
		return nil, apperrors.NewCreationError(fmt.Errorf("grant view: %w", err))
	}
	if _, err := s.gateway.SendMessage(ctx, channel.ID, summary); err != nil {
		return nil, apperrors.NewCreationError(fmt.Errorf("send summary: %w", err))
	}

	if ticket == nil {
		// Channel predates the mapping table; adopt it so later lookups hit the store.
		ticket = &domain.Ticket{
			ChannelID:    channel.ID,
			RequesterID:  requester.ID,
			RequesterTag: requester.Tag,
			Reason:       reason,
			Tier:         s.tierOf(channel),
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			s.logger.Warn("legacy ticket not adopted", zap.String("channel_id", channel.ID), zap.Error(err))
			ticket = nil
		}
	}

	subjectID := channel.ID
	if ticket != nil {
		subjectID = ticket.ID
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketRecovered,
		SubjectID: subjectID,
		ActorID:   requester.ID,
		Payload:   events.TicketOpenedPayload{ChannelID: channel.ID, RequesterID: requester.ID, Reason: reason},
	})
	return &CreationResult{ChannelID: channel.ID, Ticket: ticket, Existing: true}, nil
}

// OpenChannelFor returns the open ticket channel of requesterID, or nil.
func (s *TicketService) OpenChannelFor(ctx context.Context, requesterID string) (*gateway.Channel, error) {
	_, channel, err := s.findOpenTicket(ctx, requesterID)
	return channel, err
}

// findOpenTicket resolves the requester's open ticket. The mapping row wins;
// a row whose channel vanished is closed. Without a row, a channel carrying
// the legacy ticket name is returned with a nil ticket.
func (s *TicketService) findOpenTicket(ctx context.Context, requesterID string) (*domain.Ticket, *gateway.Channel, error) {
	ticket, err := s.tickets.FindOpenByRequester(ctx, requesterID)
	switch {
	case err == nil:
		channel, chErr := s.gateway.Channel(ctx, ticket.ChannelID)
		if chErr == nil {
			return ticket, channel, nil
		}
		if !errors.Is(chErr, apperrors.ErrNotFound) {
			return nil, nil, chErr
		}
		if err := s.tickets.Close(ctx, ticket.ID, "", s.now()); err != nil {
			return nil, nil, fmt.Errorf("close stale ticket: %w", err)
		}
		s.logger.Info("stale ticket closed", zap.String("ticket_id", ticket.ID), zap.String("channel_id", ticket.ChannelID))
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, nil, err
	}

	channel, err := s.gateway.FindChannelByName(ctx, domain.TicketChannelName(requesterID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return nil, channel, nil
}

// Escalate moves a first-level ticket to the second-level category.
func (s *TicketService) Escalate(ctx context.Context, actor domain.Actor, channelID string) error {
	return s.moveTier(ctx, actor, channelID, domain.TierFirstLevel, domain.TierSecondLevel)
}

// Deescalate moves a second-level ticket back to the first-level category.
func (s *TicketService) Deescalate(ctx context.Context, actor domain.Actor, channelID string) error {
	return s.moveTier(ctx, actor, channelID, domain.TierSecondLevel, domain.TierFirstLevel)
}

func (s *TicketService) moveTier(ctx context.Context, actor domain.Actor, channelID string, from, to domain.TicketTier) error {
	verb, eventType := "escalate", events.EventTicketEscalated
	if to == domain.TierFirstLevel {
		verb, eventType = "deescalate", events.EventTicketDeescalated
	}
	if !auth.IsSupport(actor, s.cfg) {
		return apperrors.NewUnauthorized(fmt.Sprintf("You do not have permission to %s this ticket.", verb))
	}

	channel, err := s.gateway.Channel(ctx, channelID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	if err != nil || !channel.IsText() || channel.ParentID != s.categoryFor(from) {
		return apperrors.NewWrongContext("This command can only be used in a ticket channel.")
	}

	if err := s.gateway.SetChannelParent(ctx, channelID, s.categoryFor(to)); err != nil {
		return fmt.Errorf("move ticket channel: %w", err)
	}

	subjectID := channelID
	ticket, err := s.tickets.GetByChannelID(ctx, channelID)
	switch {
	case err == nil:
		subjectID = ticket.ID
		if err := s.tickets.UpdateTier(ctx, ticket.ID, to); err != nil {
			s.logger.Warn("ticket tier not persisted", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
		s.recordHistory(ctx, ticket.ID, actor.ID, domain.ChangeTypeTier,
			map[string]any{"tier": from}, map[string]any{"tier": to})
	case !errors.Is(err, apperrors.ErrNotFound):
		s.logger.Warn("ticket lookup failed", zap.String("channel_id", channelID), zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:      eventType,
		SubjectID: subjectID,
		ActorID:   actor.ID,
		Payload:   events.TicketTierChangedPayload{ChannelID: channelID, OldTier: from, NewTier: to},
	})
	return nil
}

// closeTeardownTimeout bounds the steps of Close that run after history
// collection.
const closeTeardownTimeout = 30 * time.Second

// Close archives the ticket channel's history and deletes the channel. With
// RequireArchive unset, a failed archive is reported but deletion proceeds.
func (s *TicketService) Close(ctx context.Context, actor domain.Actor, channelID string) (*CloseResult, error) {
	channel, err := s.gateway.Channel(ctx, channelID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewWrongContext("This command can only be used in a ticket channel.")
		}
		return nil, err
	}

	var requesterID string
	ticket, err := s.tickets.GetByChannelID(ctx, channelID)
	switch {
	case err == nil:
		requesterID = ticket.RequesterID
	case errors.Is(err, apperrors.ErrNotFound):
		ticket = nil
		id, ok := domain.RequesterFromChannelName(channel.Name)
		if !ok {
			return nil, apperrors.NewWrongContext("This command can only be used in a ticket channel.")
		}
		requesterID = id
	default:
		return nil, err
	}

	messages, archiveErr := s.collector.Collect(ctx, channelID)
	if archiveErr != nil && s.cfg.RequireArchive {
		return nil, archiveErr
	}

	// From here on the ticket is torn down even if the caller's deadline was
	// spent on collecting history.
	teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTeardownTimeout)
	defer cancel()
	ctx = teardownCtx

	transcript := &domain.Transcript{
		ChannelID: channelID,
		Messages:  messages,
		Closed:    "Ticket closed by " + actor.Tag,
		With:      fmt.Sprintf("%s (%s)", s.requesterLabel(ctx, requesterID), requesterID),
	}
	if ticket != nil {
		transcript.TicketID = &ticket.ID
	}
	if archiveErr == nil {
		if err := s.transcripts.Save(ctx, transcript); err != nil {
			archiveErr = fmt.Errorf("save transcript: %w", err)
			if s.cfg.RequireArchive {
				return nil, apperrors.NewCollectionError(archiveErr)
			}
		}
	}
	if archiveErr != nil {
		s.logger.Error("ticket closed without archive", zap.String("channel_id", channelID), zap.Error(archiveErr))
	}

	if err := s.gateway.DeleteChannel(ctx, channelID); err != nil {
		return nil, fmt.Errorf("delete ticket channel: %w", err)
	}

	result := &CloseResult{Messages: len(messages), ArchiveError: archiveErr}
	if archiveErr == nil {
		result.TranscriptID = transcript.ID
	}

	subjectID := channelID
	if ticket != nil {
		subjectID = ticket.ID
		if err := s.tickets.Close(ctx, ticket.ID, actor.ID, s.now()); err != nil {
			s.logger.Warn("ticket row not closed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
		s.recordHistory(ctx, ticket.ID, actor.ID, domain.ChangeTypeClosed, nil, map[string]any{
			"transcript_id": result.TranscriptID,
			"messages":      result.Messages,
		})
	}

	s.postArchiveNotice(ctx, actor, transcript, result)

	payload := events.TicketClosedPayload{
		ChannelID:    channelID,
		RequesterID:  requesterID,
		TranscriptID: result.TranscriptID,
		Messages:     result.Messages,
	}
	if archiveErr != nil {
		payload.ArchiveError = archiveErr.Error()
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketClosed,
		SubjectID: subjectID,
		ActorID:   actor.ID,
		Payload:   payload,
	})
	return result, nil
}

func (s *TicketService) requesterLabel(ctx context.Context, requesterID string) string {
	member, err := s.gateway.Member(ctx, requesterID)
	if err != nil || member == nil || member.User == nil {
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("requester lookup failed", zap.String("requester_id", requesterID), zap.Error(err))
		}
		return unknownUser
	}
	return gateway.UserTag(member.User)
}

func (s *TicketService) postArchiveNotice(ctx context.Context, actor domain.Actor, transcript *domain.Transcript, result *CloseResult) {
	if s.cfg.LogChannelID == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: "Ticket closed",
		Color: colorTicketSummary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "With", Value: transcript.With, Inline: true},
			{Name: "Closed by", Value: actor.Tag, Inline: true},
			{Name: "Messages", Value: fmt.Sprint(result.Messages), Inline: true},
		},
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
	switch {
	case result.ArchiveError != nil:
		embed.Color = colorRed
		embed.Description = "The transcript could not be archived."
	case s.links != nil:
		link, err := s.links.TranscriptURL(result.TranscriptID)
		if err != nil {
			s.logger.Warn("transcript link not signed", zap.String("transcript_id", result.TranscriptID), zap.Error(err))
		} else if link != "" {
			embed.URL = link
			embed.Description = fmt.Sprintf("[View transcript](%s)", link)
		}
	}
	if _, err := s.gateway.SendMessage(ctx, s.cfg.LogChannelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		s.logger.Warn("archive notice not sent", zap.String("channel_id", transcript.ChannelID), zap.Error(err))
	}
}

// summaryMessage builds the message posted into a ticket channel. Members with
// a linked account get their account id and last login attached.
func (s *TicketService) summaryMessage(ctx context.Context, requester domain.Actor, reason string) (*discordgo.MessageSend, error) {
	embed := &discordgo.MessageEmbed{
		Title: "Ticket of " + requester.Username,
		Color: colorTicketSummary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason:", Value: "> " + reason},
		},
	}

	user, err := s.users.FindByDiscordID(ctx, requester.ID)
	switch {
	case err == nil:
		login, err := s.users.LastLogin(ctx, requester.ID)
		if err != nil {
			return nil, fmt.Errorf("load last login: %w", err)
		}
		if err := s.attachAccount(embed, requester, user, login); err != nil {
			return nil, err
		}
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("load account: %w", err)
	}

	return &discordgo.MessageSend{
		Content:    fmt.Sprintf("<@%s> || <@&%s>", requester.ID, s.cfg.SupportRoleID),
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{CloseTicketRow()},
	}, nil
}

func (s *TicketService) attachAccount(embed *discordgo.MessageEmbed, requester domain.Actor, user *domain.User, login *domain.LoginInfo) error {
	var lastLogin any = "none"
	footer, zone := "No Login", "UTC"
	if login != nil {
		lastLogin = login
		if login.Location != "" {
			footer = login.Location
		}
		if login.TimeZone != "" {
			zone = login.TimeZone
		}
	}
	rendered, err := json.Marshal(lastLogin)
	if err != nil {
		return fmt.Errorf("encode last login: %w", err)
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}

	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "User ID:", Value: "> " + user.AccountID},
		&discordgo.MessageEmbedField{Name: "Last Login:", Value: "```" + string(rendered) + "```"},
	)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: footer, IconURL: requester.AvatarURL}
	embed.Timestamp = s.now().In(loc).Format(time.RFC3339)
	return nil
}

func (s *TicketService) scheduleGrant(channelID, requesterID string) {
	grant := func(ctx context.Context) error {
		return s.gateway.GrantView(ctx, channelID, requesterID)
	}
	if s.scheduler == nil {
		if err := grant(context.Background()); err != nil {
			s.logger.Error("view permission not granted", zap.String("channel_id", channelID), zap.Error(err))
		}
		return
	}
	s.scheduler.After("grant-view:"+channelID, s.cfg.PermissionGrantDelay(), grant)
}

func (s *TicketService) discardChannel(ctx context.Context, channelID string) {
	if err := s.gateway.DeleteChannel(context.WithoutCancel(ctx), channelID); err != nil {
		s.logger.Error("orphan ticket channel not deleted", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (s *TicketService) categoryFor(tier domain.TicketTier) string {
	if tier == domain.TierSecondLevel {
		return s.cfg.SecondLevelCategoryID
	}
	return s.cfg.FirstLevelCategoryID
}

func (s *TicketService) tierOf(channel *gateway.Channel) domain.TicketTier {
	if channel.ParentID != "" && channel.ParentID == s.cfg.SecondLevelCategoryID {
		return domain.TierSecondLevel
	}
	return domain.TierFirstLevel
}

func (s *TicketService) recordHistory(ctx context.Context, ticketID, actorID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("ticket history not recorded", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.now, event)
}

// publish stamps the event id and time before handing it to the dispatcher.
func publish(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	_ = dispatcher.Publish(ctx, event)
}
