package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/config"
	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/events"
	"github.com/bbn-music/community-bot/internal/gateway"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

// CommunityService covers member verification, voice locking and the ticket panel.
type CommunityService struct {
	gateway    gateway.Gateway
	dispatcher events.Dispatcher
	cfg        config.DiscordConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewCommunityService constructs the service.
func NewCommunityService(gw gateway.Gateway, dispatcher events.Dispatcher, cfg config.DiscordConfig, logger *zap.Logger) *CommunityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommunityService{gateway: gw, dispatcher: dispatcher, cfg: cfg, logger: logger, now: time.Now}
}

// ToggleVerified flips the verified role of targetID and reports whether the
// member is verified afterwards.
func (s *CommunityService) ToggleVerified(ctx context.Context, actor domain.Actor, targetID string) (bool, error) {
	if s.cfg.VerifiedRoleID == "" {
		return false, apperrors.NewNotFound("verified role", nil)
	}
	member, err := s.gateway.Member(ctx, targetID)
	if err != nil {
		return false, err
	}

	verified := !gateway.ActorFromMember(member).HasRole(s.cfg.VerifiedRoleID)
	if verified {
		err = s.gateway.AddRole(ctx, targetID, s.cfg.VerifiedRoleID)
	} else {
		err = s.gateway.RemoveRole(ctx, targetID, s.cfg.VerifiedRoleID)
	}
	if err != nil {
		return false, fmt.Errorf("toggle verified role: %w", err)
	}

	s.logger.Info("verification changed",
		zap.String("member_id", targetID),
		zap.String("actor_id", actor.ID),
		zap.Bool("verified", verified))
	publish(ctx, s.dispatcher, s.now, events.Event{
		Type:      events.EventMemberVerified,
		SubjectID: targetID,
		ActorID:   actor.ID,
		Payload:   events.MemberVerifiedPayload{Verified: verified},
	})
	return verified, nil
}

// LockVoice caps the caller's voice channel at its current member count, or
// lifts the cap when lock is false.
func (s *CommunityService) LockVoice(ctx context.Context, userID string, lock bool) error {
	channelID, err := s.gateway.VoiceChannelOf(ctx, userID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	if channelID == "" {
		return apperrors.NewWrongContext("You have to be in a voice channel!")
	}
	limit := 0
	if lock {
		limit = s.gateway.VoiceMemberCount(channelID)
	}
	return s.gateway.SetUserLimit(ctx, channelID, limit)
}

// PostTicketPanel posts the create-ticket panel and returns its channel id.
func (s *CommunityService) PostTicketPanel(ctx context.Context) (string, error) {
	if s.cfg.TicketCreateChannelID == "" {
		return "", apperrors.NewNotFound("ticket channel", nil)
	}
	channel, err := s.gateway.Channel(ctx, s.cfg.TicketCreateChannelID)
	if err != nil {
		return "", err
	}
	if _, err := s.gateway.SendMessage(ctx, channel.ID, ticketPanel()); err != nil {
		return "", fmt.Errorf("post ticket panel: %w", err)
	}
	return channel.ID, nil
}
