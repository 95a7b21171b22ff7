package service

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/bbn-music/community-bot/internal/events"
	"github.com/bbn-music/community-bot/internal/repository"
)

const (
	dailyBaseReward    = 10
	dailyRewardSpread  = 10
	elevatedMultiplier = 10
)

// EconomyService manages member coin balances.
type EconomyService struct {
	balances   repository.BalanceRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	randIntN   func(n int) int
	now        func() time.Time
}

// EconomyDependencies bundles collaborators for the economy service.
type EconomyDependencies struct {
	BalanceRepo repository.BalanceRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	// RandIntN returns a value in [0, n); defaults to math/rand.
	RandIntN func(n int) int
	Now      func() time.Time
}

// NewEconomyService constructs the service.
func NewEconomyService(deps EconomyDependencies) *EconomyService {
	svc := &EconomyService{
		balances:   deps.BalanceRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		randIntN:   deps.RandIntN,
		now:        deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.randIntN == nil {
		svc.randIntN = rand.Intn
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// GetBalance returns the coins of discordID. A missing account is NOT_FOUND,
// never a zero balance.
func (s *EconomyService) GetBalance(ctx context.Context, discordID string) (int64, error) {
	return s.balances.Get(ctx, discordID)
}

// AddCoins credits amount and returns the new balance.
func (s *EconomyService) AddCoins(ctx context.Context, discordID string, amount int64) (int64, error) {
	balance, err := s.balances.Add(ctx, discordID, amount)
	if err != nil {
		return 0, err
	}
	s.logger.Info("coins changed", zap.String("discord_id", discordID), zap.Int64("delta", amount), zap.Int64("balance", balance))
	publish(ctx, s.dispatcher, s.now, events.Event{
		Type:      events.EventCoinsChanged,
		SubjectID: discordID,
		Payload:   events.CoinsChangedPayload{Delta: amount, Balance: balance},
	})
	return balance, nil
}

// RemoveCoins debits amount. The balance never drops below zero; such a
// removal fails with INSUFFICIENT_FUNDS and changes nothing.
func (s *EconomyService) RemoveCoins(ctx context.Context, discordID string, amount int64) (int64, error) {
	return s.AddCoins(ctx, discordID, -amount)
}

// ClaimDaily credits the daily reward once per 24 hours. Elevated members
// receive ten times the rolled reward.
func (s *EconomyService) ClaimDaily(ctx context.Context, discordID string, elevated bool) (int64, error) {
	reward := int64(dailyBaseReward + s.randIntN(dailyRewardSpread))
	if elevated {
		reward *= elevatedMultiplier
	}

	balance, err := s.balances.ClaimDaily(ctx, discordID, reward, s.now())
	if err != nil {
		return 0, err
	}
	publish(ctx, s.dispatcher, s.now, events.Event{
		Type:      events.EventDailyClaimed,
		SubjectID: discordID,
		ActorID:   discordID,
		Payload:   events.DailyClaimedPayload{Reward: reward, Elevated: elevated, Balance: balance},
	})
	return reward, nil
}
