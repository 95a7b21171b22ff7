package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bbn-music/community-bot/internal/domain"
	"github.com/bbn-music/community-bot/internal/events"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

func newEconomy(repo *fakeBalanceRepo, roll int, now *time.Time) (*EconomyService, *recordingDispatcher) {
	dispatcher := &recordingDispatcher{}
	return NewEconomyService(EconomyDependencies{
		BalanceRepo: repo,
		Dispatcher:  dispatcher,
		RandIntN:    func(int) int { return roll },
		Now:         func() time.Time { return *now },
	}), dispatcher
}

func TestAddCoins(t *testing.T) {
	now := fixedNow
	svc, dispatcher := newEconomy(newFakeBalanceRepo(&domain.User{DiscordID: "42", Coins: 5}), 0, &now)

	balance, err := svc.AddCoins(context.Background(), "42", 15)
	if err != nil {
		t.Fatalf("add coins: %v", err)
	}
	if balance != 20 {
		t.Fatalf("expected 20, got %d", balance)
	}
	if got, _ := svc.GetBalance(context.Background(), "42"); got != 20 {
		t.Fatalf("expected stored balance 20, got %d", got)
	}
	if types := dispatcher.types(); len(types) != 1 || types[0] != events.EventCoinsChanged {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestAddCoinsUnknownAccount(t *testing.T) {
	now := fixedNow
	repo := newFakeBalanceRepo(&domain.User{DiscordID: "42", Coins: 5})
	svc, dispatcher := newEconomy(repo, 0, &now)

	_, err := svc.AddCoins(context.Background(), "404", 15)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.GetBalance(context.Background(), "404"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing account must stay missing, got %v", err)
	}
	if repo.accounts["42"].Coins != 5 {
		t.Fatalf("unrelated account mutated")
	}
	if len(dispatcher.types()) != 0 {
		t.Fatalf("no event expected for failed mutation")
	}
}

func TestGetBalanceDistinguishesZeroFromMissing(t *testing.T) {
	now := fixedNow
	svc, _ := newEconomy(newFakeBalanceRepo(&domain.User{DiscordID: "42"}), 0, &now)

	balance, err := svc.GetBalance(context.Background(), "42")
	if err != nil || balance != 0 {
		t.Fatalf("expected zero balance, got %d %v", balance, err)
	}
	if _, err := svc.GetBalance(context.Background(), "7"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveCoinsFloorsAtZero(t *testing.T) {
	now := fixedNow
	repo := newFakeBalanceRepo(&domain.User{DiscordID: "42", Coins: 10})
	svc, _ := newEconomy(repo, 0, &now)

	balance, err := svc.RemoveCoins(context.Background(), "42", 4)
	if err != nil || balance != 6 {
		t.Fatalf("expected 6, got %d %v", balance, err)
	}
	_, err = svc.RemoveCoins(context.Background(), "42", 7)
	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if repo.accounts["42"].Coins != 6 {
		t.Fatalf("failed removal mutated balance: %d", repo.accounts["42"].Coins)
	}
}

func TestClaimDailyTwiceWithinAnHour(t *testing.T) {
	now := fixedNow
	repo := newFakeBalanceRepo(&domain.User{DiscordID: "42", Coins: 100})
	svc, _ := newEconomy(repo, 3, &now)

	reward, err := svc.ClaimDaily(context.Background(), "42", false)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if reward != 13 {
		t.Fatalf("expected reward 13, got %d", reward)
	}
	balance := repo.accounts["42"].Coins

	now = now.Add(time.Hour)
	_, err = svc.ClaimDaily(context.Background(), "42", false)
	if !errors.Is(err, apperrors.ErrTooSoon) {
		t.Fatalf("expected too soon, got %v", err)
	}
	if hours, ok := apperrors.HoursRemaining(err); !ok || hours != 23 {
		t.Fatalf("expected 23 hours remaining, got %d (%v)", hours, ok)
	}
	if err.Error() != "You have already claimed your daily reward. Please wait 23 hours before claiming again." {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if repo.accounts["42"].Coins != balance {
		t.Fatalf("rejected claim changed balance")
	}
}

func TestClaimDailyAfterCooldown(t *testing.T) {
	now := fixedNow
	last := now.Add(-25 * time.Hour)
	repo := newFakeBalanceRepo(&domain.User{DiscordID: "42", LastDaily: &last})
	svc, _ := newEconomy(repo, 9, &now)

	reward, err := svc.ClaimDaily(context.Background(), "42", false)
	if err != nil || reward != 19 {
		t.Fatalf("expected reward 19, got %d %v", reward, err)
	}
	if !repo.accounts["42"].LastDaily.Equal(now) {
		t.Fatalf("last daily not stamped")
	}
}

func TestClaimDailyElevatedIsTenfold(t *testing.T) {
	for roll := 0; roll < dailyRewardSpread; roll++ {
		now := fixedNow
		repo := newFakeBalanceRepo(&domain.User{DiscordID: "42"})
		svc, _ := newEconomy(repo, roll, &now)

		reward, err := svc.ClaimDaily(context.Background(), "42", true)
		if err != nil {
			t.Fatalf("roll %d: %v", roll, err)
		}
		if want := int64(10 * (10 + roll)); reward != want || repo.accounts["42"].Coins != want {
			t.Fatalf("roll %d: expected %d, got reward %d balance %d", roll, want, reward, repo.accounts["42"].Coins)
		}
	}
}

func TestClaimDailyUnknownAccount(t *testing.T) {
	now := fixedNow
	svc, dispatcher := newEconomy(newFakeBalanceRepo(), 0, &now)

	if _, err := svc.ClaimDaily(context.Background(), "42", false); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(dispatcher.types()) != 0 {
		t.Fatalf("no event expected")
	}
}
