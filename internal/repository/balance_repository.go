package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

// DailyCooldown is the minimum time between two daily claims.
const DailyCooldown = 24 * time.Hour

// BalanceRepository applies coin deltas. Every mutation is a single
// conditional statement so concurrent writers cannot interleave.
type BalanceRepository interface {
	Get(ctx context.Context, discordID string) (int64, error)
	Add(ctx context.Context, discordID string, delta int64) (int64, error)
	LastDaily(ctx context.Context, discordID string) (*time.Time, error)
	ClaimDaily(ctx context.Context, discordID string, reward int64, now time.Time) (int64, error)
}

type balanceRepository struct {
	pool *pgxpool.Pool
}

// NewBalanceRepository returns a Postgres-backed implementation.
func NewBalanceRepository(pool *pgxpool.Pool) BalanceRepository {
	return &balanceRepository{pool: pool}
}

func (r *balanceRepository) Get(ctx context.Context, discordID string) (int64, error) {
	var coins int64
	if err := r.pool.QueryRow(ctx, `SELECT coins FROM users WHERE discord_id=$1`, discordID).Scan(&coins); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, accountNotFound(discordID)
		}
		return 0, err
	}
	return coins, nil
}

// Add applies delta and returns the new balance. A delta that would drive the
// balance below zero is rejected without mutation.
func (r *balanceRepository) Add(ctx context.Context, discordID string, delta int64) (int64, error) {
	const query = `
        UPDATE users SET coins = coins + $2
        WHERE discord_id=$1 AND coins + $2 >= 0
        RETURNING coins`
	var coins int64
	err := r.pool.QueryRow(ctx, query, discordID, delta).Scan(&coins)
	if err == nil {
		return coins, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	current, getErr := r.Get(ctx, discordID)
	if getErr != nil {
		return 0, getErr
	}
	return 0, apperrors.NewInsufficientFunds(current, -delta)
}

func (r *balanceRepository) LastDaily(ctx context.Context, discordID string) (*time.Time, error) {
	var last *time.Time
	if err := r.pool.QueryRow(ctx, `SELECT last_daily FROM users WHERE discord_id=$1`, discordID).Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, accountNotFound(discordID)
		}
		return nil, err
	}
	return last, nil
}

// ClaimDaily credits reward and stamps last_daily in one statement, guarded by
// the cooldown predicate. Losing a race surfaces as TooSoon.
func (r *balanceRepository) ClaimDaily(ctx context.Context, discordID string, reward int64, now time.Time) (int64, error) {
	const query = `
        UPDATE users SET coins = coins + $2, last_daily = $3
        WHERE discord_id=$1 AND (last_daily IS NULL OR last_daily <= $4)
        RETURNING coins`
	var coins int64
	err := r.pool.QueryRow(ctx, query, discordID, reward, now, now.Add(-DailyCooldown)).Scan(&coins)
	if err == nil {
		return coins, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	last, lastErr := r.LastDaily(ctx, discordID)
	if lastErr != nil {
		return 0, lastErr
	}
	remaining := DailyCooldown
	if last != nil {
		remaining = DailyCooldown - now.Sub(*last)
	}
	return 0, apperrors.NewTooSoon(remaining)
}

func accountNotFound(discordID string) error {
	return apperrors.NewNotFound("account", map[string]any{"discord_id": discordID})
}
