package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bbn-music/community-bot/internal/domain"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

// UserRepository reads linked web accounts and their logins.
type UserRepository interface {
	FindByDiscordID(ctx context.Context, discordID string) (*domain.User, error)
	LastLogin(ctx context.Context, discordID string) (*domain.LoginInfo, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) FindByDiscordID(ctx context.Context, discordID string) (*domain.User, error) {
	const query = `
        SELECT discord_id, account_id::text, coins, last_daily, created_at
        FROM users WHERE discord_id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, discordID).Scan(
		&user.DiscordID,
		&user.AccountID,
		&user.Coins,
		&user.LastDaily,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"discord_id": discordID})
		}
		return nil, err
	}
	return &user, nil
}

// LastLogin returns the newest login, or nil when the account never logged in.
func (r *userRepository) LastLogin(ctx context.Context, discordID string) (*domain.LoginInfo, error) {
	const query = `
        SELECT ip, user_agent, location, time_zone, created_at
        FROM logins WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`

	var login domain.LoginInfo
	if err := r.pool.QueryRow(ctx, query, discordID).Scan(
		&login.IP,
		&login.UserAgent,
		&login.Location,
		&login.TimeZone,
		&login.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &login, nil
}
