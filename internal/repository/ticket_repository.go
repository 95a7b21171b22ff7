package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bbn-music/community-bot/internal/domain"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

// TicketRepository encapsulates the ticket channel mapping.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByChannelID(ctx context.Context, channelID string) (*domain.Ticket, error)
	FindOpenByRequester(ctx context.Context, requesterID string) (*domain.Ticket, error)
	UpdateTier(ctx context.Context, id string, tier domain.TicketTier) error
	Close(ctx context.Context, id, closedBy string, at time.Time) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, channel_id, requester_id, requester_tag, reason, tier, created_at, closed_at, closed_by`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.Tier == "" {
		ticket.Tier = domain.TierFirstLevel
	}
	const query = `
        INSERT INTO tickets (id, channel_id, requester_id, requester_tag, reason, tier)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.ChannelID,
		ticket.RequesterID,
		ticket.RequesterTag,
		ticket.Reason,
		ticket.Tier,
	).Scan(&ticket.CreatedAt)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	return err
}

func (r *ticketRepository) GetByChannelID(ctx context.Context, channelID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE channel_id=$1`
	return r.fetchSingle(ctx, query, channelID)
}

func (r *ticketRepository) FindOpenByRequester(ctx context.Context, requesterID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE requester_id=$1 AND closed_at IS NULL`
	return r.fetchSingle(ctx, query, requesterID)
}

func (r *ticketRepository) UpdateTier(ctx context.Context, id string, tier domain.TicketTier) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET tier=$1 WHERE id=$2 AND closed_at IS NULL`, tier, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return nil
}

func (r *ticketRepository) Close(ctx context.Context, id, closedBy string, at time.Time) error {
	const query = `UPDATE tickets SET closed_at=$1, closed_by=$2 WHERE id=$3 AND closed_at IS NULL`
	_, err := r.pool.Exec(ctx, query, at, closedBy, id)
	return err
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ChannelID,
		&ticket.RequesterID,
		&ticket.RequesterTag,
		&ticket.Reason,
		&ticket.Tier,
		&ticket.CreatedAt,
		&ticket.ClosedAt,
		&ticket.ClosedBy,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"lookup": arg})
		}
		return nil, err
	}
	return &ticket, nil
}
