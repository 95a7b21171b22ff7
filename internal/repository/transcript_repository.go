package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bbn-music/community-bot/internal/domain"
	apperrors "github.com/bbn-music/community-bot/pkg/util/errorutil"
)

// TranscriptRepository archives closed-ticket transcripts.
type TranscriptRepository interface {
	Save(ctx context.Context, transcript *domain.Transcript) error
	GetByID(ctx context.Context, id string) (*domain.Transcript, error)
}

type transcriptRepository struct {
	pool *pgxpool.Pool
}

// NewTranscriptRepository builds repository.
func NewTranscriptRepository(pool *pgxpool.Pool) TranscriptRepository {
	return &transcriptRepository{pool: pool}
}

func (r *transcriptRepository) Save(ctx context.Context, transcript *domain.Transcript) error {
	if transcript.ID == "" {
		transcript.ID = uuid.NewString()
	}
	messages, err := json.Marshal(transcript.Messages)
	if err != nil {
		return fmt.Errorf("encode transcript messages: %w", err)
	}
	const query = `
        INSERT INTO transcripts (id, ticket_id, channel_id, closed, with_label, messages)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		transcript.ID,
		transcript.TicketID,
		transcript.ChannelID,
		transcript.Closed,
		transcript.With,
		messages,
	).Scan(&transcript.CreatedAt)
}

func (r *transcriptRepository) GetByID(ctx context.Context, id string) (*domain.Transcript, error) {
	const query = `
        SELECT id, ticket_id::text, channel_id, closed, with_label, messages, created_at
        FROM transcripts WHERE id=$1`
	var (
		transcript domain.Transcript
		messages   []byte
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&transcript.ID,
		&transcript.TicketID,
		&transcript.ChannelID,
		&transcript.Closed,
		&transcript.With,
		&messages,
		&transcript.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("transcript", map[string]any{"transcript_id": id})
		}
		return nil, err
	}
	if err := json.Unmarshal(messages, &transcript.Messages); err != nil {
		return nil, fmt.Errorf("decode transcript messages: %w", err)
	}
	return &transcript, nil
}
