package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ExternalOrderID == "" {
		return fmt.Errorf("event token cannot be empty")
	}

	query := `
		INSERT INTO outbox_events (id, external_order_id, created_at)
		VALUES ($1, $2, $3)
	`
	event.ID = uuid.New()
	event.CreatedAt = time.Now()

	if _, err := tx.ExecContext(ctx, query, event.ID, event.ExternalOrderID, event.CreatedAt); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) DeleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	query := `DELETE FROM outbox_events WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) ClaimPendingTx(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, external_order_id, created_at
		FROM outbox_events
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	var events []*model.OutboxEvent
	if err := tx.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	return events, nil
}
