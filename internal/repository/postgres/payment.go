package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/internal/repository"
	"github.com/rentorama/rental-api/pkg/errors"
)

type paymentRepository struct {
	BaseRepository
}

func NewPaymentRepository(base BaseRepository) repository.PaymentRepository {
	return &paymentRepository{base}
}

func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, reservation_id, status, amount, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	p.ID = uuid.New()
	p.Status = model.PaymentStatusCreated
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.ReservationID, p.Status, p.Amount, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	query := `
		SELECT id, reservation_id, status, amount, external_order_id, created_at, updated_at
		FROM payments
		WHERE id = $1
	`
	var p model.Payment
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("payment", err)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

func (r *paymentRepository) GetByExternalOrderID(ctx context.Context, token string) (*model.Payment, error) {
	query := `
		SELECT id, reservation_id, status, amount, external_order_id, created_at, updated_at
		FROM payments
		WHERE external_order_id = $1
	`
	var p model.Payment
	if err := r.db.GetContext(ctx, &p, query, token); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("payment", err)
		}
		return nil, fmt.Errorf("failed to get payment by token: %w", err)
	}
	return &p, nil
}

func (r *paymentRepository) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*model.Payment, error) {
	query := `
		SELECT id, reservation_id, status, amount, external_order_id, created_at, updated_at
		FROM payments
		WHERE reservation_id = $1
		ORDER BY created_at ASC
	`
	var payments []*model.Payment
	if err := r.db.SelectContext(ctx, &payments, query, reservationID); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) SetExternalOrder(ctx context.Context, id uuid.UUID, token string) error {
	// The token guard makes the write first-wins: an already-set token is
	// never overwritten.
	query := `
		UPDATE payments
		SET external_order_id = $1, status = $2, updated_at = $3
		WHERE id = $4 AND external_order_id IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, token, model.PaymentStatusPending, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set external order: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Conflict("payment already bound to an external order", nil)
	}
	return nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	return r.updateStatus(ctx, r.db, id, status)
}

func (r *paymentRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.PaymentStatus) error {
	return r.updateStatus(ctx, tx, id, status)
}

func (r *paymentRepository) updateStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status model.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := q.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("payment", nil)
	}
	return nil
}
