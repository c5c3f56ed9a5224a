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

type reservationRepository struct {
	BaseRepository
}

func NewReservationRepository(base BaseRepository) repository.ReservationRepository {
	return &reservationRepository{base}
}

func (r *reservationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `
		SELECT id, customer_id, employee_id, vehicle_id, status,
		       start_date, end_date, reservation_date, payment_amount, version
		FROM reservations
		WHERE id = $1
	`
	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("reservation", err)
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &res, nil
}

// UpdateStatusVersioned is the single write path for reservation status. The
// version predicate turns a stale read into zero affected rows, which is
// surfaced as a conflict instead of a silent overwrite.
func (r *reservationRepository) UpdateStatusVersioned(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.ReservationStatus, version int64) error {
	query := `
		UPDATE reservations
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`
	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, status, time.Now(), id, version)
	} else {
		result, err = r.db.ExecContext(ctx, query, status, time.Now(), id, version)
	}
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Conflict("reservation was modified concurrently", nil)
	}
	return nil
}

func (r *reservationRepository) ListIntervalsByModel(ctx context.Context, modelID uuid.UUID) ([]*model.ReservationInterval, error) {
	query := `
		SELECT r.vehicle_id, r.start_date, r.end_date
		FROM reservations r
		JOIN vehicles v ON v.id = r.vehicle_id
		WHERE v.model_id = $1
	`
	var intervals []*model.ReservationInterval
	if err := r.db.SelectContext(ctx, &intervals, query, modelID); err != nil {
		return nil, fmt.Errorf("failed to list reservation intervals: %w", err)
	}
	return intervals, nil
}
