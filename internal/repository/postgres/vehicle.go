package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/internal/repository"
	"github.com/rentorama/rental-api/pkg/errors"
)

type vehicleRepository struct {
	BaseRepository
}

func NewVehicleRepository(base BaseRepository) repository.VehicleRepository {
	return &vehicleRepository{base}
}

func (r *vehicleRepository) Get(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	query := `
		SELECT id, model_id, plate, availability, created_at
		FROM vehicles
		WHERE id = $1
	`
	var v model.Vehicle
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("vehicle", err)
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return &v, nil
}

func (r *vehicleRepository) ListAvailableByModel(ctx context.Context, modelID uuid.UUID) ([]*model.Vehicle, error) {
	query := `
		SELECT id, model_id, plate, availability, created_at
		FROM vehicles
		WHERE model_id = $1 AND availability = $2
	`
	var vehicles []*model.Vehicle
	if err := r.db.SelectContext(ctx, &vehicles, query, modelID, model.AvailabilityAvailable); err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *vehicleRepository) UpdateAvailabilityTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, availability model.Availability) error {
	query := `UPDATE vehicles SET availability = $1 WHERE id = $2`
	result, err := tx.ExecContext(ctx, query, availability, id)
	if err != nil {
		return fmt.Errorf("failed to update vehicle availability: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("vehicle", nil)
	}
	return nil
}
