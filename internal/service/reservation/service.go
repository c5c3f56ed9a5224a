package reservation

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/internal/repository"
	"github.com/rentorama/rental-api/pkg/errors"
	"github.com/rentorama/rental-api/pkg/logger"
)

// CalendarInvalidator drops cached fully-booked dates for a car model after
// a reservation write touches it.
type CalendarInvalidator interface {
	Invalidate(ctx context.Context, modelID uuid.UUID) error
}

// Service is the single write path for reservation status. Interactive edits
// and the reconciliation consumer both go through it, so optimistic
// concurrency and the availability-flag rules apply uniformly.
type Service struct {
	reservations repository.ReservationRepository
	vehicles     repository.VehicleRepository
	calendar     CalendarInvalidator
	logger       *logger.Logger
	// casAttempts bounds the re-read loop used when applying payment
	// outcomes against concurrent edits.
	casAttempts int
}

func NewService(
	reservations repository.ReservationRepository,
	vehicles repository.VehicleRepository,
	calendar CalendarInvalidator,
	casAttempts int,
	logger *logger.Logger,
) *Service {
	if casAttempts <= 0 {
		casAttempts = 3
	}
	return &Service{
		reservations: reservations,
		vehicles:     vehicles,
		calendar:     calendar,
		casAttempts:  casAttempts,
		logger:       logger,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.reservations.Get(ctx, id)
}

// UpdateStatus applies an interactive status edit. The caller supplies the
// version it read; a stale version is rejected as a conflict, never merged.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ReservationStatus, version int64) error {
	if !status.Valid() {
		return errors.Validation("unknown reservation status")
	}

	res, err := s.reservations.Get(ctx, id)
	if err != nil {
		return err
	}
	if res.Version != version {
		return errors.Conflict("reservation version is stale", nil)
	}

	return s.applyStatus(ctx, res, status, version)
}

// ApplyPaymentOutcome folds a reconciled payment outcome into the
// reservation. It is idempotent: a redelivery that finds the reservation
// already at the target status is a no-op. A version conflict retries by
// re-reading rather than failing the caller.
func (s *Service) ApplyPaymentOutcome(ctx context.Context, reservationID uuid.UUID, status model.ReservationStatus) error {
	if !status.Valid() {
		return errors.Validation("unknown reservation status")
	}

	var lastErr error
	for attempt := 0; attempt < s.casAttempts; attempt++ {
		res, err := s.reservations.Get(ctx, reservationID)
		if err != nil {
			return err
		}

		if res.Status == status {
			s.logger.Debug("payment outcome already applied",
				"reservation_id", reservationID.String(),
				"status", string(status))
			return nil
		}

		if res.Status.IsTerminal() {
			// The event carries no sequence number, so a late delivery is
			// indistinguishable from a real change. Last write wins.
			s.logger.Warn("payment outcome for reservation in another terminal state",
				"reservation_id", reservationID.String(),
				"current_status", string(res.Status),
				"target_status", string(status))
		}

		err = s.applyStatus(ctx, res, status, res.Version)
		if err == nil {
			return nil
		}
		if errors.KindOf(err) != errors.KindConflict {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// applyStatus performs the versioned update and keeps the vehicle
// availability flag consistent in the same transaction.
func (s *Service) applyStatus(ctx context.Context, res *model.Reservation, status model.ReservationStatus, version int64) error {
	err := s.reservations.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.reservations.UpdateStatusVersioned(ctx, tx, res.ID, status, version); err != nil {
			return err
		}

		switch status {
		case model.ReservationStatusOnCourse:
			return s.vehicles.UpdateAvailabilityTx(ctx, tx, res.VehicleID, model.AvailabilityRented)
		case model.ReservationStatusTerminated:
			return s.vehicles.UpdateAvailabilityTx(ctx, tx, res.VehicleID, model.AvailabilityAvailable)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("reservation status updated",
		"reservation_id", res.ID.String(),
		"status", string(status))

	s.invalidateCalendar(ctx, res.VehicleID)
	return nil
}

// invalidateCalendar is best effort: a stale calendar entry expires with its
// TTL anyway.
func (s *Service) invalidateCalendar(ctx context.Context, vehicleID uuid.UUID) {
	if s.calendar == nil {
		return
	}
	vehicle, err := s.vehicles.Get(ctx, vehicleID)
	if err != nil {
		s.logger.Error(err, "failed to resolve vehicle for calendar invalidation",
			"vehicle_id", vehicleID.String())
		return
	}
	if err := s.calendar.Invalidate(ctx, vehicle.ModelID); err != nil {
		s.logger.Error(err, "failed to invalidate calendar cache",
			"model_id", vehicle.ModelID.String())
	}
}
