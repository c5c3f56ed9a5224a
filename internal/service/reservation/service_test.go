package reservation

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/pkg/errors"
	"github.com/rentorama/rental-api/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

type fakeReservationRepo struct {
	reservations map[uuid.UUID]*model.Reservation
	// conflictTimes simulates a concurrent editor landing between the read
	// and the versioned update: the next n updates bump the stored version
	// and fail with a conflict.
	conflictTimes int
	gets          int
	updates       int
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[uuid.UUID]*model.Reservation)}
}

func (r *fakeReservationRepo) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (r *fakeReservationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	res, ok := r.reservations[id]
	if !ok {
		return nil, errors.NotFound("reservation", nil)
	}
	r.gets++
	clone := *res
	return &clone, nil
}

func (r *fakeReservationRepo) UpdateStatusVersioned(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.ReservationStatus, version int64) error {
	res, ok := r.reservations[id]
	if !ok {
		return errors.NotFound("reservation", nil)
	}
	if r.conflictTimes > 0 {
		r.conflictTimes--
		res.Version++
		return errors.Conflict("reservation version is stale", nil)
	}
	if res.Version != version {
		return errors.Conflict("reservation version is stale", nil)
	}
	res.Status = status
	res.Version++
	r.updates++
	return nil
}

func (r *fakeReservationRepo) ListIntervalsByModel(ctx context.Context, modelID uuid.UUID) ([]*model.ReservationInterval, error) {
	return nil, nil
}

type fakeVehicleRepo struct {
	vehicles     map[uuid.UUID]*model.Vehicle
	availability map[uuid.UUID]model.Availability
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{
		vehicles:     make(map[uuid.UUID]*model.Vehicle),
		availability: make(map[uuid.UUID]model.Availability),
	}
}

func (r *fakeVehicleRepo) Get(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return nil, errors.NotFound("vehicle", nil)
	}
	clone := *v
	return &clone, nil
}

func (r *fakeVehicleRepo) ListAvailableByModel(ctx context.Context, modelID uuid.UUID) ([]*model.Vehicle, error) {
	return nil, nil
}

func (r *fakeVehicleRepo) UpdateAvailabilityTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, availability model.Availability) error {
	if _, ok := r.vehicles[id]; !ok {
		return errors.NotFound("vehicle", nil)
	}
	r.availability[id] = availability
	return nil
}

type fakeInvalidator struct {
	invalidated []uuid.UUID
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, modelID uuid.UUID) error {
	f.invalidated = append(f.invalidated, modelID)
	return nil
}

type fixture struct {
	svc          *Service
	reservations *fakeReservationRepo
	vehicles     *fakeVehicleRepo
	calendar     *fakeInvalidator
	reservation  *model.Reservation
	vehicle      *model.Vehicle
}

func newFixture(t *testing.T, status model.ReservationStatus) *fixture {
	t.Helper()

	reservations := newFakeReservationRepo()
	vehicles := newFakeVehicleRepo()
	calendar := &fakeInvalidator{}

	vehicle := &model.Vehicle{
		ID:           uuid.New(),
		ModelID:      uuid.New(),
		Plate:        "AB-123-CD",
		Availability: model.AvailabilityAvailable,
	}
	vehicles.vehicles[vehicle.ID] = vehicle

	res := &model.Reservation{
		ID:        uuid.New(),
		VehicleID: vehicle.ID,
		Status:    status,
		Version:   1,
	}
	reservations.reservations[res.ID] = res

	return &fixture{
		svc:          NewService(reservations, vehicles, calendar, 3, testLogger()),
		reservations: reservations,
		vehicles:     vehicles,
		calendar:     calendar,
		reservation:  res,
		vehicle:      vehicle,
	}
}

func TestUpdateStatusRejectsStaleVersion(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPending)

	err := f.svc.UpdateStatus(context.Background(), f.reservation.ID, model.ReservationStatusApproved, 0)
	require.Error(t, err)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
	assert.Equal(t, model.ReservationStatusPending, f.reservations.reservations[f.reservation.ID].Status)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPending)

	err := f.svc.UpdateStatus(context.Background(), f.reservation.ID, model.ReservationStatus("SHIPPED"), 1)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestUpdateStatusAppliesAndBumpsVersion(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPending)

	require.NoError(t, f.svc.UpdateStatus(context.Background(), f.reservation.ID, model.ReservationStatusApproved, 1))

	stored := f.reservations.reservations[f.reservation.ID]
	assert.Equal(t, model.ReservationStatusApproved, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
}

func TestUpdateStatusOnCourseRentsVehicle(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPayed)

	require.NoError(t, f.svc.UpdateStatus(context.Background(), f.reservation.ID, model.ReservationStatusOnCourse, 1))

	assert.Equal(t, model.AvailabilityRented, f.vehicles.availability[f.vehicle.ID])
}

func TestUpdateStatusTerminatedFreesVehicle(t *testing.T) {
	f := newFixture(t, model.ReservationStatusOnCourse)

	require.NoError(t, f.svc.UpdateStatus(context.Background(), f.reservation.ID, model.ReservationStatusTerminated, 1))

	assert.Equal(t, model.AvailabilityAvailable, f.vehicles.availability[f.vehicle.ID])
}

func TestUpdateStatusInvalidatesCalendar(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPending)

	require.NoError(t, f.svc.UpdateStatus(context.Background(), f.reservation.ID, model.ReservationStatusApproved, 1))

	require.Len(t, f.calendar.invalidated, 1)
	assert.Equal(t, f.vehicle.ModelID, f.calendar.invalidated[0])
}

func TestApplyPaymentOutcomeIsIdempotent(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPayed)

	require.NoError(t, f.svc.ApplyPaymentOutcome(context.Background(), f.reservation.ID, model.ReservationStatusPayed))

	stored := f.reservations.reservations[f.reservation.ID]
	assert.Equal(t, int64(1), stored.Version, "a redelivered outcome must not rewrite the row")
	assert.Zero(t, f.reservations.updates)
	assert.Empty(t, f.calendar.invalidated)
}

func TestApplyPaymentOutcomeAppliesOutcome(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPending)

	require.NoError(t, f.svc.ApplyPaymentOutcome(context.Background(), f.reservation.ID, model.ReservationStatusPayed))

	stored := f.reservations.reservations[f.reservation.ID]
	assert.Equal(t, model.ReservationStatusPayed, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
}

func TestApplyPaymentOutcomeRetriesOnVersionConflict(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPending)
	// A concurrent edit lands between the first read and its update; the
	// retry re-reads the advanced version and succeeds.
	f.reservations.conflictTimes = 1

	require.NoError(t, f.svc.ApplyPaymentOutcome(context.Background(), f.reservation.ID, model.ReservationStatusPayed))

	stored := f.reservations.reservations[f.reservation.ID]
	assert.Equal(t, model.ReservationStatusPayed, stored.Status)
	assert.GreaterOrEqual(t, f.reservations.gets, 2)
}

func TestApplyPaymentOutcomeGivesUpAfterBoundedAttempts(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPending)
	f.reservations.conflictTimes = 100

	err := f.svc.ApplyPaymentOutcome(context.Background(), f.reservation.ID, model.ReservationStatusPayed)
	require.Error(t, err)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
}

func TestApplyPaymentOutcomeOverridesTerminalState(t *testing.T) {
	f := newFixture(t, model.ReservationStatusTerminated)

	require.NoError(t, f.svc.ApplyPaymentOutcome(context.Background(), f.reservation.ID, model.ReservationStatusPaymentRefused))

	stored := f.reservations.reservations[f.reservation.ID]
	assert.Equal(t, model.ReservationStatusPaymentRefused, stored.Status)
}

func TestApplyPaymentOutcomeUnknownReservation(t *testing.T) {
	f := newFixture(t, model.ReservationStatusPending)

	err := f.svc.ApplyPaymentOutcome(context.Background(), uuid.New(), model.ReservationStatusPayed)
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}
