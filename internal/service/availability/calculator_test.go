package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentorama/rental-api/internal/model"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func interval(vehicleID uuid.UUID, start, end int) *model.ReservationInterval {
	return &model.ReservationInterval{
		VehicleID: vehicleID,
		StartDate: day(start),
		EndDate:   day(end),
	}
}

func TestFullyBookedTwoVehicleOverlap(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	// Vehicle A booked days 1-3, vehicle B days 2-4: only 2 and 3 are
	// booked on every vehicle.
	dates := FullyBooked(
		[]uuid.UUID{a, b},
		[]*model.ReservationInterval{interval(a, 1, 3), interval(b, 2, 4)},
	)

	require.Len(t, dates, 2)
	assert.Equal(t, day(2), dates[0])
	assert.Equal(t, day(3), dates[1])
}

func TestFullyBookedSingleDayIntervalIsInclusive(t *testing.T) {
	a := uuid.New()

	dates := FullyBooked(
		[]uuid.UUID{a},
		[]*model.ReservationInterval{interval(a, 7, 7)},
	)

	require.Len(t, dates, 1)
	assert.Equal(t, day(7), dates[0])
}

func TestFullyBookedEmptyFleet(t *testing.T) {
	a := uuid.New()
	assert.Empty(t, FullyBooked(nil, []*model.ReservationInterval{interval(a, 1, 3)}))
	assert.Empty(t, FullyBooked([]uuid.UUID{}, nil))
}

func TestFullyBookedNoReservations(t *testing.T) {
	assert.Empty(t, FullyBooked([]uuid.UUID{uuid.New(), uuid.New()}, nil))
}

func TestFullyBookedVehicleWithoutBookingsShortCircuits(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	// b has no bookings, so no date can be fully booked no matter how
	// much a is reserved.
	dates := FullyBooked(
		[]uuid.UUID{a, b},
		[]*model.ReservationInterval{interval(a, 1, 30)},
	)

	assert.Empty(t, dates)
}

func TestFullyBookedIgnoresVehiclesOutsideFleet(t *testing.T) {
	a := uuid.New()
	rented := uuid.New()

	// The rented vehicle is not part of the bookable fleet; its interval
	// must not count toward the intersection.
	dates := FullyBooked(
		[]uuid.UUID{a},
		[]*model.ReservationInterval{interval(a, 5, 6), interval(rented, 1, 31)},
	)

	require.Len(t, dates, 2)
	assert.Equal(t, day(5), dates[0])
	assert.Equal(t, day(6), dates[1])
}

func TestFullyBookedMultipleIntervalsPerVehicle(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	dates := FullyBooked(
		[]uuid.UUID{a, b},
		[]*model.ReservationInterval{
			interval(a, 1, 2),
			interval(a, 10, 12),
			interval(b, 2, 2),
			interval(b, 11, 11),
		},
	)

	require.Len(t, dates, 2)
	assert.Equal(t, day(2), dates[0])
	assert.Equal(t, day(11), dates[1])
}

func TestFullyBookedIntersectionEqualsSetIntersection(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	dates := FullyBooked(
		[]uuid.UUID{a, b, c},
		[]*model.ReservationInterval{
			interval(a, 1, 10),
			interval(b, 4, 10),
			interval(c, 1, 6),
		},
	)

	// [1,10] ∩ [4,10] ∩ [1,6] = [4,6]
	require.Len(t, dates, 3)
	assert.Equal(t, day(4), dates[0])
	assert.Equal(t, day(5), dates[1])
	assert.Equal(t, day(6), dates[2])
}

func TestFullyBookedNormalizesTimesOfDay(t *testing.T) {
	a := uuid.New()

	iv := &model.ReservationInterval{
		VehicleID: a,
		StartDate: time.Date(2026, time.March, 3, 14, 30, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC),
	}

	dates := FullyBooked([]uuid.UUID{a}, []*model.ReservationInterval{iv})

	require.Len(t, dates, 2)
	assert.Equal(t, day(3), dates[0])
	assert.Equal(t, day(4), dates[1])
}
