package availability

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rentorama/rental-api/internal/model"
)

const dayLayout = "2006-01-02"

// FullyBooked computes the calendar dates on which every vehicle of the
// bookable fleet is reserved. Intervals are closed on both ends: a one-day
// reservation contributes exactly its start day. Intervals for vehicles
// outside the fleet are ignored, and an empty fleet yields no dates.
func FullyBooked(fleet []uuid.UUID, intervals []*model.ReservationInterval) []time.Time {
	if len(fleet) == 0 {
		return nil
	}

	inFleet := make(map[uuid.UUID]struct{}, len(fleet))
	for _, id := range fleet {
		inFleet[id] = struct{}{}
	}

	bookedDays := make(map[uuid.UUID]map[string]struct{})
	for _, iv := range intervals {
		if _, ok := inFleet[iv.VehicleID]; !ok {
			continue
		}
		days := bookedDays[iv.VehicleID]
		if days == nil {
			days = make(map[string]struct{})
			bookedDays[iv.VehicleID] = days
		}
		for day := truncateDay(iv.StartDate); !day.After(truncateDay(iv.EndDate)); day = day.AddDate(0, 0, 1) {
			days[day.Format(dayLayout)] = struct{}{}
		}
	}

	// A vehicle with no bookings at all means no date can be fully booked.
	if len(bookedDays) < len(fleet) {
		return nil
	}

	var intersection map[string]struct{}
	for _, days := range bookedDays {
		if intersection == nil {
			intersection = make(map[string]struct{}, len(days))
			for day := range days {
				intersection[day] = struct{}{}
			}
			continue
		}
		for day := range intersection {
			if _, ok := days[day]; !ok {
				delete(intersection, day)
			}
		}
		if len(intersection) == 0 {
			return nil
		}
	}

	result := make([]time.Time, 0, len(intersection))
	for day := range intersection {
		t, err := time.Parse(dayLayout, day)
		if err != nil {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
