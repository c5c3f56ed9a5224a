package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rentorama/rental-api/internal/repository"
	"github.com/rentorama/rental-api/pkg/logger"
)

// Service answers calendar-availability queries. Results are cached in redis
// with a short TTL because the computation walks every reservation of the
// model; reservation writes invalidate the key.
type Service struct {
	vehicles     repository.VehicleRepository
	reservations repository.ReservationRepository
	cache        *redis.Client
	cacheTTL     time.Duration
	logger       *logger.Logger
}

func NewService(
	vehicles repository.VehicleRepository,
	reservations repository.ReservationRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger *logger.Logger,
) *Service {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{
		vehicles:     vehicles,
		reservations: reservations,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

func cacheKey(modelID uuid.UUID) string {
	return fmt.Sprintf("calendar:fully-booked:%s", modelID)
}

// FullyBookedDates returns the dates on which every available vehicle of the
// model is already reserved, sorted ascending.
func (s *Service) FullyBookedDates(ctx context.Context, modelID uuid.UUID) ([]time.Time, error) {
	if cached, ok := s.fromCache(ctx, modelID); ok {
		return cached, nil
	}

	vehicles, err := s.vehicles.ListAvailableByModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	fleet := make([]uuid.UUID, 0, len(vehicles))
	for _, v := range vehicles {
		fleet = append(fleet, v.ID)
	}

	intervals, err := s.reservations.ListIntervalsByModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	dates := FullyBooked(fleet, intervals)
	s.toCache(ctx, modelID, dates)
	return dates, nil
}

// Invalidate drops the cached calendar for a model. It satisfies the
// reservation service's CalendarInvalidator.
func (s *Service) Invalidate(ctx context.Context, modelID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cacheKey(modelID)).Err()
}

func (s *Service) fromCache(ctx context.Context, modelID uuid.UUID) ([]time.Time, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, cacheKey(modelID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Error(err, "calendar cache read failed", "model_id", modelID.String())
		}
		return nil, false
	}
	var days []string
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, false
	}
	dates := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := time.Parse(dayLayout, d)
		if err != nil {
			return nil, false
		}
		dates = append(dates, t)
	}
	return dates, true
}

func (s *Service) toCache(ctx context.Context, modelID uuid.UUID, dates []time.Time) {
	if s.cache == nil {
		return
	}
	days := make([]string, 0, len(dates))
	for _, d := range dates {
		days = append(days, d.Format(dayLayout))
	}
	raw, err := json.Marshal(days)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(modelID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Error(err, "calendar cache write failed", "model_id", modelID.String())
	}
}
