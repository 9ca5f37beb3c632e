package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// AnalyticsRepository describes the aggregations required by AnalyticsService.
type AnalyticsRepository interface {
	CountBy(ctx context.Context, schoolID, yearID string, dim models.AnalyticsDimension) ([]models.WorkloadBucket, error)
	RoomBookings(ctx context.Context, schoolID, yearID string) ([]models.RoomUtilization, error)
	CountTeachingSlots(ctx context.Context, schoolID, yearID string) (int, error)
}

// AnalyticsService provides read-only workload and utilization views over the booking ledger.
type AnalyticsService struct {
	repo    AnalyticsRepository
	years   yearGate
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, years academicYearReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, years: yearGate{years: years}, cache: cache, metrics: metrics, logger: logger}
}

// Workload counts the year's entries grouped by the requested dimension, teacher by default.
// Room utilization is attached to every answer. The boolean reports a cache hit.
func (s *AnalyticsService) Workload(ctx context.Context, schoolID, yearID string, query dto.AnalyticsQuery) (*models.TimetableAnalytics, bool, error) {
	dim := models.AnalyticsByTeacher
	if query.GroupBy != "" {
		dim = models.AnalyticsDimension(query.GroupBy)
	}
	if !dim.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("groupBy: unsupported dimension %q", query.GroupBy))
	}
	if _, err := s.years.load(ctx, schoolID, yearID); err != nil {
		return nil, false, err
	}

	key := TimetableKey(schoolID, yearID, "analytics", string(dim))
	return remember(ctx, s.cache, key, func() (*models.TimetableAnalytics, error) {
		start := time.Now()
		buckets, err := s.repo.CountBy(ctx, schoolID, yearID, dim)
		if err != nil {
			return nil, internalError(err, "failed to aggregate timetable entries")
		}
		rooms, err := s.repo.RoomBookings(ctx, schoolID, yearID)
		if err != nil {
			return nil, internalError(err, "failed to aggregate room bookings")
		}
		slots, err := s.repo.CountTeachingSlots(ctx, schoolID, yearID)
		if err != nil {
			return nil, internalError(err, "failed to count teaching slots")
		}
		s.metrics.ObserveDBQuery("timetable_analytics", time.Since(start))

		result := &models.TimetableAnalytics{
			AcademicYearID: yearID,
			GroupBy:        dim,
			TeachingSlots:  slots,
			Buckets:        buckets,
			Rooms:          utilization(rooms, slots),
			GeneratedAt:    time.Now().UTC(),
		}
		for _, b := range buckets {
			result.TotalEntries += b.Entries
		}
		s.logger.Debug("timetable analytics computed", zap.String("academic_year_id", yearID), zap.String("group_by", string(dim)))
		return result, nil
	})
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.SystemMetrics {
	return s.metrics.Snapshot()
}

// utilization relates each room's bookings to the weekly teaching slots.
func utilization(rooms []models.RoomUtilization, slots int) []models.RoomUtilization {
	for i := range rooms {
		rooms[i].Capacity = slots
		if slots > 0 {
			rooms[i].Utilization = float64(rooms[i].Booked) / float64(slots)
		}
	}
	return rooms
}
