package services

import (
	"fmt"
	"time"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

// AnalyticsService rolls the day's counters and record counts into immutable
// snapshot documents. Both jobs upsert by (type, period), so a double-fire or
// manual re-run overwrites the same snapshot instead of duplicating it.
type AnalyticsService struct {
	businesses *database.BusinessRepository
	counters   *database.CounterRepository
	snapshots  *database.SnapshotRepository
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(
	businesses *database.BusinessRepository,
	counters *database.CounterRepository,
	snapshots *database.SnapshotRepository,
) *AnalyticsService {
	return &AnalyticsService{
		businesses: businesses,
		counters:   counters,
		snapshots:  snapshots,
	}
}

// RunDaily builds the daily snapshot for the given calendar day. Totals and
// breakdowns are gauges read from the source records at run time; the four
// flow counts come from the day's counters.
func (s *AnalyticsService) RunDaily(day time.Time) (*models.AnalyticsSnapshot, error) {
	total, pending, approved, rejected, err := s.businesses.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("daily aggregation failed: %w", err)
	}

	byCategory, err := s.businesses.CountByCategory()
	if err != nil {
		return nil, fmt.Errorf("daily aggregation failed: %w", err)
	}

	byRegion, err := s.businesses.CountByRegion()
	if err != nil {
		return nil, fmt.Errorf("daily aggregation failed: %w", err)
	}

	genderSplit, err := s.businesses.CountByGenderSummary()
	if err != nil {
		return nil, fmt.Errorf("daily aggregation failed: %w", err)
	}

	registrations, subscribers, feedback, tickets, err := s.counters.GetDailyFlows(day)
	if err != nil {
		return nil, fmt.Errorf("daily aggregation failed: %w", err)
	}

	snap := &models.AnalyticsSnapshot{
		Type:             models.SnapshotDaily,
		Period:           day.Format(models.DateLayout),
		TotalBusinesses:  total,
		PendingCount:     pending,
		ApprovedCount:    approved,
		RejectedCount:    rejected,
		ByCategory:       byCategory,
		ByRegion:         byRegion,
		GenderSplit:      genderSplit,
		NewRegistrations: registrations,
		NewSubscribers:   subscribers,
		FeedbackCount:    feedback,
		TicketCount:      tickets,
	}

	if err := s.snapshots.Upsert(snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// RunMonthly folds the month's daily snapshots into one monthly snapshot.
// Flow counts are summed across the days; the category/region/gender
// breakdowns and status totals are gauges, so the latest daily snapshot's
// values are carried over instead of summed. A month with no daily
// snapshots produces nothing.
func (s *AnalyticsService) RunMonthly(month time.Time) (*models.AnalyticsSnapshot, error) {
	dailies, err := s.snapshots.ListDailyInMonth(month)
	if err != nil {
		return nil, fmt.Errorf("monthly aggregation failed: %w", err)
	}
	if len(dailies) == 0 {
		return nil, nil
	}

	latest := dailies[len(dailies)-1]

	snap := &models.AnalyticsSnapshot{
		Type:            models.SnapshotMonthly,
		Period:          month.Format(models.MonthLayout),
		TotalBusinesses: latest.TotalBusinesses,
		PendingCount:    latest.PendingCount,
		ApprovedCount:   latest.ApprovedCount,
		RejectedCount:   latest.RejectedCount,
		ByCategory:      latest.ByCategory,
		ByRegion:        latest.ByRegion,
		GenderSplit:     latest.GenderSplit,
	}

	for _, daily := range dailies {
		snap.NewRegistrations += daily.NewRegistrations
		snap.NewSubscribers += daily.NewSubscribers
		snap.FeedbackCount += daily.FeedbackCount
		snap.TicketCount += daily.TicketCount
	}

	if err := s.snapshots.Upsert(snap); err != nil {
		return nil, err
	}

	return snap, nil
}
