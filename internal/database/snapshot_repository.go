package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

// ErrSnapshotNotFound indicates no snapshot exists for the given period
var ErrSnapshotNotFound = fmt.Errorf("analytics snapshot not found")

// SnapshotRepository handles analytics snapshot storage. Snapshots are
// immutable once written; re-running an aggregation for the same period
// upserts the same (type, period) key instead of creating a duplicate.
type SnapshotRepository struct {
	db DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db DB) *SnapshotRepository {
	return &SnapshotRepository{
		db: db,
	}
}

// Upsert writes a snapshot, replacing any previous run for the same period
func (r *SnapshotRepository) Upsert(snap *models.AnalyticsSnapshot) error {
	snap.GeneratedAt = time.Now()

	query := `
		INSERT INTO analytics_snapshots (
			type, period, total_businesses, pending_count, approved_count,
			rejected_count, by_category, by_region, gender_split,
			new_registrations, new_subscribers, feedback_count, ticket_count,
			generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (type, period)
		DO UPDATE SET
			total_businesses = EXCLUDED.total_businesses,
			pending_count = EXCLUDED.pending_count,
			approved_count = EXCLUDED.approved_count,
			rejected_count = EXCLUDED.rejected_count,
			by_category = EXCLUDED.by_category,
			by_region = EXCLUDED.by_region,
			gender_split = EXCLUDED.gender_split,
			new_registrations = EXCLUDED.new_registrations,
			new_subscribers = EXCLUDED.new_subscribers,
			feedback_count = EXCLUDED.feedback_count,
			ticket_count = EXCLUDED.ticket_count,
			generated_at = EXCLUDED.generated_at
	`

	_, err := r.db.Exec(
		query,
		snap.Type,
		snap.Period,
		snap.TotalBusinesses,
		snap.PendingCount,
		snap.ApprovedCount,
		snap.RejectedCount,
		snap.ByCategory,
		snap.ByRegion,
		snap.GenderSplit,
		snap.NewRegistrations,
		snap.NewSubscribers,
		snap.FeedbackCount,
		snap.TicketCount,
		snap.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s snapshot for %s: %w", snap.Type, snap.Period, err)
	}

	return nil
}

// GetByPeriod retrieves a snapshot by type and period key
func (r *SnapshotRepository) GetByPeriod(snapshotType, period string) (*models.AnalyticsSnapshot, error) {
	query := `
		SELECT type, period, total_businesses, pending_count, approved_count,
		       rejected_count, by_category, by_region, gender_split,
		       new_registrations, new_subscribers, feedback_count, ticket_count,
		       generated_at
		FROM analytics_snapshots
		WHERE type = $1 AND period = $2
	`

	var snap models.AnalyticsSnapshot
	err := r.db.QueryRow(query, snapshotType, period).Scan(
		&snap.Type,
		&snap.Period,
		&snap.TotalBusinesses,
		&snap.PendingCount,
		&snap.ApprovedCount,
		&snap.RejectedCount,
		&snap.ByCategory,
		&snap.ByRegion,
		&snap.GenderSplit,
		&snap.NewRegistrations,
		&snap.NewSubscribers,
		&snap.FeedbackCount,
		&snap.TicketCount,
		&snap.GeneratedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &snap, nil
}

// GetLatest retrieves the most recent snapshot of the given type
func (r *SnapshotRepository) GetLatest(snapshotType string) (*models.AnalyticsSnapshot, error) {
	query := `
		SELECT period FROM analytics_snapshots
		WHERE type = $1
		ORDER BY period DESC
		LIMIT 1
	`

	var period string
	err := r.db.QueryRow(query, snapshotType).Scan(&period)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get latest snapshot period: %w", err)
	}

	return r.GetByPeriod(snapshotType, period)
}

// ListDailyInMonth returns the daily snapshots whose period falls within the
// given month, ordered by period ascending
func (r *SnapshotRepository) ListDailyInMonth(month time.Time) ([]models.AnalyticsSnapshot, error) {
	monthPrefix := month.Format(models.MonthLayout)

	query := `
		SELECT type, period, total_businesses, pending_count, approved_count,
		       rejected_count, by_category, by_region, gender_split,
		       new_registrations, new_subscribers, feedback_count, ticket_count,
		       generated_at
		FROM analytics_snapshots
		WHERE type = $1 AND period LIKE $2
		ORDER BY period ASC
	`

	rows, err := r.db.Query(query, models.SnapshotDaily, monthPrefix+"-%")
	if err != nil {
		return nil, fmt.Errorf("failed to list daily snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.AnalyticsSnapshot
	for rows.Next() {
		var snap models.AnalyticsSnapshot
		if err := rows.Scan(
			&snap.Type,
			&snap.Period,
			&snap.TotalBusinesses,
			&snap.PendingCount,
			&snap.ApprovedCount,
			&snap.RejectedCount,
			&snap.ByCategory,
			&snap.ByRegion,
			&snap.GenderSplit,
			&snap.NewRegistrations,
			&snap.NewSubscribers,
			&snap.FeedbackCount,
			&snap.TicketCount,
			&snap.GeneratedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily snapshots: %w", err)
	}

	return snapshots, nil
}
