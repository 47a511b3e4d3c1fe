package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

// MaxCounterBatchSize bounds the number of increment operations committed in
// a single transaction. Larger batches are split into sequential
// transactions.
const MaxCounterBatchSize = 500

// CounterRepository is a keyed set of atomically incrementable integers.
// Each increment is a single-statement read-modify-write, so concurrent
// writers never lose updates; the value floors at zero.
type CounterRepository struct {
	db DB
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db DB) *CounterRepository {
	return &CounterRepository{
		db: db,
	}
}

// Increment atomically adds delta to the counter stored under key, creating
// it if absent. The stored value never goes below zero.
func (r *CounterRepository) Increment(key string, delta int64) error {
	query := `
		INSERT INTO counters (key, value, updated_at)
		VALUES ($1, GREATEST(0, $2), NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = GREATEST(0, counters.value + $2), updated_at = NOW()
	`

	_, err := r.db.Exec(query, key, delta)
	if err != nil {
		return fmt.Errorf("failed to increment counter %s: %w", key, err)
	}

	return nil
}

// IncrementMany applies a set of counter deltas. Operations are committed in
// transaction batches of at most MaxCounterBatchSize; overflow continues in
// the next batch, so a failure preserves already-committed batches.
func (r *CounterRepository) IncrementMany(deltas []models.CounterDelta) error {
	query := `
		INSERT INTO counters (key, value, updated_at)
		VALUES ($1, GREATEST(0, $2), NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = GREATEST(0, counters.value + $2), updated_at = NOW()
	`

	for start := 0; start < len(deltas); start += MaxCounterBatchSize {
		end := start + MaxCounterBatchSize
		if end > len(deltas) {
			end = len(deltas)
		}

		tx, err := r.db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin counter batch: %w", err)
		}

		for _, d := range deltas[start:end] {
			if _, err := tx.Exec(query, d.Key, d.Delta); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to increment counter %s: %w", d.Key, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit counter batch: %w", err)
		}
	}

	return nil
}

// Get returns the current value of a counter, or zero if it does not exist
func (r *CounterRepository) Get(key string) (int64, error) {
	query := `SELECT value FROM counters WHERE key = $1`

	var value int64
	err := r.db.QueryRow(query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}

	return value, nil
}

// Set overwrites a counter with an absolute value. Used by the
// reconciliation job to heal drift from partial multi-counter updates.
func (r *CounterRepository) Set(key string, value int64) error {
	query := `
		INSERT INTO counters (key, value, updated_at)
		VALUES ($1, GREATEST(0, $2), NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = GREATEST(0, $2), updated_at = NOW()
	`

	_, err := r.db.Exec(query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set counter %s: %w", key, err)
	}

	return nil
}

// ListKeysByPrefix returns every counter key starting with the prefix
func (r *CounterRepository) ListKeysByPrefix(prefix string) ([]string, error) {
	query := `SELECT key FROM counters WHERE key LIKE $1 ORDER BY key`

	rows, err := r.db.Query(query, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan counter key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read counter keys: %w", err)
	}

	return keys, nil
}

// GetDailyFlows reads the four flow counters recorded for the given day
func (r *CounterRepository) GetDailyFlows(day time.Time) (registrations, subscribers, feedback, tickets int64, err error) {
	registrations, err = r.Get(models.RegistrationsCounterKey(day))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	subscribers, err = r.Get(models.SubscribersCounterKey(day))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	feedback, err = r.Get(models.FeedbackCounterKey(day))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	tickets, err = r.Get(models.TicketsCounterKey(day))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return registrations, subscribers, feedback, tickets, nil
}
