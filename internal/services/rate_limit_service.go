package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
)

// RateLimitService tracks failed OTP verification attempts per identity and
// enforces the brute-force lockout. The window slides: only failures inside
// the last window count, so a lockout expires on its own.
type RateLimitService struct {
	db database.DB
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB) *RateLimitService {
	return &RateLimitService{
		db: db,
	}
}

// RateLimitConfig holds the lockout policy
type RateLimitConfig struct {
	MaxFailures int           // Failed verifications allowed inside the window
	Window      time.Duration // Sliding window length
}

// DefaultRateLimitConfig returns the default lockout policy:
// 5 failed attempts within 15 minutes locks the identity out.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxFailures: 5,
		Window:      15 * time.Minute,
	}
}

// RateLimitError represents a lockout
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckLockout returns a RateLimitError when the identity has exhausted its
// failure budget for the current window. It is checked before the OTP itself,
// so a locked-out identity gets the same answer whether or not the code would
// have matched and whether or not the account exists.
func (s *RateLimitService) CheckLockout(identity string) error {
	config := DefaultRateLimitConfig()

	count, oldest, err := s.failureCount(identity, config.Window)
	if err != nil {
		return fmt.Errorf("failed to check lockout: %w", err)
	}

	if count >= config.MaxFailures {
		retryAfter := oldest.Add(config.Window)
		return &RateLimitError{
			Message:    "Too many failed attempts. Please try again later.",
			RetryAfter: retryAfter,
		}
	}

	return nil
}

// RecordFailure logs a failed verification attempt for the identity
func (s *RateLimitService) RecordFailure(identity string) error {
	query := `
		INSERT INTO otp_failed_attempts (identity, created_at)
		VALUES ($1, NOW())
	`

	_, err := s.db.Exec(query, identity)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	return nil
}

// ClearFailures drops the identity's failure history, called after a
// successful verification
func (s *RateLimitService) ClearFailures(identity string) error {
	query := `
		DELETE FROM otp_failed_attempts
		WHERE identity = $1
	`

	_, err := s.db.Exec(query, identity)
	if err != nil {
		return fmt.Errorf("failed to clear attempts: %w", err)
	}

	return nil
}

// CleanupExpired removes failure records older than the window
func (s *RateLimitService) CleanupExpired() (int64, error) {
	config := DefaultRateLimitConfig()
	cutoff := time.Now().Add(-config.Window)

	query := `
		DELETE FROM otp_failed_attempts
		WHERE created_at < $1
	`

	result, err := s.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup attempts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// failureCount returns the number of failures inside the window and the
// timestamp of the oldest one
func (s *RateLimitService) failureCount(identity string, window time.Duration) (int, time.Time, error) {
	windowStart := time.Now().Add(-window)

	query := `
		SELECT COUNT(*), COALESCE(MIN(created_at), NOW())
		FROM otp_failed_attempts
		WHERE identity = $1 AND created_at > $2
	`

	var count int
	var oldest time.Time

	err := s.db.QueryRow(query, identity, windowStart).Scan(&count, &oldest)
	if err != nil && err != sql.ErrNoRows {
		return 0, time.Time{}, err
	}

	return count, oldest, nil
}
