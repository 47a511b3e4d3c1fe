package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

// ErrAccountNotFound indicates no account exists for the given email
var ErrAccountNotFound = fmt.Errorf("account not found")

// ErrChallengeNotFound indicates no active password reset challenge exists
var ErrChallengeNotFound = fmt.Errorf("password reset challenge not found")

// AccountRepository handles account and password-reset-challenge storage
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

// GetByEmail retrieves an account by email address
func (r *AccountRepository) GetByEmail(email string) (*models.Account, error) {
	query := `
		SELECT id, email, full_name, password_hash, roles, status, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`

	var account models.Account
	err := r.db.QueryRow(query, email).Scan(
		&account.ID,
		&account.Email,
		&account.FullName,
		&account.PasswordHash,
		pq.Array(&account.Roles),
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// UpdatePassword stores a new password hash for the account
func (r *AccountRepository) UpdatePassword(email, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $1, updated_at = NOW()
		WHERE email = $2
	`

	result, err := r.db.Exec(query, passwordHash, email)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// CreateChallenge stores a fresh OTP challenge for the email, invalidating
// any previous unconsumed challenge so only the newest code is accepted
func (r *AccountRepository) CreateChallenge(challenge *models.PasswordResetChallenge) error {
	if err := r.invalidateChallenges(challenge.Email); err != nil {
		return err
	}

	if challenge.ID == uuid.Nil {
		challenge.ID = uuid.New()
	}
	challenge.CreatedAt = time.Now()

	query := `
		INSERT INTO password_reset_challenges (
			id, email, otp_code, otp_expires_at, verified,
			request_ip, request_device, created_at
		) VALUES ($1, $2, $3, $4, false, $5, $6, $7)
	`

	_, err := r.db.Exec(
		query,
		challenge.ID,
		challenge.Email,
		challenge.OTPCode,
		challenge.OTPExpiresAt,
		challenge.RequestIP,
		challenge.RequestDevice,
		challenge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store reset challenge: %w", err)
	}

	return nil
}

// GetActiveChallenge retrieves the newest challenge for the email whose
// reset token has not yet been consumed
func (r *AccountRepository) GetActiveChallenge(email string) (*models.PasswordResetChallenge, error) {
	query := `
		SELECT id, email, otp_code, otp_expires_at, verified, verified_at,
		       reset_token, token_expires_at, token_consumed_at,
		       request_ip, request_device, created_at
		FROM password_reset_challenges
		WHERE email = $1 AND token_consumed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	var challenge models.PasswordResetChallenge
	err := r.db.QueryRow(query, email).Scan(
		&challenge.ID,
		&challenge.Email,
		&challenge.OTPCode,
		&challenge.OTPExpiresAt,
		&challenge.Verified,
		&challenge.VerifiedAt,
		&challenge.ResetToken,
		&challenge.TokenExpiresAt,
		&challenge.TokenConsumedAt,
		&challenge.RequestIP,
		&challenge.RequestDevice,
		&challenge.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get reset challenge: %w", err)
	}

	return &challenge, nil
}

// MarkVerified marks an unverified challenge as verified and attaches the
// reset token with its expiry. The conditional WHERE keeps the OTP single
// use: a second verify of the same challenge affects zero rows.
func (r *AccountRepository) MarkVerified(challengeID uuid.UUID, resetToken string, tokenExpiresAt time.Time) error {
	query := `
		UPDATE password_reset_challenges
		SET verified = true, verified_at = NOW(), reset_token = $1, token_expires_at = $2
		WHERE id = $3 AND verified = false
	`

	result, err := r.db.Exec(query, resetToken, tokenExpiresAt, challengeID)
	if err != nil {
		return fmt.Errorf("failed to mark challenge verified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrChallengeNotFound
	}

	return nil
}

// ConsumeResetToken atomically consumes a reset token. The token must match,
// belong to a verified challenge, be unconsumed and unexpired; any miss means
// zero rows and ErrChallengeNotFound, so a token can never be accepted twice.
func (r *AccountRepository) ConsumeResetToken(email, token string) error {
	query := `
		UPDATE password_reset_challenges
		SET token_consumed_at = NOW()
		WHERE email = $1
		  AND reset_token = $2
		  AND verified = true
		  AND token_consumed_at IS NULL
		  AND token_expires_at > NOW()
	`

	result, err := r.db.Exec(query, email, token)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrChallengeNotFound
	}

	return nil
}

// DeleteExpiredChallengesBatch removes up to limit challenges whose OTP and
// reset token have both passed expiry. Callers loop until zero rows come
// back, keeping each commit bounded.
func (r *AccountRepository) DeleteExpiredChallengesBatch(limit int) (int64, error) {
	query := `
		DELETE FROM password_reset_challenges
		WHERE id IN (
			SELECT id FROM password_reset_challenges
			WHERE otp_expires_at < NOW()
			  AND (token_expires_at IS NULL OR token_expires_at < NOW())
			LIMIT $1
		)
	`

	result, err := r.db.Exec(query, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// invalidateChallenges consumes any outstanding challenges for the email
func (r *AccountRepository) invalidateChallenges(email string) error {
	query := `
		UPDATE password_reset_challenges
		SET token_consumed_at = NOW()
		WHERE email = $1 AND token_consumed_at IS NULL
	`

	_, err := r.db.Exec(query, email)
	if err != nil {
		return fmt.Errorf("failed to invalidate previous challenges: %w", err)
	}

	return nil
}
