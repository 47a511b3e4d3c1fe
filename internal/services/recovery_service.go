package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
	"github.com/eswatinicommerce/msme-registry-backend/pkg/mailer"
)

const (
	// OTPLength is the length of the one-time code
	OTPLength = 6

	// OTPExpiryDuration is how long an OTP is valid
	OTPExpiryDuration = 10 * time.Minute

	// ResetTokenExpiryDuration is how long a reset token is valid once the
	// OTP has been verified
	ResetTokenExpiryDuration = 10 * time.Minute

	// ResetTokenBytes is the entropy of the reset token (hex-encoded to
	// twice this many characters)
	ResetTokenBytes = 32

	// MinPasswordLength is the shortest acceptable new password
	MinPasswordLength = 8

	// cleanupBatchSize bounds each expired-challenge delete commit
	cleanupBatchSize = 500
)

var (
	// ErrInvalid covers every non-retryable verification failure: unknown
	// email, wrong code, wrong or consumed token. Deliberately vague so the
	// response never reveals which check failed.
	ErrInvalid = errors.New("invalid code or token")

	// ErrExpired indicates the OTP or reset token has expired
	ErrExpired = errors.New("code or token has expired")

	// ErrPasswordTooShort indicates the new password is under the minimum length
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// RecoveryService implements the OTP-based credential recovery flow:
// request an OTP by email, verify it to obtain a single-use reset token,
// then reset the password with that token.
type RecoveryService struct {
	accounts   *database.AccountRepository
	rateLimits *RateLimitService
	mail       mailer.Mailer
	bcryptCost int
}

// NewRecoveryService creates a new credential recovery service
func NewRecoveryService(
	accounts *database.AccountRepository,
	rateLimits *RateLimitService,
	mail mailer.Mailer,
	bcryptCost int,
) *RecoveryService {
	return &RecoveryService{
		accounts:   accounts,
		rateLimits: rateLimits,
		mail:       mail,
		bcryptCost: bcryptCost,
	}
}

// RequestOTP starts a recovery flow. It always succeeds from the caller's
// point of view so responses cannot be used to enumerate accounts; the OTP
// is generated, stored and emailed only when the account actually exists.
func (s *RecoveryService) RequestOTP(email, ipAddress, device string) error {
	account, err := s.accounts.GetByEmail(email)
	if err != nil {
		if errors.Is(err, database.ErrAccountNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	challenge := &models.PasswordResetChallenge{
		Email:         account.Email,
		OTPCode:       code,
		OTPExpiresAt:  time.Now().Add(OTPExpiryDuration),
		RequestIP:     ipAddress,
		RequestDevice: device,
	}
	if err := s.accounts.CreateChallenge(challenge); err != nil {
		return err
	}

	data := map[string]interface{}{
		"code":           code,
		"expiry_minutes": int(OTPExpiryDuration.Minutes()),
	}
	if _, err := s.mail.Send(mailer.TemplatePasswordResetOTP, data, account.Email); err != nil {
		log.Printf("[RECOVERY] OTP email failed for %s: %v", account.Email, err)
	}

	return nil
}

// VerifyOTP checks the submitted code. The lockout is evaluated first, so
// once an identity is locked out every attempt gets the lockout answer no
// matter what code it carries or whether the account exists. A correct,
// unexpired code is consumed and exchanged for a single-use reset token.
func (s *RecoveryService) VerifyOTP(email, code string) (string, error) {
	if err := s.rateLimits.CheckLockout(email); err != nil {
		return "", err
	}

	challenge, err := s.accounts.GetActiveChallenge(email)
	if err != nil {
		if errors.Is(err, database.ErrChallengeNotFound) {
			s.recordFailure(email)
			return "", ErrInvalid
		}
		return "", err
	}

	if challenge.Verified {
		s.recordFailure(email)
		return "", ErrInvalid
	}

	if time.Now().After(challenge.OTPExpiresAt) {
		s.recordFailure(email)
		return "", ErrExpired
	}

	if subtle.ConstantTimeCompare([]byte(challenge.OTPCode), []byte(code)) != 1 {
		s.recordFailure(email)
		return "", ErrInvalid
	}

	token, err := generateResetToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.accounts.MarkVerified(challenge.ID, token, time.Now().Add(ResetTokenExpiryDuration)); err != nil {
		if errors.Is(err, database.ErrChallengeNotFound) {
			// Lost the race to another verify of the same challenge
			return "", ErrInvalid
		}
		return "", err
	}

	if err := s.rateLimits.ClearFailures(email); err != nil {
		log.Printf("[RECOVERY] failed to clear attempts for %s: %v", email, err)
	}

	return token, nil
}

// ResetPassword consumes a reset token and stores the new password. Token
// mismatch, expiry, prior consumption and unknown email all collapse into
// the same generic errors.
func (s *RecoveryService) ResetPassword(email, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	challenge, err := s.accounts.GetActiveChallenge(email)
	if err != nil {
		if errors.Is(err, database.ErrChallengeNotFound) {
			return ErrInvalid
		}
		return err
	}

	if challenge.TokenExpiresAt.Valid && time.Now().After(challenge.TokenExpiresAt.Time) {
		return ErrExpired
	}

	// Single use: the conditional update only matches a verified, unconsumed,
	// unexpired token.
	if err := s.accounts.ConsumeResetToken(email, token); err != nil {
		if errors.Is(err, database.ErrChallengeNotFound) {
			return ErrInvalid
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(email, string(hash)); err != nil {
		return err
	}

	return nil
}

// CleanupExpiredChallenges clears expired OTP and reset-token records in
// bounded batches, looping until the scan comes back empty. Returns the
// total number of rows removed.
func (s *RecoveryService) CleanupExpiredChallenges() (int64, error) {
	var total int64
	for {
		removed, err := s.accounts.DeleteExpiredChallengesBatch(cleanupBatchSize)
		if err != nil {
			return total, err
		}
		total += removed
		if removed == 0 {
			return total, nil
		}
	}
}

// recordFailure logs a failed attempt, tolerating storage errors so the
// caller's error is not masked
func (s *RecoveryService) recordFailure(email string) {
	if err := s.rateLimits.RecordFailure(email); err != nil {
		log.Printf("[RECOVERY] failed to record attempt for %s: %v", email, err)
	}
}

// generateOTPCode generates a cryptographically secure random 6-digit code
func generateOTPCode() (string, error) {
	max := big.NewInt(1000000) // 10^6
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}

// generateResetToken generates a 64-hex-character single-use token
func generateResetToken() (string, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
