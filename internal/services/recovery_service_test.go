package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/pkg/mailer"
)

func newRecoveryService(t *testing.T) (*RecoveryService, sqlmock.Sqlmock, *mockMailer) {
	t.Helper()

	db, mock := newMockDatabase(t)
	mail := &mockMailer{}
	service := NewRecoveryService(
		database.NewAccountRepository(db),
		NewRateLimitService(db),
		mail,
		bcrypt.MinCost,
	)
	return service, mock, mail
}

func accountRow(email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "full_name", "password_hash", "roles", "status",
		"created_at", "updated_at",
	}).AddRow(uuid.New(), email, "Registry Admin", "$2a$12$hash", "{admin}", "active", now, now)
}

// challengeRow builds a GetActiveChallenge result row
func challengeRow(email, code string, otpExpiresAt time.Time, verified bool, tokenExpiresAt interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "otp_code", "otp_expires_at", "verified", "verified_at",
		"reset_token", "token_expires_at", "token_consumed_at",
		"request_ip", "request_device", "created_at",
	}).AddRow(
		uuid.New(), email, code, otpExpiresAt, verified, nil,
		nil, tokenExpiresAt, nil,
		"203.0.113.9", "Chrome (Linux, desktop)", time.Now(),
	)
}

func expectLockoutCheck(mock sqlmock.Sqlmock, email string, failures int) {
	rows := sqlmock.NewRows([]string{"count", "min"}).
		AddRow(failures, time.Now().Add(-time.Minute))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(email, sqlmock.AnyArg()).
		WillReturnRows(rows)
}

func TestRequestOTP_KnownAccount(t *testing.T) {
	service, mock, mail := newRecoveryService(t)
	email := "admin@example.sz"

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs(email).
		WillReturnRows(accountRow(email))
	// Previous challenges are invalidated before the new one is stored
	mock.ExpectExec("UPDATE password_reset_challenges").
		WithArgs(email).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO password_reset_challenges").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.RequestOTP(email, "203.0.113.9", "Chrome (Linux, desktop)")
	require.NoError(t, err)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, mailer.TemplatePasswordResetOTP, mail.sent[0].templateID)
	assert.Equal(t, email, mail.sent[0].to)
	assert.Regexp(t, "^[0-9]{6}$", mail.sent[0].data["code"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestOTP_UnknownAccount(t *testing.T) {
	service, mock, mail := newRecoveryService(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("nobody@example.sz").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// Same nil result as the known-account path; nothing stored, nothing sent
	err := service.RequestOTP("nobody@example.sz", "203.0.113.9", "unknown")
	require.NoError(t, err)
	assert.Empty(t, mail.sent)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTP_Success(t *testing.T) {
	service, mock, _ := newRecoveryService(t)
	email := "admin@example.sz"

	expectLockoutCheck(mock, email, 0)
	mock.ExpectQuery("SELECT (.+) FROM password_reset_challenges").
		WithArgs(email).
		WillReturnRows(challengeRow(email, "123456", time.Now().Add(5*time.Minute), false, nil))
	mock.ExpectExec("UPDATE password_reset_challenges").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM otp_failed_attempts").
		WithArgs(email).
		WillReturnResult(sqlmock.NewResult(0, 0))

	token, err := service.VerifyOTP(email, "123456")
	require.NoError(t, err)
	// 32 bytes of entropy, hex encoded
	assert.Len(t, token, 64)
	assert.Regexp(t, "^[0-9a-f]+$", token)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	service, mock, _ := newRecoveryService(t)
	email := "admin@example.sz"

	expectLockoutCheck(mock, email, 0)
	mock.ExpectQuery("SELECT (.+) FROM password_reset_challenges").
		WithArgs(email).
		WillReturnRows(challengeRow(email, "123456", time.Now().Add(5*time.Minute), false, nil))
	mock.ExpectExec("INSERT INTO otp_failed_attempts").
		WithArgs(email).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token, err := service.VerifyOTP(email, "654321")
	assert.Empty(t, token)
	assert.ErrorIs(t, err, ErrInvalid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTP_Expired(t *testing.T) {
	service, mock, _ := newRecoveryService(t)
	email := "admin@example.sz"

	expectLockoutCheck(mock, email, 0)
	mock.ExpectQuery("SELECT (.+) FROM password_reset_challenges").
		WithArgs(email).
		WillReturnRows(challengeRow(email, "123456", time.Now().Add(-time.Minute), false, nil))
	mock.ExpectExec("INSERT INTO otp_failed_attempts").
		WithArgs(email).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Even the correct code is refused once the OTP has expired
	_, err := service.VerifyOTP(email, "123456")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyOTP_NoChallenge(t *testing.T) {
	service, mock, _ := newRecoveryService(t)
	email := "admin@example.sz"

	expectLockoutCheck(mock, email, 0)
	mock.ExpectQuery("SELECT (.+) FROM password_reset_challenges").
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO otp_failed_attempts").
		WithArgs(email).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := service.VerifyOTP(email, "123456")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyOTP_LockedOut(t *testing.T) {
	service, mock, _ := newRecoveryService(t)
	email := "admin@example.sz"

	expectLockoutCheck(mock, email, DefaultRateLimitConfig().MaxFailures)

	// The lockout answers before the code is even looked at
	_, err := service.VerifyOTP(email, "123456")

	var rateErr *RateLimitError
	assert.ErrorAs(t, err, &rateErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTP_AlreadyVerified(t *testing.T) {
	service, mock, _ := newRecoveryService(t)
	email := "admin@example.sz"

	expectLockoutCheck(mock, email, 0)
	mock.ExpectQuery("SELECT (.+) FROM password_reset_challenges").
		WithArgs(email).
		WillReturnRows(challengeRow(email, "123456", time.Now().Add(5*time.Minute), true, time.Now().Add(5*time.Minute)))
	mock.ExpectExec("INSERT INTO otp_failed_attempts").
		WithArgs(email).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// An already-verified challenge cannot be verified again
	_, err := service.VerifyOTP(email, "123456")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestResetPassword_Success(t *testing.T) {
	service, mock, _ := newRecoveryService(t)
	email := "admin@example.sz"

	mock.ExpectQuery("SELECT (.+) FROM password_reset_challenges").
		WithArgs(email).
		WillReturnRows(challengeRow(email, "123456", time.Now().Add(-time.Minute), true, time.Now().Add(5*time.Minute)))
	mock.ExpectExec("UPDATE password_reset_challenges").
		WithArgs(email, "reset-token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(sqlmock.AnyArg(), email).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.ResetPassword(email, "reset-token", "new-password-1")
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPassword_TooShort(t *testing.T) {
	service, mock, _ := newRecoveryService(t)

	err := service.ResetPassword("admin@example.sz", "reset-token", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	service, mock, _ := newRecoveryService(t)
	email := "admin@example.sz"

	mock.ExpectQuery("SELECT (.+) FROM password_reset_challenges").
		WithArgs(email).
		WillReturnRows(challengeRow(email, "123456", time.Now().Add(-20*time.Minute), true, time.Now().Add(-time.Minute)))

	err := service.ResetPassword(email, "reset-token", "new-password-1")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestResetPassword_TokenMismatch(t *testing.T) {
	service, mock, _ := newRecoveryService(t)
	email := "admin@example.sz"

	mock.ExpectQuery("SELECT (.+) FROM password_reset_challenges").
		WithArgs(email).
		WillReturnRows(challengeRow(email, "123456", time.Now().Add(-time.Minute), true, time.Now().Add(5*time.Minute)))
	// Conditional consume misses: wrong token, already consumed or expired
	mock.ExpectExec("UPDATE password_reset_challenges").
		WithArgs(email, "wrong-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := service.ResetPassword(email, "wrong-token", "new-password-1")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCleanupExpiredChallenges_LoopsUntilEmpty(t *testing.T) {
	service, mock, _ := newRecoveryService(t)

	mock.ExpectExec("DELETE FROM password_reset_challenges").
		WithArgs(cleanupBatchSize).
		WillReturnResult(sqlmock.NewResult(0, int64(cleanupBatchSize)))
	mock.ExpectExec("DELETE FROM password_reset_challenges").
		WithArgs(cleanupBatchSize).
		WillReturnResult(sqlmock.NewResult(0, 42))
	mock.ExpectExec("DELETE FROM password_reset_challenges").
		WithArgs(cleanupBatchSize).
		WillReturnResult(sqlmock.NewResult(0, 0))

	total, err := service.CleanupExpiredChallenges()
	require.NoError(t, err)
	assert.Equal(t, int64(cleanupBatchSize+42), total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateOTPCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateOTPCode()
		require.NoError(t, err)
		assert.Regexp(t, "^[0-9]{6}$", code)
		seen[code] = true
	}

	// Crypto-random codes should rarely collide
	assert.Greater(t, len(seen), 90)
}
