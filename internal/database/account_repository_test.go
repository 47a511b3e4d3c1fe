package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

func TestAccountGetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	id := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "email", "full_name", "password_hash", "roles", "status",
		"created_at", "updated_at",
	}).AddRow(
		id, "admin@msme-registry.gov.sz", "Registry Admin", "$2a$12$hash",
		"{admin}", "active", now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("admin@msme-registry.gov.sz").
		WillReturnRows(rows)

	account, err := repo.GetByEmail("admin@msme-registry.gov.sz")
	require.NoError(t, err)
	assert.Equal(t, id, account.ID)
	assert.Equal(t, []string{"admin"}, account.Roles)
	assert.True(t, account.IsAdmin())
}

func TestAccountGetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("nobody@example.sz").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	account, err := repo.GetByEmail("nobody@example.sz")
	assert.Nil(t, account)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountCreateChallenge_InvalidatesPrevious(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	challenge := &models.PasswordResetChallenge{
		Email:        "admin@msme-registry.gov.sz",
		OTPCode:      "123456",
		OTPExpiresAt: time.Now().Add(10 * time.Minute),
		RequestIP:    "203.0.113.9",
	}

	// Previous unconsumed challenges are consumed before the insert, so only
	// the newest code is ever accepted.
	mock.ExpectExec("UPDATE password_reset_challenges").
		WithArgs(challenge.Email).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO password_reset_challenges").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateChallenge(challenge)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, challenge.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountMarkVerified_SingleUse(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	challengeID := uuid.New()
	expiry := time.Now().Add(10 * time.Minute)

	mock.ExpectExec("UPDATE password_reset_challenges").
		WithArgs("token-1", expiry, challengeID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Second verify loses the conditional update
	mock.ExpectExec("UPDATE password_reset_challenges").
		WithArgs("token-2", expiry, challengeID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkVerified(challengeID, "token-1", expiry))
	err := repo.MarkVerified(challengeID, "token-2", expiry)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestAccountConsumeResetToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectExec("UPDATE password_reset_challenges").
		WithArgs("admin@msme-registry.gov.sz", "token-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ConsumeResetToken("admin@msme-registry.gov.sz", "token-1")
	require.NoError(t, err)
}

func TestAccountConsumeResetToken_Mismatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	// Wrong token, consumed token and expired token all land here: the
	// conditional update affects zero rows.
	mock.ExpectExec("UPDATE password_reset_challenges").
		WithArgs("admin@msme-registry.gov.sz", "wrong-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ConsumeResetToken("admin@msme-registry.gov.sz", "wrong-token")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestAccountDeleteExpiredChallengesBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectExec("DELETE FROM password_reset_challenges").
		WithArgs(500).
		WillReturnResult(sqlmock.NewResult(0, 137))

	removed, err := repo.DeleteExpiredChallengesBatch(500)
	require.NoError(t, err)
	assert.Equal(t, int64(137), removed)
}
