package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDatabase adapts a sqlmock connection to the database.DB interface
type mockDatabase struct {
	db *sqlx.DB
}

func newMockDatabase(t *testing.T) (*mockDatabase, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &mockDatabase{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return m.db.Get(dest, query, args...)
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return m.db.Select(dest, query, args...)
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) Beginx() (*sqlx.Tx, error) {
	return m.db.Beginx()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func TestCheckLockout_UnderLimit(t *testing.T) {
	db, mock := newMockDatabase(t)
	service := NewRateLimitService(db)

	rows := sqlmock.NewRows([]string{"count", "min"}).
		AddRow(4, time.Now().Add(-5*time.Minute))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("admin@example.sz", sqlmock.AnyArg()).
		WillReturnRows(rows)

	err := service.CheckLockout("admin@example.sz")
	assert.NoError(t, err)
}

func TestCheckLockout_AtLimit(t *testing.T) {
	db, mock := newMockDatabase(t)
	service := NewRateLimitService(db)

	oldest := time.Now().Add(-5 * time.Minute)
	rows := sqlmock.NewRows([]string{"count", "min"}).
		AddRow(DefaultRateLimitConfig().MaxFailures, oldest)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("admin@example.sz", sqlmock.AnyArg()).
		WillReturnRows(rows)

	err := service.CheckLockout("admin@example.sz")
	require.Error(t, err)

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	// Lockout expires when the oldest failure ages out of the window
	assert.WithinDuration(t, oldest.Add(DefaultRateLimitConfig().Window), rateErr.RetryAfter, time.Second)
}

func TestCheckLockout_NoHistory(t *testing.T) {
	db, mock := newMockDatabase(t)
	service := NewRateLimitService(db)

	rows := sqlmock.NewRows([]string{"count", "min"}).
		AddRow(0, time.Now())
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("new@example.sz", sqlmock.AnyArg()).
		WillReturnRows(rows)

	assert.NoError(t, service.CheckLockout("new@example.sz"))
}

func TestRecordFailureAndClear(t *testing.T) {
	db, mock := newMockDatabase(t)
	service := NewRateLimitService(db)

	mock.ExpectExec("INSERT INTO otp_failed_attempts").
		WithArgs("admin@example.sz").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM otp_failed_attempts").
		WithArgs("admin@example.sz").
		WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, service.RecordFailure("admin@example.sz"))
	require.NoError(t, service.ClearFailures("admin@example.sz"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupExpired(t *testing.T) {
	db, mock := newMockDatabase(t)
	service := NewRateLimitService(db)

	mock.ExpectExec("DELETE FROM otp_failed_attempts").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	removed, err := service.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(12), removed)
}
