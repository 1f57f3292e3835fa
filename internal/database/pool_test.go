package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestNewPoolManager_RequiresDB(t *testing.T) {
	_, err := NewPoolManager(nil, DefaultPoolConfig(), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestPoolManager_PingAndClose(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.HealthCheckInterval = 0

	pm, err := NewPoolManager(newSQLiteDB(t), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, pm.Ping(context.Background()))
	assert.NotNil(t, pm.DB())
	assert.GreaterOrEqual(t, pm.Stats().OpenConnections, 0)

	require.NoError(t, pm.Close())
	assert.ErrorContains(t, pm.Ping(context.Background()), "closed")

	// Close is idempotent.
	require.NoError(t, pm.Close())
}

func TestWithTransaction_CommitsAndRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := DefaultPoolConfig()
	cfg.HealthCheckInterval = 0

	pm, err := NewPoolManager(db, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE workflows").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = pm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return tx.Exec("UPDATE workflows SET status = ?", "PAUSED").Error
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = pm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRetry_RetriesDeadlock(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := DefaultPoolConfig()
	cfg.HealthCheckInterval = 0

	pm, err := NewPoolManager(db, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	// First attempt deadlocks, second succeeds.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = pm.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		return tx.Exec("UPDATE tasks SET status = ?", "READY").Error
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRetry_NonRetryableFailsFast(t *testing.T) {
	db, mock := newMockDB(t)
	cfg := DefaultPoolConfig()
	cfg.HealthCheckInterval = 0

	pm, err := NewPoolManager(db, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err = pm.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		calls++
		return errors.New("syntax error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors do not retry")
}

func TestWithTransactionRetry_HonorsContextCancel(t *testing.T) {
	db, _ := newMockDB(t)
	cfg := DefaultPoolConfig()
	cfg.HealthCheckInterval = 0

	pm, err := NewPoolManager(db, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = pm.WithTransactionRetry(ctx, 5, func(tx *gorm.DB) error {
		return errors.New("deadlock detected")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{nil, false},
		{errors.New("deadlock detected"), true},
		{errors.New("ERROR: could not serialize access (SQLSTATE 40001)"), true},
		{errors.New("serialization failure"), true},
		{errors.New("connection reset by peer"), true},
		{errors.New("broken pipe"), true},
		{errors.New("lock wait timeout exceeded"), true},
		{errors.New("driver: bad connection"), true},
		{errors.New("duplicate key value"), false},
		{errors.New("syntax error at or near"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.retryable, isRetryableError(tc.err), "%v", tc.err)
	}
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()
	assert.Equal(t, 50, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
	assert.Equal(t, time.Hour, cfg.ConnMaxLifetime)
}
