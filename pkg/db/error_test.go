package db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert alerts: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: alerts.id")))
}

func TestIsUnavailableErr(t *testing.T) {
	assert.False(t, IsUnavailableErr(nil))
	assert.True(t, IsUnavailableErr(fmt.Errorf("list rules: %w", driver.ErrBadConn)))
	assert.True(t, IsUnavailableErr(&pgconn.PgError{Code: "08006"}))
	assert.True(t, IsUnavailableErr(&pgconn.PgError{Code: "57P01"}))
	assert.False(t, IsUnavailableErr(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsUnavailableErr(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")))
	assert.False(t, IsUnavailableErr(gorm.ErrRecordNotFound))
}
