package db

import (
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE classes.
const (
	pgUniqueViolation  = "23505"
	pgConnectionClass  = "08"
	pgAdminShutdown    = "57P01"
	pgCannotConnectNow = "57P03"
)

// IsDuplicateKeyErr reports a unique constraint violation on any supported driver.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if code, ok := pgCode(err); ok {
		return code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "Error 1062") || // mysql
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite
}

// IsUnavailableErr reports whether err means the connection itself is unusable,
// so retrying on the next sweep may succeed.
func IsUnavailableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if code, ok := pgCode(err); ok {
		return strings.HasPrefix(code, pgConnectionClass) || code == pgAdminShutdown || code == pgCannotConnectNow
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "bad connection")
}

func pgCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}
