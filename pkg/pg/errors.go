package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrOpenConnection    = errors.New("pg: failed to open db connection")
	ErrParseConfig       = errors.New("pg: failed to parse db config")
	ErrHealthcheckFailed = errors.New("pg: healthcheck failed")
	ErrApplyMigrations   = errors.New("pg: failed to apply migrations")
	ErrMigrationsPath    = errors.New("pg: migrations path not provided")
)

// IsNotFound detects pgx.ErrNoRows for consistent "not found" handling.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation detects PostgreSQL unique constraint violations
// (SQLSTATE 23505), used for email/username conflict detection.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
