package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes we care about. Kept as constants so tests can assert
// against the same values.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	// sqlmock and older drivers surface plain errors
	return strings.Contains(strings.ToLower(err.Error()), "duplicate key")
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeForeignKeyViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key")
}

// isTimeout matches only deadline expiry. Caller cancellation is a
// different signal (isCanceled): retrying on a dead context cannot succeed.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
