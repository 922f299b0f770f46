package postgres

import (
	"context"
	"database/sql"
	_ "embed"

	"github.com/orgnet-app/identity-service/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the embedded DDL. Every statement is idempotent, so it
// is safe to run at startup in dev and in integration tests.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	return nil
}
