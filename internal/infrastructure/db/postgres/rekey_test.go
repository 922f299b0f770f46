package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgnet-app/identity-service/internal/domain"
)

func setupMockReKeyer(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ReKeyer) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to create mock database")
	return db, mock, NewReKeyer(db, time.Second)
}

func TestReKeyer_Success_UpdateVerifyCommit(t *testing.T) {
	db, mock, rk := setupMockReKeyer(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("legacy-42", "sub-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT p\.id, .+ FROM profiles p`).
		WithArgs("sub-123").
		WillReturnRows(sqlmock.NewRows(profileColumns()).
			AddRow(profileRowValues("sub-123", "jae.kim@example.com")...))
	mock.ExpectCommit()

	p, err := rk.ReKey(context.Background(), "legacy-42", "sub-123")
	require.NoError(t, err)
	assert.Equal(t, "sub-123", p.ID)
	assert.True(t, p.ExternalSynced)

	// ordering matters: update, in-tx verify, then commit
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReKeyer_MissingRow_IsIdempotentNotFound(t *testing.T) {
	db, mock, rk := setupMockReKeyer(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("legacy-42", "sub-123").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := rk.ReKey(context.Background(), "legacy-42", "sub-123")
	assert.True(t, domain.Is(err, "profile_not_found"), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReKeyer_TargetClaimed_MapsUniqueViolation(t *testing.T) {
	db, mock, rk := setupMockReKeyer(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("legacy-42", "sub-123").
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation})
	mock.ExpectRollback()

	_, err := rk.ReKey(context.Background(), "legacy-42", "sub-123")
	assert.True(t, domain.Is(err, "ID_MISMATCH"), "got %v", err)
}

func TestReKeyer_ForeignKeyViolation_IsIntegrityError(t *testing.T) {
	db, mock, rk := setupMockReKeyer(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("legacy-42", "sub-123").
		WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation})
	mock.ExpectRollback()

	_, err := rk.ReKey(context.Background(), "legacy-42", "sub-123")
	assert.True(t, domain.Is(err, "rekey_integrity"), "got %v", err)
}

func TestReKeyer_VerifyMiss_AbortsWholeTransaction(t *testing.T) {
	db, mock, rk := setupMockReKeyer(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("legacy-42", "sub-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT p\.id, .+ FROM profiles p`).
		WithArgs("sub-123").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := rk.ReKey(context.Background(), "legacy-42", "sub-123")
	assert.True(t, domain.Is(err, "rekey_integrity"), "got %v", err)
	// no commit expectation: the update must not survive a failed post-read
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReKeyer_Timeout_IsTransient(t *testing.T) {
	db, mock, rk := setupMockReKeyer(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("legacy-42", "sub-123").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := rk.ReKey(context.Background(), "legacy-42", "sub-123")
	assert.True(t, domain.Is(err, "rekey_timeout"), "got %v", err)
	assert.True(t, domain.Retryable(err))
}

func TestReKeyer_CallerCancellation_IsNotRetryable(t *testing.T) {
	// the caller hung up; a retry would run against the same dead context
	db, mock, rk := setupMockReKeyer(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("legacy-42", "sub-123").
		WillReturnError(context.Canceled)
	mock.ExpectRollback()

	_, err := rk.ReKey(context.Background(), "legacy-42", "sub-123")
	assert.True(t, domain.Is(err, "request_canceled"), "got %v", err)
	assert.False(t, domain.Is(err, "rekey_timeout"))
	assert.False(t, domain.Retryable(err))
}

func TestReKeyer_RejectsDegenerateArgs(t *testing.T) {
	db, _, rk := setupMockReKeyer(t)
	defer db.Close()

	if _, err := rk.ReKey(context.Background(), "", "sub-123"); !domain.Is(err, "missing_field") {
		t.Fatalf("expected missing_field, got %v", err)
	}
	if _, err := rk.ReKey(context.Background(), "same", "same"); !domain.Is(err, "invalid_field") {
		t.Fatalf("expected invalid_field, got %v", err)
	}
}
