package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/orgnet-app/identity-service/internal/domain"
	"github.com/orgnet-app/identity-service/internal/logger"
)

// DefaultReKeyTimeout bounds the whole re-key transaction, cascading updates
// included.
const DefaultReKeyTimeout = 20 * time.Second

// ReKeyer atomically rewrites a profile's primary key. Every foreign key
// referencing profiles.id is declared ON UPDATE CASCADE (see schema.sql), so
// the single UPDATE below propagates to certificates, financial transactions,
// activity reports, leadership assignments and small-group leadership in the
// same transaction. The post-read verification guards against a dependent
// table added without the cascade clause.
type ReKeyer struct {
	db      *sql.DB
	timeout time.Duration
}

func NewReKeyer(db *sql.DB, timeout time.Duration) *ReKeyer {
	if timeout <= 0 {
		timeout = DefaultReKeyTimeout
	}
	return &ReKeyer{db: db, timeout: timeout}
}

// ReKey moves the profile stored under oldID to newID.
//
// Failure semantics:
//   - oldID absent: profile-not-found (safe no-op for a repeated call; the
//     caller's next resolution matches newID on the fast path)
//   - newID already a key: identity conflict, fatal
//   - post-read at newID fails: integrity error, whole transaction aborted
//   - deadline or connection trouble: transient, retryable
//   - caller cancellation: request-canceled, never retried
func (r *ReKeyer) ReKey(ctx context.Context, oldID, newID string) (domain.Profile, error) {
	oldID = strings.TrimSpace(oldID)
	newID = strings.TrimSpace(newID)
	if oldID == "" {
		return domain.Profile{}, domain.ErrMissingField("old_id")
	}
	if newID == "" {
		return domain.Profile{}, domain.ErrMissingField("new_id")
	}
	if oldID == newID {
		return domain.Profile{}, domain.ErrInvalidField("new_id", "equal to old id")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		if isCanceled(err) {
			return domain.Profile{}, domain.ErrRequestCanceled(err)
		}
		return domain.Profile{}, domain.ErrStoreUnavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	const upQ = `
UPDATE profiles
SET id = $2,
    external_synced = TRUE
WHERE id = $1;
`
	res, err := tx.ExecContext(ctx, upQ, oldID, newID)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.Profile{}, domain.ErrReKeyTargetClaimed(newID, err)
		case isForeignKeyViolation(err):
			// A dependent table references profiles.id without cascade.
			logger.WithComponent("rekey").Error().
				Str("old_id", oldID).
				Str("new_id", newID).
				Err(err).
				Msg("cascade configuration incomplete")
			return domain.Profile{}, domain.ErrReKeyIntegrity(oldID, newID)
		case isTimeout(err):
			return domain.Profile{}, domain.ErrReKeyTimeout(err)
		case isCanceled(err):
			return domain.Profile{}, domain.ErrRequestCanceled(err)
		default:
			return domain.Profile{}, domain.ErrStoreUnavailable(err)
		}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound()
	}

	// Post-condition: the row must be readable under its new key before we
	// commit anything.
	const verifyQ = profileSelect + `
WHERE p.id = $1
LIMIT 1;
`
	pr, err := scanProfileRow(tx.QueryRowContext(ctx, verifyQ, newID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.WithComponent("rekey").Error().
				Str("old_id", oldID).
				Str("new_id", newID).
				Msg("post-read verification failed, aborting re-key")
			return domain.Profile{}, domain.ErrReKeyIntegrity(oldID, newID)
		}
		if isTimeout(err) {
			return domain.Profile{}, domain.ErrReKeyTimeout(err)
		}
		if isCanceled(err) {
			return domain.Profile{}, domain.ErrRequestCanceled(err)
		}
		return domain.Profile{}, domain.ErrStoreUnavailable(err)
	}

	if err := tx.Commit(); err != nil {
		if isTimeout(err) {
			return domain.Profile{}, domain.ErrReKeyTimeout(err)
		}
		if isCanceled(err) {
			return domain.Profile{}, domain.ErrRequestCanceled(err)
		}
		return domain.Profile{}, domain.ErrStoreUnavailable(err)
	}

	logger.WithComponent("rekey").Info().
		Str("old_id", oldID).
		Str("new_id", newID).
		Str("email", pr.Email).
		Msg("profile re-keyed")

	return toDomainProfile(pr), nil
}
