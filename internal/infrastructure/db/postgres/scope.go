package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/orgnet-app/identity-service/internal/domain"
)

// SessionScope binds an actor id to one transaction so the row-level-security
// policies (which read current_setting('app.actor_id')) filter every query
// inside it.
//
// The binding is made with set_config(..., true): it is transaction-local and
// vanishes at commit or rollback, so it can never leak onto a pooled
// connection reused by an unrelated request. The deferred rollback releases
// it on every exit path, including panics and context cancellation.
type SessionScope struct {
	db *sql.DB
}

func NewSessionScope(db *sql.DB) *SessionScope {
	return &SessionScope{db: db}
}

type scopeKey struct{}

type scopeBinding struct {
	actorID string
	tx      *sql.Tx
}

// ActorFromContext reports the actor bound to the current scope, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	if b, ok := ctx.Value(scopeKey{}).(*scopeBinding); ok {
		return b.actorID, true
	}
	return "", false
}

// RunScoped executes fn inside a transaction bound to actorID.
//
// Fail-closed: if the binding cannot be established no query runs. Nesting: a
// scope opened inside another scope reuses the outer transaction when the
// actor matches and fails fast when it does not; it never rebinds silently.
func (s *SessionScope) RunScoped(ctx context.Context, actorID string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return domain.ErrScopeUnbound(errors.New("empty actor id"))
	}

	if outer, ok := ctx.Value(scopeKey{}).(*scopeBinding); ok {
		if outer.actorID != actorID {
			return domain.ErrScopeMismatch(outer.actorID, actorID)
		}
		return fn(ctx, outer.tx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrScopeUnbound(err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.actor_id', $1, true)`, actorID); err != nil {
		return domain.ErrScopeUnbound(err)
	}

	ctx = context.WithValue(ctx, scopeKey{}, &scopeBinding{actorID: actorID, tx: tx})

	if err := fn(ctx, tx); err != nil {
		// rollback via defer; the wrapped operation's error passes through
		// unchanged
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	committed = true
	return nil
}
