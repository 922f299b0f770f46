package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/orgnet-app/identity-service/internal/domain"
)

// ScopedProfiles reads profiles through an actor-bound scope. The query is
// deliberately unfiltered beyond the primary key: the row-level-security
// policies on profiles decide whether the actor may see the row at all, so a
// policy regression shows up here as not-found instead of a data leak.
type ScopedProfiles struct {
	scope *SessionScope
}

func NewScopedProfiles(scope *SessionScope) *ScopedProfiles {
	return &ScopedProfiles{scope: scope}
}

func (r *ScopedProfiles) GetOwn(ctx context.Context, actorID string) (domain.Profile, error) {
	const q = profileSelect + `
WHERE p.id = $1
LIMIT 1;
`
	var out domain.Profile
	err := r.scope.RunScoped(ctx, actorID, func(ctx context.Context, tx *sql.Tx) error {
		pr, err := scanProfileRow(tx.QueryRowContext(ctx, q, actorID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrProfileNotFound()
			}
			return domain.ErrStoreUnavailable(err)
		}
		out = toDomainProfile(pr)
		return nil
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return out, nil
}
