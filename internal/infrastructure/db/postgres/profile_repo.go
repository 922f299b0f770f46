package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/orgnet-app/identity-service/internal/domain"
	"github.com/orgnet-app/identity-service/internal/identity"
)

type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// profileSelect is shared by every read path so the scan order stays in one
// place. Site and small-group names ride along via LEFT JOINs.
const profileSelect = `
SELECT p.id, p.name, p.email, p.role, p.site_id, p.small_group_id, p.status,
       p.mandate_start_date, p.mandate_end_date, p.external_synced, p.created_at,
       s.name AS site_name, g.name AS small_group_name
FROM profiles p
LEFT JOIN sites s ON s.id = p.site_id
LEFT JOIN small_groups g ON g.id = p.small_group_id
`

func scanProfileRow(row *sql.Row) (profileRow, error) {
	var pr profileRow
	err := row.Scan(
		&pr.ID,
		&pr.Name,
		&pr.Email,
		&pr.Role,
		&pr.SiteID,
		&pr.SmallGroupID,
		&pr.Status,
		&pr.MandateStart,
		&pr.MandateEnd,
		&pr.ExternalSynced,
		&pr.CreatedAt,
		&pr.SiteName,
		&pr.SmallGroupName,
	)
	return pr, err
}

// ---------- identity.ProfileRepo ----------

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Profile{}, domain.ErrMissingField("id")
	}

	const q = profileSelect + `
WHERE p.id = $1
LIMIT 1;
`
	pr, err := scanProfileRow(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Profile{}, domain.ErrProfileNotFound()
		}
		return domain.Profile{}, domain.ErrStoreUnavailable(err)
	}
	return toDomainProfile(pr), nil
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (domain.Profile, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return domain.Profile{}, domain.ErrMissingField("email")
	}

	const q = profileSelect + `
WHERE lower(p.email) = $1
LIMIT 1;
`
	pr, err := scanProfileRow(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Profile{}, domain.ErrProfileNotFound()
		}
		return domain.Profile{}, domain.ErrStoreUnavailable(err)
	}
	return toDomainProfile(pr), nil
}

// BootstrapFromInvitation inserts the profile and consumes the newest pending
// invitation for the email in one transaction. The FOR UPDATE lock serializes
// two concurrent bootstraps for the same invitation; the unique index on
// lower(email) serializes bootstraps without one.
func (r *ProfileRepo) BootstrapFromInvitation(ctx context.Context, p domain.Profile) (domain.Profile, *domain.Invitation, error) {
	p.Email = identity.NormalizeEmail(p.Email)
	if p.ID == "" {
		return domain.Profile{}, nil, domain.ErrMissingField("id")
	}
	if p.Email == "" {
		return domain.Profile{}, nil, domain.ErrMissingField("email")
	}
	if p.Role == "" {
		p.Role = string(domain.RoleMember)
	}
	if p.Status == "" {
		p.Status = string(domain.StatusActive)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Profile{}, nil, domain.ErrStoreUnavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	const invQ = `
SELECT id, email, role, site_id, small_group_id, status, created_at
FROM invitations
WHERE lower(email) = $1 AND status = 'pending'
ORDER BY created_at DESC
LIMIT 1
FOR UPDATE;
`
	var invite *domain.Invitation
	var invID, invEmail, invRole, invStatus string
	var invSite, invGroup sql.NullString
	var invCreated sql.NullTime
	err = tx.QueryRowContext(ctx, invQ, p.Email).Scan(
		&invID, &invEmail, &invRole, &invSite, &invGroup, &invStatus, &invCreated,
	)
	switch {
	case err == nil:
		invite = &domain.Invitation{
			ID:           invID,
			Email:        invEmail,
			Role:         invRole,
			SiteID:       nullToPtr(invSite),
			SmallGroupID: nullToPtr(invGroup),
			Status:       invStatus,
			CreatedAt:    invCreated.Time,
		}
		p.Role = invite.Role
		p.SiteID = invite.SiteID
		p.SmallGroupID = invite.SmallGroupID
	case errors.Is(err, sql.ErrNoRows):
		// no invitation, defaults stand
	default:
		return domain.Profile{}, nil, domain.ErrStoreUnavailable(err)
	}

	const insQ = `
INSERT INTO profiles (id, name, email, role, site_id, small_group_id, status, external_synced)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
RETURNING created_at;
`
	var createdAt sql.NullTime
	err = tx.QueryRowContext(ctx, insQ,
		p.ID, p.Name, p.Email, p.Role, ptrToNull(p.SiteID), ptrToNull(p.SmallGroupID), p.Status,
	).Scan(&createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Profile{}, nil, domain.ErrCreationRace(err)
		}
		return domain.Profile{}, nil, domain.ErrStoreUnavailable(err)
	}
	p.CreatedAt = createdAt.Time
	p.ExternalSynced = true

	if invite != nil {
		const accQ = `UPDATE invitations SET status = 'accepted' WHERE id = $1;`
		if _, err := tx.ExecContext(ctx, accQ, invite.ID); err != nil {
			return domain.Profile{}, nil, domain.ErrStoreUnavailable(err)
		}
		invite.Status = string(domain.InvitationAccepted)
	}

	if err := tx.Commit(); err != nil {
		return domain.Profile{}, nil, domain.ErrStoreUnavailable(err)
	}

	// Re-read for the joined site / small group names.
	created, err := r.GetByID(ctx, p.ID)
	if err != nil {
		// The insert committed; return what we have rather than failing.
		return p, invite, nil
	}
	return created, invite, nil
}

func (r *ProfileRepo) MarkUnsynced(ctx context.Context, email string) error {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}

	const q = `UPDATE profiles SET external_synced = FALSE WHERE lower(email) = $1;`
	res, err := r.db.ExecContext(ctx, q, email)
	if err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrProfileNotFound()
	}
	return nil
}

func (r *ProfileRepo) MarkSynced(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrMissingField("id")
	}

	const q = `UPDATE profiles SET external_synced = TRUE WHERE id = $1;`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrProfileNotFound()
	}
	return nil
}
