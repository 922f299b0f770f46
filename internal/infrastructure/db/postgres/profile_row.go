package postgres

import (
	"database/sql"
	"time"

	"github.com/orgnet-app/identity-service/internal/domain"
)

// profileRow is the scan target for the joined profile select. Nullable
// columns stay sql.Null* here and are mapped to pointers at the domain
// boundary; no driver wrapper types leave this package.
type profileRow struct {
	ID             string
	Name           string
	Email          string
	Role           string
	SiteID         sql.NullString
	SmallGroupID   sql.NullString
	Status         string
	MandateStart   sql.NullTime
	MandateEnd     sql.NullTime
	ExternalSynced bool
	CreatedAt      time.Time
	SiteName       sql.NullString
	SmallGroupName sql.NullString
}

func toDomainProfile(pr profileRow) domain.Profile {
	return domain.Profile{
		ID:             pr.ID,
		Name:           pr.Name,
		Email:          pr.Email,
		Role:           pr.Role,
		SiteID:         nullToPtr(pr.SiteID),
		SmallGroupID:   nullToPtr(pr.SmallGroupID),
		Status:         pr.Status,
		MandateStart:   nullTimeToPtr(pr.MandateStart),
		MandateEnd:     nullTimeToPtr(pr.MandateEnd),
		ExternalSynced: pr.ExternalSynced,
		CreatedAt:      pr.CreatedAt,
		SiteName:       nullToPtr(pr.SiteName),
		SmallGroupName: nullToPtr(pr.SmallGroupName),
	}
}

func nullToPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTimeToPtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func ptrToNull(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
