package postgres

import (
	"context"
	"database/sql"
	"log"

	"github.com/google/uuid"
)

// SeedDev loads a small fixture set for local development: one site, one
// small group and a few pending invitations. Inserts are restart safe.
func SeedDev(ctx context.Context, db *sql.DB) {
	siteID := "site-seoul"
	groupID := "sg-seoul-01"

	stmts := []struct {
		q    string
		args []any
	}{
		{
			q:    `INSERT INTO sites (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING;`,
			args: []any{siteID, "Seoul"},
		},
		{
			q:    `INSERT INTO small_groups (id, site_id, name) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING;`,
			args: []any{groupID, siteID, "Seoul Group 1"},
		},
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s.q, s.args...); err != nil {
			log.Printf("[seed] %v", err)
			return
		}
	}

	invites := []struct {
		email string
		role  string
	}{
		{email: "coordinator@example.com", role: "SITE_COORDINATOR"},
		{email: "leader@example.com", role: "SMALL_GROUP_LEADER"},
		{email: "member@example.com", role: "MEMBER"},
	}
	for _, iv := range invites {
		_, err := db.ExecContext(ctx, `
INSERT INTO invitations (id, email, role, site_id, small_group_id, status)
SELECT $1, $2, $3, $4, $5, 'pending'
WHERE NOT EXISTS (
  SELECT 1 FROM invitations WHERE lower(email) = lower($2) AND status = 'pending'
);`, uuid.NewString(), iv.email, iv.role, siteID, groupID)
		if err != nil {
			log.Printf("[seed] invitation (%s): %v", iv.email, err)
		}
	}

	log.Println("[seed] postgres identity fixtures seeded")
}
