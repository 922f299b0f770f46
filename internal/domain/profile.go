package domain

import "time"

// Role values mirror the check constraint on profiles.role.
type Role string

const (
	RoleNationalCoordinator Role = "NATIONAL_COORDINATOR"
	RoleSiteCoordinator     Role = "SITE_COORDINATOR"
	RoleSmallGroupLeader    Role = "SMALL_GROUP_LEADER"
	RoleMember              Role = "MEMBER"
)

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleNationalCoordinator, RoleSiteCoordinator, RoleSmallGroupLeader, RoleMember:
		return true
	}
	return false
}

type ProfileStatus string

const (
	StatusActive   ProfileStatus = "active"
	StatusInactive ProfileStatus = "inactive"
	StatusInvited  ProfileStatus = "invited"
)

// Profile is the internally stored record for one person.
// ID equals the external subject id once the profile has been claimed by an
// external identity (ExternalSynced=true); before that it may be any
// pre-provisioned key (UUID, legacy id, ...).
type Profile struct {
	ID           string
	Name         string
	Email        string
	Role         string
	SiteID       *string
	SmallGroupID *string
	Status       string
	MandateStart *time.Time
	MandateEnd   *time.Time

	// ExternalSynced marks the id as claimed by an external identity.
	// Only the re-key transaction and bootstrap creation may set it.
	ExternalSynced bool

	CreatedAt time.Time

	// Joined display names, populated by the repository (LEFT JOIN).
	SiteName       *string
	SmallGroupName *string
}
