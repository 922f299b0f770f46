package domain

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation pre-provisions role and placement for an email address.
// It is consumed (status -> accepted) the moment a profile is bootstrapped
// for that email.
type Invitation struct {
	ID           string
	Email        string
	Role         string
	SiteID       *string
	SmallGroupID *string
	Status       string
	CreatedAt    time.Time
}
