package identity

import (
	"context"

	"github.com/orgnet-app/identity-service/internal/domain"
)

/*
ProfileRepo
-----------
Persistence port for profiles. Only describes WHAT resolution needs,
not HOW it is stored.
*/
type ProfileRepo interface {
	GetByID(ctx context.Context, id string) (domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (domain.Profile, error)

	// BootstrapFromInvitation creates a profile for a genuinely new actor.
	// The most recent pending invitation for the email (if any) supplies role
	// and placement and is marked accepted in the same transaction as the
	// insert; it is returned alongside the profile (nil when none existed).
	// A unique-constraint race surfaces as a conflict error.
	BootstrapFromInvitation(ctx context.Context, p domain.Profile) (domain.Profile, *domain.Invitation, error)

	// MarkUnsynced releases the profile stored under email so the next sign-in
	// may re-key it. Administrative operation.
	MarkUnsynced(ctx context.Context, email string) error

	// MarkSynced restores the synchronized flag on a released profile whose
	// key turned out not to change.
	MarkSynced(ctx context.Context, id string) error
}

/*
ScopedProfiles
--------------
Reads a profile through an actor-bound scope, so row-level-security policies
decide visibility instead of application code. GetOwn returns the actor's own
profile or a not-found error when the policies hide every row.
*/
type ScopedProfiles interface {
	GetOwn(ctx context.Context, actorID string) (domain.Profile, error)
}

/*
ReKeyer
-------
Atomic primary-key rewrite. Only the implementation behind this port may
change Profile.ID; the cascade to dependent relations happens inside one
bounded transaction.
*/
type ReKeyer interface {
	ReKey(ctx context.Context, oldID, newID string) (domain.Profile, error)
}

/*
EventPublisher
--------------
Publishes identity lifecycle events. Delivery (email, audit feeds, ...) is a
consumer's job; publishing is best-effort and never fails resolution.
*/
type EventPublisher interface {
	PublishProfileBootstrapped(ctx context.Context, evt ProfileBootstrappedEvent) error
	PublishProfileReKeyed(ctx context.Context, evt ProfileReKeyedEvent) error
}

type ProfileBootstrappedEvent struct {
	EventID      string `json:"event_id"`
	ProfileID    string `json:"profile_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	FromInvite   bool   `json:"from_invite"`
	InvitationID string `json:"invitation_id,omitempty"`
}

type ProfileReKeyedEvent struct {
	EventID string `json:"event_id"`
	OldID   string `json:"old_id"`
	NewID   string `json:"new_id"`
	Email   string `json:"email"`
}
