package memory

import (
	"context"
	"log"

	"github.com/orgnet-app/identity-service/internal/identity"
)

type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishProfileBootstrapped(ctx context.Context, evt identity.ProfileBootstrappedEvent) error {
	log.Printf("[noop-pub] profile bootstrapped: profile_id=%s email=%s from_invite=%v", evt.ProfileID, evt.Email, evt.FromInvite)
	return nil
}

func (p *NoopPublisher) PublishProfileReKeyed(ctx context.Context, evt identity.ProfileReKeyedEvent) error {
	log.Printf("[noop-pub] profile rekeyed: old_id=%s new_id=%s", evt.OldID, evt.NewID)
	return nil
}
