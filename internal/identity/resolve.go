package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/orgnet-app/identity-service/internal/domain"
	"github.com/orgnet-app/identity-service/internal/logger"
)

// Resolve reconciles an externally issued identity with the stored profile.
//
// Order of attempts:
//  1. fast path: profile already keyed by the subject id
//  2. email match: heal identifier drift with a re-key, unless the stored
//     profile is already claimed by a different subject (fails closed)
//  3. bootstrap: create the profile, consuming a pending invitation
//
// A creation race or a re-key lost to a concurrent login is retried once from
// the top; the retry lands on the fast path against the committed state.
func (s *Service) Resolve(ctx context.Context, id Identity) (ResolvedProfile, error) {
	res, err := s.resolveOnce(ctx, id)
	if err != nil && domain.Retryable(err) {
		logger.WithComponent("resolver").Warn().
			Str("email", NormalizeEmail(id.Email)).
			Str("code", errCode(err)).
			Msg("resolution raced a concurrent write, retrying once")
		return s.resolveOnce(ctx, id)
	}
	return res, err
}

func (s *Service) resolveOnce(ctx context.Context, id Identity) (ResolvedProfile, error) {
	subjectID := strings.TrimSpace(id.SubjectID)
	if subjectID == "" {
		return ResolvedProfile{}, domain.ErrMissingField("subject_id")
	}

	email := NormalizeEmail(id.Email)
	if email == "" {
		return ResolvedProfile{}, domain.ErrMissingField("email")
	}
	if !id.EmailVerified {
		return ResolvedProfile{}, domain.ErrEmailUnverified()
	}

	// 1) steady state: id already synchronized
	p, err := s.profiles.GetByID(ctx, subjectID)
	if err == nil {
		if !p.ExternalSynced {
			// The owner signed back in after an administrative release and
			// the key never changed. Close the release out.
			if merr := s.profiles.MarkSynced(ctx, p.ID); merr != nil {
				return ResolvedProfile{}, merr
			}
			p.ExternalSynced = true
		}
		return project(p), nil
	}
	if !domain.Is(err, "profile_not_found") {
		return ResolvedProfile{}, err
	}

	// 2) known email, different key
	p, err = s.profiles.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.healDrift(ctx, p, subjectID, email)
	case domain.Is(err, "profile_not_found"):
		return s.bootstrap(ctx, id, subjectID, email)
	default:
		return ResolvedProfile{}, err
	}
}

// healDrift re-keys a pre-provisioned profile onto the external subject id.
// A profile already claimed by another subject is never merged.
func (s *Service) healDrift(ctx context.Context, p domain.Profile, subjectID, email string) (ResolvedProfile, error) {
	if p.ID == subjectID {
		// GetByID raced a concurrent heal that already committed.
		return project(p), nil
	}

	if p.ExternalSynced {
		logger.WithComponent("resolver").Warn().
			Str("email", email).
			Str("bound_id", p.ID).
			Msg("email already bound to a different synchronized identity, failing closed")
		return ResolvedProfile{}, domain.ErrIdentityConflict(email)
	}

	healed, err := s.rekeyer.ReKey(ctx, p.ID, subjectID)
	if err != nil {
		if domain.Is(err, "profile_not_found") {
			// A concurrent login healed the same pair first; the committed
			// state must now satisfy the fast path.
			won, ferr := s.profiles.GetByID(ctx, subjectID)
			if ferr == nil {
				return project(won), nil
			}
			return ResolvedProfile{}, domain.ErrCreationRace(err)
		}
		logger.WithComponent("resolver").Error().
			Str("email", email).
			Str("code", errCode(err)).
			Msg("drift healing failed")
		return ResolvedProfile{}, err
	}

	s.audit("identity_rekeyed", map[string]string{
		"old_id": p.ID,
		"new_id": subjectID,
		"email":  email,
	})

	if s.pub != nil {
		evt := ProfileReKeyedEvent{
			EventID: uuid.NewString(),
			OldID:   p.ID,
			NewID:   subjectID,
			Email:   email,
		}
		if perr := s.pub.PublishProfileReKeyed(ctx, evt); perr != nil {
			logger.WithComponent("resolver").Error().
				Err(perr).
				Str("email", email).
				Msg("failed to publish rekey event")
		}
	}

	return project(healed), nil
}

// bootstrap creates the profile for a genuinely new actor, sourcing role and
// placement from the most recent pending invitation for the email.
func (s *Service) bootstrap(ctx context.Context, id Identity, subjectID, email string) (ResolvedProfile, error) {
	seed := domain.Profile{
		ID:             subjectID,
		Name:           strings.TrimSpace(id.Name),
		Email:          email,
		Role:           string(domain.RoleMember),
		Status:         string(domain.StatusActive),
		ExternalSynced: true,
	}

	created, invite, err := s.profiles.BootstrapFromInvitation(ctx, seed)
	if err != nil {
		return ResolvedProfile{}, err
	}

	fields := map[string]string{
		"profile_id": created.ID,
		"email":      email,
		"role":       created.Role,
	}
	evt := ProfileBootstrappedEvent{
		EventID:   uuid.NewString(),
		ProfileID: created.ID,
		Email:     email,
		Role:      created.Role,
	}
	if invite != nil {
		fields["invitation_id"] = invite.ID
		evt.FromInvite = true
		evt.InvitationID = invite.ID
	}
	s.audit("identity_bootstrapped", fields)

	if s.pub != nil {
		if perr := s.pub.PublishProfileBootstrapped(ctx, evt); perr != nil {
			logger.WithComponent("resolver").Error().
				Err(perr).
				Str("email", email).
				Msg("failed to publish bootstrap event")
		}
	}

	return project(created), nil
}

func errCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "unknown"
}
