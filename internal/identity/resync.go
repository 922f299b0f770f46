package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/orgnet-app/identity-service/internal/domain"
	"github.com/orgnet-app/identity-service/internal/logger"
)

// ReSyncResult reports the outcome of an administrative re-anchoring.
type ReSyncResult struct {
	Already  bool
	SyncedID string
}

// ReSync re-anchors the profile stored under email onto subjectID. This is
// the administrative escape hatch for ID_MISMATCH: unlike Resolve it may
// re-key a profile that was already claimed by a now-stale subject id.
// The uniqueness guard still holds: if subjectID is already the key of a
// different row the re-key fails with an identity conflict.
func (s *Service) ReSync(ctx context.Context, email, subjectID string) (ReSyncResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return ReSyncResult{}, domain.ErrMissingField("email")
	}
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return ReSyncResult{}, domain.ErrMissingField("subject_id")
	}

	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return ReSyncResult{}, err
	}

	if p.ID == subjectID {
		// Nothing to re-key. If an earlier release left the row unsynced,
		// close it back out so the account is not claimable by someone else.
		if !p.ExternalSynced {
			if merr := s.profiles.MarkSynced(ctx, p.ID); merr != nil {
				return ReSyncResult{}, merr
			}
		}
		return ReSyncResult{Already: true, SyncedID: p.ID}, nil
	}

	healed, err := s.rekeyer.ReKey(ctx, p.ID, subjectID)
	if err != nil {
		if domain.Is(err, "profile_not_found") {
			// Someone else re-anchored it between the lookup and the re-key.
			won, ferr := s.profiles.GetByID(ctx, subjectID)
			if ferr == nil {
				return ReSyncResult{Already: true, SyncedID: won.ID}, nil
			}
		}
		logger.WithComponent("resync").Error().
			Str("email", email).
			Str("code", errCode(err)).
			Msg("identity re-anchoring failed")
		return ReSyncResult{}, err
	}

	s.audit("identity_resynced", map[string]string{
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
			logger.WithComponent("resync").Error().
				Err(perr).
				Str("email", email).
				Msg("failed to publish rekey event")
		}
	}

	return ReSyncResult{SyncedID: healed.ID}, nil
}

// AllowReSync releases the profile stored under targetEmail so its owner's
// next sign-in re-keys it, even though it was already claimed. The caller's
// role is checked by the transport layer; this only performs the release.
func (s *Service) AllowReSync(ctx context.Context, targetEmail string) error {
	targetEmail = NormalizeEmail(targetEmail)
	if targetEmail == "" {
		return domain.ErrMissingField("target_email")
	}

	if err := s.profiles.MarkUnsynced(ctx, targetEmail); err != nil {
		return err
	}

	s.audit("identity_resync_enabled", map[string]string{
		"email": targetEmail,
	})
	return nil
}
