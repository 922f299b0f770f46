package identity

import (
	"context"
	"strings"
	"time"

	"github.com/orgnet-app/identity-service/internal/domain"
)

// Identity is the verified claim set handed over by the external identity
// provider. SubjectID is the opaque stable identifier the provider issues per
// authenticated person.
type Identity struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	Name          string
}

type Service struct {
	profiles ProfileRepo
	scoped   ScopedProfiles
	rekeyer  ReKeyer
	pub      EventPublisher

	audit func(action string, fields map[string]string)
}

func NewService(profiles ProfileRepo, rekeyer ReKeyer, pub EventPublisher) *Service {
	return &Service{
		profiles: profiles,
		rekeyer:  rekeyer,
		pub:      pub,
		audit:    func(string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithScoped routes session reads through an actor-bound scope so the
// database's own row policies decide visibility.
func (s *Service) WithScoped(sp ScopedProfiles) *Service {
	s.scoped = sp
	return s
}

// LoadScoped re-reads the resolved actor's profile under its own scope. When
// no scoped reader is wired (unit tests, degraded mode) it falls back to the
// plain repository read.
func (s *Service) LoadScoped(ctx context.Context, actorID string) (ResolvedProfile, error) {
	var (
		p   domain.Profile
		err error
	)
	if s.scoped != nil {
		p, err = s.scoped.GetOwn(ctx, actorID)
	} else {
		p, err = s.profiles.GetByID(ctx, actorID)
	}
	if err != nil {
		return ResolvedProfile{}, err
	}
	return project(p), nil
}

// NormalizeEmail is the canonical email form used for all lookups and for the
// unique index on lower(email).
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ResolvedProfile is the sanitized, JSON-serializable projection returned to
// the interface layer. No storage wrapper types survive; dates are ISO-8601
// strings.
type ResolvedProfile struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Role             string  `json:"role"`
	SiteID           *string `json:"siteId"`
	SmallGroupID     *string `json:"smallGroupId"`
	SiteName         *string `json:"siteName"`
	SmallGroupName   *string `json:"smallGroupName"`
	Status           string  `json:"status"`
	MandateStartDate *string `json:"mandateStartDate,omitempty"`
	MandateEndDate   *string `json:"mandateEndDate,omitempty"`
	CreatedAt        string  `json:"createdAt"`
}

func project(p domain.Profile) ResolvedProfile {
	return ResolvedProfile{
		ID:               p.ID,
		Name:             p.Name,
		Email:            p.Email,
		Role:             p.Role,
		SiteID:           p.SiteID,
		SmallGroupID:     p.SmallGroupID,
		SiteName:         p.SiteName,
		SmallGroupName:   p.SmallGroupName,
		Status:           p.Status,
		MandateStartDate: isoDate(p.MandateStart),
		MandateEndDate:   isoDate(p.MandateEnd),
		CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func isoDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
