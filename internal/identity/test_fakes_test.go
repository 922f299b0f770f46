package identity

import (
	"context"
	"sync"
	"time"

	"github.com/orgnet-app/identity-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *auditLog) record(action string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, fields: fields})
}

func (a *auditLog) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.action)
	}
	return out
}

/*
Fakes for ports
*/

type fakeProfileRepo struct {
	mu sync.Mutex

	byID    map[string]domain.Profile
	byEmail map[string]domain.Profile

	invitations []domain.Invitation

	// injected errors (if set, method returns error)
	getByIDErr    error
	getByEmailErr error
	bootstrapErr  error
	markErr       error

	// one-shot creation race: returned once, optionally committing the
	// winner's row first (as a concurrent bootstrap would have)
	raceOnce   bool
	raceWinner *domain.Profile

	bootstrapCalls int
	markedUnsynced []string
	markedSynced   []string
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		byID:    map[string]domain.Profile{},
		byEmail: map[string]domain.Profile{},
	}
}

func (f *fakeProfileRepo) add(p domain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[p.ID] = p
	f.byEmail[NormalizeEmail(p.Email)] = p
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.Profile{}, f.getByIDErr
	}
	p, ok := f.byID[id]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound()
	}
	return p, nil
}

func (f *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.Profile{}, f.getByEmailErr
	}
	p, ok := f.byEmail[NormalizeEmail(email)]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound()
	}
	return p, nil
}

func (f *fakeProfileRepo) BootstrapFromInvitation(ctx context.Context, p domain.Profile) (domain.Profile, *domain.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.bootstrapCalls++

	if f.bootstrapErr != nil {
		return domain.Profile{}, nil, f.bootstrapErr
	}
	if f.raceOnce {
		f.raceOnce = false
		if f.raceWinner != nil {
			w := *f.raceWinner
			f.byID[w.ID] = w
			f.byEmail[NormalizeEmail(w.Email)] = w
		}
		return domain.Profile{}, nil, domain.ErrCreationRace(nil)
	}

	email := NormalizeEmail(p.Email)
	if _, exists := f.byEmail[email]; exists {
		return domain.Profile{}, nil, domain.ErrCreationRace(nil)
	}

	var invite *domain.Invitation
	for i := len(f.invitations) - 1; i >= 0; i-- {
		iv := f.invitations[i]
		if NormalizeEmail(iv.Email) == email && iv.Status == string(domain.InvitationPending) {
			iv.Status = string(domain.InvitationAccepted)
			f.invitations[i] = iv
			invite = &iv
			break
		}
	}
	if invite != nil {
		p.Role = invite.Role
		p.SiteID = invite.SiteID
		p.SmallGroupID = invite.SmallGroupID
	}

	p.CreatedAt = time.Now()
	f.byID[p.ID] = p
	f.byEmail[email] = p
	return p, invite, nil
}

func (f *fakeProfileRepo) MarkUnsynced(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.markErr != nil {
		return f.markErr
	}
	key := NormalizeEmail(email)
	p, ok := f.byEmail[key]
	if !ok {
		return domain.ErrProfileNotFound()
	}
	p.ExternalSynced = false
	f.byEmail[key] = p
	f.byID[p.ID] = p
	f.markedUnsynced = append(f.markedUnsynced, key)
	return nil
}

func (f *fakeProfileRepo) MarkSynced(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.markErr != nil {
		return f.markErr
	}
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrProfileNotFound()
	}
	p.ExternalSynced = true
	f.byID[id] = p
	f.byEmail[NormalizeEmail(p.Email)] = p
	f.markedSynced = append(f.markedSynced, id)
	return nil
}

// fakeReKeyer rewrites keys directly in the repo's maps so resolver retries
// observe committed state, like the real transaction.
type fakeReKeyer struct {
	repo *fakeProfileRepo

	err       error
	committed int
}

func (f *fakeReKeyer) ReKey(ctx context.Context, oldID, newID string) (domain.Profile, error) {
	if f.err != nil {
		return domain.Profile{}, f.err
	}

	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()

	p, ok := f.repo.byID[oldID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound()
	}
	if _, taken := f.repo.byID[newID]; taken {
		return domain.Profile{}, domain.ErrReKeyTargetClaimed(newID, nil)
	}

	delete(f.repo.byID, oldID)
	p.ID = newID
	p.ExternalSynced = true
	f.repo.byID[newID] = p
	f.repo.byEmail[NormalizeEmail(p.Email)] = p

	f.committed++
	return p, nil
}

type publishedEvent struct {
	kind string
	boot ProfileBootstrappedEvent
	rk   ProfileReKeyedEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []publishedEvent
}

func (f *fakePublisher) PublishProfileBootstrapped(ctx context.Context, evt ProfileBootstrappedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{kind: "bootstrapped", boot: evt})
	return nil
}

func (f *fakePublisher) PublishProfileReKeyed(ctx context.Context, evt ProfileReKeyedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{kind: "rekeyed", rk: evt})
	return nil
}

func (f *fakePublisher) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.kind)
	}
	return out
}

type fakeScopedProfiles struct {
	repo  *fakeProfileRepo
	calls int
}

func (f *fakeScopedProfiles) GetOwn(ctx context.Context, actorID string) (domain.Profile, error) {
	f.calls++
	return f.repo.GetByID(ctx, actorID)
}

/*
Service under test
*/

func newTestService(repo *fakeProfileRepo) (*Service, *fakeReKeyer, *fakePublisher, *auditLog) {
	rk := &fakeReKeyer{repo: repo}
	pub := &fakePublisher{}
	audit := &auditLog{}
	svc := NewService(repo, rk, pub).WithAudit(audit.record)
	return svc, rk, pub, audit
}
