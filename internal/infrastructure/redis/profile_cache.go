package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/orgnet-app/identity-service/internal/domain"
	"github.com/orgnet-app/identity-service/internal/identity"
)

// CachedProfileRepo decorates an identity.ProfileRepo with a short-TTL Redis
// cache for the resolution hot path.
// - Read path: Redis -> DB fallback -> Redis set
// - Mutations (bootstrap, re-key): DB first, then best-effort purge
//
// The TTL bounds staleness; correctness never depends on the cache, and a
// Redis outage degrades to plain DB reads.
type CachedProfileRepo struct {
	inner   identity.ProfileRepo
	rekeyer identity.ReKeyer
	rdb     *goredis.Client
	ttl     time.Duration
}

func NewCachedProfileRepo(inner identity.ProfileRepo, rekeyer identity.ReKeyer, client *Client, ttl time.Duration) *CachedProfileRepo {
	var rdb *goredis.Client
	if client != nil {
		rdb = client.rdb
	}
	return &CachedProfileRepo{
		inner:   inner,
		rekeyer: rekeyer,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func idKey(id string) string       { return "profile:id:" + id }
func emailKey(email string) string { return "profile:email:" + identity.NormalizeEmail(email) }

func (c *CachedProfileRepo) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	if p, ok := c.cacheGet(ctx, idKey(id)); ok {
		return p, nil
	}
	p, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}
	c.cacheSet(ctx, p)
	return p, nil
}

func (c *CachedProfileRepo) GetByEmail(ctx context.Context, email string) (domain.Profile, error) {
	if p, ok := c.cacheGet(ctx, emailKey(email)); ok {
		return p, nil
	}
	p, err := c.inner.GetByEmail(ctx, email)
	if err != nil {
		return domain.Profile{}, err
	}
	c.cacheSet(ctx, p)
	return p, nil
}

func (c *CachedProfileRepo) BootstrapFromInvitation(ctx context.Context, p domain.Profile) (domain.Profile, *domain.Invitation, error) {
	created, inv, err := c.inner.BootstrapFromInvitation(ctx, p)
	if err != nil {
		return domain.Profile{}, nil, err
	}
	c.purge(ctx, idKey(created.ID), emailKey(created.Email))
	return created, inv, nil
}

func (c *CachedProfileRepo) MarkUnsynced(ctx context.Context, email string) error {
	if err := c.inner.MarkUnsynced(ctx, email); err != nil {
		return err
	}
	c.purge(ctx, emailKey(email))
	return nil
}

func (c *CachedProfileRepo) MarkSynced(ctx context.Context, id string) error {
	if err := c.inner.MarkSynced(ctx, id); err != nil {
		return err
	}
	c.purge(ctx, idKey(id))
	return nil
}

// ReKey delegates to the transactional re-keyer, then purges every key that
// could still name the old identity. Purge before return, so a caller that
// re-reads immediately sees the new row.
func (c *CachedProfileRepo) ReKey(ctx context.Context, oldID, newID string) (domain.Profile, error) {
	p, err := c.rekeyer.ReKey(ctx, oldID, newID)
	if err != nil {
		return domain.Profile{}, err
	}
	c.purge(ctx, idKey(oldID), idKey(newID), emailKey(p.Email))
	return p, nil
}

func (c *CachedProfileRepo) cacheGet(ctx context.Context, key string) (domain.Profile, bool) {
	if c.rdb == nil {
		return domain.Profile{}, false
	}
	s, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		// miss or redis error, either way the DB answers
		return domain.Profile{}, false
	}
	var p domain.Profile
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return domain.Profile{}, false
	}
	return p, true
}

func (c *CachedProfileRepo) cacheSet(ctx context.Context, p domain.Profile) {
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, idKey(p.ID), b, c.ttl).Err()
	_ = c.rdb.Set(ctx, emailKey(p.Email), b, c.ttl).Err()
}

func (c *CachedProfileRepo) purge(ctx context.Context, keys ...string) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}
