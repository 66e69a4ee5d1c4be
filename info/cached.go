package info

import (
	"context"
	"time"

	ttlcache "github.com/FloatTech/ttl"
)

// DefaultCacheTTL is how long Cached remembers an answer.
const DefaultCacheTTL = 10 * time.Minute

// Cached remembers answers from another resolver for a fixed time, so
// repeated mesh scans do not look the same blocks up again.
type Cached struct {
	next  Resolver
	cache *ttlcache.Cache[uint32, *Info]
}

// NewCached wraps next. Non-positive ttl selects DefaultCacheTTL.
func NewCached(next Resolver, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{next: next, cache: ttlcache.NewCache[uint32, *Info](ttl)}
}

func (c *Cached) Resolve(ctx context.Context, ids []uint32, report func(Info)) error {
	var misses []uint32
	for _, id := range ids {
		if i := c.cache.Get(id); i != nil {
			report(*i)
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return nil
	}
	return c.next.Resolve(ctx, misses, func(i Info) {
		v := i
		c.cache.Set(i.ID, &v)
		report(i)
	})
}

// Forget drops a cached answer.
func (c *Cached) Forget(id uint32) {
	c.cache.Delete(id)
}
