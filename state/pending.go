package state

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// PendingKey identifies a destination class with an outstanding QUERY.
type PendingKey struct {
	BoundedSource bool
	DestIP        int32
}

func KeyFor(src, dst int32) PendingKey {
	return PendingKey{BoundedSource: src <= MaxIP, DestIP: dst}
}

// PendingQuerySet makes sure a switch keeps at most one QUERY in flight per destination class.
type PendingQuerySet struct {
	cache *ttlcache.Cache[PendingKey, time.Time]
}

// NewPendingQuerySet creates a set whose entries expire after ttl, or never when ttl is zero.
func NewPendingQuerySet(ttl time.Duration) *PendingQuerySet {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	return &PendingQuerySet{
		cache: ttlcache.New[PendingKey, time.Time](
			ttlcache.WithTTL[PendingKey, time.Time](ttl),
			ttlcache.WithDisableTouchOnHit[PendingKey, time.Time](),
		),
	}
}

// Add records key and returns true if no query for it was pending.
func (p *PendingQuerySet) Add(key PendingKey) bool {
	if p.Has(key) {
		return false
	}
	p.cache.Set(key, time.Now(), ttlcache.DefaultTTL)
	return true
}

func (p *PendingQuerySet) Has(key PendingKey) bool {
	return p.cache.Get(key) != nil
}

// Remove clears key, returning whether it was pending.
func (p *PendingQuerySet) Remove(key PendingKey) bool {
	ok := p.Has(key)
	p.cache.Delete(key)
	return ok
}

func (p *PendingQuerySet) Len() int {
	p.cache.DeleteExpired()
	return p.cache.Len()
}
