// Package cache keeps short-lived copies of per-user authorization state so
// the request path does not hit the database on every call.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Principal is the part of a user the authorization middleware needs.
type Principal struct {
	Role     models.Role
	IsLocked bool
}

// Loader fetches a principal from the source of truth on a cache miss.
type Loader func(ctx context.Context, id uuid.UUID) (Principal, error)

const (
	minEntries = 16
	defaultTTL = 30 * time.Second
)

// Principals is an expiring LRU of user id to Principal.
type Principals struct {
	cache  *lru.LRU[uuid.UUID, Principal]
	load   Loader
	hits   atomic.Int64
	misses atomic.Int64

	// epoch is bumped by every Invalidate; a load that started in an older
	// epoch may have read a row that changed since, so it is not stored.
	mu    sync.Mutex
	epoch uint64
}

func NewPrincipals(size int, ttl time.Duration, load Loader) *Principals {
	if size < minEntries {
		size = minEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Principals{
		cache: lru.NewLRU[uuid.UUID, Principal](size, nil, ttl),
		load:  load,
	}
}

// Get returns the cached principal or loads and caches it.
// Loader errors are returned unchanged and nothing is cached.
func (p *Principals) Get(ctx context.Context, id uuid.UUID) (Principal, error) {
	if v, ok := p.cache.Get(id); ok {
		p.hits.Add(1)
		return v, nil
	}
	p.misses.Add(1)

	p.mu.Lock()
	started := p.epoch
	p.mu.Unlock()

	v, err := p.load(ctx, id)
	if err != nil {
		return Principal{}, err
	}

	p.mu.Lock()
	if p.epoch == started {
		p.cache.Add(id, v)
	}
	p.mu.Unlock()
	return v, nil
}

// Invalidate drops id so the next Get reloads it. Loads already in flight
// when it runs are not cached.
func (p *Principals) Invalidate(id uuid.UUID) {
	p.mu.Lock()
	p.epoch++
	p.cache.Remove(id)
	p.mu.Unlock()
}

// Stats reports hits, misses and the current entry count.
func (p *Principals) Stats() (hits, misses int64, entries int) {
	return p.hits.Load(), p.misses.Load(), p.cache.Len()
}
