package identity

import (
	"context"

	"github.com/sirupsen/logrus"

	perrors "github.com/rohankatakam/pathgraph/internal/errors"
)

// CacheStats counts cache traffic for one job.
type CacheStats struct {
	Hits      int
	Allocated int
	Lost      int // allocations that lost a first-writer race
}

// Cache is the identity-resolution backbone: every node kind/natural id pair
// resolves to exactly one surrogate key for the lifetime of the store.
type Cache struct {
	store  Store
	alloc  *Allocator
	stats  CacheStats
	logger *logrus.Entry
}

// Open seeds the allocator above both the store's high-water mark and floor
// (typically the graph store's configuration record). A store that cannot
// report its high-water mark makes the job fail.
func Open(ctx context.Context, store Store, floor uint64, logger *logrus.Logger) (*Cache, error) {
	if store == nil {
		return nil, perrors.IdentityError(perrors.ConfigError("no identity store configured"), "identity cache unavailable")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	last, err := store.LastKey(ctx)
	if err != nil {
		return nil, err
	}
	seed := last
	if floor > seed {
		seed = floor
	}

	c := &Cache{
		store:  store,
		alloc:  NewAllocator(seed),
		logger: logger.WithField("component", "identity"),
	}
	c.logger.WithFields(logrus.Fields{
		"stored_last_key": last,
		"floor":           floor,
		"seed":            seed,
	}).Info("Identity cache opened")

	return c, nil
}

// Resolve is a pure lookup.
func (c *Cache) Resolve(ctx context.Context, key CompositeKey) (uint64, bool, error) {
	if !key.Valid() {
		return 0, false, perrors.ValidationErrorf("invalid composite key %q", key.String())
	}
	return c.store.Get(ctx, key)
}

// AllocateIfAbsent returns the key's surrogate key, allocating and storing a
// new one on first sight. isNew is true for exactly one call per key.
func (c *Cache) AllocateIfAbsent(ctx context.Context, key CompositeKey) (uint64, bool, error) {
	if !key.Valid() {
		return 0, false, perrors.ValidationErrorf("invalid composite key %q", key.String())
	}

	if v, ok, err := c.store.Get(ctx, key); err != nil {
		return 0, false, err
	} else if ok {
		c.alloc.Observe(v)
		c.stats.Hits++
		return v, false, nil
	}

	candidate := c.alloc.Next()
	stored, inserted, err := c.store.PutIfAbsent(ctx, key, candidate)
	if err != nil {
		return 0, false, err
	}
	if !inserted {
		// another writer got there first; the candidate key is simply skipped
		c.alloc.Observe(stored)
		c.stats.Lost++
		return stored, false, nil
	}

	c.stats.Allocated++
	return stored, true, nil
}

// BindIfAbsent associates key with value unless it is already bound, and
// returns the bound value.
func (c *Cache) BindIfAbsent(ctx context.Context, key CompositeKey, value uint64) (uint64, error) {
	if !key.Valid() {
		return 0, perrors.ValidationErrorf("invalid composite key %q", key.String())
	}
	stored, _, err := c.store.PutIfAbsent(ctx, key, value)
	return stored, err
}

// NextKey allocates a surrogate key that has no composite key (relations).
func (c *Cache) NextKey() uint64 {
	return c.alloc.Next()
}

// LastKey returns the allocator high-water mark.
func (c *Cache) LastKey() uint64 {
	return c.alloc.Last()
}

// Checkpoint persists the allocator high-water mark so keys handed out
// without a cache entry are never reused by a later job.
func (c *Cache) Checkpoint(ctx context.Context) error {
	return c.store.SaveLastKey(ctx, c.alloc.Last())
}

// Stats returns the traffic counters.
func (c *Cache) Stats() CacheStats {
	return c.stats
}
