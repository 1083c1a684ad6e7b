package identity

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// Overlay is a read-through Store that keeps every write in memory. Dry runs
// use it so that keys allocated for counting never reach the durable cache.
type Overlay struct {
	base    Store
	entries *cache.Cache
	mark    *Allocator // local high-water mark; only Observe and Last are used
}

// NewOverlay wraps base. Reads fall back to base; writes stay local.
func NewOverlay(base Store) *Overlay {
	return &Overlay{
		base:    base,
		entries: cache.New(cache.NoExpiration, 0),
		mark:    NewAllocator(0),
	}
}

// Get implements Store
func (o *Overlay) Get(ctx context.Context, key CompositeKey) (uint64, bool, error) {
	if v, ok := o.entries.Get(key.encode()); ok {
		return v.(uint64), true, nil
	}
	return o.base.Get(ctx, key)
}

// PutIfAbsent implements Store. Entries already in base win over local ones.
func (o *Overlay) PutIfAbsent(ctx context.Context, key CompositeKey, value uint64) (uint64, bool, error) {
	stored, found, err := o.base.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if found {
		return stored, false, nil
	}

	// Add fails when the key is already present
	if err := o.entries.Add(key.encode(), value, cache.NoExpiration); err != nil {
		v, _ := o.entries.Get(key.encode())
		return v.(uint64), false, nil
	}
	o.mark.Observe(value)
	return value, true, nil
}

// LastKey implements Store
func (o *Overlay) LastKey(ctx context.Context) (uint64, error) {
	last, err := o.base.LastKey(ctx)
	if err != nil {
		return 0, err
	}
	if local := o.mark.Last(); local > last {
		return local, nil
	}
	return last, nil
}

// SaveLastKey implements Store. The value is kept in memory only.
func (o *Overlay) SaveLastKey(_ context.Context, value uint64) error {
	o.mark.Observe(value)
	return nil
}

// Stats implements Store. Counts include the local entries.
func (o *Overlay) Stats(ctx context.Context) (map[string]int, error) {
	counts, err := o.base.Stats(ctx)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]int, len(counts))
	for ns, n := range counts {
		merged[ns] = n
	}
	for encoded := range o.entries.Items() {
		if key, ok := decodeKey(encoded); ok {
			merged[key.Namespace]++
		}
	}
	return merged, nil
}

// Close drops the local entries. The base store stays open; its owner closes it.
func (o *Overlay) Close() error {
	o.entries.Flush()
	return nil
}
