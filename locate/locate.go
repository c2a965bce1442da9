// Package locate defines the placement-directory-client (PDC) contract
// consumed by the plan pipeline (spec §6) along with a caching decorator
// and a concrete gRPC-backed implementation. The PDC's own election and
// placement policy are out of scope (spec §1 Non-goals); this package only
// carries the client-side contract and cache.
package locate

import (
	"context"
	"sync"

	"github.com/squareup/kvclient/storeclient"
)

// RegionID identifies a region at a point in time; it is opaque beyond
// equality and is used to key cache invalidation.
type RegionID uint64

// Region is the authoritative shard-to-server mapping for a key range at
// the instant it was obtained from the PDC (spec §3). It may become stale;
// RetryRegion's job is to notice that and ask the PDC to re-resolve.
type Region struct {
	ID       RegionID
	Epoch    uint64
	StartKey []byte
	EndKey   []byte
}

// ContainsKey reports whether key falls within this region's [StartKey,
// EndKey) boundary. A nil EndKey means "no upper bound".
func (r Region) ContainsKey(key []byte) bool {
	if len(r.StartKey) > 0 && bytesLess(key, r.StartKey) {
		return false
	}
	if len(r.EndKey) > 0 && !bytesLess(key, r.EndKey) {
		return false
	}
	return true
}

func bytesLess(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Store is a (region, store client) pair produced by the PDC (spec §3).
type Store struct {
	Region *Region
	Client storeclient.StoreClient
}

// RangeStream lazily yields the Stores covering a key range, one per
// region the range spans. A non-nil err on one item does not necessarily
// end the stream (spec §4.2's "shard stream failure"); ok=false does.
type RangeStream interface {
	Next(ctx context.Context) (store Store, err error, ok bool)
}

// PDC is the placement-directory-client contract (spec §6).
type PDC interface {
	StoreForKey(ctx context.Context, key []byte) (Store, error)
	StoreForRange(ctx context.Context, startKey, endKey []byte) RangeStream
	InvalidateRegion(id RegionID)
}

// sliceRangeStream adapts a pre-computed slice of Stores (as produced by
// GRPCPDC from a one-shot StoreForRange reply) to the RangeStream contract.
type sliceRangeStream struct {
	stores []Store
	errs   []error
	i      int
}

func (s *sliceRangeStream) Next(ctx context.Context) (Store, error, bool) {
	if err := ctx.Err(); err != nil {
		return Store{}, err, false
	}
	if s.i >= len(s.stores) {
		return Store{}, nil, false
	}
	store := s.stores[s.i]
	var err error
	if s.i < len(s.errs) {
		err = s.errs[s.i]
	}
	s.i++
	return store, err, true
}

// NewSliceRangeStream builds a RangeStream over a fixed set of stores,
// optionally pairing some positions with a resolution error. It is used by
// GRPCPDC and by tests that want a deterministic shard stream.
func NewSliceRangeStream(stores []Store, errs []error) RangeStream {
	return &sliceRangeStream{stores: stores, errs: errs}
}

// CachingPDC wraps a raw PDC (typically GRPCPDC) with an in-memory cache of
// StoreForKey results, keyed by the exact key looked up, so repeated lookups
// of the same key don't round-trip to the placement service; StoreForRange
// is passed straight through uncached. InvalidateRegion drops the cached
// entries for a region so the next resolution re-fetches placement, per
// spec §6.
type CachingPDC struct {
	raw PDC

	mu    sync.RWMutex
	byKey map[string]Store // best-effort point cache, keyed by exact key seen so far
	byID  map[RegionID]Store
}

// NewCachingPDC wraps raw with a region cache.
func NewCachingPDC(raw PDC) *CachingPDC {
	return &CachingPDC{
		raw:   raw,
		byKey: make(map[string]Store),
		byID:  make(map[RegionID]Store),
	}
}

func (c *CachingPDC) StoreForKey(ctx context.Context, key []byte) (Store, error) {
	c.mu.RLock()
	if store, ok := c.byKey[string(key)]; ok {
		c.mu.RUnlock()
		return store, nil
	}
	c.mu.RUnlock()

	store, err := c.raw.StoreForKey(ctx, key)
	if err != nil {
		return Store{}, err
	}
	c.mu.Lock()
	c.byKey[string(key)] = store
	if store.Region != nil {
		c.byID[store.Region.ID] = store
	}
	c.mu.Unlock()
	return store, nil
}

func (c *CachingPDC) StoreForRange(ctx context.Context, startKey, endKey []byte) RangeStream {
	return c.raw.StoreForRange(ctx, startKey, endKey)
}

// InvalidateRegion drops every cache entry pointing at id so the next
// resolution re-fetches placement from the raw PDC.
func (c *CachingPDC) InvalidateRegion(id RegionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
	for k, v := range c.byKey {
		if v.Region != nil && v.Region.ID == id {
			delete(c.byKey, k)
		}
	}
	c.raw.InvalidateRegion(id)
}
