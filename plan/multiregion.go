package plan

import (
	"context"
	"sync"

	"github.com/squareup/kvclient/kverrors"
	"github.com/squareup/kvclient/lock"
	"github.com/squareup/kvclient/locate"
	"github.com/squareup/kvclient/request"
)

// ShardResult is one shard's outcome from a MultiRegion execution (spec
// §4.2): a response, a per-shard error, or, for a shard whose response
// carries a region error, both that response and the region error.
type ShardResult[Resp request.Response] struct {
	Response Resp
	Err      error
}

// ShardResults is the vector MultiRegion produces. It satisfies
// request.Response itself (spec §9's "polymorphism over request types"
// extended one level: a stage stacked on top of MultiRegion sees a
// uniform Response, exactly as it would atop a single-region Dispatch),
// so RetryRegion and Merge can wrap a MultiRegion the same way they'd wrap
// any other stage, with no special-casing. Per P6, a region error on *any*
// shard makes the whole vector report one, because re-sharding (not a
// single shard's retry) is what a region move requires (spec §4.3).
type ShardResults[Resp request.Response] []ShardResult[Resp]

// Error returns the first non-region-error failure across shards — a
// top-level or transport failure, which per spec §4.3 must propagate
// immediately rather than trigger a region retry.
func (s ShardResults[Resp]) Error() error {
	for _, r := range s {
		if r.Err != nil && !kverrors.Is(r.Err, kverrors.KindRegion) {
			return r.Err
		}
	}
	return nil
}

// RegionError returns the first region error across shards, if any.
func (s ShardResults[Resp]) RegionError() error {
	for _, r := range s {
		if r.Err != nil && kverrors.Is(r.Err, kverrors.KindRegion) {
			return r.Err
		}
	}
	return nil
}

// TakeLocks is always empty at the vector level: lock resolution happens
// per-shard, inside MultiRegion's fan-out (ResolveLock wraps Dispatch, not
// MultiRegion), per spec §4.4's ordering rule.
func (s ShardResults[Resp]) TakeLocks() []lock.Lock { return nil }

// MultiRegion fans a Shardable inner plan out across every (shard, store)
// pair the PDC produces for it, runs the per-shard clones concurrently,
// and returns their outcomes in shard-stream order (spec §4.2, P5).
type MultiRegion[Resp request.Response] struct {
	inner shardableStage[Resp]
	pdc   locate.PDC
}

// NewMultiRegion wraps inner, which must itself be shardable (a Dispatch,
// or a ResolveLock/RetryRegion wrapping one), fanning it out via pdc.
func NewMultiRegion[Resp request.Response](inner shardableStage[Resp], pdc locate.PDC) *MultiRegion[Resp] {
	return &MultiRegion[Resp]{inner: inner, pdc: pdc}
}

// pulled is one item read off the shard stream, kept in stream order so
// the concurrent per-shard executions can be re-assembled positionally.
type pulled struct {
	index int
	shard request.Shard
	store locate.Store
	err   error
}

func (m *MultiRegion[Resp]) Execute(ctx context.Context) (ShardResults[Resp], error) {
	stream := m.inner.shards(ctx, m.pdc)

	var items []pulled
	for i := 0; ; i++ {
		shard, store, err, ok := stream.Next(ctx)
		if !ok {
			break
		}
		items = append(items, pulled{index: i, shard: shard, store: store, err: err})
	}

	results := make(ShardResults[Resp], len(items))
	var wg sync.WaitGroup
	for _, item := range items {
		item := item
		if item.err != nil {
			results[item.index] = ShardResult[Resp]{Err: kverrors.ShardResolutionError(item.err)}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[item.index] = m.executeShard(ctx, item)
		}()
	}
	wg.Wait()

	return results, nil
}

func (m *MultiRegion[Resp]) executeShard(ctx context.Context, item pulled) ShardResult[Resp] {
	clone := m.inner.Clone().(shardableStage[Resp])
	clone.applyShard(item.shard, item.store)
	resp, err := clone.Execute(ctx)
	if err != nil {
		return ShardResult[Resp]{Err: err}
	}
	if respErr := resp.Error(); respErr != nil {
		return ShardResult[Resp]{Err: respErr}
	}
	if regionErr := resp.RegionError(); regionErr != nil {
		return ShardResult[Resp]{Response: resp, Err: kverrors.New(kverrors.KindRegion, regionErr)}
	}
	return ShardResult[Resp]{Response: resp}
}

func (m *MultiRegion[Resp]) Clone() Stage[ShardResults[Resp]] {
	return &MultiRegion[Resp]{inner: m.inner.Clone().(shardableStage[Resp]), pdc: m.pdc}
}
