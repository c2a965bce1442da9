package plan

import (
	"context"

	"github.com/squareup/kvclient/request"
)

// Merge combines a MultiRegion's per-shard vector into a single
// user-facing value and is always terminal — Rule R3 forbids any further
// retry/resolve-lock/process stage above it, enforced by the builder
// (spec §4.5, §4.7).
type Merge[Resp request.Response, Out any] struct {
	inner Stage[ShardResults[Resp]]
	fn    func(ShardResults[Resp]) (Out, error)
}

// NewMerge wraps inner (typically a MultiRegion, or a RetryRegion around
// one) with a reduction fn.
func NewMerge[Resp request.Response, Out any](inner Stage[ShardResults[Resp]], fn func(ShardResults[Resp]) (Out, error)) *Merge[Resp, Out] {
	return &Merge[Resp, Out]{inner: inner, fn: fn}
}

func (m *Merge[Resp, Out]) Execute(ctx context.Context) (Out, error) {
	var zero Out
	results, err := m.inner.Execute(ctx)
	if err != nil {
		return zero, err
	}
	return m.fn(results)
}

func (m *Merge[Resp, Out]) Clone() Stage[Out] {
	return &Merge[Resp, Out]{inner: m.inner.Clone(), fn: m.fn}
}

// CollectError is the built-in Merge strategy that short-circuits on the
// first per-shard error and yields the slice of responses on success
// (spec §4.5).
func CollectError[Resp request.Response](results ShardResults[Resp]) ([]Resp, error) {
	out := make([]Resp, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			return nil, r.Err
		}
		out = append(out, r.Response)
	}
	return out, nil
}
