package plan

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/squareup/kvclient/backoff"
	"github.com/squareup/kvclient/kverrors"
	"github.com/squareup/kvclient/locate"
	"github.com/squareup/kvclient/request"
)

// RetryRegion wraps any plan whose result exposes RegionError, retrying
// the whole inner execution while region errors keep appearing (spec
// §4.3). R is parametric so the same stage works stacked directly on a
// single-region Dispatch/ResolveLock, or on a MultiRegion's
// ShardResults[Resp] (Rule R1) — see P6.
type RetryRegion[R request.Response] struct {
	inner    Stage[R]
	schedule backoff.Schedule
	pdc      locate.PDC
	label    string
}

// NewRetryRegion wraps inner with a region-error retry loop bounded by
// schedule. label is used for log/metric correlation only.
func NewRetryRegion[R request.Response](inner Stage[R], schedule backoff.Schedule, pdc locate.PDC, label string) *RetryRegion[R] {
	return &RetryRegion[R]{inner: inner, schedule: schedule, pdc: pdc, label: label}
}

func (r *RetryRegion[R]) Execute(ctx context.Context) (R, error) {
	// Cloned once at entry so a later re-execution of the *outer* plan
	// (e.g. by an enclosing retry or a caller re-running the whole plan)
	// starts with a fresh budget, per spec §4.3 "backoff state is cloned
	// once at entry".
	schedule := r.schedule.Clone()

	var zero R
	for {
		if err := ctx.Err(); err != nil {
			return zero, kverrors.Cancelled(err)
		}

		resp, err := r.inner.Execute(ctx)
		if err != nil {
			return zero, err
		}
		if regionErr := resp.RegionError(); regionErr != nil {
			if regionID, ok := regionIDFromError(regionErr); ok {
				r.pdc.InvalidateRegion(regionID)
			}
			delay, ok := schedule.NextDelay()
			if !ok {
				return zero, kverrors.New(kverrors.KindRegion, regionErr)
			}
			log.Debugf("plan: %s region error, retrying in %s: %v", r.label, delay, regionErr)
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
			continue
		}
		return resp, nil
	}
}

// regionIDFromError extracts a region ID from a region error when the
// caller's error type carries one; collaborators that don't expose a
// structured region ID can return ok=false and RetryRegion simply skips
// the invalidation (a subsequent StoreForKey will still observe staleness
// eventually via the store's response, just one round trip later).
func regionIDFromError(err error) (locate.RegionID, bool) {
	type regionIDer interface {
		RegionID() locate.RegionID
	}
	if r, ok := err.(regionIDer); ok {
		return r.RegionID(), true
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return kverrors.Cancelled(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (r *RetryRegion[R]) Clone() Stage[R] {
	return &RetryRegion[R]{inner: r.inner.Clone(), schedule: r.schedule, pdc: r.pdc, label: r.label}
}

// shards/applyShard forward shard capability to the inner stage so that
// `resolve_lock(dispatch).retry_region()` (single-shard retry nested
// inside sharding, per the §4.3 rationale) remains Shardable; MultiRegion
// asserts for this when RetryRegion sits directly beneath it.
func (r *RetryRegion[R]) shards(ctx context.Context, pdc locate.PDC) request.ShardStream {
	return r.inner.(shardableStage[R]).shards(ctx, pdc)
}

func (r *RetryRegion[R]) applyShard(shard request.Shard, store locate.Store) {
	r.inner.(shardableStage[R]).applyShard(shard, store)
}

func (r *RetryRegion[R]) target(store locate.Store) {
	r.inner.(targetableStage[R]).target(store)
}
