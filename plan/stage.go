// Package plan implements the request execution pipeline (spec §2-§5): a
// stack of composable, cloneable stages — Dispatch, MultiRegion,
// ResolveLock, RetryRegion, Process, Merge — assembled by a PlanBuilder.
// Each stage is itself a Stage[Resp] and wraps an inner one; executing the
// outermost stage drives the whole stack (spec §2).
package plan

import (
	"context"

	"github.com/squareup/kvclient/locate"
	"github.com/squareup/kvclient/request"
)

// Stage is the contract every node in the pipeline satisfies: a cloneable,
// asynchronous operation that produces a T or a plan-level error (spec §3
// "Plan"). Go generics stand in for the original's parametric polymorphism
// (§9). T is unconstrained here — Process and Merge may terminate the
// stack in a plain domain value that has no Response capabilities — but
// every stage below a Process/Merge (Dispatch, MultiRegion, ResolveLock,
// RetryRegion) additionally constrains its own T to request.Response,
// since those stages inspect response capabilities directly.
type Stage[T any] interface {
	Execute(ctx context.Context) (T, error)

	// Clone produces an independent stage tree: cloning recursively
	// clones the inner stage but shares reference-counted state like the
	// PDC handle (spec §9 "Stage composition as nested ownership").
	Clone() Stage[T]
}

// shardableStage is the capability a stage needs to sit directly beneath
// MultiRegion: it can produce the (shard, store) stream and can mutate
// itself into a single-shard, single-store plan. Dispatch implements it
// directly; ResolveLock and RetryRegion forward it to their inner stage so
// the normal stack — resolve_lock(dispatch) wrapped by multi_region,
// wrapped by retry_region (Rule R1, R2) — type-checks (spec §4.7).
type shardableStage[Resp request.Response] interface {
	Stage[Resp]
	shards(ctx context.Context, pdc locate.PDC) request.ShardStream
	applyShard(shard request.Shard, store locate.Store)
}

// targetableStage is the capability needed for the builder's
// single-region transitions (single_region, single_region_with_store):
// binding one store to the whole stack without going through shard
// fan-out. Dispatch implements it directly; ResolveLock and RetryRegion
// forward it, mirroring shardableStage.
type targetableStage[Resp request.Response] interface {
	Stage[Resp]
	target(store locate.Store)
}
