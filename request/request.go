// Package request defines the contracts a request type must satisfy to
// flow through the plan pipeline (spec §2, §4). It has no knowledge of any
// concrete request kind (Get, Scan, ...) — those live in packages built on
// top of it, such as kvrequests, the same way tikv-client-rust's request module is
// generic over any KvRequest.
package request

import (
	"context"

	"github.com/squareup/kvclient/lock"
	"github.com/squareup/kvclient/locate"
	"github.com/squareup/kvclient/storeclient"
)

// Response is the contract every plan-pipeline result type must satisfy so
// ResolveLock and RetryRegion can inspect it without knowing its concrete
// shape (spec §3, §4.3, §4.4). Spec §3 describes the three capability
// queries as each possibly inapplicable to a given response type; rather
// than split them into separate optional interfaces (which Go's generics
// can't cheaply intersect per-stage the way Rust's trait bounds can),
// every response implements all three, returning the zero value (nil
// error, empty slice) for a query that doesn't apply to it. The
// capabilities stay orthogonal in meaning — §9 "must be separate
// traits/interfaces and not expressed via inheritance" — even though they
// share one Go interface for constraint simplicity.
type Response interface {
	// Error reports a fatal, non-retryable failure already classified by
	// the caller (e.g. a kverrors.Error). A nil Error with a non-nil
	// RegionError or non-empty TakeLocks is the normal "retry me" path.
	Error() error

	// RegionError reports a stale-placement signal (region moved, split,
	// merged, not leader, ...) discovered in the store's response body, as
	// opposed to a transport-level error. Returning non-nil tells
	// RetryRegion to re-dispatch, invalidating the region first only when
	// the error has a RegionID() locate.RegionID method (spec §4.4).
	RegionError() error

	// TakeLocks returns (and conceptually consumes) any locks discovered
	// in this response, for ResolveLock to resolve (spec §4.4). A
	// response kind that can never carry locks returns nil.
	TakeLocks() []lock.Lock
}

// Dispatcher is the leaf contract a concrete request (Get, Scan, ...) must
// implement to be wrapped by Dispatch (spec §4.1). Resp is the request's
// own response type, carried through the whole pipeline without boxing.
type Dispatcher[Resp Response] interface {
	// Label identifies the request kind for metrics/logging (spec §7).
	Label() string

	// SetContext binds the resolved region/store this dispatch should hit.
	// It is called when the stack is targeted: by MultiRegion for each shard
	// clone, and by the builder's single-region transitions. RetryRegion
	// re-dispatches with the context already bound.
	SetContext(region *locate.Region)

	// DispatchVia sends the request to store and decodes its response.
	DispatchVia(ctx context.Context, store storeclient.StoreClient) (Resp, error)

	// Clone produces an independent copy safe to mutate via SetContext
	// without affecting the original (spec §2's "plans are cheaply
	// cloneable" invariant). MultiRegion clones the stack once per shard on
	// every execution; a single-region stack dispatches through the
	// original on every (re)try without cloning it.
	Clone() Dispatcher[Resp]
}

// SingleKey is implemented by a Dispatcher whose request is naturally
// keyed by a single key, so the builder's single_region transition can
// resolve a store for it directly via PDC.StoreForKey without going
// through the shard-stream machinery (spec §6 "(if single-key) key()").
type SingleKey interface {
	Key() []byte
}

// Shard is an opaque per-region fragment of a multi-region request (e.g.
// one region's key sub-range of a Scan). Its shape is owned entirely by
// the concrete request type; the pipeline only ever threads it through.
type Shard = interface{}

// ShardStream yields (shard, store) pairs for a multi-region request,
// backed by locate.PDC.StoreForRange (spec §4.2).
type ShardStream interface {
	Next(ctx context.Context) (shard Shard, store locate.Store, err error, ok bool)
}

// Shardable is implemented by a Dispatcher that knows how to split itself
// across multiple regions. The plan stages ResolveLock and RetryRegion do
// not implement it; they forward the plan package's own shard capability to
// the Dispatch beneath them, so a Shardable request stays shardable under
// them (spec's Rule R2: ResolveLock sits inside RetryRegion, inside
// MultiRegion).
type Shardable[Resp Response] interface {
	Dispatcher[Resp]
	Shards(ctx context.Context, pdc locate.PDC) ShardStream
	ApplyShard(shard Shard)
}
