package plan

import (
	"context"

	"github.com/squareup/kvclient/backoff"
	"github.com/squareup/kvclient/kverrors"
	"github.com/squareup/kvclient/lock"
	"github.com/squareup/kvclient/locate"
	"github.com/squareup/kvclient/planmetrics"
	"github.com/squareup/kvclient/request"
)

// NoTargetBuilder is the PlanBuilder in its NoTarget phase (spec §4.7):
// the stack does not yet resolve to a concrete server, so only
// MultiRegion, SingleRegion and SingleRegionWithStore may produce a plan;
// every other transition stays in NoTarget. The preferred phantom-typing
// approach from spec §9 is realized here as two concrete builder types
// (NoTargetBuilder/TargettedBuilder) rather than a generic phase type
// parameter — see DESIGN.md's Open Question resolution — giving the same
// externally observable guarantee as phantom typing (P7): there is no
// method on NoTargetBuilder that yields a Plan, only on TargettedBuilder.
type NoTargetBuilder[Resp request.Response] struct {
	dispatcher request.Dispatcher[Resp]
	leaf       shardableStage[Resp]
	pdc        locate.PDC
	recorder   planmetrics.Recorder
}

// NewPlanBuilder starts a builder for dispatcher, still in the NoTarget
// phase (spec §4.7).
func NewPlanBuilder[Resp request.Response](dispatcher request.Dispatcher[Resp], pdc locate.PDC, recorder planmetrics.Recorder) *NoTargetBuilder[Resp] {
	if recorder == nil {
		recorder = planmetrics.NoopRecorder{}
	}
	return &NoTargetBuilder[Resp]{
		dispatcher: dispatcher,
		leaf:       NewDispatch(dispatcher, recorder),
		pdc:        pdc,
		recorder:   recorder,
	}
}

// ResolveLock wraps the current stack with lock resolution. Legal at any
// point before targeting (Rule R2 requires it end up inside RetryRegion
// and MultiRegion, which this ordering — applied before either — always
// satisfies, since each subsequent wrap nests around it).
func (b *NoTargetBuilder[Resp]) ResolveLock(schedule backoff.Schedule, resolver lock.Resolver, label string) *NoTargetBuilder[Resp] {
	return &NoTargetBuilder[Resp]{
		dispatcher: b.dispatcher,
		leaf:       NewResolveLock[Resp](b.leaf, schedule, b.pdc, resolver, label),
		pdc:        b.pdc,
		recorder:   b.recorder,
	}
}

// RetryRegion wraps the current stack with region-error retry. Still
// NoTarget: per spec §4.7 only the targeting transitions leave this
// phase, so retry_region may be applied either before or after
// multi_region is chosen, matching the nested-single-shard-retry use case
// mentioned in §4.3's rationale (RetryRegion inside the sharding).
func (b *NoTargetBuilder[Resp]) RetryRegion(schedule backoff.Schedule, label string) *NoTargetBuilder[Resp] {
	return &NoTargetBuilder[Resp]{
		dispatcher: b.dispatcher,
		leaf:       NewRetryRegion[Resp](b.leaf, schedule, b.pdc, label),
		pdc:        b.pdc,
		recorder:   b.recorder,
	}
}

// MultiRegion shards the request across the PDC's (shard, store) stream
// and transitions the builder to Targetted (spec §4.7 Rule R4: mutually
// exclusive with SingleRegion/SingleRegionWithStore on the same stack).
// The resulting TargettedBuilder's response type is ShardResults[Resp],
// the per-shard vector — callers stack RetryRegion, then Merge, on top.
func (b *NoTargetBuilder[Resp]) MultiRegion() *TargettedBuilder[ShardResults[Resp]] {
	return &TargettedBuilder[ShardResults[Resp]]{
		stage:    NewMultiRegion[Resp](b.leaf, b.pdc),
		pdc:      b.pdc,
		recorder: b.recorder,
	}
}

// SingleRegion resolves a single store for the request via the PDC,
// keyed by the dispatcher's own key (spec §6 "if single-key"), and
// targets the whole stack at it in one step, transitioning to Targetted.
func (b *NoTargetBuilder[Resp]) SingleRegion(ctx context.Context) (*TargettedBuilder[Resp], error) {
	keyer, ok := b.dispatcher.(request.SingleKey)
	if !ok {
		return nil, kverrors.Programmer("plan: single_region requires the request to implement SingleKey")
	}
	store, err := b.pdc.StoreForKey(ctx, keyer.Key())
	if err != nil {
		return nil, kverrors.ShardResolutionError(err)
	}
	return b.SingleRegionWithStore(store), nil
}

// SingleRegionWithStore targets the whole stack at an already-resolved
// store, transitioning to Targetted (spec §4.7).
func (b *NoTargetBuilder[Resp]) SingleRegionWithStore(store locate.Store) *TargettedBuilder[Resp] {
	b.leaf.(targetableStage[Resp]).target(store)
	return &TargettedBuilder[Resp]{stage: b.leaf, pdc: b.pdc, recorder: b.recorder}
}

// TargettedBuilder is the PlanBuilder in its Targetted phase (spec §4.7):
// every leaf Dispatch now has a store client bound. The only terminal
// operation is Plan, which emits the assembled Stage.
type TargettedBuilder[R request.Response] struct {
	stage    Stage[R]
	pdc      locate.PDC
	recorder planmetrics.Recorder
}

// RetryRegion wraps a Targetted stack with region-error retry without
// leaving the Targetted phase — used to stack retry_region around
// multi_region (Rule R1), or around an already-targeted single-region
// stack.
func (b *TargettedBuilder[R]) RetryRegion(schedule backoff.Schedule, label string) *TargettedBuilder[R] {
	return &TargettedBuilder[R]{
		stage:    NewRetryRegion[R](b.stage, schedule, b.pdc, label),
		pdc:      b.pdc,
		recorder: b.recorder,
	}
}

// Process applies a pure transformation to a Targetted single-region
// result and terminates the builder chain (spec §4.5: Process runs on
// single-region paths where no merge step exists, so — like Merge — its
// output type need not itself be a Response, making it a natural stopping
// point; see DESIGN.md for why this module treats it as terminal even
// though only Merge is explicitly called out by Rule R3).
func ProcessBuilder[In request.Response, Out any](b *TargettedBuilder[In], fn func(In) (Out, error)) *Plan[Out] {
	return &Plan[Out]{stage: NewProcess[In, Out](b.stage, fn)}
}

// MergeBuilder terminates a ShardResults[Resp] stack with a reduction,
// per Rule R3 (Merge is terminal).
func MergeBuilder[Resp request.Response, Out any](b *TargettedBuilder[ShardResults[Resp]], fn func(ShardResults[Resp]) (Out, error)) *Plan[Out] {
	return &Plan[Out]{stage: NewMerge[Resp, Out](b.stage, fn)}
}

// Plan terminates the stack without any Process/Merge transformation,
// emitting the assembled Stage as-is.
func (b *TargettedBuilder[R]) Plan() *Plan[R] {
	return &Plan[R]{stage: b.stage}
}

// Plan is the builder's terminal artifact: an executable, cloneable plan
// (spec §3 "Plan", §4.7 "plan()").
type Plan[T any] struct {
	stage Stage[T]
}

func (p *Plan[T]) Execute(ctx context.Context) (T, error) {
	return p.stage.Execute(ctx)
}

func (p *Plan[T]) Clone() *Plan[T] {
	return &Plan[T]{stage: p.stage.Clone()}
}
