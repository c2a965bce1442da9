package plan

import (
	"context"
	"time"

	"github.com/squareup/kvclient/kverrors"
	"github.com/squareup/kvclient/locate"
	"github.com/squareup/kvclient/planmetrics"
	"github.com/squareup/kvclient/request"
)

// Dispatch is the leaf stage: it sends one request to one server and
// returns one response, untouched (spec §4.1). It reads Error, RegionError
// and TakeLocks only to classify the outcome it records for metrics; acting
// on them is the job of the stages wrapping it.
type Dispatch[Resp request.Response] struct {
	dispatcher request.Dispatcher[Resp]
	store      locate.Store
	targeted   bool
	recorder   planmetrics.Recorder
}

// NewDispatch wraps dispatcher as an untargeted leaf plan. A store must be
// bound — via target or via MultiRegion's shard application — before
// Execute is called; the builder's phase system is what prevents a
// caller from reaching an untargeted Dispatch's Execute in practice (spec
// §4.1 Preconditions).
func NewDispatch[Resp request.Response](dispatcher request.Dispatcher[Resp], recorder planmetrics.Recorder) *Dispatch[Resp] {
	if recorder == nil {
		recorder = planmetrics.NoopRecorder{}
	}
	return &Dispatch[Resp]{dispatcher: dispatcher, recorder: recorder}
}

// target binds store to this leaf directly, for the single_region and
// single_region_with_store builder transitions (spec §4.7).
func (d *Dispatch[Resp]) target(store locate.Store) {
	d.dispatcher.SetContext(store.Region)
	d.store = store
	d.targeted = true
}

func (d *Dispatch[Resp]) Execute(ctx context.Context) (Resp, error) {
	var zero Resp
	if err := ctx.Err(); err != nil {
		return zero, kverrors.New(kverrors.KindCancelled, err)
	}
	if !d.targeted {
		return zero, kverrors.Programmer("plan: Dispatch executed before a store was bound for %q", d.dispatcher.Label())
	}
	start := time.Now()
	resp, err := d.dispatcher.DispatchVia(ctx, d.store.Client)
	d.recorder.Observe(d.dispatcher.Label(), classify(resp, err), time.Since(start))
	if err != nil {
		return zero, kverrors.New(kverrors.KindTransport, err)
	}
	return resp, nil
}

func classify(resp request.Response, err error) planmetrics.Outcome {
	if err != nil {
		return planmetrics.OutcomeError
	}
	if resp == nil {
		return planmetrics.OutcomeError
	}
	if resp.Error() != nil {
		return planmetrics.OutcomeError
	}
	if resp.RegionError() != nil {
		return planmetrics.OutcomeRegionError
	}
	if len(resp.TakeLocks()) > 0 {
		return planmetrics.OutcomeLockEncountered
	}
	return planmetrics.OutcomeSuccess
}

func (d *Dispatch[Resp]) Clone() Stage[Resp] {
	return &Dispatch[Resp]{
		dispatcher: d.dispatcher.Clone(),
		store:      d.store,
		targeted:   d.targeted,
		recorder:   d.recorder,
	}
}

func (d *Dispatch[Resp]) shards(ctx context.Context, pdc locate.PDC) request.ShardStream {
	sharder, ok := d.dispatcher.(request.Shardable[Resp])
	if !ok {
		panic(kverrors.Programmer("plan: %q is not Shardable but was wrapped in MultiRegion", d.dispatcher.Label()))
	}
	return sharder.Shards(ctx, pdc)
}

func (d *Dispatch[Resp]) applyShard(shard request.Shard, store locate.Store) {
	sharder, ok := d.dispatcher.(request.Shardable[Resp])
	if !ok {
		panic(kverrors.Programmer("plan: %q is not Shardable but was wrapped in MultiRegion", d.dispatcher.Label()))
	}
	sharder.ApplyShard(shard)
	d.dispatcher.SetContext(store.Region)
	d.store = store
	d.targeted = true
}
