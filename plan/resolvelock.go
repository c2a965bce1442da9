package plan

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/squareup/kvclient/backoff"
	"github.com/squareup/kvclient/kverrors"
	"github.com/squareup/kvclient/lock"
	"github.com/squareup/kvclient/locate"
	"github.com/squareup/kvclient/request"
)

// ResolveLock wraps any plan whose result may carry locks, resolving them
// and retrying the inner plan until the response comes back clean (spec
// §4.4). Like RetryRegion, R is parametric so it composes at any level.
type ResolveLock[R request.Response] struct {
	inner    Stage[R]
	schedule backoff.Schedule
	pdc      locate.PDC
	resolver lock.Resolver
	label    string
}

// NewResolveLock wraps inner with a lock-resolution retry loop bounded by
// schedule. A backoff.None() schedule makes ResolveLock fail fast on the
// first lock it sees (spec §4.4 step 3).
func NewResolveLock[R request.Response](inner Stage[R], schedule backoff.Schedule, pdc locate.PDC, resolver lock.Resolver, label string) *ResolveLock[R] {
	return &ResolveLock[R]{inner: inner, schedule: schedule, pdc: pdc, resolver: resolver, label: label}
}

func (r *ResolveLock[R]) Execute(ctx context.Context) (R, error) {
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

		locks := resp.TakeLocks()
		if len(locks) == 0 {
			return resp, nil
		}

		if schedule.IsNone() {
			return zero, kverrors.Errorf(kverrors.KindResolveLock, "lock retry disabled, %d lock(s) outstanding", len(locks))
		}

		resolved, err := r.resolver.ResolveLocks(ctx, locks, r.pdc)
		if err != nil {
			return zero, kverrors.New(kverrors.KindResolveLock, err)
		}
		if resolved {
			// All locks were cleanable; re-execute to make progress
			// without touching the backoff budget (spec §4.4, P2, and the
			// Open Question in §9 confirming this is intentional).
			log.Debugf("plan: %s locks resolved synchronously, retrying without backoff", r.label)
			continue
		}

		delay, ok := schedule.NextDelay()
		if !ok {
			return zero, kverrors.Errorf(kverrors.KindResolveLock, "lock backoff exhausted, %d lock(s) still live", len(locks))
		}
		log.Debugf("plan: %s locks still live, retrying in %s", r.label, delay)
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func (r *ResolveLock[R]) Clone() Stage[R] {
	return &ResolveLock[R]{
		inner:    r.inner.Clone(),
		schedule: r.schedule,
		pdc:      r.pdc,
		resolver: r.resolver,
		label:    r.label,
	}
}

func (r *ResolveLock[R]) shards(ctx context.Context, pdc locate.PDC) request.ShardStream {
	return r.inner.(shardableStage[R]).shards(ctx, pdc)
}

func (r *ResolveLock[R]) applyShard(shard request.Shard, store locate.Store) {
	r.inner.(shardableStage[R]).applyShard(shard, store)
}

func (r *ResolveLock[R]) target(store locate.Store) {
	r.inner.(targetableStage[R]).target(store)
}
