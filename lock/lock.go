// Package lock defines the lock-resolver contract consumed by the
// ResolveLock plan stage (spec §4.4, §6). The conflict-resolution
// algorithm itself is explicitly out of scope (spec §1 Non-goals); this
// package only carries the Lock value and the Resolver interface the
// ResolveLock stage calls into.
package lock

import (
	"context"

	"github.com/squareup/kvclient/locate"
)

// Lock is a row-level marker left by a transaction's prewrite phase.
type Lock struct {
	Key        []byte
	PrimaryKey []byte
	TxnStartTS uint64
	TTLMillis  uint64
}

// Resolver decides each owning transaction's fate for a set of discovered
// locks and cleans them up. Resolved reports whether every lock was
// resolved synchronously (true) or at least one is still held by a live
// transaction (false) — see spec §4.4 for how ResolveLock uses this to
// decide whether to consume a backoff delay.
type Resolver interface {
	ResolveLocks(ctx context.Context, locks []Lock, pdc locate.PDC) (resolved bool, err error)
}
