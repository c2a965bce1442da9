// Package kverrors provides the error-kind taxonomy used across the plan
// pipeline (transport, region, lock, shard-resolution and cancellation
// errors), built on top of github.com/pingcap/errors so that stack traces
// survive stage boundaries the same way they do in the rest of the client.
package kverrors

import (
	"fmt"

	pingerrors "github.com/pingcap/errors" //nolint: depguard
)

// Kind classifies an error along the taxonomy of spec §7. It is not itself
// the error type: callers type-switch on *Error.Kind, not on Go's error
// wrapping chain, because region/lock errors must stay opaque to every
// stage except the one that retries them.
type Kind int

const (
	// KindTransport is an RPC that failed before a response was produced.
	KindTransport Kind = iota
	// KindResponse is a top-level, non-region, non-lock application error.
	KindResponse
	// KindRegion is a region error (moved, split, merged, epoch stale).
	KindRegion
	// KindResolveLock is a failure to resolve locks (exhaustion, or the
	// lock backoff is the "none" schedule).
	KindResolveLock
	// KindShardResolution is a failure by the PDC to resolve a key/range
	// to a store.
	KindShardResolution
	// KindCancelled is an external cancellation of the plan's context.
	KindCancelled
	// KindProgrammer marks invariant violations (unpopulated dispatch
	// target, a clone that changed concrete type) that are not meant to
	// be recovered from by a caller.
	KindProgrammer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindResponse:
		return "response"
	case KindRegion:
		return "region"
	case KindResolveLock:
		return "resolve_lock"
	case KindShardResolution:
		return "shard_resolution"
	case KindCancelled:
		return "cancelled"
	case KindProgrammer:
		return "programmer"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned from any plan stage. Cause is
// traced with pingcap/errors.Trace so the original stack is preserved.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// New wraps cause (which may be nil) as an *Error of the given kind, tracing
// the call stack through pingcap/errors.
func New(kind Kind, cause error) *Error {
	if cause == nil {
		return &Error{Kind: kind}
	}
	return &Error{Kind: kind, cause: pingerrors.Trace(cause)}
}

// Errorf builds a *Error of the given kind from a format string; the cause it
// builds records the call stack the way New does for a non-nil cause.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, cause: pingerrors.Errorf(format, args...)}
}

// ResolveLockError is returned by ResolveLock on backoff exhaustion or when
// the lock backoff schedule is the trivial "none" schedule (spec §4.4).
func ResolveLockError(cause error) *Error {
	return New(KindResolveLock, cause)
}

// RegionError wraps a region-level failure (stale leader, not-found, epoch
// mismatch) as returned by RetryRegion on backoff exhaustion (spec §4.3).
func RegionError(cause error) *Error {
	return New(KindRegion, cause)
}

// ShardResolutionError wraps a PDC failure to resolve a key or range.
func ShardResolutionError(cause error) *Error {
	return New(KindShardResolution, cause)
}

// Cancelled wraps ctx.Err() when a suspension point observes context
// cancellation.
func Cancelled(cause error) *Error {
	return New(KindCancelled, cause)
}

// Programmer builds the error for invariant violations (spec §4.1's
// "unpopulated slot is a programmer error, not a recoverable failure") so
// the message is consistent wherever it's raised. Some call sites panic with
// it (a non-Shardable request inside MultiRegion); others return it as an
// ordinary error (an untargeted Dispatch, single_region on a request without
// a key, a mismatched store-client call).
func Programmer(format string, args ...interface{}) *Error {
	return Errorf(KindProgrammer, format, args...)
}

// Is reports whether err is a *Error of the given kind, unwrapping through
// pingcap/errors' own wrapping.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok { //nolint: errorlint
			return e.Kind == kind
		}
		cause := pingerrors.Cause(err)
		if cause == err {
			return false
		}
		err = cause
	}
	return false
}
