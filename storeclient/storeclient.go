// Package storeclient defines the store-client contract consumed by the
// plan pipeline (spec §6: "dispatch(request) -> response") and a concrete
// gRPC-backed implementation.
//
// The plan package never marshals a request itself — spec.md scopes the
// wire format and wire codecs out entirely (§1 Non-goals) — it only ever
// calls Call with the pieces a concrete request type already knows how to
// build. Marshalling happens below this interface, inside whichever
// StoreClient implementation is in use.
package storeclient

import (
	"context"
	"io"
)

// StoreClient is a single-server RPC stub. One StoreClient talks to exactly
// one store (spec §3 "Store client: an RPC stub for a single server").
type StoreClient interface {
	io.Closer

	// Call invokes method against the bound server, marshalling req and
	// unmarshalling the reply into resp. It is async (honours ctx
	// cancellation), one-shot, and does not retry.
	Call(ctx context.Context, method string, req, resp interface{}) error

	// Addr is the dial address this client is bound to, used for log and
	// metric attribution.
	Addr() string
}
