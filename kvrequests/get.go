// Package kvrequests is a minimal concrete request kind (Get, Scan) built
// on top of the plan pipeline's contracts, standing in for the "concrete
// request/response types" spec.md explicitly scopes out of the plan
// abstraction itself (spec §1). It exists so this module has something
// real to build plans over in the demo (the plan package's scenario tests
// use their own fake dispatcher).
package kvrequests

import (
	"context"

	"github.com/squareup/kvclient/kverrors"
	"github.com/squareup/kvclient/lock"
	"github.com/squareup/kvclient/locate"
	"github.com/squareup/kvclient/request"
	"github.com/squareup/kvclient/storeclient"
	"github.com/squareup/kvclient/storewire"
)

// Get is a single-key point read. It implements request.Dispatcher,
// request.SingleKey and request.Response in one type for simplicity,
// mirroring the Rust original's pattern of one struct owning both its
// request and response shape.
type Get struct {
	ShardID uint64
	key     []byte

	resp *storewire.GetResponse
}

// NewGet builds a Get request for key, with no shard/store bound yet.
func NewGet(key []byte) *Get {
	return &Get{key: key}
}

func (g *Get) Label() string { return "kv.Get" }

func (g *Get) Key() []byte { return g.key }

func (g *Get) SetContext(region *locate.Region) {
	if region != nil {
		g.ShardID = uint64(region.ID)
	}
}

func (g *Get) DispatchVia(ctx context.Context, store storeclient.StoreClient) (*Get, error) {
	resp := &storewire.GetResponse{}
	req := &storewire.GetRequest{ShardID: g.ShardID, Key: g.key}
	if err := store.Call(ctx, storewire.MethodGet, req, resp); err != nil {
		return nil, err
	}
	clone := g.clone()
	clone.resp = resp
	return clone, nil
}

func (g *Get) clone() *Get {
	key := make([]byte, len(g.key))
	copy(key, g.key)
	return &Get{ShardID: g.ShardID, key: key}
}

func (g *Get) Clone() request.Dispatcher[*Get] { return g.clone() }

// Error implements request.Response: it reports the store's top-level
// GetResponse.Err, which is distinct from a region error or lock.
func (g *Get) Error() error {
	if g.resp == nil || g.resp.Err == "" {
		return nil
	}
	return kverrors.Errorf(kverrors.KindResponse, "%s", g.resp.Err)
}

func (g *Get) RegionError() error {
	if g.resp == nil || g.resp.RegionErr == nil {
		return nil
	}
	return kverrors.New(kverrors.KindRegion, kverrors.Errorf(kverrors.KindRegion, "%s on region %d", g.resp.RegionErr.Kind, g.resp.RegionErr.RegionID))
}

func (g *Get) TakeLocks() []lock.Lock {
	if g.resp == nil {
		return nil
	}
	out := make([]lock.Lock, len(g.resp.Locks))
	for i, l := range g.resp.Locks {
		out[i] = lock.Lock{Key: l.Key, PrimaryKey: l.PrimaryKey, TxnStartTS: l.TxnStartTS, TTLMillis: l.TTLMillis}
	}
	return out
}

// Value returns the fetched value and whether the key was found. Only
// meaningful once a dispatch has completed successfully.
func (g *Get) Value() ([]byte, bool) {
	if g.resp == nil {
		return nil, false
	}
	return g.resp.Value, g.resp.Found
}
