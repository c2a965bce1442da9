// Package locateserver is a fake placement-directory service backing
// locate.GRPCPDC end to end, the same role storeserver plays for
// storeclient.GRPCStoreClient. The PDC's own election/placement policy is
// out of scope (spec.md §1 Non-goals), so StaticDirectory answers every
// lookup with one fixed region-to-store mapping rather than implementing
// real placement.
package locateserver

import (
	"context"

	"github.com/squareup/kvclient/locatewire"
)

// StaticDirectory is a locatewire.LocateServiceServer over a single region
// spanning the whole keyspace, all of it served by one store address.
type StaticDirectory struct {
	region    locatewire.RegionWire
	storeAddr string
}

// NewStaticDirectory builds a directory that answers every StoreForKey and
// StoreForRange call with regionID served at storeAddr.
func NewStaticDirectory(regionID uint64, storeAddr string) *StaticDirectory {
	return &StaticDirectory{
		region:    locatewire.RegionWire{ID: regionID},
		storeAddr: storeAddr,
	}
}

func (d *StaticDirectory) storeWire() locatewire.StoreWire {
	return locatewire.StoreWire{Region: d.region, StoreAddr: d.storeAddr}
}

func (d *StaticDirectory) StoreForKey(context.Context, *locatewire.StoreForKeyRequest) (*locatewire.StoreForKeyResponse, error) {
	return &locatewire.StoreForKeyResponse{Store: d.storeWire()}, nil
}

func (d *StaticDirectory) StoreForRange(context.Context, *locatewire.StoreForRangeRequest) (*locatewire.StoreForRangeResponse, error) {
	return &locatewire.StoreForRangeResponse{Stores: []locatewire.StoreWire{d.storeWire()}}, nil
}
