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

// ScanShard is the per-region key sub-range a Scan splits into, produced
// by Scan.Shards and consumed by Scan.ApplyShard (spec §3 "Shard").
type ScanShard struct {
	StartKey []byte
	EndKey   []byte
}

// Scan is a key-range read, shardable across however many regions the
// range spans (spec §4.2's MultiRegion contract).
type Scan struct {
	ShardID  uint64
	StartKey []byte
	EndKey   []byte
	Limit    int

	resp *storewire.ScanResponse
}

// NewScan builds a Scan request over [startKey, endKey) with an optional
// per-shard row limit (0 = unlimited).
func NewScan(startKey, endKey []byte, limit int) *Scan {
	return &Scan{StartKey: startKey, EndKey: endKey, Limit: limit}
}

func (s *Scan) Label() string { return "kv.Scan" }

func (s *Scan) SetContext(region *locate.Region) {
	if region != nil {
		s.ShardID = uint64(region.ID)
	}
}

func (s *Scan) DispatchVia(ctx context.Context, store storeclient.StoreClient) (*Scan, error) {
	resp := &storewire.ScanResponse{}
	req := &storewire.ScanRequest{ShardID: s.ShardID, StartKey: s.StartKey, EndKey: s.EndKey, Limit: s.Limit}
	if err := store.Call(ctx, storewire.MethodScan, req, resp); err != nil {
		return nil, err
	}
	clone := s.clone()
	clone.resp = resp
	return clone, nil
}

func (s *Scan) clone() *Scan {
	start := append([]byte(nil), s.StartKey...)
	end := append([]byte(nil), s.EndKey...)
	return &Scan{ShardID: s.ShardID, StartKey: start, EndKey: end, Limit: s.Limit}
}

func (s *Scan) Clone() request.Dispatcher[*Scan] { return s.clone() }

func (s *Scan) Error() error {
	if s.resp == nil || s.resp.Err == "" {
		return nil
	}
	return kverrors.Errorf(kverrors.KindResponse, "%s", s.resp.Err)
}

func (s *Scan) RegionError() error {
	if s.resp == nil || s.resp.RegionErr == nil {
		return nil
	}
	return kverrors.New(kverrors.KindRegion, kverrors.Errorf(kverrors.KindRegion, "%s on region %d", s.resp.RegionErr.Kind, s.resp.RegionErr.RegionID))
}

func (s *Scan) TakeLocks() []lock.Lock {
	if s.resp == nil {
		return nil
	}
	out := make([]lock.Lock, len(s.resp.Locks))
	for i, l := range s.resp.Locks {
		out[i] = lock.Lock{Key: l.Key, PrimaryKey: l.PrimaryKey, TxnStartTS: l.TxnStartTS, TTLMillis: l.TTLMillis}
	}
	return out
}

// Pairs returns the fetched key/value pairs. Only meaningful once a
// dispatch has completed successfully.
func (s *Scan) Pairs() []storewire.KVPairWire {
	if s.resp == nil {
		return nil
	}
	return s.resp.Pairs
}

// scanShardStream adapts a locate.RangeStream into a request.ShardStream
// by pairing each yielded Store with the sub-range it's authoritative
// for, clipped to the Scan's own [StartKey, EndKey) bounds.
type scanShardStream struct {
	outer    locate.RangeStream
	startKey []byte
	endKey   []byte
}

func (ss *scanShardStream) Next(ctx context.Context) (request.Shard, locate.Store, error, bool) {
	store, err, ok := ss.outer.Next(ctx)
	if !ok {
		return nil, locate.Store{}, nil, false
	}
	if err != nil {
		return nil, locate.Store{}, err, true
	}
	shard := ScanShard{StartKey: ss.startKey, EndKey: ss.endKey}
	if store.Region != nil {
		shard.StartKey = maxKey(shard.StartKey, store.Region.StartKey)
		shard.EndKey = minKey(shard.EndKey, store.Region.EndKey)
	}
	return shard, store, nil, true
}

// maxKey returns whichever of a, b sorts later, treating empty as
// "unbounded low" (sorts first).
func maxKey(a, b []byte) []byte {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return a
			}
			return b
		}
	}
	if len(a) >= len(b) {
		return a
	}
	return b
}

// minKey returns whichever of a, b sorts earlier, treating empty as
// "unbounded high" (sorts last).
func minKey(a, b []byte) []byte {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return a
			}
			return b
		}
	}
	if len(a) <= len(b) {
		return a
	}
	return b
}

// Shards implements request.Shardable: it asks the PDC for the stores
// covering [StartKey, EndKey) and pairs each with its clipped sub-range.
func (s *Scan) Shards(ctx context.Context, pdc locate.PDC) request.ShardStream {
	return &scanShardStream{outer: pdc.StoreForRange(ctx, s.StartKey, s.EndKey), startKey: s.StartKey, endKey: s.EndKey}
}

// ApplyShard narrows this Scan to shard's key sub-range, for the
// MultiRegion clone that will dispatch it (spec §4.2 step 2).
func (s *Scan) ApplyShard(shard request.Shard) {
	ss, ok := shard.(ScanShard)
	if !ok {
		panic(kverrors.Programmer("kvrequests: Scan.ApplyShard given non-ScanShard %T", shard))
	}
	s.StartKey = ss.StartKey
	s.EndKey = ss.EndKey
}
