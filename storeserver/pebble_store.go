// Package storeserver provides a fake, pebble-backed store server used by
// this module's demo in place of a real cluster node. It
// implements the storewire.StoreServiceServer contract the same way
// storage/storage.go's Storage interface fronts a real engine, and the
// shard-prefixed key layout is grounded on cluster/dragon/dragon.go's
// LocalScan/LocalGet.
package storeserver

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/cockroachdb/pebble"
	log "github.com/sirupsen/logrus"

	"github.com/squareup/kvclient/kverrors"
	"github.com/squareup/kvclient/storewire"
)

// PebbleStore is a single-node fake store: every shard lives in the same
// pebble.DB, keyed by an 8-byte big-endian shard-id prefix exactly like
// Dragon.LocalScan/LocalGet key shard-prefixing.
type PebbleStore struct {
	db *pebble.DB

	mu           sync.Mutex
	regionErrors map[uint64]*storewire.RegionErrorWire
	locks        map[string][]storewire.LockWire
}

// NewPebbleStore opens (or creates) a pebble database at dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, kverrors.New(kverrors.KindTransport, err)
	}
	return &PebbleStore{
		db:           db,
		regionErrors: make(map[uint64]*storewire.RegionErrorWire),
		locks:        make(map[string][]storewire.LockWire),
	}, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func shardKey(shardID uint64, key []byte) []byte {
	buf := make([]byte, 8+len(key))
	binary.BigEndian.PutUint64(buf, shardID)
	copy(buf[8:], key)
	return buf
}

// Put writes a single key on a shard; used by the demo to seed
// data (not part of the storewire.StoreServiceServer contract, which is
// read-only in this module since spec.md's plan abstraction is agnostic to
// the request kind).
func (s *PebbleStore) Put(shardID uint64, key, value []byte) error {
	if err := s.db.Set(shardKey(shardID, key), value, pebble.Sync); err != nil {
		return kverrors.New(kverrors.KindTransport, err)
	}
	return nil
}

// SetRegionError makes every subsequent Get/Scan against shardID return the
// given region error, simulating a moved/split/merged region. A nil err
// clears the simulated fault.
func (s *PebbleStore) SetRegionError(shardID uint64, err *storewire.RegionErrorWire) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.regionErrors, shardID)
		return
	}
	s.regionErrors[shardID] = err
}

// SetLocks makes every subsequent Get of key, and every Scan whose StartKey
// is key, return the given locks, simulating a live prewrite. A nil/empty
// slice clears the simulated fault.
func (s *PebbleStore) SetLocks(key []byte, locks []storewire.LockWire) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(locks) == 0 {
		delete(s.locks, string(key))
		return
	}
	s.locks[string(key)] = locks
}

func (s *PebbleStore) faultsFor(shardID uint64, key []byte) (*storewire.RegionErrorWire, []storewire.LockWire) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regionErrors[shardID], s.locks[string(key)]
}

func (s *PebbleStore) Get(_ context.Context, req *storewire.GetRequest) (*storewire.GetResponse, error) {
	if regionErr, locks := s.faultsFor(req.ShardID, req.Key); regionErr != nil || len(locks) > 0 {
		return &storewire.GetResponse{RegionErr: regionErr, Locks: locks}, nil
	}
	value, closer, err := s.db.Get(shardKey(req.ShardID, req.Key))
	if err == pebble.ErrNotFound {
		return &storewire.GetResponse{Found: false}, nil
	}
	if err != nil {
		return nil, kverrors.New(kverrors.KindTransport, err)
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			log.Errorf("storeserver: failed to close pebble value handle: %+v", cerr)
		}
	}()
	out := make([]byte, len(value))
	copy(out, value)
	return &storewire.GetResponse{Value: out, Found: true}, nil
}

func (s *PebbleStore) Scan(_ context.Context, req *storewire.ScanRequest) (*storewire.ScanResponse, error) {
	if regionErr, locks := s.faultsFor(req.ShardID, req.StartKey); regionErr != nil || len(locks) > 0 {
		return &storewire.ScanResponse{RegionErr: regionErr, Locks: locks}, nil
	}
	lower := shardKey(req.ShardID, req.StartKey)
	upper := shardKey(req.ShardID, req.EndKey)
	iter := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	defer func() {
		if cerr := iter.Close(); cerr != nil {
			log.Errorf("storeserver: failed to close pebble iterator: %+v", cerr)
		}
	}()
	var pairs []storewire.KVPairWire
	limit := req.Limit
	for iter.SeekGE(lower); iter.Valid(); iter.Next() {
		if limit > 0 && len(pairs) >= limit {
			break
		}
		k := make([]byte, len(iter.Key())-8)
		copy(k, iter.Key()[8:])
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		pairs = append(pairs, storewire.KVPairWire{Key: k, Value: v})
	}
	return &storewire.ScanResponse{Pairs: pairs}, nil
}
