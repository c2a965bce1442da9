// Command kvclient-demo wires a fake single-node store server, a gRPC
// placement directory, and the plan pipeline together end to end: it
// seeds a few keys, then runs a Get through
// retry_region(resolve_lock(dispatch)), targeted with single_region, and a
// Scan through merge(retry_region(multi_region(dispatch))), printing what
// came back.
// It exists to exercise the plan package against a real (if fake)
// network round trip, the way api/server.go plus client/client.go did
// for the teacher's push-engine demo.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/squareup/kvclient/backoff"
	"github.com/squareup/kvclient/conf"
	"github.com/squareup/kvclient/kvrequests"
	"github.com/squareup/kvclient/lock"
	"github.com/squareup/kvclient/locate"
	"github.com/squareup/kvclient/locateserver"
	"github.com/squareup/kvclient/plan"
	"github.com/squareup/kvclient/planmetrics"
	"github.com/squareup/kvclient/storeserver"
	"github.com/squareup/kvclient/storewire"
)

const (
	storeAddr = "127.0.0.1:28701"
	pdcAddr   = "127.0.0.1:28702"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("kvclient-demo: %v", err)
	}
}

func run() error {
	dir, err := os.MkdirTemp("", "kvclient-demo-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	store, err := storeserver.NewPebbleStore(dir)
	if err != nil {
		return err
	}
	srv := storeserver.NewServer(storeAddr, store)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	staticDir := locateserver.NewStaticDirectory(1, storeAddr)
	locsrv := locateserver.NewServer(pdcAddr, staticDir)
	if err := locsrv.Start(); err != nil {
		return err
	}
	defer locsrv.Stop()
	time.Sleep(100 * time.Millisecond) // let the listeners come up

	if err := store.Put(1, []byte("hello"), []byte("world")); err != nil {
		return err
	}
	if err := store.Put(1, []byte("key-a"), []byte("value-a")); err != nil {
		return err
	}
	if err := store.Put(1, []byte("key-b"), []byte("value-b")); err != nil {
		return err
	}

	cfg := conf.DefaultConfig()
	cfg.PDCAddr = pdcAddr

	rawPDC, err := locate.DialPDC(cfg.PDCAddr, grpc.WithInsecure()) //nolint: staticcheck
	if err != nil {
		return err
	}
	defer rawPDC.Close()
	pdc := locate.NewCachingPDC(rawPDC)

	recorder, err := planmetrics.NewRecorder(cfg)
	if err != nil {
		return err
	}
	resolver := noopResolver{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	get := kvrequests.NewGet([]byte("hello"))
	getBuilder := plan.NewPlanBuilder[*kvrequests.Get](get, pdc, recorder).
		ResolveLock(regionScheduleFor(cfg), resolver, get.Label())
	targetted, err := getBuilder.RetryRegion(regionScheduleFor(cfg), get.Label()).SingleRegion(ctx)
	if err != nil {
		return err
	}
	getPlan := targetted.Plan()
	resp, err := getPlan.Execute(ctx)
	if err != nil {
		return err
	}
	value, found := resp.Value()
	fmt.Printf("Get(%q) = %q, found=%v\n", "hello", value, found)

	scan := kvrequests.NewScan([]byte("key-a"), []byte("key-c"), 0)
	scanBuilder := plan.NewPlanBuilder[*kvrequests.Scan](scan, pdc, recorder)
	merged := plan.MergeBuilder[*kvrequests.Scan, []storewire.KVPairWire](
		scanBuilder.MultiRegion().RetryRegion(regionScheduleFor(cfg), scan.Label()),
		collectScanPairs,
	)
	pairs, err := merged.Execute(ctx)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		fmt.Printf("Scan pair: %q = %q\n", p.Key, p.Value)
	}
	return nil
}

func regionScheduleFor(cfg conf.Config) backoff.Schedule {
	return backoff.Exponential(cfg.RegionBackoffBase, cfg.RegionBackoffCap, cfg.RegionBackoffMaxAttempts, cfg.RegionBackoffJitter)
}

// noopResolver treats every lock as immediately resolved; the demo never
// seeds a lock, so ResolveLock's lock-retry loop is wired but never
// actually exercised beyond the zero-lock fast path.
type noopResolver struct{}

func (noopResolver) ResolveLocks(context.Context, []lock.Lock, locate.PDC) (bool, error) {
	return true, nil
}

func collectScanPairs(results plan.ShardResults[*kvrequests.Scan]) ([]storewire.KVPairWire, error) {
	var out []storewire.KVPairWire
	for _, r := range results {
		if r.Err != nil {
			return nil, r.Err
		}
		out = append(out, r.Response.Pairs()...)
	}
	return out, nil
}
