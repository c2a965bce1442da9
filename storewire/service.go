// Package storewire defines the wire messages and the hand-rolled gRPC
// service descriptor for the fake store used by this module's demo
// (storeserver.PebbleStore, storeclient.GRPCStoreClient). spec.md
// scopes the wire format out of the plan abstraction itself (§1
// Non-goals), so this package, like a generated *_pb2_grpc.go file, lives
// outside the plan package entirely — the plan core only ever talks to the
// storeclient.StoreClient and request.Dispatcher contracts, never to these
// message types directly.
package storewire

import (
	"context"

	"google.golang.org/grpc"

	"github.com/squareup/kvclient/rpcwire"
)

// RegionErrorWire is the over-the-wire shape of a region error: the server
// tells the client which kind of region problem it hit and which region was
// affected. kvrequests carries both only in the text of the error it
// reports, so RetryRegion, which invalidates a region only for an error with
// a RegionID method, does not invalidate a cache entry for it.
type RegionErrorWire struct {
	Kind     string // "not_leader", "not_found", "epoch_stale"
	RegionID uint64
}

// LockWire is the over-the-wire shape of a lock left by another
// transaction's prewrite phase.
type LockWire struct {
	Key         []byte
	PrimaryKey  []byte
	TxnStartTS  uint64
	TTLMillis   uint64
}

// GetRequest reads a single key from one shard.
type GetRequest struct {
	ShardID uint64
	Key     []byte
}

// GetResponse carries either a value, a top-level error, a region error, or
// a set of outstanding locks — mutually non-exclusive per spec §3.
type GetResponse struct {
	Value      []byte
	Found      bool
	Err        string
	RegionErr  *RegionErrorWire
	Locks      []LockWire
}

// ScanRequest reads a key range from one shard.
type ScanRequest struct {
	ShardID  uint64
	StartKey []byte
	EndKey   []byte
	Limit    int
}

// KVPairWire is one key/value pair returned by a scan.
type KVPairWire struct {
	Key   []byte
	Value []byte
}

// ScanResponse is the scan counterpart of GetResponse.
type ScanResponse struct {
	Pairs     []KVPairWire
	Err       string
	RegionErr *RegionErrorWire
	Locks     []LockWire
}

// Method names, used both as the gRPC full method string and as the
// storeclient.StoreClient.Call method argument.
const (
	MethodGet  = "/kvclient.Store/Get"
	MethodScan = "/kvclient.Store/Scan"
)

// StoreServiceServer is implemented by the fake store (storeserver.PebbleStore).
type StoreServiceServer interface {
	Get(ctx context.Context, req *GetRequest) (*GetResponse, error)
	Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error)
}

func getHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServiceServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGet}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServiceServer).Get(ctx, req.(*GetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func scanHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ScanRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServiceServer).Scan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodScan}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServiceServer).Scan(ctx, req.(*ScanRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the hand-rolled equivalent of the ServiceDesc a protoc-gen-go-grpc
// plugin would emit from a .proto file. There is no .proto here (see the
// package doc) — the method table is built directly.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "kvclient.Store",
	HandlerType: (*StoreServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Scan", Handler: scanHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storewire/service.go",
}

// RegisterStoreServiceServer registers srv on s, mirroring the generated
// Register<Service>Server functions used throughout the teacher codebase
// (e.g. service.RegisterPranaDBServiceServer).
func RegisterStoreServiceServer(s *grpc.Server, srv StoreServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// StoreServiceClient is the client-side counterpart, mirroring
// service.PranaDBServiceClient.
type StoreServiceClient interface {
	Get(ctx context.Context, req *GetRequest, opts ...grpc.CallOption) (*GetResponse, error)
	Scan(ctx context.Context, req *ScanRequest, opts ...grpc.CallOption) (*ScanResponse, error)
}

type storeServiceClient struct {
	cc *grpc.ClientConn
}

// NewStoreServiceClient mirrors service.NewPranaDBServiceClient.
func NewStoreServiceClient(cc *grpc.ClientConn) StoreServiceClient {
	return &storeServiceClient{cc: cc}
}

func (c *storeServiceClient) Get(ctx context.Context, req *GetRequest, opts ...grpc.CallOption) (*GetResponse, error) {
	out := new(GetResponse)
	opts = append(opts, grpc.CallContentSubtype(rpcwire.Name))
	if err := c.cc.Invoke(ctx, MethodGet, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeServiceClient) Scan(ctx context.Context, req *ScanRequest, opts ...grpc.CallOption) (*ScanResponse, error) {
	out := new(ScanResponse)
	opts = append(opts, grpc.CallContentSubtype(rpcwire.Name))
	if err := c.cc.Invoke(ctx, MethodScan, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
