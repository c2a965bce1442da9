// Package locatewire is the hand-written wire contract for the placement
// directory service, mirroring storewire's shape (itself standing in for a
// generated *_pb2_grpc.go file) since spec.md's Non-goals exclude defining
// the wire format.
package locatewire

import (
	"context"

	"google.golang.org/grpc"

	"github.com/squareup/kvclient/rpcwire"
)

const (
	MethodStoreForKey   = "/kvclient.locate.LocateService/StoreForKey"
	MethodStoreForRange = "/kvclient.locate.LocateService/StoreForRange"
)

// RegionWire is the wire form of locate.Region.
type RegionWire struct {
	ID       uint64
	Epoch    uint64
	StartKey []byte
	EndKey   []byte
}

// StoreWire is the wire form of a locate.Store: the region plus the addr of
// the store client that should be dialed to reach it.
type StoreWire struct {
	Region   RegionWire
	StoreAddr string
}

type StoreForKeyRequest struct {
	Key []byte
}

type StoreForKeyResponse struct {
	Store StoreWire
}

type StoreForRangeRequest struct {
	StartKey []byte
	EndKey   []byte
}

// StoreForRangeResponse returns every region's Store covering the range in
// one shot; this module's fake PDC is small enough that true server-side
// streaming isn't needed, the same simplification storewire makes for Scan.
type StoreForRangeResponse struct {
	Stores []StoreWire
}

// LocateServiceServer is the PDC-side RPC contract.
type LocateServiceServer interface {
	StoreForKey(ctx context.Context, req *StoreForKeyRequest) (*StoreForKeyResponse, error)
	StoreForRange(ctx context.Context, req *StoreForRangeRequest) (*StoreForRangeResponse, error)
}

func storeForKeyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StoreForKeyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(LocateServiceServer).StoreForKey(ctx, in)
}

func storeForRangeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StoreForRangeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(LocateServiceServer).StoreForRange(ctx, in)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "kvclient.locate.LocateService",
	HandlerType: (*LocateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StoreForKey", Handler: storeForKeyHandler},
		{MethodName: "StoreForRange", Handler: storeForRangeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "locatewire/service.go",
}

// RegisterLocateServiceServer registers srv against s, the same shape as a
// generated Register*Server function.
func RegisterLocateServiceServer(s grpc.ServiceRegistrar, srv LocateServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// LocateServiceClient is the PDC-side RPC contract's client half.
type LocateServiceClient interface {
	StoreForKey(ctx context.Context, req *StoreForKeyRequest, opts ...grpc.CallOption) (*StoreForKeyResponse, error)
	StoreForRange(ctx context.Context, req *StoreForRangeRequest, opts ...grpc.CallOption) (*StoreForRangeResponse, error)
}

type locateServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLocateServiceClient wraps cc as a LocateServiceClient.
func NewLocateServiceClient(cc grpc.ClientConnInterface) LocateServiceClient {
	return &locateServiceClient{cc: cc}
}

func (c *locateServiceClient) StoreForKey(ctx context.Context, req *StoreForKeyRequest, opts ...grpc.CallOption) (*StoreForKeyResponse, error) {
	out := new(StoreForKeyResponse)
	opts = append(opts, grpc.CallContentSubtype(rpcwire.Name))
	if err := c.cc.Invoke(ctx, MethodStoreForKey, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *locateServiceClient) StoreForRange(ctx context.Context, req *StoreForRangeRequest, opts ...grpc.CallOption) (*StoreForRangeResponse, error) {
	out := new(StoreForRangeResponse)
	opts = append(opts, grpc.CallContentSubtype(rpcwire.Name))
	if err := c.cc.Invoke(ctx, MethodStoreForRange, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
