package storeclient

import (
	"context"

	"google.golang.org/grpc"

	"github.com/squareup/kvclient/kverrors"
	_ "github.com/squareup/kvclient/rpcwire" // registers the gob codec
	"github.com/squareup/kvclient/storewire"
)

// GRPCStoreClient is the real, network-capable StoreClient implementation,
// grounded on client/client.go's grpc.Dial/service-client pattern.
type GRPCStoreClient struct {
	addr   string
	conn   *grpc.ClientConn
	client storewire.StoreServiceClient
}

// DialStore dials addr and wraps the connection as a StoreClient. Mirrors
// Client.Start's grpc.Dial call.
func DialStore(addr string, opts ...grpc.DialOption) (*GRPCStoreClient, error) {
	conn, err := grpc.Dial(addr, opts...) //nolint: staticcheck
	if err != nil {
		return nil, kverrors.New(kverrors.KindTransport, err)
	}
	return &GRPCStoreClient{
		addr:   addr,
		conn:   conn,
		client: storewire.NewStoreServiceClient(conn),
	}, nil
}

func (c *GRPCStoreClient) Addr() string {
	return c.addr
}

func (c *GRPCStoreClient) Close() error {
	return c.conn.Close()
}

// Call implements StoreClient by dispatching on method to the one of the
// two concrete RPCs this fake store exposes. Request authors that build on
// top of this module know which method their DispatchVia implementation
// needs, the same way a hand-written gRPC client method knows its own
// method name.
func (c *GRPCStoreClient) Call(ctx context.Context, method string, req, resp interface{}) error {
	switch method {
	case storewire.MethodGet:
		in, ok := req.(*storewire.GetRequest)
		out, ok2 := resp.(*storewire.GetResponse)
		if !ok || !ok2 {
			return kverrors.Programmer("storeclient: Call(%s) given mismatched req/resp types", method)
		}
		got, err := c.client.Get(ctx, in)
		if err != nil {
			return kverrors.New(kverrors.KindTransport, err)
		}
		*out = *got
		return nil
	case storewire.MethodScan:
		in, ok := req.(*storewire.ScanRequest)
		out, ok2 := resp.(*storewire.ScanResponse)
		if !ok || !ok2 {
			return kverrors.Programmer("storeclient: Call(%s) given mismatched req/resp types", method)
		}
		got, err := c.client.Scan(ctx, in)
		if err != nil {
			return kverrors.New(kverrors.KindTransport, err)
		}
		*out = *got
		return nil
	default:
		return kverrors.Programmer("storeclient: unknown method %q", method)
	}
}
