package storeserver

import (
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	_ "github.com/squareup/kvclient/rpcwire" // registers the gob codec
	"github.com/squareup/kvclient/storewire"
)

// Server is the gRPC front for a PebbleStore, grounded on api/server.go's
// Start/Stop/startServer shape.
type Server struct {
	lock    sync.Mutex
	started bool
	addr    string
	store   *PebbleStore
	gsrv    *grpc.Server
}

// NewServer constructs a Server bound to addr, serving store.
func NewServer(addr string, store *PebbleStore) *Server {
	return &Server{addr: addr, store: store}
}

func (s *Server) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started {
		return nil
	}
	list, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.gsrv = grpc.NewServer()
	reflection.Register(s.gsrv)
	storewire.RegisterStoreServiceServer(s.gsrv, s.store)
	s.started = true
	go s.serve(list)
	return nil
}

func (s *Server) serve(list net.Listener) {
	if err := s.gsrv.Serve(list); err != nil {
		log.Errorf("store server listen failed: %v", err)
	}
}

func (s *Server) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.started {
		return nil
	}
	s.gsrv.GracefulStop()
	s.started = false
	return s.store.Close()
}
