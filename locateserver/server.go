package locateserver

import (
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/squareup/kvclient/locatewire"
	_ "github.com/squareup/kvclient/rpcwire" // registers the gob codec
)

// Server is the gRPC front for a StaticDirectory, grounded on
// storeserver.Server's Start/Stop/serve shape.
type Server struct {
	lock    sync.Mutex
	started bool
	addr    string
	dir     *StaticDirectory
	gsrv    *grpc.Server
}

// NewServer constructs a Server bound to addr, serving dir.
func NewServer(addr string, dir *StaticDirectory) *Server {
	return &Server{addr: addr, dir: dir}
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
	locatewire.RegisterLocateServiceServer(s.gsrv, s.dir)
	s.started = true
	go s.serve(list)
	return nil
}

func (s *Server) serve(list net.Listener) {
	if err := s.gsrv.Serve(list); err != nil {
		log.Errorf("locate server listen failed: %v", err)
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
	return nil
}
