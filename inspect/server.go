package inspect

import (
	"net/http"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/chazu/dynlink/compiler/traits"
	"github.com/chazu/dynlink/indy"
)

// Handler returns the service path and a handler serving every procedure.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ProcedureSites, connect.NewUnaryHandler(ProcedureSites, s.Sites, opts...))
	mux.Handle(ProcedureClasses, connect.NewUnaryHandler(ProcedureClasses, s.Classes, opts...))
	mux.Handle(ProcedureMethods, connect.NewUnaryHandler(ProcedureMethods, s.Methods, opts...))
	mux.Handle(ProcedureTraits, connect.NewUnaryHandler(ProcedureTraits, s.Traits, opts...))
	return ServicePath, mux
}

// Server exposes a Service over HTTP. It serves Connect (HTTP/JSON) and
// gRPC (binary protobuf) on the same port.
type Server struct {
	svc *Service
	mux *http.ServeMux
	log commonlog.Logger
}

// NewServer creates a Server for rt and table.
func NewServer(rt *indy.Runtime, table *traits.Table) *Server {
	s := &Server{
		svc: New(rt, table),
		mux: http.NewServeMux(),
		log: commonlog.GetLogger("dynlink.inspect"),
	}
	path, handler := s.svc.Handler()
	s.mux.Handle(path, handler)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	s.log.Noticef("inspect service listening on %s", addr)
	s.log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, ProcedureSites)
	s.log.Infof("  gRPC (binary):       grpc://%s", addr)
	return http.ListenAndServe(addr, h2c.NewHandler(s.mux, &http2.Server{}))
}
