package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/canopy-network/dpos/bft"
	"github.com/canopy-network/dpos/controller"
	"github.com/canopy-network/dpos/lib"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"golang.org/x/net/netutil"
)

const (
	colon = ":"

	SoftwareVersion = "0.1.0"
	ContentType     = "Content-Type"
	ApplicationJSON = "application/json; charset=utf-8"
	TextPlain       = "text/plain; charset=utf-8"
	TextHTML        = "text/html; charset=utf-8"
)

// StateProvider is the read-only view of a running simulation the query server exposes
type StateProvider interface {
	Accounts() lib.Accounts
	RoundStatus() *bft.Status
	LastResult() *bft.RoundResult
	DelegateStatuses() []*controller.DelegateStatus
	ClientStatuses() []*controller.ClientStatus
	DelegateStatus(id string) (*controller.DelegateStatus, lib.ErrorI)
	Block(delegate string, height uint64) (*lib.Block, lib.ErrorI)
}

var _ StateProvider = (*controller.Simulation)(nil)

// Server represents the query api of a simulation
type Server struct {
	state   StateProvider
	config  lib.RPCConfig
	server  *http.Server
	started time.Time
	logger  lib.LoggerI
}

// NewServer constructs and returns a new query server
func NewServer(state StateProvider, config lib.RPCConfig, logger lib.LoggerI) *Server {
	s := &Server{
		state:   state,
		config:  config,
		started: time.Now(),
		logger:  logger,
	}
	s.server = &http.Server{Addr: colon + config.RPCPort, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	return s
}

// Handler() wraps the router in the cors policy and the request timeout
func (s *Server) Handler() http.Handler {
	cor := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	})
	timeout := time.Duration(s.config.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return cor.Handler(http.TimeoutHandler(createRouter(s), timeout, ErrServerTimeout().Error()))
}

// Start() listens on the configured port and serves in the background; the listener accepts at
// most MaxConnections concurrent connections
func (s *Server) Start() lib.ErrorI {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return ErrListen(err)
	}
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}
	s.logger.Infof("Starting RPC server at 0.0.0.0:%s", s.config.RPCPort)
	go func() {
		if e := s.server.Serve(ln); e != nil && !errors.Is(e, http.ErrServerClosed) {
			s.logger.Errorf("RPC server failed with err: %s", e.Error())
		}
	}()
	return nil
}

// Stop() gracefully shuts the server down
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error(ErrServerShutdown(err).Error())
	}
}

// logHandler serves as a middleware that logs incoming RPC calls for debugging purposes.
type logHandler struct {
	path   string
	h      httprouter.Handle
	logger lib.LoggerI
}

// Handle
func (h logHandler) Handle(resp http.ResponseWriter, req *http.Request, p httprouter.Params) {
	h.logger.Debugf("%s %s", req.Method, req.URL.Path)
	h.h(resp, req, p)
}

// write() marshals the payload as indented JSON with the status code
func write(w http.ResponseWriter, payload interface{}, code int) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(code)
	bz, _ := json.MarshalIndent(payload, "", "  ")
	_, _ = w.Write(bz)
}

// writeText() writes a raw text body
func writeText(w http.ResponseWriter, contentType, text string) {
	w.Header().Set(ContentType, contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
