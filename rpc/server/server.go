package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ValentinKolb/shardkv/lib/store"
	"github.com/ValentinKolb/shardkv/lib/store/lstore"
	"github.com/ValentinKolb/shardkv/rpc/common"
	"github.com/ValentinKolb/shardkv/rpc/serializer"
	"github.com/ValentinKolb/shardkv/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// Error replies of the node server
const (
	errNoAuth       = "NOAUTH Authentication required"
	errInvalidPass  = "ERR invalid password"
	errNoPassword   = "ERR Client sent AUTH, but no password is set"
	errNamespace    = "ERR DB index is out of range"
	errInvalidIndex = "ERR invalid DB index"
)

// defaultSessionTTL applies when the config does not set a session ttl
const defaultSessionTTL = time.Hour

// serverNamespace is a keyspace of the RPC server together with the adapter
// that handles requests for it
type serverNamespace struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// Option configures an RPCServer
type Option func(*RPCServer)

// WithStoreFactory replaces the factory used to create the keyspaces
func WithStoreFactory(factory store.Factory) Option {
	return func(s *RPCServer) {
		s.factory = factory
	}
}

// WithClock replaces the clock used for session expiry
func WithClock(now func() time.Time) Option {
	return func(s *RPCServer) {
		s.now = now
	}
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	opts ...Option,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		namespaces: xsync.NewMapOf[uint64, serverNamespace](),
		sessions:   xsync.NewMapOf[string, time.Time](),
		metrics:    metrics.NewSet(),
		factory:    lstore.Factory(),
		now:        time.Now,
		sessionTTL: defaultSessionTTL,
	}
	if config.SessionTTLSecond > 0 {
		s.sessionTTL = time.Duration(config.SessionTTLSecond) * time.Second
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSweep.Store(s.now().UnixNano())
	s.metrics.GetOrCreateGauge(`shardkv_node_sessions`, func() float64 {
		return float64(s.sessions.Size())
	})

	// Create namespaces (at least one)
	for id := uint64(0); id < max(config.Namespaces, 1); id++ {
		st := s.factory()
		s.namespaces.Store(id, serverNamespace{
			Store:   st,
			Adapter: NewIStoreServerAdapter(),
		})
		s.metrics.GetOrCreateGauge(fmt.Sprintf(`shardkv_node_keys{namespace="%d"}`, id), func() float64 {
			return float64(st.Size())
		})
	}

	return s
}

// RPCServer is a shard node: a set of in-memory namespaces served over an RPC transport
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	namespaces *xsync.MapOf[uint64, serverNamespace]
	sessions   *xsync.MapOf[string, time.Time] // auth token -> time of last use
	metrics    *metrics.Set
	factory    store.Factory
	now        func() time.Time
	sessionTTL time.Duration
	lastSweep  atomic.Int64 // unix nanos of the last expired session sweep

	mu            sync.Mutex
	metricsServer *http.Server
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (s *RPCServer) init() error {
	// Init logger
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	// Configure the transport layer
	s.transport.RegisterHandler(s.Handle)

	// Start the metrics endpoint
	if s.config.MetricsEndpoint != "" {
		listener, err := net.Listen("tcp", s.config.MetricsEndpoint)
		if err != nil {
			return fmt.Errorf("failed to listen on metrics endpoint: %w", err)
		}
		srv := &http.Server{Handler: s.MetricsHandler(), ReadHeaderTimeout: 10 * time.Second}
		s.mu.Lock()
		s.metricsServer = srv
		s.mu.Unlock()
		go func() {
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				Logger.Errorf("metrics endpoint failed: %v", err)
			}
		}()
		Logger.Infof("Serving metrics on %s/metrics", listener.Addr())
	}

	Logger.Infof("shardkv node setup completed successfully (%d namespaces)", max(s.config.Namespaces, 1))
	return nil
}

// Serve starts the RPC server
// This function will also initialize the server and start the transport layer.
// It blocks until Close is called.
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Close stops the transport and the metrics endpoint
func (s *RPCServer) Close() error {
	var result *multierror.Error
	if err := s.transport.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	s.mu.Lock()
	srv := s.metricsServer
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// --------------------------------------------------------------------------
// Request Handling
// --------------------------------------------------------------------------

// Handle decodes one request addressed to a namespace, executes it and returns the
// encoded response. It is registered as the transport handler.
func (s *RPCServer) Handle(namespaceId uint64, req []byte) []byte {
	start := time.Now()

	var msg common.Message
	var respMsg *common.Message

	// Decode the request
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("ERR failed to deserialize request: %s", err))
	} else {
		respMsg = s.dispatch(namespaceId, &msg)
	}

	s.metrics.GetOrCreateCounter(fmt.Sprintf(`shardkv_node_requests_total{type=%q}`, msg.MsgType)).Inc()
	s.metrics.GetOrCreateHistogram(fmt.Sprintf(`shardkv_node_request_duration_seconds{type=%q}`, msg.MsgType)).UpdateDuration(start)
	if respMsg.MsgType == common.MsgTError {
		s.metrics.GetOrCreateCounter(fmt.Sprintf(`shardkv_node_errors_total{type=%q}`, msg.MsgType)).Inc()
	}
	if msg.MsgType == common.MsgTBatch {
		s.metrics.GetOrCreateCounter(`shardkv_node_batched_commands_total`).Add(len(msg.Batch))
	}

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("ERR failed to serialize response: %s", err)))
	}
	return val
}

// dispatch routes a decoded request to the session logic or the namespace adapter
func (s *RPCServer) dispatch(namespaceId uint64, msg *common.Message) *common.Message {
	// Auth is accepted on any namespace
	if msg.MsgType == common.MsgTAuth {
		return s.authenticate(msg)
	}

	// Every other request needs a valid session if a password is set
	if s.config.Password != "" {
		if !s.touchSession(string(msg.Meta)) {
			return common.NewErrorResponse(errNoAuth)
		}
	}

	// Get appropriate namespace
	ns, ok := s.namespaces.Load(namespaceId)
	if !ok {
		return common.NewErrorResponse(errNamespace)
	}

	if msg.MsgType == common.MsgTCommand && strings.EqualFold(msg.Cmd, "select") {
		return s.selectNamespace(msg)
	}

	// Let the adapter handle the request
	return ns.Adapter.Handle(msg, ns.Store)
}

// authenticate checks the password and issues a session token
func (s *RPCServer) authenticate(msg *common.Message) *common.Message {
	if s.config.Password == "" {
		return common.NewAuthResponse(nil, errors.New(errNoPassword))
	}
	if subtle.ConstantTimeCompare(msg.Value, []byte(s.config.Password)) != 1 {
		Logger.Warningf("rejected auth attempt with invalid password")
		return common.NewAuthResponse(nil, errors.New(errInvalidPass))
	}
	now := s.now()
	s.sweepSessions(now)

	token := uuid.NewString()
	s.sessions.Store(token, now)
	Logger.Debugf("issued session token (%d active)", s.sessions.Size())
	return common.NewAuthResponse([]byte(token), nil)
}

// touchSession reports whether token belongs to a live session and extends it
func (s *RPCServer) touchSession(token string) bool {
	if token == "" {
		return false
	}
	lastUse, ok := s.sessions.Load(token)
	if !ok {
		return false
	}
	now := s.now()
	if now.Sub(lastUse) > s.sessionTTL {
		s.sessions.Delete(token)
		return false
	}
	s.sessions.Store(token, now)
	return true
}

// sweepSessions drops expired sessions, at most once per ttl
func (s *RPCServer) sweepSessions(now time.Time) {
	last := s.lastSweep.Load()
	if now.UnixNano()-last < int64(s.sessionTTL) || !s.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	expired := 0
	s.sessions.Range(func(token string, lastUse time.Time) bool {
		if now.Sub(lastUse) > s.sessionTTL {
			s.sessions.Delete(token)
			expired++
		}
		return true
	})
	if expired > 0 {
		Logger.Debugf("dropped %d expired session tokens", expired)
	}
}

// selectNamespace validates a namespace index. The client switches to the namespace
// once the reply is OK.
func (s *RPCServer) selectNamespace(msg *common.Message) *common.Message {
	if len(msg.Args) != 1 {
		resp := ReplyToMessage(store.WrongArgs("select"))
		return &resp
	}
	id, err := strconv.ParseUint(string(msg.Args[0]), 10, 64)
	if err != nil {
		return common.NewErrorResponse(errInvalidIndex)
	}
	if _, ok := s.namespaces.Load(id); !ok {
		return common.NewErrorResponse(errNamespace)
	}
	resp := ReplyToMessage(store.OK())
	return &resp
}
