package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/shardkv/rpc/common"
	"github.com/ValentinKolb/shardkv/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sethvargo/go-retry"
)

var Logger = logger.GetLogger("transport/rpc")

var (
	// ErrTransportClosed is returned for requests on (or pending during) a closed transport
	ErrTransportClosed = errors.New("transport is closed")
	// ErrNoConnection is returned when no connection to any endpoint is available
	ErrNoConnection = errors.New("no active connections available")
	// ErrTimeout is returned when no response arrived within the configured timeout
	ErrTimeout = errors.New("request timed out")
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection based on the provided configuration
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientConnection represents a single net connection
type clientConnection struct {
	conn         net.Conn
	endpoint     string
	stopCh       chan struct{} // Close signal for the reader goroutine
	requestChans *xsync.MapOf[uint64, chan responseResult]
	connMu       sync.Mutex // Protects the connection itself
	parent       *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex atomic.Uint64 // Counter for Round Robin
	nextRequestID atomic.Uint64 // Counter for unique request IDs
	stopping      atomic.Bool   // Signals shutdown
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	// Store the config
	t.config = config
	t.stopping.Store(false)

	// Set default value for ConnectionsPerEndpoint
	connectionsPerEP := max(config.ConnectionsPerEndpoint, 1)

	// Initialize client connections
	connections := make([]*clientConnection, 0, len(config.Endpoints)*connectionsPerEP)
	for _, endpoint := range config.Endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			clientConn := &clientConnection{
				endpoint:     endpoint,
				stopCh:       make(chan struct{}),
				requestChans: xsync.NewMapOf[uint64, chan responseResult](),
				parent:       t,
			}

			// Establish the initial connection using reconnect
			if err := clientConn.reconnect(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			connections = append(connections, clientConn)

			Logger.Debugf("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)

			// Start the response reader
			go clientConn.readResponses()
		}
	}

	// Check if we have at least one connection
	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint of %v", config.Endpoints)
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Infof("Connected %d out of %d connections to %d endpoints using %s transport",
		len(connections), len(config.Endpoints)*connectionsPerEP, len(config.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(ctx context.Context, namespace uint64, req []byte) ([]byte, error) {
	if t.stopping.Load() {
		return nil, ErrTransportClosed
	}

	// Generate a unique request ID
	requestID := t.nextRequestID.Add(1)

	// Exponential backoff with a small random jitter (+-10%). Only attempts that failed
	// before the request was written are retried, so no command is executed twice.
	retries := uint64(max(t.config.RetryCount-1, 0))
	backoff := retry.WithMaxRetries(retries, retry.WithJitterPercent(10, retry.NewExponential(50*time.Millisecond)))

	var resp []byte
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		conn := t.getNextConnection()
		if conn == nil {
			return retry.RetryableError(ErrNoConnection)
		}

		data, written, err := conn.send(ctx, namespace, requestID, req)
		if err == nil {
			resp = data
			return nil
		}
		Logger.Debugf("Request attempt %d/%d to %s failed: %v", attempts, retries+1, conn.endpoint, err)
		if !written && !t.stopping.Load() {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if attempts > 1 {
			return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, err)
		}
		return nil, err
	}
	return resp, nil
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}

	// Simple Round Robin algorithm
	var index uint64
	if len(t.connections) > 1 {
		index = t.nextConnIndex.Add(1) % uint64(len(t.connections))
	}
	return t.connections[index]
}

// closeConnections closes all active connections and fails their pending requests
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for _, c := range t.connections {
		// Signal reader goroutine to stop
		close(c.stopCh)

		// Close the connection
		c.connMu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()

		c.failPending(ErrTransportClosed)
	}

	// Empty the list
	t.connections = nil
}

// send writes one request frame and waits for the matching response.
// written reports whether the frame reached the connection.
func (c *clientConnection) send(ctx context.Context, namespace, requestID uint64, req []byte) (data []byte, written bool, err error) {
	timeout := time.Duration(c.parent.config.TimeoutSecond) * time.Second

	// Create a channel for the response and register the request
	respCh := make(chan responseResult, 1)
	c.requestChans.Store(requestID, respCh)
	defer c.requestChans.Delete(requestID)

	// Lock the connection only for writing
	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		return nil, false, fmt.Errorf("connection to %s is closed", c.endpoint)
	}
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err = writeFrame(c.conn, namespace, requestID, req)
	c.connMu.Unlock()
	if err != nil {
		return nil, false, err
	}

	// Wait for response, cancellation or timeout
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, true, result.err
	case <-ctx.Done():
		return nil, true, ctx.Err()
	case <-timeoutCh:
		return nil, true, ErrTimeout
	}
}

// failPending delivers err to every request waiting on this connection
func (c *clientConnection) failPending(err error) {
	c.requestChans.Range(func(requestID uint64, respCh chan responseResult) bool {
		select {
		case respCh <- responseResult{nil, err}:
		default:
		}
		return true
	})
}

// readResponses reads responses in a loop and distributes them to waiting requests
func (c *clientConnection) readResponses() {
	for {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		// Read the response frame
		namespace, requestID, data, err := readFrame(conn, nil)
		if err != nil {
			// Check if we should stop
			select {
			case <-c.stopCh:
				return
			default:
			}

			// All requests on this connection are lost
			c.failPending(fmt.Errorf("error reading response from %s: %w", c.endpoint, err))
			Logger.Warningf("Connection to %s lost: %v", c.endpoint, err)

			// Try to restore the connection
			if err := c.reconnectWithBackoff(); err != nil {
				Logger.Errorf("Giving up reconnecting to %s: %v", c.endpoint, err)
				return
			}
			Logger.Infof("Reconnected to %s", c.endpoint)
			continue
		}

		// Find the corresponding request channel
		if respCh, found := c.requestChans.LoadAndDelete(requestID); found {
			select {
			case respCh <- responseResult{data, nil}:
			default:
			}
		} else {
			// Warning for unknown request ID (e.g. response after timeout)
			Logger.Warningf("Received response for unknown request ID %d in namespace %d", requestID, namespace)
		}
	}
}

// reconnectWithBackoff reconnects until it succeeds or the transport is closed
func (c *clientConnection) reconnectWithBackoff() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	backoff := retry.WithCappedDuration(5*time.Second, retry.NewExponential(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.reconnect(); err != nil {
			Logger.Debugf("Reconnect to %s failed: %v", c.endpoint, err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// reconnect establishes or restores a connection to the endpoint
func (c *clientConnection) reconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	// Close the old connection if it exists
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	// Connect to the endpoint
	timeout := time.Duration(c.parent.config.TimeoutSecond) * time.Second
	conn, err := c.parent.connector.Connect(c.endpoint, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", c.endpoint, err)
	}

	c.conn = conn
	return nil
}
