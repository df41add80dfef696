package shard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/shardkv/lib/ring"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("shard")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	replicas  int
	hash      ring.HashFunc
	wrap      bool
	maxFanout int
	metrics   *Metrics
}

// Option configures a Router
type Option func(o *options)

// WithReplicas sets the number of ring points per node (default ring.DefaultReplicas)
func WithReplicas(n int) Option {
	return func(o *options) { o.replicas = n }
}

// WithHashFunc replaces the CRC32 ring hash. All clients of a key space must agree on it.
func WithHashFunc(f ring.HashFunc) Option {
	return func(o *options) { o.hash = f }
}

// WithWrapAround makes keys above the largest ring point wrap to the first point
// instead of clamping to the last one.
func WithWrapAround(wrap bool) Option {
	return func(o *options) { o.wrap = wrap }
}

// WithMaxFanout limits how many node calls a broadcast or pipeline runs at once.
// 0 means one concurrent call per node.
func WithMaxFanout(n int) Option {
	return func(o *options) { o.maxFanout = n }
}

// WithMetrics records per node call statistics into m
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// --------------------------------------------------------------------------
// Topology
// --------------------------------------------------------------------------

// topology is an immutable snapshot of the node set. The router replaces it as a
// whole, so readers never observe a partially built ring.
type topology struct {
	ring  *ring.Ring
	names []string
	conns map[string]Conn
}

// resolve returns the node owning key
func (t *topology) resolve(key string) (string, error) {
	name, err := t.ring.Resolve(HashTag(key))
	if err != nil {
		return "", fmt.Errorf("%w: key %q: %w", ErrRoutingFailure, key, err)
	}
	return name, nil
}

// --------------------------------------------------------------------------
// Router
// --------------------------------------------------------------------------

// Router routes commands to shard nodes. It owns one connection per node and a
// consistent hashing ring over the node names. A Router is safe for concurrent use.
type Router struct {
	opts options
	dial Dialer

	topo   atomic.Pointer[topology]
	mu     sync.Mutex // serializes Reconfigure and Close
	closed atomic.Bool
}

// New opens one connection per node (in configuration order) with dial and builds the
// ring over the node names. If any node cannot be dialed the connections opened so far
// are closed again and the error is returned.
func New(ctx context.Context, nodes []NodeConfig, dial Dialer, opts ...Option) (*Router, error) {
	if dial == nil {
		return nil, errors.New("shard: dialer is nil")
	}
	if err := validateNames(nodeNames(nodes)); err != nil {
		return nil, err
	}

	opened := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		conn, err := dial(ctx, n)
		if err != nil {
			closeAll(opened)
			return nil, fmt.Errorf("shard: dial node %s: %w", n.Name, err)
		}
		opened = append(opened, Node{Name: n.Name, Conn: conn})
	}

	r, err := NewWithConns(opened, opts...)
	if err != nil {
		closeAll(opened)
		return nil, err
	}
	r.dial = dial
	return r, nil
}

// NewWithConns creates a router over already open connections. The router takes
// ownership of them and closes them on Close.
func NewWithConns(nodes []Node, opts ...Option) (*Router, error) {
	names := make([]string, len(nodes))
	conns := make(map[string]Conn, len(nodes))
	for i, n := range nodes {
		if n.Conn == nil {
			return nil, fmt.Errorf("%w: node %q has no connection", ErrInvalidNode, n.Name)
		}
		names[i] = n.Name
		conns[n.Name] = n.Conn
	}
	if err := validateNames(names); err != nil {
		return nil, err
	}

	r := &Router{}
	for _, opt := range opts {
		opt(&r.opts)
	}
	r.topo.Store(r.buildTopology(names, conns))

	Logger.Infof("router created with %d nodes (%d points per node)", len(names), r.topo.Load().ring.Replicas())
	return r, nil
}

// buildTopology creates a new ring over names
func (r *Router) buildTopology(names []string, conns map[string]Conn) *topology {
	rg := ring.New(r.opts.replicas,
		ring.WithHashFunc(r.opts.hash),
		ring.WithWrapAround(r.opts.wrap),
		ring.WithDuplicateGuard(true),
	)
	for _, name := range names {
		rg.AddNode(name)
	}
	return &topology{ring: rg, names: names, conns: conns}
}

// --------------------------------------------------------------------------
// Routing
// --------------------------------------------------------------------------

// ResolveNode returns the name of the node owning key (after hash tag extraction).
func (r *Router) ResolveNode(key string) (string, error) {
	return r.topo.Load().resolve(key)
}

// Invoke executes command according to its variant:
//
//   - Direct: the call goes to the node owning key; the node's reply and error are
//     returned unchanged.
//   - BroadcastSplit: key and args form the argument list sent to every node (see
//     Broadcast); the value is the map[string]Result of all nodes. An empty key followed
//     by a single PerNode value sends one list per node instead.
//   - Forbidden or unknown: a *ClassificationError is returned, no node is contacted.
func (r *Router) Invoke(ctx context.Context, command, key string, args ...any) (any, error) {
	switch variant := Lookup(command); variant {
	case Direct:
		if r.closed.Load() {
			return nil, ErrClosed
		}
		topo := r.topo.Load()
		name, err := topo.resolve(key)
		if err != nil {
			return nil, err
		}

		callArgs := make([]any, 0, len(args)+1)
		callArgs = append(callArgs, key)
		callArgs = append(callArgs, args...)

		start := time.Now()
		value, err := topo.conns[name].Call(ctx, normalize(command), callArgs...)
		r.opts.metrics.observe(name, "call", start, 1, err)
		if err != nil {
			Logger.Debugf("%s %q on node %s failed: %v", command, key, name, err)
		}
		return value, err

	case BroadcastSplit:
		// Invoke(ctx, "select", "", PerNode{...}) hands the per-node lists on unchanged
		if key == "" && len(args) == 1 {
			if perNode, ok := args[0].(PerNode); ok {
				results, err := r.Broadcast(ctx, command, perNode)
				if results == nil {
					return nil, err
				}
				return results, err
			}
		}
		callArgs := make([]any, 0, len(args)+1)
		callArgs = append(callArgs, key)
		callArgs = append(callArgs, args...)
		results, err := r.Broadcast(ctx, command, callArgs...)
		if results == nil {
			return nil, err
		}
		return results, err

	default:
		r.opts.metrics.rejected(command)
		return nil, &ClassificationError{Command: command, Variant: variant}
	}
}

// Broadcast sends a broadcast command to every node concurrently and waits for all of
// them. args is either one argument list used for every node, or a single PerNode value
// with one list per node in registration order.
//
// The returned map has one entry per node. The error is a *PartialError if at least one
// node failed; a failing node never cancels the calls to the other nodes.
func (r *Router) Broadcast(ctx context.Context, command string, args ...any) (map[string]Result, error) {
	switch variant := Lookup(command); variant {
	case BroadcastSplit:
	case Direct:
		return nil, fmt.Errorf("%w: %s", ErrNotBroadcast, command)
	default:
		r.opts.metrics.rejected(command)
		return nil, &ClassificationError{Command: command, Variant: variant}
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}

	topo := r.topo.Load()
	argsFor := func(int) []any { return args }
	for i, arg := range args {
		perNode, ok := arg.(PerNode)
		if !ok {
			continue
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: PerNode must be the only argument, found at position %d of %d", ErrArgCount, i, len(args))
		}
		if len(perNode) != len(topo.names) {
			return nil, fmt.Errorf("%w: got %d lists for %d nodes", ErrArgCount, len(perNode), len(topo.names))
		}
		argsFor = func(i int) []any { return perNode[i] }
	}

	command = normalize(command)
	results := make([]Result, len(topo.names))
	r.fanOut(len(topo.names), func(i int) {
		name := topo.names[i]
		start := time.Now()
		value, err := topo.conns[name].Call(ctx, command, argsFor(i)...)
		r.opts.metrics.observe(name, "broadcast", start, 1, err)
		results[i] = Result{Value: value, Err: err}
	})

	out := make(map[string]Result, len(results))
	var failed map[string]error
	for i, res := range results {
		out[topo.names[i]] = res
		if res.Err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[topo.names[i]] = res.Err
		}
	}
	if failed != nil {
		return out, &PartialError{Command: command, Failed: failed}
	}
	return out, nil
}

// fanOut runs fn(0..n-1) concurrently (bounded by maxFanout) and waits for all calls
func (r *Router) fanOut(n int, fn func(i int)) {
	if n == 1 {
		fn(0)
		return
	}
	var g errgroup.Group
	if r.opts.maxFanout > 0 {
		g.SetLimit(r.opts.maxFanout)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// Pipeline returns a new, empty pipeline bound to the router
func (r *Router) Pipeline() *Pipeline {
	return &Pipeline{router: r}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Nodes returns the node names in registration order
func (r *Router) Nodes() []string {
	names := r.topo.Load().names
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Conn returns the connection of a node
func (r *Router) Conn(name string) (Conn, bool) {
	conn, ok := r.topo.Load().conns[name]
	return conn, ok
}

// Ring returns the current ring. It must not be modified.
func (r *Router) Ring() *ring.Ring {
	return r.topo.Load().ring
}

// --------------------------------------------------------------------------
// Membership and shutdown
// --------------------------------------------------------------------------

// Reconfigure replaces the node set. Nodes are identified by name: connections of
// nodes that stay are reused, new nodes are dialed, and removed nodes are closed after
// the new ring has been published. Keys are not migrated.
func (r *Router) Reconfigure(ctx context.Context, nodes []NodeConfig) error {
	if r.dial == nil {
		return errors.New("shard: router was created without a dialer")
	}
	names := nodeNames(nodes)
	if err := validateNames(names); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return ErrClosed
	}

	old := r.topo.Load()
	conns := make(map[string]Conn, len(nodes))
	var opened []Node
	for _, n := range nodes {
		if conn, ok := old.conns[n.Name]; ok {
			conns[n.Name] = conn
			continue
		}
		conn, err := r.dial(ctx, n)
		if err != nil {
			closeAll(opened)
			return fmt.Errorf("shard: dial node %s: %w", n.Name, err)
		}
		conns[n.Name] = conn
		opened = append(opened, Node{Name: n.Name, Conn: conn})
	}

	r.topo.Store(r.buildTopology(names, conns))
	Logger.Infof("topology updated: %d nodes (%d added)", len(names), len(opened))

	var result *multierror.Error
	for _, name := range old.names {
		if _, ok := conns[name]; ok {
			continue
		}
		if err := old.conns[name].Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close node %s: %w", name, err))
		}
		Logger.Infof("node %s removed", name)
	}
	return result.ErrorOrNil()
}

// Close closes every node connection. Errors are collected; a failing connection
// does not prevent the remaining ones from being closed.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Swap(true) {
		return nil
	}

	topo := r.topo.Load()
	var result *multierror.Error
	for _, name := range topo.names {
		if err := topo.conns[name].Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close node %s: %w", name, err))
		}
	}
	Logger.Infof("router closed (%d nodes)", len(topo.names))
	return result.ErrorOrNil()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func nodeNames(nodes []NodeConfig) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}

// validateNames checks that all names are non-empty and unique
func validateNames(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: empty node name", ErrInvalidNode)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// closeAll closes connections, logging failures
func closeAll(nodes []Node) {
	for _, n := range nodes {
		if err := n.Conn.Close(); err != nil {
			Logger.Warningf("failed to close connection to node %s: %v", n.Name, err)
		}
	}
}
