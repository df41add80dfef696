package discovery

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/ValentinKolb/shardkv/lib/shard"
	"github.com/go-zookeeper/zk"
	"github.com/goccy/go-yaml"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/sethvargo/go-retry"
)

var Logger = logger.GetLogger("discovery")

// ErrNoNodes is returned by Nodes if no node is registered
var ErrNoNodes = errors.New("discovery: no nodes registered")

// ZKConn is the subset of *zk.Conn used by the registry
type ZKConn interface {
	Children(path string) ([]string, *zk.Stat, error)
	ChildrenW(path string) ([]string, *zk.Stat, <-chan zk.Event, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Close()
}

// Reconfigurer replaces the node set of a router
type Reconfigurer interface {
	Reconfigure(ctx context.Context, nodes []shard.NodeConfig) error
}

// zkLogger forwards the zk client log to the package logger
type zkLogger struct{}

func (zkLogger) Printf(format string, args ...any) {
	Logger.Debugf(format, args...)
}

// Option configures a Registry
type Option func(r *Registry)

// WithPassword sets the password attached to every discovered node
func WithPassword(password string) Option {
	return func(r *Registry) { r.password = password }
}

// WithRetryInterval sets the base delay between failed watch attempts (default 500ms)
func WithRetryInterval(d time.Duration) Option {
	return func(r *Registry) { r.retryInterval = d }
}

// Registry is a node registry stored in ZooKeeper
type Registry struct {
	conn          ZKConn
	root          string
	password      string
	retryInterval time.Duration
}

// nodeData is the znode payload of a registered node
type nodeData struct {
	Endpoints []string `yaml:"endpoints"`
	Namespace uint64   `yaml:"namespace,omitempty"`
}

// Connect opens a ZooKeeper session and returns a registry rooted at root
func Connect(servers []string, root string, sessionTimeout time.Duration, opts ...Option) (*Registry, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{}))
	if err != nil {
		return nil, fmt.Errorf("zk connect: %w", err)
	}
	return NewRegistry(conn, root, opts...), nil
}

// NewRegistry creates a registry on an existing connection. The registry owns conn.
func NewRegistry(conn ZKConn, root string, opts ...Option) *Registry {
	r := &Registry{
		conn:          conn,
		root:          path.Clean("/" + root),
		retryInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close closes the ZooKeeper session. Registered nodes of this session disappear.
func (r *Registry) Close() error {
	r.conn.Close()
	return nil
}

// nodesPath returns the parent znode of all node entries
func (r *Registry) nodesPath() string {
	return path.Join(r.root, "nodes")
}

// --------------------------------------------------------------------------
// Registration
// --------------------------------------------------------------------------

// Register announces node as an ephemeral znode. It is removed when the session ends.
func (r *Registry) Register(node shard.NodeConfig) error {
	if node.Name == "" || strings.Contains(node.Name, "/") {
		return fmt.Errorf("%w: invalid registry name %q", shard.ErrInvalidNode, node.Name)
	}
	if len(node.Endpoints) == 0 {
		return fmt.Errorf("%w: node %s has no endpoints", shard.ErrInvalidNode, node.Name)
	}

	if err := r.ensurePath(r.nodesPath()); err != nil {
		return fmt.Errorf("ensure nodes path: %w", err)
	}

	data, err := yaml.Marshal(nodeData{Endpoints: node.Endpoints, Namespace: node.Namespace})
	if err != nil {
		return err
	}
	nodePath := path.Join(r.nodesPath(), node.Name)
	if _, err := r.conn.Create(nodePath, data, zk.FlagEphemeral, zk.WorldACL(zk.PermAll)); err != nil {
		if errors.Is(err, zk.ErrNodeExists) {
			return fmt.Errorf("%w: %s", shard.ErrDuplicateNode, node.Name)
		}
		return fmt.Errorf("create ephemeral node: %w", err)
	}

	Logger.Infof("registered node %s at %s", node, nodePath)
	return nil
}

// ensurePath creates every missing znode of p
func (r *Registry) ensurePath(p string) error {
	cur := ""
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		cur = cur + "/" + part
		exists, _, err := r.conn.Exists(cur)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := r.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Lookup
// --------------------------------------------------------------------------

// Nodes returns the registered nodes sorted by name
func (r *Registry) Nodes() ([]shard.NodeConfig, error) {
	names, _, err := r.conn.Children(r.nodesPath())
	if err != nil {
		return nil, fmt.Errorf("zk children: %w", err)
	}
	nodes, err := r.read(names)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}
	return nodes, nil
}

// read loads the data of the named nodes. Nodes that vanished in the meantime are skipped.
func (r *Registry) read(names []string) ([]shard.NodeConfig, error) {
	slices.Sort(names)
	nodes := make([]shard.NodeConfig, 0, len(names))
	for _, name := range names {
		data, _, err := r.conn.Get(path.Join(r.nodesPath(), name))
		if errors.Is(err, zk.ErrNoNode) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("zk get %s: %w", name, err)
		}
		var nd nodeData
		if err := yaml.Unmarshal(data, &nd); err != nil {
			return nil, fmt.Errorf("decode node %s: %w", name, err)
		}
		nodes = append(nodes, shard.NodeConfig{
			Name:      name,
			Endpoints: nd.Endpoints,
			Namespace: nd.Namespace,
			Password:  r.password,
		})
	}
	return nodes, nil
}

// --------------------------------------------------------------------------
// Watch
// --------------------------------------------------------------------------

// Watch applies the registered node set to target and re-applies it after every change
// until ctx is done. An empty node set is ignored and the last topology stays active.
// Failed reads and reconfigurations are retried with capped exponential backoff.
func (r *Registry) Watch(ctx context.Context, target Reconfigurer) error {
	var applied []shard.NodeConfig

	for {
		var events <-chan zk.Event
		backoff := retry.WithCappedDuration(10*r.retryInterval, retry.NewExponential(r.retryInterval))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			names, _, ch, err := r.conn.ChildrenW(r.nodesPath())
			if err != nil {
				Logger.Warningf("watch %s failed: %v", r.nodesPath(), err)
				return retry.RetryableError(err)
			}
			nodes, err := r.read(names)
			if err != nil {
				Logger.Warningf("reading nodes failed: %v", err)
				return retry.RetryableError(err)
			}
			events = ch

			switch {
			case len(nodes) == 0:
				Logger.Warningf("registry %s is empty, keeping the current topology", r.nodesPath())
			case !sameNodes(applied, nodes):
				if err := target.Reconfigure(ctx, nodes); err != nil {
					Logger.Errorf("reconfigure to %d nodes failed: %v", len(nodes), err)
					return retry.RetryableError(err)
				}
				applied = nodes
				Logger.Infof("applied %d nodes from %s", len(nodes), r.nodesPath())
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case ev := <-events:
			Logger.Debugf("zk event %s on %s", ev.Type, ev.Path)
		case <-ctx.Done():
			Logger.Infof("watch on %s stopped", r.nodesPath())
			return nil
		}
	}
}

// sameNodes reports whether two sorted node sets are equal
func sameNodes(a, b []shard.NodeConfig) bool {
	return slices.EqualFunc(a, b, func(x, y shard.NodeConfig) bool {
		return x.Name == y.Name && x.Namespace == y.Namespace && slices.Equal(x.Endpoints, y.Endpoints)
	})
}
