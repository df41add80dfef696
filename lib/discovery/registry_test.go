package discovery

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/shardkv/lib/shard"
	"github.com/go-zookeeper/zk"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test doubles
// --------------------------------------------------------------------------

// fakeZK is an in-memory znode tree with child watches
type fakeZK struct {
	mu      sync.Mutex
	nodes   map[string][]byte
	watches map[string][]chan zk.Event
	closed  bool
}

func newFakeZK() *fakeZK {
	return &fakeZK{
		nodes:   map[string][]byte{"/": nil},
		watches: map[string][]chan zk.Event{},
	}
}

func (f *fakeZK) children(p string) ([]string, error) {
	if _, ok := f.nodes[p]; !ok {
		return nil, zk.ErrNoNode
	}
	var out []string
	for name := range f.nodes {
		if name != p && path.Dir(name) == p {
			out = append(out, path.Base(name))
		}
	}
	return out, nil
}

func (f *fakeZK) Children(p string) ([]string, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, err := f.children(p)
	return out, &zk.Stat{}, err
}

func (f *fakeZK) ChildrenW(p string) ([]string, *zk.Stat, <-chan zk.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, err := f.children(p)
	if err != nil {
		return nil, nil, nil, err
	}
	ch := make(chan zk.Event, 1)
	f.watches[p] = append(f.watches[p], ch)
	return out, &zk.Stat{}, ch, nil
}

func (f *fakeZK) Get(p string) ([]byte, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.nodes[p]
	if !ok {
		return nil, nil, zk.ErrNoNode
	}
	return data, &zk.Stat{}, nil
}

func (f *fakeZK) Exists(p string) (bool, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nodes[p]
	return ok, &zk.Stat{}, nil
}

func (f *fakeZK) Create(p string, data []byte, _ int32, _ []zk.ACL) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.nodes[p]; ok {
		return "", zk.ErrNodeExists
	}
	if _, ok := f.nodes[path.Dir(p)]; !ok {
		return "", zk.ErrNoNode
	}
	f.nodes[p] = data
	f.fire(path.Dir(p))
	return p, nil
}

func (f *fakeZK) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// remove deletes a znode like an expiring session would
func (f *fakeZK) remove(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, p)
	f.fire(path.Dir(p))
}

// fire triggers (and clears) the child watches of p
func (f *fakeZK) fire(p string) {
	for _, ch := range f.watches[p] {
		ch <- zk.Event{Type: zk.EventNodeChildrenChanged, Path: p}
	}
	delete(f.watches, p)
}

// fakeTarget records every applied node set
type fakeTarget struct {
	applied chan []shard.NodeConfig
	fail    int
}

func (t *fakeTarget) Reconfigure(_ context.Context, nodes []shard.NodeConfig) error {
	if t.fail > 0 {
		t.fail--
		return errors.New("dial failed")
	}
	t.applied <- nodes
	return nil
}

func names(nodes []shard.NodeConfig) string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return strings.Join(out, ",")
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRegisterAndNodes(t *testing.T) {
	r := require.New(t)
	zkc := newFakeZK()
	reg := NewRegistry(zkc, "shardkv", WithPassword("pw"))

	_, err := reg.Nodes()
	r.Error(err)

	r.NoError(reg.Register(shard.NodeConfig{Name: "b", Endpoints: []string{"10.0.0.2:8080"}, Namespace: 3, Password: "ignored"}))
	r.NoError(reg.Register(shard.NodeConfig{Name: "a", Endpoints: []string{"10.0.0.1:8080", "10.0.0.1:8081"}}))

	nodes, err := reg.Nodes()
	r.NoError(err)
	r.Equal([]shard.NodeConfig{
		{Name: "a", Endpoints: []string{"10.0.0.1:8080", "10.0.0.1:8081"}, Password: "pw"},
		{Name: "b", Endpoints: []string{"10.0.0.2:8080"}, Namespace: 3, Password: "pw"},
	}, nodes)

	// passwords never reach the registry
	data, _, err := zkc.Get("/shardkv/nodes/b")
	r.NoError(err)
	r.NotContains(string(data), "ignored")

	r.ErrorIs(reg.Register(shard.NodeConfig{Name: "a", Endpoints: []string{"x"}}), shard.ErrDuplicateNode)
	r.ErrorIs(reg.Register(shard.NodeConfig{Name: "a/b", Endpoints: []string{"x"}}), shard.ErrInvalidNode)
	r.ErrorIs(reg.Register(shard.NodeConfig{Name: "c"}), shard.ErrInvalidNode)

	zkc.remove("/shardkv/nodes/a")
	zkc.remove("/shardkv/nodes/b")
	_, err = reg.Nodes()
	r.ErrorIs(err, ErrNoNodes)

	r.NoError(reg.Close())
	r.True(zkc.closed)
}

func TestWatch(t *testing.T) {
	r := require.New(t)
	zkc := newFakeZK()
	reg := NewRegistry(zkc, "/shardkv", WithRetryInterval(time.Millisecond))
	target := &fakeTarget{applied: make(chan []shard.NodeConfig, 10), fail: 1}

	r.NoError(reg.Register(shard.NodeConfig{Name: "a", Endpoints: []string{"a:1"}}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Watch(ctx, target) }()

	next := func() string {
		select {
		case nodes := <-target.applied:
			return names(nodes)
		case <-time.After(5 * time.Second):
			t.Fatal("no reconfiguration")
			return ""
		}
	}

	// the first attempt fails and is retried
	r.Equal("a", next())

	r.NoError(reg.Register(shard.NodeConfig{Name: "b", Endpoints: []string{"b:1"}}))
	r.Equal("a,b", next())

	zkc.remove("/shardkv/nodes/a")
	r.Equal("b", next())

	// an empty registry keeps the last topology
	zkc.remove("/shardkv/nodes/b")
	select {
	case nodes := <-target.applied:
		t.Fatalf("unexpected reconfiguration to %v", nodes)
	case <-time.After(50 * time.Millisecond):
	}

	r.NoError(reg.Register(shard.NodeConfig{Name: "c", Endpoints: []string{"c:1"}}))
	r.Equal("c", next())

	cancel()
	select {
	case err := <-done:
		r.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
