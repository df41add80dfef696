package shard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
)

// --------------------------------------------------------------------------
// Test doubles
// --------------------------------------------------------------------------

// call is one recorded Conn.Call
type call struct {
	Command string
	Args    []any
}

// fakeConn echoes the first argument of every call and records what it received
type fakeConn struct {
	name     string
	delay    time.Duration
	err      error
	closeErr error

	mu     sync.Mutex
	calls  []call
	closed atomic.Bool
}

func newFakeConn(name string) *fakeConn {
	return &fakeConn{name: name}
}

func (c *fakeConn) Call(ctx context.Context, command string, args ...any) (any, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	c.calls = append(c.calls, call{Command: command, Args: args})
	c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}
	if len(args) == 0 {
		return c.name, nil
	}
	return args[0], nil
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return c.closeErr
}

func (c *fakeConn) Calls() []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]call, len(c.calls))
	copy(out, c.calls)
	return out
}

// batchConn additionally implements Batcher
type batchConn struct {
	*fakeConn
	batches atomic.Int32
}

func (c *batchConn) Batch(ctx context.Context, ops []Op) []Result {
	c.batches.Add(1)
	out := make([]Result, len(ops))
	for i, op := range ops {
		value, err := c.Call(ctx, op.Command, op.CallArgs()...)
		out[i] = Result{Value: value, Err: err}
	}
	return out
}

// mockConn is a testify mock used to assert that no call reaches a node
type mockConn struct {
	mock.Mock
}

func (m *mockConn) Call(ctx context.Context, command string, args ...any) (any, error) {
	ret := m.Called(ctx, command, args)
	return ret.Get(0), ret.Error(1)
}

func (m *mockConn) Close() error {
	return m.Called().Error(0)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// newFakeRouter creates a router over fake connections named after names
func newFakeRouter(names ...string) (*Router, map[string]*fakeConn, error) {
	conns := make(map[string]*fakeConn, len(names))
	nodes := make([]Node, len(names))
	for i, name := range names {
		conns[name] = newFakeConn(name)
		nodes[i] = Node{Name: name, Conn: conns[name]}
	}
	r, err := NewWithConns(nodes)
	return r, conns, err
}

// fakeDialer dials fake connections and remembers them by node name
type fakeDialer struct {
	mu    sync.Mutex
	conns map[string]*fakeConn
	fail  map[string]error
}

func (d *fakeDialer) Dial(_ context.Context, node NodeConfig) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[node.Name]; err != nil {
		return nil, err
	}
	if d.conns == nil {
		d.conns = make(map[string]*fakeConn)
	}
	conn := newFakeConn(node.Name)
	d.conns[node.Name] = conn
	return conn, nil
}

// keyOn returns a key owned by node
func keyOn(r *Router, node string, prefix string) (string, error) {
	for i := 0; i < 10000; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		owner, err := r.ResolveNode(key)
		if err != nil {
			return "", err
		}
		if owner == node {
			return key, nil
		}
	}
	return "", errors.New("no key found for node " + node)
}
