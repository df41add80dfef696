package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/shardkv/lib/shard"
	"github.com/ValentinKolb/shardkv/rpc/common"
	"github.com/ValentinKolb/shardkv/rpc/serializer"
	"github.com/ValentinKolb/shardkv/rpc/server"
	"github.com/ValentinKolb/shardkv/rpc/transport"
	"github.com/ValentinKolb/shardkv/rpc/transport/unix"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Loopback transport
// --------------------------------------------------------------------------

// loopback hands requests directly to a server handler
type loopback struct {
	handler transport.ServerHandleFunc
	sent    atomic.Int64
	closed  atomic.Bool
}

func (l *loopback) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	return nil
}

func (l *loopback) Send(ctx context.Context, namespace uint64, req []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.closed.Load() {
		return nil, errors.New("transport is closed")
	}
	l.sent.Add(1)
	return l.handler(namespace, req), nil
}

func (l *loopback) Close() error {
	l.closed.Store(true)
	return nil
}

// network routes loopback transports to nodes by endpoint
type network map[string]*loopback

func (n network) newTransport() transport.IRPCClientTransport {
	return &endpointTransport{network: n}
}

type endpointTransport struct {
	network network
	node    *loopback
}

func (t *endpointTransport) Connect(config common.ClientConfig) error {
	for _, ep := range config.Endpoints {
		if node, ok := t.network[ep]; ok {
			t.node = node
			return nil
		}
	}
	return fmt.Errorf("failed to connect to any endpoint of %v", config.Endpoints)
}

func (t *endpointTransport) Send(ctx context.Context, namespace uint64, req []byte) ([]byte, error) {
	return t.node.Send(ctx, namespace, req)
}

func (t *endpointTransport) Close() error {
	return nil
}

var serializers = map[string]func() serializer.IRPCSerializer{
	"binary": serializer.NewBinarySerializer,
	"json":   serializer.NewJSONSerializer,
	"gob":    serializer.NewGOBSerializer,
}

var testConfig = common.ClientConfig{Endpoints: []string{"loopback"}, TimeoutSecond: 1, RetryCount: 1}

// newNode creates a server and returns a loopback transport connected to it
func newNode(config common.ServerConfig, ser serializer.IRPCSerializer) *loopback {
	s := server.NewRPCServer(config, nil, ser)
	return &loopback{handler: s.Handle}
}

func dial(t *testing.T, node *loopback, ser serializer.IRPCSerializer, password string) *RPCConn {
	t.Helper()
	conn, err := NewRPCConn(context.Background(), 0, password, testConfig, node, ser)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestCall(t *testing.T) {
	for name, newSer := range serializers {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)
			ctx := context.Background()
			ser := newSer()
			conn := dial(t, newNode(common.ServerConfig{}, ser), ser, "")

			v, err := conn.Call(ctx, "SET", "k", "v")
			r.NoError(err)
			r.Equal("OK", v)

			v, err = conn.Call(ctx, "get", "k")
			r.NoError(err)
			r.Equal("v", v)

			v, err = conn.Call(ctx, "get", "missing")
			r.NoError(err)
			r.Nil(v)

			v, err = conn.Call(ctx, "incrby", "n", 41)
			r.NoError(err)
			r.Equal(int64(41), v)

			v, err = conn.Call(ctx, "rpush", "l", "a", []byte("b"), 3)
			r.NoError(err)
			r.Equal(int64(3), v)

			v, err = conn.Call(ctx, "lrange", "l", 0, -1)
			r.NoError(err)
			r.Equal([]any{"a", "b", "3"}, v)

			v, err = conn.Call(ctx, "hset", "h", "f", "x")
			r.NoError(err)
			r.Equal(int64(1), v)

			v, err = conn.Call(ctx, "hmget", "h", "f", "g")
			r.NoError(err)
			r.Equal([]any{"x", nil}, v)

			v, err = conn.Call(ctx, "set", "empty", "")
			r.NoError(err)
			v, err = conn.Call(ctx, "get", "empty")
			r.NoError(err)
			r.Equal("", v)

			v, err = conn.Call(ctx, "ping")
			r.NoError(err)
			r.Equal("PONG", v)
		})
	}
}

func TestCallErrors(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	ser := serializer.NewBinarySerializer()
	conn := dial(t, newNode(common.ServerConfig{}, ser), ser, "")

	_, err := conn.Call(ctx, "set", "k", "v")
	r.NoError(err)

	_, err = conn.Call(ctx, "lpush", "k", "x")
	var replyErr *ReplyError
	r.ErrorAs(err, &replyErr)
	r.Equal("WRONGTYPE", replyErr.Prefix())

	_, err = conn.Call(ctx, "nosuchcommand", "k")
	r.ErrorAs(err, &replyErr)
	r.Equal("ERR", replyErr.Prefix())

	_, err = conn.Call(ctx, "get")
	r.ErrorAs(err, &replyErr)
	r.Contains(replyErr.Msg, "wrong number of arguments")

	_, err = conn.Call(ctx, "set", "k", nil)
	r.Error(err)
	r.False(errors.As(err, &replyErr))

	r.NoError(conn.Close())
	r.NoError(conn.Close())
	_, err = conn.Call(ctx, "get", "k")
	r.ErrorIs(err, ErrClosed)
}

func TestBatch(t *testing.T) {
	for name, newSer := range serializers {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)
			ser := newSer()
			node := newNode(common.ServerConfig{}, ser)
			conn := dial(t, node, ser, "")

			results := conn.Batch(context.Background(), []shard.Op{
				{Command: "SET", Key: "a", Args: []any{"1"}},
				{Command: "incr", Key: "a"},
				{Command: "lpush", Key: "a", Args: []any{"x"}},
				{Command: "set", Key: "b", Args: []any{nil}},
				{Command: "get", Key: "a"},
				{Command: "get", Key: "missing"},
			})
			r.Len(results, 6)
			r.Equal(shard.Result{Value: "OK"}, results[0])
			r.Equal(shard.Result{Value: int64(2)}, results[1])
			var replyErr *ReplyError
			r.ErrorAs(results[2].Err, &replyErr)
			r.Equal("WRONGTYPE", replyErr.Prefix())
			r.Error(results[3].Err)
			r.Equal(shard.Result{Value: "2"}, results[4])
			r.Equal(shard.Result{}, results[5])

			// one round trip for the whole batch
			r.Equal(int64(1), node.sent.Load())
		})
	}
}

func TestSelect(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	ser := serializer.NewBinarySerializer()
	conn := dial(t, newNode(common.ServerConfig{Namespaces: 2}, ser), ser, "")

	_, err := conn.Call(ctx, "set", "k", "zero")
	r.NoError(err)

	v, err := conn.Call(ctx, "select", 1)
	r.NoError(err)
	r.Equal("OK", v)
	r.Equal(uint64(1), conn.Namespace())

	v, err = conn.Call(ctx, "get", "k")
	r.NoError(err)
	r.Nil(v)

	// unknown namespaces are rejected and the selection stays
	_, err = conn.Call(ctx, "select", 7)
	r.Error(err)
	r.Equal(uint64(1), conn.Namespace())

	_, err = conn.Call(ctx, "select", "abc")
	r.Error(err)

	_, err = conn.Select(ctx, 0)
	r.NoError(err)
	v, err = conn.Call(ctx, "get", "k")
	r.NoError(err)
	r.Equal("zero", v)
}

func TestAuth(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	ser := serializer.NewBinarySerializer()
	node := newNode(common.ServerConfig{Password: "secret"}, ser)

	conn := dial(t, node, ser, "")
	_, err := conn.Call(ctx, "get", "k")
	var replyErr *ReplyError
	r.ErrorAs(err, &replyErr)
	r.Equal("NOAUTH", replyErr.Prefix())

	results := conn.Batch(ctx, []shard.Op{{Command: "get", Key: "k"}})
	r.ErrorAs(results[0].Err, &replyErr)

	_, err = conn.Call(ctx, "auth", "wrong")
	r.Error(err)

	v, err := conn.Call(ctx, "auth", "secret")
	r.NoError(err)
	r.Equal("OK", v)
	_, err = conn.Call(ctx, "set", "k", "v")
	r.NoError(err)

	// NewRPCConn authenticates right away
	other := dial(t, node, ser, "secret")
	v, err = other.Call(ctx, "get", "k")
	r.NoError(err)
	r.Equal("v", v)

	_, err = NewRPCConn(ctx, 0, "wrong", testConfig, node, ser)
	r.Error(err)
}

func TestAuthWithoutPassword(t *testing.T) {
	ser := serializer.NewBinarySerializer()
	conn := dial(t, newNode(common.ServerConfig{}, ser), ser, "")

	_, err := conn.Call(context.Background(), "auth", "secret")
	var replyErr *ReplyError
	require.ErrorAs(t, err, &replyErr)
	require.Contains(t, replyErr.Msg, "no password is set")
}

func TestRouterOverRPC(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	ser := serializer.NewBinarySerializer()

	nodes := network{}
	var configs []shard.NodeConfig
	for _, name := range []string{"a", "b", "c"} {
		nodes[name+":1"] = newNode(common.ServerConfig{Namespaces: 2, Password: "pw"}, ser)
		configs = append(configs, shard.NodeConfig{Name: name, Endpoints: []string{name + ":1"}})
	}
	dialer := Dialer(testConfig, nodes.newTransport, ser)

	_, err := dialer(ctx, shard.NodeConfig{Name: "x", Endpoints: []string{"x:1"}})
	r.Error(err)

	router, err := shard.New(ctx, configs, dialer)
	r.NoError(err)
	defer router.Close()

	// nothing works before auth
	_, err = router.Get(ctx, "k")
	r.Error(err)

	res, err := router.Auth(ctx, "pw")
	r.NoError(err)
	r.Len(res, 3)

	for i := 0; i < 50; i++ {
		_, err := router.Set(ctx, fmt.Sprintf("key:%d", i), i)
		r.NoError(err)
	}

	p := router.Pipeline()
	for i := 0; i < 50; i++ {
		p.Queue("get", fmt.Sprintf("key:%d", i))
	}
	p.Queue("keys", "*")
	results := p.Exec(ctx)
	r.Len(results, 51)
	for i := 0; i < 50; i++ {
		r.NoError(results[i].Err)
		r.Equal(fmt.Sprint(i), results[i].Value)
	}
	r.ErrorIs(results[50].Err, shard.ErrNotShardable)

	// the keys are spread over the nodes
	used := 0
	for _, node := range nodes {
		if node.sent.Load() > 2 {
			used++
		}
	}
	r.Greater(used, 1)

	_, err = router.Select(ctx, 1)
	r.NoError(err)
	v, err := router.Get(ctx, "key:1")
	r.NoError(err)
	r.Nil(v)
}

func TestUnixTransportEndToEnd(t *testing.T) {
	r := require.New(t)
	socket := filepath.Join(t.TempDir(), "node.sock")
	ser := serializer.NewBinarySerializer()

	srv := server.NewRPCServer(common.ServerConfig{
		Endpoint:      socket,
		TimeoutSecond: 5,
		LogLevel:      "error",
	}, unix.NewUnixDefaultServerTransport(), ser)
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	defer func() {
		r.NoError(srv.Close())
		r.NoError(<-done)
	}()

	config := common.ClientConfig{Endpoints: []string{socket}, TimeoutSecond: 5, RetryCount: 3}
	var conn *RPCConn
	r.Eventually(func() bool {
		c, err := NewRPCConn(context.Background(), 0, "", config, unix.NewUnixClientTransport(), ser)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 20*time.Millisecond)
	defer conn.Close()

	ctx := context.Background()
	v, err := conn.Call(ctx, "set", "k", "v")
	r.NoError(err)
	r.Equal("OK", v)

	results := conn.Batch(ctx, []shard.Op{
		{Command: "get", Key: "k"},
		{Command: "append", Key: "k", Args: []any{"w"}},
	})
	r.Equal([]shard.Result{{Value: "v"}, {Value: int64(2)}}, results)
}

func TestEncodeArg(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"s", "s"},
		{[]byte("b"), "b"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint8(255), "255"},
		{1.5, "1.5"},
		{float32(0.25), "0.25"},
		{true, "1"},
		{false, "0"},
		{time.Second, "1s"},
		{struct{ A int }{1}, "{1}"},
	}
	for _, tt := range tests {
		got, err := EncodeArg(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, string(got), "%#v", tt.in)
	}

	_, err := EncodeArg(nil)
	require.Error(t, err)
}

func TestDecodeReply(t *testing.T) {
	r := require.New(t)

	v, err := DecodeReply(&common.Message{MsgType: common.MsgTSuccess, Kind: common.ReplyArray, Items: []common.Item{{Value: []byte("a")}, {Nil: true}}})
	r.NoError(err)
	r.Equal([]any{"a", nil}, v)

	_, err = DecodeReply(&common.Message{MsgType: common.MsgTError, Err: "ERR boom"})
	r.EqualError(err, "ERR boom")

	_, err = DecodeReply(&common.Message{MsgType: common.MsgTSuccess})
	r.Error(err)
}
