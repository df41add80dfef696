package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/ValentinKolb/shardkv/lib/shard"
	"github.com/ValentinKolb/shardkv/rpc/common"
	"github.com/ValentinKolb/shardkv/rpc/serializer"
	"github.com/ValentinKolb/shardkv/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// ErrClosed is returned by calls on a closed connection
var ErrClosed = errors.New("rpc connection is closed")

// NewRPCConn creates a connection to one shard node.
// It connects the transport and, if a password is given, authenticates right away.
//
// Usage:
//
//	conn, err := client.NewRPCConn(ctx, 0, "", config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	reply, err := conn.Call(ctx, "get", "user:1")
func NewRPCConn(
	ctx context.Context,
	namespace uint64,
	password string,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCConn, error) {
	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	c := &RPCConn{
		config:     config,
		transport:  transport,
		serializer: serializer,
	}
	c.namespace.Store(namespace)

	if password != "" {
		if _, err := c.Auth(ctx, password); err != nil {
			_ = transport.Close()
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	return c, nil
}

// Dialer returns a shard.Dialer opening an RPCConn per node. The endpoints, namespace and
// password of the node replace the ones in config; every node gets its own transport.
func Dialer(
	config common.ClientConfig,
	newTransport func() transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) shard.Dialer {
	return func(ctx context.Context, node shard.NodeConfig) (shard.Conn, error) {
		cfg := config
		cfg.Endpoints = node.Endpoints
		conn, err := NewRPCConn(ctx, node.Namespace, node.Password, cfg, newTransport(), serializer)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name, err)
		}
		Logger.Debugf("connected to node %s (%s)", node.Name, strings.Join(node.Endpoints, ", "))
		return conn, nil
	}
}

// RPCConn is a connection to a single shard node. It implements shard.Conn and
// shard.Batcher and is safe for concurrent use.
type RPCConn struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer

	namespace atomic.Uint64          // selected namespace, sent with every frame
	token     atomic.Pointer[[]byte] // session token obtained with auth
	closed    atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see shard.Conn and shard.Batcher)
// --------------------------------------------------------------------------

func (c *RPCConn) Call(ctx context.Context, command string, args ...any) (any, error) {
	name := strings.ToLower(strings.TrimSpace(command))
	switch name {
	case "auth":
		if len(args) != 1 {
			return nil, fmt.Errorf("auth expects exactly one argument, got %d", len(args))
		}
		password, err := EncodeArg(args[0])
		if err != nil {
			return nil, err
		}
		return c.Auth(ctx, string(password))
	case "select":
		if len(args) != 1 {
			return nil, fmt.Errorf("select expects exactly one argument, got %d", len(args))
		}
		idx, err := EncodeArg(args[0])
		if err != nil {
			return nil, err
		}
		namespace, err := strconv.ParseUint(string(idx), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid namespace %q: %w", idx, err)
		}
		return c.Select(ctx, namespace)
	}

	encoded, err := EncodeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	resp, err := c.invoke(ctx, common.NewCommandRequest(name, encoded))
	if err != nil {
		return nil, err
	}
	return DecodeReply(resp)
}

func (c *RPCConn) Batch(ctx context.Context, ops []shard.Op) []shard.Result {
	results := make([]shard.Result, len(ops))

	// Encode every op, ops that cannot be encoded are not sent
	cmds := make([]common.Message, 0, len(ops))
	sent := make([]int, 0, len(ops))
	for i, op := range ops {
		encoded, err := EncodeArgs(op.CallArgs())
		if err != nil {
			results[i].Err = fmt.Errorf("%s: %w", op.Command, err)
			continue
		}
		cmds = append(cmds, *common.NewCommandRequest(strings.ToLower(strings.TrimSpace(op.Command)), encoded))
		sent = append(sent, i)
	}
	if len(cmds) == 0 {
		return results
	}

	resp, err := c.invoke(ctx, common.NewBatchRequest(cmds))
	if err == nil && len(resp.Batch) != len(cmds) {
		err = fmt.Errorf("batch response has %d replies for %d commands", len(resp.Batch), len(cmds))
	}
	for j, i := range sent {
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Value, results[i].Err = DecodeReply(&resp.Batch[j])
	}
	return results
}

func (c *RPCConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Session Methods
// --------------------------------------------------------------------------

// Auth authenticates with the node. The session token is attached to all later requests.
func (c *RPCConn) Auth(ctx context.Context, password string) (any, error) {
	resp, err := c.invoke(ctx, common.NewAuthRequest(password))
	if err != nil {
		return nil, err
	}
	if resp.MsgType != common.MsgTAuth {
		return nil, fmt.Errorf("unexpected response type %s for auth", resp.MsgType)
	}
	if resp.Err != "" {
		return nil, &ReplyError{Msg: resp.Err}
	}
	token := resp.Meta
	c.token.Store(&token)
	return "OK", nil
}

// Select switches the connection to another namespace of the node.
// The namespace only changes if the node confirms it exists.
func (c *RPCConn) Select(ctx context.Context, namespace uint64) (any, error) {
	req := common.NewCommandRequest("select", [][]byte{strconv.AppendUint(nil, namespace, 10)})
	resp, err := c.invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	reply, err := DecodeReply(resp)
	if err != nil {
		return nil, err
	}
	c.namespace.Store(namespace)
	return reply, nil
}

// Namespace returns the currently selected namespace
func (c *RPCConn) Namespace() uint64 {
	return c.namespace.Load()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// invoke sends a request to the selected namespace and returns the decoded response.
// Error responses are returned as messages, only transport and codec failures are errors.
func (c *RPCConn) invoke(ctx context.Context, req *common.Message) (*common.Message, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	if token := c.token.Load(); token != nil {
		req.Meta = *token
	}

	// Serialize the request
	reqBytes, err := c.serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	// Send the request
	respBytes, err := c.transport.Send(ctx, c.namespace.Load(), reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := c.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}

	// A request that failed as a whole
	if resp.MsgType == common.MsgTError {
		return nil, &ReplyError{Msg: resp.Err}
	}
	return resp, nil
}
