// Package client implements the connection to a single shard node over the RPC layer.
// An RPCConn satisfies shard.Conn and shard.Batcher, so a shard.Router can use it for
// direct commands, broadcasts and pipelines.
//
// The package focuses on:
//   - Converting Go call arguments into command messages and replies back into Go values
//   - Sending pipelined operations to a node as one batch message
//   - Per connection session state: the selected namespace and the auth token
//
// Key Components:
//
//   - NewRPCConn: Factory function that connects a transport to a node and returns an
//     RPCConn. If a password is given the connection authenticates right away.
//
//   - Dialer: Returns a shard.Dialer opening one RPCConn (with its own transport) per
//     configured node.
//
//   - ReplyError: Error reported by the node itself (e.g. WRONGTYPE or NOAUTH). Transport
//     and codec failures are returned as plain errors.
//
// Replies are decoded as nil (missing value), string (status and bulk replies), int64
// or []any whose elements are strings or nil.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		Endpoints:              []string{"localhost:8080"},
//		TimeoutSecond:          5,
//		RetryCount:             3,
//		ConnectionsPerEndpoint: 1,
//	}
//
//	dialer := client.Dialer(config, tcp.NewTCPClientTransport, serializer.NewBinarySerializer())
//	router, err := shard.New(ctx, nodes, dialer)
//	if err != nil {
//		log.Fatalf("Failed to create router: %v", err)
//	}
//	defer router.Close()
//
//	if _, err := router.Set(ctx, "user:{42}:name", "alice"); err != nil {
//		log.Fatalf("Failed to set value: %v", err)
//	}
package client
