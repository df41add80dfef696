// Package server implements a shard node: a set of in-memory keyspaces (namespaces)
// served over an RPC transport.
//
// The package focuses on:
//   - Server-side RPC request handling for single commands and batches
//   - Adapter pattern to decouple the keyspace implementation from RPC mechanisms
//   - Session handling: password authentication and namespace selection
//   - Request metrics exposed on a Prometheus compatible /metrics endpoint
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating an adapter that executes command
//     and batch messages against a keyspace. ping, echo, dbsize and flushdb are answered
//     by the adapter itself.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// The transport frame carries the namespace id. A client switches namespaces by sending
// "select n"; the server only confirms that the namespace exists. If a password is
// configured, every request must carry the session token returned by a successful auth
// request, otherwise it is answered with NOAUTH.
//
// Usage Example:
//
//	config := common.ServerConfig{
//		Namespaces:      16,
//		Endpoint:        "0.0.0.0:8080",
//		MetricsEndpoint: "0.0.0.0:9090",
//		TimeoutSecond:   5,
//		LogLevel:        "info",
//	}
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server can handle concurrent requests across multiple connections. Commands
//	on one namespace are serialized by the keyspace. Serve should be called only once.
package server
