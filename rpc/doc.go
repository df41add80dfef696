// Package rpc provides a comprehensive framework for remote procedure calls
// between the shard router and the nodes holding the keyspace. It acts as the
// communication layer between node connections and node servers.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: A node connection implementing the shard.Conn and shard.Batcher
//     interfaces, so a shard router can reach remote nodes transparently.
//
//   - server: The node server that executes commands against in-memory namespaces,
//     with optional password auth and a metrics endpoint.
package rpc
