// Package common provides core data structures and utilities shared by the RPC client,
// the RPC server and the transports of a shard node.
//
// The package focuses on:
//   - Message protocol definition for client to node communication
//   - Configuration structures for client and server components
//   - Custom logging implementation on top of the dragonboat logger facade
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. A request carries a command
//     name with its arguments (Cmd, Args), a batch of such requests (Batch) or an auth
//     request. A response carries a typed reply (Kind plus Int, Value or Items) or an
//     error string. The session token obtained with auth travels in Meta.
//
//   - MessageType and ReplyKind: Enumerations of the message and reply variants. Both
//     are encoded as names in JSON.
//
//   - ServerConfig: Configuration of a node server: endpoint, namespaces, password,
//     socket options and the metrics endpoint.
//
//   - ClientConfig: Configuration for a node connection, controlling endpoints, timeouts
//     and retry behavior.
//
//   - Logger: Custom logging implementation that plugs into dragonboat's logger package,
//     which every package of the module uses as its logging facade.
package common
