// Package transport defines the contracts between a node connection and a node server
// on the wire. Every request carries the namespace the client selected, so a single
// server can host several keyspaces behind one endpoint.
//
// Key Components:
//
//   - IRPCClientTransport: Sends an opaque request to a node and waits for the reply.
//     Send honors the caller's context; an implementation may retry a request only as
//     long as it has not been written.
//
//   - IRPCServerTransport: Accepts requests and hands them to the registered
//     ServerHandleFunc together with their namespace. Listen blocks until Close.
//
// Implementations live in the subpackages tcp, unix (both on top of base) and http.
package transport
