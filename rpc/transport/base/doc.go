// Package base implements the stream transport shared by the tcp and unix packages.
// The protocol specific parts (dialing, listening, socket options) are injected
// through IClientConnector and IServerConnector.
//
// Frames:
//
//	| namespace uint64 | requestID uint64 | length uint32 | payload |
//
// A reply reuses the namespace and requestID of its request. Replies on one connection
// may arrive in any order; the client correlates them through an xsync.MapOf keyed by
// requestID.
//
// Client:
//
//   - ConnectionsPerEndpoint connections are opened per endpoint and used round robin.
//   - A request that could not be written (no connection, broken socket) is retried
//     with jittered exponential backoff (sethvargo/go-retry) up to RetryCount attempts.
//     A written request is never sent twice, since the node may already have applied it.
//   - When a connection breaks, every request waiting on it fails immediately and the
//     connection reconnects in the background with a capped backoff.
//
// Server:
//
//   - One reader goroutine per connection, at most WorkersPerConn requests in flight
//     per connection. Read buffers come from a sync.Pool of BufferSize bytes.
//   - Close stops the listener and closes every open connection; Listen then returns nil.
package base
