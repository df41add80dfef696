// Package tcp provides the TCP connectors for the base transport.
//
// Client connections honor TCPNoDelay and TCPKeepAliveSec from the client config,
// server connections TCPNoDelay and the socket buffer sizes from the server config.
// The default server read buffer is 512 KB with 64 workers per connection.
package tcp
