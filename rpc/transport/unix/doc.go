// Package unix provides Unix domain socket connectors for the base transport, for
// routers and nodes running on the same host. The endpoint is the socket path; a stale
// socket file left by a previous server is removed before listening.
//
// The default server read buffer is 64 KB.
package unix
