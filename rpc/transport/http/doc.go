// Package http implements the transport over plain HTTP/1.1.
//
// Every request is a POST of the serialized message to /{namespace}; the reply is the
// response body. The server routes with go-chi/chi, recovers handler panics with chi's
// Recoverer and logs every request when the log level is debug. The client spreads requests round robin over the configured
// endpoints and retries failed dials with go-retry, but never a request whose body was
// already sent.
//
// Status codes: 400 for a namespace that is not an unsigned integer, 405 for any method
// but POST, 500 if the body could not be read.
package http
