// Package serializer converts common.Message values to bytes and back for the node
// protocol. Three formats are available behind IRPCSerializer:
//
//   - binary (NewBinarySerializer): the default. A one byte message type and a two byte
//     presence bitmap, followed by only the fields whose bit is set. Byte strings are
//     length prefixed, batch elements are nested messages with their own length prefix.
//     Deserialize rejects truncated input and trailing bytes.
//
//   - json (NewJSONSerializer): readable on the wire, message types and reply kinds are
//     written as names. Useful with the http transport and curl.
//
//   - gob (NewGOBSerializer): encoding/gob, kept for comparison in the benchmarks.
//
// Router and node must use the same format; it is not negotiated.
//
// All implementations are stateless and safe for concurrent use.
package serializer
