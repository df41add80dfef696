// Package store defines the keyspace abstraction executed by a shard node.
//
// The package focuses on:
//   - A unified interface (IStore) executing Redis style commands against one keyspace
//   - Typed replies and a structured error system shared by every implementation
//
// Key Components:
//
//   - IStore Interface: The core abstraction. Exec takes a command name and its raw
//     arguments and always returns exactly one Reply; Size and Flush operate on the
//     whole keyspace. The node server keeps one IStore per namespace and creates them
//     through a Factory.
//
//   - Reply: The result of a command. The Kind tells which field holds the value
//     (status, integer, bulk string, array or nil). Constructors such as OK, Int, Bulk
//     and Values build replies, Fail builds an error reply.
//
//   - Error System: Error carries a RetCode and a message. Error() renders the message
//     with the error class of the code ("ERR", "WRONGTYPE", "NOAUTH"), the way Redis
//     servers report errors, so clients can show them unchanged.
//
// Implementations:
//
//	- Local Store (lstore): An in-memory keyspace with strings, hashes, lists, sets,
//	  sorted sets and key expiry.
//	  Available in the "github.com/ValentinKolb/shardkv/lib/store/lstore" package.
//
// The subpackage "testing" provides a conformance suite (RunStoreTests) and benchmarks
// (RunStoreBenchmarks) for IStore implementations.
package store
