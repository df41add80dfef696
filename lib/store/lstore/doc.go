// Package lstore implements a local, in-memory keyspace based on the store.IStore
// interface. Data is stored entirely in memory and is not persisted between process
// restarts.
//
// Key Features:
//   - Strings (including counters, ranges and bit operations), hashes, lists, sets
//     and sorted sets
//   - Key expiry with second and millisecond precision (expire, pexpire, set ... EX)
//   - Redis compatible replies and error classes
//
// Implementation Details:
//
//   - Command Table: Every supported command is registered with its argument bounds.
//     Unknown commands and wrong argument counts are rejected before the keyspace is
//     touched.
//
//   - Expiry: Deadlines are kept in a MapHeap (a binary heap with key based access).
//     Expired keys are invisible as soon as their deadline passes; before each command
//     a bounded number of expired keys is removed, earliest deadline first.
//
//   - Sorted Sets: Members are indexed by (score, member) in a skip list
//     (github.com/zhangyunhao116/skipmap) next to a member -> score map.
//
// Thread Safety:
//
//	All operations are thread-safe. The commands of one keyspace are serialized by a
//	single lock, so multi key commands (rename, mget, sinter, ...) are atomic.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	s.Exec("set", [][]byte{[]byte("session:123"), data, []byte("EX"), []byte("300")})
//	reply := s.Exec("get", [][]byte{[]byte("session:123")})
package lstore
