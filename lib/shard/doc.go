// Package shard routes key-value commands across independent shard nodes.
//
// A Router owns one Conn per node and a consistent hashing ring (see package ring) over
// the node names. Every command name is classified once, at package initialization,
// into one of three variants:
//
//   - Direct: the command works on a single key (its first argument). The key, or the
//     hash tag inside it, is resolved on the ring and the call is forwarded unchanged to
//     the owning node. The node's reply and error are returned as they are.
//
//   - BroadcastSplit: connection scoped commands (auth, select). The call is sent to
//     every node concurrently, either with the same arguments or with one argument list
//     per node (PerNode). The result maps every node name to its outcome.
//
//   - Forbidden: commands spanning several nodes or the whole server. They fail with a
//     *ClassificationError before any connection is touched. Unknown names are treated
//     the same way.
//
// Hash Tags:
//
// Keys containing a brace pair are routed by the text inside the last pair only, so
// "user:{42}:name" and "user:{42}:mail" always live on the same node.
//
// Pipelines:
//
// A Pipeline queues operations and sends them with one round trip per node when Exec is
// called. Results come back in submission order, each slot carrying either a value or an
// error.
//
// Membership:
//
// The node set is an immutable snapshot that Reconfigure replaces atomically. Keys are
// never migrated; after a change some keys resolve to a different node.
//
// Usage Example:
//
//	router, err := shard.New(ctx, nodes, client.Dialer(cfg))
//	if err != nil {
//		return err
//	}
//	defer router.Close()
//
//	_, err = router.Set(ctx, "user:{42}:name", "alice")
//	name, err := router.Get(ctx, "user:{42}:name")
//
//	p := router.Pipeline()
//	p.Queue("get", "a")
//	p.Queue("get", "b")
//	results := p.Exec(ctx)
package shard
