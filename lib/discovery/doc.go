// Package discovery keeps the node set of a shard router in sync with a ZooKeeper registry.
//
// Nodes register themselves as ephemeral znodes below <root>/nodes. The znode name is the
// node name on the ring, the znode data is the YAML encoded connection description
// (endpoints and namespace). Passwords are never written to the registry.
//
// Key Components:
//
//   - Registry: Reads and writes the node registry. Register announces a node, Nodes
//     returns the currently registered node set sorted by name.
//
//   - Registry.Watch: Blocks until the context is done and applies every change of the
//     node set to a Reconfigurer (usually a *shard.Router).
//
// Usage Example:
//
//	reg, err := discovery.Connect([]string{"zk1:2181"}, "/shardkv", 5*time.Second)
//	if err != nil {
//		return err
//	}
//	defer reg.Close()
//
//	nodes, err := reg.Nodes()
//	if err != nil {
//		return err
//	}
//	router, err := shard.New(ctx, nodes, dialer)
//	if err != nil {
//		return err
//	}
//	go reg.Watch(ctx, router)
package discovery
