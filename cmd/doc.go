// Package cmd implements the command-line interface of shardkv. It provides a
// hierarchical command structure for running shard nodes and for talking to a
// sharded deployment through the router.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a shard node (namespaces, password, metrics endpoint, optional
//     ZooKeeper registration)
//   - kv: Runs commands through the shard router (single commands, pipelines from
//     stdin, the command table and a performance test)
//   - ring: Prints the ring of a node set and locates the owner of keys
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See shardkv -help for a list of all commands.
package cmd
