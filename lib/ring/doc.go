// Package ring implements the consistent hashing ring used to assign keys to shard nodes.
//
// Every node is represented by a fixed number of virtual points (DefaultReplicas = 128).
// Point i of node n sits at hash(n + ":" + i) on a signed 32-bit ring. A key belongs to the
// node of the first point at or after hash(key).
//
// The default hash is CRC-32 (IEEE) reinterpreted as a signed int32. The placement is
// therefore bit-reproducible across processes and across clients written in other
// languages that share the same key space. Murmur3 and CityHash are available for
// deployments that do not need that compatibility.
//
// Two behaviors are kept for compatibility and can be switched per ring:
//
//   - Keys hashing above the largest point resolve to the last point (clamp) instead of
//     wrapping to the first point. Use WithWrapAround(true) for canonical behavior.
//
//   - Adding the same node twice doubles its points. Use WithDuplicateGuard(true) to make
//     AddNode idempotent.
//
// Usage Example:
//
//	r := ring.New(ring.DefaultReplicas)
//	r.AddNode("a")
//	r.AddNode("b")
//	node, err := r.Resolve("user:42")
package ring
