// Package testing provides standardised tests and benchmarks for keyspace
// implementations that satisfy the store.IStore interface.
//
// The package contains:
//   - store_testing: A conformance suite validating the command semantics of a keyspace
//   - store_benchmarks: Performance tests for common command mixes
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() store.IStore {
//		return NewMyStore()
//	}
//
//	// Running the standard test suite
//	storetesting.RunStoreTests(t, "MyStore", factory)
//
//	// Running performance benchmarks
//	storetesting.RunStoreBenchmarks(b, "MyStore", factory)
package testing
