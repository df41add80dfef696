package testing

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/shardkv/lib/store"
)

// RunStoreBenchmarks runs all benchmarks for a keyspace implementation
func RunStoreBenchmarks(b *testing.B, name string, factory store.Factory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("SetWithExpiry", func(b *testing.B) {
			benchmarkSetWithExpiry(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Incr", func(b *testing.B) {
			benchmarkIncr(b, factory())
		})

		b.Run("ZAdd", func(b *testing.B) {
			benchmarkZAdd(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func raw(args ...string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

func benchmarkSet(b *testing.B, s store.IStore) {
	value := make([]byte, 128)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Exec("set", [][]byte{[]byte("key-" + strconv.Itoa(i)), value})
	}
}

func benchmarkSetWithExpiry(b *testing.B, s store.IStore) {
	value := make([]byte, 128)
	ex := []byte("100")
	opt := []byte("EX")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Exec("set", [][]byte{[]byte("key-" + strconv.Itoa(i)), value, opt, ex})
	}
}

func benchmarkGet(b *testing.B, s store.IStore) {
	const keys = 10000
	for i := 0; i < keys; i++ {
		s.Exec("set", raw("key-"+strconv.Itoa(i), "value"))
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			s.Exec("get", raw("key-"+strconv.Itoa(i%keys)))
			i++
		}
	})
}

func benchmarkIncr(b *testing.B, s store.IStore) {
	args := raw("counter")
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Exec("incr", args)
		}
	})
}

func benchmarkZAdd(b *testing.B, s store.IStore) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Exec("zadd", raw("z", strconv.Itoa(rand.Intn(1000000)), "member-"+strconv.Itoa(i)))
	}
}

// benchmarkMixedUsage runs 70% reads, 20% writes and 10% deletes
func benchmarkMixedUsage(b *testing.B, s store.IStore) {
	const keys = 1000
	for i := 0; i < keys; i++ {
		s.Exec("set", raw("key-"+strconv.Itoa(i), "value"))
	}
	var ops atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(ops.Add(1)))
		for pb.Next() {
			key := "key-" + strconv.Itoa(r.Intn(keys))
			switch p := r.Intn(10); {
			case p < 7:
				s.Exec("get", raw(key))
			case p < 9:
				s.Exec("set", raw(key, "value"))
			default:
				s.Exec("del", raw(key))
			}
		}
	})
}
