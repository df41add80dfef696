package testing

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/shardkv/lib/store"
)

// RunStoreTests runs a comprehensive test suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory store.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Strings", func(t *testing.T) {
			testStrings(t, factory())
		})

		t.Run("SetOptions", func(t *testing.T) {
			testSetOptions(t, factory())
		})

		t.Run("Counters", func(t *testing.T) {
			testCounters(t, factory())
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, factory())
		})

		t.Run("Expiry", func(t *testing.T) {
			testExpiry(t, factory())
		})

		t.Run("Hashes", func(t *testing.T) {
			testHashes(t, factory())
		})

		t.Run("Lists", func(t *testing.T) {
			testLists(t, factory())
		})

		t.Run("Sets", func(t *testing.T) {
			testSets(t, factory())
		})

		t.Run("SortedSets", func(t *testing.T) {
			testSortedSets(t, factory())
		})

		t.Run("WrongType", func(t *testing.T) {
			testWrongType(t, factory())
		})

		t.Run("Errors", func(t *testing.T) {
			testErrors(t, factory())
		})

		t.Run("Flush", func(t *testing.T) {
			testFlush(t, factory())
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Exec runs a command with string arguments
func Exec(s store.IStore, cmd string, args ...string) store.Reply {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return s.Exec(cmd, raw)
}

func expectInt(t *testing.T, r store.Reply, want int64) {
	t.Helper()
	if r.Kind != store.KindInt || r.Int != want {
		t.Errorf("Expected integer reply %d, got %s", want, describe(r))
	}
}

func expectBulk(t *testing.T, r store.Reply, want string) {
	t.Helper()
	if r.Kind != store.KindBulk || !bytes.Equal(r.Value, []byte(want)) {
		t.Errorf("Expected bulk reply %q, got %s", want, describe(r))
	}
}

func expectStatus(t *testing.T, r store.Reply, want string) {
	t.Helper()
	if r.Kind != store.KindStatus || string(r.Value) != want {
		t.Errorf("Expected status reply %q, got %s", want, describe(r))
	}
}

func expectNil(t *testing.T, r store.Reply) {
	t.Helper()
	if r.Kind != store.KindNil {
		t.Errorf("Expected nil reply, got %s", describe(r))
	}
}

func expectValues(t *testing.T, r store.Reply, want ...string) {
	t.Helper()
	if r.Kind != store.KindArray || len(r.Items) != len(want) {
		t.Errorf("Expected array reply %q, got %s", want, describe(r))
		return
	}
	for i, w := range want {
		if r.Items[i].Nil || string(r.Items[i].Value) != w {
			t.Errorf("Expected array reply %q, got %s", want, describe(r))
			return
		}
	}
}

func expectError(t *testing.T, r store.Reply, code store.RetCode) {
	t.Helper()
	if r.Kind != store.KindError || r.Err == nil || r.Err.Code != code {
		t.Errorf("Expected error reply with code %d, got %s", code, describe(r))
	}
}

func describe(r store.Reply) string {
	switch r.Kind {
	case store.KindNil:
		return "nil"
	case store.KindStatus:
		return fmt.Sprintf("status %q", r.Value)
	case store.KindInt:
		return fmt.Sprintf("int %d", r.Int)
	case store.KindBulk:
		return fmt.Sprintf("bulk %q", r.Value)
	case store.KindArray:
		items := make([]string, len(r.Items))
		for i, it := range r.Items {
			if it.Nil {
				items[i] = "<nil>"
			} else {
				items[i] = string(it.Value)
			}
		}
		return fmt.Sprintf("array %q", items)
	case store.KindError:
		return fmt.Sprintf("error %v", r.Err)
	default:
		return "unknown reply"
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testStrings(t *testing.T, s store.IStore) {
	expectNil(t, Exec(s, "get", "k"))
	expectStatus(t, Exec(s, "set", "k", "v1"), "OK")
	expectBulk(t, Exec(s, "GET", "k"), "v1")
	expectBulk(t, Exec(s, "getset", "k", "v2"), "v1")
	expectBulk(t, Exec(s, "get", "k"), "v2")
	expectInt(t, Exec(s, "append", "k", "-tail"), 7)
	expectInt(t, Exec(s, "strlen", "k"), 7)
	expectBulk(t, Exec(s, "getrange", "k", "0", "1"), "v2")
	expectBulk(t, Exec(s, "getrange", "k", "-4", "-1"), "tail")
	expectBulk(t, Exec(s, "getrange", "k", "5", "2"), "")
	expectInt(t, Exec(s, "setrange", "k", "1", "X"), 7)
	expectBulk(t, Exec(s, "get", "k"), "vX-tail")
	expectError(t, Exec(s, "setrange", "k", "9223372036854775807", "x"), store.RetCInvalidOperation)
	expectError(t, Exec(s, "setrange", "k", "536870912", "x"), store.RetCInvalidOperation)
	expectError(t, Exec(s, "setrange", "k", "-1", "x"), store.RetCInvalidOperation)
	expectBulk(t, Exec(s, "get", "k"), "vX-tail")
	expectInt(t, Exec(s, "setnx", "k", "other"), 0)
	expectInt(t, Exec(s, "setnx", "k2", "other"), 1)
	expectValues(t, Exec(s, "mget", "k", "k2"), "vX-tail", "other")

	r := Exec(s, "mget", "k", "missing")
	if len(r.Items) != 2 || !r.Items[1].Nil {
		t.Errorf("Expected nil element for missing key, got %s", describe(r))
	}

	// binary safe values and no aliasing of the caller's buffer
	value := []byte{0, 1, 2, 255}
	s.Exec("set", [][]byte{[]byte("bin"), value})
	value[0] = 9
	r = Exec(s, "get", "bin")
	if !bytes.Equal(r.Value, []byte{0, 1, 2, 255}) {
		t.Errorf("Stored value must not alias the argument, got %v", r.Value)
	}

	// bits
	expectInt(t, Exec(s, "setbit", "bits", "7", "1"), 0)
	expectInt(t, Exec(s, "getbit", "bits", "7"), 1)
	expectInt(t, Exec(s, "getbit", "bits", "100"), 0)
	expectInt(t, Exec(s, "setbit", "bits", "9", "1"), 0)
	expectInt(t, Exec(s, "bitcount", "bits"), 2)
	expectInt(t, Exec(s, "bitcount", "bits", "1", "1"), 1)
}

func testSetOptions(t *testing.T, s store.IStore) {
	expectNil(t, Exec(s, "set", "k", "v", "XX"))
	expectStatus(t, Exec(s, "set", "k", "v", "NX"), "OK")
	expectNil(t, Exec(s, "set", "k", "v2", "NX"))
	expectBulk(t, Exec(s, "get", "k"), "v")
	expectStatus(t, Exec(s, "set", "k", "v3", "XX", "EX", "100"), "OK")
	expectInt(t, Exec(s, "ttl", "k"), 100)
	expectStatus(t, Exec(s, "set", "k", "v4", "KEEPTTL"), "OK")
	expectInt(t, Exec(s, "ttl", "k"), 100)
	expectStatus(t, Exec(s, "set", "k", "v5"), "OK")
	expectInt(t, Exec(s, "ttl", "k"), -1)

	expectError(t, Exec(s, "set", "k", "v", "NX", "XX"), store.RetCSyntax)
	expectError(t, Exec(s, "set", "k", "v", "EX"), store.RetCSyntax)
	expectError(t, Exec(s, "set", "k", "v", "EX", "0"), store.RetCSyntax)
	expectError(t, Exec(s, "set", "k", "v", "PX", "abc"), store.RetCNotInteger)
	expectError(t, Exec(s, "set", "k", "v", "BOGUS"), store.RetCSyntax)
}

func testCounters(t *testing.T, s store.IStore) {
	expectInt(t, Exec(s, "incr", "n"), 1)
	expectInt(t, Exec(s, "incrby", "n", "10"), 11)
	expectInt(t, Exec(s, "decr", "n"), 10)
	expectInt(t, Exec(s, "decrby", "n", "20"), -10)
	expectBulk(t, Exec(s, "get", "n"), "-10")
	expectBulk(t, Exec(s, "incrbyfloat", "f", "1.5"), "1.5")
	expectBulk(t, Exec(s, "incrbyfloat", "f", "-0.5"), "1")

	Exec(s, "set", "text", "abc")
	expectError(t, Exec(s, "incr", "text"), store.RetCNotInteger)
	expectError(t, Exec(s, "incrby", "n", "x"), store.RetCNotInteger)
	expectError(t, Exec(s, "incrbyfloat", "text", "1"), store.RetCNotFloat)

	Exec(s, "set", "big", "9223372036854775807")
	expectError(t, Exec(s, "incr", "big"), store.RetCNotInteger)
	expectBulk(t, Exec(s, "get", "big"), "9223372036854775807")
}

func testKeys(t *testing.T, s store.IStore) {
	Exec(s, "set", "a", "1")
	Exec(s, "rpush", "l", "x")
	expectInt(t, Exec(s, "exists", "a", "l", "missing", "a"), 3)
	expectStatus(t, Exec(s, "type", "a"), "string")
	expectStatus(t, Exec(s, "type", "l"), "list")
	expectStatus(t, Exec(s, "type", "missing"), "none")

	expectStatus(t, Exec(s, "rename", "a", "b"), "OK")
	expectNil(t, Exec(s, "get", "a"))
	expectBulk(t, Exec(s, "get", "b"), "1")
	expectError(t, Exec(s, "rename", "missing", "c"), store.RetCInvalidOperation)
	expectInt(t, Exec(s, "renamenx", "b", "l"), 0)
	expectInt(t, Exec(s, "renamenx", "b", "c"), 1)

	expectInt(t, Exec(s, "del", "c", "l", "missing"), 2)
	expectInt(t, Exec(s, "exists", "c", "l"), 0)
	if s.Size() != 0 {
		t.Errorf("Expected empty keyspace, got %d keys", s.Size())
	}
}

func testExpiry(t *testing.T, s store.IStore) {
	Exec(s, "set", "k", "v")
	expectInt(t, Exec(s, "ttl", "k"), -1)
	expectInt(t, Exec(s, "ttl", "missing"), -2)
	expectInt(t, Exec(s, "pttl", "missing"), -2)
	expectInt(t, Exec(s, "expire", "missing", "10"), 0)

	expectInt(t, Exec(s, "expire", "k", "100"), 1)
	expectInt(t, Exec(s, "ttl", "k"), 100)
	if r := Exec(s, "pttl", "k"); r.Int <= 99000 || r.Int > 100000 {
		t.Errorf("Expected pttl close to 100000, got %s", describe(r))
	}
	expectInt(t, Exec(s, "persist", "k"), 1)
	expectInt(t, Exec(s, "persist", "k"), 0)
	expectInt(t, Exec(s, "ttl", "k"), -1)

	// a deadline in the past deletes the key
	expectInt(t, Exec(s, "expire", "k", "-1"), 1)
	expectNil(t, Exec(s, "get", "k"))
	Exec(s, "set", "k", "v")
	expectInt(t, Exec(s, "pexpireat", "k", "1000"), 1)
	expectInt(t, Exec(s, "exists", "k"), 0)

	// a short deadline passes
	expectStatus(t, Exec(s, "set", "short", "v", "PX", "20"), "OK")
	expectStatus(t, Exec(s, "psetex", "short2", "20", "v"), "OK")
	time.Sleep(60 * time.Millisecond)
	expectNil(t, Exec(s, "get", "short"))
	expectInt(t, Exec(s, "exists", "short2"), 0)

	// the deadline moves with rename
	Exec(s, "setex", "from", "100", "v")
	Exec(s, "rename", "from", "to")
	expectInt(t, Exec(s, "ttl", "to"), 100)
	expectInt(t, Exec(s, "ttl", "from"), -2)
}

func testHashes(t *testing.T, s store.IStore) {
	expectInt(t, Exec(s, "hset", "h", "f1", "v1", "f2", "v2"), 2)
	expectInt(t, Exec(s, "hset", "h", "f1", "v1b"), 0)
	expectStatus(t, Exec(s, "hmset", "h", "f3", "v3"), "OK")
	expectInt(t, Exec(s, "hsetnx", "h", "f3", "x"), 0)
	expectInt(t, Exec(s, "hsetnx", "h", "f4", "v4"), 1)
	expectBulk(t, Exec(s, "hget", "h", "f1"), "v1b")
	expectNil(t, Exec(s, "hget", "h", "missing"))
	expectNil(t, Exec(s, "hget", "missing", "f1"))
	expectInt(t, Exec(s, "hlen", "h"), 4)
	expectInt(t, Exec(s, "hexists", "h", "f2"), 1)
	expectValues(t, Exec(s, "hkeys", "h"), "f1", "f2", "f3", "f4")
	expectValues(t, Exec(s, "hvals", "h"), "v1b", "v2", "v3", "v4")
	expectValues(t, Exec(s, "hgetall", "h"), "f1", "v1b", "f2", "v2", "f3", "v3", "f4", "v4")

	r := Exec(s, "hmget", "h", "f2", "nope")
	if len(r.Items) != 2 || string(r.Items[0].Value) != "v2" || !r.Items[1].Nil {
		t.Errorf("Unexpected hmget reply %s", describe(r))
	}

	expectInt(t, Exec(s, "hincrby", "h", "n", "5"), 5)
	expectInt(t, Exec(s, "hincrby", "h", "n", "-7"), -2)
	expectBulk(t, Exec(s, "hincrbyfloat", "h", "x", "0.25"), "0.25")
	expectError(t, Exec(s, "hincrby", "h", "f1", "1"), store.RetCNotInteger)
	expectError(t, Exec(s, "hset", "h", "odd"), store.RetCSyntax)

	expectInt(t, Exec(s, "hdel", "h", "f1", "f2", "f3", "f4", "n", "x", "nope"), 6)
	expectInt(t, Exec(s, "exists", "h"), 0)
}

func testLists(t *testing.T, s store.IStore) {
	expectInt(t, Exec(s, "rpush", "l", "a", "b"), 2)
	expectInt(t, Exec(s, "lpush", "l", "y", "z"), 4)
	expectValues(t, Exec(s, "lrange", "l", "0", "-1"), "z", "y", "a", "b")

	// one lpush with many elements onto a long list
	batch := make([]string, 0, 20001)
	batch = append(batch, "long")
	for i := 0; i < 20000; i++ {
		batch = append(batch, strconv.Itoa(i))
	}
	expectInt(t, Exec(s, "rpush", batch...), 20000)
	expectInt(t, Exec(s, "lpush", batch...), 40000)
	expectBulk(t, Exec(s, "lindex", "long", "0"), "19999")
	expectBulk(t, Exec(s, "lindex", "long", "19999"), "0")
	expectBulk(t, Exec(s, "lindex", "long", "20000"), "0")
	expectBulk(t, Exec(s, "lindex", "long", "-1"), "19999")
	expectInt(t, Exec(s, "del", "long"), 1)

	expectInt(t, Exec(s, "lpushx", "missing", "a"), 0)
	expectInt(t, Exec(s, "exists", "missing"), 0)
	expectInt(t, Exec(s, "rpushx", "l", "c"), 5)
	expectInt(t, Exec(s, "llen", "l"), 5)
	expectBulk(t, Exec(s, "lindex", "l", "-1"), "c")
	expectNil(t, Exec(s, "lindex", "l", "10"))
	expectStatus(t, Exec(s, "lset", "l", "0", "Z"), "OK")
	expectError(t, Exec(s, "lset", "l", "10", "x"), store.RetCInvalidOperation)
	expectBulk(t, Exec(s, "lpop", "l"), "Z")
	expectBulk(t, Exec(s, "rpop", "l"), "c")
	expectValues(t, Exec(s, "lrange", "l", "0", "-1"), "y", "a", "b")

	expectInt(t, Exec(s, "linsert", "l", "BEFORE", "a", "x"), 4)
	expectInt(t, Exec(s, "linsert", "l", "after", "b", "x"), 5)
	expectInt(t, Exec(s, "linsert", "l", "after", "nope", "x"), -1)
	expectValues(t, Exec(s, "lrange", "l", "0", "-1"), "y", "x", "a", "b", "x")
	expectInt(t, Exec(s, "lrem", "l", "-1", "x"), 1)
	expectValues(t, Exec(s, "lrange", "l", "0", "-1"), "y", "x", "a", "b")
	expectInt(t, Exec(s, "lrem", "l", "0", "x"), 1)
	expectStatus(t, Exec(s, "ltrim", "l", "1", "-1"), "OK")
	expectValues(t, Exec(s, "lrange", "l", "0", "-1"), "a", "b")
	expectValues(t, Exec(s, "lrange", "l", "5", "10"))

	expectValues(t, Exec(s, "blpop", "empty", "l", "0"), "l", "a")
	expectValues(t, Exec(s, "brpop", "l", "0"), "l", "b")
	expectNil(t, Exec(s, "blpop", "l", "0"))
	expectInt(t, Exec(s, "exists", "l"), 0)

	Exec(s, "rpush", "l", "1", "2", "3")
	expectValues(t, Exec(s, "lpop", "l", "2"), "1", "2")
	expectValues(t, Exec(s, "rpop", "l", "5"), "3")
	expectNil(t, Exec(s, "lpop", "l"))
}

func testSets(t *testing.T, s store.IStore) {
	expectInt(t, Exec(s, "sadd", "s1", "a", "b", "c", "a"), 3)
	expectInt(t, Exec(s, "sadd", "s2", "b", "c", "d"), 3)
	expectInt(t, Exec(s, "scard", "s1"), 3)
	expectInt(t, Exec(s, "sismember", "s1", "a"), 1)
	expectInt(t, Exec(s, "sismember", "s1", "d"), 0)
	expectValues(t, Exec(s, "smembers", "s1"), "a", "b", "c")
	expectValues(t, Exec(s, "sinter", "s1", "s2"), "b", "c")
	expectValues(t, Exec(s, "sunion", "s1", "s2"), "a", "b", "c", "d")
	expectValues(t, Exec(s, "sdiff", "s1", "s2"), "a")
	expectValues(t, Exec(s, "sinter", "s1", "missing"))
	expectInt(t, Exec(s, "srem", "s1", "a", "z"), 1)

	r := Exec(s, "srandmember", "s1")
	if r.Kind != store.KindBulk || (string(r.Value) != "b" && string(r.Value) != "c") {
		t.Errorf("Unexpected srandmember reply %s", describe(r))
	}
	if r := Exec(s, "srandmember", "s1", "-5"); len(r.Items) != 5 {
		t.Errorf("Negative count must allow repeats, got %s", describe(r))
	}
	if r := Exec(s, "srandmember", "s1", "5"); len(r.Items) != 2 {
		t.Errorf("Positive count returns distinct members, got %s", describe(r))
	}
	expectError(t, Exec(s, "srandmember", "s1", "-9223372036854775808"), store.RetCInvalidOperation)
	expectError(t, Exec(s, "srandmember", "s1", "-1000000000000"), store.RetCInvalidOperation)
	if r := Exec(s, "srandmember", "s1", "9223372036854775807"); len(r.Items) != 2 {
		t.Errorf("Huge positive count returns every member once, got %s", describe(r))
	}
	expectInt(t, Exec(s, "scard", "s1"), 2)

	if r := Exec(s, "spop", "s1", "5"); len(r.Items) != 2 {
		t.Errorf("Expected both members popped, got %s", describe(r))
	}
	expectInt(t, Exec(s, "exists", "s1"), 0)
	expectNil(t, Exec(s, "spop", "s1"))
}

func testSortedSets(t *testing.T, s store.IStore) {
	expectInt(t, Exec(s, "zadd", "z", "1", "a", "2", "b", "3", "c"), 3)
	expectInt(t, Exec(s, "zadd", "z", "CH", "5", "a", "4", "d"), 2)
	expectInt(t, Exec(s, "zadd", "z", "NX", "9", "a"), 0)
	expectBulk(t, Exec(s, "zscore", "z", "a"), "5")
	expectInt(t, Exec(s, "zadd", "z", "XX", "9", "new"), 0)
	expectNil(t, Exec(s, "zscore", "z", "new"))
	expectBulk(t, Exec(s, "zadd", "z", "INCR", "1.5", "b"), "3.5")
	expectBulk(t, Exec(s, "zincrby", "z", "-0.5", "b"), "3")

	// b and c tie on score 3 and are ordered by member
	expectValues(t, Exec(s, "zrange", "z", "0", "-1"), "b", "c", "d", "a")
	expectValues(t, Exec(s, "zrange", "z", "0", "1", "WITHSCORES"), "b", "3", "c", "3")
	expectValues(t, Exec(s, "zrevrange", "z", "0", "1"), "a", "d")
	expectInt(t, Exec(s, "zcard", "z"), 4)
	expectInt(t, Exec(s, "zrank", "z", "d"), 2)
	expectInt(t, Exec(s, "zrevrank", "z", "d"), 1)
	expectNil(t, Exec(s, "zrank", "z", "nope"))
	expectInt(t, Exec(s, "zcount", "z", "3", "4"), 3)
	expectInt(t, Exec(s, "zcount", "z", "(3", "+inf"), 2)
	expectValues(t, Exec(s, "zrangebyscore", "z", "-inf", "(5"), "b", "c", "d")
	expectValues(t, Exec(s, "zrangebyscore", "z", "3", "5", "LIMIT", "1", "2"), "c", "d")
	expectValues(t, Exec(s, "zrevrangebyscore", "z", "+inf", "4", "WITHSCORES"), "a", "5", "d", "4")
	expectError(t, Exec(s, "zrangebyscore", "z", "x", "5"), store.RetCNotFloat)

	expectInt(t, Exec(s, "zrem", "z", "c", "nope"), 1)
	expectInt(t, Exec(s, "zremrangebyscore", "z", "4", "5"), 2)
	expectValues(t, Exec(s, "zrange", "z", "0", "-1"), "b")
	expectInt(t, Exec(s, "zremrangebyrank", "z", "0", "-1"), 1)
	expectInt(t, Exec(s, "exists", "z"), 0)
}

func testWrongType(t *testing.T, s store.IStore) {
	Exec(s, "set", "str", "v")
	Exec(s, "rpush", "list", "v")
	expectError(t, Exec(s, "hget", "str", "f"), store.RetCWrongType)
	expectError(t, Exec(s, "lpush", "str", "v"), store.RetCWrongType)
	expectError(t, Exec(s, "sadd", "str", "v"), store.RetCWrongType)
	expectError(t, Exec(s, "zadd", "str", "1", "v"), store.RetCWrongType)
	expectError(t, Exec(s, "get", "list"), store.RetCWrongType)
	expectError(t, Exec(s, "incr", "list"), store.RetCWrongType)

	r := Exec(s, "get", "list")
	if r.Err == nil || r.Err.Error() != "WRONGTYPE Operation against a key holding the wrong kind of value" {
		t.Errorf("Unexpected error text %v", r.Err)
	}
	// a plain set overwrites any type
	expectStatus(t, Exec(s, "set", "list", "v"), "OK")
	expectStatus(t, Exec(s, "type", "list"), "string")
}

func testErrors(t *testing.T, s store.IStore) {
	expectError(t, Exec(s, "nosuchcommand", "k"), store.RetCUnsupportedOperation)
	expectError(t, Exec(s, "get"), store.RetCSyntax)
	expectError(t, Exec(s, "get", "a", "b"), store.RetCSyntax)
	expectError(t, Exec(s, "expire", "k", "soon"), store.RetCNotInteger)

	r := Exec(s, "get")
	if r.Err.Error() != "ERR wrong number of arguments for 'get' command" {
		t.Errorf("Unexpected error text %q", r.Err.Error())
	}
	if s.Size() != 0 {
		t.Errorf("Failed commands must not create keys, got %d keys", s.Size())
	}
}

func testFlush(t *testing.T, s store.IStore) {
	for i := 0; i < 100; i++ {
		Exec(s, "set", fmt.Sprintf("key-%d", i), "v", "EX", "100")
	}
	if s.Size() != 100 {
		t.Errorf("Expected 100 keys, got %d", s.Size())
	}
	s.Flush()
	if s.Size() != 0 {
		t.Errorf("Expected no keys after flush, got %d", s.Size())
	}
	expectNil(t, Exec(s, "get", "key-1"))
	expectInt(t, Exec(s, "ttl", "key-1"), -2)
}

func testConcurrent(t *testing.T, s store.IStore) {
	const workers, increments = 8, 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				Exec(s, "incr", "counter")
				Exec(s, "sadd", "members", fmt.Sprintf("%d-%d", w, i))
			}
		}()
	}
	wg.Wait()

	expectBulk(t, Exec(s, "get", "counter"), fmt.Sprint(workers*increments))
	expectInt(t, Exec(s, "scard", "members"), workers*increments)
}
