package shard

import (
	"sort"
	"strings"
)

// Variant classifies how a command is executed across the shards.
type Variant uint8

const (
	// Unknown is returned by Lookup for names that are not in the command table
	Unknown Variant = iota
	// Direct commands are sent to the single node owning their key (first argument).
	Direct
	// BroadcastSplit commands are sent to every node concurrently, either with the same
	// arguments or with one argument list per node.
	BroadcastSplit
	// Forbidden commands cannot be executed against a sharded deployment.
	Forbidden
)

// String returns the string representation of a Variant.
func (v Variant) String() string {
	switch v {
	case Direct:
		return "direct"
	case BroadcastSplit:
		return "broadcast"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Command Table
// --------------------------------------------------------------------------

// directCommands operate on a single key, which is always the first argument.
var directCommands = []string{
	"append", "bitcount", "blpop", "brpop", "debug object", "decr",
	"decrby", "del", "dump", "exists", "expire", "expireat",
	"get", "getbit", "getrange", "getset", "hdel", "hexists",
	"hget", "hgetall", "hincrby", "hincrbyfloat", "hkeys", "hlen",
	"hmget", "hmset", "hset", "hsetnx", "hvals", "incr",
	"incrby", "incrbyfloat", "lindex", "linsert", "llen", "lpop",
	"lpush", "lpushx", "lrange", "lrem", "lset", "ltrim",
	"mget", "move", "persist", "pexpire", "pexpireat", "psetex",
	"pttl", "rename", "renamenx", "restore", "rpop", "rpush",
	"rpushx", "sadd", "scard", "sdiff", "set", "setbit",
	"setex", "setnx", "setrange", "sinter", "sismember", "smembers",
	"sort", "spop", "srandmember", "srem", "strlen", "sunion",
	"ttl", "type", "watch", "zadd", "zcard", "zcount",
	"zincrby", "zrange", "zrangebyscore", "zrank", "zrem", "zremrangebyrank",
	"zremrangebyscore", "zrevrange", "zrevrangebyscore", "zrevrank", "zscore",
}

// broadcastCommands change connection state and must reach every node.
var broadcastCommands = []string{
	"auth", "select",
}

// forbiddenCommands span several keys on possibly different nodes, act on the whole
// server or depend on connection state that cannot be split across nodes.
var forbiddenCommands = []string{
	"bgrewriteaof", "bgsave", "bitop", "brpoplpush", "client kill", "client list",
	"client getname", "client setname", "config get", "config set", "config resetstat", "dbsize",
	"debug segfault", "discard", "echo", "eval", "evalsha", "exec",
	"flushall", "flushdb", "info", "keys", "lastsave", "migrate",
	"monitor", "mset", "msetnx", "multi", "object", "ping",
	"psubscribe", "publish", "punsubscribe", "quit", "randomkey", "rpoplpush",
	"save", "script exists", "script flush", "script kill", "script load", "sdiffstore",
	"shutdown", "sinterstore", "slaveof", "slowlog", "smove", "subscribe",
	"sunionstore", "sync", "time", "unsubscribe", "unwatch", "zinterstore",
	"zunionstore",
}

// commandTable maps every known command name to its variant. It is built once at
// package initialization and never modified afterwards.
var commandTable = func() map[string]Variant {
	table := make(map[string]Variant, len(directCommands)+len(broadcastCommands)+len(forbiddenCommands))
	for _, name := range directCommands {
		table[name] = Direct
	}
	for _, name := range broadcastCommands {
		table[name] = BroadcastSplit
	}
	for _, name := range forbiddenCommands {
		table[name] = Forbidden
	}
	return table
}()

// Lookup returns the variant of a command. The lookup is case-insensitive and
// ignores surrounding whitespace; unknown names return Unknown.
func Lookup(command string) Variant {
	return commandTable[normalize(command)]
}

// normalize returns the canonical (lower case) spelling of a command name
func normalize(command string) string {
	return strings.ToLower(strings.TrimSpace(command))
}

// DirectCommands returns the sorted names of all direct commands
func DirectCommands() []string { return sortedCopy(directCommands) }

// BroadcastCommands returns the sorted names of all broadcast commands
func BroadcastCommands() []string { return sortedCopy(broadcastCommands) }

// ForbiddenCommands returns the sorted names of all forbidden commands
func ForbiddenCommands() []string { return sortedCopy(forbiddenCommands) }

func sortedCopy(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
