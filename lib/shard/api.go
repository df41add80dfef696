package shard

import "context"

// The methods below are thin wrappers around Invoke and Broadcast, one per supported
// command. The first argument of every direct command is the routing key.

func (r *Router) Append(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "append", key, args...)
}

func (r *Router) BitCount(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "bitcount", key, args...)
}

func (r *Router) BLPop(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "blpop", key, args...)
}

func (r *Router) BRPop(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "brpop", key, args...)
}

func (r *Router) DebugObject(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "debug object", key, args...)
}

func (r *Router) Decr(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "decr", key, args...)
}

func (r *Router) DecrBy(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "decrby", key, args...)
}

func (r *Router) Del(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "del", key, args...)
}

func (r *Router) Dump(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "dump", key, args...)
}

func (r *Router) Exists(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "exists", key, args...)
}

func (r *Router) Expire(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "expire", key, args...)
}

func (r *Router) ExpireAt(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "expireat", key, args...)
}

func (r *Router) Get(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "get", key, args...)
}

func (r *Router) GetBit(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "getbit", key, args...)
}

func (r *Router) GetRange(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "getrange", key, args...)
}

func (r *Router) GetSet(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "getset", key, args...)
}

func (r *Router) HDel(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hdel", key, args...)
}

func (r *Router) HExists(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hexists", key, args...)
}

func (r *Router) HGet(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hget", key, args...)
}

func (r *Router) HGetAll(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hgetall", key, args...)
}

func (r *Router) HIncrBy(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hincrby", key, args...)
}

func (r *Router) HIncrByFloat(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hincrbyfloat", key, args...)
}

func (r *Router) HKeys(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hkeys", key, args...)
}

func (r *Router) HLen(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hlen", key, args...)
}

func (r *Router) HMGet(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hmget", key, args...)
}

func (r *Router) HMSet(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hmset", key, args...)
}

func (r *Router) HSet(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hset", key, args...)
}

func (r *Router) HSetNX(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hsetnx", key, args...)
}

func (r *Router) HVals(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "hvals", key, args...)
}

func (r *Router) Incr(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "incr", key, args...)
}

func (r *Router) IncrBy(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "incrby", key, args...)
}

func (r *Router) IncrByFloat(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "incrbyfloat", key, args...)
}

func (r *Router) LIndex(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "lindex", key, args...)
}

func (r *Router) LInsert(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "linsert", key, args...)
}

func (r *Router) LLen(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "llen", key, args...)
}

func (r *Router) LPop(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "lpop", key, args...)
}

func (r *Router) LPush(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "lpush", key, args...)
}

func (r *Router) LPushX(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "lpushx", key, args...)
}

func (r *Router) LRange(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "lrange", key, args...)
}

func (r *Router) LRem(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "lrem", key, args...)
}

func (r *Router) LSet(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "lset", key, args...)
}

func (r *Router) LTrim(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "ltrim", key, args...)
}

func (r *Router) MGet(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "mget", key, args...)
}

func (r *Router) Move(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "move", key, args...)
}

func (r *Router) Persist(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "persist", key, args...)
}

func (r *Router) PExpire(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "pexpire", key, args...)
}

func (r *Router) PExpireAt(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "pexpireat", key, args...)
}

func (r *Router) PSetEX(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "psetex", key, args...)
}

func (r *Router) PTTL(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "pttl", key, args...)
}

func (r *Router) Rename(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "rename", key, args...)
}

func (r *Router) RenameNX(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "renamenx", key, args...)
}

func (r *Router) Restore(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "restore", key, args...)
}

func (r *Router) RPop(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "rpop", key, args...)
}

func (r *Router) RPush(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "rpush", key, args...)
}

func (r *Router) RPushX(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "rpushx", key, args...)
}

func (r *Router) SAdd(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "sadd", key, args...)
}

func (r *Router) SCard(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "scard", key, args...)
}

func (r *Router) SDiff(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "sdiff", key, args...)
}

func (r *Router) Set(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "set", key, args...)
}

func (r *Router) SetBit(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "setbit", key, args...)
}

func (r *Router) SetEX(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "setex", key, args...)
}

func (r *Router) SetNX(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "setnx", key, args...)
}

func (r *Router) SetRange(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "setrange", key, args...)
}

func (r *Router) SInter(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "sinter", key, args...)
}

func (r *Router) SIsMember(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "sismember", key, args...)
}

func (r *Router) SMembers(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "smembers", key, args...)
}

func (r *Router) Sort(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "sort", key, args...)
}

func (r *Router) SPop(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "spop", key, args...)
}

func (r *Router) SRandMember(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "srandmember", key, args...)
}

func (r *Router) SRem(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "srem", key, args...)
}

func (r *Router) StrLen(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "strlen", key, args...)
}

func (r *Router) SUnion(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "sunion", key, args...)
}

func (r *Router) TTL(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "ttl", key, args...)
}

func (r *Router) Type(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "type", key, args...)
}

func (r *Router) Watch(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "watch", key, args...)
}

func (r *Router) ZAdd(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zadd", key, args...)
}

func (r *Router) ZCard(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zcard", key, args...)
}

func (r *Router) ZCount(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zcount", key, args...)
}

func (r *Router) ZIncrBy(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zincrby", key, args...)
}

func (r *Router) ZRange(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zrange", key, args...)
}

func (r *Router) ZRangeByScore(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zrangebyscore", key, args...)
}

func (r *Router) ZRank(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zrank", key, args...)
}

func (r *Router) ZRem(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zrem", key, args...)
}

func (r *Router) ZRemRangeByRank(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zremrangebyrank", key, args...)
}

func (r *Router) ZRemRangeByScore(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zremrangebyscore", key, args...)
}

func (r *Router) ZRevRange(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zrevrange", key, args...)
}

func (r *Router) ZRevRangeByScore(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zrevrangebyscore", key, args...)
}

func (r *Router) ZRevRank(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zrevrank", key, args...)
}

func (r *Router) ZScore(ctx context.Context, key string, args ...any) (any, error) {
	return r.Invoke(ctx, "zscore", key, args...)
}

// --------------------------------------------------------------------------
// Broadcast commands
// --------------------------------------------------------------------------

// Auth authenticates every node connection. Pass a PerNode value to use a different
// password per node.
func (r *Router) Auth(ctx context.Context, args ...any) (map[string]Result, error) {
	return r.Broadcast(ctx, "auth", args...)
}

// Select switches every node connection to another namespace.
func (r *Router) Select(ctx context.Context, args ...any) (map[string]Result, error) {
	return r.Broadcast(ctx, "select", args...)
}
