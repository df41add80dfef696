package lstore

import (
	"container/heap"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/shardkv/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// maxCollectPerCommand bounds the number of expired keys removed before each command
const maxCollectPerCommand = 20

// Option configures a local store
type Option func(*storeImpl)

// WithClock replaces the clock used for expiry
func WithClock(now func() time.Time) Option {
	return func(s *storeImpl) {
		s.now = now
	}
}

type storeImpl struct {
	mu      sync.Mutex
	data    map[string]any
	expires *MapHeap // key -> deadline in unix milliseconds
	now     func() time.Time
}

// NewLocalStore creates a new in-memory keyspace.
// All commands of one keyspace are serialized by a single lock, so commands that touch
// several keys (rename, sinter, mget, ...) observe and change a consistent state.
func NewLocalStore(opts ...Option) store.IStore {
	s := &storeImpl{
		data:    make(map[string]any),
		expires: NewMapHeap(),
		now:     time.Now,
	}
	heap.Init(s.expires)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Factory returns a store.Factory creating local stores with the given options
func Factory(opts ...Option) store.Factory {
	return func() store.IStore {
		return NewLocalStore(opts...)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Exec(cmd string, args [][]byte) store.Reply {
	name := strings.ToLower(strings.TrimSpace(cmd))
	spec, ok := commands[name]
	if !ok {
		return store.Fail(store.RetCUnsupportedOperation, "unknown command '"+cmd+"'")
	}
	if len(args) < spec.minArgs || (spec.maxArgs >= 0 && len(args) > spec.maxArgs) {
		return store.WrongArgs(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collect(maxCollectPerCommand)
	return spec.fn(s, args)
}

func (s *storeImpl) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *storeImpl) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]any)
	s.expires = NewMapHeap()
	heap.Init(s.expires)
}

// --------------------------------------------------------------------------
// Command Table
// --------------------------------------------------------------------------

// command describes one supported command. maxArgs < 0 means no upper bound.
type command struct {
	minArgs int
	maxArgs int
	fn      func(s *storeImpl, args [][]byte) store.Reply
}

var commands = map[string]command{
	// keys
	"del":       {1, -1, (*storeImpl).del},
	"exists":    {1, -1, (*storeImpl).exists},
	"expire":    {2, 2, (*storeImpl).expire},
	"pexpire":   {2, 2, (*storeImpl).pexpire},
	"expireat":  {2, 2, (*storeImpl).expireat},
	"pexpireat": {2, 2, (*storeImpl).pexpireat},
	"persist":   {1, 1, (*storeImpl).persist},
	"ttl":       {1, 1, (*storeImpl).ttl},
	"pttl":      {1, 1, (*storeImpl).pttl},
	"type":      {1, 1, (*storeImpl).typeOf},
	"rename":    {2, 2, (*storeImpl).rename},
	"renamenx":  {2, 2, (*storeImpl).renamenx},

	// strings
	"get":         {1, 1, (*storeImpl).get},
	"set":         {2, -1, (*storeImpl).set},
	"setnx":       {2, 2, (*storeImpl).setnx},
	"setex":       {3, 3, (*storeImpl).setex},
	"psetex":      {3, 3, (*storeImpl).psetex},
	"getset":      {2, 2, (*storeImpl).getset},
	"mget":        {1, -1, (*storeImpl).mget},
	"append":      {2, 2, (*storeImpl).append},
	"strlen":      {1, 1, (*storeImpl).strlen},
	"incr":        {1, 1, (*storeImpl).incr},
	"decr":        {1, 1, (*storeImpl).decr},
	"incrby":      {2, 2, (*storeImpl).incrby},
	"decrby":      {2, 2, (*storeImpl).decrby},
	"incrbyfloat": {2, 2, (*storeImpl).incrbyfloat},
	"getrange":    {3, 3, (*storeImpl).getrange},
	"setrange":    {3, 3, (*storeImpl).setrange},
	"getbit":      {2, 2, (*storeImpl).getbit},
	"setbit":      {3, 3, (*storeImpl).setbit},
	"bitcount":    {1, 3, (*storeImpl).bitcount},

	// hashes
	"hset":         {3, -1, (*storeImpl).hset},
	"hmset":        {3, -1, (*storeImpl).hmset},
	"hsetnx":       {3, 3, (*storeImpl).hsetnx},
	"hget":         {2, 2, (*storeImpl).hget},
	"hmget":        {2, -1, (*storeImpl).hmget},
	"hdel":         {2, -1, (*storeImpl).hdel},
	"hexists":      {2, 2, (*storeImpl).hexists},
	"hlen":         {1, 1, (*storeImpl).hlen},
	"hkeys":        {1, 1, (*storeImpl).hkeys},
	"hvals":        {1, 1, (*storeImpl).hvals},
	"hgetall":      {1, 1, (*storeImpl).hgetall},
	"hincrby":      {3, 3, (*storeImpl).hincrby},
	"hincrbyfloat": {3, 3, (*storeImpl).hincrbyfloat},

	// lists
	"lpush":   {2, -1, (*storeImpl).lpush},
	"rpush":   {2, -1, (*storeImpl).rpush},
	"lpushx":  {2, -1, (*storeImpl).lpushx},
	"rpushx":  {2, -1, (*storeImpl).rpushx},
	"lpop":    {1, 2, (*storeImpl).lpop},
	"rpop":    {1, 2, (*storeImpl).rpop},
	"blpop":   {2, -1, (*storeImpl).blpop},
	"brpop":   {2, -1, (*storeImpl).brpop},
	"llen":    {1, 1, (*storeImpl).llen},
	"lindex":  {2, 2, (*storeImpl).lindex},
	"lset":    {3, 3, (*storeImpl).lset},
	"lrange":  {3, 3, (*storeImpl).lrange},
	"ltrim":   {3, 3, (*storeImpl).ltrim},
	"lrem":    {3, 3, (*storeImpl).lrem},
	"linsert": {4, 4, (*storeImpl).linsert},

	// sets
	"sadd":        {2, -1, (*storeImpl).sadd},
	"srem":        {2, -1, (*storeImpl).srem},
	"scard":       {1, 1, (*storeImpl).scard},
	"sismember":   {2, 2, (*storeImpl).sismember},
	"smembers":    {1, 1, (*storeImpl).smembers},
	"spop":        {1, 2, (*storeImpl).spop},
	"srandmember": {1, 2, (*storeImpl).srandmember},
	"sdiff":       {1, -1, (*storeImpl).sdiff},
	"sinter":      {1, -1, (*storeImpl).sinter},
	"sunion":      {1, -1, (*storeImpl).sunion},

	// sorted sets
	"zadd":             {3, -1, (*storeImpl).zadd},
	"zincrby":          {3, 3, (*storeImpl).zincrby},
	"zscore":           {2, 2, (*storeImpl).zscore},
	"zcard":            {1, 1, (*storeImpl).zcard},
	"zcount":           {3, 3, (*storeImpl).zcount},
	"zrank":            {2, 2, (*storeImpl).zrank},
	"zrevrank":         {2, 2, (*storeImpl).zrevrank},
	"zrange":           {3, 4, (*storeImpl).zrange},
	"zrevrange":        {3, 4, (*storeImpl).zrevrange},
	"zrangebyscore":    {3, -1, (*storeImpl).zrangebyscore},
	"zrevrangebyscore": {3, -1, (*storeImpl).zrevrangebyscore},
	"zrem":             {2, -1, (*storeImpl).zrem},
	"zremrangebyrank":  {3, 3, (*storeImpl).zremrangebyrank},
	"zremrangebyscore": {3, 3, (*storeImpl).zremrangebyscore},
}

// Commands returns the names of all commands the local store executes
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	return names
}

// --------------------------------------------------------------------------
// Keyspace Helpers (callers hold s.mu)
// --------------------------------------------------------------------------

// nowMs returns the current time in unix milliseconds
func (s *storeImpl) nowMs() int64 {
	return s.now().UnixMilli()
}

// lookup returns the value of a key, nil if the key is missing or expired
func (s *storeImpl) lookup(key string) any {
	v, ok := s.data[key]
	if !ok {
		return nil
	}
	if it, ok := s.expires.GetByKey(key); ok && it.Priority <= s.nowMs() {
		s.remove(key)
		return nil
	}
	return v
}

// put stores a value and keeps an existing deadline
func (s *storeImpl) put(key string, v any) {
	s.data[key] = v
}

// replace stores a value and clears any deadline
func (s *storeImpl) replace(key string, v any) {
	s.data[key] = v
	s.expires.RemoveByKey(key)
}

// remove deletes a key and its deadline. It reports whether the key existed.
func (s *storeImpl) remove(key string) bool {
	_, ok := s.data[key]
	delete(s.data, key)
	s.expires.RemoveByKey(key)
	return ok
}

// setDeadline sets the deadline of an existing key. A deadline in the past deletes the key.
func (s *storeImpl) setDeadline(key string, deadlineMs int64) {
	if deadlineMs <= s.nowMs() {
		s.remove(key)
		return
	}
	s.expires.AddItem(key, deadlineMs)
}

// collect removes up to limit expired keys, earliest deadline first
func (s *storeImpl) collect(limit int) {
	now := s.nowMs()
	removed := 0
	for removed < limit {
		it, ok := s.expires.Peek()
		if !ok || it.Priority > now {
			break
		}
		heap.Pop(s.expires)
		delete(s.data, it.Key)
		removed++
	}
	if removed > 0 {
		Logger.Debugf("collected %d expired keys", removed)
	}
}

// dropIfEmpty removes container keys that became empty
func (s *storeImpl) dropIfEmpty(key string) {
	switch v := s.data[key].(type) {
	case hashValue:
		if len(v) == 0 {
			s.remove(key)
		}
	case *listValue:
		if len(v.items) == 0 {
			s.remove(key)
		}
	case setValue:
		if len(v) == 0 {
			s.remove(key)
		}
	case *zsetValue:
		if v.len() == 0 {
			s.remove(key)
		}
	}
}
