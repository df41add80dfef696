package lstore

import (
	"math"
	"sort"

	"github.com/ValentinKolb/shardkv/lib/store"
)

// hashValue maps fields to values
type hashValue map[string][]byte

// hashAt returns the hash stored at key, creating it if create is set.
// ok is false if the key holds another type.
func (s *storeImpl) hashAt(key string, create bool) (h hashValue, ok bool) {
	switch v := s.lookup(key).(type) {
	case nil:
		if !create {
			return nil, true
		}
		h = hashValue{}
		s.put(key, h)
		return h, true
	case hashValue:
		return v, true
	default:
		return nil, false
	}
}

// sortedFields returns the fields of h in lexicographic order
func (h hashValue) sortedFields() []string {
	fields := make([]string, 0, len(h))
	for f := range h {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// --------------------------------------------------------------------------
// Hash Commands
// --------------------------------------------------------------------------

func (s *storeImpl) hset(args [][]byte) store.Reply {
	if len(args)%2 != 1 {
		return store.WrongArgs("hset")
	}
	h, ok := s.hashAt(string(args[0]), true)
	if !ok {
		return store.WrongType()
	}
	var added int64
	for i := 1; i < len(args); i += 2 {
		field := string(args[i])
		if _, exists := h[field]; !exists {
			added++
		}
		h[field] = clone(args[i+1])
	}
	return store.Int(added)
}

func (s *storeImpl) hmset(args [][]byte) store.Reply {
	if len(args)%2 != 1 {
		return store.WrongArgs("hmset")
	}
	if r := s.hset(args); r.Kind == store.KindError {
		return r
	}
	return store.OK()
}

func (s *storeImpl) hsetnx(args [][]byte) store.Reply {
	h, ok := s.hashAt(string(args[0]), true)
	if !ok {
		return store.WrongType()
	}
	field := string(args[1])
	if _, exists := h[field]; exists {
		return store.Int(0)
	}
	h[field] = clone(args[2])
	return store.Int(1)
}

func (s *storeImpl) hget(args [][]byte) store.Reply {
	h, ok := s.hashAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	val, exists := h[string(args[1])]
	if !exists {
		return store.Nil()
	}
	return store.Bulk(clone(val))
}

func (s *storeImpl) hmget(args [][]byte) store.Reply {
	h, ok := s.hashAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	items := make([]store.Item, len(args)-1)
	for i, field := range args[1:] {
		if val, exists := h[string(field)]; exists {
			items[i] = store.Item{Value: clone(val)}
		} else {
			items[i] = store.Item{Nil: true}
		}
	}
	return store.Array(items)
}

func (s *storeImpl) hdel(args [][]byte) store.Reply {
	key := string(args[0])
	h, ok := s.hashAt(key, false)
	if !ok {
		return store.WrongType()
	}
	var removed int64
	for _, field := range args[1:] {
		if _, exists := h[string(field)]; exists {
			delete(h, string(field))
			removed++
		}
	}
	s.dropIfEmpty(key)
	return store.Int(removed)
}

func (s *storeImpl) hexists(args [][]byte) store.Reply {
	h, ok := s.hashAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	_, exists := h[string(args[1])]
	return store.Bool(exists)
}

func (s *storeImpl) hlen(args [][]byte) store.Reply {
	h, ok := s.hashAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	return store.Int(int64(len(h)))
}

func (s *storeImpl) hkeys(args [][]byte) store.Reply {
	h, ok := s.hashAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	fields := h.sortedFields()
	out := make([][]byte, len(fields))
	for i, f := range fields {
		out[i] = []byte(f)
	}
	return store.Values(out)
}

func (s *storeImpl) hvals(args [][]byte) store.Reply {
	h, ok := s.hashAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	fields := h.sortedFields()
	out := make([][]byte, len(fields))
	for i, f := range fields {
		out[i] = clone(h[f])
	}
	return store.Values(out)
}

// hgetall returns field, value pairs ordered by field
func (s *storeImpl) hgetall(args [][]byte) store.Reply {
	h, ok := s.hashAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	out := make([][]byte, 0, 2*len(h))
	for _, f := range h.sortedFields() {
		out = append(out, []byte(f), clone(h[f]))
	}
	return store.Values(out)
}

func (s *storeImpl) hincrby(args [][]byte) store.Reply {
	delta, ok := parseInt(args[2])
	if !ok {
		return store.NotInteger()
	}
	h, ok := s.hashAt(string(args[0]), true)
	if !ok {
		return store.WrongType()
	}
	field := string(args[1])
	var current int64
	if val, exists := h[field]; exists {
		if current, ok = parseInt(val); !ok {
			return store.Fail(store.RetCNotInteger, "hash value is not an integer")
		}
	}
	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		s.dropIfEmpty(string(args[0]))
		return store.Fail(store.RetCNotInteger, "increment or decrement would overflow")
	}
	current += delta
	h[field] = []byte(formatInt(current))
	return store.Int(current)
}

func (s *storeImpl) hincrbyfloat(args [][]byte) store.Reply {
	delta, ok := parseFloat(args[2])
	if !ok {
		return store.NotFloat()
	}
	h, ok := s.hashAt(string(args[0]), true)
	if !ok {
		return store.WrongType()
	}
	field := string(args[1])
	var current float64
	if val, exists := h[field]; exists {
		if current, ok = parseFloat(val); !ok {
			return store.Fail(store.RetCNotFloat, "hash value is not a float")
		}
	}
	current += delta
	if math.IsInf(current, 0) || math.IsNaN(current) {
		s.dropIfEmpty(string(args[0]))
		return store.Fail(store.RetCNotFloat, "increment would produce NaN or Infinity")
	}
	out := formatFloat(current)
	h[field] = out
	return store.Bulk(clone(out))
}
