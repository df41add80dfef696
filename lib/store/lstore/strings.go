package lstore

import (
	"math"
	"math/bits"

	"github.com/ValentinKolb/shardkv/lib/store"
)

// maxStringSize bounds values grown by setrange and setbit (512 MB, as in Redis)
const maxStringSize = 512 << 20

// stringAt returns the string value of a key. ok is false if the key holds another type.
func (s *storeImpl) stringAt(key string) (val []byte, found bool, ok bool) {
	switch v := s.lookup(key).(type) {
	case nil:
		return nil, false, true
	case []byte:
		return v, true, true
	default:
		return nil, false, false
	}
}

// --------------------------------------------------------------------------
// String Commands
// --------------------------------------------------------------------------

func (s *storeImpl) get(args [][]byte) store.Reply {
	val, found, ok := s.stringAt(string(args[0]))
	if !ok {
		return store.WrongType()
	}
	if !found {
		return store.Nil()
	}
	return store.Bulk(clone(val))
}

// set supports the options EX seconds, PX milliseconds, NX, XX and KEEPTTL
func (s *storeImpl) set(args [][]byte) store.Reply {
	key, value := string(args[0]), args[1]

	var (
		nx, xx, keepTTL bool
		ttlMs           int64 = -1
	)
	for i := 2; i < len(args); i++ {
		switch option(args[i]) {
		case "nx":
			nx = true
		case "xx":
			xx = true
		case "keepttl":
			keepTTL = true
		case "ex", "px":
			if i+1 >= len(args) || ttlMs >= 0 {
				return store.SyntaxError()
			}
			n, ok := parseInt(args[i+1])
			if !ok {
				return store.NotInteger()
			}
			if n <= 0 {
				return store.Fail(store.RetCSyntax, "invalid expire time in 'set' command")
			}
			if option(args[i]) == "ex" {
				n *= 1000
			}
			ttlMs = n
			i++
		default:
			return store.SyntaxError()
		}
	}
	if (nx && xx) || (keepTTL && ttlMs >= 0) {
		return store.SyntaxError()
	}

	exists := s.lookup(key) != nil
	if (nx && exists) || (xx && !exists) {
		return store.Nil()
	}

	if keepTTL {
		s.put(key, clone(value))
	} else {
		s.replace(key, clone(value))
	}
	if ttlMs >= 0 {
		s.setDeadline(key, s.nowMs()+ttlMs)
	}
	return store.OK()
}

func (s *storeImpl) setnx(args [][]byte) store.Reply {
	key := string(args[0])
	if s.lookup(key) != nil {
		return store.Int(0)
	}
	s.replace(key, clone(args[1]))
	return store.Int(1)
}

func (s *storeImpl) setex(args [][]byte) store.Reply {
	return s.setWithTTL(args, 1000, "setex")
}

func (s *storeImpl) psetex(args [][]byte) store.Reply {
	return s.setWithTTL(args, 1, "psetex")
}

// setWithTTL implements setex/psetex (key, ttl, value)
func (s *storeImpl) setWithTTL(args [][]byte, unitMs int64, name string) store.Reply {
	key := string(args[0])
	n, ok := parseInt(args[1])
	if !ok {
		return store.NotInteger()
	}
	if n <= 0 {
		return store.Fail(store.RetCSyntax, "invalid expire time in '"+name+"' command")
	}
	s.replace(key, clone(args[2]))
	s.setDeadline(key, s.nowMs()+n*unitMs)
	return store.OK()
}

func (s *storeImpl) getset(args [][]byte) store.Reply {
	key := string(args[0])
	old, found, ok := s.stringAt(key)
	if !ok {
		return store.WrongType()
	}
	s.replace(key, clone(args[1]))
	if !found {
		return store.Nil()
	}
	return store.Bulk(old)
}

func (s *storeImpl) mget(args [][]byte) store.Reply {
	items := make([]store.Item, len(args))
	for i, key := range keysOf(args) {
		val, found, ok := s.stringAt(key)
		if !found || !ok {
			items[i] = store.Item{Nil: true}
			continue
		}
		items[i] = store.Item{Value: clone(val)}
	}
	return store.Array(items)
}

func (s *storeImpl) append(args [][]byte) store.Reply {
	key := string(args[0])
	val, _, ok := s.stringAt(key)
	if !ok {
		return store.WrongType()
	}
	next := make([]byte, 0, len(val)+len(args[1]))
	next = append(append(next, val...), args[1]...)
	s.put(key, next)
	return store.Int(int64(len(next)))
}

func (s *storeImpl) strlen(args [][]byte) store.Reply {
	val, _, ok := s.stringAt(string(args[0]))
	if !ok {
		return store.WrongType()
	}
	return store.Int(int64(len(val)))
}

func (s *storeImpl) incr(args [][]byte) store.Reply {
	return s.incrBy(string(args[0]), 1)
}

func (s *storeImpl) decr(args [][]byte) store.Reply {
	return s.incrBy(string(args[0]), -1)
}

func (s *storeImpl) incrby(args [][]byte) store.Reply {
	n, ok := parseInt(args[1])
	if !ok {
		return store.NotInteger()
	}
	return s.incrBy(string(args[0]), n)
}

func (s *storeImpl) decrby(args [][]byte) store.Reply {
	n, ok := parseInt(args[1])
	if !ok || n == math.MinInt64 {
		return store.NotInteger()
	}
	return s.incrBy(string(args[0]), -n)
}

// incrBy adds delta to the integer stored at key, a missing key counts as 0
func (s *storeImpl) incrBy(key string, delta int64) store.Reply {
	val, found, ok := s.stringAt(key)
	if !ok {
		return store.WrongType()
	}
	var current int64
	if found {
		if current, ok = parseInt(val); !ok {
			return store.NotInteger()
		}
	}
	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		return store.Fail(store.RetCNotInteger, "increment or decrement would overflow")
	}
	current += delta
	s.put(key, []byte(formatInt(current)))
	return store.Int(current)
}

func (s *storeImpl) incrbyfloat(args [][]byte) store.Reply {
	key := string(args[0])
	delta, ok := parseFloat(args[1])
	if !ok {
		return store.NotFloat()
	}
	val, found, ok := s.stringAt(key)
	if !ok {
		return store.WrongType()
	}
	var current float64
	if found {
		if current, ok = parseFloat(val); !ok {
			return store.NotFloat()
		}
	}
	current += delta
	if math.IsInf(current, 0) || math.IsNaN(current) {
		return store.Fail(store.RetCNotFloat, "increment would produce NaN or Infinity")
	}
	out := formatFloat(current)
	s.put(key, out)
	return store.Bulk(clone(out))
}

func (s *storeImpl) getrange(args [][]byte) store.Reply {
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return store.NotInteger()
	}
	val, _, ok := s.stringAt(string(args[0]))
	if !ok {
		return store.WrongType()
	}
	from, to, ok := normRange(start, stop, len(val))
	if !ok {
		return store.Bulk([]byte{})
	}
	return store.Bulk(clone(val[from : to+1]))
}

func (s *storeImpl) setrange(args [][]byte) store.Reply {
	key := string(args[0])
	offset, ok := parseInt(args[1])
	if !ok {
		return store.NotInteger()
	}
	if offset < 0 {
		return store.Fail(store.RetCInvalidOperation, "offset is out of range")
	}
	val, found, ok := s.stringAt(key)
	if !ok {
		return store.WrongType()
	}
	patch := args[2]
	if len(patch) == 0 {
		return store.Int(int64(len(val)))
	}
	if offset > maxStringSize-int64(len(patch)) {
		return store.Fail(store.RetCInvalidOperation, "string exceeds maximum allowed size")
	}
	size := max(len(val), int(offset)+len(patch))
	next := make([]byte, size)
	copy(next, val)
	copy(next[offset:], patch)
	if found {
		s.put(key, next)
	} else {
		s.replace(key, next)
	}
	return store.Int(int64(size))
}

func (s *storeImpl) getbit(args [][]byte) store.Reply {
	offset, ok := parseInt(args[1])
	if !ok || offset < 0 {
		return store.Fail(store.RetCNotInteger, "bit offset is not an integer or out of range")
	}
	val, _, ok := s.stringAt(string(args[0]))
	if !ok {
		return store.WrongType()
	}
	byteIdx := offset / 8
	if byteIdx >= int64(len(val)) {
		return store.Int(0)
	}
	bit := (val[byteIdx] >> (7 - uint(offset%8))) & 1
	return store.Int(int64(bit))
}

func (s *storeImpl) setbit(args [][]byte) store.Reply {
	key := string(args[0])
	offset, ok := parseInt(args[1])
	if !ok || offset < 0 || offset/8 >= maxStringSize {
		return store.Fail(store.RetCNotInteger, "bit offset is not an integer or out of range")
	}
	bitArg := string(args[2])
	if bitArg != "0" && bitArg != "1" {
		return store.Fail(store.RetCNotInteger, "bit is not an integer or out of range")
	}
	val, found, ok := s.stringAt(key)
	if !ok {
		return store.WrongType()
	}

	byteIdx := int(offset / 8)
	next := make([]byte, max(len(val), byteIdx+1))
	copy(next, val)
	mask := byte(1) << (7 - uint(offset%8))
	old := int64(0)
	if next[byteIdx]&mask != 0 {
		old = 1
	}
	if bitArg == "1" {
		next[byteIdx] |= mask
	} else {
		next[byteIdx] &^= mask
	}
	if found {
		s.put(key, next)
	} else {
		s.replace(key, next)
	}
	return store.Int(old)
}

// bitcount counts set bits, optionally within the byte range [start, end]
func (s *storeImpl) bitcount(args [][]byte) store.Reply {
	if len(args) == 2 {
		return store.SyntaxError()
	}
	val, _, ok := s.stringAt(string(args[0]))
	if !ok {
		return store.WrongType()
	}
	if len(args) == 3 {
		start, ok1 := parseInt(args[1])
		stop, ok2 := parseInt(args[2])
		if !ok1 || !ok2 {
			return store.NotInteger()
		}
		from, to, ok := normRange(start, stop, len(val))
		if !ok {
			return store.Int(0)
		}
		val = val[from : to+1]
	}
	var n int
	for _, b := range val {
		n += bits.OnesCount8(b)
	}
	return store.Int(int64(n))
}
