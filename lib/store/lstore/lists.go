package lstore

import (
	"bytes"

	"github.com/ValentinKolb/shardkv/lib/store"
)

// listValue holds the elements of a list, head first
type listValue struct {
	items [][]byte
}

// listAt returns the list stored at key, creating it if create is set.
// ok is false if the key holds another type.
func (s *storeImpl) listAt(key string, create bool) (l *listValue, ok bool) {
	switch v := s.lookup(key).(type) {
	case nil:
		if !create {
			return nil, true
		}
		l = &listValue{}
		s.put(key, l)
		return l, true
	case *listValue:
		return v, true
	default:
		return nil, false
	}
}

// len returns the number of elements, 0 for a missing list
func (l *listValue) len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// --------------------------------------------------------------------------
// List Commands
// --------------------------------------------------------------------------

func (s *storeImpl) lpush(args [][]byte) store.Reply { return s.push(args, true, true) }

func (s *storeImpl) rpush(args [][]byte) store.Reply { return s.push(args, false, true) }

func (s *storeImpl) lpushx(args [][]byte) store.Reply { return s.push(args, true, false) }

func (s *storeImpl) rpushx(args [][]byte) store.Reply { return s.push(args, false, false) }

// push adds elements at the head (left) or tail. Without create, missing lists stay missing.
func (s *storeImpl) push(args [][]byte, left, create bool) store.Reply {
	l, ok := s.listAt(string(args[0]), create)
	if !ok {
		return store.WrongType()
	}
	if l == nil {
		return store.Int(0)
	}
	values := args[1:]
	if !left {
		for _, v := range values {
			l.items = append(l.items, clone(v))
		}
		return store.Int(int64(len(l.items)))
	}

	// lpush a b c leaves c at the head
	items := make([][]byte, len(values), len(values)+len(l.items))
	for i, v := range values {
		items[len(values)-1-i] = clone(v)
	}
	l.items = append(items, l.items...)
	return store.Int(int64(len(l.items)))
}

func (s *storeImpl) lpop(args [][]byte) store.Reply { return s.pop(args, true) }

func (s *storeImpl) rpop(args [][]byte) store.Reply { return s.pop(args, false) }

// pop removes one element, or up to count elements if a count is given
func (s *storeImpl) pop(args [][]byte, left bool) store.Reply {
	key := string(args[0])
	count := int64(-1)
	if len(args) == 2 {
		n, ok := parseInt(args[1])
		if !ok || n < 0 {
			return store.Fail(store.RetCNotInteger, "value is out of range, must be positive")
		}
		count = n
	}
	l, ok := s.listAt(key, false)
	if !ok {
		return store.WrongType()
	}
	if l.len() == 0 {
		return store.Nil()
	}

	n := 1
	if count >= 0 {
		n = int(min(count, int64(len(l.items))))
	}
	popped := make([][]byte, n)
	for i := range popped {
		if left {
			popped[i] = l.items[0]
			l.items = l.items[1:]
		} else {
			popped[i] = l.items[len(l.items)-1]
			l.items = l.items[:len(l.items)-1]
		}
	}
	s.dropIfEmpty(key)
	if count < 0 {
		return store.Bulk(popped[0])
	}
	return store.Values(popped)
}

func (s *storeImpl) blpop(args [][]byte) store.Reply { return s.bpop(args, true) }

func (s *storeImpl) brpop(args [][]byte) store.Reply { return s.bpop(args, false) }

// bpop pops from the first non-empty list, the last argument is the timeout.
// It never blocks: when all lists are empty the nil reply is returned immediately.
func (s *storeImpl) bpop(args [][]byte, left bool) store.Reply {
	if _, ok := parseFloat(args[len(args)-1]); !ok {
		return store.Fail(store.RetCNotFloat, "timeout is not a float or out of range")
	}
	for _, key := range args[:len(args)-1] {
		l, ok := s.listAt(string(key), false)
		if !ok {
			return store.WrongType()
		}
		if l.len() == 0 {
			continue
		}
		r := s.pop([][]byte{key}, left)
		return store.Values([][]byte{clone(key), r.Value})
	}
	return store.Nil()
}

func (s *storeImpl) llen(args [][]byte) store.Reply {
	l, ok := s.listAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	return store.Int(int64(l.len()))
}

func (s *storeImpl) lindex(args [][]byte) store.Reply {
	idx, ok := parseInt(args[1])
	if !ok {
		return store.NotInteger()
	}
	l, ok := s.listAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	n := int64(l.len())
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return store.Nil()
	}
	return store.Bulk(clone(l.items[idx]))
}

func (s *storeImpl) lset(args [][]byte) store.Reply {
	idx, ok := parseInt(args[1])
	if !ok {
		return store.NotInteger()
	}
	l, ok := s.listAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	if l == nil {
		return store.Fail(store.RetCInvalidOperation, "no such key")
	}
	n := int64(l.len())
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return store.Fail(store.RetCInvalidOperation, "index out of range")
	}
	l.items[idx] = clone(args[2])
	return store.OK()
}

func (s *storeImpl) lrange(args [][]byte) store.Reply {
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return store.NotInteger()
	}
	l, ok := s.listAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	from, to, ok := normRange(start, stop, l.len())
	if !ok {
		return store.Values(nil)
	}
	out := make([][]byte, 0, to-from+1)
	for _, v := range l.items[from : to+1] {
		out = append(out, clone(v))
	}
	return store.Values(out)
}

func (s *storeImpl) ltrim(args [][]byte) store.Reply {
	key := string(args[0])
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return store.NotInteger()
	}
	l, ok := s.listAt(key, false)
	if !ok {
		return store.WrongType()
	}
	if l == nil {
		return store.OK()
	}
	from, to, ok := normRange(start, stop, l.len())
	if !ok {
		l.items = nil
	} else {
		l.items = append([][]byte(nil), l.items[from:to+1]...)
	}
	s.dropIfEmpty(key)
	return store.OK()
}

// lrem removes count occurrences of value: from the head for count > 0, from the tail
// for count < 0, all of them for count == 0
func (s *storeImpl) lrem(args [][]byte) store.Reply {
	key := string(args[0])
	count, ok := parseInt(args[1])
	if !ok {
		return store.NotInteger()
	}
	l, ok := s.listAt(key, false)
	if !ok {
		return store.WrongType()
	}
	if l == nil {
		return store.Int(0)
	}

	value := args[2]
	limit := count
	if limit < 0 {
		limit = -limit
	}
	remove := make([]bool, len(l.items))
	var removed int64
	for i := range l.items {
		idx := i
		if count < 0 {
			idx = len(l.items) - 1 - i
		}
		if limit > 0 && removed == limit {
			break
		}
		if bytes.Equal(l.items[idx], value) {
			remove[idx] = true
			removed++
		}
	}

	kept := l.items[:0]
	for i, v := range l.items {
		if !remove[i] {
			kept = append(kept, v)
		}
	}
	l.items = kept
	s.dropIfEmpty(key)
	return store.Int(removed)
}

// linsert inserts value BEFORE or AFTER the first occurrence of pivot
func (s *storeImpl) linsert(args [][]byte) store.Reply {
	var after bool
	switch option(args[1]) {
	case "before":
	case "after":
		after = true
	default:
		return store.SyntaxError()
	}
	l, ok := s.listAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	if l == nil {
		return store.Int(0)
	}
	for i, v := range l.items {
		if !bytes.Equal(v, args[2]) {
			continue
		}
		pos := i
		if after {
			pos++
		}
		l.items = append(l.items, nil)
		copy(l.items[pos+1:], l.items[pos:])
		l.items[pos] = clone(args[3])
		return store.Int(int64(len(l.items)))
	}
	return store.Int(-1)
}
