package lstore

import (
	"github.com/ValentinKolb/shardkv/lib/store"
)

// --------------------------------------------------------------------------
// Generic Key Commands
// --------------------------------------------------------------------------

func (s *storeImpl) del(args [][]byte) store.Reply {
	var n int64
	for _, key := range keysOf(args) {
		if s.lookup(key) != nil && s.remove(key) {
			n++
		}
	}
	return store.Int(n)
}

func (s *storeImpl) exists(args [][]byte) store.Reply {
	var n int64
	for _, key := range keysOf(args) {
		if s.lookup(key) != nil {
			n++
		}
	}
	return store.Int(n)
}

func (s *storeImpl) expire(args [][]byte) store.Reply {
	return s.expireGeneric(args, 1000, false)
}

func (s *storeImpl) pexpire(args [][]byte) store.Reply {
	return s.expireGeneric(args, 1, false)
}

func (s *storeImpl) expireat(args [][]byte) store.Reply {
	return s.expireGeneric(args, 1000, true)
}

func (s *storeImpl) pexpireat(args [][]byte) store.Reply {
	return s.expireGeneric(args, 1, true)
}

// expireGeneric sets a deadline given relative (or absolute, if at is set) in units of unitMs
func (s *storeImpl) expireGeneric(args [][]byte, unitMs int64, at bool) store.Reply {
	key := string(args[0])
	n, ok := parseInt(args[1])
	if !ok {
		return store.NotInteger()
	}
	if s.lookup(key) == nil {
		return store.Int(0)
	}
	deadline := n * unitMs
	if !at {
		deadline += s.nowMs()
	}
	s.setDeadline(key, deadline)
	return store.Int(1)
}

func (s *storeImpl) persist(args [][]byte) store.Reply {
	key := string(args[0])
	if s.lookup(key) == nil {
		return store.Int(0)
	}
	_, removed := s.expires.RemoveByKey(key)
	return store.Bool(removed)
}

func (s *storeImpl) ttl(args [][]byte) store.Reply {
	r := s.pttl(args)
	if r.Int > 0 {
		r.Int = (r.Int + 500) / 1000
	}
	return r
}

func (s *storeImpl) pttl(args [][]byte) store.Reply {
	key := string(args[0])
	if s.lookup(key) == nil {
		return store.Int(-2)
	}
	it, ok := s.expires.GetByKey(key)
	if !ok {
		return store.Int(-1)
	}
	return store.Int(it.Priority - s.nowMs())
}

func (s *storeImpl) typeOf(args [][]byte) store.Reply {
	switch s.lookup(string(args[0])).(type) {
	case []byte:
		return store.Status("string")
	case hashValue:
		return store.Status("hash")
	case *listValue:
		return store.Status("list")
	case setValue:
		return store.Status("set")
	case *zsetValue:
		return store.Status("zset")
	default:
		return store.Status("none")
	}
}

func (s *storeImpl) rename(args [][]byte) store.Reply {
	return s.renameGeneric(args, false)
}

func (s *storeImpl) renamenx(args [][]byte) store.Reply {
	return s.renameGeneric(args, true)
}

// renameGeneric moves a value and its deadline to a new key
func (s *storeImpl) renameGeneric(args [][]byte, nx bool) store.Reply {
	from, to := string(args[0]), string(args[1])
	v := s.lookup(from)
	if v == nil {
		return store.Fail(store.RetCInvalidOperation, "no such key")
	}
	if nx && s.lookup(to) != nil {
		return store.Int(0)
	}
	if from != to {
		deadline, hasDeadline := s.expires.RemoveByKey(from)
		delete(s.data, from)
		s.replace(to, v)
		if hasDeadline {
			s.expires.AddItem(to, deadline)
		}
	}
	if nx {
		return store.Int(1)
	}
	return store.OK()
}
