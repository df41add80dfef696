package lstore

import (
	"math/rand/v2"
	"sort"

	"github.com/ValentinKolb/shardkv/lib/store"
)

// setValue holds the members of a set
type setValue map[string]struct{}

// setAt returns the set stored at key, creating it if create is set.
// ok is false if the key holds another type.
func (s *storeImpl) setAt(key string, create bool) (set setValue, ok bool) {
	switch v := s.lookup(key).(type) {
	case nil:
		if !create {
			return nil, true
		}
		set = setValue{}
		s.put(key, set)
		return set, true
	case setValue:
		return v, true
	default:
		return nil, false
	}
}

// sorted returns the members in lexicographic order
func (set setValue) sorted() [][]byte {
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Strings(members)
	out := make([][]byte, len(members))
	for i, m := range members {
		out[i] = []byte(m)
	}
	return out
}

// --------------------------------------------------------------------------
// Set Commands
// --------------------------------------------------------------------------

func (s *storeImpl) sadd(args [][]byte) store.Reply {
	set, ok := s.setAt(string(args[0]), true)
	if !ok {
		return store.WrongType()
	}
	var added int64
	for _, m := range args[1:] {
		if _, exists := set[string(m)]; !exists {
			set[string(m)] = struct{}{}
			added++
		}
	}
	return store.Int(added)
}

func (s *storeImpl) srem(args [][]byte) store.Reply {
	key := string(args[0])
	set, ok := s.setAt(key, false)
	if !ok {
		return store.WrongType()
	}
	var removed int64
	for _, m := range args[1:] {
		if _, exists := set[string(m)]; exists {
			delete(set, string(m))
			removed++
		}
	}
	s.dropIfEmpty(key)
	return store.Int(removed)
}

func (s *storeImpl) scard(args [][]byte) store.Reply {
	set, ok := s.setAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	return store.Int(int64(len(set)))
}

func (s *storeImpl) sismember(args [][]byte) store.Reply {
	set, ok := s.setAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	_, exists := set[string(args[1])]
	return store.Bool(exists)
}

func (s *storeImpl) smembers(args [][]byte) store.Reply {
	set, ok := s.setAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	return store.Values(set.sorted())
}

// spop removes and returns one random member, or up to count members
func (s *storeImpl) spop(args [][]byte) store.Reply {
	key := string(args[0])
	set, ok := s.setAt(key, false)
	if !ok {
		return store.WrongType()
	}
	count := int64(-1)
	if len(args) == 2 {
		n, ok := parseInt(args[1])
		if !ok || n < 0 {
			return store.Fail(store.RetCNotInteger, "value is out of range, must be positive")
		}
		count = n
	}
	if len(set) == 0 {
		if count < 0 {
			return store.Nil()
		}
		return store.Values(nil)
	}

	picked := randomMembers(set, max(count, 1), false)
	for _, m := range picked {
		delete(set, string(m))
	}
	s.dropIfEmpty(key)
	if count < 0 {
		return store.Bulk(picked[0])
	}
	return store.Values(picked)
}

// srandmember returns random members without removing them. A negative count
// allows the same member to be returned several times.
func (s *storeImpl) srandmember(args [][]byte) store.Reply {
	set, ok := s.setAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	if len(args) == 1 {
		if len(set) == 0 {
			return store.Nil()
		}
		return store.Bulk(randomMembers(set, 1, false)[0])
	}
	n, ok := parseInt(args[1])
	if !ok {
		return store.NotInteger()
	}
	if len(set) == 0 || n == 0 {
		return store.Values(nil)
	}
	if n < 0 {
		if n < -maxRandomCount {
			return store.Fail(store.RetCInvalidOperation, "value is out of range")
		}
		return store.Values(randomMembers(set, -n, true))
	}
	return store.Values(randomMembers(set, n, false))
}

// maxRandomCount bounds the reply of srandmember with a negative count
const maxRandomCount = 1 << 24

// randomMembers picks n members. Without repeat at most len(set) distinct members are returned.
func randomMembers(set setValue, n int64, repeat bool) [][]byte {
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	if repeat {
		out := make([][]byte, n)
		for i := range out {
			out[i] = []byte(members[rand.IntN(len(members))])
		}
		return out
	}
	rand.Shuffle(len(members), func(i, j int) {
		members[i], members[j] = members[j], members[i]
	})
	n = min(n, int64(len(members)))
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(members[i])
	}
	return out
}

func (s *storeImpl) sdiff(args [][]byte) store.Reply {
	return s.combine(args, func(acc, next setValue) setValue {
		for m := range next {
			delete(acc, m)
		}
		return acc
	})
}

func (s *storeImpl) sinter(args [][]byte) store.Reply {
	return s.combine(args, func(acc, next setValue) setValue {
		for m := range acc {
			if _, ok := next[m]; !ok {
				delete(acc, m)
			}
		}
		return acc
	})
}

func (s *storeImpl) sunion(args [][]byte) store.Reply {
	return s.combine(args, func(acc, next setValue) setValue {
		for m := range next {
			acc[m] = struct{}{}
		}
		return acc
	})
}

// combine folds the sets at keys with op, starting with a copy of the first set.
// Missing keys count as empty sets.
func (s *storeImpl) combine(args [][]byte, op func(acc, next setValue) setValue) store.Reply {
	sets := make([]setValue, len(args))
	for i, key := range keysOf(args) {
		set, ok := s.setAt(key, false)
		if !ok {
			return store.WrongType()
		}
		sets[i] = set
	}
	acc := setValue{}
	for m := range sets[0] {
		acc[m] = struct{}{}
	}
	for _, set := range sets[1:] {
		acc = op(acc, set)
	}
	return store.Values(acc.sorted())
}
