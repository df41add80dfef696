package lstore

import (
	"math"
	"strings"

	"github.com/ValentinKolb/shardkv/lib/store"
	"github.com/zhangyunhao116/skipmap"
)

// zentry is one member of a sorted set, ordered by score and then by member
type zentry struct {
	score  float64
	member string
}

func zless(a, b zentry) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.member < b.member
}

// zsetValue keeps the score of every member and an ordered index over (score, member)
type zsetValue struct {
	scores map[string]float64
	index  *skipmap.FuncMap[zentry, struct{}]
}

func newZset() *zsetValue {
	return &zsetValue{
		scores: make(map[string]float64),
		index:  skipmap.NewFunc[zentry, struct{}](zless),
	}
}

func (z *zsetValue) len() int {
	if z == nil {
		return 0
	}
	return len(z.scores)
}

// add sets the score of member and reports whether the member is new
func (z *zsetValue) add(member string, score float64) bool {
	old, exists := z.scores[member]
	if exists {
		if old == score {
			return false
		}
		z.index.Delete(zentry{old, member})
	}
	z.scores[member] = score
	z.index.Store(zentry{score, member}, struct{}{})
	return !exists
}

// remove deletes member and reports whether it existed
func (z *zsetValue) remove(member string) bool {
	score, exists := z.scores[member]
	if !exists {
		return false
	}
	delete(z.scores, member)
	z.index.Delete(zentry{score, member})
	return true
}

// entries returns all members in ascending order
func (z *zsetValue) entries() []zentry {
	if z == nil {
		return nil
	}
	out := make([]zentry, 0, len(z.scores))
	z.index.Range(func(e zentry, _ struct{}) bool {
		out = append(out, e)
		return true
	})
	return out
}

// rank returns the 0 based ascending position of member
func (z *zsetValue) rank(member string) (int, bool) {
	score, exists := z.scores[member]
	if !exists {
		return 0, false
	}
	target := zentry{score, member}
	rank := 0
	z.index.Range(func(e zentry, _ struct{}) bool {
		if !zless(e, target) {
			return false
		}
		rank++
		return true
	})
	return rank, true
}

// zsetAt returns the sorted set stored at key, creating it if create is set.
// ok is false if the key holds another type.
func (s *storeImpl) zsetAt(key string, create bool) (z *zsetValue, ok bool) {
	switch v := s.lookup(key).(type) {
	case nil:
		if !create {
			return nil, true
		}
		z = newZset()
		s.put(key, z)
		return z, true
	case *zsetValue:
		return v, true
	default:
		return nil, false
	}
}

// --------------------------------------------------------------------------
// Score Ranges
// --------------------------------------------------------------------------

// scoreBound is one end of a score range; "(" marks an exclusive bound
type scoreBound struct {
	value     float64
	exclusive bool
}

func parseBound(b []byte) (scoreBound, bool) {
	s := string(b)
	exclusive := strings.HasPrefix(s, "(")
	if exclusive {
		s = s[1:]
	}
	f, ok := parseFloat([]byte(s))
	return scoreBound{f, exclusive}, ok
}

// scoreRange is a closed or open interval of scores
type scoreRange struct {
	min, max scoreBound
}

func (r scoreRange) aboveMin(score float64) bool {
	if r.min.exclusive {
		return score > r.min.value
	}
	return score >= r.min.value
}

func (r scoreRange) belowMax(score float64) bool {
	if r.max.exclusive {
		return score < r.max.value
	}
	return score <= r.max.value
}

func (r scoreRange) contains(score float64) bool {
	return r.aboveMin(score) && r.belowMax(score)
}

func parseRange(minArg, maxArg []byte) (scoreRange, bool) {
	lo, ok1 := parseBound(minArg)
	hi, ok2 := parseBound(maxArg)
	return scoreRange{lo, hi}, ok1 && ok2
}

// inRange returns the members whose score is within r, ascending
func (z *zsetValue) inRange(r scoreRange) []zentry {
	var out []zentry
	if z == nil {
		return out
	}
	z.index.Range(func(e zentry, _ struct{}) bool {
		if !r.belowMax(e.score) {
			return false
		}
		if r.aboveMin(e.score) {
			out = append(out, e)
		}
		return true
	})
	return out
}

// entriesReply renders members, optionally followed by their scores
func entriesReply(entries []zentry, withScores bool) store.Reply {
	out := make([][]byte, 0, len(entries)*2)
	for _, e := range entries {
		out = append(out, []byte(e.member))
		if withScores {
			out = append(out, formatFloat(e.score))
		}
	}
	return store.Values(out)
}

func reverse(entries []zentry) []zentry {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// --------------------------------------------------------------------------
// Sorted Set Commands
// --------------------------------------------------------------------------

// zadd supports the flags NX, XX, CH and INCR in front of the score member pairs
func (s *storeImpl) zadd(args [][]byte) store.Reply {
	key := string(args[0])
	var nx, xx, ch, incr bool
	i := 1
flags:
	for ; i < len(args); i++ {
		switch option(args[i]) {
		case "nx":
			nx = true
		case "xx":
			xx = true
		case "ch":
			ch = true
		case "incr":
			incr = true
		default:
			break flags
		}
	}
	pairs := args[i:]
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return store.SyntaxError()
	}
	if nx && xx {
		return store.Fail(store.RetCSyntax, "XX and NX options at the same time are not compatible")
	}
	if incr && len(pairs) != 2 {
		return store.Fail(store.RetCSyntax, "INCR option supports a single increment-element pair")
	}
	scores := make([]float64, len(pairs)/2)
	for j := range scores {
		f, ok := parseFloat(pairs[2*j])
		if !ok {
			return store.NotFloat()
		}
		scores[j] = f
	}

	z, ok := s.zsetAt(key, !xx)
	if !ok {
		return store.WrongType()
	}
	if z == nil {
		if incr {
			return store.Nil()
		}
		return store.Int(0)
	}

	var added, changed int64
	for j, score := range scores {
		member := string(pairs[2*j+1])
		old, exists := z.scores[member]
		if (nx && exists) || (xx && !exists) {
			if incr {
				s.dropIfEmpty(key)
				return store.Nil()
			}
			continue
		}
		if incr {
			score += old
			if math.IsNaN(score) {
				s.dropIfEmpty(key)
				return store.Fail(store.RetCNotFloat, "resulting score is not a number (NaN)")
			}
			z.add(member, score)
			return store.Bulk(formatFloat(score))
		}
		if z.add(member, score) {
			added++
		} else if old != score {
			changed++
		}
	}
	s.dropIfEmpty(key)
	if ch {
		return store.Int(added + changed)
	}
	return store.Int(added)
}

func (s *storeImpl) zincrby(args [][]byte) store.Reply {
	delta, ok := parseFloat(args[1])
	if !ok {
		return store.NotFloat()
	}
	z, ok := s.zsetAt(string(args[0]), true)
	if !ok {
		return store.WrongType()
	}
	member := string(args[2])
	score := z.scores[member] + delta
	if math.IsNaN(score) {
		s.dropIfEmpty(string(args[0]))
		return store.Fail(store.RetCNotFloat, "resulting score is not a number (NaN)")
	}
	z.add(member, score)
	return store.Bulk(formatFloat(score))
}

func (s *storeImpl) zscore(args [][]byte) store.Reply {
	z, ok := s.zsetAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	if z == nil {
		return store.Nil()
	}
	score, exists := z.scores[string(args[1])]
	if !exists {
		return store.Nil()
	}
	return store.Bulk(formatFloat(score))
}

func (s *storeImpl) zcard(args [][]byte) store.Reply {
	z, ok := s.zsetAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	return store.Int(int64(z.len()))
}

func (s *storeImpl) zcount(args [][]byte) store.Reply {
	r, ok := parseRange(args[1], args[2])
	if !ok {
		return store.Fail(store.RetCNotFloat, "min or max is not a float")
	}
	z, ok := s.zsetAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	return store.Int(int64(len(z.inRange(r))))
}

func (s *storeImpl) zrank(args [][]byte) store.Reply { return s.rankGeneric(args, false) }

func (s *storeImpl) zrevrank(args [][]byte) store.Reply { return s.rankGeneric(args, true) }

func (s *storeImpl) rankGeneric(args [][]byte, rev bool) store.Reply {
	z, ok := s.zsetAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	if z == nil {
		return store.Nil()
	}
	rank, exists := z.rank(string(args[1]))
	if !exists {
		return store.Nil()
	}
	if rev {
		rank = z.len() - 1 - rank
	}
	return store.Int(int64(rank))
}

func (s *storeImpl) zrange(args [][]byte) store.Reply { return s.rangeByRank(args, false) }

func (s *storeImpl) zrevrange(args [][]byte) store.Reply { return s.rangeByRank(args, true) }

// rangeByRank implements zrange/zrevrange key start stop [WITHSCORES]
func (s *storeImpl) rangeByRank(args [][]byte, rev bool) store.Reply {
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return store.NotInteger()
	}
	withScores := false
	if len(args) == 4 {
		if option(args[3]) != "withscores" {
			return store.SyntaxError()
		}
		withScores = true
	}
	z, ok := s.zsetAt(string(args[0]), false)
	if !ok {
		return store.WrongType()
	}
	entries := z.entries()
	if rev {
		entries = reverse(entries)
	}
	from, to, ok := normRange(start, stop, len(entries))
	if !ok {
		return store.Values(nil)
	}
	return entriesReply(entries[from:to+1], withScores)
}

func (s *storeImpl) zrangebyscore(args [][]byte) store.Reply {
	return s.rangeByScore(args[0], args[1], args[2], args[3:], false)
}

// zrevrangebyscore takes max before min
func (s *storeImpl) zrevrangebyscore(args [][]byte) store.Reply {
	return s.rangeByScore(args[0], args[2], args[1], args[3:], true)
}

// rangeByScore implements the score range queries with [WITHSCORES] [LIMIT offset count]
func (s *storeImpl) rangeByScore(key, minArg, maxArg []byte, opts [][]byte, rev bool) store.Reply {
	r, ok := parseRange(minArg, maxArg)
	if !ok {
		return store.Fail(store.RetCNotFloat, "min or max is not a float")
	}
	withScores := false
	offset, count := int64(0), int64(-1)
	for i := 0; i < len(opts); i++ {
		switch option(opts[i]) {
		case "withscores":
			withScores = true
		case "limit":
			if i+2 >= len(opts) {
				return store.SyntaxError()
			}
			o, ok1 := parseInt(opts[i+1])
			c, ok2 := parseInt(opts[i+2])
			if !ok1 || !ok2 {
				return store.NotInteger()
			}
			offset, count = o, c
			i += 2
		default:
			return store.SyntaxError()
		}
	}
	z, ok := s.zsetAt(string(key), false)
	if !ok {
		return store.WrongType()
	}
	entries := z.inRange(r)
	if rev {
		entries = reverse(entries)
	}
	if offset < 0 || offset >= int64(len(entries)) {
		return store.Values(nil)
	}
	entries = entries[offset:]
	if count >= 0 && count < int64(len(entries)) {
		entries = entries[:count]
	}
	return entriesReply(entries, withScores)
}

func (s *storeImpl) zrem(args [][]byte) store.Reply {
	key := string(args[0])
	z, ok := s.zsetAt(key, false)
	if !ok {
		return store.WrongType()
	}
	if z == nil {
		return store.Int(0)
	}
	var removed int64
	for _, m := range args[1:] {
		if z.remove(string(m)) {
			removed++
		}
	}
	s.dropIfEmpty(key)
	return store.Int(removed)
}

func (s *storeImpl) zremrangebyrank(args [][]byte) store.Reply {
	key := string(args[0])
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return store.NotInteger()
	}
	z, ok := s.zsetAt(key, false)
	if !ok {
		return store.WrongType()
	}
	entries := z.entries()
	from, to, ok := normRange(start, stop, len(entries))
	if !ok {
		return store.Int(0)
	}
	for _, e := range entries[from : to+1] {
		z.remove(e.member)
	}
	s.dropIfEmpty(key)
	return store.Int(int64(to - from + 1))
}

func (s *storeImpl) zremrangebyscore(args [][]byte) store.Reply {
	key := string(args[0])
	r, ok := parseRange(args[1], args[2])
	if !ok {
		return store.Fail(store.RetCNotFloat, "min or max is not a float")
	}
	z, ok := s.zsetAt(key, false)
	if !ok {
		return store.WrongType()
	}
	entries := z.inRange(r)
	for _, e := range entries {
		z.remove(e.member)
	}
	s.dropIfEmpty(key)
	return store.Int(int64(len(entries)))
}
