package shard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPipelineEmpty(t *testing.T) {
	r := require.New(t)
	router, conns, err := newFakeRouter("A", "B")
	r.NoError(err)

	p := router.Pipeline()
	r.Equal(0, p.Len())
	results := p.Exec(context.Background())
	r.NotNil(results)
	r.Empty(results)
	for _, conn := range conns {
		r.Empty(conn.Calls())
	}
}

func TestPipelineOrderIndependentOfLatency(t *testing.T) {
	r := require.New(t)

	slow := newFakeConn("B")
	slow.delay = 50 * time.Millisecond
	fast := newFakeConn("A")
	router, err := NewWithConns([]Node{{Name: "A", Conn: fast}, {Name: "B", Conn: slow}})
	r.NoError(err)

	k1, err := keyOn(router, "A", "k")
	r.NoError(err)
	k2, err := keyOn(router, "B", "k")
	r.NoError(err)
	k3, err := keyOn(router, "A", "other")
	r.NoError(err)

	p := router.Pipeline()
	r.Equal(0, p.Queue("GET", k1))
	r.Equal(1, p.Queue("get", k2))
	r.Equal(2, p.Queue("get", k3))
	r.Equal(3, p.Len())

	results := p.Exec(context.Background())
	r.Len(results, 3)
	r.Equal(k1, results[0].Value)
	r.Equal(k2, results[1].Value)
	r.Equal(k3, results[2].Value)
	r.Equal(0, p.Len())

	// intra-node order is preserved
	calls := fast.Calls()
	r.Len(calls, 2)
	r.Equal([]any{k1}, calls[0].Args)
	r.Equal([]any{k3}, calls[1].Args)
	r.Equal("get", calls[0].Command)
}

func TestPipelineUsesBatcher(t *testing.T) {
	r := require.New(t)

	a := &batchConn{fakeConn: newFakeConn("A")}
	b := &batchConn{fakeConn: newFakeConn("B")}
	router, err := NewWithConns([]Node{{Name: "A", Conn: a}, {Name: "B", Conn: b}})
	r.NoError(err)

	p := router.Pipeline()
	var keys []string
	for i := 0; i < 20; i++ {
		key, err := keyOn(router, []string{"A", "B"}[i%2], "key"+string(rune('a'+i)))
		r.NoError(err)
		keys = append(keys, key)
		p.Queue("get", key)
	}

	results := p.Exec(context.Background())
	r.Len(results, 20)
	for i, key := range keys {
		r.NoError(results[i].Err)
		r.Equal(key, results[i].Value)
	}
	r.EqualValues(1, a.batches.Load())
	r.EqualValues(1, b.batches.Load())
	r.Len(a.Calls(), 10)
	r.Len(b.Calls(), 10)
}

func TestPipelinePerSlotErrors(t *testing.T) {
	r := require.New(t)
	nodeErr := errors.New("node down")

	good := newFakeConn("A")
	bad := newFakeConn("B")
	bad.err = nodeErr
	router, err := NewWithConns([]Node{{Name: "A", Conn: good}, {Name: "B", Conn: bad}})
	r.NoError(err)

	onA, err := keyOn(router, "A", "k")
	r.NoError(err)
	onB, err := keyOn(router, "B", "k")
	r.NoError(err)

	p := router.Pipeline()
	p.Queue("get", onA)
	p.Queue("get", onB)
	p.Queue("keys", "*")
	p.Queue("select", "1")
	p.Queue("incr", onA)

	results := p.Exec(context.Background())
	r.Len(results, 5)
	r.NoError(results[0].Err)
	r.Equal(onA, results[0].Value)
	r.Equal(nodeErr, results[1].Err)
	r.ErrorIs(results[2].Err, ErrNotShardable)
	r.ErrorIs(results[3].Err, ErrNotPipelined)
	r.NoError(results[4].Err)

	r.Len(good.Calls(), 2)
	r.Len(bad.Calls(), 1)
}

func TestPipelineRoutingFailure(t *testing.T) {
	r := require.New(t)
	router, _, err := newFakeRouter()
	r.NoError(err)

	p := router.Pipeline()
	p.Queue("get", "a")
	p.Queue("get", "b")
	results := p.Exec(context.Background())
	r.Len(results, 2)
	for _, res := range results {
		r.ErrorIs(res.Err, ErrRoutingFailure)
	}
}

func TestPipelineDiscard(t *testing.T) {
	r := require.New(t)
	router, conns, err := newFakeRouter("A")
	r.NoError(err)

	p := router.Pipeline()
	p.Queue("get", "a")
	p.Discard()
	r.Equal(0, p.Len())
	r.Empty(p.Exec(context.Background()))
	r.Empty(conns["A"].Calls())
}

func TestPipelineClosedRouter(t *testing.T) {
	r := require.New(t)
	router, _, err := newFakeRouter("A")
	r.NoError(err)
	r.NoError(router.Close())

	p := router.Pipeline()
	p.Queue("get", "a")
	results := p.Exec(context.Background())
	r.Len(results, 1)
	r.ErrorIs(results[0].Err, ErrClosed)
}

// shortBatchConn answers every batch with one result too few
type shortBatchConn struct {
	*fakeConn
}

func (c *shortBatchConn) Batch(_ context.Context, ops []Op) []Result {
	out := make([]Result, len(ops)-1)
	for i := range out {
		out[i] = Result{Value: ops[i].Key}
	}
	return out
}

func TestPipelineBatchMismatch(t *testing.T) {
	r := require.New(t)
	router, err := NewWithConns([]Node{{Name: "A", Conn: &shortBatchConn{fakeConn: newFakeConn("A")}}})
	r.NoError(err)

	p := router.Pipeline()
	p.Queue("get", "a")
	p.Queue("get", "b")
	results := p.Exec(context.Background())
	r.Len(results, 2)
	r.Equal("a", results[0].Value)
	r.ErrorIs(results[1].Err, ErrBatchMismatch)
}
