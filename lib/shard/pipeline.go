package shard

import (
	"context"
	"time"
)

// Pipeline queues operations against possibly different nodes and executes them with
// one round trip per node. Results are delivered in submission order regardless of
// which node answers first.
//
// A Pipeline is not safe for concurrent use. Create one per goroutine with Router.Pipeline.
type Pipeline struct {
	router *Router
	ops    []Op
}

// group is the part of a pipeline sent to one node
type group struct {
	node    string
	conn    Conn
	ops     []Op
	indices []int
}

// Queue appends an operation and returns its submission index. Nothing is sent until Exec.
func (p *Pipeline) Queue(command, key string, args ...any) int {
	p.ops = append(p.ops, Op{Command: command, Key: key, Args: args})
	return len(p.ops) - 1
}

// Len returns the number of queued operations
func (p *Pipeline) Len() int {
	return len(p.ops)
}

// Discard drops all queued operations
func (p *Pipeline) Discard() {
	p.ops = nil
}

// Exec sends all queued operations and returns one Result per operation, indexed by
// submission index. Operations are grouped by owning node; each group is sent
// concurrently, as a single batch if the node connection implements Batcher.
//
// A failing operation (rejected command, routing failure, node error) only sets the Err
// of its own slot. The pipeline is empty again after Exec returns.
func (p *Pipeline) Exec(ctx context.Context) []Result {
	ops := p.ops
	p.ops = nil

	results := make([]Result, len(ops))
	if len(ops) == 0 {
		return results
	}
	if p.router.closed.Load() {
		for i := range results {
			results[i].Err = ErrClosed
		}
		return results
	}

	topo := p.router.topo.Load()
	byNode := make(map[string]*group)
	var groups []*group

	for i, op := range ops {
		switch variant := Lookup(op.Command); variant {
		case Direct:
		case BroadcastSplit:
			results[i].Err = ErrNotPipelined
			continue
		default:
			p.router.opts.metrics.rejected(op.Command)
			results[i].Err = &ClassificationError{Command: op.Command, Variant: variant}
			continue
		}

		name, err := topo.resolve(op.Key)
		if err != nil {
			results[i].Err = err
			continue
		}
		g, ok := byNode[name]
		if !ok {
			g = &group{node: name, conn: topo.conns[name]}
			byNode[name] = g
			groups = append(groups, g)
		}
		op.Command = normalize(op.Command)
		g.ops = append(g.ops, op)
		g.indices = append(g.indices, i)
	}

	p.router.fanOut(len(groups), func(i int) {
		g := groups[i]
		start := time.Now()
		replies := g.send(ctx)

		var firstErr error
		for j, idx := range g.indices {
			results[idx] = replies[j]
			if firstErr == nil && replies[j].Err != nil {
				firstErr = replies[j].Err
			}
		}
		p.router.opts.metrics.observe(g.node, "pipeline", start, len(g.ops), firstErr)
	})

	return results
}

// send executes the group on its node and returns exactly one result per op
func (g *group) send(ctx context.Context) []Result {
	if b, ok := g.conn.(Batcher); ok {
		replies := b.Batch(ctx, g.ops)
		if len(replies) == len(g.ops) {
			return replies
		}
		Logger.Errorf("node %s answered a batch of %d ops with %d results", g.node, len(g.ops), len(replies))
		out := make([]Result, len(g.ops))
		for i := range out {
			if i < len(replies) {
				out[i] = replies[i]
			} else {
				out[i].Err = ErrBatchMismatch
			}
		}
		return out
	}

	out := make([]Result, len(g.ops))
	for i, op := range g.ops {
		value, err := g.conn.Call(ctx, op.Command, op.CallArgs()...)
		out[i] = Result{Value: value, Err: err}
	}
	return out
}
