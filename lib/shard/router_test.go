package shard

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/shardkv/lib/ring"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLookupVariants(t *testing.T) {
	r := require.New(t)

	r.Equal(Direct, Lookup("get"))
	r.Equal(Direct, Lookup("GET"))
	r.Equal(Direct, Lookup(" HGetAll "))
	r.Equal(Direct, Lookup("debug object"))
	r.Equal(BroadcastSplit, Lookup("auth"))
	r.Equal(BroadcastSplit, Lookup("Select"))
	r.Equal(Forbidden, Lookup("keys"))
	r.Equal(Forbidden, Lookup("config get"))
	r.Equal(Unknown, Lookup("nosuchcommand"))

	r.Len(DirectCommands(), 89)
	r.Len(BroadcastCommands(), 2)
	r.Len(ForbiddenCommands(), 55)
}

func TestCommandTableDisjoint(t *testing.T) {
	seen := make(map[string]Variant)
	for variant, names := range map[Variant][]string{
		Direct:         directCommands,
		BroadcastSplit: broadcastCommands,
		Forbidden:      forbiddenCommands,
	} {
		for _, name := range names {
			if prev, ok := seen[name]; ok {
				t.Fatalf("%s listed as %s and %s", name, prev, variant)
			}
			seen[name] = variant
		}
	}
}

func TestHashTag(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"foo", "foo"},
		{"user:{42}:name", "42"},
		{"{42}", "42"},
		{"a{x}b{y}c", "y"},
		{"a{x}b}", "x}b"},
		{"a{{x}", "x"},
		{"no{close", "no{close"},
		{"no}open", "no}open"},
		{"empty{}tag", "empty{}tag"},
		{"}{reversed", "}{reversed"},
		{"{a\nb}", "{a\nb}"},
		{"{a}\n{b}", "a"},
		{"x{\n{b}y", "b"},
		{"{}\n{b}", "{}\n{b}"},
		{"{a\r\nb}c{d}", "d"},
		{"{a\u2028b}", "{a\u2028b}"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			require.Equal(t, tt.want, HashTag(tt.key))
		})
	}
}

func TestResolveNodeHashTag(t *testing.T) {
	r := require.New(t)
	router, _, err := newFakeRouter("A", "B", "C")
	r.NoError(err)

	for _, tag := range []string{"42", "user", "x", "y"} {
		n1, err := router.ResolveNode("first{" + tag + "}")
		r.NoError(err)
		n2, err := router.ResolveNode("{" + tag + "}second:key")
		r.NoError(err)
		n3, err := router.ResolveNode(tag)
		r.NoError(err)
		r.Equal(n1, n2)
		r.Equal(n1, n3)
	}

	withTwo, err := router.ResolveNode("a{x}b{y}c")
	r.NoError(err)
	onlyY, err := router.ResolveNode("y")
	r.NoError(err)
	r.Equal(onlyY, withTwo)
}

func TestResolveNodeMatchesRing(t *testing.T) {
	r := require.New(t)
	router, _, err := newFakeRouter("A", "B", "C")
	r.NoError(err)

	rg := ring.New(ring.DefaultReplicas)
	rg.AddNode("A")
	rg.AddNode("B")
	rg.AddNode("C")

	for _, key := range []string{"foo", "bar", "baz", "user:1", "user:2"} {
		want, err := rg.Resolve(key)
		r.NoError(err)
		got, err := router.ResolveNode(key)
		r.NoError(err)
		r.Equal(want, got, key)
	}
}

func TestEmptyRouter(t *testing.T) {
	r := require.New(t)
	router, _, err := newFakeRouter()
	r.NoError(err)

	_, err = router.ResolveNode("foo")
	r.ErrorIs(err, ErrRoutingFailure)
	r.ErrorIs(err, ring.ErrEmptyRing)

	_, err = router.Get(context.Background(), "foo")
	r.ErrorIs(err, ErrRoutingFailure)

	results, err := router.Auth(context.Background(), "secret")
	r.NoError(err)
	r.Empty(results)
}

func TestInvalidNodes(t *testing.T) {
	r := require.New(t)

	_, err := NewWithConns([]Node{{Name: "a", Conn: newFakeConn("a")}, {Name: "a", Conn: newFakeConn("a")}})
	r.ErrorIs(err, ErrDuplicateNode)

	_, err = NewWithConns([]Node{{Name: "", Conn: newFakeConn("")}})
	r.ErrorIs(err, ErrInvalidNode)

	_, err = NewWithConns([]Node{{Name: "a"}})
	r.ErrorIs(err, ErrInvalidNode)
}

func TestInvokeDirect(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	router, conns, err := newFakeRouter("A", "B", "C")
	r.NoError(err)

	owner, err := router.ResolveNode("foo")
	r.NoError(err)

	value, err := router.Invoke(ctx, "SET", "foo", "bar", 10)
	r.NoError(err)
	r.Equal("foo", value)

	calls := conns[owner].Calls()
	r.Len(calls, 1)
	r.Equal("set", calls[0].Command)
	r.Equal([]any{"foo", "bar", 10}, calls[0].Args)

	for name, conn := range conns {
		if name != owner {
			r.Empty(conn.Calls(), name)
		}
	}

	_, err = router.HGetAll(ctx, "foo")
	r.NoError(err)
	r.Equal("hgetall", conns[owner].Calls()[1].Command)
}

func TestInvokeDirectErrorPassThrough(t *testing.T) {
	r := require.New(t)
	nodeErr := errors.New("connection reset")

	conn := newFakeConn("A")
	conn.err = nodeErr
	router, err := NewWithConns([]Node{{Name: "A", Conn: conn}})
	r.NoError(err)

	_, err = router.Get(context.Background(), "foo")
	r.Equal(nodeErr, err)
}

func TestForbiddenCommandsNeverReachNodes(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	m := &mockConn{}
	router, err := NewWithConns([]Node{{Name: "A", Conn: m}})
	r.NoError(err)

	for _, command := range append(ForbiddenCommands(), "nosuchcommand") {
		_, err := router.Invoke(ctx, command, "foo")
		r.Error(err, command)
		r.ErrorIs(err, ErrNotShardable)
		r.Equal(command+" is not a shardable command", err.Error())

		var ce *ClassificationError
		r.ErrorAs(err, &ce)
		r.Equal(command, ce.Command)

		_, err = router.Broadcast(ctx, command)
		r.ErrorIs(err, ErrNotShardable)

		p := router.Pipeline()
		p.Queue(command, "foo")
		results := p.Exec(ctx)
		r.Len(results, 1)
		r.ErrorIs(results[0].Err, ErrNotShardable)
	}

	_, err = router.Invoke(ctx, "nosuchcommand", "foo")
	r.ErrorIs(err, ErrUnknownCommand)
	_, err = router.Invoke(ctx, "keys", "*")
	r.False(errors.Is(err, ErrUnknownCommand))

	m.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastSharedArgs(t *testing.T) {
	r := require.New(t)
	router, conns, err := newFakeRouter("A", "B", "C")
	r.NoError(err)

	results, err := router.Auth(context.Background(), "secret")
	r.NoError(err)
	r.Len(results, 3)

	for name, conn := range conns {
		r.Equal("secret", results[name].Value)
		r.NoError(results[name].Err)
		calls := conn.Calls()
		r.Len(calls, 1)
		r.Equal("auth", calls[0].Command)
		r.Equal([]any{"secret"}, calls[0].Args)
	}
}

func TestBroadcastPerNodeArgs(t *testing.T) {
	r := require.New(t)
	router, conns, err := newFakeRouter("A", "B", "C")
	r.NoError(err)

	results, err := router.Select(context.Background(), PerNode{{1}, {2}, {3}})
	r.NoError(err)
	r.Len(results, 3)

	for i, name := range []string{"A", "B", "C"} {
		calls := conns[name].Calls()
		r.Len(calls, 1)
		r.Equal([]any{i + 1}, calls[0].Args)
		r.Equal(i+1, results[name].Value)
	}

	_, err = router.Select(context.Background(), PerNode{{1}, {2}})
	r.ErrorIs(err, ErrArgCount)
}

func TestInvokeBroadcast(t *testing.T) {
	r := require.New(t)
	router, conns, err := newFakeRouter("A", "B")
	r.NoError(err)

	value, err := router.Invoke(context.Background(), "select", "3")
	r.NoError(err)
	results, ok := value.(map[string]Result)
	r.True(ok)
	r.Len(results, 2)
	r.Equal([]any{"3"}, conns["A"].Calls()[0].Args)

	_, err = router.Broadcast(context.Background(), "get", "foo")
	r.ErrorIs(err, ErrNotBroadcast)
}

func TestInvokeBroadcastPerNode(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	router, conns, err := newFakeRouter("A", "B")
	r.NoError(err)

	value, err := router.Invoke(ctx, "select", "", PerNode{{1}, {2}})
	r.NoError(err)
	r.Len(value.(map[string]Result), 2)
	r.Equal([]any{1}, conns["A"].Calls()[0].Args)
	r.Equal([]any{2}, conns["B"].Calls()[0].Args)

	// a PerNode mixed with other arguments is rejected before any call
	_, err = router.Invoke(ctx, "select", "x", PerNode{{1}, {2}})
	r.ErrorIs(err, ErrArgCount)
	_, err = router.Invoke(ctx, "auth", "", "pw", PerNode{{1}, {2}})
	r.ErrorIs(err, ErrArgCount)
	_, err = router.Broadcast(ctx, "select", PerNode{{1}, {2}}, 3)
	r.ErrorIs(err, ErrArgCount)

	// wrong number of lists
	_, err = router.Invoke(ctx, "select", "", PerNode{{1}})
	r.ErrorIs(err, ErrArgCount)

	r.Len(conns["A"].Calls(), 1)
	r.Len(conns["B"].Calls(), 1)
}

func TestBroadcastPartialFailure(t *testing.T) {
	r := require.New(t)
	nodeErr := errors.New("wrong password")

	a, b, c := newFakeConn("A"), newFakeConn("B"), newFakeConn("C")
	b.err = nodeErr
	c.delay = 20 * time.Millisecond
	router, err := NewWithConns([]Node{{Name: "A", Conn: a}, {Name: "B", Conn: b}, {Name: "C", Conn: c}})
	r.NoError(err)

	results, err := router.Auth(context.Background(), "pw")
	r.Error(err)
	r.ErrorIs(err, nodeErr)

	var pe *PartialError
	r.ErrorAs(err, &pe)
	r.Len(pe.Failed, 1)
	r.Equal(nodeErr, pe.Failed["B"])

	// the slow node was still awaited
	r.Len(results, 3)
	r.NoError(results["A"].Err)
	r.NoError(results["C"].Err)
	r.Equal("pw", results["C"].Value)
	r.Equal(nodeErr, results["B"].Err)
}

func TestBroadcastMaxFanout(t *testing.T) {
	r := require.New(t)
	nodes := make([]Node, 0, 5)
	conns := make([]*fakeConn, 0, 5)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		conn := newFakeConn(name)
		conns = append(conns, conn)
		nodes = append(nodes, Node{Name: name, Conn: conn})
	}
	router, err := NewWithConns(nodes, WithMaxFanout(2))
	r.NoError(err)

	results, err := router.Auth(context.Background(), "pw")
	r.NoError(err)
	r.Len(results, 5)
	for _, conn := range conns {
		r.Len(conn.Calls(), 1)
	}
}

func TestClose(t *testing.T) {
	r := require.New(t)
	errA := errors.New("close A")
	errC := errors.New("close C")

	a, b, c := newFakeConn("A"), newFakeConn("B"), newFakeConn("C")
	a.closeErr = errA
	c.closeErr = errC
	router, err := NewWithConns([]Node{{Name: "A", Conn: a}, {Name: "B", Conn: b}, {Name: "C", Conn: c}})
	r.NoError(err)

	err = router.Close()
	r.Error(err)
	r.ErrorIs(err, errA)
	r.ErrorIs(err, errC)

	var merr *multierror.Error
	r.ErrorAs(err, &merr)
	r.Len(merr.Errors, 2)

	r.True(a.closed.Load())
	r.True(b.closed.Load())
	r.True(c.closed.Load())

	_, err = router.Get(context.Background(), "foo")
	r.ErrorIs(err, ErrClosed)
	r.NoError(router.Close())
}

func TestNewDialsInOrder(t *testing.T) {
	r := require.New(t)
	d := &fakeDialer{}
	nodes := []NodeConfig{{Name: "A"}, {Name: "B"}, {Name: "C"}}

	router, err := New(context.Background(), nodes, d.Dial, WithReplicas(16))
	r.NoError(err)
	r.Equal([]string{"A", "B", "C"}, router.Nodes())
	r.Equal(48, router.Ring().Len())
	r.Len(d.conns, 3)

	conn, ok := router.Conn("B")
	r.True(ok)
	r.Same(d.conns["B"], conn)
}

func TestNewDialFailureClosesOpened(t *testing.T) {
	r := require.New(t)
	dialErr := errors.New("refused")
	d := &fakeDialer{fail: map[string]error{"C": dialErr}}

	_, err := New(context.Background(), []NodeConfig{{Name: "A"}, {Name: "B"}, {Name: "C"}}, d.Dial)
	r.ErrorIs(err, dialErr)
	r.True(d.conns["A"].closed.Load())
	r.True(d.conns["B"].closed.Load())
}

func TestReconfigure(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	d := &fakeDialer{}

	router, err := New(ctx, []NodeConfig{{Name: "A"}, {Name: "B"}}, d.Dial)
	r.NoError(err)
	connA := d.conns["A"]
	connB := d.conns["B"]

	err = router.Reconfigure(ctx, []NodeConfig{{Name: "A"}, {Name: "C"}})
	r.NoError(err)
	r.Equal([]string{"A", "C"}, router.Nodes())

	conn, ok := router.Conn("A")
	r.True(ok)
	r.Same(connA, conn)
	r.False(connA.closed.Load())
	r.True(connB.closed.Load())

	_, ok = router.Conn("B")
	r.False(ok)

	for i := 0; i < 100; i++ {
		node, err := router.ResolveNode(string(rune('a' + i%26)))
		r.NoError(err)
		r.NotEqual("B", node)
	}

	r.ErrorIs(router.Reconfigure(ctx, []NodeConfig{{Name: "A"}, {Name: "A"}}), ErrDuplicateNode)
}

func TestReconfigureWithoutDialer(t *testing.T) {
	router, _, err := newFakeRouter("A")
	require.NoError(t, err)
	require.Error(t, router.Reconfigure(context.Background(), []NodeConfig{{Name: "B"}}))
}

func TestParseNodes(t *testing.T) {
	r := require.New(t)

	nodes, err := ParseNodes("a=localhost:8081, b=localhost:8082|localhost:9082,")
	r.NoError(err)
	r.Equal([]NodeConfig{
		{Name: "a", Endpoints: []string{"localhost:8081"}},
		{Name: "b", Endpoints: []string{"localhost:8082", "localhost:9082"}},
	}, nodes)
	r.Equal("b=localhost:8082|localhost:9082", nodes[1].String())

	_, err = ParseNodes("a")
	r.Error(err)
	_, err = ParseNodes("=localhost:1")
	r.Error(err)
}

func TestMetrics(t *testing.T) {
	r := require.New(t)
	m := NewMetrics()

	conn := newFakeConn("A")
	router, err := NewWithConns([]Node{{Name: "A", Conn: conn}}, WithMetrics(m))
	r.NoError(err)

	_, err = router.Get(context.Background(), "foo")
	r.NoError(err)
	_, _ = router.Invoke(context.Background(), "keys", "*")

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	r.Contains(buf.String(), `shardkv_router_calls_total{node="A",kind="call"} 1`)
	r.Contains(buf.String(), `shardkv_router_rejected_total{command="keys"} 1`)
}

func TestTypedAPI(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	conn := newFakeConn("A")
	router, err := NewWithConns([]Node{{Name: "A", Conn: conn}})
	r.NoError(err)

	cases := []struct {
		call func(context.Context, string, ...any) (any, error)
		want string
	}{
		{router.Set, "set"},
		{router.HGetAll, "hgetall"},
		{router.ZAdd, "zadd"},
		{router.Expire, "expire"},
		{router.DebugObject, "debug object"},
	}
	for _, c := range cases {
		_, err := c.call(ctx, "k", 1)
		r.NoError(err, c.want)
	}

	calls := conn.Calls()
	r.Len(calls, len(cases))
	for i, c := range cases {
		r.Equal(c.want, calls[i].Command)
		r.Equal([]any{"k", 1}, calls[i].Args)
	}

	// one key method per direct command
	keyMethod := reflect.TypeOf(router.Get)
	methods := 0
	rv := reflect.ValueOf(router)
	for i := 0; i < rv.NumMethod(); i++ {
		if rv.Method(i).Type() == keyMethod {
			methods++
		}
	}
	r.Equal(len(DirectCommands()), methods)
}
