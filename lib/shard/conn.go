package shard

import (
	"context"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Node connection interfaces
// --------------------------------------------------------------------------

// Conn is a connection to a single shard node.
// Implementations must be safe for concurrent use.
type Conn interface {
	// Call executes command with args on the node and returns its reply.
	// For direct commands the first argument is the key.
	Call(ctx context.Context, command string, args ...any) (any, error)
	// Close closes the connection. Pending calls fail.
	Close() error
}

// Batcher is implemented by connections that can send several commands in one round trip.
// The returned slice must have one Result per op, in the same order.
type Batcher interface {
	Batch(ctx context.Context, ops []Op) []Result
}

// Dialer opens the connection for a node
type Dialer func(ctx context.Context, node NodeConfig) (Conn, error)

// --------------------------------------------------------------------------
// Node descriptors
// --------------------------------------------------------------------------

// NodeConfig describes one shard node. Name identifies the node on the ring and must
// be unique; the remaining fields are connection parameters used by the Dialer.
type NodeConfig struct {
	Name      string   `mapstructure:"name" yaml:"name"`
	Endpoints []string `mapstructure:"endpoints" yaml:"endpoints"`
	Namespace uint64   `mapstructure:"namespace" yaml:"namespace,omitempty"`
	Password  string   `mapstructure:"password" yaml:"-"`
}

// String returns the node in the name=endpoint|endpoint notation used on the command line
func (n NodeConfig) String() string {
	return fmt.Sprintf("%s=%s", n.Name, strings.Join(n.Endpoints, "|"))
}

// ParseNodes parses a comma separated list of name=endpoint[|endpoint...] pairs.
//
// Example: "a=localhost:8081,b=localhost:8082|localhost:9082"
func ParseNodes(s string) ([]NodeConfig, error) {
	var nodes []NodeConfig
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, endpoints, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(endpoints) == "" {
			return nil, fmt.Errorf("invalid node format: %s (expected NAME=ENDPOINT[|ENDPOINT...])", part)
		}
		node := NodeConfig{Name: strings.TrimSpace(name)}
		for _, ep := range strings.Split(endpoints, "|") {
			if ep = strings.TrimSpace(ep); ep != "" {
				node.Endpoints = append(node.Endpoints, ep)
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Node is an open connection together with the name it is registered under
type Node struct {
	Name string
	Conn Conn
}

// --------------------------------------------------------------------------
// Operations and results
// --------------------------------------------------------------------------

// Op is a single queued operation of a pipeline
type Op struct {
	Command string
	Key     string
	Args    []any
}

// CallArgs returns the argument list sent to the node: the key followed by Args.
func (o Op) CallArgs() []any {
	args := make([]any, 0, len(o.Args)+1)
	args = append(args, o.Key)
	return append(args, o.Args...)
}

// Result is the outcome of one operation: either a value or an error.
type Result struct {
	Value any
	Err   error
}

// PerNode holds one argument list per node, in node registration order.
// Passing a PerNode as the only argument of Router.Broadcast sends list i to node i.
type PerNode [][]any
