package shard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotShardable is matched (errors.Is) by every ClassificationError
	ErrNotShardable = errors.New("not a shardable command")
	// ErrUnknownCommand is matched by ClassificationErrors for names missing from the command table
	ErrUnknownCommand = errors.New("unknown command")
	// ErrRoutingFailure is returned when no node can be determined for a key
	ErrRoutingFailure = errors.New("shard: routing failure")
	// ErrNotBroadcast is returned by Broadcast for commands that are not broadcast commands
	ErrNotBroadcast = errors.New("shard: not a broadcast command")
	// ErrNotPipelined is recorded for broadcast commands queued in a pipeline
	ErrNotPipelined = errors.New("shard: broadcast commands cannot be pipelined")
	// ErrBatchMismatch is recorded when a node answers a batch with fewer results than ops
	ErrBatchMismatch = errors.New("shard: batch reply does not match the number of operations")
	// ErrArgCount is returned when a PerNode argument set does not have one list per node
	ErrArgCount = errors.New("shard: per-node argument lists do not match the node count")
	// ErrDuplicateNode is returned when two nodes share a name
	ErrDuplicateNode = errors.New("shard: duplicate node name")
	// ErrInvalidNode is returned for nodes without a name or connection
	ErrInvalidNode = errors.New("shard: invalid node")
	// ErrClosed is returned by operations on a closed router
	ErrClosed = errors.New("shard: router is closed")
)

// ClassificationError is returned synchronously, before any I/O, for commands that
// cannot be executed on a sharded deployment.
type ClassificationError struct {
	Command string
	Variant Variant
}

func (e *ClassificationError) Error() string {
	return e.Command + " is not a shardable command"
}

// Is makes errors.Is(err, ErrNotShardable) (and ErrUnknownCommand for unknown names) work.
func (e *ClassificationError) Is(target error) bool {
	if target == ErrNotShardable {
		return true
	}
	return target == ErrUnknownCommand && e.Variant == Unknown
}

// PartialError is returned by Broadcast when at least one node failed.
// The result map still holds the outcome of every node.
type PartialError struct {
	Command string
	Failed  map[string]error
}

func (e *PartialError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %v", name, e.Failed[name])
	}
	return fmt.Sprintf("shard: %s failed on %d node(s): %s", e.Command, len(names), strings.Join(parts, "; "))
}

// Unwrap exposes the per-node errors to errors.Is and errors.As
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}
