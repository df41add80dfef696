package ring

import (
	"errors"
	"math"
	"sort"
	"strconv"
)

// DefaultReplicas is the number of virtual points placed on the ring per node.
const DefaultReplicas = 128

// ErrEmptyRing is returned by Resolve when no node has been added to the ring.
var ErrEmptyRing = errors.New("ring: no nodes registered")

// Point is a single virtual node on the ring
type Point struct {
	Hash int32  `json:"hash" yaml:"hash"`
	Node string `json:"node" yaml:"node"`
}

// Ring is a consistent hashing ring with a fixed number of virtual points per node.
//
// The points are kept in one slice sorted ascending by hash. A Ring is not safe for
// concurrent mutation; callers that change membership while resolving keys must
// build a new Ring and swap a single reference to it.
type Ring struct {
	replicas   int
	hash       HashFunc
	wrap       bool
	guardDupes bool

	nodes  []string
	points []Point
}

// Option configures a Ring
type Option func(r *Ring)

// WithHashFunc replaces the default CRC32 hash function.
func WithHashFunc(f HashFunc) Option {
	return func(r *Ring) {
		if f != nil {
			r.hash = f
		}
	}
}

// WithWrapAround selects canonical consistent hashing: a hash above the largest point
// wraps to the first point. Without it the lookup clamps to the last point, which is
// what existing clients of the key space do.
func WithWrapAround(wrap bool) Option {
	return func(r *Ring) {
		r.wrap = wrap
	}
}

// WithDuplicateGuard makes AddNode ignore nodes that are already on the ring.
// Without the guard a second AddNode for the same name adds a second full set of points.
func WithDuplicateGuard(guard bool) Option {
	return func(r *Ring) {
		r.guardDupes = guard
	}
}

// New creates an empty ring. A replica count <= 0 selects DefaultReplicas.
func New(replicas int, opts ...Option) *Ring {
	if replicas <= 0 {
		replicas = DefaultReplicas
	}
	r := &Ring{
		replicas: replicas,
		hash:     CRC32,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// --------------------------------------------------------------------------
// Mutation
// --------------------------------------------------------------------------

// AddNode places `replicas` points for node on the ring, point i being hash(node + ":" + i),
// and re-sorts the points.
func (r *Ring) AddNode(node string) {
	if r.guardDupes && r.Has(node) {
		return
	}

	r.nodes = append(r.nodes, node)
	for i := 0; i < r.replicas; i++ {
		r.points = append(r.points, Point{
			Hash: r.hash(node + ":" + strconv.Itoa(i)),
			Node: node,
		})
	}

	// stable, so equal hashes keep their insertion order
	sort.SliceStable(r.points, func(i, j int) bool {
		return r.points[i].Hash < r.points[j].Hash
	})
}

// RemoveNode removes every point of node from the ring.
func (r *Ring) RemoveNode(node string) {
	nodes := r.nodes[:0]
	for _, n := range r.nodes {
		if n != node {
			nodes = append(nodes, n)
		}
	}
	r.nodes = nodes

	points := r.points[:0]
	for _, p := range r.points {
		if p.Node != node {
			points = append(points, p)
		}
	}
	r.points = points
}

// --------------------------------------------------------------------------
// Lookup
// --------------------------------------------------------------------------

// Resolve returns the node owning key: the node of the first point whose hash is
// greater or equal to hash(key). Keys hashing above the largest point belong to the
// last point unless the ring was created WithWrapAround.
func (r *Ring) Resolve(key string) (string, error) {
	if len(r.points) == 0 {
		return "", ErrEmptyRing
	}

	h := r.hash(key)
	idx := sort.Search(len(r.points), func(i int) bool {
		return r.points[i].Hash >= h
	})

	if idx == len(r.points) {
		if r.wrap {
			idx = 0
		} else {
			idx = len(r.points) - 1
		}
	}
	return r.points[idx].Node, nil
}

// Has reports whether node was added to the ring
func (r *Ring) Has(node string) bool {
	for _, n := range r.nodes {
		if n == node {
			return true
		}
	}
	return false
}

// Nodes returns the registered nodes in registration order (a node added twice appears twice).
func (r *Ring) Nodes() []string {
	out := make([]string, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Points returns a copy of the sorted points.
func (r *Ring) Points() []Point {
	out := make([]Point, len(r.points))
	copy(out, r.points)
	return out
}

// Len returns the number of points on the ring
func (r *Ring) Len() int { return len(r.points) }

func (r *Ring) Replicas() int { return r.replicas }

func (r *Ring) WrapAround() bool { return r.wrap }

// Ownership returns the share of the hash space (0..1) owned by each node.
// A point owns the hashes between its predecessor (exclusive) and itself.
func (r *Ring) Ownership() map[string]float64 {
	out := make(map[string]float64, len(r.nodes))
	if len(r.points) == 0 {
		return out
	}

	const space = float64(math.MaxUint32) + 1
	prev := int64(math.MinInt32) - 1
	for _, p := range r.points {
		out[p.Node] += float64(int64(p.Hash)-prev) / space
		prev = int64(p.Hash)
	}

	// hashes above the largest point
	rest := float64(int64(math.MaxInt32)-prev) / space
	if r.wrap {
		out[r.points[0].Node] += rest
	} else {
		out[r.points[len(r.points)-1].Node] += rest
	}
	return out
}
