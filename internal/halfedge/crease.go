package halfedge

import (
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/Faultbox/subdiv/internal/parallel"
)

// SharpnessCeiling is the crease weight at and above which an edge or vertex
// is infinitely sharp. Weights are stored as given; the ceiling is only
// applied when a patch is evaluated.
const SharpnessCeiling float32 = 10

// IsInfinitelySharp reports whether w denotes an infinitely sharp crease.
func IsInfinitelySharp(w float32) bool {
	return w >= SharpnessCeiling
}

// infiniteSharpness marks boundary and non-manifold edges and boundary
// corners.
var infiniteSharpness = float32(math.Inf(1))

const creaseShards = 16

// CreaseMap maps a vertex id or an EdgeKey to a sharpness weight.
//
// It is filled concurrently by BuildVertexCreases / BuildEdgeCreases and is
// read-only afterwards; Weight must not be called while a build is running.
// When an id appears more than once in the input, the entry with the highest
// input position wins, whichever worker inserted it.
type CreaseMap[K comparable] struct {
	shards [creaseShards]creaseShard[K]
	hash   func(K) uint64
}

type creaseShard[K comparable] struct {
	mu      sync.Mutex
	entries map[K]creaseEntry
}

type creaseEntry struct {
	weight float32
	pos    int
}

func newCreaseMap[K comparable](hint int, hash func(K) uint64) *CreaseMap[K] {
	m := &CreaseMap[K]{hash: hash}
	for i := range m.shards {
		m.shards[i].entries = make(map[K]creaseEntry, hint/creaseShards+1)
	}
	return m
}

func (m *CreaseMap[K]) shard(k K) *creaseShard[K] {
	return &m.shards[m.hash(k)>>60]
}

// insert stores w for k unless an entry from a later input position exists.
func (m *CreaseMap[K]) insert(k K, w float32, pos int) {
	s := m.shard(k)
	s.mu.Lock()
	if e, ok := s.entries[k]; !ok || e.pos < pos {
		s.entries[k] = creaseEntry{weight: w, pos: pos}
	}
	s.mu.Unlock()
}

// Weight returns the weight stored for k.
func (m *CreaseMap[K]) Weight(k K) (float32, bool) {
	if m == nil {
		return 0, false
	}
	e, ok := m.shard(k).entries[k]
	return e.weight, ok
}

// Len returns the number of distinct keys.
func (m *CreaseMap[K]) Len() int {
	if m == nil {
		return 0
	}
	n := 0
	for i := range m.shards {
		n += len(m.shards[i].entries)
	}
	return n
}

func vertexHash(v uint32) uint64 {
	return uint64(v) * 0x9e3779b97f4a7c15
}

// BuildVertexCreases builds the vertex crease map from parallel id and weight
// arrays.
func BuildVertexCreases(pool *parallel.WorkerPool, ids []uint32, weights []float32, numVertices int) (*CreaseMap[uint32], error) {
	if len(ids) != len(weights) {
		return nil, errors.Wrapf(ErrIndexCountMismatch, "%d vertex crease ids, %d weights", len(ids), len(weights))
	}
	for i, v := range ids {
		if int(v) >= numVertices {
			return nil, errors.Wrapf(ErrCreaseOutOfRange, "vertex crease %d references vertex %d of %d", i, v, numVertices)
		}
	}

	m := newCreaseMap[uint32](len(ids), vertexHash)
	parallel.For(pool, len(ids), parallel.DefaultGrain, func(begin, end int) {
		for i := begin; i < end; i++ {
			m.insert(ids[i], weights[i], i)
		}
	})
	return m, nil
}

// BuildEdgeCreases builds the edge crease map. ids holds two vertex ids per
// crease edge, in either order.
func BuildEdgeCreases(pool *parallel.WorkerPool, ids []uint32, weights []float32, numVertices int) (*CreaseMap[EdgeKey], error) {
	if len(ids) != 2*len(weights) {
		return nil, errors.Wrapf(ErrIndexCountMismatch, "%d edge crease ids for %d weights", len(ids), len(weights))
	}
	for i, v := range ids {
		if int(v) >= numVertices {
			return nil, errors.Wrapf(ErrCreaseOutOfRange, "edge crease %d references vertex %d of %d", i/2, v, numVertices)
		}
	}

	m := newCreaseMap[EdgeKey](len(weights), EdgeKey.hash)
	parallel.For(pool, len(weights), parallel.DefaultGrain, func(begin, end int) {
		for i := begin; i < end; i++ {
			m.insert(MakeEdgeKey(ids[2*i], ids[2*i+1]), weights[i], i)
		}
	})
	return m, nil
}
