package halfedge

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/subdiv/internal/logger"
	"github.com/Faultbox/subdiv/internal/parallel"
	gomath "github.com/Faultbox/subdiv/pkg/math"
)

// PositionSource returns the vertex data of time step t and its stride in
// floats. The first three floats of each vertex are its position. A nil
// slice skips the finiteness check for that step.
type PositionSource func(t int) (data []float32, stride int)

// Topology is the input of a build. The slices are borrowed for the duration
// of the call and not retained.
type Topology struct {
	FaceVertices []uint32 // degree of each face
	Indices      []uint32 // vertex ids, concatenated face loops
	NumVertices  int
	NumTimeSteps int

	VertexCreaseIDs     []uint32
	VertexCreaseWeights []float32
	EdgeCreaseIDs       []uint32 // two vertex ids per crease edge
	EdgeCreaseWeights   []float32
	Holes               []uint32

	Levels           []float32 // per half-edge, optional
	TessellationRate float32   // used when Levels is nil

	Boundary  BoundaryMode
	Positions PositionSource
}

// Validate checks the topology for configuration errors.
func (t *Topology) Validate() error {
	if t.NumTimeSteps < 1 {
		return errors.Wrapf(ErrInvalidTimeSteps, "got %d", t.NumTimeSteps)
	}
	if len(t.Indices) > math.MaxInt32 {
		return errors.Wrapf(ErrTooManyHalfEdges, "%d indices", len(t.Indices))
	}

	var sum uint64
	for f, n := range t.FaceVertices {
		if n < 2 {
			return errors.Wrapf(ErrInvalidFaceDegree, "face %d has degree %d", f, n)
		}
		sum += uint64(n)
	}
	if sum != uint64(len(t.Indices)) {
		return errors.Wrapf(ErrIndexCountMismatch, "faces reference %d indices, buffer holds %d", sum, len(t.Indices))
	}
	for i, v := range t.Indices {
		if int(v) >= t.NumVertices {
			return errors.Wrapf(ErrVertexOutOfRange, "index %d references vertex %d of %d", i, v, t.NumVertices)
		}
	}
	if t.Levels != nil && len(t.Levels) != len(t.Indices) {
		return errors.Wrapf(ErrIndexCountMismatch, "%d edge levels for %d half-edges", len(t.Levels), len(t.Indices))
	}
	return nil
}

// EdgeLevel returns the tessellation level of half-edge i: the explicit level
// if levels is set, the global rate otherwise, clamped to
// [MinEdgeLevel, MaxEdgeLevel].
func EdgeLevel(levels []float32, rate float32, i int) float32 {
	if levels != nil {
		return gomath.Clamp(levels[i], MinEdgeLevel, MaxEdgeLevel)
	}
	return gomath.Clamp(rate, MinEdgeLevel, MaxEdgeLevel)
}

// Options configures a build.
type Options struct {
	// Pool runs the parallel phases; nil runs everything on the caller.
	Pool *parallel.WorkerPool
	// Grain is the minimum number of items per parallel task.
	Grain int
	// Static drops the crease maps once the half-edges carry the weights.
	Static bool
}

func (o Options) grain() int {
	if o.Grain <= 0 {
		return parallel.DefaultGrain
	}
	return o.Grain
}

// faceGrain sizes face-parallel loops; a face is a handful of half-edges.
func (o Options) faceGrain() int {
	return max(1, o.grain()/4)
}

// Build runs a full construction: validate, emit, sort, pair, attach creases
// and compute validity. On error nothing is returned and nothing is retained.
func Build(topo *Topology, opts Options) (*Structure, error) {
	start := time.Now()
	if err := topo.Validate(); err != nil {
		return nil, err
	}

	pool := opts.Pool
	grain := opts.grain()
	numFaces := len(topo.FaceVertices)

	vertexCreases, err := BuildVertexCreases(pool, topo.VertexCreaseIDs, topo.VertexCreaseWeights, topo.NumVertices)
	if err != nil {
		return nil, err
	}
	edgeCreases, err := BuildEdgeCreases(pool, topo.EdgeCreaseIDs, topo.EdgeCreaseWeights, topo.NumVertices)
	if err != nil {
		return nil, err
	}
	holes, err := BuildHoleSet(pool, topo.Holes, numFaces)
	if err != nil {
		return nil, err
	}

	faceStart, total := parallel.ExclusiveScan(pool, topo.FaceVertices, grain)
	edges := make([]HalfEdge, total)
	keys := make([]keyHalfEdge, total)

	// each face writes only its own slot range
	parallel.For(pool, numFaces, opts.faceGrain(), func(begin, end int) {
		for f := begin; f < end; f++ {
			first := faceStart[f]
			n := topo.FaceVertices[f]
			for i := uint32(0); i < n; i++ {
				idx := first + i
				next := first + (i+1)%n
				v0 := topo.Indices[idx]

				e := &edges[idx]
				*e = HalfEdge{
					Vertex:   v0,
					Face:     uint32(f),
					Next:     int32(next),
					Prev:     int32(first + (i+n-1)%n),
					Opposite: NoEdge,
					Level:    EdgeLevel(topo.Levels, topo.TessellationRate, int(idx)),
				}
				if w, ok := vertexCreases.Weight(v0); ok {
					e.VertexCrease = w
				}
				keys[idx] = keyHalfEdge{key: MakeEdgeKey(v0, topo.Indices[next]), edge: int32(idx)}
			}
		}
	})

	sorted := radixSort(pool, keys, make([]keyHalfEdge, total), grain)

	base := NewValidityCache(numFaces, topo.NumTimeSteps)
	blocks := parallel.Blocks(pool, len(sorted), grain)
	blockNonManifold := make([][]EdgeKey, len(blocks))
	parallel.ForBlocks(pool, blocks, func(block, begin, end int) {
		// a run that started in the previous block belongs to it
		i := begin
		for i > 0 && i < len(sorted) && sorted[i].key == sorted[i-1].key {
			i++
		}
		for i < end {
			j := i + 1
			for j < len(sorted) && sorted[j].key == sorted[i].key {
				j++
			}
			if !linkRun(edges, sorted[i:j], edgeCreases, base) {
				blockNonManifold[block] = append(blockNonManifold[block], sorted[i].key)
			}
			i = j
		}
	})
	var nonManifold []EdgeKey
	for _, ks := range blockNonManifold {
		nonManifold = append(nonManifold, ks...)
	}

	if topo.Boundary == BoundaryEdgeAndCorner {
		parallel.For(pool, len(edges), grain, func(begin, end int) {
			for i := begin; i < end; i++ {
				e := &edges[i]
				if e.Opposite != NoEdge || edges[e.Prev].Opposite != NoEdge {
					continue
				}
				if _, explicit := vertexCreases.Weight(e.Vertex); !explicit {
					e.VertexCrease = infiniteSharpness
				}
			}
		})
	}

	s := &Structure{
		HalfEdges:     edges,
		FaceStart:     faceStart,
		faceDegree:    append([]uint32(nil), topo.FaceVertices...),
		numVertices:   topo.NumVertices,
		numTimeSteps:  topo.NumTimeSteps,
		boundary:      topo.Boundary,
		base:          base,
		holes:         holes,
		nonManifold:   nonManifold,
		vertexCreases: vertexCreases,
		edgeCreases:   edgeCreases,
	}

	parallel.For(pool, numFaces, opts.faceGrain(), func(begin, end int) {
		for f := begin; f < end; f++ {
			if holes.Contains(f) || (topo.Boundary == BoundaryNone && s.FaceHasBorder(f)) {
				base.InvalidateAll(f)
			}
		}
	})

	s.validity = s.vertexValidity(pool, topo.Positions, opts.faceGrain())

	if opts.Static {
		s.vertexCreases = nil
		s.edgeCreases = nil
	}

	log := logger.Named("halfedge")
	log.Debug("half-edge structure built",
		zap.Int("faces", numFaces),
		zap.Int("half_edges", len(edges)),
		zap.Int("holes", holes.Len()),
		zap.String("boundary", topo.Boundary.String()),
		zap.Duration("elapsed", time.Since(start)),
	)
	if len(nonManifold) > 0 {
		log.Warn("non-manifold edges found, adjoining faces disabled",
			zap.Int("edges", len(nonManifold)),
		)
	}

	return s, nil
}

// linkRun pairs the half-edges sharing one key. It returns false for a
// non-manifold run: more than two half-edges, or two with the same
// orientation. Those stay unpaired and their faces become invalid.
func linkRun(edges []HalfEdge, run []keyHalfEdge, creases *CreaseMap[EdgeKey], base *ValidityCache) bool {
	switch {
	case len(run) == 1:
		edges[run[0].edge].EdgeCrease = infiniteSharpness
		return true

	case len(run) == 2 && edges[run[0].edge].Vertex != edges[run[1].edge].Vertex:
		a, b := run[0].edge, run[1].edge
		w, _ := creases.Weight(run[0].key)
		edges[a].Opposite = b
		edges[b].Opposite = a
		edges[a].EdgeCrease = w
		edges[b].EdgeCrease = w
		return true

	default:
		for _, it := range run {
			e := &edges[it.edge]
			e.Opposite = NoEdge
			e.EdgeCrease = infiniteSharpness
			base.InvalidateAll(int(e.Face))
		}
		return false
	}
}

// vertexValidity copies the base bits and adds, per time step, faces with a
// non-finite vertex position.
func (s *Structure) vertexValidity(pool *parallel.WorkerPool, positions PositionSource, grain int) *ValidityCache {
	v := s.base.clone()
	if positions == nil {
		return v
	}

	for t := 0; t < s.numTimeSteps; t++ {
		data, stride := positions(t)
		if data == nil {
			continue
		}
		parallel.For(pool, s.NumFaces(), grain, func(begin, end int) {
			for f := begin; f < end; f++ {
				first := s.FaceStart[f]
				for _, he := range s.HalfEdges[first : first+s.faceDegree[f]] {
					off := int(he.Vertex) * stride
					if off+3 > len(data) || !gomath.Vec3FromSlice(data[off:]).IsFinite() {
						v.Invalidate(f, t)
						break
					}
				}
			}
		})
	}
	return v
}

// WithLevels returns a copy of s with new edge levels. Connectivity, creases
// and validity are shared with s.
func (s *Structure) WithLevels(pool *parallel.WorkerPool, levels []float32, rate float32) (*Structure, error) {
	if levels != nil && len(levels) != len(s.HalfEdges) {
		return nil, errors.Wrapf(ErrIndexCountMismatch, "%d edge levels for %d half-edges", len(levels), len(s.HalfEdges))
	}

	c := *s
	c.HalfEdges = make([]HalfEdge, len(s.HalfEdges))
	parallel.For(pool, len(s.HalfEdges), parallel.DefaultGrain, func(begin, end int) {
		copy(c.HalfEdges[begin:end], s.HalfEdges[begin:end])
		for i := begin; i < end; i++ {
			c.HalfEdges[i].Level = EdgeLevel(levels, rate, i)
		}
	})
	return &c, nil
}

// WithVertices returns a copy of s whose validity reflects new vertex data.
func (s *Structure) WithVertices(pool *parallel.WorkerPool, positions PositionSource) *Structure {
	c := *s
	c.validity = s.vertexValidity(pool, positions, parallel.DefaultGrain/4)
	return &c
}

// Change describes which inputs changed since the previous build.
type Change uint32

// Change flags.
const (
	ChangeTopology Change = 1 << iota // face degrees or vertex indices
	ChangeCreases
	ChangeHoles
	ChangeBoundary
	ChangeLevels
	ChangeVertices

	structuralChanges = ChangeTopology | ChangeCreases | ChangeHoles | ChangeBoundary
)

// Structural reports whether c requires relinking the half-edges.
func (c Change) Structural() bool {
	return c&structuralChanges != 0
}

// String lists the set flags.
func (c Change) String() string {
	if c == 0 {
		return "none"
	}
	names := []string{"topology", "creases", "holes", "boundary", "levels", "vertices"}
	var parts []string
	for i, name := range names {
		if c&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Builder keeps the current structure across rebuilds and decides between
// a full build and the level-only refresh.
type Builder struct {
	opts        Options
	current     *Structure
	levelUpdate bool
}

// NewBuilder returns a builder with no structure yet.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// Run brings the structure up to date with topo. changes lists what changed
// since the previous successful Run and is ignored for the first one.
// On error the previous structure stays current.
func (b *Builder) Run(topo *Topology, changes Change) (*Structure, error) {
	switch {
	case b.current == nil || changes.Structural():
		s, err := Build(topo, b.opts)
		if err != nil {
			return nil, err
		}
		b.current = s
		b.levelUpdate = false

	case changes != 0:
		s := b.current
		if changes&ChangeLevels != 0 {
			var err error
			if s, err = s.WithLevels(b.opts.Pool, topo.Levels, topo.TessellationRate); err != nil {
				return nil, err
			}
		}
		if changes&ChangeVertices != 0 {
			s = s.WithVertices(b.opts.Pool, topo.Positions)
		}
		b.current = s
		b.levelUpdate = changes == ChangeLevels

	default:
		b.levelUpdate = false
	}
	return b.current, nil
}

// Current returns the latest structure, or nil before the first Run.
func (b *Builder) Current() *Structure {
	return b.current
}

// LevelUpdate reports whether the last Run changed nothing but edge levels,
// so acceleration data built over the structure may be refit.
func (b *Builder) LevelUpdate() bool {
	return b.levelUpdate
}
