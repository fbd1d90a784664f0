// Package subdiv holds subdivision meshes: the application-facing buffers,
// the rebuild decision between a full half-edge build and a level-only
// refresh, per-face queries and interpolation through the shared
// tessellation cache.
package subdiv

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/subdiv/internal/halfedge"
	"github.com/Faultbox/subdiv/internal/logger"
	"github.com/Faultbox/subdiv/internal/parallel"
	"github.com/Faultbox/subdiv/internal/patch"
	"github.com/Faultbox/subdiv/internal/tesscache"
)

// Cache is the tessellation cache a mesh resolves patch trees through.
// *tesscache.Cache[*patch.Tree] implements it.
type Cache interface {
	GetOrBuild(key tesscache.Key, gen uint64, build func() (*patch.Tree, error)) (*patch.Tree, error)
	InvalidateOwner(owner uuid.UUID) int
}

// PatchBuilder builds the evaluation tree of one face.
// *patch.Builder implements it.
type PatchBuilder interface {
	Build(s *halfedge.Structure, face int, src patch.Source) (*patch.Tree, error)
}

// Options configures a mesh.
type Options struct {
	TimeSteps        int // defaults to 1
	Boundary         halfedge.BoundaryMode
	TessellationRate float32 // defaults to 1

	Pool   *parallel.WorkerPool
	Grain  int
	Static bool

	// Cache defaults to a private tesscache.Cache.
	Cache Cache
	// Patches defaults to patch.Builder.
	Patches PatchBuilder
}

// Mesh is one subdivision mesh. Setters and Commit must not run
// concurrently with queries; queries may run concurrently with each other.
type Mesh struct {
	id        uuid.UUID
	timeSteps int
	boundary  halfedge.BoundaryMode
	rate      float32

	faces       []uint32
	indices     []uint32
	edgeCreases []uint32
	edgeWeights []float32
	vertCreases []uint32
	vertWeights []float32
	holes       []uint32
	levels      []float32
	vertices    []floatBuffer // per time step
	user        [2]floatBuffer
	set         [numBufferTypes]bool

	changes     halfedge.Change
	userChanged bool
	rebuild     Rebuild

	builder    *halfedge.Builder
	structure  atomic.Pointer[halfedge.Structure]
	generation atomic.Uint64

	cache   Cache
	patches PatchBuilder
	log     *zap.Logger
}

// New returns an uncommitted mesh.
func New(opts Options) *Mesh {
	if opts.TimeSteps < 1 {
		opts.TimeSteps = 1
	}
	if opts.TessellationRate <= 0 {
		opts.TessellationRate = 1
	}
	if opts.Cache == nil {
		opts.Cache = tesscache.New[*patch.Tree](tesscache.Options{})
	}
	if opts.Patches == nil {
		opts.Patches = &patch.Builder{}
	}

	id := uuid.New()
	return &Mesh{
		id:        id,
		timeSteps: opts.TimeSteps,
		boundary:  opts.Boundary,
		rate:      opts.TessellationRate,
		vertices:  make([]floatBuffer, opts.TimeSteps),
		builder: halfedge.NewBuilder(halfedge.Options{
			Pool:   opts.Pool,
			Grain:  opts.Grain,
			Static: opts.Static,
		}),
		cache:   opts.Cache,
		patches: opts.Patches,
		log:     logger.Named("subdiv").With(zap.Stringer("mesh", id)),
	}
}

// ID returns the identity the mesh uses in the tessellation cache.
func (m *Mesh) ID() uuid.UUID { return m.id }

// TimeSteps returns the number of vertex time steps.
func (m *Mesh) TimeSteps() int { return m.timeSteps }

// SetUint32Buffer sets a face, index, crease index or hole buffer. The slice
// is retained; call UpdateBuffer after mutating it in place.
func (m *Mesh) SetUint32Buffer(b BufferType, data []uint32) error {
	if !b.isUint32() {
		return errors.Wrapf(ErrUnsupportedBuffer, "%s is not a uint32 buffer", b)
	}
	switch b {
	case BufferFaces:
		m.faces = data
	case BufferIndices:
		m.indices = data
	case BufferEdgeCreaseIndices:
		m.edgeCreases = data
	case BufferVertexCreaseIndices:
		m.vertCreases = data
	case BufferHoles:
		m.holes = data
	}
	m.markSet(b)
	return nil
}

// SetFloatBuffer sets a float buffer. t selects the time step of a vertex
// buffer and is ignored otherwise. stride is the number of floats per
// element; weights and levels use 1. The slice is retained.
func (m *Mesh) SetFloatBuffer(b BufferType, t int, data []float32, stride int) error {
	if b.isUint32() || b >= numBufferTypes {
		return errors.Wrapf(ErrUnsupportedBuffer, "%s is not a float buffer", b)
	}
	switch b {
	case BufferVertex:
		if t < 0 || t >= m.timeSteps {
			return errors.Wrapf(ErrTimeStepOutOfRange, "time step %d of %d", t, m.timeSteps)
		}
		if stride < 3 {
			return errors.Wrapf(ErrFloatCount, "vertex stride %d", stride)
		}
		m.vertices[t] = floatBuffer{data: data, stride: stride}
	case BufferUser0, BufferUser1:
		if stride < 1 {
			return errors.Wrapf(ErrFloatCount, "user stride %d", stride)
		}
		m.user[b-BufferUser0] = floatBuffer{data: data, stride: stride}
	case BufferEdgeCreaseWeights:
		m.edgeWeights = data
	case BufferVertexCreaseWeights:
		m.vertWeights = data
	case BufferLevels:
		m.levels = data
	}
	m.markSet(b)
	return nil
}

func (m *Mesh) markSet(b BufferType) {
	m.set[b] = true
	m.UpdateBuffer(b)
}

// UpdateBuffer records that the contents of b changed.
func (m *Mesh) UpdateBuffer(b BufferType) {
	m.changes |= b.change()
	if b == BufferUser0 || b == BufferUser1 {
		m.userChanged = true
	}
}

// Update records that every buffer changed.
func (m *Mesh) Update() {
	for b := BufferType(0); b < numBufferTypes; b++ {
		m.UpdateBuffer(b)
	}
}

// SetBoundaryMode changes the boundary mode; the next Commit rebuilds.
func (m *Mesh) SetBoundaryMode(mode halfedge.BoundaryMode) {
	if mode != m.boundary {
		m.boundary = mode
		m.changes |= halfedge.ChangeBoundary
	}
}

// SetTessellationRate changes the fallback edge level used without a
// levels buffer.
func (m *Mesh) SetTessellationRate(rate float32) {
	if rate != m.rate {
		m.rate = rate
		m.changes |= halfedge.ChangeLevels
	}
}

// Rebuild is the kind of work a Commit did.
type Rebuild uint8

// Rebuild kinds.
const (
	RebuildNone Rebuild = iota
	// RebuildFull rebuilt the half-edge structure from the buffers.
	RebuildFull
	// RebuildVertices kept the topology and rechecked vertex validity.
	RebuildVertices
	// RebuildLevels only refreshed the edge tessellation levels.
	RebuildLevels
)

func (r Rebuild) String() string {
	switch r {
	case RebuildNone:
		return "none"
	case RebuildFull:
		return "full"
	case RebuildVertices:
		return "vertices"
	case RebuildLevels:
		return "levels"
	default:
		return "unknown"
	}
}

// LastRebuild returns what the last successful Commit did.
func (m *Mesh) LastRebuild() Rebuild { return m.rebuild }

// Pending returns the changes recorded since the last successful Commit.
func (m *Mesh) Pending() halfedge.Change { return m.changes }

func (m *Mesh) topology() (*halfedge.Topology, error) {
	for _, b := range []BufferType{BufferFaces, BufferIndices, BufferVertex} {
		if !m.set[b] {
			return nil, errors.Wrapf(ErrBufferNotSet, "%s", b)
		}
	}

	n := m.vertices[0].count()
	for t, v := range m.vertices {
		if v.data == nil {
			return nil, errors.Wrapf(ErrBufferNotSet, "%s time step %d", BufferVertex, t)
		}
		if c := v.count(); c != n {
			return nil, errors.Wrapf(ErrVertexCountMismatch, "time step %d has %d vertices, time step 0 has %d", t, c, n)
		}
	}

	topo := &halfedge.Topology{
		FaceVertices:        m.faces,
		Indices:             m.indices,
		NumVertices:         n,
		NumTimeSteps:        m.timeSteps,
		VertexCreaseIDs:     m.vertCreases,
		VertexCreaseWeights: m.vertWeights,
		EdgeCreaseIDs:       m.edgeCreases,
		EdgeCreaseWeights:   m.edgeWeights,
		Holes:               m.holes,
		TessellationRate:    m.rate,
		Boundary:            m.boundary,
		Positions: func(t int) ([]float32, int) {
			return m.vertices[t].data, m.vertices[t].stride
		},
	}
	if m.set[BufferLevels] {
		topo.Levels = m.levels
	}
	return topo, nil
}

// Commit brings the half-edge structure up to date with the buffers.
//
// Topology, crease, hole or boundary changes rebuild the structure and drop
// the mesh's cache entries. Level-only changes refresh the edge levels in
// place of a rebuild. Vertex or user data changes recompute validity and
// advance the cache generation so stale trees get rebuilt on demand.
// On error the previous structure stays current and the pending changes
// are kept.
func (m *Mesh) Commit() error {
	start := time.Now()
	topo, err := m.topology()
	if err != nil {
		return err
	}

	changes := m.changes
	prev := m.structure.Load()
	if prev != nil && prev.NumVertices() != topo.NumVertices {
		// indices must be checked against the new vertex count
		changes |= halfedge.ChangeTopology
	}

	s, err := m.builder.Run(topo, changes)
	if err != nil {
		m.log.Warn("rebuild failed", zap.Stringer("changes", changes), zap.Error(err))
		return err
	}

	kind := RebuildNone
	switch {
	case prev == nil || changes.Structural():
		kind = RebuildFull
		m.cache.InvalidateOwner(m.id)
		m.generation.Add(1)
	case changes&halfedge.ChangeVertices != 0 || m.userChanged:
		kind = RebuildVertices
		m.generation.Add(1)
	case m.builder.LevelUpdate():
		kind = RebuildLevels
	}

	m.structure.Store(s)
	m.changes = 0
	m.userChanged = false
	m.rebuild = kind

	m.log.Debug("mesh committed",
		zap.Stringer("rebuild", kind),
		zap.Stringer("changes", changes),
		zap.Uint64("generation", m.generation.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
