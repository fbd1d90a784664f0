package subdiv

import (
	"github.com/pkg/errors"

	"github.com/Faultbox/subdiv/internal/halfedge"
	gomath "github.com/Faultbox/subdiv/pkg/math"
)

// Structure returns the current half-edge structure, or nil before the
// first successful Commit.
func (m *Mesh) Structure() *halfedge.Structure {
	return m.structure.Load()
}

func (m *Mesh) built() (*halfedge.Structure, error) {
	s := m.structure.Load()
	if s == nil {
		return nil, ErrNotBuilt
	}
	return s, nil
}

// Size returns the number of faces of the committed structure.
func (m *Mesh) Size() int {
	if s := m.structure.Load(); s != nil {
		return s.NumFaces()
	}
	return 0
}

// Generation returns the cache generation. It advances on every commit
// that changes what interpolation returns.
func (m *Mesh) Generation() uint64 {
	return m.generation.Load()
}

// LevelUpdate reports whether the last Commit only refreshed edge levels.
func (m *Mesh) LevelUpdate() bool {
	return m.rebuild == RebuildLevels
}

// Valid reports whether face f can be evaluated at time step 0.
func (m *Mesh) Valid(f int) bool {
	return m.ValidAt(f, 0)
}

// ValidAt reports whether face f can be evaluated at time step t. Out of
// range arguments and an uncommitted mesh report false.
func (m *Mesh) ValidAt(f, t int) bool {
	s := m.structure.Load()
	if s == nil || f < 0 || f >= s.NumFaces() || t < 0 || t >= s.NumTimeSteps() {
		return false
	}
	return s.ValidAt(f, t)
}

// NonManifoldEdges returns the edges whose faces were disabled because more
// than two faces, or two faces with the same orientation, share them.
func (m *Mesh) NonManifoldEdges() []halfedge.EdgeKey {
	if s := m.structure.Load(); s != nil {
		return s.NonManifoldEdges()
	}
	return nil
}

// HalfEdge returns the index of the first half-edge of face f in
// Structure().HalfEdges.
func (m *Mesh) HalfEdge(f int) (int32, error) {
	s, err := m.built()
	if err != nil {
		return halfedge.NoEdge, err
	}
	if f < 0 || f >= s.NumFaces() {
		return halfedge.NoEdge, errors.Wrapf(ErrPrimitiveOutOfRange, "face %d of %d", f, s.NumFaces())
	}
	return s.FaceEdge(f), nil
}

// EdgeLevel returns the tessellation level of half-edge i.
func (m *Mesh) EdgeLevel(i int) (float32, error) {
	s, err := m.built()
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= s.NumHalfEdges() {
		return 0, errors.Wrapf(ErrPrimitiveOutOfRange, "half-edge %d of %d", i, s.NumHalfEdges())
	}
	return s.HalfEdges[i].Level, nil
}

// VertexBuffer returns the vertex data of time step t and its stride.
func (m *Mesh) VertexBuffer(t int) ([]float32, int, error) {
	if t < 0 || t >= m.timeSteps {
		return nil, 0, errors.Wrapf(ErrTimeStepOutOfRange, "time step %d of %d", t, m.timeSteps)
	}
	vb := m.vertices[t]
	if vb.data == nil {
		return nil, 0, errors.Wrapf(ErrBufferNotSet, "vertex buffer for time step %d", t)
	}
	return vb.data, vb.stride, nil
}

// Bounds returns the bounds of face f at time step t, grown by the faces
// sharing an edge with it since the limit surface depends on them.
func (m *Mesh) Bounds(f, t int) (gomath.Bounds, error) {
	s, err := m.built()
	if err != nil {
		return gomath.EmptyBounds(), err
	}
	if f < 0 || f >= s.NumFaces() {
		return gomath.EmptyBounds(), errors.Wrapf(ErrPrimitiveOutOfRange, "face %d of %d", f, s.NumFaces())
	}
	data, stride, err := m.VertexBuffer(t)
	if err != nil {
		return gomath.EmptyBounds(), err
	}

	b := gomath.EmptyBounds()
	extend := func(face int) {
		s.ForEachFaceEdge(face, func(e int32) {
			off := int(s.Origin(e)) * stride
			if off+3 <= len(data) {
				b = b.Extend(gomath.Vec3FromSlice(data[off:]))
			}
		})
	}

	extend(f)
	s.ForEachFaceEdge(f, func(e int32) {
		if opp := s.Opposite(e); opp != halfedge.NoEdge {
			extend(int(s.Edge(opp).Face))
		}
	})
	return b, nil
}
