// Package halfedge builds and holds the half-edge connectivity of a polygon
// mesh used for Catmull-Clark subdivision.
//
// All half-edges of a mesh live in one slice. Next, Prev and Opposite are
// indices into that slice; Opposite is NoEdge on boundary and non-manifold
// edges. The half-edges of face f occupy [FaceStart[f], FaceStart[f]+degree)
// in loop order.
package halfedge

import (
	"fmt"
	"strings"
)

// NoEdge is the Opposite value of a half-edge without a partner.
const NoEdge int32 = -1

// Edge level limits applied to per-edge tessellation rates.
const (
	MinEdgeLevel float32 = 1
	MaxEdgeLevel float32 = 4096
)

// HalfEdge is one directed edge of a face.
type HalfEdge struct {
	Vertex   uint32 // origin vertex
	Face     uint32
	Next     int32
	Prev     int32
	Opposite int32

	EdgeCrease   float32 // sharpness of the undirected edge
	VertexCrease float32 // sharpness of the origin vertex
	Level        float32 // tessellation level of the edge
}

// HasOpposite reports whether the half-edge is paired.
func (e *HalfEdge) HasOpposite() bool {
	return e.Opposite != NoEdge
}

// BoundaryMode controls how faces on the mesh boundary are treated.
type BoundaryMode uint8

// Boundary modes.
const (
	// BoundaryNone makes every face that touches the boundary invalid.
	BoundaryNone BoundaryMode = iota
	// BoundaryEdgeOnly interpolates boundary edges as sharp creases.
	BoundaryEdgeOnly
	// BoundaryEdgeAndCorner also makes single-face boundary corners sharp.
	BoundaryEdgeAndCorner
)

// String returns the configuration name of the mode.
func (m BoundaryMode) String() string {
	switch m {
	case BoundaryNone:
		return "none"
	case BoundaryEdgeOnly:
		return "edge_only"
	case BoundaryEdgeAndCorner:
		return "edge_and_corner"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseBoundaryMode parses a configuration name as returned by String.
func ParseBoundaryMode(s string) (BoundaryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return BoundaryNone, nil
	case "edge_only", "edge-only", "edge":
		return BoundaryEdgeOnly, nil
	case "edge_and_corner", "edge-and-corner", "corner":
		return BoundaryEdgeAndCorner, nil
	default:
		return BoundaryNone, fmt.Errorf("unknown boundary mode %q", s)
	}
}

// Structure is the result of a build. It is immutable once returned; level
// and vertex refreshes produce a new Structure sharing the untouched parts.
type Structure struct {
	HalfEdges []HalfEdge
	FaceStart []uint32

	faceDegree   []uint32
	numVertices  int
	numTimeSteps int
	boundary     BoundaryMode

	// base holds the per-rebuild bits (holes, non-manifold, boundary under
	// BoundaryNone); validity adds the per-time-step vertex checks on top.
	base     *ValidityCache
	validity *ValidityCache

	holes         *HoleSet
	nonManifold   []EdgeKey
	vertexCreases *CreaseMap[uint32]
	edgeCreases   *CreaseMap[EdgeKey]
}

// NumFaces returns the number of faces.
func (s *Structure) NumFaces() int { return len(s.FaceStart) }

// NumHalfEdges returns the total number of half-edges.
func (s *Structure) NumHalfEdges() int { return len(s.HalfEdges) }

// NumVertices returns the vertex count the structure was built against.
func (s *Structure) NumVertices() int { return s.numVertices }

// NumTimeSteps returns the number of time steps validity is tracked for.
func (s *Structure) NumTimeSteps() int { return s.numTimeSteps }

// Boundary returns the boundary mode the structure was built with.
func (s *Structure) Boundary() BoundaryMode { return s.boundary }

// FaceEdge returns the first half-edge of face f.
func (s *Structure) FaceEdge(f int) int32 { return int32(s.FaceStart[f]) }

// FaceDegree returns the number of vertices of face f.
func (s *Structure) FaceDegree(f int) int { return int(s.faceDegree[f]) }

// Edge returns the half-edge at index e.
func (s *Structure) Edge(e int32) *HalfEdge { return &s.HalfEdges[e] }

// Next returns the next half-edge in the face loop.
func (s *Structure) Next(e int32) int32 { return s.HalfEdges[e].Next }

// Prev returns the previous half-edge in the face loop.
func (s *Structure) Prev(e int32) int32 { return s.HalfEdges[e].Prev }

// Opposite returns the paired half-edge or NoEdge.
func (s *Structure) Opposite(e int32) int32 { return s.HalfEdges[e].Opposite }

// Origin returns the origin vertex of e.
func (s *Structure) Origin(e int32) uint32 { return s.HalfEdges[e].Vertex }

// Dest returns the destination vertex of e.
func (s *Structure) Dest(e int32) uint32 { return s.HalfEdges[s.HalfEdges[e].Next].Vertex }

// ForEachFaceEdge calls fn for each half-edge of face f in loop order.
func (s *Structure) ForEachFaceEdge(f int, fn func(e int32)) {
	start := int32(s.FaceStart[f])
	for i := int32(0); i < int32(s.faceDegree[f]); i++ {
		fn(start + i)
	}
}

// FaceHasBorder reports whether any half-edge of face f lacks an opposite.
func (s *Structure) FaceHasBorder(f int) bool {
	start := s.FaceStart[f]
	for _, e := range s.HalfEdges[start : start+s.faceDegree[f]] {
		if e.Opposite == NoEdge {
			return true
		}
	}
	return false
}

// Valence returns the number of edges around the origin of e, walking
// opposite(prev(e)). ok is false if the walk reaches the boundary.
func (s *Structure) Valence(e int32) (valence int, ok bool) {
	cur := e
	for {
		valence++
		opp := s.HalfEdges[s.HalfEdges[cur].Prev].Opposite
		if opp == NoEdge {
			return valence, false
		}
		cur = opp
		if cur == e {
			return valence, true
		}
		if valence > len(s.HalfEdges) {
			// inconsistent linkage; treat like a boundary
			return valence, false
		}
	}
}

// VertexIsBoundary reports whether the origin of e lies on the boundary.
func (s *Structure) VertexIsBoundary(e int32) bool {
	_, ok := s.Valence(e)
	return !ok
}

// Valid reports whether face f can be evaluated at time step 0.
func (s *Structure) Valid(f int) bool {
	return s.ValidAt(f, 0)
}

// ValidAt reports whether face f can be evaluated at time step t.
// Under BoundaryNone the boundary test is taken from the half-edges, not
// from the cached bit.
func (s *Structure) ValidAt(f, t int) bool {
	if s.boundary == BoundaryNone && s.FaceHasBorder(f) {
		return false
	}
	return !s.validity.Invalid(f, t)
}

// CountValid returns the number of valid faces at time step t.
func (s *Structure) CountValid(t int) int {
	n := 0
	for f := range s.FaceStart {
		if s.ValidAt(f, t) {
			n++
		}
	}
	return n
}

// Validity returns the validity cache.
func (s *Structure) Validity() *ValidityCache { return s.validity }

// Holes returns the hole set.
func (s *Structure) Holes() *HoleSet { return s.holes }

// NonManifoldEdges returns the keys shared by more than two half-edges, or by
// two half-edges with the same orientation, sorted ascending.
func (s *Structure) NonManifoldEdges() []EdgeKey { return s.nonManifold }

// VertexCreases returns the vertex crease map, or nil for static builds.
func (s *Structure) VertexCreases() *CreaseMap[uint32] { return s.vertexCreases }

// EdgeCreases returns the edge crease map, or nil for static builds.
func (s *Structure) EdgeCreases() *CreaseMap[EdgeKey] { return s.edgeCreases }
