package patch

import (
	"github.com/pkg/errors"

	"github.com/Faultbox/subdiv/internal/halfedge"
)

// Builder builds evaluation trees. The zero value is ready to use.
type Builder struct {
	// Bilinear disables the B-spline path for regular quads.
	Bilinear bool
}

// gridPos is a (row, col) position in the 4x4 B-spline control grid.
type gridPos struct{ row, col int }

// Corner placement in the control grid and the grid directions of the local
// u axis (along the outgoing edge) and v axis (against the incoming edge).
var (
	cornerPos = [4]gridPos{{1, 1}, {1, 2}, {2, 2}, {2, 1}}
	cornerU   = [4]gridPos{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	cornerV   = [4]gridPos{{1, 0}, {0, -1}, {-1, 0}, {0, 1}}
)

// Build builds the tree of face f from src.
func (b *Builder) Build(s *halfedge.Structure, f int, src Source) (*Tree, error) {
	if f < 0 || f >= s.NumFaces() {
		return nil, errors.Wrapf(ErrFaceOutOfRange, "face %d of %d", f, s.NumFaces())
	}
	if err := src.validate(s.NumVertices()); err != nil {
		return nil, err
	}

	t := &Tree{Face: uint32(f), numFloats: src.NumFloats}
	n := s.FaceDegree(f)
	switch {
	case n == 4 && !b.Bilinear && regular(s, f):
		t.Kind = KindBSpline
		t.nodes = []node{{kind: KindBSpline, cp: gatherGrid(s, f, src)}}
	case n == 4:
		t.Kind = KindBilinear
		t.nodes = []node{{kind: KindBilinear, cp: gatherCorners(s, f, src)}}
	default:
		t.Kind = KindNGon
		t.nodes = ngonNodes(s, f, src)
	}
	return t, nil
}

// regular reports whether quad f has a regular, crease-free one-ring: every
// corner is interior with valence 4 and all surrounding faces are quads.
func regular(s *halfedge.Structure, f int) bool {
	ok := true
	s.ForEachFaceEdge(f, func(h int32) {
		if !ok {
			return
		}
		e := s.Edge(h)
		if e.EdgeCrease != 0 || e.VertexCrease != 0 {
			ok = false
			return
		}
		if n, interior := s.Valence(h); !interior || n != 4 {
			ok = false
			return
		}
		o := s.Opposite(s.Prev(h))
		o2 := s.Opposite(s.Prev(o))
		if o2 == halfedge.NoEdge ||
			s.FaceDegree(int(s.Edge(o).Face)) != 4 ||
			s.FaceDegree(int(s.Edge(o2).Face)) != 4 ||
			s.Edge(s.Prev(o)).EdgeCrease != 0 || s.Edge(s.Prev(o2)).EdgeCrease != 0 {
			ok = false
		}
	})
	return ok
}

// gatherGrid collects the 16 control points of a regular quad. For each
// corner the three points outside the face are found by walking across the
// incoming edge and then once more around the corner.
func gatherGrid(s *halfedge.Structure, f int, src Source) []float32 {
	nf := src.NumFloats
	cp := make([]float32, 16*nf)
	put := func(p gridPos, v uint32) {
		copy(cp[(p.row*4+p.col)*nf:], src.Data[int(v)*src.Stride:int(v)*src.Stride+nf])
	}

	i := 0
	s.ForEachFaceEdge(f, func(h int32) {
		c, du, dv := cornerPos[i], cornerU[i], cornerV[i]
		at := func(a, b int) gridPos {
			return gridPos{c.row + a*du.row + b*dv.row, c.col + a*du.col + b*dv.col}
		}

		o := s.Opposite(s.Prev(h))
		o2 := s.Opposite(s.Prev(o))

		put(c, s.Origin(h))
		put(at(-1, 0), s.Origin(s.Prev(o)))
		put(at(-1, -1), s.Origin(s.Next(s.Next(o2))))
		put(at(0, -1), s.Origin(s.Prev(o2)))
		i++
	})
	return cp
}

func gatherCorners(s *halfedge.Structure, f int, src Source) []float32 {
	nf := src.NumFloats
	cp := make([]float32, 0, 4*nf)
	s.ForEachFaceEdge(f, func(h int32) {
		off := int(s.Origin(h)) * src.Stride
		cp = append(cp, src.Data[off:off+nf]...)
	})
	return cp
}

// ngonNodes splits a face of degree n into n bilinear sub-quads: corner i,
// midpoint of the outgoing edge, centroid, midpoint of the incoming edge.
func ngonNodes(s *halfedge.Structure, f int, src Source) []node {
	nf := src.NumFloats
	n := s.FaceDegree(f)
	corners := gatherCorners(s, f, src)

	centroid := make([]float32, nf)
	for i := 0; i < n; i++ {
		for k := 0; k < nf; k++ {
			centroid[k] += corners[i*nf+k]
		}
	}
	for k := range centroid {
		centroid[k] /= float32(n)
	}

	nodes := make([]node, n)
	for i := 0; i < n; i++ {
		next := (i + 1) % n
		prev := (i + n - 1) % n
		cp := make([]float32, 4*nf)
		for k := 0; k < nf; k++ {
			c := corners[i*nf+k]
			cp[k] = c
			cp[nf+k] = (c + corners[next*nf+k]) / 2
			cp[2*nf+k] = centroid[k]
			cp[3*nf+k] = (c + corners[prev*nf+k]) / 2
		}
		nodes[i] = node{kind: KindBilinear, cp: cp}
	}
	return nodes
}
