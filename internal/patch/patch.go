// Package patch evaluates limit-surface approximations of single faces of a
// half-edge mesh.
//
// A Tree is built per (face, buffer, time step) and is immutable afterwards,
// so one tree can be shared by any number of concurrent evaluations.
// Regular interior quads evaluate as uniform bicubic B-spline patches, other
// quads bilinearly and faces of any other degree as a fan of bilinear
// sub-quads around the centroid.
package patch

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the evaluation scheme of a tree.
type Kind uint8

// Patch kinds.
const (
	KindBSpline Kind = iota
	KindBilinear
	KindNGon
)

func (k Kind) String() string {
	switch k {
	case KindBSpline:
		return "bspline"
	case KindBilinear:
		return "bilinear"
	case KindNGon:
		return "ngon"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Errors returned while building a tree.
var (
	ErrFaceOutOfRange = errors.New("face out of range")
	ErrShortSource    = errors.New("source buffer too short")
	ErrBadSource      = errors.New("invalid source layout")
)

// Source describes the per-vertex data a tree is built from. Vertex v
// occupies Data[v*Stride : v*Stride+NumFloats].
type Source struct {
	Data      []float32
	Stride    int
	NumFloats int
}

func (s Source) validate(numVertices int) error {
	if s.NumFloats <= 0 || s.Stride < s.NumFloats {
		return errors.Wrapf(ErrBadSource, "%d floats with stride %d", s.NumFloats, s.Stride)
	}
	if numVertices > 0 && (numVertices-1)*s.Stride+s.NumFloats > len(s.Data) {
		return errors.Wrapf(ErrShortSource, "%d floats for %d vertices with stride %d", len(s.Data), numVertices, s.Stride)
	}
	return nil
}

// Output receives an evaluation. Each requested slice is laid out per float
// then per lane: component k of lane i lives at [k*stride+i]. A nil slice is
// not computed.
type Output struct {
	P       []float32
	DPdu    []float32
	DPdv    []float32
	DDPdudu []float32
	DDPdvdv []float32
	DDPdudv []float32

	NumFloats int
}

// MinLen returns the slice length needed for n lanes.
func (o *Output) MinLen(lanes int) int {
	return o.NumFloats * lanes
}

// Tree is the evaluation structure of one face.
type Tree struct {
	Face uint32
	Kind Kind

	numFloats int
	// one node for quads, one per corner for n-gons
	nodes []node
}

type node struct {
	kind Kind
	cp   []float32 // 16 (bspline) or 4 (bilinear) points of numFloats each
}

// NumFloats returns the number of components per evaluated point.
func (t *Tree) NumFloats() int { return t.numFloats }

// Eval evaluates the tree at (u, v) and writes lane of out with the given
// lane stride. u and v are clamped to [0, 1].
func (t *Tree) Eval(u, v float32, out Output, lane, stride int) {
	u = clamp01(u)
	v = clamp01(v)

	nd := &t.nodes[0]
	scale := float32(1)
	if t.Kind == KindNGon {
		n := len(t.nodes)
		x := u * float32(n)
		i := int(x)
		if i >= n {
			i = n - 1
		}
		nd = &t.nodes[i]
		u = x - float32(i)
		scale = float32(n)
	}

	nf := min(out.NumFloats, t.numFloats)
	var w weights
	if nd.kind == KindBSpline {
		w = bsplineWeights(u, v)
	} else {
		w = bilinearWeights(u, v)
	}

	for k := 0; k < nf; k++ {
		var r result
		if nd.kind == KindBSpline {
			r = w.apply16(nd.cp, k, t.numFloats)
		} else {
			r = w.apply4(nd.cp, k, t.numFloats)
		}
		idx := k*stride + lane
		store(out.P, idx, r.p)
		store(out.DPdu, idx, r.du*scale)
		store(out.DPdv, idx, r.dv)
		store(out.DDPdudu, idx, r.duu*scale*scale)
		store(out.DDPdvdv, idx, r.dvv)
		store(out.DDPdudv, idx, r.duv*scale)
	}
}

func store(dst []float32, i int, x float32) {
	if dst != nil {
		dst[i] = x
	}
}

func clamp01(x float32) float32 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
