package subdiv

import (
	"github.com/pkg/errors"

	"github.com/Faultbox/subdiv/internal/halfedge"
	"github.com/Faultbox/subdiv/internal/patch"
	"github.com/Faultbox/subdiv/internal/tesscache"
)

// Output receives interpolation results; see patch.Output for the layout.
type Output = patch.Output

// Query is a single interpolation request.
type Query struct {
	Prim     uint32
	U, V     float32
	Buffer   BufferType
	TimeStep int // ignored for user buffers
}

// BatchQuery is a batched interpolation request. Prims, U and V have one
// entry per lane. Lanes whose Valid entry is false are skipped entirely;
// a nil Valid activates every lane.
type BatchQuery struct {
	Valid    []bool
	Prims    []uint32
	U, V     []float32
	Buffer   BufferType
	TimeStep int
}

// source is the resolved data an interpolation reads.
type source struct {
	s   *halfedge.Structure
	src patch.Source
	key tesscache.Key
	gen uint64
}

func (m *Mesh) resolve(b BufferType, t int, out *Output, lanes int) (*source, error) {
	s, err := m.built()
	if err != nil {
		return nil, err
	}
	slot, ok := b.slot()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedBuffer, "cannot interpolate %s", b)
	}

	var fb floatBuffer
	numFloats := 3
	if b == BufferVertex {
		if t < 0 || t >= m.timeSteps {
			return nil, errors.Wrapf(ErrTimeStepOutOfRange, "time step %d of %d", t, m.timeSteps)
		}
		fb = m.vertices[t]
	} else {
		t = 0
		fb = m.user[b-BufferUser0]
		numFloats = fb.stride
	}
	if fb.data == nil {
		return nil, errors.Wrapf(ErrBufferNotSet, "%s", b)
	}

	if out.NumFloats < 1 || out.NumFloats > numFloats {
		return nil, errors.Wrapf(ErrFloatCount, "%d floats requested from %s with %d", out.NumFloats, b, numFloats)
	}
	need := out.MinLen(lanes)
	for _, dst := range [][]float32{out.P, out.DPdu, out.DPdv, out.DDPdudu, out.DDPdvdv, out.DDPdudv} {
		if dst != nil && len(dst) < need {
			return nil, errors.Wrapf(ErrOutputTooSmall, "%d floats, need %d", len(dst), need)
		}
	}

	return &source{
		s:   s,
		src: patch.Source{Data: fb.data, Stride: fb.stride, NumFloats: numFloats},
		key: tesscache.Key{Owner: m.id, Slot: slot, Time: uint32(t)},
		gen: m.generation.Load(),
	}, nil
}

// tree returns the patch tree of prim, building it on a cache miss.
func (m *Mesh) tree(src *source, prim uint32) (*patch.Tree, error) {
	key := src.key
	key.Prim = prim
	return m.cache.GetOrBuild(key, src.gen, func() (*patch.Tree, error) {
		return m.patches.Build(src.s, int(prim), src.src)
	})
}

// Interpolate evaluates buffer q.Buffer of face q.Prim at (q.U, q.V).
// Contract violations are reported before anything is written.
func (m *Mesh) Interpolate(q Query, out Output) error {
	src, err := m.resolve(q.Buffer, q.TimeStep, &out, 1)
	if err != nil {
		return err
	}
	if int(q.Prim) >= src.s.NumFaces() {
		return errors.Wrapf(ErrPrimitiveOutOfRange, "face %d of %d", q.Prim, src.s.NumFaces())
	}

	t, err := m.tree(src, q.Prim)
	if err != nil {
		return err
	}
	t.Eval(q.U, q.V, out, 0, 1)
	return nil
}

// InterpolateN evaluates every active lane of q. Component k of lane i is
// written at index k*len(q.Prims)+i of each requested output. Every active
// lane is checked before the first one is evaluated.
func (m *Mesh) InterpolateN(q BatchQuery, out Output) error {
	n := len(q.Prims)
	if len(q.U) != n || len(q.V) != n || (q.Valid != nil && len(q.Valid) != n) {
		return errors.Wrapf(ErrLaneMismatch, "%d prims, %d u, %d v, %d valid", n, len(q.U), len(q.V), len(q.Valid))
	}
	src, err := m.resolve(q.Buffer, q.TimeStep, &out, n)
	if err != nil {
		return err
	}

	active := func(i int) bool { return q.Valid == nil || q.Valid[i] }
	for i, prim := range q.Prims {
		if active(i) && int(prim) >= src.s.NumFaces() {
			return errors.Wrapf(ErrPrimitiveOutOfRange, "lane %d: face %d of %d", i, prim, src.s.NumFaces())
		}
	}

	for i, prim := range q.Prims {
		if !active(i) {
			continue
		}
		t, err := m.tree(src, prim)
		if err != nil {
			return errors.Wrapf(err, "lane %d", i)
		}
		t.Eval(q.U[i], q.V[i], out, i, n)
	}
	return nil
}
