package subdiv

import (
	"math"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/Faultbox/subdiv/internal/patch"
	"github.com/Faultbox/subdiv/internal/tesscache"
)

const eps = 1e-5

func near(t *testing.T, name string, got []float32, want ...float32) {
	t.Helper()
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > eps {
			t.Errorf("%s = %v, want %v", name, got, want)
			return
		}
	}
}

func TestInterpolate(t *testing.T) {
	m, _ := newGrid(t, 4, Options{})

	out := Output{P: make([]float32, 3), DPdu: make([]float32, 3), NumFloats: 3}
	if err := m.Interpolate(Query{Prim: 5, U: 0.25, V: 0.75, Buffer: BufferVertex}, out); err != nil {
		t.Fatalf("Interpolate failed: %v", err)
	}
	near(t, "P", out.P, 1.25, 1.75, 0)
	near(t, "DPdu", out.DPdu, 1, 0, 0)
}

func TestInterpolateUsesCache(t *testing.T) {
	cache := tesscache.New[*patch.Tree](tesscache.Options{})
	builder := &countingBuilder{}
	m, pos := newGrid(t, 4, Options{Cache: cache, Patches: builder})

	out := Output{P: make([]float32, 3), NumFloats: 3}
	q := Query{Prim: 5, U: 0.5, V: 0.5, Buffer: BufferVertex}
	for i := 0; i < 3; i++ {
		if err := m.Interpolate(q, out); err != nil {
			t.Fatal(err)
		}
	}
	if builder.builds != 1 {
		t.Errorf("builds = %d, want 1", builder.builds)
	}

	// moving the vertices advances the generation and rebuilds lazily
	for i := 2; i < len(pos); i += 3 {
		pos[i] = 10
	}
	m.UpdateBuffer(BufferVertex)
	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := m.Interpolate(q, out); err != nil {
		t.Fatal(err)
	}
	near(t, "P after move", out.P, 1.5, 1.5, 10)
	if builder.builds != 2 {
		t.Errorf("builds = %d, want 2", builder.builds)
	}

	// a structural change drops the mesh's entries
	m.UpdateBuffer(BufferFaces)
	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 0 {
		t.Errorf("cache holds %d entries after a full rebuild", cache.Len())
	}
}

func TestInterpolateUserBuffer(t *testing.T) {
	m, _ := newGrid(t, 1, Options{TimeSteps: 2})

	user := []float32{
		0, 10,
		1, 20,
		2, 40,
		3, 30,
	}
	mustSet(t, m.SetFloatBuffer(BufferUser1, 0, user, 2))
	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}

	out := Output{P: make([]float32, 2), NumFloats: 2}
	// the time step is ignored for user data
	if err := m.Interpolate(Query{Prim: 0, U: 0.5, V: 0.5, Buffer: BufferUser1, TimeStep: 7}, out); err != nil {
		t.Fatal(err)
	}
	// centre of a bilinear patch is the corner average
	near(t, "P", out.P, 1.5, 25)
}

func TestInterpolateContractViolations(t *testing.T) {
	m, _ := newGrid(t, 2, Options{})
	small := Output{P: make([]float32, 2), NumFloats: 3}

	tests := []struct {
		name string
		m    *Mesh
		q    Query
		out  Output
		want error
	}{
		{"not built", New(Options{}), Query{Buffer: BufferVertex}, Output{P: make([]float32, 3), NumFloats: 3}, ErrNotBuilt},
		{"topology buffer", m, Query{Buffer: BufferIndices}, Output{P: make([]float32, 3), NumFloats: 3}, ErrUnsupportedBuffer},
		{"unset user buffer", m, Query{Buffer: BufferUser0}, Output{P: make([]float32, 3), NumFloats: 3}, ErrBufferNotSet},
		{"primitive", m, Query{Prim: 4, Buffer: BufferVertex}, Output{P: make([]float32, 3), NumFloats: 3}, ErrPrimitiveOutOfRange},
		{"time step", m, Query{Buffer: BufferVertex, TimeStep: 1}, Output{P: make([]float32, 3), NumFloats: 3}, ErrTimeStepOutOfRange},
		{"output", m, Query{Buffer: BufferVertex}, small, ErrOutputTooSmall},
		{"float count", m, Query{Buffer: BufferVertex}, Output{P: make([]float32, 4), NumFloats: 4}, ErrFloatCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := range tt.out.P {
				tt.out.P[i] = -7
			}
			err := tt.m.Interpolate(tt.q, tt.out)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			for i, x := range tt.out.P {
				if x != -7 {
					t.Errorf("P[%d] written on error", i)
				}
			}
		})
	}
}

func TestInterpolateNAllMasked(t *testing.T) {
	cache := &countingCache{}
	builder := &countingBuilder{}
	m, _ := newGrid(t, 3, Options{Cache: cache, Patches: builder})

	const n = 9
	q := BatchQuery{
		Valid:  make([]bool, n),
		Prims:  make([]uint32, n),
		U:      make([]float32, n),
		V:      make([]float32, n),
		Buffer: BufferVertex,
	}
	for i := range q.Prims {
		q.Prims[i] = uint32(i)
	}
	out := Output{P: make([]float32, 3*n), NumFloats: 3}
	for i := range out.P {
		out.P[i] = -1
	}

	if err := m.InterpolateN(q, out); err != nil {
		t.Fatal(err)
	}
	if cache.calls != 0 || builder.builds != 0 {
		t.Errorf("masked batch did work: %d lookups, %d builds", cache.calls, builder.builds)
	}
	for i, x := range out.P {
		if x != -1 {
			t.Fatalf("P[%d] = %v, masked lanes must stay untouched", i, x)
		}
	}
}

func TestInterpolateNLayout(t *testing.T) {
	builder := &countingBuilder{}
	m, _ := newGrid(t, 2, Options{Patches: builder})

	q := BatchQuery{
		Valid:  []bool{true, false, true},
		Prims:  []uint32{0, 99, 3}, // masked lanes are not range checked
		U:      []float32{0.5, 0, 0.5},
		V:      []float32{0.5, 0, 0.5},
		Buffer: BufferVertex,
	}
	out := Output{P: make([]float32, 9), NumFloats: 3}
	for i := range out.P {
		out.P[i] = -1
	}
	if err := m.InterpolateN(q, out); err != nil {
		t.Fatal(err)
	}

	// x of lanes 0..2, then y, then z
	near(t, "P", out.P, 0.5, -1, 1.5, 0.5, -1, 1.5, 0, -1, 0)
	if builder.builds != 2 {
		t.Errorf("builds = %d, want 2", builder.builds)
	}

	// an active out of range lane fails before any lane is written
	q.Valid[1] = true
	for i := range out.P {
		out.P[i] = -1
	}
	if err := m.InterpolateN(q, out); !errors.Is(err, ErrPrimitiveOutOfRange) {
		t.Fatalf("error = %v, want ErrPrimitiveOutOfRange", err)
	}
	for i, x := range out.P {
		if x != -1 {
			t.Fatalf("P[%d] written before the contract check", i)
		}
	}
}

func TestInterpolateNErrors(t *testing.T) {
	m, _ := newGrid(t, 2, Options{})

	q := BatchQuery{Prims: []uint32{0, 1}, U: []float32{0}, V: []float32{0, 0}, Buffer: BufferVertex}
	if err := m.InterpolateN(q, Output{P: make([]float32, 6), NumFloats: 3}); !errors.Is(err, ErrLaneMismatch) {
		t.Errorf("lane mismatch error = %v", err)
	}

	q.U = []float32{0, 0}
	if err := m.InterpolateN(q, Output{P: make([]float32, 5), NumFloats: 3}); !errors.Is(err, ErrOutputTooSmall) {
		t.Errorf("short output error = %v", err)
	}
}

func TestInterpolateConcurrent(t *testing.T) {
	m, _ := newGrid(t, 4, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			out := Output{P: make([]float32, 3), NumFloats: 3}
			for i := 0; i < 100; i++ {
				prim := uint32((w + i) % 16)
				if err := m.Interpolate(Query{Prim: prim, U: 0.5, V: 0.5, Buffer: BufferVertex}, out); err != nil {
					errs <- err
					return
				}
				fx, fy := float32(prim%4)+0.5, float32(prim/4)+0.5
				if math.Abs(float64(out.P[0]-fx)) > eps || math.Abs(float64(out.P[1]-fy)) > eps {
					errs <- errors.Errorf("prim %d: P = %v", prim, out.P)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
