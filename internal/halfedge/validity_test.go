package halfedge

import (
	"math"
	"sync"
	"testing"
)

func TestValidityCache(t *testing.T) {
	c := NewValidityCache(100, 3)

	c.Invalidate(10, 1)
	c.InvalidateAll(64)

	for f := 0; f < 100; f++ {
		for ts := 0; ts < 3; ts++ {
			want := f == 64 || (f == 10 && ts == 1)
			if got := c.Invalid(f, ts); got != want {
				t.Errorf("Invalid(%d, %d) = %v, want %v", f, ts, got, want)
			}
		}
	}
	if c.NumTimeSteps() != 3 {
		t.Errorf("NumTimeSteps() = %d, want 3", c.NumTimeSteps())
	}
}

func TestValidityCacheConcurrentInvalidate(t *testing.T) {
	c := NewValidityCache(4096, 2)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for f := w; f < 4096; f += 8 {
				c.Invalidate(f, f%2)
			}
		}(w)
	}
	wg.Wait()

	for f := 0; f < 4096; f++ {
		if !c.Invalid(f, f%2) || c.Invalid(f, 1-f%2) {
			t.Fatalf("face %d: unexpected bits", f)
		}
	}
}

func TestValidityCloneIsIndependent(t *testing.T) {
	c := NewValidityCache(8, 1)
	c.Invalidate(1, 0)

	d := c.clone()
	d.Invalidate(2, 0)

	if !d.Invalid(1, 0) {
		t.Error("clone lost an existing bit")
	}
	if c.Invalid(2, 0) {
		t.Error("writing the clone changed the original")
	}
}

func TestWithVerticesKeepsBaseBits(t *testing.T) {
	topo := gridTopology(2, 1)
	topo.Holes = []uint32{1}
	s := mustBuild(t, topo, Options{})

	bad := make([]float32, 18)
	bad[3*2+1] = float32(math.Inf(1)) // vertex 2, face 1 only
	v := s.WithVertices(nil, func(int) ([]float32, int) { return bad, 3 })

	if !v.Valid(0) {
		t.Error("face 0 should stay valid")
	}
	if v.Valid(1) {
		t.Error("hole must stay invalid after a vertex refresh")
	}
	if !s.Valid(0) || s.Valid(1) {
		t.Error("refresh changed the original structure")
	}

	// clearing the bad vertex restores validity, but not of the hole
	good := make([]float32, 18)
	v = v.WithVertices(nil, func(int) ([]float32, int) { return good, 3 })
	if !v.Valid(0) || v.Valid(1) {
		t.Error("validity not recomputed from base bits")
	}
}
