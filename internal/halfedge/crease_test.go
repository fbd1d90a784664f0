package halfedge

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/Faultbox/subdiv/internal/parallel"
)

func TestBuildVertexCreases(t *testing.T) {
	m, err := BuildVertexCreases(nil, []uint32{0, 3}, []float32{1.5, 16}, 4)
	if err != nil {
		t.Fatalf("BuildVertexCreases failed: %v", err)
	}

	if w, ok := m.Weight(0); !ok || w != 1.5 {
		t.Errorf("Weight(0) = %v,%v, want 1.5,true", w, ok)
	}
	if w, ok := m.Weight(3); !ok || w != 16 {
		t.Errorf("Weight(3) = %v,%v, want 16,true (stored unclamped)", w, ok)
	}
	if _, ok := m.Weight(1); ok {
		t.Error("vertex 1 should have no crease")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestBuildEdgeCreasesOrientationFree(t *testing.T) {
	m, err := BuildEdgeCreases(nil, []uint32{2, 1}, []float32{3}, 3)
	if err != nil {
		t.Fatalf("BuildEdgeCreases failed: %v", err)
	}
	if w, ok := m.Weight(MakeEdgeKey(1, 2)); !ok || w != 3 {
		t.Errorf("Weight(1-2) = %v,%v, want 3,true", w, ok)
	}
}

func TestCreaseDuplicatesLastWins(t *testing.T) {
	p := parallel.NewWorkerPool(8)
	defer p.Close()

	// many writers for the same few ids; the highest input position must win
	const n = 50000
	ids := make([]uint32, n)
	weights := make([]float32, n)
	for i := range ids {
		ids[i] = uint32(i % 5)
		weights[i] = float32(i)
	}

	m, err := BuildVertexCreases(p, ids, weights, 5)
	if err != nil {
		t.Fatalf("BuildVertexCreases failed: %v", err)
	}
	for v := uint32(0); v < 5; v++ {
		want := float32(n - 5 + int(v))
		if w, _ := m.Weight(v); w != want {
			t.Errorf("Weight(%d) = %v, want %v", v, w, want)
		}
	}
}

func TestCreaseErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "vertex id out of range",
			run: func() error {
				_, err := BuildVertexCreases(nil, []uint32{4}, []float32{1}, 4)
				return err
			},
			want: ErrCreaseOutOfRange,
		},
		{
			name: "vertex length mismatch",
			run: func() error {
				_, err := BuildVertexCreases(nil, []uint32{0, 1}, []float32{1}, 4)
				return err
			},
			want: ErrIndexCountMismatch,
		},
		{
			name: "edge id out of range",
			run: func() error {
				_, err := BuildEdgeCreases(nil, []uint32{0, 9}, []float32{1}, 4)
				return err
			},
			want: ErrCreaseOutOfRange,
		},
		{
			name: "edge odd id count",
			run: func() error {
				_, err := BuildEdgeCreases(nil, []uint32{0, 1, 2}, []float32{1}, 4)
				return err
			},
			want: ErrIndexCountMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsInfinitelySharp(t *testing.T) {
	if IsInfinitelySharp(9.99) {
		t.Error("9.99 is below the ceiling")
	}
	if !IsInfinitelySharp(10) || !IsInfinitelySharp(16) {
		t.Error("weights at or above the ceiling are infinitely sharp")
	}
}

func TestHoleSet(t *testing.T) {
	h, err := BuildHoleSet(nil, []uint32{1, 3, 3}, 5)
	if err != nil {
		t.Fatalf("BuildHoleSet failed: %v", err)
	}
	for f, want := range []bool{false, true, false, true, false} {
		if h.Contains(f) != want {
			t.Errorf("Contains(%d) = %v, want %v", f, !want, want)
		}
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
	if h.Contains(-1) || h.Contains(99) {
		t.Error("out-of-range faces are never holes")
	}

	if _, err := BuildHoleSet(nil, []uint32{5}, 5); !errors.Is(err, ErrHoleOutOfRange) {
		t.Errorf("error = %v, want ErrHoleOutOfRange", err)
	}
}
