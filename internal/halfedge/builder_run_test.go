package halfedge

import (
	"testing"

	"github.com/pkg/errors"
)

func TestBuilderLevelUpdate(t *testing.T) {
	topo := gridTopology(3, 3)
	b := NewBuilder(Options{})

	first, err := b.Run(topo, 0)
	if err != nil {
		t.Fatalf("initial Run failed: %v", err)
	}
	if b.LevelUpdate() {
		t.Error("initial build is not a level update")
	}

	levels := make([]float32, first.NumHalfEdges())
	for i := range levels {
		levels[i] = 7
	}
	topo.Levels = levels

	s, err := b.Run(topo, ChangeLevels)
	if err != nil {
		t.Fatalf("level Run failed: %v", err)
	}
	if !b.LevelUpdate() {
		t.Error("levels-only change should be a level update")
	}
	for i := range s.HalfEdges {
		if s.HalfEdges[i].Level != 7 {
			t.Fatalf("edge %d: Level = %v, want 7", i, s.HalfEdges[i].Level)
		}
		if s.HalfEdges[i].Opposite != first.HalfEdges[i].Opposite {
			t.Fatalf("edge %d: level update relinked the opposite", i)
		}
	}
	if first.HalfEdges[0].Level == 7 {
		t.Error("level update must not modify the previous structure")
	}

	tests := []struct {
		name    string
		changes Change
	}{
		{"levels and vertices", ChangeLevels | ChangeVertices},
		{"vertices", ChangeVertices},
		{"topology", ChangeTopology},
		{"creases", ChangeCreases},
		{"holes", ChangeHoles},
		{"boundary", ChangeBoundary},
		{"nothing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Run(topo, tt.changes); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if b.LevelUpdate() {
				t.Errorf("LevelUpdate() after %v = true, want false", tt.changes)
			}
		})
	}
}

func TestBuilderKeepsPreviousOnError(t *testing.T) {
	topo := gridTopology(2, 2)
	b := NewBuilder(Options{})
	good, err := b.Run(topo, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	topo.Indices[0] = 1000
	if _, err := b.Run(topo, ChangeTopology); !errors.Is(err, ErrVertexOutOfRange) {
		t.Fatalf("error = %v, want ErrVertexOutOfRange", err)
	}
	if b.Current() != good {
		t.Error("failed rebuild replaced the current structure")
	}
}

func TestBuilderFirstRunIgnoresChanges(t *testing.T) {
	b := NewBuilder(Options{})
	if b.Current() != nil {
		t.Fatal("new builder should have no structure")
	}
	if _, err := b.Run(gridTopology(1, 1), ChangeLevels); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if b.LevelUpdate() {
		t.Error("first build is never a level update")
	}
}

func TestChangeString(t *testing.T) {
	if got := (ChangeTopology | ChangeLevels).String(); got != "topology|levels" {
		t.Errorf("String() = %q, want %q", got, "topology|levels")
	}
	if got := Change(0).String(); got != "none" {
		t.Errorf("String() = %q, want none", got)
	}
	if !ChangeHoles.Structural() || ChangeLevels.Structural() {
		t.Error("holes are structural, levels are not")
	}
}

func TestParseBoundaryMode(t *testing.T) {
	for _, mode := range []BoundaryMode{BoundaryNone, BoundaryEdgeOnly, BoundaryEdgeAndCorner} {
		got, err := ParseBoundaryMode(mode.String())
		if err != nil || got != mode {
			t.Errorf("ParseBoundaryMode(%q) = %v,%v", mode.String(), got, err)
		}
	}
	if _, err := ParseBoundaryMode("smooth"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
