package halfedge

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/Faultbox/subdiv/internal/parallel"
)

func TestRadixSortMatchesStableSort(t *testing.T) {
	p := parallel.NewWorkerPool(4)
	defer p.Close()

	rng := rand.New(rand.NewSource(1))
	items := make([]keyHalfEdge, 20000)
	for i := range items {
		// few distinct keys so stability is exercised
		items[i] = keyHalfEdge{
			key:  MakeEdgeKey(uint32(rng.Intn(300)), uint32(rng.Intn(300))),
			edge: int32(i),
		}
	}

	want := append([]keyHalfEdge(nil), items...)
	sort.SliceStable(want, func(i, j int) bool { return want[i].key < want[j].key })

	got := radixSort(p, append([]keyHalfEdge(nil), items...), make([]keyHalfEdge, len(items)), 512)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRadixSortSmall(t *testing.T) {
	items := []keyHalfEdge{{key: 3, edge: 0}, {key: 1, edge: 1}, {key: 2, edge: 2}}
	got := radixSort(nil, items, make([]keyHalfEdge, 3), 0)
	for i, want := range []EdgeKey{1, 2, 3} {
		if got[i].key != want {
			t.Errorf("key %d = %d, want %d", i, got[i].key, want)
		}
	}

	single := []keyHalfEdge{{key: 9}}
	if out := radixSort(nil, single, make([]keyHalfEdge, 1), 0); out[0].key != 9 {
		t.Error("single item should be returned unchanged")
	}
}

func TestRadixSortHighBits(t *testing.T) {
	items := []keyHalfEdge{
		{key: MakeEdgeKey(0xfffffff0, 0xffffffff), edge: 0},
		{key: MakeEdgeKey(0, 1), edge: 1},
		{key: MakeEdgeKey(0x10000, 0x20000), edge: 2},
	}
	got := radixSort(nil, items, make([]keyHalfEdge, 3), 0)
	if got[0].edge != 1 || got[1].edge != 2 || got[2].edge != 0 {
		t.Errorf("order = %d,%d,%d, want 1,2,0", got[0].edge, got[1].edge, got[2].edge)
	}
}
