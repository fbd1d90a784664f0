package parallel

import (
	"sync/atomic"
	"testing"
)

func TestForCoversRange(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	for _, n := range []int{0, 1, 7, 100, 10000} {
		hits := make([]atomic.Int32, n)
		For(p, n, 16, func(begin, end int) {
			for i := begin; i < end; i++ {
				hits[i].Add(1)
			}
		})
		for i := range hits {
			if got := hits[i].Load(); got != 1 {
				t.Fatalf("n=%d: index %d visited %d times, want 1", n, i, got)
			}
		}
	}
}

func TestForNilPool(t *testing.T) {
	calls := 0
	For(nil, 50, 4, func(begin, end int) {
		calls++
		if begin != 0 || end != 50 {
			t.Errorf("inline range = [%d,%d), want [0,50)", begin, end)
		}
	})
	if calls != 1 {
		t.Errorf("expected 1 inline call, got %d", calls)
	}
}

func TestBlocksAreContiguous(t *testing.T) {
	p := NewWorkerPool(3)
	defer p.Close()

	blocks := Blocks(p, 1000, 10)
	if len(blocks) == 0 {
		t.Fatal("expected blocks")
	}
	next := 0
	for _, b := range blocks {
		if b[0] != next || b[1] <= b[0] {
			t.Fatalf("block %v does not continue at %d", b, next)
		}
		next = b[1]
	}
	if next != 1000 {
		t.Errorf("blocks end at %d, want 1000", next)
	}
}

func TestExclusiveScan(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	tests := []struct {
		name string
		in   []uint32
	}{
		{"empty", nil},
		{"single", []uint32{5}},
		{"quads", []uint32{4, 4, 4, 4}},
		{"mixed", []uint32{3, 4, 5, 6, 3, 8, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total := ExclusiveScan(p, tt.in, 2)
			var acc uint64
			for i, v := range tt.in {
				if uint64(got[i]) != acc {
					t.Errorf("out[%d] = %d, want %d", i, got[i], acc)
				}
				acc += uint64(v)
			}
			if total != acc {
				t.Errorf("total = %d, want %d", total, acc)
			}
		})
	}
}

func TestExclusiveScanLarge(t *testing.T) {
	p := NewWorkerPool(8)
	defer p.Close()

	in := make([]uint32, 100000)
	for i := range in {
		in[i] = uint32(3 + i%5)
	}
	serial, serialTotal := ExclusiveScan(nil, in, 0)
	par, parTotal := ExclusiveScan(p, in, 128)

	if serialTotal != parTotal {
		t.Fatalf("total mismatch: %d vs %d", serialTotal, parTotal)
	}
	for i := range serial {
		if serial[i] != par[i] {
			t.Fatalf("out[%d]: serial %d, parallel %d", i, serial[i], par[i])
		}
	}
}
