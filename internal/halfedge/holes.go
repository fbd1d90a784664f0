package halfedge

import (
	"github.com/pkg/errors"

	"github.com/Faultbox/subdiv/internal/parallel"
)

// HoleSet is the set of faces flagged as holes. Face ids are dense, so the
// set is a bitmap; insertion is safe from concurrent workers.
type HoleSet struct {
	bits *atomicBits
}

// BuildHoleSet builds the hole set from a flat array of face ids.
// Duplicate ids are harmless.
func BuildHoleSet(pool *parallel.WorkerPool, faces []uint32, numFaces int) (*HoleSet, error) {
	for i, f := range faces {
		if int(f) >= numFaces {
			return nil, errors.Wrapf(ErrHoleOutOfRange, "hole %d references face %d of %d", i, f, numFaces)
		}
	}

	h := &HoleSet{bits: newAtomicBits(numFaces)}
	parallel.For(pool, len(faces), parallel.DefaultGrain, func(begin, end int) {
		for _, f := range faces[begin:end] {
			h.bits.set(int(f))
		}
	})
	return h, nil
}

// Contains reports whether face f is a hole.
func (h *HoleSet) Contains(f int) bool {
	if h == nil || f < 0 || f >= h.bits.n {
		return false
	}
	return h.bits.get(f)
}

// Len returns the number of distinct hole faces.
func (h *HoleSet) Len() int {
	if h == nil {
		return 0
	}
	return h.bits.count()
}
