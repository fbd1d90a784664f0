package halfedge

// EdgeKey identifies an undirected edge independent of orientation:
// the smaller vertex id in the high 32 bits, the larger in the low 32 bits.
type EdgeKey uint64

// MakeEdgeKey returns the key of the edge between v0 and v1.
// MakeEdgeKey(a, b) == MakeEdgeKey(b, a).
func MakeEdgeKey(v0, v1 uint32) EdgeKey {
	if v0 > v1 {
		v0, v1 = v1, v0
	}
	return EdgeKey(uint64(v0)<<32 | uint64(v1))
}

// Endpoints returns the two vertex ids, smaller first.
func (k EdgeKey) Endpoints() (lo, hi uint32) {
	return uint32(k >> 32), uint32(k)
}

// hash spreads keys over crease map shards.
func (k EdgeKey) hash() uint64 {
	return uint64(k) * 0x9e3779b97f4a7c15
}
