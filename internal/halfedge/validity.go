package halfedge

// ValidityCache holds one "invalid" bit per (face, time step).
// Faces are invalid when they are holes, touch a non-manifold edge, touch
// the boundary under BoundaryNone, or have a non-finite vertex position at
// that time step.
type ValidityCache struct {
	bits         *atomicBits
	numFaces     int
	numTimeSteps int
}

// NewValidityCache returns a cache with every face valid.
func NewValidityCache(numFaces, numTimeSteps int) *ValidityCache {
	return &ValidityCache{
		bits:         newAtomicBits(numFaces * numTimeSteps),
		numFaces:     numFaces,
		numTimeSteps: numTimeSteps,
	}
}

// Invalidate marks face f invalid at time step t.
func (c *ValidityCache) Invalidate(f, t int) {
	c.bits.set(f*c.numTimeSteps + t)
}

// InvalidateAll marks face f invalid at every time step.
func (c *ValidityCache) InvalidateAll(f int) {
	for t := 0; t < c.numTimeSteps; t++ {
		c.bits.set(f*c.numTimeSteps + t)
	}
}

// Invalid reports the cached bit for face f at time step t.
func (c *ValidityCache) Invalid(f, t int) bool {
	return c.bits.get(f*c.numTimeSteps + t)
}

// NumTimeSteps returns the number of time steps tracked per face.
func (c *ValidityCache) NumTimeSteps() int {
	return c.numTimeSteps
}

func (c *ValidityCache) clone() *ValidityCache {
	return &ValidityCache{
		bits:         c.bits.clone(),
		numFaces:     c.numFaces,
		numTimeSteps: c.numTimeSteps,
	}
}
