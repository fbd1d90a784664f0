package halfedge

import "github.com/pkg/errors"

// Configuration errors. A build that returns one of these has not emitted
// any half-edge.
var (
	ErrInvalidFaceDegree  = errors.New("face degree must be at least 2")
	ErrIndexCountMismatch = errors.New("index count does not match face degrees")
	ErrVertexOutOfRange   = errors.New("vertex index out of range")
	ErrCreaseOutOfRange   = errors.New("crease vertex id out of range")
	ErrHoleOutOfRange     = errors.New("hole face id out of range")
	ErrTooManyHalfEdges   = errors.New("half-edge count exceeds 2^31-1")
	ErrInvalidTimeSteps   = errors.New("time step count must be at least 1")
)
