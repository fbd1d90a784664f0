package subdiv

import "github.com/pkg/errors"

// Query contract violations. Nothing is written when one is returned.
var (
	ErrNotBuilt            = errors.New("mesh has not been committed")
	ErrPrimitiveOutOfRange = errors.New("primitive id out of range")
	ErrTimeStepOutOfRange  = errors.New("time step out of range")
	ErrBufferNotSet        = errors.New("buffer has no data")
	ErrUnsupportedBuffer   = errors.New("unsupported buffer type")
	ErrOutputTooSmall      = errors.New("output buffer too small")
	ErrFloatCount          = errors.New("invalid float count")
	ErrLaneMismatch        = errors.New("batch arrays differ in length")
	ErrVertexCountMismatch = errors.New("time steps differ in vertex count")
)
