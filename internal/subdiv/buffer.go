package subdiv

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Faultbox/subdiv/internal/halfedge"
)

// BufferType names one input buffer of a mesh.
type BufferType uint8

// Buffer types.
const (
	BufferFaces BufferType = iota // uint32 face degrees
	BufferIndices                 // uint32 vertex ids
	BufferVertex                  // float positions, one buffer per time step
	BufferUser0                   // float user data interpolated like positions
	BufferUser1
	BufferEdgeCreaseIndices   // uint32 vertex id pairs
	BufferEdgeCreaseWeights   // float
	BufferVertexCreaseIndices // uint32
	BufferVertexCreaseWeights // float
	BufferHoles               // uint32 face ids
	BufferLevels              // float, one per half-edge

	numBufferTypes
)

var bufferNames = [numBufferTypes]string{
	"faces", "indices", "vertex", "user0", "user1",
	"edge_crease_indices", "edge_crease_weights",
	"vertex_crease_indices", "vertex_crease_weights",
	"holes", "levels",
}

func (b BufferType) String() string {
	if b < numBufferTypes {
		return bufferNames[b]
	}
	return fmt.Sprintf("Unknown(%d)", b)
}

// ParseBufferType parses a buffer name as returned by String.
func ParseBufferType(s string) (BufferType, error) {
	for i, name := range bufferNames {
		if name == s {
			return BufferType(i), nil
		}
	}
	return 0, errors.Errorf("unknown buffer %q", s)
}

// change returns the rebuild flag raised when b is modified.
func (b BufferType) change() halfedge.Change {
	switch b {
	case BufferFaces, BufferIndices:
		return halfedge.ChangeTopology
	case BufferEdgeCreaseIndices, BufferEdgeCreaseWeights, BufferVertexCreaseIndices, BufferVertexCreaseWeights:
		return halfedge.ChangeCreases
	case BufferHoles:
		return halfedge.ChangeHoles
	case BufferLevels:
		return halfedge.ChangeLevels
	case BufferVertex:
		return halfedge.ChangeVertices
	default:
		return 0
	}
}

func (b BufferType) isUint32() bool {
	switch b {
	case BufferFaces, BufferIndices, BufferEdgeCreaseIndices, BufferVertexCreaseIndices, BufferHoles:
		return true
	}
	return false
}

// slot returns the cache slot of an interpolatable buffer.
func (b BufferType) slot() (uint32, bool) {
	switch b {
	case BufferVertex:
		return 0, true
	case BufferUser0:
		return 1, true
	case BufferUser1:
		return 2, true
	}
	return 0, false
}

// floatBuffer is strided float data; stride counts floats per element.
type floatBuffer struct {
	data   []float32
	stride int
}

func (b floatBuffer) count() int {
	if b.stride == 0 {
		return 0
	}
	return len(b.data) / b.stride
}
