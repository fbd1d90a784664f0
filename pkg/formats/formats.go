// Package formats reads and writes subdivision mesh files: the binary SDM
// format and a YAML mesh description.
package formats

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Boundary mode names as stored in mesh files.
var boundaryNames = []string{"none", "edge_only", "edge_and_corner"}

// MeshData is a mesh as loaded from a file. Slices are laid out the way the
// subdivision core consumes them.
type MeshData struct {
	FaceVertices []uint32
	Indices      []uint32
	// Vertices holds one xyz array per time step.
	Vertices [][]float32

	VertexCreaseIDs     []uint32
	VertexCreaseWeights []float32
	EdgeCreaseIDs       []uint32 // two vertex ids per crease
	EdgeCreaseWeights   []float32
	Holes               []uint32
	Levels              []float32 // one per half-edge, optional

	Boundary         string
	TessellationRate float32 // 0 when not stored
}

// NumVertices returns the number of vertices per time step.
func (m *MeshData) NumVertices() int {
	if len(m.Vertices) == 0 {
		return 0
	}
	return len(m.Vertices[0]) / 3
}

// NumTimeSteps returns the number of vertex time steps.
func (m *MeshData) NumTimeSteps() int {
	return len(m.Vertices)
}

// Validate checks the array lengths for consistency. Index ranges are left
// to the half-edge builder.
func (m *MeshData) Validate() error {
	if len(m.Vertices) == 0 || len(m.Vertices[0]) == 0 {
		return fmt.Errorf("mesh has no vertices")
	}
	n := len(m.Vertices[0])
	if n%3 != 0 {
		return fmt.Errorf("vertex array length %d is not a multiple of 3", n)
	}
	for t, v := range m.Vertices {
		if len(v) != n {
			return fmt.Errorf("time step %d has %d floats, want %d", t, len(v), n)
		}
	}
	var sum uint64
	for _, d := range m.FaceVertices {
		sum += uint64(d)
	}
	if sum != uint64(len(m.Indices)) {
		return fmt.Errorf("faces reference %d indices, mesh has %d", sum, len(m.Indices))
	}
	if len(m.EdgeCreaseIDs) != 2*len(m.EdgeCreaseWeights) {
		return fmt.Errorf("%d edge crease ids for %d weights", len(m.EdgeCreaseIDs), len(m.EdgeCreaseWeights))
	}
	if len(m.VertexCreaseIDs) != len(m.VertexCreaseWeights) {
		return fmt.Errorf("%d vertex crease ids for %d weights", len(m.VertexCreaseIDs), len(m.VertexCreaseWeights))
	}
	if m.Levels != nil && len(m.Levels) != len(m.Indices) {
		return fmt.Errorf("%d levels for %d indices", len(m.Levels), len(m.Indices))
	}
	if boundaryIndex(m.Boundary) < 0 {
		return fmt.Errorf("unknown boundary mode %q", m.Boundary)
	}
	return nil
}

// boundaryIndex returns the stored code of a boundary name, -1 if unknown.
// The empty name is edge_only.
func boundaryIndex(name string) int {
	if name == "" {
		return 1
	}
	for i, n := range boundaryNames {
		if n == name {
			return i
		}
	}
	return -1
}

// LoadMesh loads a mesh file, choosing the format by extension:
// .sdm for binary, .yaml or .yml for the YAML description.
func LoadMesh(path string) (*MeshData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sdm":
		sdm, err := ParseSDMFile(path)
		if err != nil {
			return nil, err
		}
		return &sdm.Mesh, nil
	case ".yaml", ".yml":
		return ParseMeshYAMLFile(path)
	default:
		return nil, fmt.Errorf("unknown mesh format %q", filepath.Ext(path))
	}
}

// SaveMesh writes m in the format selected by the extension of path.
func SaveMesh(path string, m *MeshData) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sdm":
		data, err = (&SDM{Version: SDMVersion{Major: 1}, Mesh: *m}).Encode()
	case ".yaml", ".yml":
		data, err = EncodeMeshYAML(m)
	default:
		err = fmt.Errorf("unknown mesh format %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
