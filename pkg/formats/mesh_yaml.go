package formats

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// meshYAML is the on-disk shape of a YAML mesh description:
//
//	boundary: edge_and_corner
//	faces:
//	  - [0, 1, 2, 3]
//	vertices:
//	  - [0, 0, 0]
//	time_steps:          # optional, positions of further time steps
//	  - [[0, 0, 1], ...]
//	edge_creases:
//	  - {edge: [0, 1], weight: 2}
//	vertex_creases:
//	  - {vertex: 2, weight: 10}
//	holes: [4]
type meshYAML struct {
	Boundary         string             `yaml:"boundary,omitempty"`
	TessellationRate float32            `yaml:"tessellation_rate,omitempty"`
	Faces            [][]uint32         `yaml:"faces"`
	Vertices         [][]float32        `yaml:"vertices"`
	TimeSteps        [][][]float32      `yaml:"time_steps,omitempty"`
	EdgeCreases      []edgeCreaseYAML   `yaml:"edge_creases,omitempty"`
	VertexCreases    []vertexCreaseYAML `yaml:"vertex_creases,omitempty"`
	Holes            []uint32           `yaml:"holes,omitempty"`
	Levels           []float32          `yaml:"levels,omitempty"`
}

type edgeCreaseYAML struct {
	Edge   []uint32 `yaml:"edge"`
	Weight float32  `yaml:"weight"`
}

type vertexCreaseYAML struct {
	Vertex uint32  `yaml:"vertex"`
	Weight float32 `yaml:"weight"`
}

// ParseMeshYAML parses a YAML mesh description.
func ParseMeshYAML(data []byte) (*MeshData, error) {
	var doc meshYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing mesh YAML: %w", err)
	}

	m := &MeshData{
		Boundary:         doc.Boundary,
		TessellationRate: doc.TessellationRate,
		Holes:            doc.Holes,
		Levels:           doc.Levels,
	}
	if m.Boundary == "" {
		m.Boundary = "edge_only"
	}

	for f, loop := range doc.Faces {
		m.FaceVertices = append(m.FaceVertices, uint32(len(loop)))
		if len(loop) < 2 {
			return nil, fmt.Errorf("face %d has %d vertices", f, len(loop))
		}
		m.Indices = append(m.Indices, loop...)
	}

	steps := append([][][]float32{doc.Vertices}, doc.TimeSteps...)
	for t, pts := range steps {
		flat := make([]float32, 0, 3*len(pts))
		for i, p := range pts {
			if len(p) != 3 {
				return nil, fmt.Errorf("time step %d: vertex %d has %d coordinates", t, i, len(p))
			}
			flat = append(flat, p...)
		}
		m.Vertices = append(m.Vertices, flat)
	}

	for i, c := range doc.EdgeCreases {
		if len(c.Edge) != 2 {
			return nil, fmt.Errorf("edge crease %d has %d vertices", i, len(c.Edge))
		}
		m.EdgeCreaseIDs = append(m.EdgeCreaseIDs, c.Edge...)
		m.EdgeCreaseWeights = append(m.EdgeCreaseWeights, c.Weight)
	}
	for _, c := range doc.VertexCreases {
		m.VertexCreaseIDs = append(m.VertexCreaseIDs, c.Vertex)
		m.VertexCreaseWeights = append(m.VertexCreaseWeights, c.Weight)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseMeshYAMLFile parses a YAML mesh description from disk.
func ParseMeshYAMLFile(path string) (*MeshData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file: %w", err)
	}
	return ParseMeshYAML(data)
}

// EncodeMeshYAML writes m as a YAML mesh description.
func EncodeMeshYAML(m *MeshData) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	doc := meshYAML{
		Boundary:         m.Boundary,
		TessellationRate: m.TessellationRate,
		Holes:            m.Holes,
		Levels:           m.Levels,
	}
	off := 0
	for _, n := range m.FaceVertices {
		doc.Faces = append(doc.Faces, m.Indices[off:off+int(n)])
		off += int(n)
	}
	for t, flat := range m.Vertices {
		pts := make([][]float32, 0, len(flat)/3)
		for i := 0; i+3 <= len(flat); i += 3 {
			pts = append(pts, flat[i:i+3])
		}
		if t == 0 {
			doc.Vertices = pts
		} else {
			doc.TimeSteps = append(doc.TimeSteps, pts)
		}
	}
	for i, w := range m.EdgeCreaseWeights {
		doc.EdgeCreases = append(doc.EdgeCreases, edgeCreaseYAML{Edge: m.EdgeCreaseIDs[2*i : 2*i+2], Weight: w})
	}
	for i, w := range m.VertexCreaseWeights {
		doc.VertexCreases = append(doc.VertexCreases, vertexCreaseYAML{Vertex: m.VertexCreaseIDs[i], Weight: w})
	}

	return yaml.Marshal(&doc)
}
