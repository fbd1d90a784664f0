package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// SDM format errors.
var (
	ErrInvalidSDMMagic       = errors.New("invalid SDM magic: expected 'SDVM'")
	ErrUnsupportedSDMVersion = errors.New("unsupported SDM version")
	ErrTruncatedSDMData      = errors.New("truncated SDM data")
)

const (
	sdmMagic      = "SDVM"
	sdmHeaderSize = 4 + 2 + 10*4
)

// SDMVersion represents the SDM file version.
type SDMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v SDMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// SDM is a parsed binary subdivision mesh.
//
// Layout (little endian): magic "SDVM", version [minor, major], then uint32
// counts for faces, indices, vertices, time steps, edge creases, vertex
// creases and holes, a uint32 levels flag, a uint32 boundary mode and a
// float32 tessellation rate. The arrays follow in the same order: face
// degrees, indices, positions per time step, edge crease id pairs and
// weights, vertex crease ids and weights, holes and, when flagged, one
// level per index.
type SDM struct {
	Version SDMVersion
	Mesh    MeshData
}

type sdmHeader struct {
	Faces, Indices, Vertices, TimeSteps uint32
	EdgeCreases, VertexCreases, Holes   uint32
	HasLevels                           uint32
	Boundary                            uint32
	Rate                                float32
}

type sdmField struct {
	name string
	dst  any
}

// payload returns the number of bytes following the header.
func (h *sdmHeader) payload() uint64 {
	n := uint64(h.Faces) + uint64(h.Indices) +
		uint64(h.TimeSteps)*uint64(h.Vertices)*3 +
		uint64(h.EdgeCreases)*3 +
		uint64(h.VertexCreases)*2 +
		uint64(h.Holes)
	if h.HasLevels != 0 {
		n += uint64(h.Indices)
	}
	return n * 4
}

// ParseSDM parses an SDM file from raw bytes.
func ParseSDM(data []byte) (*SDM, error) {
	if len(data) < sdmHeaderSize {
		return nil, ErrTruncatedSDMData
	}
	if string(data[0:4]) != sdmMagic {
		return nil, ErrInvalidSDMMagic
	}

	version := SDMVersion{Major: data[5], Minor: data[4]}
	if version.Major != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSDMVersion, version)
	}

	r := bytes.NewReader(data[6:])
	var h sdmHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedSDMData)
	}
	if int(h.Boundary) >= len(boundaryNames) {
		return nil, fmt.Errorf("invalid SDM boundary mode %d", h.Boundary)
	}
	if h.TimeSteps == 0 {
		return nil, fmt.Errorf("invalid SDM time step count 0")
	}
	// check before allocating anything sized by the header
	if need := h.payload(); need > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedSDMData, need, r.Len())
	}

	m := MeshData{
		FaceVertices:        make([]uint32, h.Faces),
		Indices:             make([]uint32, h.Indices),
		Vertices:            make([][]float32, h.TimeSteps),
		EdgeCreaseIDs:       make([]uint32, 2*h.EdgeCreases),
		EdgeCreaseWeights:   make([]float32, h.EdgeCreases),
		VertexCreaseIDs:     make([]uint32, h.VertexCreases),
		VertexCreaseWeights: make([]float32, h.VertexCreases),
		Holes:               make([]uint32, h.Holes),
		Boundary:            boundaryNames[h.Boundary],
		TessellationRate:    h.Rate,
	}
	for t := range m.Vertices {
		m.Vertices[t] = make([]float32, 3*h.Vertices)
	}
	if h.HasLevels != 0 {
		m.Levels = make([]float32, h.Indices)
	}

	fields := []sdmField{
		{"face degrees", m.FaceVertices},
		{"indices", m.Indices},
	}
	for t := range m.Vertices {
		fields = append(fields, sdmField{fmt.Sprintf("vertices of time step %d", t), m.Vertices[t]})
	}
	fields = append(fields,
		sdmField{"edge crease ids", m.EdgeCreaseIDs},
		sdmField{"edge crease weights", m.EdgeCreaseWeights},
		sdmField{"vertex crease ids", m.VertexCreaseIDs},
		sdmField{"vertex crease weights", m.VertexCreaseWeights},
		sdmField{"holes", m.Holes},
	)
	if m.Levels != nil {
		fields = append(fields, sdmField{"levels", m.Levels})
	}

	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f.dst); err != nil {
			return nil, fmt.Errorf("%w: reading %s", ErrTruncatedSDMData, f.name)
		}
	}

	return &SDM{Version: version, Mesh: m}, nil
}

// ParseSDMFile parses an SDM file from disk.
func ParseSDMFile(path string) (*SDM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SDM file: %w", err)
	}
	return ParseSDM(data)
}

// Encode serializes the mesh as version 1.0.
func (s *SDM) Encode() ([]byte, error) {
	m := &s.Mesh
	if err := m.Validate(); err != nil {
		return nil, err
	}

	h := sdmHeader{
		Faces:         uint32(len(m.FaceVertices)),
		Indices:       uint32(len(m.Indices)),
		Vertices:      uint32(m.NumVertices()),
		TimeSteps:     uint32(m.NumTimeSteps()),
		EdgeCreases:   uint32(len(m.EdgeCreaseWeights)),
		VertexCreases: uint32(len(m.VertexCreaseWeights)),
		Holes:         uint32(len(m.Holes)),
		Boundary:      uint32(boundaryIndex(m.Boundary)),
		Rate:          m.TessellationRate,
	}
	if m.Levels != nil {
		h.HasLevels = 1
	}
	if len(m.Indices) > math.MaxInt32 {
		return nil, fmt.Errorf("too many indices: %d", len(m.Indices))
	}

	buf := new(bytes.Buffer)
	buf.Grow(sdmHeaderSize + int(h.payload()))
	buf.WriteString(sdmMagic)
	buf.WriteByte(0) // minor
	buf.WriteByte(1) // major

	parts := []any{h, m.FaceVertices, m.Indices}
	for _, v := range m.Vertices {
		parts = append(parts, v)
	}
	parts = append(parts, m.EdgeCreaseIDs, m.EdgeCreaseWeights, m.VertexCreaseIDs, m.VertexCreaseWeights, m.Holes)
	if m.Levels != nil {
		parts = append(parts, m.Levels)
	}
	for _, p := range parts {
		if err := binary.Write(buf, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("encoding SDM: %w", err)
		}
	}
	return buf.Bytes(), nil
}
