package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

// createTestSDM creates a minimal SDM file: one quad, one time step.
func createTestSDM(major uint8) []byte {
	buf := new(bytes.Buffer)

	// Magic "SDVM"
	buf.WriteString("SDVM")

	// Version (stored as minor, major)
	buf.WriteByte(0)
	buf.WriteByte(major)

	// faces, indices, vertices, time steps, edge creases, vertex creases,
	// holes, levels flag, boundary
	for _, v := range []uint32{1, 4, 4, 1, 1, 1, 0, 0, 2} {
		binary.Write(buf, binary.LittleEndian, v)
	}
	binary.Write(buf, binary.LittleEndian, float32(4)) // tessellation rate

	binary.Write(buf, binary.LittleEndian, []uint32{4})
	binary.Write(buf, binary.LittleEndian, []uint32{0, 1, 2, 3})
	binary.Write(buf, binary.LittleEndian, []float32{
		0, 0, 0,
		1, 0, 0,
		1, 1, 0,
		0, 1, 0,
	})
	binary.Write(buf, binary.LittleEndian, []uint32{0, 1}) // edge crease
	binary.Write(buf, binary.LittleEndian, []float32{2.5}) // weight
	binary.Write(buf, binary.LittleEndian, []uint32{3})    // vertex crease
	binary.Write(buf, binary.LittleEndian, []float32{16})  // weight

	return buf.Bytes()
}

func TestParseSDM_ValidFile(t *testing.T) {
	sdm, err := ParseSDM(createTestSDM(1))
	if err != nil {
		t.Fatalf("ParseSDM failed: %v", err)
	}

	if sdm.Version.String() != "1.0" {
		t.Errorf("expected version 1.0, got %s", sdm.Version)
	}

	m := &sdm.Mesh
	if !reflect.DeepEqual(m.FaceVertices, []uint32{4}) {
		t.Errorf("expected face degrees [4], got %v", m.FaceVertices)
	}
	if !reflect.DeepEqual(m.Indices, []uint32{0, 1, 2, 3}) {
		t.Errorf("expected indices [0 1 2 3], got %v", m.Indices)
	}
	if m.NumVertices() != 4 || m.NumTimeSteps() != 1 {
		t.Errorf("expected 4 vertices in 1 time step, got %d in %d", m.NumVertices(), m.NumTimeSteps())
	}
	if m.Vertices[0][6] != 1 || m.Vertices[0][7] != 1 {
		t.Errorf("unexpected vertex 2: %v", m.Vertices[0][6:9])
	}
	if !reflect.DeepEqual(m.EdgeCreaseIDs, []uint32{0, 1}) || m.EdgeCreaseWeights[0] != 2.5 {
		t.Errorf("unexpected edge creases %v %v", m.EdgeCreaseIDs, m.EdgeCreaseWeights)
	}
	if m.VertexCreaseWeights[0] != 16 {
		t.Errorf("expected vertex crease weight 16, got %v", m.VertexCreaseWeights[0])
	}
	if len(m.Holes) != 0 || m.Levels != nil {
		t.Errorf("expected no holes and no levels, got %v %v", m.Holes, m.Levels)
	}
	if m.Boundary != "edge_and_corner" {
		t.Errorf("expected boundary edge_and_corner, got %s", m.Boundary)
	}
	if m.TessellationRate != 4 {
		t.Errorf("expected tessellation rate 4, got %v", m.TessellationRate)
	}
}

func TestParseSDM_InvalidMagic(t *testing.T) {
	data := createTestSDM(1)
	copy(data, "GRAT")

	if _, err := ParseSDM(data); !errors.Is(err, ErrInvalidSDMMagic) {
		t.Errorf("expected ErrInvalidSDMMagic, got %v", err)
	}
}

func TestParseSDM_UnsupportedVersion(t *testing.T) {
	if _, err := ParseSDM(createTestSDM(2)); !errors.Is(err, ErrUnsupportedSDMVersion) {
		t.Errorf("expected ErrUnsupportedSDMVersion, got %v", err)
	}
}

func TestParseSDM_Truncated(t *testing.T) {
	data := createTestSDM(1)

	for _, n := range []int{0, 10, sdmHeaderSize, len(data) - 1} {
		if _, err := ParseSDM(data[:n]); !errors.Is(err, ErrTruncatedSDMData) {
			t.Errorf("length %d: expected ErrTruncatedSDMData, got %v", n, err)
		}
	}
}

func TestParseSDM_HugeCounts(t *testing.T) {
	data := createTestSDM(1)
	// claim 2^32-1 indices; must fail without allocating them
	binary.LittleEndian.PutUint32(data[10:], 0xFFFFFFFF)

	if _, err := ParseSDM(data); !errors.Is(err, ErrTruncatedSDMData) {
		t.Errorf("expected ErrTruncatedSDMData, got %v", err)
	}
}

func TestSDM_EncodeMatchesParse(t *testing.T) {
	m := MeshData{
		FaceVertices:        []uint32{3, 3},
		Indices:             []uint32{0, 1, 2, 0, 2, 3},
		Vertices:            [][]float32{make([]float32, 12), make([]float32, 12)},
		VertexCreaseIDs:     []uint32{},
		VertexCreaseWeights: []float32{},
		EdgeCreaseIDs:       []uint32{0, 2},
		EdgeCreaseWeights:   []float32{1},
		Holes:               []uint32{1},
		Levels:              []float32{1, 2, 3, 4, 5, 6},
		Boundary:            "none",
	}
	m.Vertices[1][11] = 7

	data, err := (&SDM{Mesh: m}).Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(data[:4], []byte("SDVM")) {
		t.Fatalf("bad magic %q", data[:4])
	}

	sdm, err := ParseSDM(data)
	if err != nil {
		t.Fatalf("ParseSDM failed: %v", err)
	}
	if !reflect.DeepEqual(sdm.Mesh, m) {
		t.Errorf("decoded mesh differs:\n got %+v\nwant %+v", sdm.Mesh, m)
	}
}

func TestSDM_EncodeRejectsInconsistentMesh(t *testing.T) {
	m := MeshData{
		FaceVertices: []uint32{4},
		Indices:      []uint32{0, 1, 2},
		Vertices:     [][]float32{make([]float32, 9)},
	}
	if _, err := (&SDM{Mesh: m}).Encode(); err == nil {
		t.Error("expected error for index count mismatch")
	}
}

func TestLoadAndSaveMesh(t *testing.T) {
	sdm, err := ParseSDM(createTestSDM(1))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	for _, name := range []string{"quad.sdm", "quad.yaml"} {
		path := filepath.Join(dir, name)
		if err := SaveMesh(path, &sdm.Mesh); err != nil {
			t.Fatalf("SaveMesh(%s) failed: %v", name, err)
		}
		m, err := LoadMesh(path)
		if err != nil {
			t.Fatalf("LoadMesh(%s) failed: %v", name, err)
		}
		if !reflect.DeepEqual(m.Indices, sdm.Mesh.Indices) || m.Boundary != sdm.Mesh.Boundary {
			t.Errorf("%s: loaded mesh differs", name)
		}
	}

	if _, err := LoadMesh(filepath.Join(dir, "quad.obj")); err == nil {
		t.Error("expected error for unknown extension")
	}
}
