package main

import (
	"fmt"
	"slices"

	"github.com/Faultbox/subdiv/internal/config"
	"github.com/Faultbox/subdiv/internal/halfedge"
	"github.com/Faultbox/subdiv/internal/parallel"
	"github.com/Faultbox/subdiv/internal/patch"
	"github.com/Faultbox/subdiv/internal/subdiv"
	"github.com/Faultbox/subdiv/internal/tesscache"
	"github.com/Faultbox/subdiv/pkg/formats"
)

// env holds what every command shares: the worker pool the builds fork on
// and the tessellation cache all meshes resolve patches through.
type env struct {
	cfg   *config.Config
	pool  *parallel.WorkerPool
	cache *tesscache.Cache[*patch.Tree]
}

func newEnv(cfg *config.Config) *env {
	return &env{
		cfg:  cfg,
		pool: parallel.NewWorkerPool(cfg.WorkerCount()),
		cache: tesscache.New[*patch.Tree](tesscache.Options{
			Capacity:  cfg.Cache.ShardCapacity,
			Namespace: "subdivtool",
		}),
	}
}

func (e *env) Close() {
	e.pool.Close()
}

// boundary picks the boundary mode: -boundary flag, then the mesh file,
// then the config.
func (e *env) boundary(data *formats.MeshData) (halfedge.BoundaryMode, error) {
	name := data.Boundary
	if f := config.BoundaryFlag(); f != "" {
		name = f
	}
	if name == "" {
		return e.cfg.Boundary(), nil
	}
	return halfedge.ParseBoundaryMode(name)
}

func (e *env) rate(data *formats.MeshData) float32 {
	if data.TessellationRate > 0 {
		return data.TessellationRate
	}
	return e.cfg.Subdiv.TessellationRate
}

// timeSteps returns the number of time steps to build with. A single-step
// file is replicated up to the configured count.
func (e *env) timeSteps(data *formats.MeshData) int {
	if n := data.NumTimeSteps(); n > 1 || e.cfg.Subdiv.TimeSteps <= 1 {
		return n
	}
	return e.cfg.Subdiv.TimeSteps
}

// openMesh creates and commits a mesh from loaded data.
func (e *env) openMesh(data *formats.MeshData) (*subdiv.Mesh, error) {
	mode, err := e.boundary(data)
	if err != nil {
		return nil, err
	}

	m := subdiv.New(subdiv.Options{
		TimeSteps:        e.timeSteps(data),
		Boundary:         mode,
		TessellationRate: e.rate(data),
		Pool:             e.pool,
		Grain:            e.cfg.Subdiv.RadixGrain,
		Cache:            e.cache,
	})
	if _, err := setBuffers(m, nil, data); err != nil {
		return nil, err
	}
	if err := m.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

// setBuffers hands cur's arrays to m. With a previous version of the data
// only the arrays that differ are set, so the next Commit sees exactly the
// buffers that changed. It returns the number of buffers set.
func setBuffers(m *subdiv.Mesh, prev, cur *formats.MeshData) (int, error) {
	if prev != nil && prev.NumTimeSteps() != cur.NumTimeSteps() {
		return 0, fmt.Errorf("time step count changed from %d to %d", prev.NumTimeSteps(), cur.NumTimeSteps())
	}

	set := 0
	uints := []struct {
		b          subdiv.BufferType
		prev, data []uint32
	}{
		{b: subdiv.BufferFaces, data: cur.FaceVertices},
		{b: subdiv.BufferIndices, data: cur.Indices},
		{b: subdiv.BufferEdgeCreaseIndices, data: cur.EdgeCreaseIDs},
		{b: subdiv.BufferVertexCreaseIndices, data: cur.VertexCreaseIDs},
		{b: subdiv.BufferHoles, data: cur.Holes},
	}
	floats := []struct {
		b          subdiv.BufferType
		prev, data []float32
	}{
		{b: subdiv.BufferEdgeCreaseWeights, data: cur.EdgeCreaseWeights},
		{b: subdiv.BufferVertexCreaseWeights, data: cur.VertexCreaseWeights},
		{b: subdiv.BufferLevels, data: cur.Levels},
	}
	if prev != nil {
		for i, p := range [][]uint32{prev.FaceVertices, prev.Indices, prev.EdgeCreaseIDs, prev.VertexCreaseIDs, prev.Holes} {
			uints[i].prev = p
		}
		for i, p := range [][]float32{prev.EdgeCreaseWeights, prev.VertexCreaseWeights, prev.Levels} {
			floats[i].prev = p
		}
	}

	for _, u := range uints {
		if prev != nil && slices.Equal(u.prev, u.data) {
			continue
		}
		if err := m.SetUint32Buffer(u.b, u.data); err != nil {
			return set, err
		}
		set++
	}
	for _, f := range floats {
		if f.b == subdiv.BufferLevels && f.data == nil && (prev == nil || prev.Levels == nil) {
			continue
		}
		if prev != nil && slices.Equal(f.prev, f.data) {
			continue
		}
		if err := m.SetFloatBuffer(f.b, 0, f.data, 1); err != nil {
			return set, err
		}
		set++
	}

	for t := 0; t < m.TimeSteps(); t++ {
		src := min(t, cur.NumTimeSteps()-1)
		if prev != nil && slices.Equal(prev.Vertices[src], cur.Vertices[src]) {
			continue
		}
		if err := m.SetFloatBuffer(subdiv.BufferVertex, t, cur.Vertices[src], 3); err != nil {
			return set, err
		}
		set++
	}
	return set, nil
}
