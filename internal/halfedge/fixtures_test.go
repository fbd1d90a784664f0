package halfedge

// gridTopology returns an n x m grid of CCW quads in the z=0 plane.
// Vertex (i, j) has id j*(n+1)+i and position (i, j, 0).
func gridTopology(n, m int) *Topology {
	vid := func(i, j int) uint32 { return uint32(j*(n+1) + i) }

	topo := &Topology{
		NumVertices:      (n + 1) * (m + 1),
		NumTimeSteps:     1,
		TessellationRate: 2,
		Boundary:         BoundaryEdgeOnly,
	}
	for j := 0; j < m; j++ {
		for i := 0; i < n; i++ {
			topo.FaceVertices = append(topo.FaceVertices, 4)
			topo.Indices = append(topo.Indices, vid(i, j), vid(i+1, j), vid(i+1, j+1), vid(i, j+1))
		}
	}

	positions := make([]float32, 0, topo.NumVertices*3)
	for j := 0; j <= m; j++ {
		for i := 0; i <= n; i++ {
			positions = append(positions, float32(i), float32(j), 0)
		}
	}
	topo.Positions = func(int) ([]float32, int) { return positions, 3 }
	return topo
}

// ringTopology is a central quad [0,1,2,3] with one neighbouring quad glued
// to each of its edges.
func ringTopology() *Topology {
	return &Topology{
		FaceVertices: []uint32{4, 4, 4, 4, 4},
		Indices: []uint32{
			0, 1, 2, 3,
			1, 0, 4, 5,
			2, 1, 6, 7,
			3, 2, 8, 9,
			0, 3, 10, 11,
		},
		NumVertices:      12,
		NumTimeSteps:     1,
		TessellationRate: 1,
	}
}

// nonManifoldTopology has three triangles sharing the edge (1,2).
func nonManifoldTopology() *Topology {
	return &Topology{
		FaceVertices:     []uint32{3, 3, 3},
		Indices:          []uint32{0, 1, 2, 2, 1, 3, 1, 2, 4},
		NumVertices:      5,
		NumTimeSteps:     1,
		TessellationRate: 1,
		Boundary:         BoundaryEdgeOnly,
	}
}
