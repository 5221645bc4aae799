// Package ingest implements the input validator (component C): connectivity,
// manifoldness-by-construction, and coplanarity checks over raw client face
// arrays before they are handed to the halfedge mesh store.
package ingest

import (
	"fmt"

	"github.com/cutgraph/meshcut/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// RawMesh is the client-supplied face-array form of a mesh, matching the
// §6 input layout: interleaved vertex positions, flat face-index array and
// per-face sizes (nil sizes means "triangle soup").
type RawMesh struct {
	Vertices  []r3.Vec
	Faces     []uint32
	FaceSizes []uint32 // nil => all faces are triangles
}

// Diagnostic is a non-fatal warning surfaced via the debug callback (spec
// §4.C: non-coplanar n-gons are warned but not rejected).
type Diagnostic struct {
	Face    int
	Message string
}

// Validate builds a halfedge mesh from raw, validating connectivity and
// manifoldness-by-construction. It returns the built mesh, the per-face
// vertex-id slices (useful to callers that need the original face shape),
// any non-fatal diagnostics, and an error for spec §7's "invalid input
// mesh" class.
func Validate(raw RawMesh) (*geom.Mesh, [][]geom.VertexID, []Diagnostic, error) {
	if len(raw.Vertices) < 3 {
		return nil, nil, nil, fmt.Errorf("ingest: mesh has %d vertices, need at least 3", len(raw.Vertices))
	}

	faceSizes := raw.FaceSizes
	if faceSizes == nil {
		if len(raw.Faces)%3 != 0 {
			return nil, nil, nil, fmt.Errorf("ingest: triangle-soup face array length %d not a multiple of 3", len(raw.Faces))
		}
		faceSizes = make([]uint32, len(raw.Faces)/3)
		for i := range faceSizes {
			faceSizes[i] = 3
		}
	}
	if len(faceSizes) < 1 {
		return nil, nil, nil, fmt.Errorf("ingest: mesh has 0 faces")
	}

	m := geom.NewMesh()
	vids := make([]geom.VertexID, len(raw.Vertices))
	for i, p := range raw.Vertices {
		vids[i] = m.AddVertex(p)
	}

	faceVerts := make([][]geom.VertexID, len(faceSizes))
	var diags []Diagnostic
	offset := uint32(0)
	for fi, size := range faceSizes {
		if size < 3 {
			return nil, nil, nil, fmt.Errorf("ingest: face %d has size %d, need at least 3", fi, size)
		}
		idxs := raw.Faces[offset : offset+size]
		offset += size

		verts := make([]geom.VertexID, size)
		seen := make(map[uint32]bool, size)
		for i, idx := range idxs {
			if int(idx) >= len(raw.Vertices) {
				return nil, nil, nil, fmt.Errorf("ingest: face %d references out-of-range vertex %d", fi, idx)
			}
			if seen[idx] {
				return nil, nil, nil, fmt.Errorf("ingest: face %d has duplicate vertex %d", fi, idx)
			}
			seen[idx] = true
			verts[i] = vids[idx]
		}

		if !isPlanarEnough(m, verts) {
			diags = append(diags, Diagnostic{Face: fi, Message: "face is not coplanar within tolerance"})
		}

		fid := m.AddFace(verts)
		if fid == geom.NullFace {
			return nil, nil, nil, fmt.Errorf("ingest: face %d rejected: duplicate vertex or non-manifold directed edge", fi)
		}
		faceVerts[fi] = verts
	}

	if err := checkSingleComponent(m); err != nil {
		return nil, nil, nil, err
	}

	return m, faceVerts, diags, nil
}

func isPlanarEnough(m *geom.Mesh, verts []geom.VertexID) bool {
	if len(verts) == 3 {
		return true
	}
	pts := make([]r3.Vec, len(verts))
	for i, v := range verts {
		pts[i] = m.VertexPosition(v)
	}
	a, b, c := pts[0], pts[1], pts[2]
	for i := 3; i < len(pts); i++ {
		if !geom.Coplanar(a, b, c, pts[i]) {
			return false
		}
	}
	return true
}

// checkSingleComponent requires the mesh's faces to form exactly one
// connected component under face adjacency (spec §4.C), computed with a
// union-find over live faces.
func checkSingleComponent(m *geom.Mesh) error {
	faces := m.FaceIDs()
	if len(faces) == 0 {
		return fmt.Errorf("ingest: mesh has 0 faces")
	}
	uf := newUnionFind(faces)
	for _, f := range faces {
		for _, nf := range m.FacesAroundFace(f) {
			uf.union(f, nf)
		}
	}
	root := uf.find(faces[0])
	for _, f := range faces[1:] {
		if uf.find(f) != root {
			return fmt.Errorf("ingest: mesh has more than one connected component")
		}
	}
	return nil
}

type unionFind struct {
	parent map[geom.FaceID]geom.FaceID
	rank   map[geom.FaceID]int
}

func newUnionFind(faces []geom.FaceID) *unionFind {
	uf := &unionFind{
		parent: make(map[geom.FaceID]geom.FaceID, len(faces)),
		rank:   make(map[geom.FaceID]int, len(faces)),
	}
	for _, f := range faces {
		uf.parent[f] = f
	}
	return uf
}

func (uf *unionFind) find(f geom.FaceID) geom.FaceID {
	for uf.parent[f] != f {
		uf.parent[f] = uf.parent[uf.parent[f]]
		f = uf.parent[f]
	}
	return f
}

func (uf *unionFind) union(a, b geom.FaceID) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
