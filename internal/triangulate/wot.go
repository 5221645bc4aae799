package triangulate

import (
	"github.com/cutgraph/meshcut/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// wot is the winding-order tracker (spec §4.F step 3): a fresh halfedge
// mesh seeded with the target face's one-hop neighbors, used to reject any
// CDT triangle whose winding would conflict with the surrounding mesh.
type wot struct {
	mesh *geom.Mesh
	// toWOT maps a vertex id in the source mesh to its counterpart in the
	// WOT, and toOrig maps back.
	toWOT  map[geom.VertexID]geom.VertexID
	toOrig map[geom.VertexID]geom.VertexID

	seedHalfedge geom.HalfedgeID
}

// buildWOT implements step 3: seed a new halfedge mesh with the face
// cycles of target's one-hop face neighbors (each neighbor reached via a
// halfedge of target), recording the first boundary halfedge that borders
// an already-inserted neighbor face as the seed halfedge.
func buildWOT(m *geom.Mesh, target geom.FaceID) *wot {
	w := &wot{
		mesh:   geom.NewMesh(),
		toWOT:  make(map[geom.VertexID]geom.VertexID),
		toOrig: make(map[geom.VertexID]geom.VertexID),
	}

	ensure := func(orig geom.VertexID) geom.VertexID {
		if v, ok := w.toWOT[orig]; ok {
			return v
		}
		v := w.mesh.AddVertex(m.VertexPosition(orig))
		w.toWOT[orig] = v
		w.toOrig[v] = orig
		return v
	}

	seen := make(map[geom.FaceID]bool)
	targetHalfedges := m.HalfedgesAroundFace(target)
	for _, h := range targetHalfedges {
		opp := m.Opposite(h)
		nf := m.Face(opp)
		if nf == geom.NullFace || nf == target || seen[nf] {
			continue
		}
		seen[nf] = true
		verts := m.VerticesAroundFace(nf)
		wverts := make([]geom.VertexID, len(verts))
		for i, v := range verts {
			wverts[i] = ensure(v)
		}
		w.mesh.AddFace(wverts)

		if w.seedHalfedge == geom.NullHalfedge {
			w.seedHalfedge = h
		}
	}

	// Ensure the target face's own vertices are present (step 4), even if
	// it has no neighbors at all (a fully isolated face).
	for _, v := range m.VerticesAroundFace(target) {
		ensure(v)
	}

	return w
}

// vertex maps an original-mesh vertex id into its WOT counterpart,
// creating it if step 4 hadn't already.
func (w *wot) vertex(orig geom.VertexID, pos r3.Vec) geom.VertexID {
	if v, ok := w.toWOT[orig]; ok {
		return v
	}
	v := w.mesh.AddVertex(pos)
	w.toWOT[orig] = v
	w.toOrig[v] = orig
	return v
}

// tryAddFace attempts to add verts (in the given winding) to the WOT,
// reversing (swapping indices 0 and 2, for a triangle) and retrying once
// if the initial winding is not insertable, matching step 7's reversal
// rule.
func (w *wot) tryAddFace(verts []geom.VertexID) (geom.FaceID, bool) {
	if w.mesh.IsInsertable(verts) {
		return w.mesh.AddFace(verts), true
	}
	if len(verts) == 3 {
		rev := []geom.VertexID{verts[2], verts[1], verts[0]}
		if w.mesh.IsInsertable(rev) {
			return w.mesh.AddFace(rev), true
		}
	}
	return geom.NullFace, false
}
