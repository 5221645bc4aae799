// Package triangulate implements the per-face constrained Delaunay
// triangulator (component F): it retriangulates n-gon output faces while
// preserving their original winding via a winding-order tracker, and
// perturbs coincident vertices produced by partial-cut slits before
// triangulating.
package triangulate

import (
	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r3"
)

// Logger receives the triangulator's per-face, non-fatal diagnostics. A
// Triangulator built with a nil Logger discards them.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// NopLogger discards all diagnostics.
type NopLogger struct{}

func (NopLogger) Warnf(string, ...interface{}) {}

// Triangulator retriangulates faces of a halfedge mesh on demand (spec §2:
// "any face query in FACE_TRIANGULATION lazily invokes F").
type Triangulator struct {
	Log Logger
}

// New returns a Triangulator that logs to l (or discards diagnostics if l
// is nil).
func New(l Logger) *Triangulator {
	if l == nil {
		l = NopLogger{}
	}
	return &Triangulator{Log: l}
}

// TriangulateFace triangulates face and returns the flat list of vertex-id
// triples (original mesh VertexIDs), or ok=false if the face had to be
// skipped (leaving a hole, per spec §9).
func (tr *Triangulator) TriangulateFace(m *geom.Mesh, face geom.FaceID) ([]geom.VertexID, bool) {
	verts := m.VerticesAroundFace(face)
	if len(verts) == 3 {
		return verts, true
	}
	n := len(verts)
	if n < 3 {
		tr.Log.Warnf("triangulate: face %d has fewer than 3 vertices", face)
		return nil, false
	}

	positions := make([]orb.Point, 0, n) // for orientation cross-check below
	plane := planeOf(m, verts)
	pts2D := make([]geom.XY, n)
	for i, v := range verts {
		p := geom.ProjectTo2D(m.VertexPosition(v), plane.LargestAbsComponent)
		pts2D[i] = p
		positions = append(positions, orb.Point{p.X, p.Y})
	}

	// Step 2: signed-area orientation check per spec's exact formula
	// (sum of orient2d over consecutive vertex triples), cross-checked
	// against orb's ring-orientation classification.
	area := 0.0
	for i := 0; i < n; i++ {
		area += geom.Orient2D(pts2D[i], pts2D[(i+1)%n], pts2D[(i+2)%n])
	}
	reversed := area < 0
	if ring := orb.Ring(positions); (ring.Orientation() == orb.CW) != reversed {
		tr.Log.Warnf("triangulate: face %d orientation heuristic disagreed with orb ring orientation", face)
	}

	localToOrig := make([]int, n) // CDT-local index -> index into verts/pts2D before reversal
	orderedPts := make([]geom.XY, n)
	if reversed {
		for i := 0; i < n; i++ {
			orig := (-(i + 1)) % n
			if orig < 0 {
				orig += n
			}
			localToOrig[i] = orig
			orderedPts[i] = pts2D[orig]
		}
	} else {
		for i := 0; i < n; i++ {
			localToOrig[i] = i
			orderedPts[i] = pts2D[i]
		}
	}

	// Step 3: winding-order tracker seeded from target's neighbors.
	w := buildWOT(m, face)

	// Step 5: duplicate-vertex perturbation.
	for attempt := 0; attempt < 4; attempt++ {
		dups := findDuplicates(orderedPts)
		if len(dups) == 0 {
			break
		}
		progressed := false
		for i, mate := range dups {
			if resolveDuplicateVertex(orderedPts, i, mate) {
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	if dups := findDuplicates(orderedPts); len(dups) > 0 {
		tr.Log.Warnf("triangulate: face %d still has duplicate projected vertices after perturbation, skipping", face)
		return nil, false
	}

	// Step 6: constrained Delaunay triangulation.
	d := newDelaunay2D(orderedPts)
	ring := make([]int, n)
	fixed := make(map[[2]int]bool, n)
	for i := 0; i < n; i++ {
		ring[i] = i
		j := (i + 1) % n
		if !d.recoverConstraint(i, j) {
			tr.Log.Warnf("triangulate: face %d: could not recover boundary edge %d-%d", face, i, j)
		}
		fixed[[2]int{i, j}] = true
		fixed[[2]int{j, i}] = true
	}
	d.removeSuperTriangle()
	d.tris = d.trianglesInsideRing(ring)
	if len(d.tris) == 0 {
		tr.Log.Warnf("triangulate: face %d produced no interior triangles", face)
		return nil, false
	}

	// Step 7: BFS reassembly into the WOT with correct winding.
	out, used := tr.reassemble(m, face, verts, localToOrig, d, fixed, w)

	// Step 8: completeness diagnostic.
	for i := 0; i < n; i++ {
		if !used[i] {
			tr.Log.Warnf("triangulate: face %d: vertex %d never appeared in any emitted triangle", face, verts[i])
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func planeOf(m *geom.Mesh, verts []geom.VertexID) geom.PlaneCoefficients {
	positions := make([]r3.Vec, len(verts))
	for i, v := range verts {
		positions[i] = m.VertexPosition(v)
	}
	return geom.ComputePolygonPlaneCoefficients(positions)
}

// reassemble implements step 7: find the CDT triangle adjacent to the
// fixed edge matching the WOT's seed halfedge, then BFS through
// non-fixed edges, adding each triangle to the WOT (reversing once on
// failure) and emitting it on success.
func (tr *Triangulator) reassemble(
	m *geom.Mesh, face geom.FaceID, verts []geom.VertexID, localToOrig []int,
	d *delaunay2D, fixed map[[2]int]bool, w *wot,
) ([]geom.VertexID, map[int]bool) {
	used := make(map[int]bool)
	var out []geom.VertexID

	start := tr.findSeedTriangle(m, face, verts, localToOrig, d, w)
	visited := make(map[int]bool)
	queue := []int{}
	if start >= 0 {
		queue = append(queue, start)
	} else if len(d.tris) > 0 {
		queue = append(queue, 0)
	}

	emit := func(idx int) {
		t := d.tris[idx]
		origVerts := []geom.VertexID{
			verts[localToOrig[t.a]],
			verts[localToOrig[t.b]],
			verts[localToOrig[t.c]],
		}
		wverts := make([]geom.VertexID, 3)
		for i, ov := range origVerts {
			wverts[i] = w.vertex(ov, m.VertexPosition(ov))
		}
		reversed := !w.mesh.IsInsertable(wverts)
		if _, ok := w.tryAddFace(wverts); !ok {
			// Reversal already attempted inside tryAddFace; drop the
			// triangle per step 7's final fallback.
			tr.Log.Warnf("triangulate: face %d: dropped a triangle that could not be inserted in either winding", face)
			return
		}
		if reversed {
			// The WOT accepted the reversed winding; emit that winding.
			origVerts[0], origVerts[2] = origVerts[2], origVerts[0]
		}
		out = append(out, origVerts[0], origVerts[1], origVerts[2])
		used[localToOrig[t.a]] = true
		used[localToOrig[t.b]] = true
		used[localToOrig[t.c]] = true
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if visited[idx] {
			continue
		}
		visited[idx] = true
		emit(idx)

		t := d.tris[idx]
		for _, e := range [3][2]int{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}} {
			if fixed[e] {
				continue
			}
			for j, other := range d.tris {
				if visited[j] || j == idx {
					continue
				}
				if _, ok := sharedEdge(t, other); ok && edgeInTri(other, e) {
					queue = append(queue, j)
				}
			}
		}
	}

	// Any triangle not reached by BFS (disconnected across only-fixed
	// edges) is still emitted, best-effort, so output coverage doesn't
	// silently regress for simple convex faces.
	for idx := range d.tris {
		if !visited[idx] {
			emit(idx)
		}
	}

	return out, used
}

func edgeInTri(t tri, e [2]int) bool {
	vs := [3]int{t.a, t.b, t.c}
	has := func(x int) bool { return vs[0] == x || vs[1] == x || vs[2] == x }
	return has(e[0]) && has(e[1])
}

func (tr *Triangulator) findSeedTriangle(
	m *geom.Mesh, face geom.FaceID, verts []geom.VertexID, localToOrig []int,
	d *delaunay2D, w *wot,
) int {
	if w.seedHalfedge == geom.NullHalfedge {
		return -1
	}
	sv, tv := m.Source(w.seedHalfedge), m.Target(w.seedHalfedge)
	si, ti := -1, -1
	for i, orig := range localToOrig {
		if verts[orig] == sv {
			si = i
		}
		if verts[orig] == tv {
			ti = i
		}
	}
	if si < 0 || ti < 0 {
		return -1
	}
	for idx, t := range d.tris {
		if edgeInTri(t, [2]int{si, ti}) {
			return idx
		}
	}
	return -1
}
