// Package floatpoly implements the floating-polygon resolver (component
// E): given a kernel report of an intersection polygon wholly contained in
// the interior of a face (no edge severed), it partitions that face with a
// new interior edge so a subsequent kernel pass severs an edge of the face
// and eliminates the floating polygon.
package floatpoly

import (
	"fmt"
	"sort"

	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/cutgraph/meshcut/internal/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Resolver holds the bookkeeping shared across every floating-polygon
// resolution performed against one mesh during a dispatch: which faces
// were created by partitioning and which client birth face they descend
// from, and which vertices were invented by partitioning (spec §3's
// provenance maps, unoffsetted/internal form).
type Resolver struct {
	ChildToBirth            map[geom.FaceID]geom.FaceID
	NewPolyPartitionVertices map[geom.VertexID]r3.Vec

	// BVHRebuilt is set whenever a partition mutates the mesh (spec §4.E's
	// source_or_cut_BVH_rebuilt flag). The orchestrator decides which BVH
	// to rebuild from Resolve's boolean result, per mesh, not from this
	// field.
	BVHRebuilt bool
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		ChildToBirth:             make(map[geom.FaceID]geom.FaceID),
		NewPolyPartitionVertices: make(map[geom.VertexID]r3.Vec),
	}
}

func (r *Resolver) childrenOf(birth geom.FaceID) []geom.FaceID {
	var out []geom.FaceID
	for child, b := range r.ChildToBirth {
		if b == birth {
			out = append(out, child)
		}
	}
	return out
}

// birthOf returns the client birth face for f: f itself if f was never
// partitioned, or its recorded ancestor otherwise.
func (r *Resolver) birthOf(f geom.FaceID) geom.FaceID {
	if b, ok := r.ChildToBirth[f]; ok {
		return b
	}
	return f
}

// Resolve performs one floating-polygon resolution against m, following
// spec §4.E's five-step algorithm. It returns true if an edge was
// inserted, false if the FP was skipped because an earlier partition
// already severs it.
func (r *Resolver) Resolve(m *geom.Mesh, fp kernel.FloatingPolygon) (bool, error) {
	target, ok, err := r.pickTargetFace(m, fp)
	if err != nil {
		return false, err
	}
	if !ok {
		// An earlier partition already resolves this FP.
		return false, nil
	}

	seg, err := chooseSegment(fp)
	if err != nil {
		return false, err
	}

	crossings := intersectSegmentWithFace(m, target, fp, seg)
	if len(crossings) < 2 {
		return false, fmt.Errorf("floatpoly: fewer than 2 boundary crossings found for target face %d", target)
	}
	sort.Slice(crossings, func(i, j int) bool {
		return dist2(crossings[i].point2D, seg.mid) < dist2(crossings[j].point2D, seg.mid)
	})
	c0, c1 := crossings[0], crossings[1]

	birth := r.birthOf(target)
	child1, child2, v1, v2, err := r.splitFaceWithChord(m, target, c0, c1)
	if err != nil {
		return false, err
	}

	// Drop the target's own entry first: the first child reuses the
	// target's freed descriptor, so deleting afterwards would drop it.
	delete(r.ChildToBirth, target)
	r.ChildToBirth[child1] = birth
	r.ChildToBirth[child2] = birth
	r.NewPolyPartitionVertices[v1] = m.VertexPosition(v1)
	r.NewPolyPartitionVertices[v2] = m.VertexPosition(v2)
	r.BVHRebuilt = true
	return true, nil
}

// pickTargetFace implements step 1.
func (r *Resolver) pickTargetFace(m *geom.Mesh, fp kernel.FloatingPolygon) (geom.FaceID, bool, error) {
	parent := fp.ParentFace
	birth := r.birthOf(parent)
	children := r.childrenOf(birth)
	if len(children) == 0 {
		return parent, true, nil
	}

	fpProj := project(fp.Polygon, fp.DropAxis)
	for _, child := range children {
		edges2D := faceEdges2D(m, child, fp.DropAxis)
		for i := 0; i < len(fpProj); i++ {
			a, b := fpProj[i], fpProj[(i+1)%len(fpProj)]
			for _, e := range edges2D {
				res := geom.SegmentIntersection(a, b, e.a, e.b)
				if res.Code == geom.ProperIntersection {
					// Already severed by an earlier partition.
					return 0, false, nil
				}
			}
		}
	}
	for _, child := range children {
		edges2D := project(facePositions(m, child), fp.DropAxis)
		inside := true
		for _, p := range fpProj {
			if geom.PointInPolygonTest(p, edges2D) != geom.Interior {
				inside = false
				break
			}
		}
		if inside {
			return child, true, nil
		}
	}
	return 0, false, fmt.Errorf("floatpoly: no child of birth face %d strictly contains the floating polygon", birth)
}

type segment struct {
	a, b geom.XY
	mid  geom.XY
}

// chooseSegment implements step 2: rank all unordered pairs of FP edges by
// squared midpoint distance (largest first), accepting the first pair
// whose joining segment is not near-collinear (|orient2d| <= 1e-6) with
// any FP vertex. Only the FP's own vertices are tested; the target face's
// vertices are not.
func chooseSegment(fp kernel.FloatingPolygon) (segment, error) {
	proj := project(fp.Polygon, fp.DropAxis)
	n := len(proj)
	type pair struct {
		i, j int
		d2   float64
		mid1 geom.XY
		mid2 geom.XY
	}
	var pairs []pair
	mid := func(i int) geom.XY {
		a, b := proj[i], proj[(i+1)%n]
		return geom.XY{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m1, m2 := mid(i), mid(j)
			pairs = append(pairs, pair{i, j, dist2(m1, m2), m1, m2})
		}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].d2 > pairs[b].d2 })

	const tol = 1e-6
	for _, p := range pairs {
		collinearBad := false
		for _, v := range proj {
			if v == p.mid1 || v == p.mid2 {
				continue
			}
			if near0(geom.Orient2D(p.mid1, p.mid2, v), tol) {
				collinearBad = true
				break
			}
		}
		if collinearBad {
			continue
		}
		return segment{
			a:   p.mid1,
			b:   p.mid2,
			mid: geom.XY{X: (p.mid1.X + p.mid2.X) / 2, Y: (p.mid1.Y + p.mid2.Y) / 2},
		}, nil
	}
	return segment{}, fmt.Errorf("floatpoly: no partitioning segment accepted (all near-collinear)")
}

func near0(v, tol float64) bool {
	if v < 0 {
		v = -v
	}
	return v <= tol
}

type crossing struct {
	halfedge geom.HalfedgeID
	t        float64 // parameter along halfedge source->target
	point2D  geom.XY
	point3D  r3.Vec
}

// intersectSegmentWithFace implements step 3: intersect the segment's
// supporting line with every edge of the target face (projected with the
// FP's normal/drop axis), keeping crossings whose parameter lies in [0,1].
func intersectSegmentWithFace(m *geom.Mesh, target geom.FaceID, fp kernel.FloatingPolygon, seg segment) []crossing {
	// Extend the segment into a line by projecting far beyond both ends;
	// SegmentIntersection already reports line-line intersections via the
	// 'ipoint' output even for NoIntersection, so probe each face edge
	// against a long extension of the segment.
	dir := geom.XY{X: seg.b.X - seg.a.X, Y: seg.b.Y - seg.a.Y}
	const extend = 1e6
	p0 := geom.XY{X: seg.a.X - dir.X*extend, Y: seg.a.Y - dir.Y*extend}
	p1 := geom.XY{X: seg.b.X + dir.X*extend, Y: seg.b.Y + dir.Y*extend}

	var out []crossing
	for _, h := range m.HalfedgesAroundFace(target) {
		sPos := m.VertexPosition(m.Source(h))
		tPos := m.VertexPosition(m.Target(h))
		a2 := geom.ProjectTo2D(sPos, fp.DropAxis)
		b2 := geom.ProjectTo2D(tPos, fp.DropAxis)
		res := geom.SegmentIntersection(p0, p1, a2, b2)
		if res.Code == geom.NoIntersection {
			continue
		}
		if res.TQ < -1e-9 || res.TQ > 1+1e-9 {
			continue
		}
		t := clamp01(res.TQ)
		out = append(out, crossing{
			halfedge: h,
			t:        t,
			point2D:  res.Point,
			point3D:  r3.Add(sPos, r3.Scale(t, r3.Sub(tPos, sPos))),
		})
	}
	return out
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// splitFaceWithChord performs step 5's surgery: split the two boundary
// halfedges at c0 and c1 with new vertices, add the chord edge between
// them, and re-trace the target face (which becomes two children) and any
// neighbor face across each split boundary edge.
func (r *Resolver) splitFaceWithChord(m *geom.Mesh, target geom.FaceID, c0, c1 crossing) (geom.FaceID, geom.FaceID, geom.VertexID, geom.VertexID, error) {
	oldCycle := m.HalfedgesAroundFace(target)

	v0 := m.AddVertex(c0.point3D)
	v1 := m.AddVertex(c1.point3D)

	// Build the new target-face cycle by walking the old cycle and
	// splicing in v0/v1 wherever a split halfedge is encountered.
	newCycle := make([]geom.VertexID, 0, len(oldCycle)+2)
	splitAt := map[geom.HalfedgeID]geom.VertexID{c0.halfedge: v0, c1.halfedge: v1}
	for _, h := range oldCycle {
		newCycle = append(newCycle, m.Source(h))
		if v, ok := splitAt[h]; ok {
			newCycle = append(newCycle, v)
		}
	}

	// Neighbors across the two split boundary edges must also learn about
	// the new vertex, before we remove the old edges.
	type neighborFix struct {
		face  geom.FaceID
		cycle []geom.VertexID
	}
	var fixes []neighborFix
	for _, c := range [2]crossing{c0, c1} {
		opp := m.Opposite(c.halfedge)
		nf := m.Face(opp)
		if nf == geom.NullFace {
			continue
		}
		oppCycle := m.HalfedgesAroundFace(nf)
		v := splitAt[c.halfedge]
		nc := make([]geom.VertexID, 0, len(oppCycle)+1)
		for _, h := range oppCycle {
			nc = append(nc, m.Source(h))
			if h == opp {
				nc = append(nc, v)
			}
		}
		fixes = append(fixes, neighborFix{face: nf, cycle: nc})
	}

	// Remove every face and edge touched by the split, then rebuild. Drain
	// touched in ascending face-id order: RemoveFace pushes onto a LIFO
	// free-list, so removing in map-iteration order (randomized per
	// process) would hand the later AddFace calls different ids across
	// runs of the identical split.
	touchedSet := map[geom.FaceID]bool{target: true}
	for _, fx := range fixes {
		touchedSet[fx.face] = true
	}
	touched := make([]geom.FaceID, 0, len(touchedSet))
	for f := range touchedSet {
		touched = append(touched, f)
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i] < touched[j] })
	for _, f := range touched {
		m.RemoveFace(f)
	}
	for _, h := range [2]geom.HalfedgeID{c0.halfedge, c1.halfedge} {
		m.RemoveEdge(m.Edge(h))
	}
	for _, fx := range fixes {
		if m.AddFace(fx.cycle) == geom.NullFace {
			return 0, 0, 0, 0, fmt.Errorf("floatpoly: failed to re-add neighbor face across split edge")
		}
	}

	// Split newCycle into the two child polygons along the v0..v1 chord.
	i0, i1 := indexOf(newCycle, v0), indexOf(newCycle, v1)
	if i0 < 0 || i1 < 0 {
		return 0, 0, 0, 0, fmt.Errorf("floatpoly: new vertices missing from rebuilt face cycle")
	}
	childA := cyclicSlice(newCycle, i0, i1)
	childB := cyclicSlice(newCycle, i1, i0)

	fa := m.AddFace(childA)
	fb := m.AddFace(childB)
	if fa == geom.NullFace || fb == geom.NullFace {
		return 0, 0, 0, 0, fmt.Errorf("floatpoly: failed to add partitioned child faces")
	}
	return fa, fb, v0, v1, nil
}

func indexOf(s []geom.VertexID, v geom.VertexID) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// cyclicSlice returns the vertices from index from to index to inclusive,
// wrapping around the cycle.
func cyclicSlice(s []geom.VertexID, from, to int) []geom.VertexID {
	n := len(s)
	var out []geom.VertexID
	for i := from; ; i = (i + 1) % n {
		out = append(out, s[i])
		if i == to {
			break
		}
	}
	return out
}

func facePositions(m *geom.Mesh, f geom.FaceID) []r3.Vec {
	verts := m.VerticesAroundFace(f)
	out := make([]r3.Vec, len(verts))
	for i, v := range verts {
		out[i] = m.VertexPosition(v)
	}
	return out
}

func faceEdges2D(m *geom.Mesh, f geom.FaceID, dropAxis int) []struct{ a, b geom.XY } {
	pts := project(facePositions(m, f), dropAxis)
	n := len(pts)
	out := make([]struct{ a, b geom.XY }, n)
	for i := range pts {
		out[i] = struct{ a, b geom.XY }{pts[i], pts[(i+1)%n]}
	}
	return out
}

func project(pts []r3.Vec, dropAxis int) []geom.XY {
	out := make([]geom.XY, len(pts))
	for i, p := range pts {
		out[i] = geom.ProjectTo2D(p, dropAxis)
	}
	return out
}

func dist2(a, b geom.XY) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}
