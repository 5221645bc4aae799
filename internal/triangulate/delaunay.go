package triangulate

import (
	"math"
	"sort"

	"github.com/cutgraph/meshcut/internal/geom"
)

// tri is a CDT triangle named by indices into a shared point slice.
type tri struct {
	a, b, c int
}

// delaunay2D is a minimal incremental (Bowyer-Watson) constrained Delaunay
// triangulator over a fixed point set, grounded on the seed/insert/legalize
// pipeline shape of the iceisfun/gomesh cdt package: build a bounding super
// triangle, insert points one at a time, then recover constrained edges by
// flipping.
type delaunay2D struct {
	pts   []geom.XY
	tris  []tri
	super [3]int // indices of the super-triangle's three corner points
}

func newDelaunay2D(pts []geom.XY) *delaunay2D {
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	dx, dy := maxX-minX, maxY-minY
	delta := math.Max(dx, dy)
	if delta == 0 {
		delta = 1
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	d := &delaunay2D{pts: append([]geom.XY{}, pts...)}
	s0 := len(d.pts)
	d.pts = append(d.pts,
		geom.XY{X: midX - 20*delta, Y: midY - delta},
		geom.XY{X: midX, Y: midY + 20*delta},
		geom.XY{X: midX + 20*delta, Y: midY - delta},
	)
	d.super = [3]int{s0, s0 + 1, s0 + 2}
	d.tris = []tri{{s0, s0 + 1, s0 + 2}}
	for i := range pts {
		d.insert(i)
	}
	return d
}

func (d *delaunay2D) insert(p int) {
	pt := d.pts[p]
	var bad []int
	for i, t := range d.tris {
		if d.inCircumcircle(t, pt) {
			bad = append(bad, i)
		}
	}
	if len(bad) == 0 {
		// Numerical fallback: attach to the containing triangle by fan.
		for i, t := range d.tris {
			if d.pointInTriangle(t, pt) {
				bad = []int{i}
				break
			}
		}
		if len(bad) == 0 {
			return
		}
	}

	type edge struct{ u, v int }
	boundary := map[edge]int{}
	badSet := make(map[int]bool, len(bad))
	for _, i := range bad {
		badSet[i] = true
	}
	for _, i := range bad {
		t := d.tris[i]
		for _, e := range [3]edge{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}} {
			boundary[e]++
		}
	}

	var kept []tri
	for i, t := range d.tris {
		if !badSet[i] {
			kept = append(kept, t)
		}
	}
	// Collect the surviving boundary edges into a slice and sort by
	// (u, v) before fanning new triangles from them: ranging over the
	// boundary map directly would make d.tris's resulting order (and
	// therefore every triangulation this feeds downstream) depend on Go's
	// randomized map iteration order instead of the input alone.
	var boundaryEdges []edge
	for e, count := range boundary {
		rev := edge{e.v, e.u}
		if boundary[rev] > 0 {
			continue // internal shared edge between two bad triangles
		}
		if count != 1 {
			continue
		}
		boundaryEdges = append(boundaryEdges, e)
	}
	sort.Slice(boundaryEdges, func(i, j int) bool {
		if boundaryEdges[i].u != boundaryEdges[j].u {
			return boundaryEdges[i].u < boundaryEdges[j].u
		}
		return boundaryEdges[i].v < boundaryEdges[j].v
	})
	for _, e := range boundaryEdges {
		kept = append(kept, tri{e.u, e.v, p})
	}
	d.tris = kept
}

func (d *delaunay2D) inCircumcircle(t tri, p geom.XY) bool {
	a, b, c := d.pts[t.a], d.pts[t.b], d.pts[t.c]
	if geom.Orient2D(a, b, c) < 0 {
		a, b = b, a
	}
	ax, ay := a.X-p.X, a.Y-p.Y
	bx, by := b.X-p.X, b.Y-p.Y
	cx, cy := c.X-p.X, c.Y-p.Y
	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)
	return det > 1e-9
}

func (d *delaunay2D) pointInTriangle(t tri, p geom.XY) bool {
	a, b, c := d.pts[t.a], d.pts[t.b], d.pts[t.c]
	d1 := geom.Orient2D(a, b, p)
	d2 := geom.Orient2D(b, c, p)
	d3 := geom.Orient2D(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// removeSuperTriangle drops every triangle touching one of the three
// super-triangle corners.
func (d *delaunay2D) removeSuperTriangle() {
	isSuper := func(i int) bool {
		return i == d.super[0] || i == d.super[1] || i == d.super[2]
	}
	var kept []tri
	for _, t := range d.tris {
		if isSuper(t.a) || isSuper(t.b) || isSuper(t.c) {
			continue
		}
		kept = append(kept, t)
	}
	d.tris = kept
}

// recoverConstraint ensures there is a triangle edge exactly along (u,v),
// flipping the diagonal of any pair of triangles whose shared edge crosses
// it. Bounded iteration count; gives up (leaving the edge unrecovered)
// rather than looping forever on degenerate input.
func (d *delaunay2D) recoverConstraint(u, v int) bool {
	if d.hasEdge(u, v) {
		return true
	}
	for iter := 0; iter < 64; iter++ {
		if d.hasEdge(u, v) {
			return true
		}
		flipped := false
		for i := 0; i < len(d.tris); i++ {
			for j := i + 1; j < len(d.tris); j++ {
				shared, ok := sharedEdge(d.tris[i], d.tris[j])
				if !ok {
					continue
				}
				if crosses(d.pts[u], d.pts[v], d.pts[shared[0]], d.pts[shared[1]]) {
					if d.flip(i, j) {
						flipped = true
					}
					break
				}
			}
			if flipped {
				break
			}
		}
		if !flipped {
			break
		}
	}
	return d.hasEdge(u, v)
}

func (d *delaunay2D) hasEdge(u, v int) bool {
	for _, t := range d.tris {
		es := [3][2]int{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}}
		for _, e := range es {
			if (e[0] == u && e[1] == v) || (e[0] == v && e[1] == u) {
				return true
			}
		}
	}
	return false
}

func sharedEdge(a, b tri) ([2]int, bool) {
	av := [3]int{a.a, a.b, a.c}
	bv := map[int]bool{b.a: true, b.b: true, b.c: true}
	var shared []int
	for _, v := range av {
		if bv[v] {
			shared = append(shared, v)
		}
	}
	if len(shared) != 2 {
		return [2]int{}, false
	}
	return [2]int{shared[0], shared[1]}, true
}

// flip replaces the two triangles sharing an edge with the two triangles
// formed from the opposite diagonal, if that quad is convex.
func (d *delaunay2D) flip(i, j int) bool {
	ti, tj := d.tris[i], d.tris[j]
	shared, ok := sharedEdge(ti, tj)
	if !ok {
		return false
	}
	apex := func(t tri, e [2]int) int {
		for _, v := range [3]int{t.a, t.b, t.c} {
			if v != e[0] && v != e[1] {
				return v
			}
		}
		return -1
	}
	p := apex(ti, shared)
	q := apex(tj, shared)
	if p < 0 || q < 0 || !crosses(d.pts[p], d.pts[q], d.pts[shared[0]], d.pts[shared[1]]) {
		return false // quad is not strictly convex
	}
	d.tris[i] = tri{shared[0], p, q}
	d.tris[j] = tri{shared[1], q, p}
	return true
}

func crosses(p1, p2, q1, q2 geom.XY) bool {
	r := geom.SegmentIntersection(p1, p2, q1, q2)
	return r.Code == geom.ProperIntersection
}

// trianglesInsideRing keeps only the triangles whose centroid falls inside
// ring (a simple, possibly-CCW polygon given as point indices into d.pts).
func (d *delaunay2D) trianglesInsideRing(ring []int) []tri {
	poly := make([]geom.XY, len(ring))
	for i, idx := range ring {
		poly[i] = d.pts[idx]
	}
	var kept []tri
	for _, t := range d.tris {
		cx := (d.pts[t.a].X + d.pts[t.b].X + d.pts[t.c].X) / 3
		cy := (d.pts[t.a].Y + d.pts[t.b].Y + d.pts[t.c].Y) / 3
		code := geom.PointInPolygonTest(geom.XY{X: cx, Y: cy}, poly)
		if code == geom.Interior || code == geom.OnEdge {
			kept = append(kept, t)
		}
	}
	return kept
}
