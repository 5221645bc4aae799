package triangulate

import (
	"math"

	"github.com/cutgraph/meshcut/internal/geom"
)

// findDuplicates returns, for a 2D polygon boundary (cyclic, CCW), the
// indices of exact coordinate duplicates paired with their "mate" (the
// other index sharing the same coordinate). Used for the partial-cut slit
// case where a floating-polygon partition leaves two coincident vertices
// (spec §4.F step 5).
func findDuplicates(pts []geom.XY) map[int]int {
	byCoord := make(map[geom.XY][]int)
	for i, p := range pts {
		byCoord[p] = append(byCoord[p], i)
	}
	out := make(map[int]int)
	for _, idxs := range byCoord {
		if len(idxs) < 2 {
			continue
		}
		for k, i := range idxs {
			mate := idxs[(k+1)%len(idxs)]
			out[i] = mate
		}
	}
	return out
}

// rotate90CCW rotates v by +90 degrees.
func rotate90CCW(v geom.XY) geom.XY { return geom.XY{X: -v.Y, Y: v.X} }

func normalize(v geom.XY) geom.XY {
	l := math.Hypot(v.X, v.Y)
	if l == 0 {
		return v
	}
	return geom.XY{X: v.X / l, Y: v.Y / l}
}

func sub(a, b geom.XY) geom.XY { return geom.XY{X: a.X - b.X, Y: a.Y - b.Y} }
func length(v geom.XY) float64 { return math.Hypot(v.X, v.Y) }

// perturbationDirection implements the displacement-direction rule of step
// 5: the mean of the two incident edge vectors (sign-flipped if the local
// turn at i is clockwise), falling back to a 90-degree-CCW rotation of the
// shorter incident edge when the two incident edges are near-parallel.
func perturbationDirection(pts []geom.XY, i int) geom.XY {
	n := len(pts)
	p := pts[i]
	prev := pts[(i-1+n)%n]
	next := pts[(i+1)%n]

	toPrev := sub(prev, p)
	toNext := sub(next, p)

	flip := 1.0
	if geom.Orient2D(p, next, prev) < 0 {
		flip = -1
	}

	cross := toPrev.X*toNext.Y - toPrev.Y*toNext.X
	denom := length(toPrev)*length(toNext) + 1e-300
	if math.Abs(cross)/denom < 1e-2 {
		shorter := toPrev
		if length(toNext) < length(toPrev) {
			shorter = toNext
		}
		return normalize(rotate90CCW(shorter))
	}

	mean := geom.XY{X: (toPrev.X + toNext.X) / 2 * flip, Y: (toPrev.Y + toNext.Y) / 2 * flip}
	return normalize(mean)
}

// resolveDuplicateVertex translates pts[i] along its perturbation
// direction by 1e-2 times the distance to the closest crossed edge,
// excluding the two edges incident to i and the mate's incident edges. It
// reports false if no crossing was found (caller should then skip the
// face per step 5's final fallback).
func resolveDuplicateVertex(pts []geom.XY, i, mate int) bool {
	n := len(pts)
	dir := perturbationDirection(pts, i)
	p := pts[i]

	excluded := map[[2]int]bool{
		{(i - 1 + n) % n, i}: true,
		{i, (i + 1) % n}:     true,
		{(mate - 1 + n) % n, mate}: true,
		{mate, (mate + 1) % n}:     true,
	}

	best := math.Inf(1)
	found := false
	const rayLen = 1e6
	far := geom.XY{X: p.X + dir.X*rayLen, Y: p.Y + dir.Y*rayLen}
	for e := 0; e < n; e++ {
		a, b := e, (e+1)%n
		if excluded[[2]int{a, b}] {
			continue
		}
		res := geom.SegmentIntersection(p, far, pts[a], pts[b])
		if res.Code != geom.ProperIntersection && res.Code != geom.VertexTouch {
			continue
		}
		d := length(sub(res.Point, p))
		if d < best {
			best = d
			found = true
		}
	}
	if !found {
		return false
	}
	pts[i] = geom.XY{X: p.X + dir.X*1e-2*best, Y: p.Y + dir.Y*1e-2*best}
	return true
}
