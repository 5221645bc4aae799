package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// XY is a 2D point, the result of projecting an r3.Vec to a plane.
type XY struct {
	X, Y float64
}

// Orient2D returns twice the signed area of triangle (a,b,c): positive for
// CCW, negative for CW, zero for collinear.
func Orient2D(a, b, c XY) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
}

// Collinear returns the Orient2D value for (a,b,c), to be compared against a
// caller-chosen tolerance.
func Collinear(a, b, c XY) float64 {
	return Orient2D(a, b, c)
}

// IntersectionCode classifies the result of SegmentIntersection.
type IntersectionCode byte

const (
	// NoIntersection ('0'): the segments do not meet, though their
	// supporting lines might (Ipoint is still populated in that case).
	NoIntersection IntersectionCode = '0'
	// ProperIntersection ('1'): a single interior crossing point.
	ProperIntersection IntersectionCode = '1'
	// VertexTouch ('v'): an endpoint of one segment touches the other.
	VertexTouch IntersectionCode = 'v'
	// CollinearOverlap ('e'): the segments are collinear and overlap.
	CollinearOverlap IntersectionCode = 'e'
)

// SegmentIntersectionResult is the full outcome of SegmentIntersection.
type SegmentIntersectionResult struct {
	Code   IntersectionCode
	Point  XY
	TP, TQ float64 // parameters along p0->p1 and q0->q1
}

// SegmentIntersection computes the intersection of segment p0-p1 with
// segment q0-q1 per spec §4.B.
func SegmentIntersection(p0, p1, q0, q1 XY) SegmentIntersectionResult {
	r := XY{p1.X - p0.X, p1.Y - p0.Y}
	s := XY{q1.X - q0.X, q1.Y - q0.Y}
	denom := cross(r, s)
	qp := XY{q0.X - p0.X, q0.Y - p0.Y}

	const eps = 1e-12
	if math.Abs(denom) < eps {
		// Parallel. Check collinearity.
		if math.Abs(cross(qp, r)) >= eps {
			return SegmentIntersectionResult{Code: NoIntersection}
		}
		// Collinear: project onto r to find overlap.
		rr := dot(r, r)
		if rr < eps {
			return SegmentIntersectionResult{Code: NoIntersection}
		}
		t0 := dot(qp, r) / rr
		t1 := t0 + dot(s, r)/rr
		lo, hi := t0, t1
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi < -eps || lo > 1+eps {
			return SegmentIntersectionResult{Code: NoIntersection}
		}
		mid := math.Max(0, lo)
		return SegmentIntersectionResult{
			Code:  CollinearOverlap,
			Point: XY{p0.X + r.X*mid, p0.Y + r.Y*mid},
			TP:    mid,
		}
	}

	tp := cross(qp, s) / denom
	tq := cross(qp, r) / denom
	ip := XY{p0.X + tp*r.X, p0.Y + tp*r.Y}

	inP := tp >= -eps && tp <= 1+eps
	inQ := tq >= -eps && tq <= 1+eps
	if !inP || !inQ {
		return SegmentIntersectionResult{Code: NoIntersection, Point: ip, TP: tp, TQ: tq}
	}
	onVertex := near(tp, 0) || near(tp, 1) || near(tq, 0) || near(tq, 1)
	if onVertex {
		return SegmentIntersectionResult{Code: VertexTouch, Point: ip, TP: tp, TQ: tq}
	}
	return SegmentIntersectionResult{Code: ProperIntersection, Point: ip, TP: tp, TQ: tq}
}

func near(t, target float64) bool { return math.Abs(t-target) < 1e-9 }
func cross(a, b XY) float64       { return a.X*b.Y - a.Y*b.X }
func dot(a, b XY) float64         { return a.X*b.X + a.Y*b.Y }

// PointInPolygonCode classifies the result of PointInPolygonTest.
type PointInPolygonCode byte

const (
	Interior PointInPolygonCode = 'i'
	Exterior PointInPolygonCode = 'o'
	OnVertex PointInPolygonCode = 'v'
	OnEdge   PointInPolygonCode = 'e'
)

// PointInPolygonTest classifies p against the (possibly non-convex) simple
// polygon poly, using a crossing-number test with explicit vertex/edge
// coincidence checks.
func PointInPolygonTest(p XY, poly []XY) PointInPolygonCode {
	n := len(poly)
	for i := 0; i < n; i++ {
		if p == poly[i] {
			return OnVertex
		}
	}
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		if onSegment(p, a, b) {
			return OnEdge
		}
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xIntersect := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xIntersect {
				inside = !inside
			}
		}
	}
	if inside {
		return Interior
	}
	return Exterior
}

func onSegment(p, a, b XY) bool {
	const eps = 1e-9
	if math.Abs(Orient2D(a, b, p)) > eps {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-eps && p.X <= math.Max(a.X, b.X)+eps &&
		p.Y >= math.Min(a.Y, b.Y)-eps && p.Y <= math.Max(a.Y, b.Y)+eps
}

// PlaneCoefficients is the result of fitting a plane through a polygon's 3D
// vertices: the (not necessarily unit) normal, the offset d such that
// normal.dot(p) == d for p on the plane, and the index (0, 1 or 2) of the
// normal's largest-magnitude component.
type PlaneCoefficients struct {
	Normal              r3.Vec
	D                   float64
	LargestAbsComponent int
}

// ComputePolygonPlaneCoefficients fits a plane through an n-gon's vertices
// using Newell's method, which tolerates mild non-planarity.
func ComputePolygonPlaneCoefficients(verts []r3.Vec) PlaneCoefficients {
	var normal r3.Vec
	n := len(verts)
	for i := 0; i < n; i++ {
		cur := verts[i]
		nxt := verts[(i+1)%n]
		normal.X += (cur.Y - nxt.Y) * (cur.Z + nxt.Z)
		normal.Y += (cur.Z - nxt.Z) * (cur.X + nxt.X)
		normal.Z += (cur.X - nxt.X) * (cur.Y + nxt.Y)
	}
	centroid := r3.Vec{}
	for _, v := range verts {
		centroid = r3.Add(centroid, v)
	}
	centroid = r3.Scale(1/float64(n), centroid)
	d := r3.Dot(normal, centroid)

	largest := 0
	best := math.Abs(normal.X)
	if a := math.Abs(normal.Y); a > best {
		largest, best = 1, a
	}
	if a := math.Abs(normal.Z); a > best {
		largest = 2
	}
	return PlaneCoefficients{Normal: normal, D: d, LargestAbsComponent: largest}
}

// ProjectTo2D drops the coordinate matching dropAxis (0=x,1=y,2=z) from in3d.
// The resulting 2D winding may be flipped relative to the 3D polygon; the
// caller must check via signed area (spec §4.B).
func ProjectTo2D(in3d r3.Vec, dropAxis int) XY {
	switch dropAxis {
	case 0:
		return XY{in3d.Y, in3d.Z}
	case 1:
		return XY{in3d.X, in3d.Z}
	default:
		return XY{in3d.X, in3d.Y}
	}
}

// Coplanar reports whether d lies (within tolerance) on the plane defined by
// a, b, c.
func Coplanar(a, b, c, d r3.Vec) bool {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ad := r3.Sub(d, a)
	n := r3.Cross(ab, ac)
	vol := r3.Dot(n, ad)
	scale := r3.Norm(ab)*r3.Norm(ac)*r3.Norm(ad) + 1
	return math.Abs(vol) <= 1e-9*scale
}

// Collinear3 reports whether a, b and c are collinear in 3D within
// tolerance.
func Collinear3(a, b, c r3.Vec) bool {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	return r3.Norm(r3.Cross(ab, ac)) <= 1e-9*(r3.Norm(ab)*r3.Norm(ac)+1)
}
