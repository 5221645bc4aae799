package geom_test

import (
	"testing"

	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestOrient2DSign(t *testing.T) {
	ccw := geom.Orient2D(geom.XY{X: 0, Y: 0}, geom.XY{X: 1, Y: 0}, geom.XY{X: 0, Y: 1})
	assert.Greater(t, ccw, 0.0)

	cw := geom.Orient2D(geom.XY{X: 0, Y: 0}, geom.XY{X: 0, Y: 1}, geom.XY{X: 1, Y: 0})
	assert.Less(t, cw, 0.0)

	collinear := geom.Orient2D(geom.XY{X: 0, Y: 0}, geom.XY{X: 1, Y: 1}, geom.XY{X: 2, Y: 2})
	assert.InDelta(t, 0, collinear, 1e-9)
}

func TestSegmentIntersectionProperCrossing(t *testing.T) {
	res := geom.SegmentIntersection(
		geom.XY{X: 0, Y: 0}, geom.XY{X: 2, Y: 2},
		geom.XY{X: 0, Y: 2}, geom.XY{X: 2, Y: 0},
	)
	assert.Equal(t, geom.ProperIntersection, res.Code)
	assert.InDelta(t, 1, res.Point.X, 1e-9)
	assert.InDelta(t, 1, res.Point.Y, 1e-9)
}

func TestSegmentIntersectionParallelNoIntersection(t *testing.T) {
	res := geom.SegmentIntersection(
		geom.XY{X: 0, Y: 0}, geom.XY{X: 1, Y: 0},
		geom.XY{X: 0, Y: 1}, geom.XY{X: 1, Y: 1},
	)
	assert.Equal(t, geom.NoIntersection, res.Code)
}

func TestSegmentIntersectionVertexTouch(t *testing.T) {
	res := geom.SegmentIntersection(
		geom.XY{X: 0, Y: 0}, geom.XY{X: 2, Y: 0},
		geom.XY{X: 2, Y: 0}, geom.XY{X: 2, Y: 2},
	)
	assert.Equal(t, geom.VertexTouch, res.Code)
}

func TestPointInPolygonTest(t *testing.T) {
	square := []geom.XY{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	assert.Equal(t, geom.Interior, geom.PointInPolygonTest(geom.XY{X: 1, Y: 1}, square))
	assert.Equal(t, geom.Exterior, geom.PointInPolygonTest(geom.XY{X: 3, Y: 1}, square))
	assert.Equal(t, geom.OnVertex, geom.PointInPolygonTest(geom.XY{X: 0, Y: 0}, square))
	assert.Equal(t, geom.OnEdge, geom.PointInPolygonTest(geom.XY{X: 1, Y: 0}, square))
}

func TestComputePolygonPlaneCoefficientsAxisAligned(t *testing.T) {
	verts := []r3.Vec{{X: 0, Y: 0, Z: 5}, {X: 1, Y: 0, Z: 5}, {X: 1, Y: 1, Z: 5}, {X: 0, Y: 1, Z: 5}}
	plane := geom.ComputePolygonPlaneCoefficients(verts)
	assert.Equal(t, 2, plane.LargestAbsComponent) // normal points along Z
	for _, v := range verts {
		assert.InDelta(t, plane.D, r3.Dot(plane.Normal, v), 1e-9)
	}
}

func TestCoplanarAndCollinear3(t *testing.T) {
	a := r3.Vec{X: 0, Y: 0, Z: 0}
	b := r3.Vec{X: 1, Y: 0, Z: 0}
	c := r3.Vec{X: 0, Y: 1, Z: 0}
	d := r3.Vec{X: 1, Y: 1, Z: 0}
	assert.True(t, geom.Coplanar(a, b, c, d))
	assert.False(t, geom.Coplanar(a, b, c, r3.Vec{X: 0, Y: 0, Z: 1}))

	assert.True(t, geom.Collinear3(a, r3.Vec{X: 2, Y: 0, Z: 0}, r3.Vec{X: 4, Y: 0, Z: 0}))
	assert.False(t, geom.Collinear3(a, b, c))
}
