package floatpoly_test

import (
	"testing"

	"github.com/cutgraph/meshcut/internal/floatpoly"
	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/cutgraph/meshcut/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// buildSquareFace builds a single quad face (0,0)-(4,0)-(4,4)-(0,4) in the
// z=0 plane, large enough to strictly contain a small floating polygon.
func buildSquareFace(t *testing.T) (*geom.Mesh, geom.FaceID) {
	t.Helper()
	m := geom.NewMesh()
	a := m.AddVertex(r3.Vec{X: 0, Y: 0, Z: 0})
	b := m.AddVertex(r3.Vec{X: 4, Y: 0, Z: 0})
	c := m.AddVertex(r3.Vec{X: 4, Y: 4, Z: 0})
	d := m.AddVertex(r3.Vec{X: 0, Y: 4, Z: 0})
	f := m.AddFace([]geom.VertexID{a, b, c, d})
	require.NotEqual(t, geom.NullFace, f)
	return m, f
}

func TestResolveSplitsFaceWithChord(t *testing.T) {
	m, face := buildSquareFace(t)
	r := floatpoly.NewResolver()

	fp := kernel.FloatingPolygon{
		ParentFace: face,
		Polygon: []r3.Vec{
			{X: 1, Y: 1, Z: 0}, {X: 3, Y: 1, Z: 0}, {X: 3, Y: 3, Z: 0}, {X: 1, Y: 3, Z: 0},
		},
		Normal:   r3.Vec{X: 0, Y: 0, Z: 1},
		DropAxis: 2,
	}

	resolved, err := r.Resolve(m, fp)
	require.NoError(t, err)
	assert.True(t, resolved)

	// The original quad face must have been replaced by two children
	// sharing the same client birth face.
	assert.Equal(t, 2, m.NumFaces())
	assert.Len(t, r.ChildToBirth, 2)
	assert.NotEmpty(t, r.NewPolyPartitionVertices)
	assert.True(t, r.BVHRebuilt)
}

func TestResolveTargetsChildOfPartitionedFace(t *testing.T) {
	m, face := buildSquareFace(t)
	r := floatpoly.NewResolver()

	fp := kernel.FloatingPolygon{
		ParentFace: face,
		Polygon: []r3.Vec{
			{X: 1, Y: 1, Z: 0}, {X: 3, Y: 1, Z: 0}, {X: 3, Y: 3, Z: 0}, {X: 1, Y: 3, Z: 0},
		},
		Normal:   r3.Vec{X: 0, Y: 0, Z: 1},
		DropAxis: 2,
	}
	resolved, err := r.Resolve(m, fp)
	require.NoError(t, err)
	require.True(t, resolved)

	// A second, smaller FP fully inside one of the two children must still
	// resolve (not error), operating on the child rather than the
	// now-removed parent.
	fp2 := kernel.FloatingPolygon{
		ParentFace: face,
		Polygon: []r3.Vec{
			{X: 1.2, Y: 1.2, Z: 0}, {X: 1.8, Y: 1.2, Z: 0}, {X: 1.8, Y: 1.8, Z: 0}, {X: 1.2, Y: 1.8, Z: 0},
		},
		Normal:   r3.Vec{X: 0, Y: 0, Z: 1},
		DropAxis: 2,
	}
	_, err = r.Resolve(m, fp2)
	assert.NoError(t, err)
}
