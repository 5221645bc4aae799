package kernel_test

import (
	"testing"

	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/cutgraph/meshcut/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func buildTriangle(t *testing.T, verts [3]r3.Vec) (*geom.Mesh, geom.FaceID) {
	t.Helper()
	m := geom.NewMesh()
	a := m.AddVertex(verts[0])
	b := m.AddVertex(verts[1])
	c := m.AddVertex(verts[2])
	f := m.AddFace([]geom.VertexID{a, b, c})
	require.NotEqual(t, geom.NullFace, f)
	return m, f
}

func TestDispatchEmptyCandidatesIsSuccess(t *testing.T) {
	src, _ := buildTriangle(t, [3]r3.Vec{{X: 0}, {X: 1}, {Y: 1}})
	cut, _ := buildTriangle(t, [3]r3.Vec{{X: 5}, {X: 6}, {Y: 6}})
	out := kernel.Dispatch(kernel.Input{Source: src, Cut: cut, Candidates: nil})
	assert.Equal(t, kernel.Success, out.Status)
	assert.Nil(t, out.Seams)
}

func TestDispatchDetectsCrossingTriangles(t *testing.T) {
	src, srcFace := buildTriangle(t, [3]r3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
	})
	cut, cutFace := buildTriangle(t, [3]r3.Vec{
		{X: 0.2, Y: 0.2, Z: -1}, {X: 0.2, Y: 0.2, Z: 1}, {X: 0.6, Y: 0.2, Z: 0},
	})

	out := kernel.Dispatch(kernel.Input{
		Source:     src,
		Cut:        cut,
		Candidates: map[geom.FaceID][]geom.FaceID{srcFace: {cutFace}},
	})
	require.Equal(t, kernel.Success, out.Status)
	require.Len(t, out.Seams, 1)
	assert.Equal(t, srcFace, out.Seams[0].SrcFace)
	assert.Equal(t, cutFace, out.Seams[0].CutFace)
	require.Len(t, out.Fragments, 1)
	require.Len(t, out.Patches, 1)
}

func TestDispatchGeneralPositionViolation(t *testing.T) {
	src, srcFace := buildTriangle(t, [3]r3.Vec{{X: 0}, {X: 2}, {Y: 2}})
	cut, cutFace := buildTriangle(t, [3]r3.Vec{{X: 0}, {X: 1, Z: 1}, {X: 1, Z: -1}})

	out := kernel.Dispatch(kernel.Input{
		Source:                 src,
		Cut:                    cut,
		Candidates:             map[geom.FaceID][]geom.FaceID{srcFace: {cutFace}},
		EnforceGeneralPosition: true,
	})
	assert.Equal(t, kernel.GeneralPositionViolation, out.Status)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "SUCCESS", kernel.Success.String())
	assert.Equal(t, "GENERAL_POSITION_VIOLATION", kernel.GeneralPositionViolation.String())
	assert.Equal(t, "OTHER_FAILURE", kernel.OtherFailure.String())
}
