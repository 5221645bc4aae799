package ccstore_test

import (
	"testing"

	"github.com/cutgraph/meshcut/internal/ccstore"
	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func triangleCC(t *testing.T, typ ccstore.Type) *ccstore.CC {
	t.Helper()
	m := geom.NewMesh()
	a := m.AddVertex(r3.Vec{X: 0, Y: 0, Z: 0})
	b := m.AddVertex(r3.Vec{X: 1, Y: 0, Z: 0})
	c := m.AddVertex(r3.Vec{X: 0, Y: 1, Z: 0})
	f := m.AddFace([]geom.VertexID{a, b, c})
	require.NotEqual(t, geom.NullFace, f)
	return &ccstore.CC{Type: typ, Mesh: m}
}

func TestGetDataNilBufferReturnsRequiredSize(t *testing.T) {
	cc := triangleCC(t, ccstore.Input)
	cc.Input = &ccstore.InputData{Origin: ccstore.SrcMesh}

	need, err := cc.GetData(ccstore.KindVertexDouble, nil)
	require.NoError(t, err)
	assert.Equal(t, 3*24, need) // 3 vertices * 3 float64 each
}

func TestGetDataExactBufferFills(t *testing.T) {
	cc := triangleCC(t, ccstore.Input)
	cc.Input = &ccstore.InputData{Origin: ccstore.SrcMesh}

	need, err := cc.GetData(ccstore.KindFaceSize, nil)
	require.NoError(t, err)
	buf := make([]byte, need)
	n, err := cc.GetData(ccstore.KindFaceSize, buf)
	require.NoError(t, err)
	assert.Equal(t, need, n)
}

func TestGetDataRejectsOversizedBuffer(t *testing.T) {
	cc := triangleCC(t, ccstore.Input)
	cc.Input = &ccstore.InputData{Origin: ccstore.SrcMesh}

	need, _ := cc.GetData(ccstore.KindFaceSize, nil)
	buf := make([]byte, need+4)
	_, err := cc.GetData(ccstore.KindFaceSize, buf)
	assert.ErrorIs(t, err, ccstore.ErrBufferTooLarge)
}

func TestGetDataRejectsMisalignedBuffer(t *testing.T) {
	cc := triangleCC(t, ccstore.Input)
	cc.Input = &ccstore.InputData{Origin: ccstore.SrcMesh}

	buf := make([]byte, 3) // stride for FACE_SIZE is 4
	_, err := cc.GetData(ccstore.KindFaceSize, buf)
	assert.ErrorIs(t, err, ccstore.ErrBufferMisaligned)
}

func TestGetDataFieldNotAvailableForType(t *testing.T) {
	cc := triangleCC(t, ccstore.Seam)
	cc.Seam = &ccstore.SeamData{Origin: ccstore.SrcMesh}

	_, err := cc.GetData(ccstore.KindFragmentLocation, nil)
	assert.ErrorIs(t, err, ccstore.ErrFieldNotAvailable)
}

func TestGetDataFaceTriangulationTrianglePassesThrough(t *testing.T) {
	cc := triangleCC(t, ccstore.Input)
	cc.Input = &ccstore.InputData{Origin: ccstore.SrcMesh}

	need, err := cc.GetData(ccstore.KindFaceTriangulation, nil)
	require.NoError(t, err)
	assert.Equal(t, 3*4, need)
}

func TestTranslateVertexSourceSidePassesThrough(t *testing.T) {
	prov := &ccstore.ProvenanceMaps{
		NewPartitionVerticesSrc: map[geom.VertexID]r3.Vec{},
		NewPartitionVerticesCut: map[geom.VertexID]r3.Vec{},
	}
	got := ccstore.TranslateVertex(geom.VertexID(7), false, prov)
	assert.Equal(t, uint32(7), got)
}

func TestTranslateVertexInventedIsSentinel(t *testing.T) {
	prov := &ccstore.ProvenanceMaps{
		NewPartitionVerticesSrc: map[geom.VertexID]r3.Vec{geom.VertexID(3): {}},
		NewPartitionVerticesCut: map[geom.VertexID]r3.Vec{},
	}
	got := ccstore.TranslateVertex(geom.VertexID(3), false, prov)
	assert.Equal(t, uint32(ccstore.IntersectionPointVertex), got)
}

func TestTranslateVertexCutSideOffsets(t *testing.T) {
	prov := &ccstore.ProvenanceMaps{
		NewPartitionVerticesSrc:   map[geom.VertexID]r3.Vec{},
		NewPartitionVerticesCut:   map[geom.VertexID]r3.Vec{},
		InternalSourceVertexCount: 10,
		ClientSourceVertexCount:   4,
	}
	// Cut vertex 10 is the cut mesh's own vertex 0 once its internal
	// source-side vertices are excluded, so it lands right after the
	// client's own source vertices.
	got := ccstore.TranslateVertex(geom.VertexID(10), true, prov)
	assert.Equal(t, uint32(4), got)
}
