package ingest_test

import (
	"testing"

	"github.com/cutgraph/meshcut/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestValidateAcceptsTriangleSoup(t *testing.T) {
	raw := ingest.RawMesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0},
		},
		Faces: []uint32{0, 1, 2, 1, 3, 2},
	}
	m, faceVerts, diags, err := ingest.Validate(raw)
	require.NoError(t, err)
	assert.Len(t, faceVerts, 2)
	assert.Empty(t, diags)
	assert.Equal(t, 2, m.NumFaces())
}

func TestValidateRejectsOutOfRangeVertex(t *testing.T) {
	raw := ingest.RawMesh{
		Vertices: []r3.Vec{{X: 0}, {X: 1}, {X: 0, Y: 1}},
		Faces:    []uint32{0, 1, 5},
	}
	_, _, _, err := ingest.Validate(raw)
	assert.Error(t, err)
}

func TestValidateRejectsDuplicateFaceVertex(t *testing.T) {
	raw := ingest.RawMesh{
		Vertices: []r3.Vec{{X: 0}, {X: 1}, {X: 0, Y: 1}},
		Faces:    []uint32{0, 0, 1},
	}
	_, _, _, err := ingest.Validate(raw)
	assert.Error(t, err)
}

func TestValidateRejectsMultipleConnectedComponents(t *testing.T) {
	raw := ingest.RawMesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
			{X: 10, Y: 0, Z: 0}, {X: 11, Y: 0, Z: 0}, {X: 10, Y: 1, Z: 0},
		},
		Faces: []uint32{0, 1, 2, 3, 4, 5},
	}
	_, _, _, err := ingest.Validate(raw)
	assert.Error(t, err)
}

func TestValidateWarnsNonCoplanarQuad(t *testing.T) {
	raw := ingest.RawMesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 0},
		},
		Faces:     []uint32{0, 1, 2, 3},
		FaceSizes: []uint32{4},
	}
	_, _, diags, err := ingest.Validate(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, diags)
}
