package bvh_test

import (
	"testing"

	"github.com/cutgraph/meshcut/bvh"
	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func triangleMesh(t *testing.T, offset r3.Vec) *geom.Mesh {
	t.Helper()
	m := geom.NewMesh()
	a := m.AddVertex(r3.Add(r3.Vec{X: 0, Y: 0, Z: 0}, offset))
	b := m.AddVertex(r3.Add(r3.Vec{X: 1, Y: 0, Z: 0}, offset))
	c := m.AddVertex(r3.Add(r3.Vec{X: 0, Y: 1, Z: 0}, offset))
	require.NotEqual(t, geom.NullFace, m.AddFace([]geom.VertexID{a, b, c}))
	return m
}

func TestCandidatePairsOverlapping(t *testing.T) {
	src := triangleMesh(t, r3.Vec{})
	cut := triangleMesh(t, r3.Vec{X: 0.1, Y: 0.1})

	srcTree := bvh.Build(src, 1e-6)
	cutTree := bvh.Build(cut, 1e-6)

	pairs := bvh.CandidatePairs(srcTree, cutTree)
	assert.Len(t, pairs, 1)
	for _, cuts := range pairs {
		assert.Len(t, cuts, 1)
	}
}

func TestCandidatePairsDisjoint(t *testing.T) {
	src := triangleMesh(t, r3.Vec{})
	cut := triangleMesh(t, r3.Vec{X: 1000, Y: 1000})

	srcTree := bvh.Build(src, 1e-6)
	cutTree := bvh.Build(cut, 1e-6)

	pairs := bvh.CandidatePairs(srcTree, cutTree)
	assert.Empty(t, pairs)
}
