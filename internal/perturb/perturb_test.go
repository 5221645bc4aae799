package perturb_test

import (
	"testing"

	"github.com/cutgraph/meshcut/internal/perturb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNextIsDeterministicAcrossDrivers(t *testing.T) {
	d1 := perturb.NewDriver()
	d2 := perturb.NewDriver()
	for i := 0; i < perturb.MaxAttempts; i++ {
		a := d1.Next(10)
		b := d2.Next(10)
		assert.Equal(t, a, b, "two fresh drivers must produce byte-identical perturbation sequences")
	}
}

func TestExhaustedAfterMaxAttempts(t *testing.T) {
	d := perturb.NewDriver()
	for i := 0; i < perturb.MaxAttempts; i++ {
		require.False(t, d.Exhausted())
		d.Next(1)
	}
	assert.True(t, d.Exhausted())
	assert.Panics(t, func() { d.Next(1) })
}

func TestNextScalesWithAABBDiagonal(t *testing.T) {
	d := perturb.NewDriver()
	delta := d.Next(1000)
	bound := perturb.Epsilon0 * 1000
	assert.LessOrEqual(t, delta.X, bound)
	assert.GreaterOrEqual(t, delta.X, -bound)
}

func TestTranslate(t *testing.T) {
	verts := []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: 0, Y: 0, Z: 0}}
	out := perturb.Translate(verts, r3.Vec{X: 1, Y: 1, Z: 1})
	assert.Equal(t, r3.Vec{X: 2, Y: 3, Z: 4}, out[0])
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, out[1])
	// The source slice is untouched.
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, verts[0])
}

func TestAABBDiagonal(t *testing.T) {
	verts := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 4, Z: 0}}
	assert.InDelta(t, 5, perturb.AABBDiagonal(verts), 1e-9)
	assert.Equal(t, 0.0, perturb.AABBDiagonal(nil))
}
