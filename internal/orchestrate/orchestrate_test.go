package orchestrate_test

import (
	"context"
	"testing"

	"github.com/cutgraph/meshcut/internal/ccstore"
	"github.com/cutgraph/meshcut/internal/ingest"
	"github.com/cutgraph/meshcut/internal/orchestrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func trianglePairInputs() (ingest.RawMesh, ingest.RawMesh) {
	src := ingest.RawMesh{
		Vertices: []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Faces:    []uint32{0, 1, 2},
	}
	cut := ingest.RawMesh{
		Vertices: []r3.Vec{
			{X: 0.2, Y: 0.2, Z: -1}, {X: 0.2, Y: 0.2, Z: 1}, {X: 0.6, Y: 0.2, Z: 0},
		},
		Faces: []uint32{0, 1, 2},
	}
	return src, cut
}

func TestDispatchTrianglePairCleanCutProducesComponents(t *testing.T) {
	src, cut := trianglePairInputs()
	ctx := orchestrate.New(nil)

	handles, err := ctx.Dispatch(context.Background(), src, cut, orchestrate.EnforceGeneralPosition)
	require.NoError(t, err)
	assert.NotEmpty(t, handles)

	for _, h := range handles {
		cc, ok := ctx.Store.Get(h)
		require.True(t, ok)
		require.NotNil(t, cc.Mesh)
	}
}

func TestDispatchPatchFilterNarrowsResults(t *testing.T) {
	src, cut := trianglePairInputs()
	ctx := orchestrate.New(nil)

	all, err := ctx.Dispatch(context.Background(), src, cut, orchestrate.EnforceGeneralPosition)
	require.NoError(t, err)

	ctx2 := orchestrate.New(nil)
	filtered, err := ctx2.Dispatch(context.Background(), src, cut,
		orchestrate.EnforceGeneralPosition|orchestrate.FilterPatchInside)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(filtered), len(all))
}

// TestDispatchTrianglePairExactFragment pins the literal fragment this
// reference kernel reports for the canonical triangle-pair fixture: a
// single source triangle in the z=0 plane, with the cut triangle's centroid
// on the non-negative side of the source triangle's supporting plane, which
// this kernel's classify (see internal/kernel/kernel.go) reports as
// location=ABOVE, patchLocation=INSIDE, sealType=COMPLETE. Filtering on
// exactly that combination should leave one CC and no other fragment
// variant — a regression that flips ABOVE/BELOW (e.g. the candidate-pair
// map iteration order bug this kernel's Dispatch guards against) would
// make this filter return zero or more than one CC instead of exactly one.
func TestDispatchTrianglePairExactFragment(t *testing.T) {
	src, cut := trianglePairInputs()
	ctx := orchestrate.New(nil)

	handles, err := ctx.Dispatch(context.Background(), src, cut,
		orchestrate.EnforceGeneralPosition|orchestrate.FilterFragmentLocationAbove|orchestrate.FilterFragmentSealingInside)
	require.NoError(t, err)
	require.Len(t, handles, 1)

	cc, ok := ctx.Store.Get(handles[0])
	require.True(t, ok)
	require.Equal(t, ccstore.Fragment, cc.Type)
	require.NotNil(t, cc.Fragment)
	assert.Equal(t, ccstore.Above, cc.Fragment.Location)
	assert.Equal(t, ccstore.Inside, cc.Fragment.PatchLocation)
	assert.Equal(t, ccstore.SealComplete, cc.Fragment.SealType)
}

func TestDispatchDisjointMeshesProduceNoComponents(t *testing.T) {
	src := ingest.RawMesh{
		Vertices: []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Faces:    []uint32{0, 1, 2},
	}
	cut := ingest.RawMesh{
		Vertices: []r3.Vec{{X: 100, Y: 0, Z: 0}, {X: 101, Y: 0, Z: 0}, {X: 100, Y: 1, Z: 0}},
		Faces:    []uint32{0, 1, 2},
	}
	ctx := orchestrate.New(nil)
	handles, err := ctx.Dispatch(context.Background(), src, cut, 0)
	require.NoError(t, err)
	assert.Empty(t, handles)
}
