package meshcut_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/cutgraph/meshcut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func trianglePairInputs() (meshcut.RawMesh, meshcut.RawMesh) {
	src := meshcut.RawMesh{
		Vertices: []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Faces:    []uint32{0, 1, 2},
	}
	cut := meshcut.RawMesh{
		Vertices: []r3.Vec{
			{X: 0.2, Y: 0.2, Z: -1}, {X: 0.2, Y: 0.2, Z: 1}, {X: 0.6, Y: 0.2, Z: 0},
		},
		Faces: []uint32{0, 1, 2},
	}
	return src, cut
}

func TestDispatchProducesQueryableComponents(t *testing.T) {
	src, cut := trianglePairInputs()
	ctx := meshcut.NewContext()

	handles, err := ctx.Dispatch(context.Background(), src, cut, meshcut.EnforceGeneralPosition)
	require.NoError(t, err)
	require.NotEmpty(t, handles)

	for _, h := range handles {
		need, err := ctx.GetConnectedComponentData(h, meshcut.Type, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, need)

		buf := make([]byte, need)
		n, err := ctx.GetConnectedComponentData(h, meshcut.Type, buf)
		require.NoError(t, err)
		assert.Equal(t, need, n)
	}
}

func getUint32(t *testing.T, ctx *meshcut.Context, h meshcut.Handle, kind meshcut.DataKind) uint32 {
	t.Helper()
	need, err := ctx.GetConnectedComponentData(h, kind, nil)
	require.NoError(t, err)
	require.Equal(t, 4, need)
	buf := make([]byte, need)
	_, err = ctx.GetConnectedComponentData(h, kind, buf)
	require.NoError(t, err)
	return binary.LittleEndian.Uint32(buf)
}

// TestDispatchTrianglePairExactFragment pins the one fragment this
// reference engine reports for the canonical triangle-pair fixture, under
// the filter combination that should isolate it. A regression in candidate
// iteration order that flips which side is reported ABOVE vs. BELOW would
// make this filter return a different handle count instead of exactly one.
func TestDispatchTrianglePairExactFragment(t *testing.T) {
	src, cut := trianglePairInputs()
	ctx := meshcut.NewContext()

	handles, err := ctx.Dispatch(context.Background(), src, cut,
		meshcut.EnforceGeneralPosition|meshcut.FilterFragmentLocationAbove|meshcut.FilterFragmentSealingInside)
	require.NoError(t, err)
	require.Len(t, handles, 1)

	h := handles[0]
	assert.Equal(t, uint32(meshcut.Fragment), getUint32(t, ctx, h, meshcut.Type))
	assert.Equal(t, uint32(0), getUint32(t, ctx, h, meshcut.FragmentLocation)) // Above
	assert.Equal(t, uint32(0), getUint32(t, ctx, h, meshcut.PatchLocation))    // Inside
	assert.Equal(t, uint32(2), getUint32(t, ctx, h, meshcut.FragmentSealType)) // Complete
}

func TestGetConnectedComponentsFiltersByType(t *testing.T) {
	src, cut := trianglePairInputs()
	ctx := meshcut.NewContext()
	_, err := ctx.Dispatch(context.Background(), src, cut, meshcut.EnforceGeneralPosition)
	require.NoError(t, err)

	fragments := ctx.GetConnectedComponents(meshcut.TypeMask(meshcut.Fragment))
	all := ctx.GetConnectedComponents(meshcut.TypeMask(meshcut.Fragment, meshcut.Patch, meshcut.Seam, meshcut.Input))
	assert.LessOrEqual(t, len(fragments), len(all))
}

func TestDebugCallbackReceivesDiagnostics(t *testing.T) {
	src, cut := trianglePairInputs()
	ctx := meshcut.NewContext()

	var messages []string
	ctx.SetDebugCallback(func(sev meshcut.DebugSeverity, msg string) {
		messages = append(messages, msg)
	})

	_, err := ctx.Dispatch(context.Background(), src, cut, meshcut.EnforceGeneralPosition)
	require.NoError(t, err)
	// Not every dispatch logs a diagnostic; this just confirms wiring
	// doesn't panic and the callback is reachable.
	assert.NotNil(t, messages)
}

func TestReleaseInvalidatesHandles(t *testing.T) {
	src, cut := trianglePairInputs()
	ctx := meshcut.NewContext()
	handles, err := ctx.Dispatch(context.Background(), src, cut, meshcut.EnforceGeneralPosition)
	require.NoError(t, err)
	require.NotEmpty(t, handles)

	ctx.Release(handles)
	_, err = ctx.GetConnectedComponentData(handles[0], meshcut.Type, nil)
	assert.Error(t, err)
}
