// Package meshcut is the public API of the robust Boolean-style mesh
// cutting engine: given a source mesh and a cut mesh, Dispatch computes
// the connected components (fragments, patches, seams, and input copies)
// that intersecting the cut mesh against the source mesh produces,
// together with per-vertex and per-face provenance maps back to both
// inputs.
package meshcut

import (
	"context"
	"fmt"
	"sync"

	"github.com/cutgraph/meshcut/internal/ccstore"
	"github.com/cutgraph/meshcut/internal/ingest"
	"github.com/cutgraph/meshcut/internal/orchestrate"
	"gonum.org/v1/gonum/spatial/r3"
)

// RawMesh is a client-supplied mesh: interleaved 3D vertex positions plus
// a flat face-index array. FaceSizes may be nil, meaning "triangle soup"
// (every face has exactly 3 vertices).
type RawMesh = ingest.RawMesh

// Flags is the dispatch flag bitset (spec §6).
type Flags = orchestrate.Flags

const (
	EnforceGeneralPosition                 = orchestrate.EnforceGeneralPosition
	IncludeVertexMap                       = orchestrate.IncludeVertexMap
	IncludeFaceMap                         = orchestrate.IncludeFaceMap
	FilterFragmentLocationAbove            = orchestrate.FilterFragmentLocationAbove
	FilterFragmentLocationBelow            = orchestrate.FilterFragmentLocationBelow
	FilterFragmentLocationUndefined        = orchestrate.FilterFragmentLocationUndefined
	FilterFragmentSealingInside            = orchestrate.FilterFragmentSealingInside
	FilterFragmentSealingOutside           = orchestrate.FilterFragmentSealingOutside
	FilterFragmentSealingInsideExhaustive  = orchestrate.FilterFragmentSealingInsideExhaustive
	FilterFragmentSealingOutsideExhaustive = orchestrate.FilterFragmentSealingOutsideExhaustive
	FilterFragmentSealingNone              = orchestrate.FilterFragmentSealingNone
	FilterPatchInside                      = orchestrate.FilterPatchInside
	FilterPatchOutside                     = orchestrate.FilterPatchOutside
	FilterSeamSrcMesh                      = orchestrate.FilterSeamSrcMesh
	FilterSeamCutMesh                      = orchestrate.FilterSeamCutMesh
)

// Handle identifies one connected component produced by a dispatch.
type Handle = ccstore.Handle

// CCType is the connected-component type tag.
type CCType = ccstore.Type

const (
	Fragment = ccstore.Fragment
	Patch    = ccstore.Patch
	Seam     = ccstore.Seam
	Input    = ccstore.Input
)

// TypeMask builds the bitmask GetConnectedComponents expects from a set of
// CCType values.
func TypeMask(types ...CCType) uint32 {
	var mask uint32
	for _, t := range types {
		mask |= 1 << uint(t)
	}
	return mask
}

// DataKind selects which datum GetConnectedComponentData returns.
type DataKind = ccstore.Kind

const (
	VertexFloat           = ccstore.KindVertexFloat
	VertexDouble          = ccstore.KindVertexDouble
	Face                  = ccstore.KindFace
	FaceSize              = ccstore.KindFaceSize
	FaceAdjacentFace      = ccstore.KindFaceAdjacentFace
	FaceAdjacentFaceSize  = ccstore.KindFaceAdjacentFaceSize
	Edge                  = ccstore.KindEdge
	Type                  = ccstore.KindType
	FragmentLocation      = ccstore.KindFragmentLocation
	PatchLocation         = ccstore.KindPatchLocation
	FragmentSealType      = ccstore.KindFragmentSealType
	Origin                = ccstore.KindOrigin
	SeamVertex            = ccstore.KindSeamVertex
	VertexMap             = ccstore.KindVertexMap
	FaceMap               = ccstore.KindFaceMap
	FaceTriangulation     = ccstore.KindFaceTriangulation
)

// Error is a dispatch-level failure, classified per spec §7.
type Error = orchestrate.Error

const (
	ErrInvalidMesh      = orchestrate.ErrInvalidMesh
	ErrGeneralPosition  = orchestrate.ErrGeneralPosition
	ErrInvalidOperation = orchestrate.ErrInvalidOperation
	ErrKernel           = orchestrate.ErrKernel
)

// DebugSeverity classifies a debug message's importance.
type DebugSeverity int

const (
	SeverityNotification DebugSeverity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

// DebugCallback receives every non-fatal diagnostic emitted during a
// dispatch, already formatted, along with its severity.
type DebugCallback func(severity DebugSeverity, message string)

// Context is one client session: it owns the connected components
// produced by its dispatches and an optional debug callback.
type Context struct {
	orch *orchestrate.Context

	mu       sync.Mutex
	callback DebugCallback
}

// NewContext returns a new, empty Context.
func NewContext() *Context {
	ctx := &Context{}
	ctx.orch = orchestrate.New(&callbackLogger{ctx: ctx})
	return ctx
}

// SetDebugCallback installs cb as the receiver of every diagnostic emitted
// by subsequent dispatches on this Context. Passing nil disables
// reporting.
func (c *Context) SetDebugCallback(cb DebugCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
}

type callbackLogger struct{ ctx *Context }

func (l *callbackLogger) Warnf(format string, args ...interface{}) {
	l.ctx.mu.Lock()
	cb := l.ctx.callback
	l.ctx.mu.Unlock()
	if cb == nil {
		return
	}
	cb(SeverityMedium, fmt.Sprintf(format, args...))
}

// Dispatch computes the intersection of cut against src and publishes the
// resulting connected components into c, returning their handles.
func (c *Context) Dispatch(ctx context.Context, src, cut RawMesh, flags Flags) ([]Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.orch.Dispatch(ctx, src, cut, flags)
}

// GetConnectedComponents returns every live handle whose type is set in
// typeMask (build one with TypeMask), in ascending handle order.
func (c *Context) GetConnectedComponents(typeMask uint32) []Handle {
	return c.orch.Store.Handles(typeMask)
}

// Release discards the given connected components; their handles become
// invalid.
func (c *Context) Release(handles []Handle) {
	c.orch.Store.Release(handles)
}

// GetConnectedComponentData is the sink for every per-CC datum (spec
// §4.H). A nil out returns the required byte count without writing
// anything; otherwise len(out) must be <= the required count and a
// multiple of kind's element stride.
func (c *Context) GetConnectedComponentData(h Handle, kind DataKind, out []byte) (int, error) {
	cc, ok := c.orch.Store.Get(h)
	if !ok {
		return 0, fmt.Errorf("meshcut: unknown connected-component handle")
	}
	return cc.GetData(kind, out)
}

// VertexPosition is a convenience helper over r3.Vec for callers that want
// a single vertex rather than a marshalled buffer.
type VertexPosition = r3.Vec
