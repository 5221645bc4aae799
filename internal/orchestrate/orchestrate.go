// Package orchestrate implements the dispatch orchestrator (component G):
// the state machine that drives one dispatch from raw client meshes
// through validation, candidate-pair search, the kernel, general-position
// recovery and floating-polygon resolution, and finally publishes the
// resulting connected components.
package orchestrate

import (
	"context"
	"fmt"
	"sort"

	"github.com/cutgraph/meshcut/bvh"
	"github.com/cutgraph/meshcut/internal/ccstore"
	"github.com/cutgraph/meshcut/internal/floatpoly"
	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/cutgraph/meshcut/internal/ingest"
	"github.com/cutgraph/meshcut/internal/kernel"
	"github.com/cutgraph/meshcut/internal/perturb"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// Flags is the dispatch flag bitset (spec §6).
type Flags uint32

const (
	EnforceGeneralPosition Flags = 1 << iota
	IncludeVertexMap
	IncludeFaceMap
	FilterFragmentLocationAbove
	FilterFragmentLocationBelow
	FilterFragmentLocationUndefined
	FilterFragmentSealingInside
	FilterFragmentSealingOutside
	FilterFragmentSealingInsideExhaustive
	FilterFragmentSealingOutsideExhaustive
	FilterFragmentSealingNone
	FilterPatchInside
	FilterPatchOutside
	FilterSeamSrcMesh
	FilterSeamCutMesh
)

// noFilters reports whether flags carries none of the FILTER_* bits — the
// "no filter" dispatch described by spec test scenario 2, which must
// publish every CC kind.
func (f Flags) noFilters() bool {
	const all = FilterFragmentLocationAbove | FilterFragmentLocationBelow | FilterFragmentLocationUndefined |
		FilterFragmentSealingInside | FilterFragmentSealingOutside | FilterFragmentSealingInsideExhaustive |
		FilterFragmentSealingOutsideExhaustive | FilterFragmentSealingNone |
		FilterPatchInside | FilterPatchOutside | FilterSeamSrcMesh | FilterSeamCutMesh
	return f&all == 0
}

// Logger receives non-fatal diagnostics from every stage of the pipeline.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// NopLogger discards all diagnostics.
type NopLogger struct{}

func (NopLogger) Warnf(string, ...interface{}) {}

// Error classifies a dispatch failure into the error kinds of spec §7.
type Error struct {
	Kind   string
	reason string
}

func (e *Error) Error() string { return fmt.Sprintf("orchestrate: %s: %s", e.Kind, e.reason) }

const (
	ErrInvalidMesh      = "invalid_mesh"
	ErrGeneralPosition  = "general_position_exhausted"
	ErrInvalidOperation = "invalid_operation"
	ErrKernel           = "kernel_failure"
)

// Context drives dispatches and owns the connected-component store they
// publish into, matching spec §5's "every live context owns ... its
// connected components".
type Context struct {
	Log   Logger
	Store *ccstore.Store
}

// New returns a Context with a fresh, empty connected-component store.
func New(l Logger) *Context {
	if l == nil {
		l = NopLogger{}
	}
	return &Context{Log: l, Store: ccstore.NewStore()}
}

// state names the orchestrator's pseudo-state-machine positions (spec
// §4.G).
type state int

const (
	stateBuildSource state = iota
	stateValidateSource
	stateBuildCut
	stateValidateCut
	stateBuildBVH
	stateFindCandidatePairs
	stateCallKernel
	stateReact
	statePublish
	stateAbort
	stateDone
)

const bvhEps = 1e-9

// Dispatch runs one dispatch to completion: source validated once, cut
// rebuilt on every perturbation, kernel invoked until SUCCESS or a fatal
// error, floating polygons resolved in place, and the result published
// into ctx.Store. It returns the handles of every CC this dispatch
// produced, already filtered by flags.
func (ctx *Context) Dispatch(ctxArg context.Context, src, cut ingest.RawMesh, flags Flags) ([]ccstore.Handle, error) {
	var (
		srcMesh, cutMesh       *geom.Mesh
		srcBVH, cutBVH         *bvh.Tree
		candidates             map[geom.FaceID][]geom.FaceID
		driver                 = perturb.NewDriver()
		resolver               = floatpoly.NewResolver()
		srcRebuilt, cutRebuilt = true, true
		lastOutput             kernel.Output
		st                     = stateBuildSource
		cutVerts               []r3.Vec
	)

	internalSrcVertexCount, internalSrcFaceCount := 0, 0

	for {
		select {
		case <-ctxArg.Done():
			return nil, ctxArg.Err()
		default:
		}

		switch st {
		case stateBuildSource:
			m, _, diags, err := ingest.Validate(src)
			if err != nil {
				return nil, &Error{Kind: ErrInvalidMesh, reason: err.Error()}
			}
			for _, d := range diags {
				ctx.Log.Warnf("ingest: source face %d: %s", d.Face, d.Message)
			}
			srcMesh = m
			internalSrcVertexCount = m.NumVertices()
			internalSrcFaceCount = m.NumFaces()
			st = stateValidateSource

		case stateValidateSource:
			srcBVH = bvh.Build(srcMesh, bvhEps)
			srcRebuilt = true
			st = stateBuildCut

		case stateBuildCut:
			raw := cut
			if cutVerts != nil {
				raw.Vertices = cutVerts
			}
			m, _, diags, err := ingest.Validate(raw)
			if err != nil {
				return nil, &Error{Kind: ErrInvalidMesh, reason: err.Error()}
			}
			for _, d := range diags {
				ctx.Log.Warnf("ingest: cut face %d: %s", d.Face, d.Message)
			}
			cutMesh = m
			st = stateValidateCut

		case stateValidateCut:
			cutBVH = bvh.Build(cutMesh, bvhEps)
			cutRebuilt = true
			st = stateBuildBVH

		case stateBuildBVH:
			// Both BVHs are already current by construction in this
			// linearized state machine; this state exists to mirror spec
			// §4.G's named transition and is where a parallel rebuild of
			// just the affected side would be scheduled.
			st = stateFindCandidatePairs

		case stateFindCandidatePairs:
			if !srcRebuilt && !cutRebuilt {
				st = stateCallKernel
				break
			}
			candidates = bvh.CandidatePairs(srcBVH, cutBVH)
			srcRebuilt, cutRebuilt = false, false
			if len(candidates) == 0 {
				if driver.Attempt() > 0 {
					// Perturbation pushed the meshes apart: treat as a GP
					// violation per spec §4.G.
					lastOutput = kernel.Output{Status: kernel.GeneralPositionViolation}
					st = stateReact
					break
				}
				return nil, nil
			}
			st = stateCallKernel

		case stateCallKernel:
			out := kernel.Dispatch(kernel.Input{
				Source:                 srcMesh,
				Cut:                    cutMesh,
				Candidates:             candidates,
				EnforceGeneralPosition: flags&EnforceGeneralPosition != 0,
			})
			lastOutput = out
			st = stateReact

		case stateReact:
			switch lastOutput.Status {
			case kernel.Success:
				st = statePublish
			case kernel.GeneralPositionViolation:
				if flags&EnforceGeneralPosition == 0 {
					return nil, &Error{Kind: ErrInvalidOperation, reason: "general position violation and ENFORCE_GENERAL_POSITION not set"}
				}
				if driver.Exhausted() {
					st = stateAbort
					break
				}
				diag := perturb.AABBDiagonal(rawVerts(cut, cutVerts))
				delta := driver.Next(diag)
				cutVerts = perturb.Translate(rawVerts(cut, cutVerts), delta)
				st = stateBuildCut
			case kernel.DetectedFloatingPolygon:
				// Resolve in a fixed order of parent-face id: Resolve
				// mutates the mesh and draws new vertex/face ids off a
				// shared free-list, so resolving a different parent face
				// first across runs would reassign ids differently even
				// though the inputs are identical.
				parents := make([]geom.FaceID, 0, len(lastOutput.DetectedFloatingPolygons))
				for f := range lastOutput.DetectedFloatingPolygons {
					parents = append(parents, f)
				}
				sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })
				for _, parent := range parents {
					for _, fp := range lastOutput.DetectedFloatingPolygons[parent] {
						target := fp
						mesh := meshForFace(srcMesh, cutMesh, target.ParentFace, internalSrcFaceCount)
						resolved, err := resolver.Resolve(mesh, target)
						if err != nil {
							return nil, &Error{Kind: ErrKernel, reason: err.Error()}
						}
						if resolved {
							if mesh == srcMesh {
								srcRebuilt = true
							} else {
								cutRebuilt = true
							}
						}
					}
				}
				if srcRebuilt {
					srcBVH = bvh.Build(srcMesh, bvhEps)
				}
				if cutRebuilt {
					cutBVH = bvh.Build(cutMesh, bvhEps)
				}
				st = stateFindCandidatePairs
			default:
				st = stateAbort
			}

		case statePublish:
			clientSrcFaceCount := len(src.FaceSizes)
			if src.FaceSizes == nil {
				clientSrcFaceCount = len(src.Faces) / 3
			}
			handles, err := ctx.publish(srcMesh, cutMesh, lastOutput, resolver, flags,
				internalSrcVertexCount, internalSrcFaceCount, len(src.Vertices), clientSrcFaceCount)
			if err != nil {
				return nil, err
			}
			return handles, nil

		case stateAbort:
			reason := lastOutput.FailureReason
			if reason == "" && driver.Exhausted() {
				reason = "general position violation not resolved within MAX attempts"
				return nil, &Error{Kind: ErrGeneralPosition, reason: reason}
			}
			return nil, &Error{Kind: ErrKernel, reason: reason}
		}
	}
}

func rawVerts(cut ingest.RawMesh, perturbed []r3.Vec) []r3.Vec {
	if perturbed != nil {
		return perturbed
	}
	return cut.Vertices
}

// meshForFace returns the mesh that owns a face id in the kernel's
// unified namespace (source faces first, cut faces offset after).
func meshForFace(src, cut *geom.Mesh, f geom.FaceID, internalSrcFaceCount int) *geom.Mesh {
	if int(f) < internalSrcFaceCount {
		return src
	}
	return cut
}

// publish implements spec §4.G's publish state using a parallel fork/join
// over the CC-construction stages, matching spec §5's "data-parallel
// fork/join over ranges" scheduling model for this step.
func (ctx *Context) publish(
	srcMesh, cutMesh *geom.Mesh, out kernel.Output, resolver *floatpoly.Resolver, flags Flags,
	internalSrcVertexCount, internalSrcFaceCount, clientSrcVertexCount, clientSrcFaceCount int,
) ([]ccstore.Handle, error) {
	prov := &ccstore.ProvenanceMaps{
		ChildToBirthFaceSrc:       resolver.ChildToBirth,
		ChildToBirthFaceCut:       map[geom.FaceID]geom.FaceID{},
		NewPartitionVerticesSrc:   resolver.NewPolyPartitionVertices,
		NewPartitionVerticesCut:   map[geom.VertexID]r3.Vec{},
		InternalSourceVertexCount: internalSrcVertexCount,
		InternalSourceFaceCount:   internalSrcFaceCount,
		ClientSourceVertexCount:   clientSrcVertexCount,
		ClientSourceFaceCount:     clientSrcFaceCount,
	}

	var (
		g                 errgroup.Group
		fragmentCCs       []*ccstore.CC
		patchCCs          []*ccstore.CC
		seamSrcCC, seamCutCC *ccstore.CC
		inputSrcCC, inputCutCC *ccstore.CC
	)

	g.Go(func() error {
		fragmentCCs = buildFragments(srcMesh, out, prov, flags)
		return nil
	})
	g.Go(func() error {
		patchCCs = buildPatches(cutMesh, out, prov, flags)
		return nil
	})
	g.Go(func() error {
		if flags.noFilters() || flags&FilterSeamSrcMesh != 0 {
			seamSrcCC = buildSeamCC(srcMesh, out, ccstore.SrcMesh, prov)
		}
		if flags.noFilters() || flags&FilterSeamCutMesh != 0 {
			seamCutCC = buildSeamCC(cutMesh, out, ccstore.CutMesh, prov)
		}
		return nil
	})
	g.Go(func() error {
		if flags.noFilters() {
			inputSrcCC = &ccstore.CC{Type: ccstore.Input, Mesh: srcMesh, Input: &ccstore.InputData{Origin: ccstore.SrcMesh}, Provenance: prov}
			inputCutCC = &ccstore.CC{Type: ccstore.Input, Mesh: cutMesh, Input: &ccstore.InputData{Origin: ccstore.CutMesh}, Provenance: prov, OnCutSide: true}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, &Error{Kind: ErrKernel, reason: err.Error()}
	}

	var handles []ccstore.Handle
	addMaps := func(cc *ccstore.CC) {
		if flags&IncludeVertexMap != 0 {
			cc.VertexMap = buildVertexMap(cc, prov)
		}
		if flags&IncludeFaceMap != 0 {
			cc.FaceMap = buildFaceMap(cc, prov)
		}
	}
	for _, cc := range fragmentCCs {
		if !fragmentPasses(cc, flags) {
			continue
		}
		addMaps(cc)
		handles = append(handles, ctx.Store.Add(cc))
	}
	for _, cc := range patchCCs {
		if !patchPasses(cc, flags) {
			continue
		}
		addMaps(cc)
		handles = append(handles, ctx.Store.Add(cc))
	}
	for _, cc := range []*ccstore.CC{seamSrcCC, seamCutCC, inputSrcCC, inputCutCC} {
		if cc == nil {
			continue
		}
		addMaps(cc)
		handles = append(handles, ctx.Store.Add(cc))
	}
	return handles, nil
}

func fragmentPasses(cc *ccstore.CC, flags Flags) bool {
	if flags.noFilters() {
		return true
	}
	locOK := flags&(FilterFragmentLocationAbove|FilterFragmentLocationBelow|FilterFragmentLocationUndefined) == 0
	switch cc.Fragment.Location {
	case ccstore.Above:
		locOK = locOK || flags&FilterFragmentLocationAbove != 0
	case ccstore.Below:
		locOK = locOK || flags&FilterFragmentLocationBelow != 0
	default:
		locOK = locOK || flags&FilterFragmentLocationUndefined != 0
	}
	sealOK := flags&(FilterFragmentSealingInside|FilterFragmentSealingOutside|FilterFragmentSealingInsideExhaustive|FilterFragmentSealingOutsideExhaustive|FilterFragmentSealingNone) == 0
	switch cc.Fragment.SealType {
	case ccstore.SealComplete:
		if cc.Fragment.PatchLocation == ccstore.Inside {
			sealOK = sealOK || flags&(FilterFragmentSealingInside|FilterFragmentSealingInsideExhaustive) != 0
		} else {
			sealOK = sealOK || flags&(FilterFragmentSealingOutside|FilterFragmentSealingOutsideExhaustive) != 0
		}
	case ccstore.SealPartial:
		sealOK = sealOK || flags&(FilterFragmentSealingInsideExhaustive|FilterFragmentSealingOutsideExhaustive) != 0
	default:
		sealOK = sealOK || flags&FilterFragmentSealingNone != 0
	}
	return locOK && sealOK
}

func patchPasses(cc *ccstore.CC, flags Flags) bool {
	if flags.noFilters() {
		return true
	}
	if flags&(FilterPatchInside|FilterPatchOutside) == 0 {
		return false
	}
	if cc.Patch.Location == ccstore.Inside {
		return flags&FilterPatchInside != 0
	}
	return flags&FilterPatchOutside != 0
}

func buildVertexMap(cc *ccstore.CC, prov *ccstore.ProvenanceMaps) []uint32 {
	ids := cc.Mesh.VertexIDs()
	out := make([]uint32, len(ids))
	for i, v := range ids {
		if cc.OnCutSide {
			// TranslateVertex takes cut-side ids in the unified namespace,
			// after the internal source-mesh vertices.
			v += geom.VertexID(prov.InternalSourceVertexCount)
		}
		out[i] = ccstore.TranslateVertex(v, cc.OnCutSide, prov)
	}
	return out
}

func buildFaceMap(cc *ccstore.CC, prov *ccstore.ProvenanceMaps) []uint32 {
	ids := cc.Mesh.FaceIDs()
	out := make([]uint32, len(ids))
	for i, f := range ids {
		if cc.OnCutSide {
			// TranslateFace takes cut-side ids in the unified namespace,
			// after the internal source-mesh faces.
			f += geom.FaceID(prov.InternalSourceFaceCount)
		}
		out[i] = ccstore.TranslateFace(f, cc.OnCutSide, prov)
	}
	return out
}
