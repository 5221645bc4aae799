// Package kernel is the out-of-scope kernel collaborator named in spec §6
// (kernel.dispatch(input, output)): it computes the actual mesh
// intersection given two clean halfedge meshes and a candidate-face-pair
// list. Spec §1 explicitly excludes the kernel's own algorithm from this
// system's scope ("the kernel ... specified only at its interface").
//
// This package provides a deterministic reference implementation of that
// interface, sufficient to drive the orchestrator's retry loop (component
// G) and exercise every documented status transition in tests. It is not a
// production-grade exact geometric boolean kernel.
package kernel

import (
	"math"
	"sort"

	"github.com/cutgraph/meshcut/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Status mirrors the kernel statuses named in spec §2 and §7.
type Status int

const (
	Success Status = iota
	GeneralPositionViolation
	DetectedFloatingPolygon
	InvalidMeshIntersection
	OtherFailure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case GeneralPositionViolation:
		return "GENERAL_POSITION_VIOLATION"
	case DetectedFloatingPolygon:
		return "DETECTED_FLOATING_POLYGON"
	case InvalidMeshIntersection:
		return "INVALID_MESH_INTERSECTION"
	default:
		return "OTHER_FAILURE"
	}
}

// FloatingPolygon is one floating-polygon report (spec §4.E): a 3D polygon
// wholly inside the interior of a parent face, with the plane it was
// detected on.
type FloatingPolygon struct {
	ParentFace geom.FaceID // unified namespace: offset already applied by caller
	Polygon    []r3.Vec
	Normal     r3.Vec
	DropAxis   int
}

// SeamEdge is one segment of the intersection curve between a source face
// and a cut face.
type SeamEdge struct {
	SrcFace, CutFace geom.FaceID
	A, B             r3.Vec
}

// Input carries everything the kernel needs for one dispatch attempt.
type Input struct {
	Source, Cut *geom.Mesh
	// Candidates maps a source face to the cut faces whose AABBs overlap
	// it (the output of bvh.candidate_pairs).
	Candidates map[geom.FaceID][]geom.FaceID
	EnforceGeneralPosition bool
}

// FragmentReport is one fragment the kernel found on the source mesh side:
// a location relative to the cut surface, the patch (if any) that could
// seal its cut-induced boundary, and how completely that seal covers the
// boundary (spec §3's Fragment CC variant).
type FragmentReport struct {
	Faces         []geom.FaceID
	Location      int // 0=above, 1=below, 2=undefined — see ccstore.FragmentLocation
	PatchLocation int // 0=inside, 1=outside, 2=undefined — see ccstore.PatchLocation
	SealType      int // 0=none, 1=partial, 2=complete — see ccstore.SealType
}

// PatchReport is one patch the kernel found on the cut mesh side.
type PatchReport struct {
	Faces    []geom.FaceID
	Location int // 0=inside, 1=outside — see ccstore.PatchLocation
}

// Output is the kernel's report for one dispatch attempt.
type Output struct {
	Status Status
	// Seams is the set of seam segments found on successful dispatch.
	Seams []SeamEdge
	// Fragments and Patches are only populated on Success.
	Fragments []FragmentReport
	Patches   []PatchReport
	// DetectedFloatingPolygons groups floating polygons by parent face,
	// per spec §4.E.
	DetectedFloatingPolygons map[geom.FaceID][]FloatingPolygon
	FailureReason            string
}

const coincidenceEps = 1e-9

// Dispatch computes the intersection of in.Source and in.Cut restricted to
// the candidate face pairs in in.Candidates.
func Dispatch(in Input) Output {
	if len(in.Candidates) == 0 {
		return Output{Status: Success}
	}

	srcFaces := sortedKeys(in.Candidates)

	for _, srcFace := range srcFaces {
		srcVerts := facePositions(in.Source, srcFace)
		for _, cutFace := range sortedFaceIDs(in.Candidates[srcFace]) {
			cutVerts := facePositions(in.Cut, cutFace)
			if in.EnforceGeneralPosition && shareCoincidentVertex(srcVerts, cutVerts) {
				return Output{
					Status:        GeneralPositionViolation,
					FailureReason: "a source and cut vertex are exactly coincident",
				}
			}
		}
	}

	var seams []SeamEdge
	floating := make(map[geom.FaceID][]FloatingPolygon)

	for _, srcFace := range srcFaces {
		srcVerts := facePositions(in.Source, srcFace)
		srcPlane := geom.ComputePolygonPlaneCoefficients(srcVerts)
		for _, cutFace := range sortedFaceIDs(in.Candidates[srcFace]) {
			cutVerts := facePositions(in.Cut, cutFace)
			cutPlane := geom.ComputePolygonPlaneCoefficients(cutVerts)

			a, b, ok := planePolygonSegment(srcVerts, cutPlane)
			if !ok {
				continue
			}
			c, d, ok2 := planePolygonSegment(cutVerts, srcPlane)
			if !ok2 {
				continue
			}

			if segmentStrictlyInside(srcVerts, srcPlane, c, d) {
				floating[srcFace] = append(floating[srcFace], FloatingPolygon{
					ParentFace: srcFace,
					Polygon:    []r3.Vec{c, d},
					Normal:     srcPlane.Normal,
					DropAxis:   srcPlane.LargestAbsComponent,
				})
				continue
			}

			seams = append(seams, SeamEdge{SrcFace: srcFace, CutFace: cutFace, A: a, B: b})
		}
	}

	if len(floating) > 0 {
		return Output{Status: DetectedFloatingPolygon, DetectedFloatingPolygons: floating}
	}

	fragments, patches := classify(in, seams)
	return Output{Status: Success, Seams: seams, Fragments: fragments, Patches: patches}
}

// classify derives the fragment/patch reports from the seam set. This
// reference kernel does not perform an exact boolean split of the meshes;
// it reports the whole source mesh as one fragment and the whole cut mesh
// as one patch whenever a seam was found, with the location and
// patch-location fields decided by which side of the first seam's source
// face plane the cut face's centroid lies on; the seal type is always
// complete. A production-grade kernel instead partitions each mesh along
// the seam curve into one fragment/patch per resulting face group.
func classify(in Input, seams []SeamEdge) ([]FragmentReport, []PatchReport) {
	if len(seams) == 0 {
		return nil, nil
	}
	seam := seams[0]
	srcVerts := facePositions(in.Source, seam.SrcFace)
	cutVerts := facePositions(in.Cut, seam.CutFace)
	srcPlane := geom.ComputePolygonPlaneCoefficients(srcVerts)
	cutCentroid := centroid(cutVerts)
	side := r3.Dot(srcPlane.Normal, cutCentroid) - srcPlane.D

	location := 0 // above
	patchLocation := 0 // inside
	if side < 0 {
		location = 1 // below
		patchLocation = 1 // outside
	}

	return []FragmentReport{{
			Faces:         allFaces(in.Source),
			Location:      location,
			PatchLocation: patchLocation,
			SealType:      2, // complete
		}},
		[]PatchReport{{
			Faces:    allFaces(in.Cut),
			Location: patchLocation,
		}}
}

// sortedKeys and sortedFaceIDs give a fixed iteration order over the
// candidate-pair map and its per-face slices, so that two dispatches on
// identical inputs build seams and floating-polygon reports in the same
// order. Go map iteration order is randomized per process; without this,
// repeated dispatches on identical meshes could disagree on seam order
// and on which side gets reported ABOVE vs. BELOW.
func sortedKeys(candidates map[geom.FaceID][]geom.FaceID) []geom.FaceID {
	keys := make([]geom.FaceID, 0, len(candidates))
	for f := range candidates {
		keys = append(keys, f)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedFaceIDs(ids []geom.FaceID) []geom.FaceID {
	out := append([]geom.FaceID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func allFaces(m *geom.Mesh) []geom.FaceID { return m.FaceIDs() }

func centroid(pts []r3.Vec) r3.Vec {
	var c r3.Vec
	for _, p := range pts {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(pts)), c)
}

func facePositions(m *geom.Mesh, f geom.FaceID) []r3.Vec {
	verts := m.VerticesAroundFace(f)
	out := make([]r3.Vec, len(verts))
	for i, v := range verts {
		out[i] = m.VertexPosition(v)
	}
	return out
}

func shareCoincidentVertex(a, b []r3.Vec) bool {
	for _, p := range a {
		for _, q := range b {
			if r3.Norm(r3.Sub(p, q)) < coincidenceEps {
				return true
			}
		}
	}
	return false
}

// planePolygonSegment intersects the boundary edges of poly with the plane
// given by target, returning the two boundary crossing points (if the
// polygon's edges cross that plane exactly twice).
func planePolygonSegment(poly []r3.Vec, target geom.PlaneCoefficients) (r3.Vec, r3.Vec, bool) {
	n := len(poly)
	var hits []r3.Vec
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		da := r3.Dot(target.Normal, a) - target.D
		db := r3.Dot(target.Normal, b) - target.D
		if (da > 0) == (db > 0) {
			continue
		}
		denom := da - db
		if math.Abs(denom) < 1e-15 {
			continue
		}
		t := da / denom
		hits = append(hits, r3.Add(a, r3.Scale(t, r3.Sub(b, a))))
		if len(hits) == 2 {
			break
		}
	}
	if len(hits) != 2 {
		return r3.Vec{}, r3.Vec{}, false
	}
	return hits[0], hits[1], true
}

// segmentStrictlyInside reports whether segment c-d (already known to lie
// on poly's plane) projects strictly inside poly with no boundary edge
// severed, i.e. a floating polygon per spec's definition.
func segmentStrictlyInside(poly []r3.Vec, plane geom.PlaneCoefficients, c, d r3.Vec) bool {
	proj := make([]geom.XY, len(poly))
	for i, v := range poly {
		proj[i] = geom.ProjectTo2D(v, plane.LargestAbsComponent)
	}
	pc := geom.ProjectTo2D(c, plane.LargestAbsComponent)
	pd := geom.ProjectTo2D(d, plane.LargestAbsComponent)
	return geom.PointInPolygonTest(pc, proj) == geom.Interior &&
		geom.PointInPolygonTest(pd, proj) == geom.Interior
}
