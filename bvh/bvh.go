// Package bvh is the out-of-scope BVH collaborator named in spec §6
// (bvh.build, bvh.candidate_pairs): given a halfedge mesh, build a bounding
// volume hierarchy over its faces, and given two such hierarchies, report
// candidate face pairs whose AABBs overlap. This package is not part of
// the intersection-resolution engine itself; it is specified only at its
// interface, and is backed here by a real third-party R-tree rather than a
// hand-rolled reimplementation of the teacher's own rtree package.
package bvh

import (
	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r3"
)

const dims = 3

// faceBox implements rtreego.Spatial over one face's AABB, expanded by eps
// on every side (bvh.build(mesh, eps) in spec §6).
type faceBox struct {
	face geom.FaceID
	rect *rtreego.Rect
}

func (f *faceBox) Bounds() *rtreego.Rect { return f.rect }

// Tree is a built BVH over one mesh's faces.
type Tree struct {
	rtree *rtreego.Rtree
	boxes map[geom.FaceID]*faceBox
}

// Build constructs a BVH over every live face of m, expanding each face's
// AABB by eps on every side to absorb numerical slack in later candidate
// queries.
func Build(m *geom.Mesh, eps float64) *Tree {
	rt := rtreego.NewTree(dims, 2, 8)
	boxes := make(map[geom.FaceID]*faceBox)
	for _, f := range m.FaceIDs() {
		verts := m.VerticesAroundFace(f)
		if len(verts) == 0 {
			continue
		}
		min, max := m.VertexPosition(verts[0]), m.VertexPosition(verts[0])
		for _, v := range verts[1:] {
			p := m.VertexPosition(v)
			min = r3.Vec{X: minf(min.X, p.X), Y: minf(min.Y, p.Y), Z: minf(min.Z, p.Z)}
			max = r3.Vec{X: maxf(max.X, p.X), Y: maxf(max.Y, p.Y), Z: maxf(max.Z, p.Z)}
		}
		origin := rtreego.Point{min.X - eps, min.Y - eps, min.Z - eps}
		lengths := [dims]float64{
			(max.X - min.X) + 2*eps,
			(max.Y - min.Y) + 2*eps,
			(max.Z - min.Z) + 2*eps,
		}
		for i, l := range lengths {
			if l <= 0 {
				lengths[i] = 2 * eps
				if lengths[i] == 0 {
					lengths[i] = 1e-9
				}
			}
		}
		rect, err := rtreego.NewRect(origin, lengths[:])
		if err != nil {
			continue
		}
		fb := &faceBox{face: f, rect: rect}
		boxes[f] = fb
		rt.Insert(fb)
	}
	return &Tree{rtree: rt, boxes: boxes}
}

// CandidatePairs returns, for every face of src whose expanded AABB
// overlaps at least one face of cut, the map from that source face to the
// list of overlapping cut faces (bvh.candidate_pairs(src_bvh, cut_bvh) in
// spec §6).
func CandidatePairs(src, cut *Tree) map[geom.FaceID][]geom.FaceID {
	out := make(map[geom.FaceID][]geom.FaceID)
	for f, fb := range src.boxes {
		hits := cut.rtree.SearchIntersect(fb.rect)
		if len(hits) == 0 {
			continue
		}
		matches := make([]geom.FaceID, 0, len(hits))
		for _, h := range hits {
			matches = append(matches, h.(*faceBox).face)
		}
		out[f] = matches
	}
	return out
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
