package orchestrate

import (
	"github.com/cutgraph/meshcut/internal/ccstore"
	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/cutgraph/meshcut/internal/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// extractSubmesh builds a standalone mesh containing only the given faces
// of m, copying the vertices they reference. It is how publish turns the
// kernel's per-region face lists into CC-owned meshes.
func extractSubmesh(m *geom.Mesh, faces []geom.FaceID) *geom.Mesh {
	out := geom.NewMesh()
	remap := make(map[geom.VertexID]geom.VertexID)
	ensure := func(v geom.VertexID) geom.VertexID {
		if nv, ok := remap[v]; ok {
			return nv
		}
		nv := out.AddVertex(m.VertexPosition(v))
		remap[v] = nv
		return nv
	}
	for _, f := range faces {
		verts := m.VerticesAroundFace(f)
		nverts := make([]geom.VertexID, len(verts))
		for i, v := range verts {
			nverts[i] = ensure(v)
		}
		out.AddFace(nverts)
	}
	return out
}

func fragmentLocation(l int) ccstore.FragmentLocation {
	switch l {
	case 0:
		return ccstore.Above
	case 1:
		return ccstore.Below
	default:
		return ccstore.UndefinedLocation
	}
}

func patchLocation(l int) ccstore.PatchLocation {
	if l == 0 {
		return ccstore.Inside
	}
	return ccstore.Outside
}

func sealType(s int) ccstore.SealType {
	switch s {
	case 1:
		return ccstore.SealPartial
	case 2:
		return ccstore.SealComplete
	default:
		return ccstore.SealNone
	}
}

// buildFragments turns every kernel.FragmentReport into a Fragment CC
// owning its own extracted submesh.
func buildFragments(srcMesh *geom.Mesh, out kernel.Output, prov *ccstore.ProvenanceMaps, flags Flags) []*ccstore.CC {
	var ccs []*ccstore.CC
	for _, fr := range out.Fragments {
		ccs = append(ccs, &ccstore.CC{
			Type: ccstore.Fragment,
			Mesh: extractSubmesh(srcMesh, fr.Faces),
			Fragment: &ccstore.FragmentData{
				Location:      fragmentLocation(fr.Location),
				PatchLocation: patchLocation(fr.PatchLocation),
				SealType:      sealType(fr.SealType),
			},
			Provenance: prov,
		})
	}
	return ccs
}

// buildPatches turns every kernel.PatchReport into a Patch CC owning its
// own extracted submesh of the cut mesh.
func buildPatches(cutMesh *geom.Mesh, out kernel.Output, prov *ccstore.ProvenanceMaps, flags Flags) []*ccstore.CC {
	var ccs []*ccstore.CC
	for _, pr := range out.Patches {
		ccs = append(ccs, &ccstore.CC{
			Type: ccstore.Patch,
			Mesh: extractSubmesh(cutMesh, pr.Faces),
			Patch: &ccstore.PatchData{
				Location: patchLocation(pr.Location),
			},
			Provenance: prov,
			OnCutSide:  true,
		})
	}
	return ccs
}

// buildSeamCC builds the seam polyline mesh for one origin side: vertices
// deduplicated by exact position, connected by edges (no faces — a seam is
// a curve, not a surface).
func buildSeamCC(_ *geom.Mesh, out kernel.Output, origin ccstore.Origin, prov *ccstore.ProvenanceMaps) *ccstore.CC {
	if len(out.Seams) == 0 {
		return nil
	}
	m := geom.NewMesh()
	byPos := make(map[r3.Vec]geom.VertexID)
	ensure := func(p r3.Vec) geom.VertexID {
		if v, ok := byPos[p]; ok {
			return v
		}
		v := m.AddVertex(p)
		byPos[p] = v
		return v
	}
	var seamVerts []geom.VertexID
	seen := make(map[geom.VertexID]bool)
	for _, s := range out.Seams {
		a, b := ensure(s.A), ensure(s.B)
		m.AddEdge(a, b)
		for _, v := range [2]geom.VertexID{a, b} {
			if !seen[v] {
				seen[v] = true
				seamVerts = append(seamVerts, v)
			}
		}
	}
	return &ccstore.CC{
		Type:         ccstore.Seam,
		Mesh:         m,
		SeamVertices: seamVerts,
		Seam:         &ccstore.SeamData{Origin: origin},
		Provenance:   prov,
		OnCutSide:    origin == ccstore.CutMesh,
	}
}
