// Package geom implements the halfedge mesh store (component A) and the
// geometry predicates (component B) of the intersection-resolution engine.
package geom

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// VertexID, HalfedgeID, EdgeID and FaceID are stable integer descriptors.
// They remain valid for the lifetime of the element they name; removal may
// free the underlying slot for reuse by a later Add call, but never changes
// the descriptor of a live element.
type (
	VertexID   int32
	HalfedgeID int32
	EdgeID     int32
	FaceID     int32
)

// NullVertex, NullHalfedge, NullEdge and NullFace are the sentinel values
// returned on failure, matching the "add_face never throws, returns a
// sentinel" contract in spec §4.A.
const (
	NullVertex   VertexID   = -1
	NullHalfedge HalfedgeID = -1
	NullEdge     EdgeID     = -1
	NullFace     FaceID     = -1
)

type vertexSlot struct {
	pos  r3.Vec
	live bool
	// incident is one halfedge with this vertex as source, or NullHalfedge
	// if the vertex currently has no incident halfedges.
	incident HalfedgeID
}

type halfedgeSlot struct {
	source, target VertexID
	opposite       HalfedgeID
	face           FaceID
	next, prev     HalfedgeID
	edge           EdgeID
	live           bool
}

type edgeSlot struct {
	h0, h1 HalfedgeID
	live   bool
}

type faceSlot struct {
	first HalfedgeID // one halfedge of the cycle, CCW
	size  int
	live  bool
}

// Mesh is an incremental halfedge mesh store. Create one with NewMesh; the
// zero value has no directed-halfedge index and panics on the first
// AddEdge or AddFace.
type Mesh struct {
	vertices  []vertexSlot
	halfedges []halfedgeSlot
	edges     []edgeSlot
	faces     []faceSlot

	freeV []VertexID
	freeH []HalfedgeID
	freeE []EdgeID
	freeF []FaceID

	liveVCount, liveHCount, liveECount, liveFCount int

	// directed maps a (source,target) pair to the halfedge that already
	// owns it, so AddFace can detect the non-manifold case in O(1).
	directed map[[2]VertexID]HalfedgeID
}

// NewMesh returns an empty halfedge mesh.
func NewMesh() *Mesh {
	return &Mesh{directed: make(map[[2]VertexID]HalfedgeID)}
}

// AddVertex inserts a new vertex at p and returns its descriptor.
func (m *Mesh) AddVertex(p r3.Vec) VertexID {
	if n := len(m.freeV); n > 0 {
		id := m.freeV[n-1]
		m.freeV = m.freeV[:n-1]
		m.vertices[id] = vertexSlot{pos: p, live: true, incident: NullHalfedge}
		m.liveVCount++
		return id
	}
	m.vertices = append(m.vertices, vertexSlot{pos: p, live: true, incident: NullHalfedge})
	m.liveVCount++
	return VertexID(len(m.vertices) - 1)
}

// VertexPosition returns the 3D position of v.
func (m *Mesh) VertexPosition(v VertexID) r3.Vec {
	return m.vertices[v].pos
}

// AddEdge creates both halfedges of an undirected edge between a and b and
// returns the halfedge going from a to b. It returns NullHalfedge if either
// directed halfedge already exists (the edge, or its reverse, is already in
// use by another face/edge).
func (m *Mesh) AddEdge(a, b VertexID) HalfedgeID {
	if a == b {
		return NullHalfedge
	}
	if _, ok := m.directed[[2]VertexID{a, b}]; ok {
		return NullHalfedge
	}
	if _, ok := m.directed[[2]VertexID{b, a}]; ok {
		return NullHalfedge
	}

	hAB := m.allocHalfedge(a, b, NullFace)
	hBA := m.allocHalfedge(b, a, NullFace)
	m.halfedges[hAB].opposite = hBA
	m.halfedges[hBA].opposite = hAB

	eid := m.allocEdge(hAB, hBA)
	m.halfedges[hAB].edge = eid
	m.halfedges[hBA].edge = eid

	m.directed[[2]VertexID{a, b}] = hAB
	m.directed[[2]VertexID{b, a}] = hBA

	if m.vertices[a].incident == NullHalfedge {
		m.vertices[a].incident = hAB
	}
	if m.vertices[b].incident == NullHalfedge {
		m.vertices[b].incident = hBA
	}
	return hAB
}

func (m *Mesh) allocHalfedge(source, target VertexID, face FaceID) HalfedgeID {
	slot := halfedgeSlot{
		source: source, target: target,
		opposite: NullHalfedge, face: face,
		next: NullHalfedge, prev: NullHalfedge,
		edge: NullEdge, live: true,
	}
	if n := len(m.freeH); n > 0 {
		id := m.freeH[n-1]
		m.freeH = m.freeH[:n-1]
		m.halfedges[id] = slot
		m.liveHCount++
		return id
	}
	m.halfedges = append(m.halfedges, slot)
	m.liveHCount++
	return HalfedgeID(len(m.halfedges) - 1)
}

func (m *Mesh) allocEdge(h0, h1 HalfedgeID) EdgeID {
	slot := edgeSlot{h0: h0, h1: h1, live: true}
	if n := len(m.freeE); n > 0 {
		id := m.freeE[n-1]
		m.freeE = m.freeE[:n-1]
		m.edges[id] = slot
		m.liveECount++
		return id
	}
	m.edges = append(m.edges, slot)
	m.liveECount++
	return EdgeID(len(m.edges) - 1)
}

// IsInsertable reports whether AddFace(verts) would succeed, without
// mutating the store: a dry run of the manifold and shape checks.
func (m *Mesh) IsInsertable(verts []VertexID) bool {
	if len(verts) < 3 {
		return false
	}
	seen := make(map[VertexID]bool, len(verts))
	for _, v := range verts {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	n := len(verts)
	for i := 0; i < n; i++ {
		a, b := verts[i], verts[(i+1)%n]
		if hid, ok := m.directed[[2]VertexID{a, b}]; ok {
			// Occupied by a live halfedge already bound to a face.
			if m.halfedges[hid].live && m.halfedges[hid].face != NullFace {
				return false
			}
		}
	}
	return true
}

// AddFace adds an n-gon (n>=3) over the given CCW vertex cycle. It returns
// NullFace (without mutating the store) if the vertex list has duplicates,
// has fewer than 3 vertices, or any required directed halfedge is already
// owned by another face (the non-manifold-edge rejection of spec §4.A).
func (m *Mesh) AddFace(verts []VertexID) FaceID {
	if !m.IsInsertable(verts) {
		return NullFace
	}
	n := len(verts)
	hs := make([]HalfedgeID, n)
	for i := 0; i < n; i++ {
		a, b := verts[i], verts[(i+1)%n]
		hid, ok := m.directed[[2]VertexID{a, b}]
		if !ok {
			hid = m.AddEdge(a, b)
			if hid == NullHalfedge {
				// a==b guard already excluded by IsInsertable's dup check;
				// defensive only.
				return NullFace
			}
		}
		hs[i] = hid
	}

	fid := m.allocFace(hs[0], n)
	for i := 0; i < n; i++ {
		h := hs[i]
		m.halfedges[h].face = fid
		m.halfedges[h].next = hs[(i+1)%n]
		m.halfedges[h].prev = hs[(i-1+n)%n]
	}
	return fid
}

func (m *Mesh) allocFace(first HalfedgeID, size int) FaceID {
	slot := faceSlot{first: first, size: size, live: true}
	if n := len(m.freeF); n > 0 {
		id := m.freeF[n-1]
		m.freeF = m.freeF[:n-1]
		m.faces[id] = slot
		m.liveFCount++
		return id
	}
	m.faces = append(m.faces, slot)
	m.liveFCount++
	return FaceID(len(m.faces) - 1)
}

// RemoveFace detaches a face from its boundary halfedges (which become
// boundary, i.e. face == NullFace) without removing the halfedges
// themselves.
func (m *Mesh) RemoveFace(f FaceID) {
	if !m.faces[f].live {
		return
	}
	h0 := m.faces[f].first
	h := h0
	for {
		m.halfedges[h].face = NullFace
		h = m.halfedges[h].next
		if h == h0 {
			break
		}
	}
	m.faces[f] = faceSlot{}
	m.freeF = append(m.freeF, f)
	m.liveFCount--
}

// RemoveEdge removes both halfedges of an edge. Both incident faces (if
// any) must already have been removed by the caller.
func (m *Mesh) RemoveEdge(e EdgeID) {
	if !m.edges[e].live {
		return
	}
	h0, h1 := m.edges[e].h0, m.edges[e].h1
	for _, h := range [2]HalfedgeID{h0, h1} {
		a, b := m.halfedges[h].source, m.halfedges[h].target
		delete(m.directed, [2]VertexID{a, b})
		if m.vertices[a].incident == h {
			// Hand the vertex another live outgoing halfedge, if any.
			m.vertices[a].incident = NullHalfedge
			for k, s := range m.halfedges {
				if s.live && s.source == a && HalfedgeID(k) != h0 && HalfedgeID(k) != h1 {
					m.vertices[a].incident = HalfedgeID(k)
					break
				}
			}
		}
		m.halfedges[h] = halfedgeSlot{}
		m.freeH = append(m.freeH, h)
		m.liveHCount--
	}
	m.edges[e] = edgeSlot{}
	m.freeE = append(m.freeE, e)
	m.liveECount--
}

// RemoveVertex removes a vertex with no remaining incident halfedges.
func (m *Mesh) RemoveVertex(v VertexID) error {
	if m.vertices[v].incident != NullHalfedge {
		return fmt.Errorf("geom: cannot remove vertex %d: still has incident halfedges", v)
	}
	m.vertices[v] = vertexSlot{}
	m.freeV = append(m.freeV, v)
	m.liveVCount--
	return nil
}

// Source returns the source vertex of h.
func (m *Mesh) Source(h HalfedgeID) VertexID { return m.halfedges[h].source }

// Target returns the target vertex of h.
func (m *Mesh) Target(h HalfedgeID) VertexID { return m.halfedges[h].target }

// Opposite returns the twin halfedge of h.
func (m *Mesh) Opposite(h HalfedgeID) HalfedgeID { return m.halfedges[h].opposite }

// Next returns the next halfedge around h's face.
func (m *Mesh) Next(h HalfedgeID) HalfedgeID { return m.halfedges[h].next }

// Prev returns the previous halfedge around h's face.
func (m *Mesh) Prev(h HalfedgeID) HalfedgeID { return m.halfedges[h].prev }

// Face returns the face incident to h, or NullFace if h is a boundary
// halfedge.
func (m *Mesh) Face(h HalfedgeID) FaceID { return m.halfedges[h].face }

// Edge returns the edge that owns h.
func (m *Mesh) Edge(h HalfedgeID) EdgeID { return m.halfedges[h].edge }

// EdgeVertex returns one of the two vertices of edge e (i must be 0 or 1).
func (m *Mesh) EdgeVertex(e EdgeID, i int) VertexID {
	h := m.edges[e].h0
	if i == 1 {
		h = m.edges[e].h1
	}
	return m.halfedges[h].source
}

// VerticesAroundFace returns the CCW vertex cycle of f.
func (m *Mesh) VerticesAroundFace(f FaceID) []VertexID {
	out := make([]VertexID, 0, m.faces[f].size)
	for _, h := range m.HalfedgesAroundFace(f) {
		out = append(out, m.halfedges[h].source)
	}
	return out
}

// HalfedgesAroundFace returns the CCW halfedge cycle of f.
func (m *Mesh) HalfedgesAroundFace(f FaceID) []HalfedgeID {
	out := make([]HalfedgeID, 0, m.faces[f].size)
	h0 := m.faces[f].first
	h := h0
	for {
		out = append(out, h)
		h = m.halfedges[h].next
		if h == h0 {
			break
		}
	}
	return out
}

// FacesAroundFace returns, for each boundary halfedge of f, the face on the
// other side (skipping boundary neighbors, i.e. where the opposite
// halfedge has no incident face).
func (m *Mesh) FacesAroundFace(f FaceID) []FaceID {
	var out []FaceID
	for _, h := range m.HalfedgesAroundFace(f) {
		opp := m.halfedges[h].opposite
		if nf := m.halfedges[opp].face; nf != NullFace {
			out = append(out, nf)
		}
	}
	return out
}

// FaceSize returns the number of vertices/halfedges of f.
func (m *Mesh) FaceSize(f FaceID) int { return m.faces[f].size }

// NumVertices, NumFaces, NumEdges and NumHalfedges return the dense count of
// live elements: the ith live element in iteration order maps to row i in
// any output array built from that iteration (spec §9's "iterator
// arithmetic that accounts for removed elements").
func (m *Mesh) NumVertices() int  { return m.liveVCount }
func (m *Mesh) NumFaces() int     { return m.liveFCount }
func (m *Mesh) NumEdges() int     { return m.liveECount }
func (m *Mesh) NumHalfedges() int { return m.liveHCount }

// VertexIDs returns the live vertex descriptors in ascending order of slot
// index (dense, removal-aware iteration order).
func (m *Mesh) VertexIDs() []VertexID {
	out := make([]VertexID, 0, m.liveVCount)
	for i, s := range m.vertices {
		if s.live {
			out = append(out, VertexID(i))
		}
	}
	return out
}

// FaceIDs returns the live face descriptors in ascending slot order.
func (m *Mesh) FaceIDs() []FaceID {
	out := make([]FaceID, 0, m.liveFCount)
	for i, s := range m.faces {
		if s.live {
			out = append(out, FaceID(i))
		}
	}
	return out
}

// EdgeIDs returns the live edge descriptors in ascending slot order.
func (m *Mesh) EdgeIDs() []EdgeID {
	out := make([]EdgeID, 0, m.liveECount)
	for i, s := range m.edges {
		if s.live {
			out = append(out, EdgeID(i))
		}
	}
	return out
}
