// Package ccstore implements the connected-component store & query
// (component H): it stores output pieces with their typed metadata and
// streams vertex/face/edge/map/triangulation data to the caller, using the
// two-call size-query idiom (null buffer => return the required byte
// count).
package ccstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/cutgraph/meshcut/internal/geom"
	"github.com/cutgraph/meshcut/internal/triangulate"
	"gonum.org/v1/gonum/spatial/r3"
)

// Type is the connected-component variant tag (spec §3).
type Type int

const (
	Fragment Type = iota
	Patch
	Seam
	Input
)

type FragmentLocation int

const (
	Above FragmentLocation = iota
	Below
	UndefinedLocation
)

type PatchLocation int

const (
	Inside PatchLocation = iota
	Outside
	UndefinedPatchLocation
)

type SealType int

const (
	SealNone SealType = iota
	SealPartial
	SealComplete
)

type Origin int

const (
	SrcMesh Origin = iota
	CutMesh
)

// IntersectionPointVertex is the UINT32_MAX sentinel spec §4.H uses to mark
// a vertex invented by floating-polygon partitioning (not a client input).
const IntersectionPointVertex = math.MaxUint32

// ProvenanceMaps are shared by reference across every CC produced by one
// dispatch (spec §3). The two "ChildToBirth*" maps only contain entries for
// faces created by partitioning; the two "NewPartitionVertices*" maps only
// contain entries for vertices created by partitioning. Cut-side maps are
// keyed by unified-namespace ids (cut ids offset by the internal source
// counts); TranslateVertex and TranslateFace take such ids and map them
// back to client indices.
type ProvenanceMaps struct {
	ChildToBirthFaceSrc, ChildToBirthFaceCut         map[geom.FaceID]geom.FaceID
	NewPartitionVerticesSrc, NewPartitionVerticesCut map[geom.VertexID]r3.Vec

	InternalSourceVertexCount, InternalSourceFaceCount int
	ClientSourceVertexCount, ClientSourceFaceCount     int
}

// FragmentData is the Fragment-variant payload.
type FragmentData struct {
	Location      FragmentLocation
	PatchLocation PatchLocation
	SealType      SealType
}

// PatchData is the Patch-variant payload.
type PatchData struct {
	Location PatchLocation
}

// SeamData is the Seam-variant payload.
type SeamData struct {
	Origin Origin
}

// InputData is the Input-variant payload.
type InputData struct {
	Origin Origin
}

// CC is one connected component: an owned halfedge mesh plus its typed
// metadata, matching the tagged-variant design of spec §9 (no RTTI
// downcasts; callers switch on Type).
type CC struct {
	Type Type
	Mesh *geom.Mesh

	SeamVertices []geom.VertexID // sorted
	VertexMap    []uint32        // nil unless INCLUDE_VERTEX_MAP was set
	FaceMap      []uint32        // nil unless INCLUDE_FACE_MAP was set

	Fragment *FragmentData
	Patch    *PatchData
	Seam     *SeamData
	Input    *InputData

	Provenance *ProvenanceMaps
	// OnCutSide is true when this CC's mesh/vertex/face ids live in the
	// cut mesh's namespace (used for vertex/face map translation and for
	// Origin on Seam/Input CCs).
	OnCutSide bool

	tri         *triangulate.Triangulator
	cachedTris  []uint32
	haveTrisCached bool
}

// Handle identifies a CC within a Store.
type Handle int

// Store owns every CC produced by one context's dispatches.
type Store struct {
	ccs  map[Handle]*CC
	next Handle
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{ccs: make(map[Handle]*CC)}
}

// Add inserts cc and returns its handle.
func (s *Store) Add(cc *CC) Handle {
	h := s.next
	s.next++
	s.ccs[h] = cc
	return h
}

// Get returns the CC for h.
func (s *Store) Get(h Handle) (*CC, bool) {
	cc, ok := s.ccs[h]
	return cc, ok
}

// Release removes the given handles from the store.
func (s *Store) Release(handles []Handle) {
	for _, h := range handles {
		delete(s.ccs, h)
	}
}

// Handles returns every handle whose CC's Type is in typeMask (a bitmask
// of 1<<Type), in ascending handle order for determinism.
func (s *Store) Handles(typeMask uint32) []Handle {
	var out []Handle
	for h, cc := range s.ccs {
		if typeMask&(1<<uint(cc.Type)) != 0 {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Kind is a data-query kind, per spec §6.
type Kind int

const (
	KindVertexFloat Kind = iota
	KindVertexDouble
	KindFace
	KindFaceSize
	KindFaceAdjacentFace
	KindFaceAdjacentFaceSize
	KindEdge
	KindType
	KindFragmentLocation
	KindPatchLocation
	KindFragmentSealType
	KindOrigin
	KindSeamVertex
	KindVertexMap
	KindFaceMap
	KindFaceTriangulation
)

// ErrFieldNotAvailable is returned when a kind does not apply to the CC's
// Type (e.g. FRAGMENT_LOCATION queried on a Seam CC).
var ErrFieldNotAvailable = fmt.Errorf("ccstore: field not available for this connected component's type")

// ErrBufferTooLarge is returned when the caller's buffer is larger than
// the required byte count (spec §7/§9: "reject only strictly greater").
var ErrBufferTooLarge = fmt.Errorf("ccstore: buffer larger than required byte count")

// ErrBufferMisaligned is returned when the caller's buffer length is not a
// multiple of the kind's element stride.
var ErrBufferMisaligned = fmt.Errorf("ccstore: buffer length not a multiple of element stride")

// GetData is the sink for every per-CC datum (spec §4.H /
// get_connected_component_data). When out is nil, it returns the required
// byte count and writes nothing. Otherwise len(out) must be <= the
// required count and a multiple of the kind's stride (ErrBufferTooLarge
// and ErrBufferMisaligned otherwise); GetData fills out with the first
// len(out)/stride elements and returns len(out).
func (cc *CC) GetData(kind Kind, out []byte) (int, error) {
	elems, stride, err := cc.encode(kind)
	if err != nil {
		return 0, err
	}
	required := len(elems) * stride
	if out == nil {
		return required, nil
	}
	if len(out) > required {
		return 0, ErrBufferTooLarge
	}
	if stride > 0 && len(out)%stride != 0 {
		return 0, ErrBufferMisaligned
	}
	n := 0
	if stride > 0 {
		n = len(out) / stride
	}
	for i := 0; i < n; i++ {
		copy(out[i*stride:(i+1)*stride], elems[i])
	}
	return n * stride, nil
}

// encode produces the per-element byte slices for kind, each exactly
// stride bytes long.
func (cc *CC) encode(kind Kind) ([][]byte, int, error) {
	switch kind {
	case KindVertexFloat:
		return cc.encodeVertices(4), 12, nil
	case KindVertexDouble:
		return cc.encodeVertices(8), 24, nil
	case KindFace:
		return cc.encodeFaceIndices(), 4, nil
	case KindFaceSize:
		return cc.encodeFaceSizes(), 4, nil
	case KindFaceAdjacentFace:
		return cc.encodeFaceAdjacency(), 4, nil
	case KindFaceAdjacentFaceSize:
		return cc.encodeFaceAdjacencySizes(), 4, nil
	case KindEdge:
		return cc.encodeEdges(), 8, nil
	case KindType:
		return [][]byte{u32(uint32(cc.Type))}, 4, nil
	case KindFragmentLocation:
		if cc.Fragment == nil {
			return nil, 0, ErrFieldNotAvailable
		}
		return [][]byte{u32(uint32(cc.Fragment.Location))}, 4, nil
	case KindPatchLocation:
		switch {
		case cc.Fragment != nil:
			return [][]byte{u32(uint32(cc.Fragment.PatchLocation))}, 4, nil
		case cc.Patch != nil:
			return [][]byte{u32(uint32(cc.Patch.Location))}, 4, nil
		default:
			return nil, 0, ErrFieldNotAvailable
		}
	case KindFragmentSealType:
		if cc.Fragment == nil {
			return nil, 0, ErrFieldNotAvailable
		}
		return [][]byte{u32(uint32(cc.Fragment.SealType))}, 4, nil
	case KindOrigin:
		switch {
		case cc.Seam != nil:
			return [][]byte{u32(uint32(cc.Seam.Origin))}, 4, nil
		case cc.Input != nil:
			return [][]byte{u32(uint32(cc.Input.Origin))}, 4, nil
		default:
			return nil, 0, ErrFieldNotAvailable
		}
	case KindSeamVertex:
		out := make([][]byte, len(cc.SeamVertices))
		for i, v := range cc.SeamVertices {
			out[i] = u32(uint32(v))
		}
		return out, 4, nil
	case KindVertexMap:
		if cc.VertexMap == nil {
			return nil, 0, ErrFieldNotAvailable
		}
		out := make([][]byte, len(cc.VertexMap))
		for i, v := range cc.VertexMap {
			out[i] = u32(v)
		}
		return out, 4, nil
	case KindFaceMap:
		if cc.FaceMap == nil {
			return nil, 0, ErrFieldNotAvailable
		}
		out := make([][]byte, len(cc.FaceMap))
		for i, v := range cc.FaceMap {
			out[i] = u32(v)
		}
		return out, 4, nil
	case KindFaceTriangulation:
		tris := cc.triangulation()
		out := make([][]byte, len(tris))
		for i, v := range tris {
			out[i] = u32(v)
		}
		return out, 4, nil
	default:
		return nil, 0, fmt.Errorf("ccstore: unknown data kind %d", kind)
	}
}

// vertexIndex maps the mesh's live vertex ids to a dense, stable 0..N-1
// index in mesh iteration order (spec §9's iterator-arithmetic property).
func (cc *CC) vertexIndex() map[geom.VertexID]int {
	idx := make(map[geom.VertexID]int)
	for i, v := range cc.Mesh.VertexIDs() {
		idx[v] = i
	}
	return idx
}

func (cc *CC) encodeVertices(scalarSize int) [][]byte {
	ids := cc.Mesh.VertexIDs()
	out := make([][]byte, len(ids))
	for i, v := range ids {
		p := cc.Mesh.VertexPosition(v)
		buf := make([]byte, 3*scalarSize)
		if scalarSize == 4 {
			binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(float32(p.Z)))
		} else {
			binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(p.X))
			binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(p.Y))
			binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(p.Z))
		}
		out[i] = buf
	}
	return out
}

func (cc *CC) encodeFaceIndices() [][]byte {
	vidx := cc.vertexIndex()
	var out [][]byte
	for _, f := range cc.Mesh.FaceIDs() {
		for _, v := range cc.Mesh.VerticesAroundFace(f) {
			out = append(out, u32(uint32(vidx[v])))
		}
	}
	return out
}

func (cc *CC) encodeFaceSizes() [][]byte {
	faces := cc.Mesh.FaceIDs()
	out := make([][]byte, len(faces))
	for i, f := range faces {
		out[i] = u32(uint32(cc.Mesh.FaceSize(f)))
	}
	return out
}

func (cc *CC) encodeFaceAdjacency() [][]byte {
	vidx := cc.faceIndex()
	var out [][]byte
	for _, f := range cc.Mesh.FaceIDs() {
		for _, nf := range cc.Mesh.FacesAroundFace(f) {
			out = append(out, u32(uint32(vidx[nf])))
		}
	}
	return out
}

func (cc *CC) encodeFaceAdjacencySizes() [][]byte {
	faces := cc.Mesh.FaceIDs()
	out := make([][]byte, len(faces))
	for i, f := range faces {
		out[i] = u32(uint32(len(cc.Mesh.FacesAroundFace(f))))
	}
	return out
}

func (cc *CC) faceIndex() map[geom.FaceID]int {
	idx := make(map[geom.FaceID]int)
	for i, f := range cc.Mesh.FaceIDs() {
		idx[f] = i
	}
	return idx
}

func (cc *CC) encodeEdges() [][]byte {
	vidx := cc.vertexIndex()
	edges := cc.Mesh.EdgeIDs()
	out := make([][]byte, len(edges))
	for i, e := range edges {
		a := vidx[cc.Mesh.EdgeVertex(e, 0)]
		b := vidx[cc.Mesh.EdgeVertex(e, 1)]
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(a))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(b))
		out[i] = buf
	}
	return out
}

// triangulation lazily computes and caches the CC's full triangulation,
// invoking component F for every n-gon face (spec §2: "any face query in
// FACE_TRIANGULATION lazily invokes F").
func (cc *CC) triangulation() []uint32 {
	if cc.haveTrisCached {
		return cc.cachedTris
	}
	if cc.tri == nil {
		cc.tri = triangulate.New(nil)
	}
	vidx := cc.vertexIndex()
	var out []uint32
	for _, f := range cc.Mesh.FaceIDs() {
		tris, ok := cc.tri.TriangulateFace(cc.Mesh, f)
		if !ok {
			continue // per spec §4.F/§9: leave a hole; this triangulator discards its diagnostics
		}
		for _, v := range tris {
			out = append(out, uint32(vidx[v]))
		}
	}
	cc.cachedTris = out
	cc.haveTrisCached = true
	return out
}

func u32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

// TranslateVertex implements the vertex-map rule of spec §4.H: vertices
// invented by partitioning map to IntersectionPointVertex; source-mesh
// vertices pass through unchanged; cut-mesh vertices are offset into the
// client's post-source-mesh index space.
func TranslateVertex(v geom.VertexID, onCutSide bool, prov *ProvenanceMaps) uint32 {
	newVerts := prov.NewPartitionVerticesSrc
	if onCutSide {
		newVerts = prov.NewPartitionVerticesCut
	}
	if _, invented := newVerts[v]; invented {
		return IntersectionPointVertex
	}
	if !onCutSide {
		return uint32(v)
	}
	return uint32(int(v)-prov.InternalSourceVertexCount) + uint32(prov.ClientSourceVertexCount)
}

// TranslateFace implements the face-map rule of spec §4.H: a partition
// child face is first redirected to its client birth-face ancestor, then
// offset exactly as TranslateVertex offsets vertices.
func TranslateFace(f geom.FaceID, onCutSide bool, prov *ProvenanceMaps) uint32 {
	childToBirth := prov.ChildToBirthFaceSrc
	if onCutSide {
		childToBirth = prov.ChildToBirthFaceCut
	}
	if birth, ok := childToBirth[f]; ok {
		f = birth
	}
	if !onCutSide {
		return uint32(f)
	}
	return uint32(int(f)-prov.InternalSourceFaceCount) + uint32(prov.ClientSourceFaceCount)
}
