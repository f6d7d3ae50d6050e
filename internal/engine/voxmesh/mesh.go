package voxmesh

import (
	"unsafe"

	"github.com/Faultbox/midgard-vox/pkg/vox"
)

// uvScale maps world units to texture repeats.
const uvScale = 0.25

// Vertex represents a voxel mesh vertex with all attributes.
type Vertex struct {
	Position [3]float32
	Colour   [4]float32
	UV       [3]float32 // u, v, texture index
	Normal   float32    // vox.NormalDirection as float
}

// VertexSize is the byte stride of one Vertex.
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// Mesh holds the complete section mesh data ready for GPU upload.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
}

// Bounds holds the axis-aligned bounding box of a mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Empty reports whether the mesh has nothing to draw.
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Indices) == 0
}

// ByteSize returns the vertex and index buffer size in bytes.
func (m *Mesh) ByteSize() int {
	if m == nil {
		return 0
	}
	return len(m.Vertices)*VertexSize + len(m.Indices)*4
}

// uvAxes returns the world axes projected onto u and v for a face normal.
func uvAxes(n vox.NormalDirection) (int, int) {
	switch n.Axis() {
	case 0:
		return 2, 1
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

// BuildMesh creates a mesh with two triangles per quad.
// Colour and texture index come from the quad's voxel value.
func BuildMesh(quads []vox.QuadDescriptor, materials *MaterialSet) *Mesh {
	mesh := &Mesh{
		Vertices: make([]Vertex, 0, len(quads)*4),
		Indices:  make([]uint32, 0, len(quads)*6),
		Bounds: Bounds{
			Min: [3]float32{1e10, 1e10, 1e10},
			Max: [3]float32{-1e10, -1e10, -1e10},
		},
	}
	if len(quads) == 0 {
		mesh.Bounds = Bounds{}
		return mesh
	}

	for _, q := range quads {
		mat := materials.Lookup(q.Value)
		normal := float32(q.Normal)
		ua, va := uvAxes(q.Normal)

		base := uint32(len(mesh.Vertices))
		for _, p := range q.Vertices {
			pos := p.Array()
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Position: pos,
				Colour:   mat.Colour,
				UV:       [3]float32{pos[ua] * uvScale, pos[va] * uvScale, mat.TextureIndex},
				Normal:   normal,
			})
			updateBounds(&mesh.Bounds, pos)
		}
		mesh.Indices = append(mesh.Indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}
	return mesh
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := range 3 {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}
