package assets

import "github.com/kestrelgfx/vex/engine/math"

// MeshId indexes into the store's Meshes array.
type MeshId = uint32

// Vertex is the packed, GPU-uploaded vertex record: 56 bytes, attributes at
// offsets 0 (position, 3×f32), 12 (tex coords, 2×f32), 20 (normal, 3×f32),
// 32 (tangent, 3×f32), 44 (bitangent, 3×f32). Bitangent is computed at load
// time (cross(normal, tangent) * handedness) so the GPU never reconstructs
// it per-fragment.
type Vertex struct {
	Position  math.Vec3
	TexCoords math.Vec2
	Normal    math.Vec3
	Tangent   math.Vec3
	Bitangent math.Vec3
}

// NewVertex computes Bitangent from normal/tangent+handedness and returns a
// fully-populated Vertex. Baking the cross product once at load time lets
// the GPU vertex layout drop the 4th tangent (handedness) component
// entirely instead of carrying it through to the shader.
func NewVertex(position math.Vec3, texCoords math.Vec2, normal math.Vec3, tangent math.Vec4) Vertex {
	t := math.Vec3{X: tangent.X, Y: tangent.Y, Z: tangent.Z}
	bitangent := normal.Cross(t).MulScalar(tangent.W)
	return Vertex{
		Position:  position,
		TexCoords: texCoords,
		Normal:    normal,
		Tangent:   t,
		Bitangent: bitangent,
	}
}

// Mesh is four integers pointing into the store's global vertex/index
// arrays: never a self-contained buffer. vertex_offset/index_offset are
// absolute offsets into the monotonically-growing global arrays;
// vertex_count/index_count bound the slice. Every index value inside a mesh
// is local (< vertex_count); the renderer supplies base_vertex at draw time.
type Mesh struct {
	VertexOffset uint32
	VertexCount  uint32
	IndexOffset  uint32
	IndexCount   uint32
}

// meshRegistry accumulates the global vertex/index arrays and the dense
// Mesh table, deduplicating by the caller-supplied stable name (canonical
// model path + primitive index).
type meshRegistry struct {
	vertices []Vertex
	indices  []uint32
	arena    *arena[Mesh]
}

func newMeshRegistry() *meshRegistry {
	return &meshRegistry{arena: newArena[Mesh]()}
}

// push inserts a mesh's flattened vertex/index data under name, returning
// the existing MeshId unchanged if name was already present.
func (r *meshRegistry) push(name string, vertices []Vertex, indices []uint32) MeshId {
	if id, ok := r.arena.lookup(name); ok {
		return MeshId(id)
	}

	vertexOffset := uint32(len(r.vertices))
	indexOffset := uint32(len(r.indices))

	mesh := Mesh{
		VertexOffset: vertexOffset,
		VertexCount:  uint32(len(vertices)),
		IndexOffset:  indexOffset,
		IndexCount:   uint32(len(indices)),
	}
	id, _ := r.arena.push(name, mesh)
	r.vertices = append(r.vertices, vertices...)
	r.indices = append(r.indices, indices...)

	return MeshId(id)
}

func (r *meshRegistry) mesh(id MeshId) Mesh {
	return r.arena.get(int(id))
}

func (r *meshRegistry) len() int {
	return r.arena.len()
}
