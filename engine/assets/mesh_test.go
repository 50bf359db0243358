package assets

import (
	"testing"

	"github.com/kestrelgfx/vex/engine/math"
)

func sampleVertices(n int) []Vertex {
	vs := make([]Vertex, n)
	for i := range vs {
		vs[i] = NewVertex(
			math.Vec3{X: float32(i), Y: 0, Z: 0},
			math.Vec2{X: 0, Y: 0},
			math.Vec3{X: 0, Y: 1, Z: 0},
			math.Vec4{X: 1, Y: 0, Z: 0, W: 1},
		)
	}
	return vs
}

func TestMeshRegistryDedup(t *testing.T) {
	r := newMeshRegistry()
	verts := sampleVertices(3)
	indices := []uint32{0, 1, 2}

	id1 := r.push("model.gltf#mesh0#prim0", verts, indices)
	id2 := r.push("model.gltf#mesh0#prim0", verts, indices)
	if id1 != id2 {
		t.Fatalf("re-insertion changed id: %d != %d", id1, id2)
	}
	if r.len() != 1 {
		t.Fatalf("expected 1 mesh after dedup, got %d", r.len())
	}
}

func TestMeshRegistryOffsetsStayInBounds(t *testing.T) {
	r := newMeshRegistry()
	id0 := r.push("a#0", sampleVertices(3), []uint32{0, 1, 2})
	id1 := r.push("a#1", sampleVertices(4), []uint32{0, 1, 2, 0})

	for _, id := range []MeshId{id0, id1} {
		m := r.mesh(id)
		if m.VertexOffset+m.VertexCount > uint32(len(r.vertices)) {
			t.Fatalf("mesh %d vertex range exceeds global array: %+v", id, m)
		}
		if m.IndexOffset+m.IndexCount > uint32(len(r.indices)) {
			t.Fatalf("mesh %d index range exceeds global array: %+v", id, m)
		}
		for i := uint32(0); i < m.IndexCount; i++ {
			if r.indices[m.IndexOffset+i] >= m.VertexCount {
				t.Fatalf("mesh %d index %d out of local vertex range (%d)", id, r.indices[m.IndexOffset+i], m.VertexCount)
			}
		}
	}
}

func TestNewVertexBitangent(t *testing.T) {
	v := NewVertex(
		math.Vec3{X: 0, Y: 0, Z: 0},
		math.Vec2{X: 0, Y: 0},
		math.Vec3{X: 0, Y: 0, Z: 1},
		math.Vec4{X: 1, Y: 0, Z: 0, W: 1},
	)
	want := math.Vec3{X: 0, Y: 1, Z: 0}
	if v.Bitangent != want {
		t.Fatalf("bitangent = %+v, want %+v", v.Bitangent, want)
	}
}
