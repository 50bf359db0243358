package render

import (
	"testing"

	"github.com/kestrelgfx/vex/engine/world"
)

func TestAssembleOrderedBatchesByFirstAppearance(t *testing.T) {
	rw := world.NewRenderWorld()
	rw.Drawables[0] = world.ExtractedEntity{Mesh: world.Mesh{MeshId: 5}, Material: world.Material{MaterialId: 1}}
	rw.Drawables[1] = world.ExtractedEntity{Mesh: world.Mesh{MeshId: 9}, Material: world.Material{MaterialId: 2}}
	rw.Drawables[2] = world.ExtractedEntity{Mesh: world.Mesh{MeshId: 5}, Material: world.Material{MaterialId: 3}}

	order := []world.EntityID{0, 1, 2}
	out := AssembleOrdered(rw, order)

	if len(out.Batches) != 2 {
		t.Fatalf("batch count = %d, want 2", len(out.Batches))
	}
	if out.Batches[0].MeshId != 5 || out.Batches[0].PreCullCount != 2 {
		t.Fatalf("batch 0 = %+v, want mesh 5 count 2", out.Batches[0])
	}
	if out.Batches[1].MeshId != 9 || out.Batches[1].PreCullCount != 1 {
		t.Fatalf("batch 1 = %+v, want mesh 9 count 1", out.Batches[1])
	}

	wantCulling := []CullingInfo{{BatchId: 0}, {BatchId: 1}, {BatchId: 0}}
	for i, c := range wantCulling {
		if out.InstanceCulling[i] != c {
			t.Fatalf("InstanceCulling[%d] = %+v, want %+v", i, out.InstanceCulling[i], c)
		}
	}
	if out.InstanceCount() != 3 {
		t.Fatalf("InstanceCount() = %d, want 3", out.InstanceCount())
	}
}

func TestAssembleOrderedSkipsEntitiesNotInDrawables(t *testing.T) {
	rw := world.NewRenderWorld()
	rw.Drawables[0] = world.ExtractedEntity{Mesh: world.Mesh{MeshId: 1}}

	out := AssembleOrdered(rw, []world.EntityID{0, 99})
	if out.InstanceCount() != 1 {
		t.Fatalf("InstanceCount() = %d, want 1", out.InstanceCount())
	}
}
