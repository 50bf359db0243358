package render

import (
	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/world"
)

// Batch is one run of instances sharing a MeshId, in first-seen order.
// PreCullCount is how many instances were assigned to the batch before
// culling; the compute pass increments a separate, GPU-side counter from
// zero up to at most PreCullCount.
type Batch struct {
	MeshId       assets.MeshId
	PreCullCount uint32
}

// CullingInfo is the per-instance record the culling compute stage reads
// to know which batch (and therefore which bounding box and draw command)
// an instance belongs to.
type CullingInfo struct {
	BatchId uint32
}

// FrameAssembly is the per-frame CPU-side assembly stage's output: parallel
// per-instance vectors plus the compacted batch list, built from exactly
// one pass over the render world's drawables.
type FrameAssembly struct {
	InstanceTransforms [][16]float32
	InstanceMaterials  []uint32
	InstanceCulling    []CullingInfo
	Batches            []Batch
}

// Assemble iterates rw.Drawables exactly once, producing the three parallel
// per-instance vectors (transforms, materials, culling info) plus the batch
// list. Batch order is first-appearance
// order in the map iteration — not guaranteed stable across calls since Go
// map iteration order is randomized, unlike a real archetype-stable ECS
// iteration; callers that need frame-to-frame batch order stability must
// sort rw.Drawables by EntityID before calling Assemble (see
// AssembleOrdered).
func Assemble(rw *world.RenderWorld) FrameAssembly {
	ids := make([]world.EntityID, 0, len(rw.Drawables))
	for id := range rw.Drawables {
		ids = append(ids, id)
	}
	return AssembleOrdered(rw, ids)
}

// AssembleOrdered runs the same per-frame assembly as Assemble but visits
// entities in the caller-supplied order, so batch first-appearance order is
// reproducible. order must list exactly the entities to assemble; entities
// in rw.Drawables absent from order are skipped.
func AssembleOrdered(rw *world.RenderWorld, order []world.EntityID) FrameAssembly {
	batchIndex := make(map[assets.MeshId]int)
	var out FrameAssembly

	for _, id := range order {
		entity, ok := rw.Drawables[id]
		if !ok {
			continue
		}

		idx, seen := batchIndex[entity.Mesh.MeshId]
		if !seen {
			idx = len(out.Batches)
			batchIndex[entity.Mesh.MeshId] = idx
			out.Batches = append(out.Batches, Batch{MeshId: entity.Mesh.MeshId})
		}
		out.Batches[idx].PreCullCount++

		out.InstanceTransforms = append(out.InstanceTransforms, entity.GlobalTransform.Data)
		out.InstanceMaterials = append(out.InstanceMaterials, entity.Material.MaterialId)
		out.InstanceCulling = append(out.InstanceCulling, CullingInfo{BatchId: uint32(idx)})
	}

	return out
}

// InstanceCount is the N the culling compute dispatch and indirect-draw
// buffers are sized to.
func (a FrameAssembly) InstanceCount() uint32 {
	return uint32(len(a.InstanceTransforms))
}
