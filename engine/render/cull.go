package render

import (
	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/math"
)

// CullVisible is the CPU-side equivalent of the GPU compute dispatch: per
// instance, transform the owning batch's mesh bounding box by the
// instance's own world transform and test it against frustum. It mutates
// commands in place (incrementing InstanceCount, mirroring the atomic
// increment the real compute shader performs) and returns the
// indirect_instances buffer contents. The SPIR-V compute shader (out of
// scope to author here) must produce the same result; tests run against
// this function, not against GPU output.
func CullVisible(frustum math.Frustum, assembly FrameAssembly, boundingBoxes map[assets.MeshId]math.BoundingBox, commands []DrawIndexedIndirectArgs) []uint32 {
	n := assembly.InstanceCount()
	indirectInstances := make([]uint32, n)

	for i := uint32(0); i < n; i++ {
		batchId := assembly.InstanceCulling[i].BatchId
		batch := assembly.Batches[batchId]
		localBox := boundingBoxes[batch.MeshId]
		transform := math.Mat4{Data: assembly.InstanceTransforms[i]}
		worldBox := math.TransformBoundingBox(localBox, transform)

		if !frustum.Intersects(worldBox) {
			continue
		}

		cmd := &commands[batchId]
		slot := cmd.FirstInstance + cmd.InstanceCount
		indirectInstances[slot] = i
		cmd.InstanceCount++
	}

	return indirectInstances
}
