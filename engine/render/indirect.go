package render

import "github.com/kestrelgfx/vex/engine/assets"

// DrawIndexedIndirectArgs mirrors VkDrawIndexedIndirectCommand's field
// order exactly, so a slice of these can be uploaded byte-for-byte into
// the indirect command buffer.
type DrawIndexedIndirectArgs struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// MeshSource resolves a mesh range by id. assets.AssetStore satisfies this;
// it is declared separately here so this package's tests can supply a bare
// lookup without constructing a whole AssetStore from real model files.
type MeshSource interface {
	Mesh(id assets.MeshId) assets.Mesh
}

// BuildIndirectCommands emits one DrawIndexedIndirectArgs per batch.
// InstanceCount is left at zero: the culling compute stage increments it
// atomically per visible instance. FirstInstance is the running total of
// pre-cull instances before this batch, partitioning the
// indirect_instances buffer into one contiguous range per batch.
func BuildIndirectCommands(batches []Batch, meshes MeshSource) []DrawIndexedIndirectArgs {
	commands := make([]DrawIndexedIndirectArgs, len(batches))
	var firstInstance uint32
	for i, batch := range batches {
		mesh := meshes.Mesh(batch.MeshId)
		commands[i] = DrawIndexedIndirectArgs{
			IndexCount:    mesh.IndexCount,
			InstanceCount: 0,
			FirstIndex:    mesh.IndexOffset,
			BaseVertex:    int32(mesh.VertexOffset),
			FirstInstance: firstInstance,
		}
		firstInstance += batch.PreCullCount
	}
	return commands
}
