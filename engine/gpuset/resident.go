// Package gpuset creates the immutable GPU-side mirror of an asset store:
// one vertex buffer, one index buffer, one material buffer, one
// bounding-box buffer, and one texture array per TextureArrayKind. Created
// once at scene load; the render thread only ever reads these resources.
package gpuset

import (
	"fmt"
	stdmath "math"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/core"
	"github.com/kestrelgfx/vex/engine/math"
	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
)

// ResidentSet is the frozen GPU mirror of an AssetStore, shared by
// reference for the scene's lifetime.
type ResidentSet struct {
	Vertices     *vkn.VulkanBuffer
	Indices      *vkn.VulkanBuffer
	Materials    *vkn.VulkanBuffer
	BoundingBoxes *vkn.VulkanBuffer

	// Textures holds one image per TextureArrayKind, keyed by kind, always
	// created even for kinds with zero loaded layers (layer count
	// floored to 1, per the boundary behavior every empty array must still
	// produce a valid texture view).
	Textures map[assets.TextureArrayKind]*vkn.VulkanImage
}

func formatOf(kind assets.TextureArrayKind) vk.Format {
	switch {
	case kind >= assets.BC5Unorm512 && kind <= assets.BC5Unorm4096:
		return vk.FormatBc5UnormBlock
	case kind >= assets.BC7Unorm512 && kind <= assets.BC7Unorm4096:
		return vk.FormatBc7UnormBlock
	case kind >= assets.BC7Srgb512 && kind <= assets.BC7Srgb4096:
		return vk.FormatBc7SrgbBlock
	default: // assets.NoMipBC6HSfloat1024
		return vk.FormatBc6HSfloatBlock
	}
}

// Create builds the full resident set from store's current contents.
func Create(context *vkn.VulkanContext, pool vk.CommandPool, queue vk.Queue, store *assets.AssetStore) (*ResidentSet, error) {
	vertexBytes := vertexSliceBytes(store.Vertices())
	indexBytes := uint32SliceBytes(store.Indices())

	vertices, err := uploadBuffer(context, pool, queue, vertexBytes, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageStorageBufferBit|vk.BufferUsageTransferDstBit))
	if err != nil {
		return nil, fmt.Errorf("vertex buffer: %w", err)
	}
	indices, err := uploadBuffer(context, pool, queue, indexBytes, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageStorageBufferBit|vk.BufferUsageTransferDstBit))
	if err != nil {
		return nil, fmt.Errorf("index buffer: %w", err)
	}

	materialBytes := materialSliceBytes(store, materialCount(store))
	materials, err := uploadBuffer(context, pool, queue, materialBytes, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageTransferDstBit))
	if err != nil {
		return nil, fmt.Errorf("material buffer: %w", err)
	}

	boundingBoxBytes := boundingBoxSliceBytes(store)
	boundingBoxes, err := uploadBuffer(context, pool, queue, boundingBoxBytes, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageTransferDstBit))
	if err != nil {
		return nil, fmt.Errorf("bounding box buffer: %w", err)
	}

	set := &ResidentSet{
		Vertices:      vertices,
		Indices:       indices,
		Materials:     materials,
		BoundingBoxes: boundingBoxes,
		Textures:      make(map[assets.TextureArrayKind]*vkn.VulkanImage, len(assets.AllKinds())),
	}

	for _, kind := range assets.AllKinds() {
		img, err := createTextureArray(context, pool, queue, store, kind)
		if err != nil {
			return nil, fmt.Errorf("texture array %s: %w", kind, err)
		}
		set.Textures[kind] = img
	}

	return set, nil
}

func materialCount(store *assets.AssetStore) int {
	return store.MaterialCount()
}

func materialSliceBytes(store *assets.AssetStore, count int) []byte {
	// Material is three (kind, id) pairs, each packed as 2 uint32 for GPU
	// consumption: 24 bytes per material.
	out := make([]byte, count*24)
	for i := 0; i < count; i++ {
		m := store.Material(assets.MaterialId(i))
		putU32(out, i*24+0, uint32(m.BaseColorArray))
		putU32(out, i*24+4, m.BaseColorId)
		putU32(out, i*24+8, uint32(m.NormalArray))
		putU32(out, i*24+12, m.NormalId)
		putU32(out, i*24+16, uint32(m.MetallicRoughnessArray))
		putU32(out, i*24+20, m.MetallicRoughnessId)
	}
	return out
}

// boundingBoxSliceBytes computes one local-space AABB per mesh from its
// vertex range, in the same 32-byte padded layout as math.BoundingBox, so
// the culling compute shader can index it directly by mesh id.
func boundingBoxSliceBytes(store *assets.AssetStore) []byte {
	count := store.MeshCount()
	out := make([]byte, count*32)
	vertices := store.Vertices()

	for i := 0; i < count; i++ {
		mesh := store.Mesh(assets.MeshId(i))
		min := vertices[mesh.VertexOffset].Position
		max := min
		for v := uint32(1); v < mesh.VertexCount; v++ {
			p := vertices[mesh.VertexOffset+v].Position
			min = componentMin(min, p)
			max = componentMax(max, p)
		}
		box := math.NewBoundingBox(min, max)
		base := i * 32
		putF32(out, base+0, box.Min.X)
		putF32(out, base+4, box.Min.Y)
		putF32(out, base+8, box.Min.Z)
		putF32(out, base+16, box.Max.X)
		putF32(out, base+20, box.Max.Y)
		putF32(out, base+24, box.Max.Z)
	}
	return out
}

func componentMin(a, b math.Vec3) math.Vec3 {
	return math.Vec3{X: minF(a.X, b.X), Y: minF(a.Y, b.Y), Z: minF(a.Z, b.Z)}
}

func componentMax(a, b math.Vec3) math.Vec3 {
	return math.Vec3{X: maxF(a.X, b.X), Y: maxF(a.Y, b.Y), Z: maxF(a.Z, b.Z)}
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func putF32(b []byte, offset int, v float32) {
	bits := stdmath.Float32bits(v)
	b[offset+0] = byte(bits)
	b[offset+1] = byte(bits >> 8)
	b[offset+2] = byte(bits >> 16)
	b[offset+3] = byte(bits >> 24)
}

func putU32(b []byte, offset int, v uint32) {
	b[offset+0] = byte(v)
	b[offset+1] = byte(v >> 8)
	b[offset+2] = byte(v >> 16)
	b[offset+3] = byte(v >> 24)
}

func vertexSliceBytes(vertices []assets.Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	const stride = 56 // 14 float32 attributes
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*stride)
}

func uint32SliceBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

// uploadBuffer creates a device-local buffer sized to data (or 4 bytes if
// data is empty, since zero-sized buffers are invalid) and populates it via
// a host-visible staging buffer and a one-time transfer command.
func uploadBuffer(context *vkn.VulkanContext, pool vk.CommandPool, queue vk.Queue, data []byte, usage vk.BufferUsageFlags) (*vkn.VulkanBuffer, error) {
	size := uint64(len(data))
	if size == 0 {
		size = 4
	}

	staging, err := vkn.BufferCreate(context, size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)
	if len(data) > 0 {
		if err := staging.LoadData(context, 0, size, data); err != nil {
			return nil, err
		}
	}

	dst, err := vkn.BufferCreate(context, size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	cb, err := vkn.AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return nil, err
	}
	region := vk.BufferCopy{SrcOffset: 0, DstOffset: 0, Size: vk.DeviceSize(size)}
	vk.CmdCopyBuffer(cb.Handle, staging.Handle, dst.Handle, 1, []vk.BufferCopy{region})
	if err := cb.EndSingleUse(context, pool, queue); err != nil {
		return nil, err
	}

	return dst, nil
}

func createTextureArray(context *vkn.VulkanContext, pool vk.CommandPool, queue vk.Queue, store *assets.AssetStore, kind assets.TextureArrayKind) (*vkn.VulkanImage, error) {
	dim := kind.Dimension()
	mipCount := kind.MipLevelCount()
	textureMap := store.Textures.Map(kind)
	layerCount := textureMap.LayerCount()
	if layerCount == 0 {
		layerCount = 1
	}

	format := formatOf(kind)

	var image vk.Image
	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent:    vk.Extent3D{Width: dim, Height: dim, Depth: 1},
		MipLevels:   mipCount,
		ArrayLayers: layerCount,
		Format:      format,
		Tiling:      vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		Samples:     vk.SampleCount1Bit,
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateImage(context.Device.LogicalDevice, &createInfo, context.Allocator, &image); res != vk.Success {
		return nil, fmt.Errorf("create image")
	}

	requirements := vk.MemoryRequirements{}
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image, &requirements)
	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryType == -1 {
		return nil, fmt.Errorf("no device-local memory type for texture array %s", kind)
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		return nil, fmt.Errorf("allocate image memory")
	}
	if res := vk.BindImageMemory(context.Device.LogicalDevice, image, memory, 0); res != vk.Success {
		return nil, fmt.Errorf("bind image memory")
	}

	out := &vkn.VulkanImage{Handle: image, Memory: memory, Width: dim, Height: dim}

	cb, err := vkn.AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return nil, err
	}
	transitionImageLayout(cb.Handle, image, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, mipCount, layerCount)

	if textureMap.LayerCount() > 0 {
		if err := uploadMips(context, cb.Handle, pool, queue, image, textureMap, mipCount, dim); err != nil {
			return nil, err
		}
	}

	transitionImageLayout(cb.Handle, image, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, mipCount, layerCount)
	if err := cb.EndSingleUse(context, pool, queue); err != nil {
		return nil, err
	}

	if err := out.ImageViewCreate(context, format, vk.ImageAspectFlags(vk.ImageAspectColorBit)); err != nil {
		return nil, err
	}

	return out, nil
}

func transitionImageLayout(cmd vk.CommandBuffer, image vk.Image, oldLayout, newLayout vk.ImageLayout, mipCount, layerCount uint32) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     mipCount,
			BaseArrayLayer: 0,
			LayerCount:     layerCount,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	if oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal {
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	} else {
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	}

	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// uploadMips stages and copies every (layer, mip) payload into image. Each
// level's byte layout is dictated by the block-compression floor:
// bytes_per_row = 16 * (dim_at_level/4), rows_per_image = dim_at_level/4,
// dim_at_level = max(4, dim >> level).
func uploadMips(context *vkn.VulkanContext, cmd vk.CommandBuffer, pool vk.CommandPool, queue vk.Queue, image vk.Image, textureMap *assets.TextureMap, mipCount, dim uint32) error {
	layerCount := textureMap.LayerCount()

	var regions []vk.BufferImageCopy
	var payload []byte

	for layer := uint32(0); layer < layerCount; layer++ {
		for level := uint32(0); level < mipCount; level++ {
			data, err := textureMap.Get(layer, level)
			if err != nil {
				return err
			}
			dimAtLevel := dim >> level
			if dimAtLevel < 4 {
				dimAtLevel = 4
			}
			offset := uint64(len(payload))
			payload = append(payload, data...)

			regions = append(regions, vk.BufferImageCopy{
				BufferOffset:      vk.DeviceSize(offset),
				BufferRowLength:   0,
				BufferImageHeight: 0,
				ImageSubresource: vk.ImageSubresourceLayers{
					AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:       level,
					BaseArrayLayer: layer,
					LayerCount:     1,
				},
				ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: vk.Extent3D{Width: dimAtLevel, Height: dimAtLevel, Depth: 1},
			})
		}
	}

	if len(payload) == 0 {
		return nil
	}

	staging, err := vkn.BufferCreate(context, uint64(len(payload)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer staging.Destroy(context)
	if err := staging.LoadData(context, 0, uint64(len(payload)), payload); err != nil {
		return err
	}

	vk.CmdCopyBufferToImage(cmd, staging.Handle, image, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
	return nil
}

// CubemapView builds a VK_IMAGE_VIEW_TYPE_CUBE view over six consecutive
// layers of the texture array backing cubemap.Kind, for the skybox pipeline
// to sample. Requires cubemap.LayerIds to be six consecutive ascending
// indices (true whenever the cubemap's faces are the first six textures
// loaded into that kind's array, the expected scene-setup order: load the
// skybox cubemap before anything else that shares its compression kind).
func (s *ResidentSet) CubemapView(context *vkn.VulkanContext, cubemap assets.Cubemap) (vk.ImageView, error) {
	base := cubemap.LayerIds[0]
	for i, id := range cubemap.LayerIds {
		if id != base+uint32(i) {
			return nil, fmt.Errorf("cubemap layers are not six consecutive indices: %v", cubemap.LayerIds)
		}
	}

	image := s.Textures[cubemap.Kind]
	if image == nil {
		return nil, fmt.Errorf("no resident texture array for kind %s", cubemap.Kind)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: vk.ImageViewTypeCube,
		Format:   formatOf(cubemap.Kind),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount:     cubemap.Kind.MipLevelCount(),
			BaseArrayLayer: base,
			LayerCount:     6,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		return nil, fmt.Errorf("create cubemap view")
	}
	return view, nil
}

func (s *ResidentSet) Destroy(context *vkn.VulkanContext) {
	for _, img := range s.Textures {
		img.ImageDestroy(context)
	}
	if s.BoundingBoxes != nil {
		s.BoundingBoxes.Destroy(context)
	}
	if s.Materials != nil {
		s.Materials.Destroy(context)
	}
	if s.Indices != nil {
		s.Indices.Destroy(context)
	}
	if s.Vertices != nil {
		s.Vertices.Destroy(context)
	}
	core.LogDebug("resident set destroyed")
}
