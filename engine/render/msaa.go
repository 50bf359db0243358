package render

import (
	"fmt"

	vk "github.com/goki/vulkan"

	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
)

// MsaaSampleCount is fixed for the lifetime of the renderer; only the
// target's width/height change on resize.
const MsaaSampleCount = vk.SampleCount4Bit

// MsaaTarget is the multisampled color attachment the PBR and skybox
// passes render into; the dynamic rendering pass beginRendering opens
// resolves it onto the single-sample swapchain image. Unlike the swapchain's own depth attachment (recreated
// inside VulkanRenderer's swapchain recreation), this lives in the render
// package since dynamic rendering has no VulkanSwapchain-owned color
// attachment to piggyback on.
type MsaaTarget struct {
	context *vkn.VulkanContext
	image   vk.Image
	memory  vk.DeviceMemory
	view    vk.ImageView
	format  vk.Format
	width   uint32
	height  uint32
}

func NewMsaaTarget(context *vkn.VulkanContext, format vk.Format, width, height uint32) (*MsaaTarget, error) {
	t := &MsaaTarget{context: context, format: format}
	if err := t.create(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *MsaaTarget) create(width, height uint32) error {
	createInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        t.format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransientAttachmentBit),
		Samples:       MsaaSampleCount,
		SharingMode:   vk.SharingModeExclusive,
	}
	if res := vk.CreateImage(t.context.Device.LogicalDevice, &createInfo, t.context.Allocator, &t.image); res != vk.Success {
		return fmt.Errorf("failed to create msaa color image")
	}

	requirements := vk.MemoryRequirements{}
	vk.GetImageMemoryRequirements(t.context.Device.LogicalDevice, t.image, &requirements)
	memoryType := t.context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryType == -1 {
		return fmt.Errorf("no device-local memory type for msaa color target")
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if res := vk.AllocateMemory(t.context.Device.LogicalDevice, &allocateInfo, t.context.Allocator, &t.memory); res != vk.Success {
		return fmt.Errorf("failed to allocate msaa color memory")
	}
	if res := vk.BindImageMemory(t.context.Device.LogicalDevice, t.image, t.memory, 0); res != vk.Success {
		return fmt.Errorf("failed to bind msaa color memory")
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    t.image,
		ViewType: vk.ImageViewType2d,
		Format:   t.format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if res := vk.CreateImageView(t.context.Device.LogicalDevice, &viewInfo, t.context.Allocator, &t.view); res != vk.Success {
		return fmt.Errorf("failed to create msaa color view")
	}

	t.width, t.height = width, height
	return nil
}

func (t *MsaaTarget) View() vk.ImageView { return t.view }

func (t *MsaaTarget) destroy() {
	if t.view != nil {
		vk.DestroyImageView(t.context.Device.LogicalDevice, t.view, t.context.Allocator)
		t.view = nil
	}
	if t.memory != nil {
		vk.FreeMemory(t.context.Device.LogicalDevice, t.memory, t.context.Allocator)
		t.memory = nil
	}
	if t.image != nil {
		vk.DestroyImage(t.context.Device.LogicalDevice, t.image, t.context.Allocator)
		t.image = nil
	}
}

// Resize recreates the target at the new dimensions, a no-op if they match
// the current size. Everything else the render pipelines own (pipelines,
// bind-group layouts, the immutable bindless bind group) persists across
// resize.
func (t *MsaaTarget) Resize(width, height uint32) error {
	if width == t.width && height == t.height {
		return nil
	}
	t.destroy()
	return t.create(width, height)
}

func (t *MsaaTarget) Destroy() {
	t.destroy()
}
