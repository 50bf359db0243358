package render

import (
	"fmt"

	vk "github.com/goki/vulkan"

	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
)

// SkyboxPipeline draws a full-screen quad (two triangles) that samples the HDR cubemap
// through the inverse view-projection matrix, behind every opaque fragment
// (depth_compare LessEqual, no depth write, no culling, no blend) so it
// only shows through pixels the PBR pass left untouched.
type SkyboxPipeline struct {
	context *vkn.VulkanContext

	setLayout vk.DescriptorSetLayout
	layout    vk.PipelineLayout
	pipeline  vk.Pipeline
	vertex    vk.ShaderModule
	fragment  vk.ShaderModule

	pool vk.DescriptorPool
	set  vk.DescriptorSet

	inverseViewProjection *vkn.VulkanBuffer
	sampler               vk.Sampler
}

// cubemapView is a VK_IMAGE_VIEW_TYPE_CUBE view into the resident texture
// array backing the skybox's compression kind (see
// gpuset.ResidentSet.CubemapView); SkyboxPipeline samples it but does not
// own or destroy it.
func NewSkyboxPipeline(context *vkn.VulkanContext, cubemapView vk.ImageView, vertexShaderPath, fragmentShaderPath string, colorFormat, depthFormat vk.Format, sampleCount vk.SampleCountFlagBits) (*SkyboxPipeline, error) {
	vertex, err := vkn.ShaderModuleCreate(context, vertexShaderPath)
	if err != nil {
		return nil, fmt.Errorf("skybox vertex shader: %w", err)
	}
	fragment, err := vkn.ShaderModuleCreate(context, fragmentShaderPath)
	if err != nil {
		return nil, fmt.Errorf("skybox fragment shader: %w", err)
	}

	fragmentOnly := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: fragmentOnly},
		{Binding: 1, DescriptorType: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1, StageFlags: fragmentOnly},
	}
	setLayout, err := vkn.DescriptorSetLayoutCreate(context, bindings)
	if err != nil {
		return nil, err
	}

	layout, err := vkn.PipelineLayoutCreate(context, []vk.DescriptorSetLayout{setLayout}, nil)
	if err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		vkn.ShaderStageCreate(vertex, vk.ShaderStageVertexBit),
		vkn.ShaderStageCreate(fragment, vk.ShaderStageFragmentBit),
	}
	pipeline, err := vkn.GraphicsPipelineCreate(context, vkn.GraphicsPipelineConfig{
		Stages:           stages,
		Layout:           layout,
		ColorFormat:      colorFormat,
		DepthFormat:      depthFormat,
		SampleCount:      sampleCount,
		CullMode:         vk.CullModeNone,
		DepthTestEnable:  true,
		DepthWriteEnable: false,
		DepthCompareOp:   vk.CompareOpLessOrEqual,
		BlendEnable:      false,
	})
	if err != nil {
		return nil, err
	}

	pool, err := vkn.DescriptorPoolCreate(context, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1},
	}, 1)
	if err != nil {
		return nil, err
	}
	set, err := vkn.DescriptorSetAllocate(context, pool, setLayout)
	if err != nil {
		return nil, err
	}

	inverseViewProjection, err := vkn.BufferCreate(context, 16*4,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	sampler, err := samplerCreate(context, vk.FilterLinear, vk.SamplerMipmapModeLinear)
	if err != nil {
		return nil, err
	}

	vkn.DescriptorSetWriteBuffer(context, set, 0, vk.DescriptorTypeUniformBuffer, inverseViewProjection.Handle, inverseViewProjection.Size)
	vkn.DescriptorSetWriteImage(context, set, 1, vk.DescriptorTypeCombinedImageSampler, cubemapView, sampler, vk.ImageLayoutShaderReadOnlyOptimal)

	return &SkyboxPipeline{
		context:               context,
		setLayout:             setLayout,
		layout:                layout,
		pipeline:              pipeline,
		vertex:                vertex,
		fragment:              fragment,
		pool:                  pool,
		set:                   set,
		inverseViewProjection: inverseViewProjection,
		sampler:               sampler,
	}, nil
}

// UploadInverseViewProjection refreshes the matrix the fragment shader uses
// to reconstruct a world-space ray per pixel from clip-space NDC.
func (p *SkyboxPipeline) UploadInverseViewProjection(inverse [16]float32) error {
	var buf [64]byte
	for i, v := range inverse {
		putFloat32(buf[:], i*4, v)
	}
	return p.inverseViewProjection.LoadData(p.context, 0, uint64(len(buf)), buf[:])
}

// Draw records a 6-vertex non-indexed draw covering a full-screen quad as
// two triangles; the vertex shader derives clip-space position from
// gl_VertexIndex, so no vertex buffer is bound.
func (p *SkyboxPipeline) Draw(cmd vk.CommandBuffer) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, p.pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, p.layout, 0, 1, []vk.DescriptorSet{p.set}, 0, nil)
	vk.CmdDraw(cmd, 6, 1, 0, 0)
}

func (p *SkyboxPipeline) Destroy() {
	vk.DestroySampler(p.context.Device.LogicalDevice, p.sampler, p.context.Allocator)
	p.inverseViewProjection.Destroy(p.context)
	vkn.DescriptorPoolDestroy(p.context, p.pool)
	vkn.PipelineDestroy(p.context, p.pipeline)
	vkn.PipelineLayoutDestroy(p.context, p.layout)
	vkn.DescriptorSetLayoutDestroy(p.context, p.setLayout)
	vkn.ShaderModuleDestroy(p.context, p.vertex)
	vkn.ShaderModuleDestroy(p.context, p.fragment)
}
