package render

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/gpuset"
	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
)

// cameraUniform is group 0 binding 0's payload.
type cameraUniform struct {
	ViewProjection [16]float32
}

// PbrPipeline draws every opaque batch with bindless material sampling
// (group 1) and a fixed ambient+point lights term (group 2). Group 0 holds
// the per-frame camera uniform plus the instance transform/material and
// indirect-instance storage buffers the culling pass already wrote.
type PbrPipeline struct {
	context *vkn.VulkanContext

	frameLayout    vk.DescriptorSetLayout // group 0
	bindlessLayout vk.DescriptorSetLayout // group 1
	lightsLayout   vk.DescriptorSetLayout // group 2

	layout   vk.PipelineLayout
	pipeline vk.Pipeline
	vertex   vk.ShaderModule
	fragment vk.ShaderModule

	pool         vk.DescriptorPool
	frameSet     vk.DescriptorSet
	bindlessSet  vk.DescriptorSet
	lightsSet    vk.DescriptorSet

	cameraBuffer *vkn.VulkanBuffer
	lightsBuffer *vkn.VulkanBuffer

	baseColorSampler vk.Sampler
	normalSampler    vk.Sampler
}

// lightsUniformSize is ambient (color vec3 + intensity float = 16 bytes) plus
// MaxPointLights entries of (position vec3 + intensity float, color vec3 +
// radius float) = 32 bytes each, plus a trailing uint32 length (padded to 16).
const lightsUniformSize = 16 + 32*16 + 16

func NewPbrPipeline(context *vkn.VulkanContext, store *assets.AssetStore, resident *gpuset.ResidentSet, vertexShaderPath, fragmentShaderPath string, colorFormat, depthFormat vk.Format, sampleCount vk.SampleCountFlagBits) (*PbrPipeline, error) {
	vertex, err := vkn.ShaderModuleCreate(context, vertexShaderPath)
	if err != nil {
		return nil, fmt.Errorf("pbr vertex shader: %w", err)
	}
	fragment, err := vkn.ShaderModuleCreate(context, fragmentShaderPath)
	if err != nil {
		return nil, fmt.Errorf("pbr fragment shader: %w", err)
	}

	graphicsStages := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)
	fragmentOnly := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

	frameBindings := []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: graphicsStages},
		{Binding: 1, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit)},
		{Binding: 2, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit)},
		{Binding: 3, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit)},
	}
	frameLayout, err := vkn.DescriptorSetLayoutCreate(context, frameBindings)
	if err != nil {
		return nil, err
	}

	kinds := assets.AllKinds()
	bindlessBindings := make([]vk.DescriptorSetLayoutBinding, 0, 2+len(kinds))
	bindlessBindings = append(bindlessBindings,
		vk.DescriptorSetLayoutBinding{Binding: 0, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: fragmentOnly},
		vk.DescriptorSetLayoutBinding{Binding: 1, DescriptorType: vk.DescriptorTypeSampler, DescriptorCount: 1, StageFlags: fragmentOnly},
		vk.DescriptorSetLayoutBinding{Binding: 2, DescriptorType: vk.DescriptorTypeSampler, DescriptorCount: 1, StageFlags: fragmentOnly},
	)
	for i := range kinds {
		bindlessBindings = append(bindlessBindings, vk.DescriptorSetLayoutBinding{
			Binding: uint32(3 + i), DescriptorType: vk.DescriptorTypeSampledImage, DescriptorCount: 1, StageFlags: fragmentOnly,
		})
	}
	bindlessLayout, err := vkn.DescriptorSetLayoutCreate(context, bindlessBindings)
	if err != nil {
		return nil, err
	}

	lightsBindings := []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: fragmentOnly},
	}
	lightsLayout, err := vkn.DescriptorSetLayoutCreate(context, lightsBindings)
	if err != nil {
		return nil, err
	}

	layout, err := vkn.PipelineLayoutCreate(context, []vk.DescriptorSetLayout{frameLayout, bindlessLayout, lightsLayout}, nil)
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
		CullMode:         vk.CullModeBackBit,
		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   vk.CompareOpLess,
		BlendEnable:      true,
	})
	if err != nil {
		return nil, err
	}

	pool, err := vkn.DescriptorPoolCreate(context, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 4},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: 2},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: uint32(len(kinds))},
	}, 3)
	if err != nil {
		return nil, err
	}

	frameSet, err := vkn.DescriptorSetAllocate(context, pool, frameLayout)
	if err != nil {
		return nil, err
	}
	bindlessSet, err := vkn.DescriptorSetAllocate(context, pool, bindlessLayout)
	if err != nil {
		return nil, err
	}
	lightsSet, err := vkn.DescriptorSetAllocate(context, pool, lightsLayout)
	if err != nil {
		return nil, err
	}

	cameraBuffer, err := vkn.BufferCreate(context, 16*4,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	lightsBuffer, err := vkn.BufferCreate(context, lightsUniformSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	vkn.DescriptorSetWriteBuffer(context, frameSet, 0, vk.DescriptorTypeUniformBuffer, cameraBuffer.Handle, cameraBuffer.Size)
	vkn.DescriptorSetWriteBuffer(context, lightsSet, 0, vk.DescriptorTypeUniformBuffer, lightsBuffer.Handle, lightsBuffer.Size)

	baseColorSampler, err := samplerCreate(context, vk.FilterLinear, vk.SamplerMipmapModeLinear)
	if err != nil {
		return nil, err
	}
	normalSampler, err := samplerCreate(context, vk.FilterLinear, vk.SamplerMipmapModeLinear)
	if err != nil {
		return nil, err
	}
	vkn.DescriptorSetWriteImage(context, bindlessSet, 1, vk.DescriptorTypeSampler, nil, baseColorSampler, vk.ImageLayoutUndefined)
	vkn.DescriptorSetWriteImage(context, bindlessSet, 2, vk.DescriptorTypeSampler, nil, normalSampler, vk.ImageLayoutUndefined)

	vkn.DescriptorSetWriteBuffer(context, bindlessSet, 0, vk.DescriptorTypeStorageBuffer, resident.Materials.Handle, resident.Materials.Size)
	for i, kind := range kinds {
		img := resident.Textures[kind]
		if img == nil {
			continue
		}
		vkn.DescriptorSetWriteImage(context, bindlessSet, uint32(3+i), vk.DescriptorTypeSampledImage, img.View, nil, vk.ImageLayoutShaderReadOnlyOptimal)
	}

	return &PbrPipeline{
		context:          context,
		frameLayout:      frameLayout,
		bindlessLayout:   bindlessLayout,
		lightsLayout:     lightsLayout,
		layout:           layout,
		pipeline:         pipeline,
		vertex:           vertex,
		fragment:         fragment,
		pool:             pool,
		frameSet:         frameSet,
		bindlessSet:      bindlessSet,
		lightsSet:        lightsSet,
		cameraBuffer:     cameraBuffer,
		lightsBuffer:     lightsBuffer,
		baseColorSampler: baseColorSampler,
		normalSampler:    normalSampler,
	}, nil
}

// BindFrameBuffers points group 0's storage bindings at this frame's
// instance buffers (instance transforms, instance materials, the culling
// pass's indirect instance indirection buffer).
func (p *PbrPipeline) BindFrameBuffers(instanceTransforms, instanceMaterials, indirectInstances *vkn.VulkanBuffer) {
	vkn.DescriptorSetWriteBuffer(p.context, p.frameSet, 1, vk.DescriptorTypeStorageBuffer, instanceTransforms.Handle, instanceTransforms.Size)
	vkn.DescriptorSetWriteBuffer(p.context, p.frameSet, 2, vk.DescriptorTypeStorageBuffer, instanceMaterials.Handle, instanceMaterials.Size)
	vkn.DescriptorSetWriteBuffer(p.context, p.frameSet, 3, vk.DescriptorTypeStorageBuffer, indirectInstances.Handle, indirectInstances.Size)
}

// UploadCamera updates the group 0 camera uniform for the current frame.
func (p *PbrPipeline) UploadCamera(viewProjection [16]float32) error {
	var buf [64]byte
	for i, v := range viewProjection {
		putFloat32(buf[:], i*4, v)
	}
	return p.cameraBuffer.LoadData(p.context, 0, uint64(len(buf)), buf[:])
}

// Draw records vertex/index buffer binds, descriptor set binds, and the
// multi-draw-indexed-indirect call over commands, which must already carry
// per-batch InstanceCount from the culling pass.
func (p *PbrPipeline) Draw(cmd vk.CommandBuffer, resident *gpuset.ResidentSet, commandsBuffer *vkn.VulkanBuffer, commandCount uint32, stride uint32) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, p.pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, p.layout, 0, 3,
		[]vk.DescriptorSet{p.frameSet, p.bindlessSet, p.lightsSet}, 0, nil)

	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{resident.Vertices.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cmd, resident.Indices.Handle, 0, vk.IndexTypeUint32)

	vk.CmdDrawIndexedIndirect(cmd, commandsBuffer.Handle, 0, commandCount, stride)
}

func (p *PbrPipeline) Destroy() {
	vk.DestroySampler(p.context.Device.LogicalDevice, p.baseColorSampler, p.context.Allocator)
	vk.DestroySampler(p.context.Device.LogicalDevice, p.normalSampler, p.context.Allocator)
	p.cameraBuffer.Destroy(p.context)
	p.lightsBuffer.Destroy(p.context)
	vkn.DescriptorPoolDestroy(p.context, p.pool)
	vkn.PipelineDestroy(p.context, p.pipeline)
	vkn.PipelineLayoutDestroy(p.context, p.layout)
	vkn.DescriptorSetLayoutDestroy(p.context, p.frameLayout)
	vkn.DescriptorSetLayoutDestroy(p.context, p.bindlessLayout)
	vkn.DescriptorSetLayoutDestroy(p.context, p.lightsLayout)
	vkn.ShaderModuleDestroy(p.context, p.vertex)
	vkn.ShaderModuleDestroy(p.context, p.fragment)
}

func samplerCreate(context *vkn.VulkanContext, filter vk.Filter, mipmapMode vk.SamplerMipmapMode) (vk.Sampler, error) {
	createInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapMode:   mipmapMode,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		MaxLod:       1000.0,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &createInfo, context.Allocator, &sampler); res != vk.Success {
		return nil, fmt.Errorf("failed to create sampler")
	}
	return sampler, nil
}
