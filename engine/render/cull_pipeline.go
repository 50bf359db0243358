package render

import (
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"

	"github.com/kestrelgfx/vex/engine/math"
	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
)

// cullWorkgroupSize matches the local_size_x the compute shader declares.
const cullWorkgroupSize = 64

// frustumUniform is the binding 4 payload: the 6 frustum planes, packed one
// per vec4 (normal.xyz, distance), in the Gribb/Hartmann extraction order
// math.Frustum.Planes returns them.
type frustumUniform struct {
	Planes [6][4]float32
}

// CullingPipeline owns the compute pipeline and descriptor set that perform
// GPU-side frustum culling, one dispatch per frame over the current
// frame's instance buffers. The bind group shape (six bindings: bounding
// boxes, per-instance culling info, indirect draw commands, indirect
// instances, frustum uniform, instance count uniform) is fixed at
// construction; only the buffer contents are re-uploaded per frame.
type CullingPipeline struct {
	context *vkn.VulkanContext

	setLayout vk.DescriptorSetLayout
	layout    vk.PipelineLayout
	pipeline  vk.Pipeline
	module    vk.ShaderModule

	pool vk.DescriptorPool
	set  vk.DescriptorSet

	instanceCountUniform *vkn.VulkanBuffer
	frustumUniformBuf    *vkn.VulkanBuffer
}

func culledBindings() []vk.DescriptorSetLayoutBinding {
	storage := vk.DescriptorTypeStorageBuffer
	uniform := vk.DescriptorTypeUniformBuffer
	compute := vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	mk := func(binding uint32, t vk.DescriptorType) vk.DescriptorSetLayoutBinding {
		return vk.DescriptorSetLayoutBinding{
			Binding:         binding,
			DescriptorType:  t,
			DescriptorCount: 1,
			StageFlags:      compute,
		}
	}
	return []vk.DescriptorSetLayoutBinding{
		mk(0, storage), // bounding_boxes (RO)
		mk(1, storage), // instance_culling_info (RO)
		mk(2, storage), // indirect_draw_commands (RW)
		mk(3, storage), // indirect_instances (RW)
		mk(4, uniform), // frustum
		mk(5, uniform), // instance_count
	}
}

// NewCullingPipeline compiles shaderPath (SPIR-V, expected to implement the
// same per-instance visibility test as cull.go's CullVisible) into a
// compute pipeline and allocates its descriptor set.
func NewCullingPipeline(context *vkn.VulkanContext, shaderPath string) (*CullingPipeline, error) {
	module, err := vkn.ShaderModuleCreate(context, shaderPath)
	if err != nil {
		return nil, fmt.Errorf("culling shader: %w", err)
	}

	setLayout, err := vkn.DescriptorSetLayoutCreate(context, culledBindings())
	if err != nil {
		return nil, err
	}

	layout, err := vkn.PipelineLayoutCreate(context, []vk.DescriptorSetLayout{setLayout}, nil)
	if err != nil {
		return nil, err
	}

	stage := vkn.ShaderStageCreate(module, vk.ShaderStageComputeBit)
	pipeline, err := vkn.ComputePipelineCreate(context, stage, layout)
	if err != nil {
		return nil, err
	}

	pool, err := vkn.DescriptorPoolCreate(context, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 4},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2},
	}, 1)
	if err != nil {
		return nil, err
	}

	set, err := vkn.DescriptorSetAllocate(context, pool, setLayout)
	if err != nil {
		return nil, err
	}

	instanceCountUniform, err := vkn.BufferCreate(context, 16,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	frustumBuf, err := vkn.BufferCreate(context, uint64(6*4*4),
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	vkn.DescriptorSetWriteBuffer(context, set, 4, vk.DescriptorTypeUniformBuffer, frustumBuf.Handle, frustumBuf.Size)
	vkn.DescriptorSetWriteBuffer(context, set, 5, vk.DescriptorTypeUniformBuffer, instanceCountUniform.Handle, instanceCountUniform.Size)

	return &CullingPipeline{
		context:              context,
		setLayout:            setLayout,
		layout:                layout,
		pipeline:              pipeline,
		module:                module,
		pool:                  pool,
		set:                   set,
		instanceCountUniform:  instanceCountUniform,
		frustumUniformBuf:     frustumBuf,
	}, nil
}

// BindFrameBuffers points the storage bindings at this frame's bounding
// box, culling info, indirect command, and indirect instance buffers.
// Called once per frame before Dispatch, since each frame assembles a
// differently-sized instance set.
func (p *CullingPipeline) BindFrameBuffers(boundingBoxes, cullingInfo, indirectCommands, indirectInstances *vkn.VulkanBuffer) {
	vkn.DescriptorSetWriteBuffer(p.context, p.set, 0, vk.DescriptorTypeStorageBuffer, boundingBoxes.Handle, boundingBoxes.Size)
	vkn.DescriptorSetWriteBuffer(p.context, p.set, 1, vk.DescriptorTypeStorageBuffer, cullingInfo.Handle, cullingInfo.Size)
	vkn.DescriptorSetWriteBuffer(p.context, p.set, 2, vk.DescriptorTypeStorageBuffer, indirectCommands.Handle, indirectCommands.Size)
	vkn.DescriptorSetWriteBuffer(p.context, p.set, 3, vk.DescriptorTypeStorageBuffer, indirectInstances.Handle, indirectInstances.Size)
}

// Dispatch uploads the frame's frustum planes and instance count, binds the
// pipeline and descriptor set, and dispatches ceil(instanceCount/64)
// workgroups of size 64 onto cmd, which the caller must already have open.
func (p *CullingPipeline) Dispatch(cmd vk.CommandBuffer, frustum math.Frustum, instanceCount uint32) error {
	planes := frustum.PlaneVectors()
	var planeBytes [6 * 4 * 4]byte
	for i, plane := range planes {
		for j, v := range plane {
			putFloat32(planeBytes[:], (i*4+j)*4, v)
		}
	}
	if err := p.frustumUniformBuf.LoadData(p.context, 0, uint64(len(planeBytes)), planeBytes[:]); err != nil {
		return err
	}

	var countBytes [16]byte
	putUint32(countBytes[:], 0, instanceCount)
	if err := p.instanceCountUniform.LoadData(p.context, 0, uint64(len(countBytes)), countBytes[:]); err != nil {
		return err
	}

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, p.pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointCompute, p.layout, 0, 1, []vk.DescriptorSet{p.set}, 0, nil)

	groups := (instanceCount + cullWorkgroupSize - 1) / cullWorkgroupSize
	vk.CmdDispatch(cmd, groups, 1, 1)
	return nil
}

func (p *CullingPipeline) Destroy() {
	p.frustumUniformBuf.Destroy(p.context)
	p.instanceCountUniform.Destroy(p.context)
	vkn.DescriptorPoolDestroy(p.context, p.pool)
	vkn.PipelineDestroy(p.context, p.pipeline)
	vkn.PipelineLayoutDestroy(p.context, p.layout)
	vkn.DescriptorSetLayoutDestroy(p.context, p.setLayout)
	vkn.ShaderModuleDestroy(p.context, p.module)
}

func putFloat32(b []byte, offset int, v float32) {
	bits := stdmath.Float32bits(v)
	b[offset+0] = byte(bits)
	b[offset+1] = byte(bits >> 8)
	b[offset+2] = byte(bits >> 16)
	b[offset+3] = byte(bits >> 24)
}

func putUint32(b []byte, offset int, v uint32) {
	b[offset+0] = byte(v)
	b[offset+1] = byte(v >> 8)
	b[offset+2] = byte(v >> 16)
	b[offset+3] = byte(v >> 24)
}
