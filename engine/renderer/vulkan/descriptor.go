package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/kestrelgfx/vex/engine/core"
)

/**
 * @brief The configuration for a descriptor set.
 */
type VulkanDescriptorSetConfig struct {
	/** @brief The number of bindings in this set. */
	BindingCount uint8
	/** @brief An array of binding layouts for this set. */
	Bindings [VULKAN_SHADER_MAX_BINDINGS]vk.DescriptorSetLayoutBinding
	/** @brief The index of the sampler binding. */
	SamplerBindingIndex uint8
}

/**
 * @brief Represents a state for a given descriptor. This is used
 * to determine when a descriptor needs updating. There is a state
 * per frame (with a max of 3).
 */
type VulkanDescriptorState struct {
	/** @brief The descriptor generation, per frame. */
	Generations [3]uint8
	/** @brief The identifier, per frame. Typically used for texture IDs. */
	IDs [3]uint32
}

/**
 * @brief Represents the state for a descriptor set. This is used to track
 * generations and updates, potentially for optimization via skipping
 * sets which do not need updating.
 */
type VulkanShaderDescriptorSetState struct {
	/** @brief The descriptor sets for this instance, one per frame. */
	DescriptorSets [3]vk.DescriptorSet
	/** @brief A descriptor state per descriptor, which in turn handles frames. Count is managed in shader config. */
	DescriptorStates [VULKAN_SHADER_MAX_BINDINGS]VulkanDescriptorState
}

// DescriptorSetLayoutCreate wraps vkCreateDescriptorSetLayout for a single
// bind group, described as a plain slice of bindings rather than the fixed
// VulkanDescriptorSetConfig array (callers building bind groups from a
// variable-length layout, e.g. the bindless material group, don't need to
// pad out to VULKAN_SHADER_MAX_BINDINGS by hand).
func DescriptorSetLayoutCreate(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

func DescriptorSetLayoutDestroy(context *VulkanContext, layout vk.DescriptorSetLayout) {
	if layout != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
	}
}

// DescriptorPoolCreate allocates a pool sized for the given (descriptor
// type, count) pairs, able to hand out up to maxSets sets.
func DescriptorPoolCreate(context *VulkanContext, sizes []vk.DescriptorPoolSize, maxSets uint32) (vk.DescriptorPool, error) {
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
		MaxSets:       maxSets,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return pool, nil
}

func DescriptorPoolDestroy(context *VulkanContext, pool vk.DescriptorPool) {
	if pool != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, pool, context.Allocator)
	}
}

// DescriptorSetAllocate allocates a single set of layout from pool.
func DescriptorSetAllocate(context *VulkanContext, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	layouts := []vk.DescriptorSetLayout{layout}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor set: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return sets[0], nil
}

// DescriptorSetWriteBuffer binds a whole buffer to a storage/uniform
// binding in set, at binding index binding.
func DescriptorSetWriteBuffer(context *VulkanContext, set vk.DescriptorSet, binding uint32, descriptorType vk.DescriptorType, buffer vk.Buffer, size uint64) {
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buffer,
		Offset: 0,
		Range:  vk.DeviceSize(size),
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// DescriptorSetWriteImage binds a sampled or storage image view to binding.
func DescriptorSetWriteImage(context *VulkanContext, set vk.DescriptorSet, binding uint32, descriptorType vk.DescriptorType, view vk.ImageView, sampler vk.Sampler, layout vk.ImageLayout) {
	imageInfo := vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   view,
		ImageLayout: layout,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
