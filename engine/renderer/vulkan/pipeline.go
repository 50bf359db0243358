package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/kestrelgfx/vex/engine/core"
)

func unsafePointerOf(renderingInfo *vk.PipelineRenderingCreateInfo) unsafe.Pointer {
	return unsafe.Pointer(renderingInfo)
}

// PipelineLayoutCreate wraps vkCreatePipelineLayout for a set of descriptor
// set layouts and an optional block of push constants.
func PipelineLayoutCreate(context *VulkanContext, setLayouts []vk.DescriptorSetLayout, pushConstants []vk.PushConstantRange) (vk.PipelineLayout, error) {
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(pushConstants)),
		PPushConstantRanges:    pushConstants,
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create pipeline layout: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

func PipelineLayoutDestroy(context *VulkanContext, layout vk.PipelineLayout) {
	if layout != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, layout, context.Allocator)
	}
}

// ComputePipelineCreate builds a single compute pipeline from one shader
// stage and an already-created layout.
func ComputePipelineCreate(context *VulkanContext, stage vk.PipelineShaderStageCreateInfo, layout vk.PipelineLayout) (vk.Pipeline, error) {
	createInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stage,
		Layout: layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{createInfo}, context.Allocator, pipelines); res != vk.Success {
		err := fmt.Errorf("failed to create compute pipeline: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return pipelines[0], nil
}

// GraphicsPipelineConfig collects the subset of VkGraphicsPipelineCreateInfo
// fields each render pass in this engine actually varies; everything else
// (input assembly topology, front face, blend factors, dynamic
// viewport/scissor) is
// fixed across passes and filled in by GraphicsPipelineCreate itself.
type GraphicsPipelineConfig struct {
	Stages             []vk.PipelineShaderStageCreateInfo
	VertexBindings     []vk.VertexInputBindingDescription
	VertexAttributes   []vk.VertexInputAttributeDescription
	Layout             vk.PipelineLayout
	ColorFormat        vk.Format
	DepthFormat        vk.Format
	SampleCount        vk.SampleCountFlagBits
	CullMode           vk.CullModeFlagBits
	DepthTestEnable    bool
	DepthWriteEnable   bool
	DepthCompareOp     vk.CompareOp
	BlendEnable        bool
}

// GraphicsPipelineCreate builds a graphics pipeline using dynamic rendering
// (VK_KHR_dynamic_rendering) rather than a VkRenderPass/VkFramebuffer pair,
// matching the color/depth attachment views the frame coordinator hands out
// per frame instead of a fixed framebuffer object.
func GraphicsPipelineCreate(context *VulkanContext, cfg GraphicsPipelineConfig) (vk.Pipeline, error) {
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(cfg.VertexBindings)),
		PVertexBindingDescriptions:      cfg.VertexBindings,
		VertexAttributeDescriptionCount: uint32(len(cfg.VertexAttributes)),
		PVertexAttributeDescriptions:    cfg.VertexAttributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(cfg.CullMode),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: cfg.SampleCount,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.Bool32(boolToU32(cfg.DepthTestEnable)),
		DepthWriteEnable: vk.Bool32(boolToU32(cfg.DepthWriteEnable)),
		DepthCompareOp:   cfg.DepthCompareOp,
	}

	blendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.Bool32(boolToU32(cfg.BlendEnable)),
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	colorFormats := []vk.Format{cfg.ColorFormat}
	renderingInfo := vk.PipelineRenderingCreateInfo{
		SType:                   vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    1,
		PColorAttachmentFormats: colorFormats,
		DepthAttachmentFormat:   cfg.DepthFormat,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafePointerOf(&renderingInfo),
		StageCount:          uint32(len(cfg.Stages)),
		PStages:             cfg.Stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              cfg.Layout,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, context.Allocator, pipelines); res != vk.Success {
		err := fmt.Errorf("failed to create graphics pipeline: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return pipelines[0], nil
}

func PipelineDestroy(context *VulkanContext, pipeline vk.Pipeline) {
	if pipeline != nil {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline, context.Allocator)
	}
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
