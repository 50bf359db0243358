package vulkan

import (
	"fmt"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/kestrelgfx/vex/engine/core"
)

// sliceUint32FromBytes reinterprets a byte slice already verified to hold
// SPIR-V (length a multiple of 4) as the []uint32 vk.ShaderModuleCreateInfo
// wants for PCode.
func sliceUint32FromBytes(b []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// ShaderModuleCreate reads a SPIR-V binary from path and creates a shader
// module from it. Shader sources are loaded verbatim, never compiled or
// inspected here; compilation happens offline.
func ShaderModuleCreate(context *VulkanContext, path string) (vk.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read shader module %q: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		err = fmt.Errorf("shader module %q: SPIR-V byte length %d is not a positive multiple of 4", path, len(code))
		core.LogError(err.Error())
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32FromBytes(code),
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		err = fmt.Errorf("failed to create shader module %q", path)
		core.LogError(err.Error())
		return nil, err
	}
	return module, nil
}

// ShaderStageCreate builds the pipeline shader stage info for a module
// created by ShaderModuleCreate, with "main" as the fixed entry point.
func ShaderStageCreate(module vk.ShaderModule, stage vk.ShaderStageFlagBits) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  VulkanSafeString("main"),
	}
}

func ShaderModuleDestroy(context *VulkanContext, module vk.ShaderModule) {
	if module != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, module, context.Allocator)
	}
}
