package vulkan

/**
 * @brief Max number of material instances
 * @todo TODO: make configurable
 */
const VULKAN_MAX_MATERIAL_COUNT uint32 = 1024

/**
 * @brief Max number of simultaneously uploaded geometries
 * @todo TODO: make configurable
 */
const VULKAN_MAX_GEOMETRY_COUNT uint32 = 4096

/**
 * @brief Max number of UI control instances
 * @todo TODO: make configurable
 */
const VULKAN_MAX_UI_COUNT uint32 = 1024

// VULKAN_SHADER_MAX_BINDINGS bounds the binding arrays a single descriptor
// set layout can describe. 32 comfortably covers every bind group this
// renderer defines (the widest is the bindless material group at 16).
const VULKAN_SHADER_MAX_BINDINGS = 32
