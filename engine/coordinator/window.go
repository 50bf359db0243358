package coordinator

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/kestrelgfx/vex/engine/core"
	"github.com/kestrelgfx/vex/engine/platform"
	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
)

// window drives the platform's event pump from the thread glfw requires it
// run on (locked in platform's init via runtime.LockOSThread), translating
// close/resize into requests against the simulation thread. There is no
// winit-style RedrawRequested event in glfw, so a tick is requested once
// per PollEvents cycle instead of only in response to an explicit redraw.
type window struct {
	platform *platform.Platform
	renderer *vkn.VulkanRenderer
	sim      *simulation
}

func newWindow(p *platform.Platform, renderer *vkn.VulkanRenderer, sim *simulation) *window {
	return &window{platform: p, renderer: renderer, sim: sim}
}

// run blocks until the window is closed or escape is pressed, same as the
// original's CloseRequested/Escape handling collapsed into one condition
// glfw can check directly each iteration.
func (w *window) run() {
	core.EventInitialize()
	core.EventRegister(core.EVENT_CODE_RESIZED, 0, w.onResizeEvent)
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, 0, w.onQuitEvent)

	for !w.platform.Window.ShouldClose() {
		w.platform.PumpMessages()
		glfw.PollEvents()

		if w.platform.Window.GetKey(glfw.KeyEscape) == glfw.Press {
			w.platform.Window.SetShouldClose(true)
			break
		}

		w.sim.requestUpdate()
	}
}

func (w *window) onResizeEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	width := uint32(context.Data.U16[0])
	height := uint32(context.Data.U16[1])
	if err := w.renderer.Resized(uint16(width), uint16(height)); err != nil {
		core.LogError("renderer resize failed: %s", err.Error())
	}
	w.sim.requestResize(width, height)
	return false
}

func (w *window) onQuitEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	w.platform.Window.SetShouldClose(true)
	return false
}
