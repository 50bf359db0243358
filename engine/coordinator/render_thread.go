package coordinator

import (
	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/core"
	"github.com/kestrelgfx/vex/engine/gpuset"
	"github.com/kestrelgfx/vex/engine/render"
	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
	"github.com/kestrelgfx/vex/engine/world"
)

// renderThread owns the GPU-facing pipelines and drains render worlds the
// simulation thread hands it, one per tick, bouncing each one back once its
// frame has been recorded and its entities cleared for reuse.
type renderThread struct {
	renderer  *vkn.VulkanRenderer
	pipelines render.Pipelines
	resident  *gpuset.ResidentSet
	store     *assets.AssetStore
	msaa      *render.MsaaTarget

	fromSim chan *world.RenderWorld
	toSim   chan *world.RenderWorld
}

func newRenderThread(renderer *vkn.VulkanRenderer, pipelines render.Pipelines, resident *gpuset.ResidentSet, store *assets.AssetStore, msaa *render.MsaaTarget, fromSim, toSim chan *world.RenderWorld) *renderThread {
	core.MetricsInitialize()
	return &renderThread{
		renderer:  renderer,
		pipelines: pipelines,
		resident:  resident,
		store:     store,
		msaa:      msaa,
		fromSim:   fromSim,
		toSim:     toSim,
	}
}

// run drains fromSim until it is closed, drawing one frame per render world
// and clearing it before sending it back for the next extract. Every frame
// feeds core's rolling FPS/frame-time average (core.MetricsFPS).
func (r *renderThread) run(deltaTime func() float64) {
	for rw := range r.fromSim {
		dt := deltaTime()
		if err := r.drawFrame(rw, dt); err != nil {
			core.LogError("render thread frame failed: %s", err.Error())
		}
		core.MetricsUpdate(dt)
		rw.Clear()
		r.toSim <- rw
	}
}

func (r *renderThread) drawFrame(rw *world.RenderWorld, dt float64) error {
	if err := r.renderer.BeginFrame(dt); err != nil {
		return err
	}

	cmd := r.renderer.CurrentCommandBuffer()
	width, height := r.renderer.FramebufferExtent()
	if err := r.msaa.Resize(width, height); err != nil {
		return err
	}

	if err := render.Tick(r.renderer.Context(), cmd.Handle, r.pipelines, r.resident, r.store, rw, r.msaa,
		r.renderer.CurrentSwapchainView(), r.renderer.CurrentDepthView(), width, height); err != nil {
		return err
	}

	return r.renderer.EndFrame(dt)
}
