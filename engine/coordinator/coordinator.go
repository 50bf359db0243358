// Package coordinator runs the three-stage frame pipeline: a window thread
// pumping platform events, a simulation thread stepping the scene world and
// extracting into a render world, and a render thread drawing it. The two
// worker threads exchange ownership of a small ring of render worlds over
// two bounded channels; the window thread only ever signals, never touches
// GPU or scene state directly.
package coordinator

import (
	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/gpuset"
	"github.com/kestrelgfx/vex/engine/platform"
	"github.com/kestrelgfx/vex/engine/render"
	vkn "github.com/kestrelgfx/vex/engine/renderer/vulkan"
	"github.com/kestrelgfx/vex/engine/world"
)

// Config bundles everything Coordinator needs to wire the three threads;
// Pipelines and Resident are assumed already built against store (scene
// setup, not this package's concern).
type Config struct {
	Platform  *platform.Platform
	Renderer  *vkn.VulkanRenderer
	Store     *assets.AssetStore
	Resident  *gpuset.ResidentSet
	Pipelines render.Pipelines
	Msaa      *render.MsaaTarget
	Scene     *world.World
	OnCamera  CameraUpdateFunc
	OnResize  func(width, height uint32)
}

// Coordinator owns the ring of render worlds and the three thread bodies
// that pass them around. Both channels are bounded to capacity 1: the
// simulation cannot run ahead of the renderer by more than one frame, since
// it blocks on simToRender until the render thread has taken the previous
// one.
type Coordinator struct {
	window       *window
	sim          *simulation
	render       *renderThread
	simToRender  chan *world.RenderWorld
	renderToSim  chan *world.RenderWorld
}

// New wires the ring and returns a Coordinator ready for Run. One render
// world is pre-populated into the render-to-sim channel so the simulation
// thread's first tick has one to extract into without blocking.
func New(cfg Config) *Coordinator {
	const ringCapacity = 1

	simToRender := make(chan *world.RenderWorld, ringCapacity)
	renderToSim := make(chan *world.RenderWorld, ringCapacity)
	renderToSim <- world.NewRenderWorld()

	sim := newSimulation(cfg.Scene, simToRender, renderToSim, cfg.OnCamera, cfg.OnResize)
	rt := newRenderThread(cfg.Renderer, cfg.Pipelines, cfg.Resident, cfg.Store, cfg.Msaa, simToRender, renderToSim)
	win := newWindow(cfg.Platform, cfg.Renderer, sim)

	return &Coordinator{
		window:      win,
		sim:         sim,
		render:      rt,
		simToRender: simToRender,
		renderToSim: renderToSim,
	}
}

// Run starts the simulation and render threads as goroutines and blocks the
// calling goroutine pumping window events, since glfw requires its event
// pump run on the thread that created the window (platform's init locks
// that thread). Returns once the window is closed and both worker threads
// have drained and exited, so it is safe for the caller to tear down GPU
// resources immediately after Run returns.
func (c *Coordinator) Run() {
	stop := make(chan struct{})
	renderDone := make(chan struct{})

	go c.sim.run(stop)
	go func() {
		c.render.run(func() float64 { return float64(c.sim.scene.DeltaTime) })
		close(renderDone)
	}()

	c.window.run()

	close(stop)
	c.sim.requestUpdate()
	<-renderDone
}
