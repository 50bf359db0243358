package coordinator

import (
	"testing"

	"github.com/kestrelgfx/vex/engine/world"
)

func TestResizeCellDrainsOnce(t *testing.T) {
	var cell resizeCell

	if got := cell.take(); got != nil {
		t.Fatalf("take() on empty cell = %v, want nil", got)
	}

	cell.store(1280, 720)
	cell.store(1920, 1080)

	got := cell.take()
	if got == nil || got.Width != 1920 || got.Height != 1080 {
		t.Fatalf("take() = %v, want {1920 1080} (last store wins)", got)
	}

	if got := cell.take(); got != nil {
		t.Fatalf("second take() = %v, want nil (drained)", got)
	}
}

func TestSimulationAppliesPendingResizeBeforeExtract(t *testing.T) {
	scene := world.NewWorld()
	scene.Camera.AspectRatio = 16.0 / 9.0

	toRender := make(chan *world.RenderWorld, 1)
	fromRender := make(chan *world.RenderWorld, 1)

	var resizedWidth, resizedHeight uint32
	onResize := func(width, height uint32) {
		resizedWidth, resizedHeight = width, height
	}

	sim := newSimulation(scene, toRender, fromRender, nil, onResize)

	stop := make(chan struct{})
	go sim.run(stop)

	fromRender <- world.NewRenderWorld()
	sim.requestResize(800, 600)
	sim.requestUpdate()

	rw := <-toRender

	if resizedWidth != 800 || resizedHeight != 600 {
		t.Fatalf("onResize called with (%d,%d), want (800,600)", resizedWidth, resizedHeight)
	}
	wantAspect := float32(800) / float32(600)
	if scene.Camera.AspectRatio != wantAspect {
		t.Fatalf("Camera.AspectRatio = %v, want %v", scene.Camera.AspectRatio, wantAspect)
	}
	if rw.Camera.AspectRatio != wantAspect {
		t.Fatalf("extracted Camera.AspectRatio = %v, want %v", rw.Camera.AspectRatio, wantAspect)
	}

	close(stop)
	sim.requestUpdate()
}

func TestSimulationCoalescesRepeatedUpdateRequests(t *testing.T) {
	scene := world.NewWorld()
	toRender := make(chan *world.RenderWorld, 1)
	fromRender := make(chan *world.RenderWorld, 1)

	sim := newSimulation(scene, toRender, fromRender, nil, nil)

	stop := make(chan struct{})
	go sim.run(stop)

	fromRender <- world.NewRenderWorld()
	sim.requestUpdate()
	sim.requestUpdate()
	sim.requestUpdate()

	<-toRender

	select {
	case <-toRender:
		t.Fatal("a second render world was produced from coalesced requests with only one fromRender send")
	default:
	}

	close(stop)
	sim.requestUpdate()
}
