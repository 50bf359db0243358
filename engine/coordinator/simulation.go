package coordinator

import (
	"sync"

	"github.com/kestrelgfx/vex/engine/core"
	"github.com/kestrelgfx/vex/engine/world"
)

// CameraUpdateFunc advances the scene's camera by one tick. Coordinator
// calls it once per simulation step with the wall-clock seconds elapsed
// since the previous step; a nil hook leaves the camera untouched. This
// generalizes the demo orbit a fixed system would otherwise hardcode.
type CameraUpdateFunc func(dt float64, camera *world.Camera)

// simulation owns the authoritative World and runs the update schedule
// each time the window thread requests a tick, handing the render world
// back and forth with the render thread across a bounded ring.
type simulation struct {
	scene *world.World
	clock *core.Clock

	cond            *sync.Cond
	updateRequested bool

	resize resizeCell

	toRender   chan *world.RenderWorld
	fromRender chan *world.RenderWorld

	onCamera CameraUpdateFunc
	onResize func(width, height uint32)
}

func newSimulation(scene *world.World, toRender, fromRender chan *world.RenderWorld, onCamera CameraUpdateFunc, onResize func(width, height uint32)) *simulation {
	return &simulation{
		scene:      scene,
		clock:      core.NewClock(),
		cond:       sync.NewCond(&sync.Mutex{}),
		toRender:   toRender,
		fromRender: fromRender,
		onCamera:   onCamera,
		onResize:   onResize,
	}
}

// requestUpdate wakes the simulation loop for one tick. Safe to call from
// any goroutine; multiple calls before the loop wakes coalesce into one
// tick, same as the condvar-guarded boolean flag it is grounded on.
func (s *simulation) requestUpdate() {
	s.cond.L.Lock()
	s.updateRequested = true
	s.cond.L.Unlock()
	s.cond.Signal()
}

// requestResize queues a framebuffer size for the next tick to apply.
func (s *simulation) requestResize(width, height uint32) {
	s.resize.store(width, height)
}

// run is the simulation thread's body. It blocks on cond until woken,
// drains one tick's resize request if any, extracts into the render world
// it receives back from the render thread, hands it off, then advances the
// scene's own clock-driven state (physics catch-up, camera hook). On stop,
// it closes toRender (the only goroutine that ever sends on it) so the
// render thread's own range over that channel ends its loop instead of
// blocking forever on a sender that is gone.
func (s *simulation) run(stop <-chan struct{}) {
	s.clock.Start()

	for {
		s.cond.L.Lock()
		for !s.updateRequested {
			s.cond.Wait()
		}
		s.updateRequested = false
		s.cond.L.Unlock()

		select {
		case <-stop:
			close(s.toRender)
			return
		default:
		}

		rw, ok := <-s.fromRender
		if !ok {
			return
		}

		if req := s.resize.take(); req != nil {
			if req.Height > 0 {
				s.scene.Camera.AspectRatio = float32(req.Width) / float32(req.Height)
			}
			if s.onResize != nil {
				s.onResize(req.Width, req.Height)
			}
		}

		world.Extract(s.scene, rw)
		s.toRender <- rw

		s.tick()
	}
}

// tick advances wall-clock bookkeeping, runs the fixed-step physics
// catch-up loop, refreshes GlobalTransform for anything physics moved, and
// finally the camera hook — the same ordering as the update schedule this
// is grounded on (physics settles poses before the camera reads them).
func (s *simulation) tick() {
	s.clock.Update()
	now := s.clock.Elapsed() / 1e9 // Clock reports nanoseconds
	dt := now - float64(s.scene.Timestamp)
	s.scene.DeltaTime = world.DeltaTime(dt)
	s.scene.Timestamp = world.Timestamp(now)

	for float64(s.scene.Timestamp)-float64(s.scene.LastPhysicsStepTimestamp) >= world.PhysicsTimestep {
		s.scene.Physics.Step(world.PhysicsTimestep)
		s.scene.LastPhysicsStepTimestamp += world.LastPhysicsStepTimestamp(world.PhysicsTimestep)
		applyPhysicsPoses(s.scene)
	}

	s.scene.RecomputeGlobalTransforms()

	if s.onCamera != nil {
		s.onCamera(dt, &s.scene.Camera)
	}
}

func applyPhysicsPoses(scene *world.World) {
	for id := EntityID(0); int(id) < scene.EntityCount(); id++ {
		if !scene.Alive(id) {
			continue
		}
		handle, ok := scene.RigidBody(world.EntityID(id))
		if !ok {
			continue
		}
		position, rotation, ok := scene.Physics.Pose(handle)
		if !ok {
			continue
		}
		transform, ok := scene.Transform(world.EntityID(id))
		if !ok {
			continue
		}
		transform.SetPositionRotation(position, rotation)
	}
}

// EntityID mirrors world.EntityID so this file does not need to import the
// world package twice under two names; applyPhysicsPoses loops the dense
// entity range directly since World exposes no entity iterator.
type EntityID = world.EntityID
