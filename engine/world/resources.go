package world

import "github.com/kestrelgfx/vex/engine/math"

// Camera is the scene world's single active viewpoint. ViewProjection is
// recomputed by the simulation thread's update schedule each tick; Extract
// clones it by value into the render world.
type Camera struct {
	Position       math.Vec3
	ViewProjection math.Mat4
	FovRadians     float32
	AspectRatio    float32
	NearClip       float32
	FarClip        float32
	Yaw            float32
	Pitch          float32
}

// Timestamp is seconds elapsed since the simulation clock started.
type Timestamp float64

// DeltaTime is the wall-clock seconds elapsed since the previous tick.
type DeltaTime float64

// LastPhysicsStepTimestamp is the Timestamp value at which the physics
// catch-up loop last stepped. The update schedule steps again once
// Timestamp - LastPhysicsStepTimestamp >= PhysicsTimestep.
type LastPhysicsStepTimestamp float64

// PhysicsTimestep is the fixed step the catch-up loop advances by.
const PhysicsTimestep = 1.0 / 64.0

// MaxPointLights bounds the Lights resource's point light slice; the lights
// uniform buffer the render package uploads is sized for this many entries
// regardless of how many PointLights actually holds, with
// PointLightsLength gating how many the shader loop reads.
const MaxPointLights = 16

// AmbientLight is the scene's single constant-color ambient term.
type AmbientLight struct {
	Color     math.Vec3
	Intensity float32
}

// PointLight is one omnidirectional light source.
type PointLight struct {
	Position  math.Vec3
	Color     math.Vec3
	Intensity float32
	Radius    float32
}

// Lights is the scene world's lighting resource, extracted by value into
// the render world alongside Camera. PointLights beyond MaxPointLights are
// dropped by SetPointLights rather than silently growing the GPU buffer.
type Lights struct {
	Ambient     AmbientLight
	PointLights []PointLight
}

// SetPointLights replaces the light list, truncating to MaxPointLights.
func (l *Lights) SetPointLights(lights []PointLight) {
	if len(lights) > MaxPointLights {
		lights = lights[:MaxPointLights]
	}
	l.PointLights = append([]PointLight(nil), lights...)
}

// Physics is consumed only through this contract: a step function and a
// handle-to-pose query. No physics engine is implemented in this package;
// a real integration plugs in here.
type Physics interface {
	Step(dt float64)
	Pose(handle RigidBodyHandle) (position math.Vec3, rotation math.Quaternion, ok bool)
}

// NoPhysics is a Physics that never moves anything, used when a scene has
// no rigid bodies or in tests that don't exercise the physics catch-up loop.
type NoPhysics struct{}

func (NoPhysics) Step(dt float64) {}

func (NoPhysics) Pose(handle RigidBodyHandle) (math.Vec3, math.Quaternion, bool) {
	return math.Vec3{}, math.Quaternion{}, false
}
