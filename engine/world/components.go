package world

import (
	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/math"
)

// Mesh attaches a drawable entity to a mesh range in the asset store.
type Mesh struct {
	MeshId assets.MeshId
}

// Material attaches a drawable entity to a material in the asset store.
type Material struct {
	MaterialId assets.MaterialId
}

// GlobalTransform is the cached world-space affine transform of an entity,
// recomputed once per tick by RecomputeGlobalTransforms rather than derived
// lazily on read (extract needs a stable snapshot, not a recursive walk).
type GlobalTransform math.Mat4

// RigidBodyHandle is an opaque reference into a Physics collaborator's own
// body table. The physics engine itself is never implemented here; it is
// consumed only through the Physics interface's Step and Pose methods.
type RigidBodyHandle struct {
	Handle uint32
}

// ColliderHandle is an opaque reference into a Physics collaborator's own
// collider table.
type ColliderHandle struct {
	Handle uint32
}
