package world

import "github.com/kestrelgfx/vex/engine/math"

// EntityID is a dense, monotonically-assigned entity handle. IDs are never
// reused within a World's lifetime, which keeps "parent spawned before
// child" a property of plain numeric ordering (see InstantiateModel and
// RecomputeGlobalTransforms).
type EntityID uint32

// ComponentKind is the closed set of component types a World can attach to
// an entity. There is no third-party ECS in play here: entities are dense
// ids and components are plain per-kind maps keyed by EntityID, which is
// enough structure for the queries this engine actually runs (drawables,
// hierarchy walks) without the generality a general-purpose archetype
// library would bring.
type ComponentKind int

const (
	componentMesh ComponentKind = iota
	componentMaterial
	componentTransform
	componentGlobalTransform
	componentRigidBody
	componentCollider

	componentKindCount
)

// World owns the scene's entities, their components, and the resources the
// update schedule reads and writes each tick.
type World struct {
	alive    []bool
	parent   map[EntityID]EntityID
	children map[EntityID][]EntityID

	meshes           map[EntityID]Mesh
	materials        map[EntityID]Material
	transforms       map[EntityID]*math.Transform
	globalTransforms map[EntityID]GlobalTransform
	rigidBodies      map[EntityID]RigidBodyHandle
	colliders        map[EntityID]ColliderHandle

	Camera                   Camera
	Lights                   Lights
	Timestamp                Timestamp
	DeltaTime                DeltaTime
	Physics                  Physics
	LastPhysicsStepTimestamp LastPhysicsStepTimestamp
}

// NewWorld returns an empty World with NoPhysics installed; callers with a
// real physics collaborator overwrite the Physics field.
func NewWorld() *World {
	return &World{
		parent:           make(map[EntityID]EntityID),
		children:         make(map[EntityID][]EntityID),
		meshes:           make(map[EntityID]Mesh),
		materials:        make(map[EntityID]Material),
		transforms:       make(map[EntityID]*math.Transform),
		globalTransforms: make(map[EntityID]GlobalTransform),
		rigidBodies:      make(map[EntityID]RigidBodyHandle),
		colliders:        make(map[EntityID]ColliderHandle),
		Physics:          NoPhysics{},
	}
}

// Spawn allocates a new entity with an identity transform and no other
// components.
func (w *World) Spawn() EntityID {
	id := EntityID(len(w.alive))
	w.alive = append(w.alive, true)
	w.transforms[id] = math.TransformCreate()
	return id
}

// EntityCount reports the number of entities ever spawned, alive or not.
func (w *World) EntityCount() int {
	return len(w.alive)
}

// Alive reports whether id was spawned and has not been despawned.
func (w *World) Alive(id EntityID) bool {
	return int(id) < len(w.alive) && w.alive[id]
}

// SetParent links child's transform to parent's, so child's world matrix
// includes parent's. Overwrites any existing parent link.
func (w *World) SetParent(child, parent EntityID) {
	if old, ok := w.parent[child]; ok {
		w.children[old] = removeEntity(w.children[old], child)
	}
	w.parent[child] = parent
	w.children[parent] = append(w.children[parent], child)
	w.transforms[child].Parent = w.transforms[parent]
}

func removeEntity(entities []EntityID, target EntityID) []EntityID {
	for i, e := range entities {
		if e == target {
			return append(entities[:i], entities[i+1:]...)
		}
	}
	return entities
}

// Parent returns child's parent entity, if any.
func (w *World) Parent(child EntityID) (EntityID, bool) {
	id, ok := w.parent[child]
	return id, ok
}

// Children returns parent's direct children in the order they were parented.
func (w *World) Children(parent EntityID) []EntityID {
	return w.children[parent]
}

func (w *World) SetMesh(id EntityID, c Mesh) { w.meshes[id] = c }
func (w *World) Mesh(id EntityID) (Mesh, bool) {
	c, ok := w.meshes[id]
	return c, ok
}

func (w *World) SetMaterial(id EntityID, c Material) { w.materials[id] = c }
func (w *World) Material(id EntityID) (Material, bool) {
	c, ok := w.materials[id]
	return c, ok
}

// Transform returns the entity's local transform handle, created at Spawn
// time, so this is always ok for any entity returned by Spawn.
func (w *World) Transform(id EntityID) (*math.Transform, bool) {
	t, ok := w.transforms[id]
	return t, ok
}

func (w *World) SetGlobalTransform(id EntityID, c GlobalTransform) { w.globalTransforms[id] = c }
func (w *World) GlobalTransform(id EntityID) (GlobalTransform, bool) {
	c, ok := w.globalTransforms[id]
	return c, ok
}

func (w *World) SetRigidBody(id EntityID, c RigidBodyHandle) { w.rigidBodies[id] = c }
func (w *World) RigidBody(id EntityID) (RigidBodyHandle, bool) {
	c, ok := w.rigidBodies[id]
	return c, ok
}

func (w *World) SetCollider(id EntityID, c ColliderHandle) { w.colliders[id] = c }
func (w *World) Collider(id EntityID) (ColliderHandle, bool) {
	c, ok := w.colliders[id]
	return c, ok
}

// Has reports whether id carries every component kind listed.
func (w *World) Has(id EntityID, kinds ...ComponentKind) bool {
	for _, k := range kinds {
		switch k {
		case componentMesh:
			if _, ok := w.meshes[id]; !ok {
				return false
			}
		case componentMaterial:
			if _, ok := w.materials[id]; !ok {
				return false
			}
		case componentTransform:
			if _, ok := w.transforms[id]; !ok {
				return false
			}
		case componentGlobalTransform:
			if _, ok := w.globalTransforms[id]; !ok {
				return false
			}
		case componentRigidBody:
			if _, ok := w.rigidBodies[id]; !ok {
				return false
			}
		case componentCollider:
			if _, ok := w.colliders[id]; !ok {
				return false
			}
		}
	}
	return true
}

// Drawables returns every entity currently carrying Mesh, Material, and
// GlobalTransform, the exact triple Extract projects into the render world.
func (w *World) Drawables() []EntityID {
	var out []EntityID
	for id := range w.meshes {
		if w.Alive(id) && w.Has(id, componentMaterial, componentGlobalTransform) {
			out = append(out, id)
		}
	}
	return out
}

// RecomputeGlobalTransforms snapshots Transform.GetWorld() into the
// GlobalTransform component for every live entity. GetWorld walks the
// Transform.Parent chain itself, so iteration order here doesn't matter;
// this just gives Extract a stable, already-computed value to copy instead
// of re-walking the hierarchy from the render thread.
func (w *World) RecomputeGlobalTransforms() {
	for id := EntityID(0); int(id) < len(w.alive); id++ {
		if !w.alive[id] {
			continue
		}
		t, ok := w.transforms[id]
		if !ok {
			continue
		}
		w.globalTransforms[id] = GlobalTransform(t.GetWorld())
	}
}
