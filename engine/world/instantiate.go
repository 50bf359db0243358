package world

import (
	"github.com/google/uuid"
	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/math"
)

// InstanceId names one placement of a model into a World. Unlike EntityID
// (dense, World-lifetime-scoped) this is an opaque random id, returned by
// InstantiateModel alongside the list of entities that call spawned. The
// World keeps no mapping from an InstanceId to its entities; Despawn takes
// the entity list.
type InstanceId = uuid.UUID

// InstantiateModel spawns one entity per node of the model, parented
// according to the model's own node hierarchy, and for every node that
// carries an object group, one drawable child entity per (mesh, material)
// pair. position, rotation and scale set the local Transform of each of the
// model's root nodes.
//
// Node indices in a Model are assigned so that a parent's index is always
// less than any of its descendants'; spawning nodes in that same order
// guarantees every child entity's parent is spawned (and known) before the
// child itself, which RecomputeGlobalTransforms relies on for nothing more
// than "already exists", not ordering.
func (w *World) InstantiateModel(model assets.Model, position math.Vec3, rotation math.Quaternion, scale math.Vec3) (InstanceId, []EntityID) {
	nodeEntities := make([]EntityID, len(model.Nodes))
	var owned []EntityID

	for i, node := range model.Nodes {
		e := w.Spawn()
		nodeEntities[i] = e
		owned = append(owned, e)

		for _, group := range node.ObjectGroup {
			drawable := w.Spawn()
			owned = append(owned, drawable)
			w.SetParent(drawable, e)
			w.SetMesh(drawable, Mesh{MeshId: group.MeshId})
			w.SetMaterial(drawable, Material{MaterialId: group.MaterialId})
		}
	}

	for i, node := range model.Nodes {
		for _, childIdx := range node.Children {
			w.SetParent(nodeEntities[childIdx], nodeEntities[i])
		}
	}

	for _, rootIdx := range model.RootNodes {
		rootEntity := nodeEntities[rootIdx]
		t, _ := w.Transform(rootEntity)
		t.SetPositionRotationScale(position, rotation, scale)
	}

	id := uuid.New()
	return id, owned
}

// Despawn marks every entity in entities as dead. Component storage
// entries are left in place (dead entities are filtered out by Alive/
// Drawables); the backing maps are reclaimed the next time the World is
// recreated, since freeing a slot is cheaper than shrinking the backing
// arrays mid-frame.
func (w *World) Despawn(entities []EntityID) {
	for _, e := range entities {
		if int(e) < len(w.alive) {
			w.alive[e] = false
		}
	}
}
