package world

import (
	"testing"

	"github.com/kestrelgfx/vex/engine/math"
)

func TestSpawnAssignsDenseIncreasingIDs(t *testing.T) {
	w := NewWorld()
	a := w.Spawn()
	b := w.Spawn()
	c := w.Spawn()
	if a != 0 || b != 1 || c != 2 {
		t.Fatalf("got ids %d,%d,%d want 0,1,2", a, b, c)
	}
}

func TestSetParentUpdatesChildrenAndTransformLink(t *testing.T) {
	w := NewWorld()
	parent := w.Spawn()
	child := w.Spawn()
	w.SetParent(child, parent)

	got, ok := w.Parent(child)
	if !ok || got != parent {
		t.Fatalf("Parent(child) = %v, %v; want %v, true", got, ok, parent)
	}
	kids := w.Children(parent)
	if len(kids) != 1 || kids[0] != child {
		t.Fatalf("Children(parent) = %v, want [%v]", kids, child)
	}

	childTransform, _ := w.Transform(child)
	parentTransform, _ := w.Transform(parent)
	if childTransform.Parent != parentTransform {
		t.Fatal("child transform's Parent pointer does not point at parent's transform")
	}
}

func TestReparentRemovesFromOldParentsChildren(t *testing.T) {
	w := NewWorld()
	oldParent := w.Spawn()
	newParent := w.Spawn()
	child := w.Spawn()

	w.SetParent(child, oldParent)
	w.SetParent(child, newParent)

	if kids := w.Children(oldParent); len(kids) != 0 {
		t.Fatalf("old parent still lists child: %v", kids)
	}
	if kids := w.Children(newParent); len(kids) != 1 || kids[0] != child {
		t.Fatalf("new parent's children = %v, want [%v]", kids, child)
	}
}

func TestDrawablesRequiresAllThreeComponents(t *testing.T) {
	w := NewWorld()
	meshOnly := w.Spawn()
	w.SetMesh(meshOnly, Mesh{MeshId: 1})

	complete := w.Spawn()
	w.SetMesh(complete, Mesh{MeshId: 2})
	w.SetMaterial(complete, Material{MaterialId: 3})
	w.SetGlobalTransform(complete, GlobalTransform{})

	drawables := w.Drawables()
	if len(drawables) != 1 || drawables[0] != complete {
		t.Fatalf("Drawables() = %v, want [%v]", drawables, complete)
	}
}

func TestDespawnExcludesFromDrawables(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	w.SetMesh(e, Mesh{MeshId: 1})
	w.SetMaterial(e, Material{MaterialId: 1})
	w.SetGlobalTransform(e, GlobalTransform{})

	if len(w.Drawables()) != 1 {
		t.Fatal("expected one drawable before despawn")
	}
	w.Despawn([]EntityID{e})
	if len(w.Drawables()) != 0 {
		t.Fatal("expected zero drawables after despawn")
	}
	if w.Alive(e) {
		t.Fatal("entity should not be alive after Despawn")
	}
}

func TestRecomputeGlobalTransformsComposesParentChain(t *testing.T) {
	w := NewWorld()
	parent := w.Spawn()
	child := w.Spawn()
	w.SetParent(child, parent)

	parentTransform, _ := w.Transform(parent)
	parentTransform.SetPosition(math.Vec3{X: 1, Y: 0, Z: 0})

	w.RecomputeGlobalTransforms()

	parentGlobal, ok := w.GlobalTransform(parent)
	if !ok {
		t.Fatal("parent has no GlobalTransform after recompute")
	}
	childGlobal, ok := w.GlobalTransform(child)
	if !ok {
		t.Fatal("child has no GlobalTransform after recompute")
	}
	if parentGlobal != childGlobal {
		t.Fatalf("child with identity local transform should inherit parent's world matrix exactly: parent=%+v child=%+v", parentGlobal, childGlobal)
	}
}
