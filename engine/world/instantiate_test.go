package world

import (
	"testing"

	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/math"
)

// a small two-node model: root (structural only) with one child carrying
// two object-group entries, mirroring a glTF node with a multi-primitive
// mesh attached.
func testModel() assets.Model {
	return assets.Model{
		RootNodes: []int{0},
		Nodes: []assets.Node{
			{Name: "root", Children: []int{1}},
			{
				Name: "mesh_node",
				ObjectGroup: []assets.ObjectGroupEntry{
					{MeshId: 10, MaterialId: 20},
					{MeshId: 11, MaterialId: 21},
				},
			},
		},
	}
}

func TestInstantiateModelSpawnsOneEntityPerNodePlusDrawables(t *testing.T) {
	w := NewWorld()
	_, owned := w.InstantiateModel(testModel(), math.Vec3{}, math.NewQuatIdentity(), math.NewVec3One())

	// 2 node entities + 2 drawable children off the mesh node = 4.
	if len(owned) != 4 {
		t.Fatalf("owned entity count = %d, want 4", len(owned))
	}

	drawables := w.Drawables()
	if len(drawables) != 0 {
		t.Fatalf("Drawables() before RecomputeGlobalTransforms = %v, want none (no GlobalTransform yet)", drawables)
	}

	w.RecomputeGlobalTransforms()
	drawables = w.Drawables()
	if len(drawables) != 2 {
		t.Fatalf("Drawables() after recompute = %d, want 2", len(drawables))
	}
}

func TestInstantiateModelParentsMeshNodeUnderRoot(t *testing.T) {
	w := NewWorld()
	_, owned := w.InstantiateModel(testModel(), math.Vec3{}, math.NewQuatIdentity(), math.NewVec3One())

	root := owned[0]
	meshNode := owned[1]
	parent, ok := w.Parent(meshNode)
	if !ok || parent != root {
		t.Fatalf("mesh node's parent = %v,%v want %v,true", parent, ok, root)
	}
}

func TestInstantiateModelPlacesRootAtGivenTransform(t *testing.T) {
	w := NewWorld()
	position := math.Vec3{X: 3, Y: 4, Z: 5}
	_, owned := w.InstantiateModel(testModel(), position, math.NewQuatIdentity(), math.NewVec3One())

	root := owned[0]
	t0, _ := w.Transform(root)
	if t0.Position != position {
		t.Fatalf("root transform position = %+v, want %+v", t0.Position, position)
	}
}

func TestInstantiateModelReturnsDistinctInstanceIds(t *testing.T) {
	w := NewWorld()
	id1, _ := w.InstantiateModel(testModel(), math.Vec3{}, math.NewQuatIdentity(), math.NewVec3One())
	id2, _ := w.InstantiateModel(testModel(), math.Vec3{}, math.NewQuatIdentity(), math.NewVec3One())
	if id1 == id2 {
		t.Fatal("two InstantiateModel calls returned the same InstanceId")
	}
}
