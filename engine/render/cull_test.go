package render

import (
	"testing"

	"github.com/kestrelgfx/vex/engine/assets"
	"github.com/kestrelgfx/vex/engine/math"
)

func translatedTransform(x, y, z float32) [16]float32 {
	return math.NewMat4Translation(math.Vec3{X: x, Y: y, Z: z}).Data
}

func testFrustum() math.Frustum {
	view := math.NewMat4LookAt(math.Vec3{}, math.Vec3{Z: 1}, math.Vec3{Y: 1})
	projection := math.NewMat4Perspective(math.DegToRad(90), 1.0, 0.1, 100.0)
	return math.NewFrustumFromViewProjection(view.Mul(projection))
}

func TestCullVisibleConservesVisibleCountAndPartitionsFirstInstance(t *testing.T) {
	// Two batches of mesh 1 and mesh 2, two instances each: one clearly
	// ahead of the camera (visible), one clearly behind (culled).
	boxes := map[assets.MeshId]math.BoundingBox{
		1: math.NewBoundingBox(math.Vec3{X: -0.5, Y: -0.5, Z: -0.5}, math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}),
		2: math.NewBoundingBox(math.Vec3{X: -0.5, Y: -0.5, Z: -0.5}, math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}),
	}

	assembly := FrameAssembly{
		InstanceTransforms: [][16]float32{
			translatedTransform(0, 0, 5),  // batch 0, visible
			translatedTransform(0, 0, -5), // batch 0, behind camera
			translatedTransform(0, 0, 6),  // batch 1, visible
			translatedTransform(0, 0, -6), // batch 1, behind camera
		},
		InstanceMaterials: []uint32{0, 0, 0, 0},
		InstanceCulling: []CullingInfo{
			{BatchId: 0}, {BatchId: 0}, {BatchId: 1}, {BatchId: 1},
		},
		Batches: []Batch{
			{MeshId: 1, PreCullCount: 2},
			{MeshId: 2, PreCullCount: 2},
		},
	}

	commands := BuildIndirectCommands(assembly.Batches, fakeMeshSource{
		1: {IndexCount: 6}, 2: {IndexCount: 6},
	})

	indirectInstances := CullVisible(testFrustum(), assembly, boxes, commands)

	if commands[0].InstanceCount != 1 {
		t.Fatalf("batch 0 InstanceCount = %d, want 1", commands[0].InstanceCount)
	}
	if commands[1].InstanceCount != 1 {
		t.Fatalf("batch 1 InstanceCount = %d, want 1", commands[1].InstanceCount)
	}
	if commands[0].FirstInstance != 0 || commands[1].FirstInstance != 2 {
		t.Fatalf("FirstInstance partitioning wrong: %d, %d", commands[0].FirstInstance, commands[1].FirstInstance)
	}

	// batch 0's one visible slot is indirectInstances[0], holding instance 0.
	if indirectInstances[commands[0].FirstInstance] != 0 {
		t.Fatalf("batch 0's visible slot = %d, want instance 0", indirectInstances[commands[0].FirstInstance])
	}
	// batch 1's one visible slot is indirectInstances[2], holding instance 2.
	if indirectInstances[commands[1].FirstInstance] != 2 {
		t.Fatalf("batch 1's visible slot = %d, want instance 2", indirectInstances[commands[1].FirstInstance])
	}
}

func TestCullVisibleZeroInstancesProducesEmptyOutput(t *testing.T) {
	assembly := FrameAssembly{}
	commands := BuildIndirectCommands(nil, fakeMeshSource{})
	out := CullVisible(testFrustum(), assembly, nil, commands)
	if len(out) != 0 {
		t.Fatalf("expected no indirect instances, got %d", len(out))
	}
}
