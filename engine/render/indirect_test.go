package render

import (
	"testing"

	"github.com/kestrelgfx/vex/engine/assets"
)

type fakeMeshSource map[assets.MeshId]assets.Mesh

func (f fakeMeshSource) Mesh(id assets.MeshId) assets.Mesh { return f[id] }

func TestBuildIndirectCommandsPartitionsFirstInstance(t *testing.T) {
	meshes := fakeMeshSource{
		5: {VertexOffset: 0, VertexCount: 100, IndexOffset: 0, IndexCount: 300},
		9: {VertexOffset: 100, VertexCount: 50, IndexOffset: 300, IndexCount: 120},
	}
	batches := []Batch{
		{MeshId: 5, PreCullCount: 2},
		{MeshId: 9, PreCullCount: 3},
	}

	commands := BuildIndirectCommands(batches, meshes)
	if len(commands) != 2 {
		t.Fatalf("command count = %d, want 2", len(commands))
	}
	if commands[0].InstanceCount != 0 || commands[1].InstanceCount != 0 {
		t.Fatal("InstanceCount must be zero at record time")
	}
	if commands[0].FirstInstance != 0 {
		t.Fatalf("commands[0].FirstInstance = %d, want 0", commands[0].FirstInstance)
	}
	if commands[1].FirstInstance != 2 {
		t.Fatalf("commands[1].FirstInstance = %d, want 2 (after batch 0's 2 instances)", commands[1].FirstInstance)
	}
	if commands[0].IndexCount != 300 || commands[0].FirstIndex != 0 || commands[0].BaseVertex != 0 {
		t.Fatalf("commands[0] mesh fields wrong: %+v", commands[0])
	}
	if commands[1].IndexCount != 120 || commands[1].FirstIndex != 300 || commands[1].BaseVertex != 100 {
		t.Fatalf("commands[1] mesh fields wrong: %+v", commands[1])
	}
}
