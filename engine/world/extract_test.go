package world

import "testing"

func TestExtractCopiesCameraAndDrawableTriples(t *testing.T) {
	scene := NewWorld()
	scene.Camera = Camera{FovRadians: 1.2}

	e := scene.Spawn()
	scene.SetMesh(e, Mesh{MeshId: 7})
	scene.SetMaterial(e, Material{MaterialId: 9})
	scene.RecomputeGlobalTransforms()

	render := NewRenderWorld()
	Extract(scene, render)

	if render.Camera.FovRadians != 1.2 {
		t.Fatalf("camera not copied: %+v", render.Camera)
	}
	got, ok := render.Drawables[e]
	if !ok {
		t.Fatalf("entity %d missing from extracted drawables", e)
	}
	if got.Mesh.MeshId != 7 || got.Material.MaterialId != 9 {
		t.Fatalf("extracted triple = %+v, want mesh 7 material 9", got)
	}
}

func TestExtractSkipsEntitiesMissingMaterial(t *testing.T) {
	scene := NewWorld()
	e := scene.Spawn()
	scene.SetMesh(e, Mesh{MeshId: 1})
	scene.RecomputeGlobalTransforms()

	render := NewRenderWorld()
	Extract(scene, render)

	if len(render.Drawables) != 0 {
		t.Fatalf("expected no drawables, got %v", render.Drawables)
	}
}

func TestExtractTwiceWithNoMutationIsIdempotent(t *testing.T) {
	scene := NewWorld()
	e := scene.Spawn()
	scene.SetMesh(e, Mesh{MeshId: 1})
	scene.SetMaterial(e, Material{MaterialId: 2})
	scene.RecomputeGlobalTransforms()

	render := NewRenderWorld()
	Extract(scene, render)
	first := render.Drawables[e]

	Extract(scene, render)
	second := render.Drawables[e]

	if first != second {
		t.Fatalf("two extracts with no scene mutation produced different results: %+v vs %+v", first, second)
	}
}

func TestRenderWorldClearRemovesAllDrawables(t *testing.T) {
	render := NewRenderWorld()
	render.Drawables[0] = ExtractedEntity{}
	render.Drawables[1] = ExtractedEntity{}
	render.Clear()
	if len(render.Drawables) != 0 {
		t.Fatalf("Clear() left %d drawables", len(render.Drawables))
	}
}
