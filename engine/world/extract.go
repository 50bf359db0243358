package world

// ExtractedEntity is the drawable triple Extract copies out of the scene
// world: enough to batch, cull, and draw, nothing else.
type ExtractedEntity struct {
	Mesh            Mesh
	Material        Material
	GlobalTransform GlobalTransform
}

// RenderWorld is what the simulation thread hands to the render thread
// each frame. Drawables is keyed by the scene world's own EntityID so
// repeated extracts insert-or-overwrite the same render-world entity
// rather than accumulating duplicates.
type RenderWorld struct {
	Camera    Camera
	Lights    Lights
	Drawables map[EntityID]ExtractedEntity
}

func NewRenderWorld() *RenderWorld {
	return &RenderWorld{Drawables: make(map[EntityID]ExtractedEntity)}
}

// Clear empties the render world's drawables. The render thread calls this
// after each frame; entities not re-inserted by the next Extract simply
// don't reappear.
func (rw *RenderWorld) Clear() {
	for id := range rw.Drawables {
		delete(rw.Drawables, id)
	}
}

// Extract copies the scene world's Camera resource and every entity
// carrying {Mesh, Material, GlobalTransform} into render. It never removes
// an entity missing from scene; callers clear render between frames if
// stale entries must not persist.
func Extract(scene *World, render *RenderWorld) {
	render.Camera = scene.Camera
	render.Lights = scene.Lights
	for id, mesh := range scene.meshes {
		if !scene.Alive(id) {
			continue
		}
		material, ok := scene.Material(id)
		if !ok {
			continue
		}
		global, ok := scene.GlobalTransform(id)
		if !ok {
			continue
		}
		render.Drawables[id] = ExtractedEntity{
			Mesh:            mesh,
			Material:        material,
			GlobalTransform: global,
		}
	}
}
