package assets

// ModelId indexes into the store's Models array.
type ModelId = uint32

// ObjectGroupEntry is one drawable primitive attached to a node: a mesh
// paired with the material it is drawn with.
type ObjectGroupEntry struct {
	MeshId     MeshId
	MaterialId MaterialId
}

// Node is one entry of a flattened model forest. ObjectGroup is nil for
// purely structural (no-geometry) nodes. Children holds indices into the
// owning Model's Nodes slice, always greater than this node's own index (a
// parent's index is always smaller than any of its descendants').
type Node struct {
	Name        string
	ObjectGroup []ObjectGroupEntry
	Children    []int
}

// Model is a forest of Nodes reachable from RootNodes. Node indices are
// assigned in breadth-first discovery order: a node is pushed onto Nodes,
// and assigned the index it occupies at that moment, before any of its
// children are enqueued. This guarantees a child's index is always greater
// than its parent's, so callers can process Nodes in order and always have
// already seen a node's parent.
type Model struct {
	RootNodes []int
	Nodes     []Node
}

// modelRegistry deduplicates models by their canonicalized source path.
type modelRegistry struct {
	arena *arena[Model]
}

func newModelRegistry() *modelRegistry {
	return &modelRegistry{arena: newArena[Model]()}
}

func (r *modelRegistry) lookup(canonicalPath string) (ModelId, bool) {
	id, ok := r.arena.lookup(canonicalPath)
	return ModelId(id), ok
}

func (r *modelRegistry) push(canonicalPath string, m Model) ModelId {
	id, _ := r.arena.push(canonicalPath, m)
	return ModelId(id)
}

func (r *modelRegistry) model(id ModelId) Model {
	return r.arena.get(int(id))
}

func (r *modelRegistry) len() int {
	return r.arena.len()
}
