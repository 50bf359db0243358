package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/kestrelgfx/vex/engine/assets/ktx2"
	"github.com/kestrelgfx/vex/engine/core"
	"github.com/kestrelgfx/vex/engine/math"
)

// Cubemap is six texture layers of the same TextureArrayKind, one per face,
// in the conventional +X,-X,+Y,-Y,+Z,-Z order.
type Cubemap struct {
	Kind     TextureArrayKind
	LayerIds [6]uint32
}

// AssetStore is the single owner of every deduplicated, indexed arena of
// meshes, materials, textures, and models loaded for a scene. Entries are
// append-only during scene load; a store is frozen once load_scene returns.
type AssetStore struct {
	meshes    *meshRegistry
	materials *materialRegistry
	models    *modelRegistry
	Textures  *TextureArrays
}

func NewAssetStore() *AssetStore {
	return &AssetStore{
		meshes:    newMeshRegistry(),
		materials: newMaterialRegistry(),
		models:    newModelRegistry(),
		Textures:  NewTextureArrays(),
	}
}

func (s *AssetStore) MeshCount() int     { return s.meshes.len() }
func (s *AssetStore) MaterialCount() int { return s.materials.len() }
func (s *AssetStore) ModelCount() int    { return s.models.len() }

func (s *AssetStore) Mesh(id MeshId) Mesh             { return s.meshes.mesh(id) }
func (s *AssetStore) Material(id MaterialId) Material { return s.materials.material(id) }
func (s *AssetStore) Model(id ModelId) Model          { return s.models.model(id) }

// Vertices and Indices expose the global, monotonically-growing arrays
// every Mesh indexes into.
func (s *AssetStore) Vertices() []Vertex  { return s.meshes.vertices }
func (s *AssetStore) Indices() []uint32   { return s.meshes.indices }

// LoadModel parses a glTF document rooted at path, flattening its default
// scene into a Model. Deduplicates by canonical path: loading the same path
// twice returns the same ModelId without growing the store.
func (s *AssetStore) LoadModel(path string) (ModelId, error) {
	canonical, err := filepath.Abs(path)
	if err != nil {
		return 0, &core.AssetFormatError{Asset: path, Field: "path", Cause: err}
	}
	canonical = filepath.Clean(canonical)

	if id, ok := s.models.lookup(canonical); ok {
		return id, nil
	}

	doc, err := gltf.Open(path)
	if err != nil {
		return 0, &core.AssetFormatError{Asset: path, Field: "document", Cause: err}
	}

	sceneIdx := uint32(0)
	if doc.Scene != nil {
		sceneIdx = *doc.Scene
	}
	if int(sceneIdx) >= len(doc.Scenes) {
		return 0, &core.AssetFormatError{Asset: path, Field: "default scene"}
	}
	scene := doc.Scenes[sceneIdx]
	dir := filepath.Dir(path)

	type queueItem struct {
		gltfIndex uint32
		flatIndex int
	}

	var nodes []Node
	var rootNodes []int
	var queue []queueItem

	for _, gIdx := range scene.Nodes {
		flatIdx := len(nodes)
		nodes = append(nodes, Node{})
		rootNodes = append(rootNodes, flatIdx)
		queue = append(queue, queueItem{gltfIndex: gIdx, flatIndex: flatIdx})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if int(item.gltfIndex) >= len(doc.Nodes) {
			return 0, &core.AssetFormatError{Asset: path, Field: "node index"}
		}
		gn := doc.Nodes[item.gltfIndex]

		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", item.gltfIndex)
		}

		var objectGroup []ObjectGroupEntry
		if gn.Mesh != nil {
			objectGroup, err = s.loadMeshPrimitives(doc, dir, canonical, *gn.Mesh)
			if err != nil {
				return 0, err
			}
		}

		children := make([]int, 0, len(gn.Children))
		for _, childGltfIdx := range gn.Children {
			childFlatIdx := len(nodes)
			nodes = append(nodes, Node{})
			children = append(children, childFlatIdx)
			queue = append(queue, queueItem{gltfIndex: childGltfIdx, flatIndex: childFlatIdx})
		}

		nodes[item.flatIndex] = Node{Name: name, ObjectGroup: objectGroup, Children: children}
	}

	return s.models.push(canonical, Model{RootNodes: rootNodes, Nodes: nodes}), nil
}

func (s *AssetStore) loadMeshPrimitives(doc *gltf.Document, dir, canonical string, meshIdx uint32) ([]ObjectGroupEntry, error) {
	if int(meshIdx) >= len(doc.Meshes) {
		return nil, &core.AssetFormatError{Asset: canonical, Field: "mesh index"}
	}
	gm := doc.Meshes[meshIdx]

	group := make([]ObjectGroupEntry, 0, len(gm.Primitives))
	for primIdx, prim := range gm.Primitives {
		meshId, err := s.loadPrimitiveMesh(doc, canonical, meshIdx, uint32(primIdx), prim)
		if err != nil {
			return nil, err
		}
		materialId, err := s.loadPrimitiveMaterial(doc, dir, canonical, prim)
		if err != nil {
			return nil, err
		}
		group = append(group, ObjectGroupEntry{MeshId: meshId, MaterialId: materialId})
	}
	return group, nil
}

func (s *AssetStore) loadPrimitiveMesh(doc *gltf.Document, canonical string, meshIdx, primIdx uint32, prim *gltf.Primitive) (MeshId, error) {
	name := fmt.Sprintf("%s#mesh%d#prim%d", canonical, meshIdx, primIdx)

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return 0, &core.AssetFormatError{Asset: name, Field: "POSITION attribute"}
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return 0, &core.AssetFormatError{Asset: name, Field: "positions", Cause: err}
	}

	texCoordIdx, ok := prim.Attributes["TEXCOORD_0"]
	if !ok {
		return 0, &core.AssetFormatError{Asset: name, Field: "TEXCOORD_0 attribute"}
	}
	texCoords, err := modeler.ReadTextureCoord(doc, doc.Accessors[texCoordIdx], nil)
	if err != nil {
		return 0, &core.AssetFormatError{Asset: name, Field: "tex coords", Cause: err}
	}

	if prim.Indices == nil {
		return 0, &core.AssetFormatError{Asset: name, Field: "indices"}
	}
	indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
	if err != nil {
		return 0, &core.AssetFormatError{Asset: name, Field: "indices", Cause: err}
	}

	normalIdx, ok := prim.Attributes["NORMAL"]
	if !ok {
		return 0, &core.AssetFormatError{Asset: name, Field: "NORMAL attribute"}
	}
	normals, err := modeler.ReadNormal(doc, doc.Accessors[normalIdx], nil)
	if err != nil {
		return 0, &core.AssetFormatError{Asset: name, Field: "normals", Cause: err}
	}

	tangentIdx, ok := prim.Attributes["TANGENT"]
	if !ok {
		return 0, &core.AssetFormatError{Asset: name, Field: "TANGENT attribute"}
	}
	tangents, err := modeler.ReadTangent(doc, doc.Accessors[tangentIdx], nil)
	if err != nil {
		return 0, &core.AssetFormatError{Asset: name, Field: "tangents", Cause: err}
	}

	if len(texCoords) != len(positions) || len(normals) != len(positions) || len(tangents) != len(positions) {
		return 0, &core.AssetFormatError{Asset: name, Field: "attribute length mismatch"}
	}

	vertices := make([]Vertex, len(positions))
	for i, p := range positions {
		position := math.Vec3{X: p[0], Y: p[1], Z: p[2]}
		texCoord := math.Vec2{X: texCoords[i][0], Y: texCoords[i][1]}
		normal := math.Vec3{X: normals[i][0], Y: normals[i][1], Z: normals[i][2]}
		t := tangents[i]
		tangent := math.Vec4{X: t[0], Y: t[1], Z: t[2], W: t[3]}
		vertices[i] = NewVertex(position, texCoord, normal, tangent)
	}

	return s.meshes.push(name, vertices, indices), nil
}

func (s *AssetStore) loadPrimitiveMaterial(doc *gltf.Document, dir, canonical string, prim *gltf.Primitive) (MaterialId, error) {
	if prim.Material == nil {
		return 0, &core.AssetFormatError{Asset: canonical, Field: "material"}
	}
	if int(*prim.Material) >= len(doc.Materials) {
		return 0, &core.AssetFormatError{Asset: canonical, Field: "material index"}
	}
	gm := doc.Materials[*prim.Material]

	if gm.PBRMetallicRoughness == nil || gm.PBRMetallicRoughness.BaseColorTexture == nil {
		return 0, &core.AssetFormatError{Asset: canonical, Field: "base color texture"}
	}
	baseColorArray, baseColorId, err := s.loadMaterialTexture(doc, dir, canonical, "base color texture", gm.PBRMetallicRoughness.BaseColorTexture.Index)
	if err != nil {
		return 0, err
	}

	if gm.NormalTexture == nil || gm.NormalTexture.Index == nil {
		return 0, &core.AssetFormatError{Asset: canonical, Field: "normal texture"}
	}
	normalArray, normalId, err := s.loadMaterialTexture(doc, dir, canonical, "normal texture", *gm.NormalTexture.Index)
	if err != nil {
		return 0, err
	}

	if gm.PBRMetallicRoughness.MetallicRoughnessTexture == nil {
		return 0, &core.AssetFormatError{Asset: canonical, Field: "metallic-roughness texture"}
	}
	mrArray, mrId, err := s.loadMaterialTexture(doc, dir, canonical, "metallic-roughness texture", gm.PBRMetallicRoughness.MetallicRoughnessTexture.Index)
	if err != nil {
		return 0, err
	}

	material := Material{
		BaseColorArray:         baseColorArray,
		BaseColorId:            baseColorId,
		NormalArray:            normalArray,
		NormalId:               normalId,
		MetallicRoughnessArray: mrArray,
		MetallicRoughnessId:    mrId,
	}
	return s.materials.push(material), nil
}

func (s *AssetStore) loadMaterialTexture(doc *gltf.Document, dir, canonical, field string, textureIdx uint32) (TextureArrayKind, uint32, error) {
	if int(textureIdx) >= len(doc.Textures) {
		return 0, 0, &core.AssetFormatError{Asset: canonical, Field: field}
	}
	tex := doc.Textures[textureIdx]
	if tex.Source == nil {
		return 0, 0, &core.AssetFormatError{Asset: canonical, Field: field}
	}
	if int(*tex.Source) >= len(doc.Images) {
		return 0, 0, &core.AssetFormatError{Asset: canonical, Field: field}
	}
	img := doc.Images[*tex.Source]
	if img.URI == "" || img.IsEmbeddedResource() {
		return 0, 0, &core.AssetFormatError{Asset: canonical, Field: field}
	}

	path := filepath.Join(dir, img.URI)
	kind, id, err := s.LoadTexture(path)
	if err != nil {
		return 0, 0, &core.AssetFormatError{Asset: canonical, Field: field, Cause: err}
	}
	return kind, id, nil
}

// LoadTexture reads a block-compressed texture container from path,
// classifies it, and appends its mip chain to the matching array.
// Dedup is by path: loading the same URI twice yields the same (kind, id).
func (s *AssetStore) LoadTexture(path string) (TextureArrayKind, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, &core.AssetFormatError{Asset: path, Field: "texture file", Cause: err}
	}
	defer f.Close()

	header, err := ktx2.ReadHeader(f)
	if err != nil {
		return 0, 0, &core.AssetFormatError{Asset: path, Field: "texture header", Cause: err}
	}

	levels := make([][]byte, header.LevelCount)
	for i, lvl := range header.Levels {
		buf := make([]byte, lvl.Length)
		if _, err := io.ReadFull(f, buf); err != nil {
			return 0, 0, &core.AssetFormatError{Asset: path, Field: fmt.Sprintf("mip level %d", i), Cause: err}
		}
		levels[i] = buf
	}

	return s.Textures.Add(path, header, levels)
}

// LoadCubemap loads six faces and requires them to resolve to the same
// TextureArrayKind, drawn from the cubemap-allowed subset.
func (s *AssetStore) LoadCubemap(paths [6]string) (Cubemap, error) {
	var kinds [6]TextureArrayKind
	var ids [6]uint32

	for i, p := range paths {
		kind, id, err := s.LoadTexture(p)
		if err != nil {
			return Cubemap{}, err
		}
		kinds[i] = kind
		ids[i] = id
	}

	for i := 1; i < 6; i++ {
		if kinds[i] != kinds[0] {
			return Cubemap{}, &core.CubemapMismatchError{
				Texture: paths[i],
				Reason:  fmt.Sprintf("face %d classified as %s, face 0 classified as %s", i, kinds[i], kinds[0]),
			}
		}
	}
	if !cubemapAllowedKinds[kinds[0]] {
		return Cubemap{}, &core.CubemapMismatchError{
			Texture: paths[0],
			Reason:  fmt.Sprintf("%s is not an allowed cubemap kind", kinds[0]),
		}
	}

	return Cubemap{Kind: kinds[0], LayerIds: ids}, nil
}
