package assets

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelgfx/vex/engine/assets/ktx2"
)

// buildFixtureBuffer packs one triangle's POSITION/NORMAL/TANGENT/TEXCOORD_0
// attributes plus its index list into a single little-endian blob, at the
// fixed byte offsets fixtureGltfJSON's bufferViews declare: positions at 0,
// normals at 36, tangents at 72, texcoords at 120, indices at 144.
func buildFixtureBuffer(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	fields := []interface{}{
		[3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},       // POSITION
		[3][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},       // NORMAL
		[3][4]float32{{1, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 1}}, // TANGENT
		[3][2]float32{{0, 0}, {1, 0}, {0, 1}},                // TEXCOORD_0
		[3]uint32{0, 1, 2},                                   // indices
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
			t.Fatalf("pack fixture buffer: %v", err)
		}
	}
	return buf.Bytes()
}

// fixtureGltfJSON builds a minimal two-node-deep scene: root R has no mesh
// and two children; C1 has a mesh of two primitives that both reference the
// same accessors and the same material (which in turn references the same
// texture three times, for base color/normal/metallic-roughness); C2 has no
// mesh. This is exactly the shape loadGltf's flatten and the material/texture
// dedup paths need to exercise.
func fixtureGltfJSON(t *testing.T) string {
	t.Helper()
	data := buildFixtureBuffer(t)
	b64 := base64.StdEncoding.EncodeToString(data)

	const tmpl = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "R", "children": [1, 2]},
    {"name": "C1", "mesh": 0},
    {"name": "C2"}
  ],
  "meshes": [
    {
      "primitives": [
        {"attributes": {"POSITION": 0, "NORMAL": 1, "TANGENT": 2, "TEXCOORD_0": 3}, "indices": 4, "material": 0},
        {"attributes": {"POSITION": 0, "NORMAL": 1, "TANGENT": 2, "TEXCOORD_0": 3}, "indices": 4, "material": 0}
      ]
    }
  ],
  "materials": [
    {
      "pbrMetallicRoughness": {
        "baseColorTexture": {"index": 0},
        "metallicRoughnessTexture": {"index": 0}
      },
      "normalTexture": {"index": 0}
    }
  ],
  "textures": [{"source": 0}],
  "images": [{"uri": "tex.ktx2"}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 2, "componentType": 5126, "count": 3, "type": "VEC4"},
    {"bufferView": 3, "componentType": 5126, "count": 3, "type": "VEC2"},
    {"bufferView": 4, "componentType": 5125, "count": 3, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 36},
    {"buffer": 0, "byteOffset": 72, "byteLength": 48},
    {"buffer": 0, "byteOffset": 120, "byteLength": 24},
    {"buffer": 0, "byteOffset": 144, "byteLength": 12}
  ],
  "buffers": [
    {"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}
  ]
}`
	return fmt.Sprintf(tmpl, len(data), b64)
}

// writeFixtureModel lays out a self-contained model directory: the .gltf
// document above plus the single KTX2 container its material's three texture
// slots all resolve to (NoMipBC6H-sfloat-1024, the one classifier kind that
// only needs a single mip level).
func writeFixtureModel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	texPath := filepath.Join(dir, "tex.ktx2")
	writeTestTexture(t, texPath, ktx2.FormatBC6HSfloat, 1024, 1)

	gltfPath := filepath.Join(dir, "model.gltf")
	if err := os.WriteFile(gltfPath, []byte(fixtureGltfJSON(t)), 0o644); err != nil {
		t.Fatalf("write fixture gltf: %v", err)
	}
	return gltfPath
}

// TestLoadModelDedupsSharedTextureAndMaterial exercises the dedup path: two
// primitives referencing the same material, which references the same
// texture three times, must collapse to one texture layer and one material
// even though two meshes are loaded (mesh identity is per-primitive, not
// shared).
func TestLoadModelDedupsSharedTextureAndMaterial(t *testing.T) {
	path := writeFixtureModel(t)
	store := NewAssetStore()

	modelId, err := store.LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	if store.MeshCount() != 2 {
		t.Fatalf("expected 2 meshes (one per primitive), got %d", store.MeshCount())
	}
	if store.MaterialCount() != 1 {
		t.Fatalf("expected both primitives to dedup to 1 material, got %d", store.MaterialCount())
	}
	if got := store.Textures.Map(NoMipBC6HSfloat1024).LayerCount(); got != 1 {
		t.Fatalf("expected the shared texture to collapse to 1 layer, got %d", got)
	}

	model := store.Model(modelId)
	c1 := findNode(model, "C1")
	if len(c1.ObjectGroup) != 2 {
		t.Fatalf("expected C1's object group to have 2 entries, got %d", len(c1.ObjectGroup))
	}
	if c1.ObjectGroup[0].MaterialId != c1.ObjectGroup[1].MaterialId {
		t.Fatalf("expected both primitives to reference the same deduped material")
	}

	if again, err := store.LoadModel(path); err != nil || again != modelId {
		t.Fatalf("loading the same path again: got (%d, %v), want (%d, nil)", again, err, modelId)
	}
	if store.ModelCount() != 1 {
		t.Fatalf("expected reloading the same path to leave model count at 1, got %d", store.ModelCount())
	}
}

// TestLoadModelFlattensHierarchy exercises the breadth-first flatten: root R
// has no mesh and two children; C1 carries geometry, C2 does not.
func TestLoadModelFlattensHierarchy(t *testing.T) {
	path := writeFixtureModel(t)
	store := NewAssetStore()

	modelId, err := store.LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	model := store.Model(modelId)
	if len(model.RootNodes) != 1 {
		t.Fatalf("expected 1 root node, got %d", len(model.RootNodes))
	}
	if len(model.Nodes) != 3 {
		t.Fatalf("expected 3 flattened nodes, got %d", len(model.Nodes))
	}

	root := model.Nodes[model.RootNodes[0]]
	if root.Name != "R" || len(root.ObjectGroup) != 0 || len(root.Children) != 2 {
		t.Fatalf("unexpected root node: %+v", root)
	}

	c1 := findNode(model, "C1")
	if len(c1.ObjectGroup) != 2 {
		t.Fatalf("expected C1 to carry 2 object group entries, got %d", len(c1.ObjectGroup))
	}
	c2 := findNode(model, "C2")
	if len(c2.ObjectGroup) != 0 || len(c2.Children) != 0 {
		t.Fatalf("expected C2 to be a childless, geometry-less leaf, got %+v", c2)
	}
}

func findNode(m Model, name string) Node {
	for _, n := range m.Nodes {
		if n.Name == name {
			return n
		}
	}
	panic(fmt.Sprintf("no node named %q in %+v", name, m.Nodes))
}
