package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelgfx/vex/engine/assets/ktx2"
)

// writeTestTexture writes a minimal container file matching the wire format
// ktx2.ReadHeader expects: fixed header, level-offset table, then the
// concatenated level payloads in order. levelCount levels of 8 bytes each.
func writeTestTexture(t *testing.T, path string, format ktx2.Format, size uint32, levelCount uint32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const magic uint32 = 0x32585456
	fixed := struct {
		Magic      uint32
		Format     uint32
		Width      uint32
		Height     uint32
		LevelCount uint32
	}{magic, uint32(format), size, size, levelCount}
	if err := binary.Write(f, binary.LittleEndian, fixed); err != nil {
		t.Fatalf("write fixed header: %v", err)
	}

	const levelSize = 8
	offset := uint64(0)
	for i := uint32(0); i < levelCount; i++ {
		entry := struct {
			Offset uint64
			Length uint64
		}{offset, levelSize}
		if err := binary.Write(f, binary.LittleEndian, entry); err != nil {
			t.Fatalf("write level entry: %v", err)
		}
		offset += levelSize
	}

	for i := uint32(0); i < levelCount; i++ {
		if _, err := f.Write(make([]byte, levelSize)); err != nil {
			t.Fatalf("write level payload: %v", err)
		}
	}
}

func TestLoadTextureDedupByPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tex.ktx2")
	writeTestTexture(t, path, ktx2.FormatBC7Srgb, 1024, 11)

	store := NewAssetStore()
	kind1, id1, err := store.LoadTexture(path)
	if err != nil {
		t.Fatalf("LoadTexture: %v", err)
	}
	kind2, id2, err := store.LoadTexture(path)
	if err != nil {
		t.Fatalf("LoadTexture (second): %v", err)
	}
	if kind1 != kind2 || id1 != id2 {
		t.Fatalf("loading the same path twice gave different results: (%s,%d) != (%s,%d)", kind1, id1, kind2, id2)
	}
	if store.Textures.Map(kind1).LayerCount() != 1 {
		t.Fatalf("expected 1 layer after dedup, got %d", store.Textures.Map(kind1).LayerCount())
	}
}

func TestLoadCubemapMatchingFaces(t *testing.T) {
	dir := t.TempDir()
	var paths [6]string
	for i := 0; i < 6; i++ {
		paths[i] = filepath.Join(dir, faceName(i))
		writeTestTexture(t, paths[i], ktx2.FormatBC6HSfloat, 1024, 1)
	}

	store := NewAssetStore()
	cubemap, err := store.LoadCubemap(paths)
	if err != nil {
		t.Fatalf("LoadCubemap: %v", err)
	}
	if cubemap.Kind != NoMipBC6HSfloat1024 {
		t.Fatalf("unexpected cubemap kind: %s", cubemap.Kind)
	}
	for i := 1; i < 6; i++ {
		if cubemap.LayerIds[i] == cubemap.LayerIds[0] {
			t.Fatalf("faces collapsed to the same layer id")
		}
	}
}

func TestLoadCubemapMismatch(t *testing.T) {
	dir := t.TempDir()
	var paths [6]string
	for i := 0; i < 5; i++ {
		paths[i] = filepath.Join(dir, faceName(i))
		writeTestTexture(t, paths[i], ktx2.FormatBC6HSfloat, 1024, 1)
	}
	paths[5] = filepath.Join(dir, faceName(5))
	writeTestTexture(t, paths[5], ktx2.FormatBC7Srgb, 1024, 11)

	store := NewAssetStore()
	if _, err := store.LoadCubemap(paths); err == nil {
		t.Fatal("expected CubemapMismatchError, got nil")
	}
}

func faceName(i int) string {
	names := [6]string{"posx", "negx", "posy", "negy", "posz", "negz"}
	return names[i] + ".ktx2"
}
