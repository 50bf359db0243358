package assets

import (
	"testing"

	"github.com/kestrelgfx/vex/engine/assets/ktx2"
)

func levelsFor(kind TextureArrayKind) [][]byte {
	n := classifierTable[kind].MipLevels
	levels := make([][]byte, n)
	for i := range levels {
		levels[i] = []byte{byte(i), byte(i + 1)}
	}
	return levels
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		header ktx2.Header
		want   TextureArrayKind
	}{
		{
			name:   "BC5 unorm 2048 with full mip chain",
			header: ktx2.Header{Format: ktx2.FormatBC5Unorm, Width: 2048, Height: 2048, LevelCount: 12},
			want:   BC5Unorm2048,
		},
		{
			name:   "BC7 srgb 512 with full mip chain",
			header: ktx2.Header{Format: ktx2.FormatBC7Srgb, Width: 512, Height: 512, LevelCount: 10},
			want:   BC7Srgb512,
		},
		{
			name:   "BC6H HDR cubemap face, single mip",
			header: ktx2.Header{Format: ktx2.FormatBC6HSfloat, Width: 1024, Height: 1024, LevelCount: 1},
			want:   NoMipBC6HSfloat1024,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Classify(tc.name, &tc.header)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClassifyUnsupported(t *testing.T) {
	tests := []ktx2.Header{
		{Format: ktx2.FormatBC7Unorm, Width: 300, Height: 300, LevelCount: 9},
		{Format: ktx2.FormatBC5Unorm, Width: 1024, Height: 512, LevelCount: 11},
		{Format: ktx2.FormatBC6HSfloat, Width: 1024, Height: 1024, LevelCount: 2},
	}
	for _, h := range tests {
		if _, err := Classify("bad.tex", &h); err == nil {
			t.Fatalf("expected UnsupportedTextureError for %+v, got nil", h)
		}
	}
}

func TestTextureMapDedup(t *testing.T) {
	m := newTextureMap(BC7Srgb1024)
	levels := levelsFor(BC7Srgb1024)

	id1, err := m.add("tex.ktx2", levels)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id2, err := m.add("tex.ktx2", levels)
	if err != nil {
		t.Fatalf("add (second): %v", err)
	}
	if id1 != id2 {
		t.Fatalf("re-insertion changed layer id: %d != %d", id1, id2)
	}
	if m.LayerCount() != 1 {
		t.Fatalf("expected 1 layer after dedup, got %d", m.LayerCount())
	}

	id3, err := m.add("other.ktx2", levels)
	if err != nil {
		t.Fatalf("add (distinct): %v", err)
	}
	if id3 == id1 {
		t.Fatalf("distinct names collided on layer id %d", id3)
	}
	if m.LayerCount() != 2 {
		t.Fatalf("expected 2 layers, got %d", m.LayerCount())
	}
}

func TestTextureMapGetBounds(t *testing.T) {
	m := newTextureMap(BC7Srgb1024)
	levels := levelsFor(BC7Srgb1024)
	if _, err := m.add("tex.ktx2", levels); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := m.Get(0, 0); err != nil {
		t.Fatalf("Get(0,0): %v", err)
	}
	if _, err := m.Get(1, 0); err == nil {
		t.Fatal("expected TextureBoundsError for out-of-range layer, got nil")
	}
	if _, err := m.Get(0, m.mipLevelCount()); err == nil {
		t.Fatal("expected TextureBoundsError for out-of-range mip, got nil")
	}
}

func TestTextureArraysEagerlyCreated(t *testing.T) {
	arrays := NewTextureArrays()
	for kind := TextureArrayKind(0); kind < textureArrayKindCount; kind++ {
		m := arrays.Map(kind)
		if m == nil {
			t.Fatalf("kind %s has no map", kind)
		}
		if m.LayerCount() != 0 {
			t.Fatalf("kind %s should start empty, has %d layers", kind, m.LayerCount())
		}
	}
}
