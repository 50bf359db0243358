package assets

import (
	"fmt"

	"github.com/kestrelgfx/vex/engine/assets/ktx2"
	"github.com/kestrelgfx/vex/engine/core"
)

// TextureArrayKind is the closed set of (block-compressed format, square
// dimension) pairs a texture can be classified into: the Cartesian product
// of {BC5-unorm, BC7-unorm, BC7-srgb} × {512, 1024, 2048, 4096}, plus one
// special kind for HDR cubemap faces. Each kind uniquely determines the GPU
// texture format and exact mip-level count.
type TextureArrayKind uint32

const (
	BC5Unorm512 TextureArrayKind = iota
	BC5Unorm1024
	BC5Unorm2048
	BC5Unorm4096
	BC7Unorm512
	BC7Unorm1024
	BC7Unorm2048
	BC7Unorm4096
	BC7Srgb512
	BC7Srgb1024
	BC7Srgb2048
	BC7Srgb4096
	NoMipBC6HSfloat1024

	textureArrayKindCount
)

func (k TextureArrayKind) String() string {
	switch k {
	case BC5Unorm512:
		return "BC5-unorm-512"
	case BC5Unorm1024:
		return "BC5-unorm-1024"
	case BC5Unorm2048:
		return "BC5-unorm-2048"
	case BC5Unorm4096:
		return "BC5-unorm-4096"
	case BC7Unorm512:
		return "BC7-unorm-512"
	case BC7Unorm1024:
		return "BC7-unorm-1024"
	case BC7Unorm2048:
		return "BC7-unorm-2048"
	case BC7Unorm4096:
		return "BC7-unorm-4096"
	case BC7Srgb512:
		return "BC7-srgb-512"
	case BC7Srgb1024:
		return "BC7-srgb-1024"
	case BC7Srgb2048:
		return "BC7-srgb-2048"
	case BC7Srgb4096:
		return "BC7-srgb-4096"
	case NoMipBC6HSfloat1024:
		return "NoMipBC6H-sfloat-1024"
	default:
		return "unknown"
	}
}

// definingTuple is the (format, size, mip_level_count) triple that a
// successfully-classified texture of this kind must present, used both by
// the classifier dispatch table and by tests asserting that classification
// round-trips correctly.
type definingTuple struct {
	Format     ktx2.Format
	Size       uint32
	MipLevels  uint32
}

// mipLevelsForSize is the full mip chain length for a square BC5/BC7
// texture of the given size down to 1×1 (log2(size)+1 levels). Levels
// smaller than 4×4 still occupy one 4×4 block each.
func mipLevelsForSize(size uint32) uint32 {
	levels := uint32(1)
	for size > 1 {
		size >>= 1
		levels++
	}
	return levels
}

var classifierTable = map[TextureArrayKind]definingTuple{
	BC5Unorm512:         {ktx2.FormatBC5Unorm, 512, mipLevelsForSize(512)},
	BC5Unorm1024:        {ktx2.FormatBC5Unorm, 1024, mipLevelsForSize(1024)},
	BC5Unorm2048:        {ktx2.FormatBC5Unorm, 2048, mipLevelsForSize(2048)},
	BC5Unorm4096:        {ktx2.FormatBC5Unorm, 4096, mipLevelsForSize(4096)},
	BC7Unorm512:         {ktx2.FormatBC7Unorm, 512, mipLevelsForSize(512)},
	BC7Unorm1024:        {ktx2.FormatBC7Unorm, 1024, mipLevelsForSize(1024)},
	BC7Unorm2048:        {ktx2.FormatBC7Unorm, 2048, mipLevelsForSize(2048)},
	BC7Unorm4096:        {ktx2.FormatBC7Unorm, 4096, mipLevelsForSize(4096)},
	BC7Srgb512:          {ktx2.FormatBC7Srgb, 512, mipLevelsForSize(512)},
	BC7Srgb1024:         {ktx2.FormatBC7Srgb, 1024, mipLevelsForSize(1024)},
	BC7Srgb2048:         {ktx2.FormatBC7Srgb, 2048, mipLevelsForSize(2048)},
	BC7Srgb4096:         {ktx2.FormatBC7Srgb, 4096, mipLevelsForSize(4096)},
	NoMipBC6HSfloat1024: {ktx2.FormatBC6HSfloat, 1024, 1},
}

// cubemapAllowedKinds is the subset of TextureArrayKind a cubemap face may
// resolve to. Currently only NoMipBC6H-sfloat-1024.
var cubemapAllowedKinds = map[TextureArrayKind]bool{
	NoMipBC6HSfloat1024: true,
}

// Classify inspects header's (format, width, height, level_count) tuple and
// returns the one TextureArrayKind it matches, or UnsupportedTextureError
// if the tuple is outside the recognized 13-entry set. This is the single
// chokepoint that decides a texture's GPU binding slot.
func Classify(name string, header *ktx2.Header) (TextureArrayKind, error) {
	if header.Width != header.Height {
		return 0, &core.UnsupportedTextureError{Texture: name, Format: fmt.Sprint(header.Format), Size: header.Width}
	}
	for kind, tuple := range classifierTable {
		if tuple.Format == header.Format && tuple.Size == header.Width && tuple.MipLevels == header.LevelCount {
			return kind, nil
		}
	}
	return 0, &core.UnsupportedTextureError{Texture: name, Format: fmt.Sprint(header.Format), Size: header.Width}
}

// mipRange is a (offset, length) pair into a TextureMap's byte arena,
// addressed by (layer_index × mip_level_count + mip_level_index).
type mipRange struct {
	Offset uint32
	Length uint32
}

// TextureMap is the per-kind store: a byte arena holding every layer's full
// mip chain back-to-back in layer-major order, a parallel mip_levels range
// table, and a name→layer_index dedup map.
type TextureMap struct {
	Kind      TextureArrayKind
	Data      []byte
	MipRanges []mipRange // size layer_count * mipLevelCount(Kind)
	arena     *arena[struct{}]
}

func newTextureMap(kind TextureArrayKind) *TextureMap {
	return &TextureMap{Kind: kind, arena: newArena[struct{}]()}
}

func (m *TextureMap) mipLevelCount() uint32 {
	return classifierTable[m.Kind].MipLevels
}

// Dimension returns the square pixel size a texture of this kind was
// classified at.
func (k TextureArrayKind) Dimension() uint32 {
	return classifierTable[k].Size
}

// MipLevelCount returns the exact mip chain length a texture of this kind
// was classified at.
func (k TextureArrayKind) MipLevelCount() uint32 {
	return classifierTable[k].MipLevels
}

// AllKinds returns every TextureArrayKind in declaration order, for
// callers that need to create one GPU resource per kind regardless of
// whether any texture has been loaded into it yet.
func AllKinds() []TextureArrayKind {
	kinds := make([]TextureArrayKind, textureArrayKindCount)
	for k := TextureArrayKind(0); k < textureArrayKindCount; k++ {
		kinds[k] = k
	}
	return kinds
}

// LayerCount reports how many distinct textures have been appended.
func (m *TextureMap) LayerCount() uint32 {
	return uint32(m.arena.len())
}

// add appends a texture's concatenated level payloads (level 0 first) as a
// new layer, returning the existing layer index unchanged if name was
// already present. levels must have length mipLevelCount().
func (m *TextureMap) add(name string, levels [][]byte) (uint32, error) {
	if id, ok := m.arena.lookup(name); ok {
		return uint32(id), nil
	}
	if uint32(len(levels)) != m.mipLevelCount() {
		return 0, fmt.Errorf("texture %q: expected %d mip levels for %s, got %d", name, m.mipLevelCount(), m.Kind, len(levels))
	}

	layerIndex := uint32(m.arena.len())
	for _, level := range levels {
		offset := uint32(len(m.Data))
		m.Data = append(m.Data, level...)
		m.MipRanges = append(m.MipRanges, mipRange{Offset: offset, Length: uint32(len(level))})
	}
	m.arena.push(name, struct{}{})
	return layerIndex, nil
}

// Get validates bounds and returns a borrowed byte slice for
// (layer_index, mip_level_index).
func (m *TextureMap) Get(layerIndex, mipLevelIndex uint32) ([]byte, error) {
	levels := m.mipLevelCount()
	if layerIndex >= m.LayerCount() {
		return nil, &core.TextureBoundsError{Texture: m.Kind.String(), Layer: int32(layerIndex), Mip: int32(mipLevelIndex), Bound: int32(m.LayerCount())}
	}
	if mipLevelIndex >= levels {
		return nil, &core.TextureBoundsError{Texture: m.Kind.String(), Layer: int32(layerIndex), Mip: int32(mipLevelIndex), Bound: int32(levels)}
	}
	idx := layerIndex*levels + mipLevelIndex
	r := m.MipRanges[idx]
	return m.Data[r.Offset : r.Offset+r.Length], nil
}

// TextureArrays owns one TextureMap per TextureArrayKind, created eagerly so
// every kind's map exists from the start even with zero layers.
type TextureArrays struct {
	maps map[TextureArrayKind]*TextureMap
}

func NewTextureArrays() *TextureArrays {
	t := &TextureArrays{maps: make(map[TextureArrayKind]*TextureMap, textureArrayKindCount)}
	for kind := TextureArrayKind(0); kind < textureArrayKindCount; kind++ {
		t.maps[kind] = newTextureMap(kind)
	}
	return t
}

func (t *TextureArrays) Map(kind TextureArrayKind) *TextureMap {
	return t.maps[kind]
}

// Add classifies header then appends levels under name to the matching
// kind's map, returning (kind, layer id).
func (t *TextureArrays) Add(name string, header *ktx2.Header, levels [][]byte) (TextureArrayKind, uint32, error) {
	kind, err := Classify(name, header)
	if err != nil {
		return 0, 0, err
	}
	id, err := t.maps[kind].add(name, levels)
	if err != nil {
		return 0, 0, err
	}
	return kind, id, nil
}
