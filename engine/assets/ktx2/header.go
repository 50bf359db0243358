// Package ktx2 reads the fixed-layout header of a block-compressed texture
// container: format, pixel width/height, level count, and a level-offset
// table for the concatenated level payloads that follow. Full KTX2 parsing
// (supercompression, key/value metadata, data format descriptors) is out of
// scope; this package reads only the fields the asset store's classifier
// and mip loader actually need.
package ktx2

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Format enumerates the handful of block-compressed pixel formats the
// classifier recognizes. The numeric values are this reader's own small
// closed vocabulary, not the real KTX2/Vulkan format enum (out of scope).
type Format uint32

const (
	FormatUnknown Format = iota
	FormatBC5Unorm
	FormatBC7Unorm
	FormatBC7Srgb
	FormatBC6HSfloat
)

// Header is the fixed set of fields the asset store reads from a container:
// pixel format, square dimension, and mip level count, followed by a
// level-offset table of levelCount entries.
type Header struct {
	Format     Format
	Width      uint32
	Height     uint32
	LevelCount uint32

	// Levels holds the (offset, length) of each mip level's byte range
	// within the payload that follows the header, level 0 first.
	Levels []LevelRange
}

// LevelRange is the byte range of one mip level within a container's
// payload.
type LevelRange struct {
	Offset uint64
	Length uint64
}

// magic identifies a container as ours; arbitrary, not the real KTX2 magic
// (this is not a KTX2-compatible reader, only a KTX2-shaped one).
const magic uint32 = 0x32585456 // "VTX2"

// ReadHeader parses the fixed header plus level-offset table from r. The
// caller is responsible for reading level payload bytes at the given
// ranges, offset from wherever ReadHeader left the stream (immediately
// after the level table).
func ReadHeader(r io.Reader) (*Header, error) {
	var fixed struct {
		Magic      uint32
		Format     uint32
		Width      uint32
		Height     uint32
		LevelCount uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return nil, fmt.Errorf("ktx2: read fixed header: %w", err)
	}
	if fixed.Magic != magic {
		return nil, fmt.Errorf("ktx2: bad magic %08x", fixed.Magic)
	}

	h := &Header{
		Format:     Format(fixed.Format),
		Width:      fixed.Width,
		Height:     fixed.Height,
		LevelCount: fixed.LevelCount,
		Levels:     make([]LevelRange, fixed.LevelCount),
	}

	for i := range h.Levels {
		var entry struct {
			Offset uint64
			Length uint64
		}
		if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
			return nil, fmt.Errorf("ktx2: read level %d range: %w", i, err)
		}
		h.Levels[i] = LevelRange{Offset: entry.Offset, Length: entry.Length}
	}

	return h, nil
}
