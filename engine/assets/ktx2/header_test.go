package ktx2

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func writeFixedHeader(t *testing.T, format, width, height, levelCount uint32, levels []LevelRange) []byte {
	t.Helper()
	var buf bytes.Buffer
	fixed := struct {
		Magic      uint32
		Format     uint32
		Width      uint32
		Height     uint32
		LevelCount uint32
	}{magic, format, width, height, levelCount}
	if err := binary.Write(&buf, binary.LittleEndian, fixed); err != nil {
		t.Fatalf("write fixed header: %v", err)
	}
	for _, l := range levels {
		entry := struct {
			Offset uint64
			Length uint64
		}{l.Offset, l.Length}
		if err := binary.Write(&buf, binary.LittleEndian, entry); err != nil {
			t.Fatalf("write level entry: %v", err)
		}
	}
	return buf.Bytes()
}

func TestReadHeaderRoundTrip(t *testing.T) {
	levels := []LevelRange{{Offset: 0, Length: 1024}, {Offset: 1024, Length: 256}}
	raw := writeFixedHeader(t, uint32(FormatBC7Srgb), 1024, 1024, 2, levels)

	h, err := ReadHeader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Format != FormatBC7Srgb || h.Width != 1024 || h.Height != 1024 || h.LevelCount != 2 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if len(h.Levels) != 2 || h.Levels[0] != levels[0] || h.Levels[1] != levels[1] {
		t.Fatalf("unexpected levels: %+v", h.Levels)
	}
}

func TestReadHeaderBadMagic(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(0xDEADBEEF))
	binary.Write(&buf, binary.LittleEndian, uint32(FormatBC5Unorm))
	binary.Write(&buf, binary.LittleEndian, uint32(512))
	binary.Write(&buf, binary.LittleEndian, uint32(512))
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	if _, err := ReadHeader(bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("expected error for bad magic, got nil")
	}
}

func TestReadHeaderTruncated(t *testing.T) {
	if _, err := ReadHeader(bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Fatal("expected error for truncated header, got nil")
	}
}
