package assets

import "testing"

func TestMaterialRegistryStructuralDedup(t *testing.T) {
	r := newMaterialRegistry()
	a := Material{
		BaseColorArray: BC7Srgb1024, BaseColorId: 0,
		NormalArray: BC5Unorm1024, NormalId: 0,
		MetallicRoughnessArray: BC7Unorm1024, MetallicRoughnessId: 0,
	}
	b := a // identical by value

	id1 := r.push(a)
	id2 := r.push(b)
	if id1 != id2 {
		t.Fatalf("structurally identical materials got different ids: %d != %d", id1, id2)
	}
	if r.len() != 1 {
		t.Fatalf("expected 1 material after dedup, got %d", r.len())
	}

	c := a
	c.NormalId = 1
	id3 := r.push(c)
	if id3 == id1 {
		t.Fatal("materials differing by one field collided")
	}
	if r.len() != 2 {
		t.Fatalf("expected 2 materials, got %d", r.len())
	}
}
